package manifest

import (
	"strings"
	"testing"
)

func manifestWith(tasks map[string]Task) *Manifest {
	return &Manifest{Image: "encom:os-12", Tasks: tasks}
}

func TestCheckPathsAbsoluteInput(t *testing.T) {
	m := manifestWith(map[string]Task{
		"build": {Location: "/scratch", User: "root", InputPaths: []string{"/etc/passwd"}},
	})
	err := Validate(m)
	if err == nil || !strings.Contains(err.Error(), "absolute") {
		t.Fatalf("expected an absolute input_path error, got %v", err)
	}
}

func TestCheckPathsAbsoluteOutput(t *testing.T) {
	m := manifestWith(map[string]Task{
		"build": {Location: "/scratch", User: "root", OutputPaths: []string{"/etc/passwd"}},
	})
	err := Validate(m)
	if err == nil || !strings.Contains(err.Error(), "absolute") {
		t.Fatalf("expected an absolute output_path error, got %v", err)
	}
}

func TestCheckPathsRelativeLocation(t *testing.T) {
	m := manifestWith(map[string]Task{
		"build": {Location: "scratch", User: "root"},
	})
	err := Validate(m)
	if err == nil || !strings.Contains(err.Error(), "relative") {
		t.Fatalf("expected a relative location error, got %v", err)
	}
}

func TestCheckPathsOK(t *testing.T) {
	m := manifestWith(map[string]Task{
		"build": {Location: "/scratch", User: "root", InputPaths: []string{"src"}, OutputPaths: []string{"bin"}},
	})
	if err := Validate(m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCheckCachingPorts(t *testing.T) {
	m := manifestWith(map[string]Task{
		"serve": {Location: "/scratch", User: "root", Cache: true, Ports: []string{"8080:8080"}},
	})
	err := Validate(m)
	if err == nil || !strings.Contains(err.Error(), "caching") {
		t.Fatalf("expected a caching error, got %v", err)
	}
}

func TestCheckCachingWatch(t *testing.T) {
	m := manifestWith(map[string]Task{
		"watcher": {Location: "/scratch", User: "root", Cache: true, Watch: true},
	})
	err := Validate(m)
	if err == nil || !strings.Contains(err.Error(), "caching") {
		t.Fatalf("expected a caching error, got %v", err)
	}
}

func TestCheckDependenciesMissing(t *testing.T) {
	m := manifestWith(map[string]Task{
		"build": {Location: "/scratch", User: "root", Dependencies: []string{"fetch"}},
	})
	err := Validate(m)
	if err == nil || !strings.Contains(err.Error(), "invalid dependencies") {
		t.Fatalf("expected an invalid dependencies error, got %v", err)
	}
}

func TestCheckDependenciesSelfCycle(t *testing.T) {
	m := manifestWith(map[string]Task{
		"build": {Location: "/scratch", User: "root", Dependencies: []string{"build"}},
	})
	err := Validate(m)
	if err == nil || !strings.Contains(err.Error(), "`build` depends on itself.") {
		t.Fatalf("expected a self-cycle error, got %v", err)
	}
}

func TestCheckDependenciesMutualCycle(t *testing.T) {
	m := manifestWith(map[string]Task{
		"a": {Location: "/scratch", User: "root", Dependencies: []string{"b"}},
		"b": {Location: "/scratch", User: "root", Dependencies: []string{"a"}},
	})
	err := Validate(m)
	if err == nil {
		t.Fatalf("expected a cycle error")
	}
	if !strings.Contains(err.Error(), "depend on each other.") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCheckDependenciesLongCycle(t *testing.T) {
	m := manifestWith(map[string]Task{
		"a": {Location: "/scratch", User: "root", Dependencies: []string{"b"}},
		"b": {Location: "/scratch", User: "root", Dependencies: []string{"c"}},
		"c": {Location: "/scratch", User: "root", Dependencies: []string{"a"}},
	})
	err := Validate(m)
	if err == nil {
		t.Fatalf("expected a cycle error")
	}
	if !strings.Contains(err.Error(), "The dependencies are cyclic.") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCheckDependenciesAcyclicOK(t *testing.T) {
	m := manifestWith(map[string]Task{
		"fetch": {Location: "/scratch", User: "root"},
		"build": {Location: "/scratch", User: "root", Dependencies: []string{"fetch"}},
		"test":  {Location: "/scratch", User: "root", Dependencies: []string{"build"}},
	})
	if err := Validate(m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
