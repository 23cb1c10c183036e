package manifest

import (
	"strings"
	"testing"
)

func strPtr(s string) *string { return &s }

func TestParseEmpty(t *testing.T) {
	m, err := Parse([]byte(`image: encom:os-12`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Image != "encom:os-12" {
		t.Fatalf("got image %q", m.Image)
	}
	if len(m.Tasks) != 0 {
		t.Fatalf("expected no tasks, got %d", len(m.Tasks))
	}
}

func TestParseMinimalTask(t *testing.T) {
	m, err := Parse([]byte(`
image: encom:os-12
tasks:
  build:
    command: echo hello
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	task, ok := m.Tasks["build"]
	if !ok {
		t.Fatalf("expected task %q", "build")
	}
	if task.Location != DefaultLocation {
		t.Fatalf("got location %q", task.Location)
	}
	if task.User != DefaultUser {
		t.Fatalf("got user %q", task.User)
	}
	if !task.Cache {
		t.Fatalf("expected caching to default to true")
	}
	if task.Watch {
		t.Fatalf("expected watch to default to false")
	}
}

func TestParseComprehensiveTask(t *testing.T) {
	m, err := Parse([]byte(`
image: encom:os-12
default: build
tasks:
  build:
    dependencies:
      - fetch
    cache: false
    environment:
      RECOGNIZER: null
      GRID: "1982"
    watch: false
    input_paths:
      - src
    output_paths:
      - bin
    ports:
      - "8080:8080"
    location: /root
    user: flynn
    command: make build
  fetch:
    command: echo fetching
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	task := m.Tasks["build"]
	if task.Cache {
		t.Fatalf("expected caching to be disabled")
	}
	if task.Location != "/root" || task.User != "flynn" {
		t.Fatalf("got location %q user %q", task.Location, task.User)
	}
	if task.Environment["RECOGNIZER"] != nil {
		t.Fatalf("expected RECOGNIZER to have no default")
	}
	if task.Environment["GRID"] == nil || *task.Environment["GRID"] != "1982" {
		t.Fatalf("expected GRID default of 1982")
	}
	if *m.Default != "build" {
		t.Fatalf("got default %q", *m.Default)
	}
}

func TestParseInvalidDefault(t *testing.T) {
	_, err := Parse([]byte(`
image: encom:os-12
default: build
`))
	if err == nil {
		t.Fatalf("expected an error")
	}
	if !strings.Contains(err.Error(), "does not exist") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseUnknownField(t *testing.T) {
	_, err := Parse([]byte(`
image: encom:os-12
tasks:
  build:
    comand: echo typo
`))
	if err == nil {
		t.Fatalf("expected an error for the unknown field")
	}
}
