package fingerprint

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/banksean/toastrun/manifest"
)

var digestPattern = regexp.MustCompile(`^sha256:[0-9a-f]{64}$`)

func command(s string) *string { return &s }

func TestComputeDeterministic(t *testing.T) {
	in := Input{
		ParentFingerprint: "encom:os-12",
		Task: manifest.Task{
			Location: "/scratch",
			User:     "root",
			Command:  command("make build"),
		},
		ResolvedEnv:   map[string]string{"GRID": "1982"},
		ContentDigest: "sha256:0000000000000000000000000000000000000000000000000000000000000",
	}

	a, err := Compute(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := Compute(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a != b {
		t.Fatalf("expected equal fingerprints for equal input, got %q and %q", a, b)
	}
	if !digestPattern.MatchString(a) {
		t.Fatalf("fingerprint %q does not look like an OCI digest", a)
	}
}

func TestComputeSensitiveToCommand(t *testing.T) {
	base := Input{
		ParentFingerprint: "encom:os-12",
		Task:              manifest.Task{Location: "/scratch", User: "root", Command: command("make build")},
		ResolvedEnv:       map[string]string{},
		ContentDigest:     "",
	}
	other := base
	other.Task.Command = command("make test")

	a, err := Compute(base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := Compute(other)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a == b {
		t.Fatalf("expected different commands to produce different fingerprints")
	}
}

func TestComputeDependencyOrderMatters(t *testing.T) {
	base := Input{
		ParentFingerprint: "encom:os-12",
		Task:              manifest.Task{Location: "/scratch", User: "root", Dependencies: []string{"a", "b"}},
	}
	reordered := base
	reordered.Task.Dependencies = []string{"b", "a"}

	x, _ := Compute(base)
	y, _ := Compute(reordered)
	if x == y {
		t.Fatalf("expected dependency order to affect the fingerprint")
	}
}

func TestDigestDirReproducible(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "src", "nested"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "src", "main.go"), []byte("package main"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "src", "nested", "lib.go"), []byte("package nested"), 0o644); err != nil {
		t.Fatal(err)
	}

	a, err := DigestDir(dir, []string{"src"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := DigestDir(dir, []string{"src"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a != b {
		t.Fatalf("expected the same digest across runs, got %q and %q", a, b)
	}
	if !digestPattern.MatchString(a) {
		t.Fatalf("digest %q does not look like an OCI digest", a)
	}
}

func TestDigestDirSensitiveToContent(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "src"), 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "src", "main.go")
	if err := os.WriteFile(path, []byte("package main"), 0o644); err != nil {
		t.Fatal(err)
	}
	before, err := DigestDir(dir, []string{"src"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := os.WriteFile(path, []byte("package main // changed"), 0o644); err != nil {
		t.Fatal(err)
	}
	after, err := DigestDir(dir, []string{"src"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if before == after {
		t.Fatalf("expected a content change to change the digest")
	}
}
