package runtime

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPlaceStagedResultFile(t *testing.T) {
	dir := t.TempDir()
	staged := filepath.Join(dir, "staged-file")
	if err := os.WriteFile(staged, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	destination := filepath.Join(dir, "nested", "dest-file")

	if err := placeStagedResult(NewOSFileOps(), staged, destination); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(destination)
	if err != nil {
		t.Fatalf("expected the file at the destination: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("got %q", data)
	}
	if _, err := os.Stat(staged); !os.IsNotExist(err) {
		t.Fatalf("expected the staged file to have been moved, not copied")
	}
}

func TestPlaceStagedResultDirectoryMerge(t *testing.T) {
	dir := t.TempDir()

	staged := filepath.Join(dir, "staged")
	if err := os.MkdirAll(filepath.Join(staged, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(staged, "a.txt"), []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(staged, "nested", "b.txt"), []byte("b"), 0o644); err != nil {
		t.Fatal(err)
	}

	destination := filepath.Join(dir, "existing-dest")
	if err := os.MkdirAll(destination, 0o755); err != nil {
		t.Fatal(err)
	}

	if err := placeStagedResult(NewOSFileOps(), staged, destination); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, rel := range []string{"a.txt", filepath.Join("nested", "b.txt")} {
		if _, err := os.Stat(filepath.Join(destination, rel)); err != nil {
			t.Fatalf("expected %s at the destination: %v", rel, err)
		}
	}

	// The directory must have been merged into the existing destination,
	// not nested as a child of it (the idempotency bug this works around).
	if _, err := os.Stat(filepath.Join(destination, "staged")); !os.IsNotExist(err) {
		t.Fatalf("expected no nested 'staged' directory under the destination")
	}
}
