package runtime

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/banksean/toastrun/interrupt"
)

// installFakeBinary writes a shell script named "container" to a temp
// directory, prepends it to PATH for the duration of the test, and
// restores PATH on cleanup. The script is the cheapest stand-in for the
// real runtime CLI: tests assert on the args Adapter builds, not on what
// a real container runtime does with them.
func installFakeBinary(t *testing.T, script string) {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh available to back the fake container binary")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "container")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	oldPath := os.Getenv("PATH")
	os.Setenv("PATH", dir+string(os.PathListSeparator)+oldPath)
	t.Cleanup(func() { os.Setenv("PATH", oldPath) })
}

func TestAdapterImageExistsTrue(t *testing.T) {
	installFakeBinary(t, "exit 0")
	a := NewAdapter(interrupt.New())
	ok, err := a.ImageExists(context.Background(), "encom:os-12")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("expected the image to exist")
	}
}

func TestAdapterImageExistsFalse(t *testing.T) {
	installFakeBinary(t, "exit 1")
	a := NewAdapter(interrupt.New())
	ok, err := a.ImageExists(context.Background(), "encom:os-12")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected the image to not exist")
	}
}

func TestAdapterCreateContainerTrimsOutput(t *testing.T) {
	installFakeBinary(t, "echo '  abc123  '")
	a := NewAdapter(interrupt.New())
	id, err := a.CreateContainer(context.Background(), "encom:os-12", []string{"8080:8080"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "abc123" {
		t.Fatalf("got %q", id)
	}
}

func TestAdapterDeleteContainerSystemFailure(t *testing.T) {
	installFakeBinary(t, "echo boom 1>&2; exit 1")
	a := NewAdapter(interrupt.New())
	err := a.DeleteContainer(context.Background(), "abc123")
	if err == nil {
		t.Fatalf("expected an error")
	}
}

func TestRandomTagShape(t *testing.T) {
	tag := RandomTag()
	if len(tag) != 32 {
		t.Fatalf("expected a 32-character tag, got %q (%d)", tag, len(tag))
	}
	other := RandomTag()
	if tag == other {
		t.Fatalf("expected two calls to produce different tags")
	}
}
