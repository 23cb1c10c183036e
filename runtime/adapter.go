package runtime

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/banksean/toastrun/failure"
	"github.com/banksean/toastrun/interrupt"
	"github.com/banksean/toastrun/runtime/options"
)

// ContainerRuntime is the narrow contract the execution engine uses to
// speak to the container runtime. Every method is a single subprocess
// invocation (or, for CopyFrom, one invocation per path plus a host-side
// staging move). A mock implementation lets engine tests run without a
// real container runtime installed.
type ContainerRuntime interface {
	ImageExists(ctx context.Context, ref string) (bool, error)
	Pull(ctx context.Context, ref string) error
	Push(ctx context.Context, ref string) error
	DeleteImage(ctx context.Context, ref string) error
	CreateContainer(ctx context.Context, image string, ports []string) (string, error)
	CopyInto(ctx context.Context, container string, tar io.Reader) error
	CopyFrom(ctx context.Context, container string, paths []string, sourceDir, destinationDir string) error
	Start(ctx context.Context, container, command string) error
	Stop(ctx context.Context, container string) error
	Commit(ctx context.Context, container, imageRef string) error
	DeleteContainer(ctx context.Context, container string) error
	Shell(ctx context.Context, image string) error
}

// Adapter is the subprocess-backed ContainerRuntime.
type Adapter struct {
	Flag   *interrupt.Flag
	Ops    FileOps
	mkTemp func() (string, error)
}

// NewAdapter returns an Adapter that shells out to the real container
// runtime CLI and stages copy-out results on the real filesystem.
func NewAdapter(flag *interrupt.Flag) *Adapter {
	ops := NewOSFileOps()
	return &Adapter{Flag: flag, Ops: ops, mkTemp: ops.MkdirTemp}
}

func (a *Adapter) ImageExists(ctx context.Context, ref string) (bool, error) {
	_, err := execQuiet(ctx, a.Flag, "The image doesn't exist.", "image", "inspect", ref)
	if err == nil {
		return true, nil
	}
	if failure.IsInterrupted(err) {
		return false, err
	}
	return false, nil
}

func (a *Adapter) Pull(ctx context.Context, ref string) error {
	_, err := execQuiet(ctx, a.Flag, "Unable to pull image.", "image", "pull", ref)
	return err
}

func (a *Adapter) Push(ctx context.Context, ref string) error {
	_, err := execQuiet(ctx, a.Flag, "Unable to push image.", "image", "push", ref)
	return err
}

func (a *Adapter) DeleteImage(ctx context.Context, ref string) error {
	_, err := execQuiet(ctx, a.Flag, "Unable to delete image.", "image", "rm", "--force", ref)
	return err
}

func (a *Adapter) CreateContainer(ctx context.Context, image string, ports []string) (string, error) {
	args := append([]string{"create"}, options.ToArgs(&options.CreateContainer{
		Init:        true,
		Interactive: true,
		Publish:     ports,
	})...)
	args = append(args, image, "/bin/sh")

	out, err := execQuiet(ctx, a.Flag, "Unable to create container.", args...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (a *Adapter) CopyInto(ctx context.Context, container string, tar io.Reader) error {
	dest := fmt.Sprintf("%s:%s", container, "/")
	_, err := execQuietStdin(ctx, a.Flag, "Unable to copy files into the container.", tar, "cp", "-", dest)
	return err
}

func (a *Adapter) CopyFrom(ctx context.Context, container string, paths []string, sourceDir, destinationDir string) error {
	for _, path := range paths {
		tempDir, err := a.mkTemp()
		if err != nil {
			return failure.NewSystem("Unable to create temporary directory.", err.Error())
		}

		source := filepath.Join(sourceDir, path)
		staged := filepath.Join(tempDir, "data")
		destination := filepath.Join(destinationDir, path)

		src := fmt.Sprintf("%s:%s", container, filepath.ToSlash(source))
		if _, err := execQuiet(ctx, a.Flag, "Unable to copy files from the container.", "cp", src, staged); err != nil {
			return err
		}

		if err := placeStagedResult(a.Ops, staged, destination); err != nil {
			return err
		}
	}
	return nil
}

func (a *Adapter) Start(ctx context.Context, container, cmdStr string) error {
	return execLoudStdin(ctx, a.Flag, "Unable to start container.", func(w io.Writer) error {
		_, err := io.WriteString(w, cmdStr)
		return err
	}, "start", "--attach", "--interactive", container)
}

func (a *Adapter) Stop(ctx context.Context, container string) error {
	_, err := execQuiet(ctx, a.Flag, "Unable to stop container.", "stop", container)
	return err
}

func (a *Adapter) Commit(ctx context.Context, container, imageRef string) error {
	_, err := execQuiet(ctx, a.Flag, "Unable to commit container.", "commit", container, imageRef)
	return err
}

func (a *Adapter) DeleteContainer(ctx context.Context, container string) error {
	_, err := execQuiet(ctx, a.Flag, "Unable to delete container.", "rm", "--force", container)
	return err
}

func (a *Adapter) Shell(ctx context.Context, image string) error {
	return execAttach(ctx, a.Flag, "The shell exited with a failure.",
		"run", "--rm", "--interactive", "--tty", "--init", image, "/bin/su")
}
