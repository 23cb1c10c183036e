// Package runtime is the thin contract the execution engine uses to speak
// to the container runtime CLI. Every operation is a single subprocess
// invocation; the four unexported exec modes here mirror the runtime's
// actual I/O shape and share one rule for mapping a failed child process
// to either an Interrupted or a System failure.
package runtime

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/creack/pty"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/banksean/toastrun/failure"
	"github.com/banksean/toastrun/interrupt"
)

const binary = "container"

func command(ctx context.Context, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, binary, args...)
	slog.DebugContext(ctx, "runtime.command", "cmd", strings.Join(cmd.Args, " "))
	return cmd
}

// outcome maps a terminated child process to a Failure, using the flag to
// tell a real command failure apart from a signal the child (but not yet
// the parent) observed.
func outcome(flag *interrupt.Flag, wasInterrupted bool, exitCode int, exitedBySignal bool, stderr, errMsg string) error {
	if exitedBySignal || (!wasInterrupted && flag.IsSet()) {
		flag.Trip()
		return failure.NewInterrupted()
	}
	return failure.NewSystem(errMsg, strings.TrimSpace(stderr))
}

// execQuiet runs args to completion with stdin closed, capturing stdout
// and stderr. Used for the stateless lifecycle verbs (image exists, pull,
// push, delete, stop, commit, delete container).
func execQuiet(ctx context.Context, flag *interrupt.Flag, errMsg string, args ...string) (string, error) {
	wasInterrupted := flag.IsSet()

	cmd := command(ctx, args...)
	cmd.Stdin = nil

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		exitErr, ok := err.(*exec.ExitError)
		if !ok {
			return "", failure.NewSystem(fmt.Sprintf("%s Perhaps the container runtime isn't installed.", errMsg), err.Error())
		}
		return "", outcome(flag, wasInterrupted, exitErr.ExitCode(), !exitErr.Exited(), stderr.String(), errMsg)
	}

	return stdout.String(), nil
}

// execQuietStdin runs args, piping a caller-supplied stream to the child's
// stdin while draining stdout and stderr concurrently (via errgroup, so a
// tar stream larger than the pipe buffer can't deadlock against the
// child's own output), and returns the captured stdout.
func execQuietStdin(ctx context.Context, flag *interrupt.Flag, errMsg string, stdin io.Reader, args ...string) (string, error) {
	wasInterrupted := flag.IsSet()

	cmd := command(ctx, args...)

	stdinPipe, err := cmd.StdinPipe()
	if err != nil {
		return "", failure.NewSystem(errMsg, err.Error())
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return "", failure.NewSystem(errMsg, err.Error())
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return "", failure.NewSystem(errMsg, err.Error())
	}

	if err := cmd.Start(); err != nil {
		return "", failure.NewSystem(fmt.Sprintf("%s Perhaps the container runtime isn't installed.", errMsg), err.Error())
	}

	var stdout, stderr bytes.Buffer
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := io.Copy(stdinPipe, stdin)
		stdinPipe.Close()
		return err
	})
	g.Go(func() error {
		_, err := io.Copy(&stdout, stdoutPipe)
		return err
	})
	g.Go(func() error {
		_, err := io.Copy(&stderr, stderrPipe)
		return err
	})

	copyErr := g.Wait()
	waitErr := cmd.Wait()

	if waitErr != nil {
		exitErr, ok := waitErr.(*exec.ExitError)
		if !ok {
			return "", failure.NewSystem(fmt.Sprintf("%s Perhaps the container runtime isn't installed.", errMsg), waitErr.Error())
		}
		return "", outcome(flag, wasInterrupted, exitErr.ExitCode(), !exitErr.Exited(), stderr.String(), errMsg)
	}
	if copyErr != nil {
		return "", failure.NewSystem(errMsg, copyErr.Error())
	}

	return stdout.String(), nil
}

// execLoudStdin runs args with stdin piped (a closure supplies the bytes)
// and stdout/stderr passed through to the current process. Used to start
// a container and feed it its command.
func execLoudStdin(ctx context.Context, flag *interrupt.Flag, errMsg string, write func(io.Writer) error, args ...string) error {
	wasInterrupted := flag.IsSet()

	cmd := command(ctx, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	stdinPipe, err := cmd.StdinPipe()
	if err != nil {
		return failure.NewSystem(errMsg, err.Error())
	}

	if err := cmd.Start(); err != nil {
		return failure.NewSystem(fmt.Sprintf("%s Perhaps the container runtime isn't installed.", errMsg), err.Error())
	}

	writeErr := write(stdinPipe)
	stdinPipe.Close()

	waitErr := cmd.Wait()
	if waitErr != nil {
		exitErr, ok := waitErr.(*exec.ExitError)
		if !ok {
			return failure.NewSystem(fmt.Sprintf("%s Perhaps the container runtime isn't installed.", errMsg), waitErr.Error())
		}
		return outcome(flag, wasInterrupted, exitErr.ExitCode(), !exitErr.Exited(), "", errMsg)
	}
	if writeErr != nil {
		return failure.NewSystem(fmt.Sprintf("Unable to send command to the container. %s", errMsg), writeErr.Error())
	}

	return nil
}

// execAttach runs args with stdin, stdout, and stderr all attached to the
// current process. Used for the interactive shell.
//
// When os.Stdin isn't a real terminal (piped input, a non-interactive test
// harness), the child is run behind a pseudo-terminal instead: some
// container-runtime CLIs refuse to allocate their own --tty without one on
// the host side.
func execAttach(ctx context.Context, flag *interrupt.Flag, errMsg string, args ...string) error {
	wasInterrupted := flag.IsSet()

	cmd := command(ctx, args...)

	var err error
	if term.IsTerminal(int(os.Stdin.Fd())) {
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		err = cmd.Run()
	} else {
		err = runAttachedWithPty(cmd)
	}
	if err == nil {
		return nil
	}

	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		return failure.NewSystem(fmt.Sprintf("%s Perhaps the container runtime isn't installed.", errMsg), err.Error())
	}
	return outcome(flag, wasInterrupted, exitErr.ExitCode(), !exitErr.Exited(), "", errMsg)
}

func runAttachedWithPty(cmd *exec.Cmd) error {
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return err
	}
	defer ptmx.Close()

	go io.Copy(ptmx, os.Stdin)
	go io.Copy(os.Stdout, ptmx)

	return cmd.Wait()
}
