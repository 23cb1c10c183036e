// Package engine drives the execution plan: for each task, in order, it
// decides whether a cached image can be reused, and if not, runs the
// task's command inside a fresh container and commits the result. One
// image reference — the "current image" — threads through the whole run,
// starting at the manifest's base image and becoming each task's own
// fingerprint as that task completes.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/banksean/toastrun/cachedb"
	"github.com/banksean/toastrun/diagnostics"
	"github.com/banksean/toastrun/failure"
	"github.com/banksean/toastrun/fingerprint"
	"github.com/banksean/toastrun/interrupt"
	"github.com/banksean/toastrun/manifest"
	"github.com/banksean/toastrun/runtime"
	"github.com/banksean/toastrun/telemetry"
)

// CacheIndex is the accelerator the engine consults before falling
// through to the runtime's own image_exists check. Implemented by
// cachedb.DB; kept as an interface here so tests can substitute an
// in-memory fake instead of a real SQLite file.
type CacheIndex interface {
	Get(ctx context.Context, fingerprint string, maxAge time.Duration) (cachedb.Entry, bool, error)
	Put(ctx context.Context, fingerprint, imageRef string, verifiedAt time.Time) error
	Forget(ctx context.Context, fingerprint string) error
}

// RegistryProbe is the opt-in fast path that checks a remote registry
// before shelling out to the runtime adapter. Implemented by
// runtime.RegistryIndex.
type RegistryProbe interface {
	Exists(ctx context.Context, ref string) bool
}

// Engine executes a plan of tasks against a container runtime.
type Engine struct {
	Runtime     runtime.ContainerRuntime
	Diagnostics diagnostics.Sink
	Flag        *interrupt.Flag
	Metrics     *telemetry.Metrics

	// Cache, if non-nil, accelerates the cache-probe step.
	Cache CacheIndex
	// Registry, if non-nil, is consulted before Runtime.ImageExists on a
	// cache miss.
	Registry RegistryProbe

	// HostDir is the directory manifest-relative input_paths are resolved
	// against: the manifest's own directory.
	HostDir string
	// OutputDir is the directory task output_paths are copied into.
	OutputDir string
	// TarBuilder packs a task's declared input_paths into a tar stream
	// rooted so files land under the task's location. Exists as a field so
	// tests can substitute a deterministic fake.
	TarBuilder func(hostDir string, inputPaths []string, location string) (io.Reader, error)
}

// Result records the outcome of a single task's execution.
type Result struct {
	Task        string
	Fingerprint string
	Hit         bool
}

// Run executes every task in plan, in order, returning the result of each
// task that completed. On failure it returns the results gathered so far
// together with the error.
func (e *Engine) Run(ctx context.Context, m *manifest.Manifest, plan []string) ([]Result, error) {
	ctx, runSpan := telemetry.StartRun(ctx)
	defer runSpan.End()

	currentImage := m.Image
	var results []Result

	for _, taskName := range plan {
		task := m.Tasks[taskName]

		result, nextImage, err := e.runTask(ctx, taskName, task, currentImage)
		if err != nil {
			return results, err
		}
		results = append(results, result)
		currentImage = nextImage
	}

	return results, nil
}

func (e *Engine) runTask(ctx context.Context, name string, task manifest.Task, parentImage string) (Result, string, error) {
	start := time.Now()

	resolvedEnv, violations := manifest.ResolveFromHost(task)
	if len(violations) > 0 {
		return Result{}, "", failure.NewUser(
			fmt.Sprintf("Task %s is missing a value for the environment variable %s.", quoted(name), quoted(violations[0])),
			"",
		)
	}

	ctx, taskSpan := telemetry.StartTask(ctx, name, "")
	defer taskSpan.End()

	contentDigest, err := fingerprint.DigestDir(e.HostDir, task.InputPaths)
	if err != nil {
		return Result{}, "", failure.NewSystem(fmt.Sprintf("Unable to digest input files for task %s.", quoted(name)), err.Error())
	}

	fp, err := fingerprint.Compute(fingerprint.Input{
		ParentFingerprint: parentImage,
		Task:              task,
		ResolvedEnv:       resolvedEnv,
		ContentDigest:     contentDigest,
	})
	if err != nil {
		return Result{}, "", failure.NewSystem(fmt.Sprintf("Unable to compute the cache key for task %s.", quoted(name)), err.Error())
	}

	ctx, taskSpan := telemetry.StartTask(ctx, name, fp)
	defer taskSpan.End()

	e.diag(ctx, fmt.Sprintf("%s: fingerprint %s", name, fp))

	hit := false
	if task.Cache {
		var err error
		hit, err = e.probeCache(ctx, fp)
		if err != nil {
			return Result{}, "", err
		}
	}

	var containerID string
	if hit {
		e.diag(ctx, fmt.Sprintf("%s: cache hit", name))
		e.recordOutcome(name, telemetry.ResultHit, start)

		if len(task.OutputPaths) > 0 {
			containerID, err = e.Runtime.CreateContainer(ctx, fp, nil)
			if err != nil {
				return Result{}, "", err
			}
			defer e.cleanupContainer(ctx, containerID)

			if err := e.copyOutputs(ctx, name, containerID, task.OutputPaths); err != nil {
				return Result{}, "", err
			}
		}

		return Result{Task: name, Fingerprint: fp, Hit: true}, fp, nil
	}

	e.diag(ctx, fmt.Sprintf("%s: cache miss", name))

	if err := e.ensureLocal(ctx, parentImage); err != nil {
		return Result{}, "", err
	}

	containerID, err = e.Runtime.CreateContainer(ctx, parentImage, task.Ports)
	if err != nil {
		return Result{}, "", err
	}

	succeeded := false
	defer func() {
		if !succeeded {
			e.cleanupContainer(ctx, containerID)
		}
	}()

	if e.Flag.IsSet() {
		return Result{}, "", failure.NewInterrupted()
	}

	if len(task.InputPaths) > 0 {
		tar, err := e.buildTar(e.HostDir, task.InputPaths, task.Location)
		if err != nil {
			return Result{}, "", failure.NewSystem(fmt.Sprintf("Unable to pack input files for task %s.", quoted(name)), err.Error())
		}
		if err := e.Runtime.CopyInto(ctx, containerID, tar); err != nil {
			return Result{}, "", err
		}
	}

	commandStr := shellCommand(task)
	if err := e.Runtime.Start(ctx, containerID, commandStr); err != nil {
		return Result{}, "", err
	}

	if err := e.Runtime.Commit(ctx, containerID, fp); err != nil {
		return Result{}, "", err
	}
	succeeded = true

	if task.Cache && e.Cache != nil {
		if err := e.Cache.Put(ctx, fp, fp, time.Now()); err != nil {
			slog.WarnContext(ctx, "engine.runTask cache put failed", "task", name, "error", err)
		}
	}

	if len(task.OutputPaths) > 0 {
		if err := e.copyOutputs(ctx, name, containerID, task.OutputPaths); err != nil {
			e.cleanupContainer(ctx, containerID)
			return Result{}, "", err
		}
	}

	e.cleanupContainer(ctx, containerID)
	e.recordOutcome(name, telemetry.ResultMiss, start)

	return Result{Task: name, Fingerprint: fp, Hit: false}, fp, nil
}

// probeCache checks, in order, the local accelerator index, the optional
// registry fast path, and finally the authoritative runtime check. The
// accelerator is never trusted on its own: a hit is confirmed against the
// runtime before it is reported, and forgotten if the image it names is
// gone, since a stale or corrupt index entry must not make the engine
// believe a missing image exists.
func (e *Engine) probeCache(ctx context.Context, fp string) (bool, error) {
	if e.Cache != nil {
		if _, ok, err := e.Cache.Get(ctx, fp, 24*time.Hour); err == nil && ok {
			exists, err := e.Runtime.ImageExists(ctx, fp)
			if err != nil {
				return false, err
			}
			if exists {
				return true, nil
			}
			if err := e.Cache.Forget(ctx, fp); err != nil {
				slog.WarnContext(ctx, "engine.probeCache forgetting stale cache entry failed", "fingerprint", fp, "error", err)
			}
		}
	}

	if e.Registry != nil && e.Registry.Exists(ctx, fp) {
		if err := e.Runtime.Pull(ctx, fp); err != nil {
			if failure.IsInterrupted(err) {
				return false, err
			}
		} else {
			return true, nil
		}
	}

	exists, err := e.Runtime.ImageExists(ctx, fp)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// ensureLocal pulls ref if the runtime doesn't already have it locally.
func (e *Engine) ensureLocal(ctx context.Context, ref string) error {
	exists, err := e.Runtime.ImageExists(ctx, ref)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return e.Runtime.Pull(ctx, ref)
}

func (e *Engine) copyOutputs(ctx context.Context, taskName, containerID string, outputPaths []string) error {
	dest := filepath.Join(e.OutputDir, taskName)
	return e.Runtime.CopyFrom(ctx, containerID, outputPaths, "/", dest)
}

func (e *Engine) cleanupContainer(ctx context.Context, containerID string) {
	if containerID == "" {
		return
	}
	if err := e.Runtime.Stop(ctx, containerID); err != nil && !failure.IsInterrupted(err) {
		slog.WarnContext(ctx, "engine cleanup: stop failed", "container", containerID, "error", err)
	}
	if err := e.Runtime.DeleteContainer(ctx, containerID); err != nil && !failure.IsInterrupted(err) {
		slog.WarnContext(ctx, "engine cleanup: delete failed", "container", containerID, "error", err)
	}
}

func (e *Engine) buildTar(hostDir string, inputPaths []string, location string) (io.Reader, error) {
	if e.TarBuilder != nil {
		return e.TarBuilder(hostDir, inputPaths, location)
	}
	return buildInputTar(hostDir, inputPaths, location)
}

func (e *Engine) diag(ctx context.Context, msg string) {
	if e.Diagnostics != nil {
		e.Diagnostics.Message(ctx, msg)
	}
}

func (e *Engine) recordOutcome(taskName, result string, start time.Time) {
	if e.Metrics == nil {
		return
	}
	e.Metrics.TasksTotal.WithLabelValues(result).Inc()
	e.Metrics.TaskDuration.WithLabelValues(taskName).Observe(time.Since(start).Seconds())
}

// shellCommand builds the shell script fed to the container's stdin: a cd
// to the task's location, a privilege switch to its user, then the
// declared command.
func shellCommand(task manifest.Task) string {
	command := ""
	if task.Command != nil {
		command = *task.Command
	}
	return fmt.Sprintf("cd %s && su %s -c %s\n", shellQuote(task.Location), shellQuote(task.User), shellQuote(command))
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func quoted(s string) string { return "`" + s + "`" }
