package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/banksean/toastrun/cachedb"
	"github.com/banksean/toastrun/engine"
	"github.com/banksean/toastrun/failure"
	"github.com/banksean/toastrun/manifest"
	"github.com/banksean/toastrun/runtime"
	"github.com/banksean/toastrun/telemetry"
	"github.com/prometheus/client_golang/prometheus"
)

// RunCmd runs the named tasks and their dependencies, or the manifest's
// default task if none are named.
type RunCmd struct {
	Tasks      []string `arg:"" optional:"" help:"tasks to run; defaults to the manifest's default task"`
	OutputDir  string   `default:".toastrun/output" placeholder:"<dir>" help:"directory task output_paths are copied into"`
	CacheIndex string   `placeholder:"<db-path>" help:"path to the local fingerprint accelerator database"`
	Registry   string   `placeholder:"<registry-host>" help:"any non-empty value enables the registry fast path before the local runtime check; the value itself is not used"`
}

func (c *RunCmd) Run(cctx *Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m, err := loadManifest(cctx.ManifestPath)
	if err != nil {
		return err
	}

	roots := c.Tasks
	if len(roots) == 0 {
		def, ok := manifest.DefaultTask(m)
		if !ok {
			return failure.NewUser("No tasks were given, and the manifest has no default task.", "")
		}
		roots = []string{def}
	}

	plan, err := manifest.Plan(m, roots)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	e := &engine.Engine{
		Runtime:     runtime.NewAdapter(cctx.Flag),
		Diagnostics: cctx.Diagnostics,
		Flag:        cctx.Flag,
		Metrics:     telemetry.NewMetrics(reg),
		HostDir:     filepath.Dir(cctx.ManifestPath),
		OutputDir:   c.OutputDir,
	}

	if c.CacheIndex != "" {
		db, err := cachedb.Open(c.CacheIndex)
		if err != nil {
			slog.WarnContext(ctx, "run: cache index unavailable, continuing without it", "error", err)
		} else {
			defer db.Close()
			e.Cache = db
		}
	}

	if c.Registry != "" {
		e.Registry = runtime.NewRegistryIndex()
	}

	results, runErr := e.Run(ctx, m, plan)
	for _, r := range results {
		status := "miss"
		if r.Hit {
			status = "hit"
		}
		fmt.Printf("%s\t%s\t%s\n", r.Task, status, r.Fingerprint)
	}
	if runErr != nil {
		return runErr
	}

	return nil
}
