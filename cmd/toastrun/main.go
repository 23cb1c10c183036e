// command toastrun validates and runs declarative task manifests inside
// containers.
//
// On invocation, toastrun will:
//   - parse and validate the manifest named by --file (./toastrun.yml by
//     default)
//   - compute the set of tasks to run, in dependency order
//   - for each task, reuse a cached image if one exists for its fingerprint,
//     otherwise run its command in a fresh container and commit the result
//
// On interruption (SIGINT/SIGTERM), toastrun stops the current container
// and exits with code 130 once the in-flight subprocess returns.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"
	kongyaml "github.com/alecthomas/kong-yaml"
	kongcompletion "github.com/jotaen/kong-completion"
	"github.com/posener/complete"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/banksean/toastrun/diagnostics"
	"github.com/banksean/toastrun/interrupt"
)

// Context carries flags and shared state into every subcommand's Run
// method.
type Context struct {
	ManifestPath string
	LogLevel     string
	Quiet        bool
	Flag         *interrupt.Flag
	Diagnostics  diagnostics.Sink
}

// CLI is the full command tree.
type CLI struct {
	File     string `short:"f" default:"toastrun.yml" placeholder:"<manifest-path>" help:"path to the task manifest"`
	LogFile  string `placeholder:"<log-file-path>" help:"location of the log file (leave empty to log to stderr)"`
	LogLevel string `default:"info" placeholder:"<debug|info|warn|error>" help:"the logging level"`
	Quiet    bool   `help:"suppress progress messages"`

	Run      RunCmd      `cmd:"" help:"run one or more tasks, and their dependencies"`
	Validate ValidateCmd `cmd:"" help:"validate a manifest without running anything"`
	Shell    ShellCmd    `cmd:"" help:"start an interactive shell in a fresh container from an image"`
	Version  VersionCmd  `cmd:"" help:"print version information about this command"`

	Completion kongcompletion.Cmd `cmd:"" help:"generate shell completion scripts"`
}

func (c *CLI) initSlog() {
	var level slog.Level
	switch c.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	if c.LogFile == "" {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		if err := os.MkdirAll(filepath.Dir(c.LogFile), 0o755); err != nil {
			panic(err)
		}
		writer := &lumberjack.Logger{
			Filename:   c.LogFile,
			MaxSize:    50,
			MaxBackups: 3,
			MaxAge:     28,
		}
		handler = slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}

func main() {
	var cli CLI

	parser := kong.Must(&cli,
		kong.Name("toastrun"),
		kong.Description("Run declarative, container-based task manifests."),
		kong.Configuration(kongyaml.Loader, ".toastrun.yaml", "~/.toastrun.yaml"),
		kong.UsageOnError(),
	)

	kongcompletion.Register(parser, kongcompletion.WithPredictor("path", complete.PredictFiles("*")))

	kctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	cli.initSlog()

	flag := interrupt.New()
	sink := diagnostics.Sink(diagnostics.NewTerminalSink(os.Stderr))
	if cli.Quiet {
		sink = diagnostics.NewNullSink()
	}

	stop := installSignalHandler(flag)
	defer stop()

	runErr := kctx.Run(&Context{
		ManifestPath: cli.File,
		LogLevel:     cli.LogLevel,
		Quiet:        cli.Quiet,
		Flag:         flag,
		Diagnostics:  sink,
	})
	if runErr != nil {
		fmt.Fprintln(os.Stderr, runErr.Error())
		os.Exit(exitCode(runErr))
	}
}

// installSignalHandler trips flag on SIGINT/SIGTERM and returns a function
// that releases the signal notification.
func installSignalHandler(flag *interrupt.Flag) func() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-ch:
			flag.Trip()
		case <-ctx.Done():
		}
	}()

	return func() {
		cancel()
		signal.Stop(ch)
	}
}
