// Holoroom runs scripted text-adventure rooms from a YAML or Lua story.
// Usage: holoroom [--version] [--plain] [--script <file>] [--trace] [--name <name>]
//
//	[--validate] [--serve] [--addr <addr>] [--log-level <level>] <story>
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nathoo/holoroom/cli"
	"github.com/nathoo/holoroom/config"
	"github.com/nathoo/holoroom/engine/events"
	"github.com/nathoo/holoroom/holodeck"
	"github.com/nathoo/holoroom/loader"
	"github.com/nathoo/holoroom/observe"
	"github.com/nathoo/holoroom/server"
	"github.com/nathoo/holoroom/tui"
	"github.com/nathoo/holoroom/types"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const usage = "Usage: holoroom [--version] [--plain] [--script <file>] [--trace] [--name <name>] " +
	"[--validate] [--serve] [--addr <addr>] [--log-level <level>] <story>\n"

type options struct {
	plain, trace, validate, serve bool
	script, name                  string
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "holoroom: %v\n", err)
		return 1
	}
	opts := options{name: "Player"}

	for i := 0; i < len(args); i++ {
		// value returns the argument after a flag that needs one.
		value := func() (string, bool) {
			if i+1 >= len(args) {
				fmt.Fprintf(os.Stderr, "%s requires a value\n", args[i])
				return "", false
			}
			i++
			return args[i], true
		}
		var ok = true
		switch args[i] {
		case "--version":
			fmt.Printf("holoroom %s (commit %s, built %s)\n", version, commit, date)
			return 0
		case "--plain":
			opts.plain = true
		case "--trace":
			opts.trace = true
		case "--validate":
			opts.validate = true
		case "--serve":
			opts.serve = true
		case "--script":
			opts.script, ok = value()
		case "--name":
			opts.name, ok = value()
		case "--addr":
			cfg.Addr, ok = value()
		case "--log-level":
			cfg.LogLevel, ok = value()
		default:
			cfg.Story = args[i]
		}
		if !ok {
			return 1
		}
	}

	if cfg.Story == "" {
		fmt.Fprint(os.Stderr, usage)
		return 1
	}

	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "holoroom: %v\n", err)
		return 1
	}
	interactive := !opts.serve && !opts.validate
	slog.SetDefault(newLogger(level, interactive && opts.script == "" && !opts.plain && isTerminal()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	story, err := loader.Load(ctx, cfg.Story)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading story: %v\n", err)
		return 1
	}

	switch {
	case opts.validate:
		return validate(story)
	case opts.serve:
		return serve(ctx, cfg, story)
	}
	return play(story, opts)
}

func validate(story *types.Story) int {
	rep := loader.VerifyStory(story)
	if _, err := rep.WriteTo(os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if !rep.OK() {
		return 2
	}
	return 0
}

func serve(ctx context.Context, cfg config.Config, story *types.Story) int {
	shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
	if err != nil {
		slog.Error("failed to init metrics", "err", err)
		return 1
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			slog.Warn("metrics shutdown", "err", err)
		}
	}()
	metrics, err := observe.Default()
	if err != nil {
		slog.Error("failed to create metrics", "err", err)
		return 1
	}

	srv, err := server.New(func(sink events.Sink) (server.Deck, error) {
		return holodeck.New(story, cfg.Groups, holodeck.Options{
			Sink:     sink,
			Commands: metrics,
			Switches: metrics,
		})
	}, server.Options{
		RoomID:          cfg.RoomID,
		Addr:            cfg.Addr,
		ShutdownTimeout: cfg.ShutdownTimeout,
		Metrics:         metrics,
		MetricsHandler:  observe.Handler(),
	})
	if err != nil {
		slog.Error("failed to create server", "err", err)
		return 1
	}

	slog.Info("holoroom starting",
		"story", cfg.Story,
		"room_id", cfg.RoomID,
		"addr", cfg.Addr,
		"groups", cfg.Groups,
	)
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	return 0
}

func play(story *types.Story, opts options) int {
	rec := &events.Recorder{}
	deck, err := holodeck.New(story, nil, holodeck.Options{Sink: rec})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	title := "holoroom: " + story.ID
	if story.ID == "" {
		title = "holoroom"
	}

	// Script mode: open file, force plain, echo commands.
	if opts.script != "" {
		f, err := os.Open(opts.script)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening script: %v\n", err)
			return 1
		}
		defer f.Close()
		fmt.Printf("%s\n\n", title)
		c := cli.New(deck, rec, opts.name)
		c.In = f
		c.EchoInput = true
		c.Trace = opts.trace
		c.Run()
		return 0
	}

	// Use plain CLI if --plain flag or stdout is not a terminal.
	if opts.plain || !isTerminal() {
		fmt.Printf("%s\n\n", title)
		c := cli.New(deck, rec, opts.name)
		c.Trace = opts.trace
		c.Run()
		return 0
	}

	if err := tui.Run(deck, rec, opts.name, title); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// newLogger writes text logs to stderr. The full-screen TUI owns the
// terminal, so logs are discarded there.
func newLogger(level slog.Level, fullScreen bool) *slog.Logger {
	var w io.Writer = os.Stderr
	if fullScreen {
		w = io.Discard
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// isTerminal returns true if stdout is a terminal (not piped/redirected).
func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
