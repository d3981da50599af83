package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/formcheck/formcheck/analyzer/internal/api"
	"github.com/formcheck/formcheck/analyzer/internal/config"
	"github.com/formcheck/formcheck/analyzer/internal/exercise"
	"github.com/formcheck/formcheck/analyzer/internal/history"
	"github.com/formcheck/formcheck/analyzer/internal/runner"
	"github.com/formcheck/formcheck/analyzer/internal/source"
	"github.com/formcheck/formcheck/analyzer/internal/store"
	"github.com/formcheck/formcheck/analyzer/internal/ws"
	"github.com/formcheck/formcheck/pkg/types"
)

func main() {
	configPath := flag.String("config", "", "path to config file; empty uses built-in defaults")
	input := flag.String("input", "-", "landmark JSON-lines file, or - for stdin")
	exerciseName := flag.String("exercise", "", "exercise to analyse; overrides session.exercise")
	historyPath := flag.String("history", "", "SQLite history file; overrides history.path")
	httpAddr := flag.String("http-addr", "", "API listen address; overrides server.http_addr")
	logLevel := flag.String("log-level", "info", "debug, info, warn or error")
	flag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		level = slog.LevelInfo
	}
	// Frames may arrive on stdin, so logs go to stderr.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("formcheck starting", "config", *configPath, "input", *input)

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			slog.Error("failed to load config", "err", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *exerciseName != "" {
		cfg.Session.Exercise = *exerciseName
	}
	if *historyPath != "" {
		cfg.History.Path = *historyPath
	}
	if *httpAddr != "" {
		cfg.Server.HTTPAddr = *httpAddr
	}

	reg := exercise.Builtin()
	p, err := runner.Build(cfg, reg)
	if err != nil {
		slog.Error("invalid exercise configuration", "err", err, "available", reg.Names())
		os.Exit(1)
	}
	slog.Info("config loaded",
		"exercise", p.Exercise().Name(),
		"alpha", cfg.Session.Alpha,
		"min_visibility", cfg.Session.MinVisibility,
		"frame_skip", cfg.Session.FrameSkip,
		"http_addr", cfg.Server.HTTPAddr,
		"history", cfg.History.Path,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Latest-result store with background TTL eviction.
	st := store.New(cfg.Server.ResultTTL)
	go st.Run(ctx)

	opts := runner.Options{FrameSkip: cfg.Session.FrameSkip, Store: st}
	var hist api.History
	if cfg.History.Path != "" {
		db, err := history.Open(cfg.History.Path)
		if err != nil {
			slog.Error("failed to open history", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		opts.History = db
		hist = db
	}
	r := runner.New(p, opts)

	if *configPath != "" {
		go func() {
			if err := config.Watch(ctx, *configPath, func(updated *config.Config) {
				if err := r.Reload(updated, reg); err != nil {
					slog.Error("config reload rejected", "err", err)
				}
			}); err != nil {
				slog.Error("config watcher stopped", "err", err)
			}
		}()
	}

	var httpSrv *http.Server
	if cfg.Server.HTTPAddr != "" {
		// WebSocket hub pushes live results to renderers.
		hub := ws.New(st, cfg.Server.BroadcastInterval)
		go hub.Run(ctx)

		apiHandler := api.New(st, r, reg, hist)
		mux := http.NewServeMux()
		mux.Handle("/api/", apiHandler)
		mux.Handle("/metrics", apiHandler)
		mux.Handle("/ws/stream", hub)

		httpSrv = &http.Server{
			Addr:              cfg.Server.HTTPAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			slog.Info("HTTP server listening", "addr", cfg.Server.HTTPAddr)
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("HTTP server stopped", "err", err)
			}
		}()
	}

	in, err := openInput(*input)
	if err != nil {
		slog.Error("failed to open input", "err", err)
		os.Exit(1)
	}
	defer in.Close()

	dec := source.NewDecoder(in)
	frames := make(chan types.Frame, 64)
	srcErr := make(chan error, 1)
	go func() { srcErr <- dec.Run(ctx, frames) }()

	if err := r.Run(ctx, frames); err != nil {
		slog.Error("runner stopped", "err", err)
	}
	select {
	case err := <-srcErr:
		if err != nil {
			slog.Error("input failed", "err", err)
		}
		if dec.Skipped > 0 {
			slog.Warn("input lines skipped", "count", dec.Skipped)
		}
	default:
		// Cancelled while the source is blocked on a read.
	}

	sum, err := r.Finish(context.Background())
	if err != nil {
		slog.Error("failed to save session history", "err", err)
	}
	slog.Info("session summary", "summary", sum)

	slog.Info("formcheck shutting down")
	if httpSrv != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		httpSrv.Shutdown(shutdownCtx) //nolint:errcheck
	}
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}
