package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pable/go-pitch-stream/internal/config"
	"github.com/pable/go-pitch-stream/internal/metrics"
	"github.com/pable/go-pitch-stream/internal/pipeline"
	"github.com/pable/go-pitch-stream/internal/sink"
	"github.com/pable/go-pitch-stream/internal/state"
	"github.com/pable/go-pitch-stream/internal/worker"
)

var (
	runInput  string
	runListen string
	runTick   time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the engine on a live element stream",
	Long: "Consume newline-delimited JSON elements from stdin (or --input),\n" +
		"derive events and statistics, persist them and serve the live\n" +
		"websocket feed and Prometheus metrics over HTTP.",
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runInput, "input", "-", "element stream to consume, '-' for stdin")
	runCmd.Flags().StringVar(&runListen, "listen", ":8080", "HTTP listen address for /metrics and /feed")
	runCmd.Flags().DurationVar(&runTick, "tick", time.Second, "window generation period")
}

func runRun(cmd *cobra.Command, args []string) error {
	props, err := config.Load(configPaths...)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return fmt.Errorf("create db dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(mirrorPath), 0755); err != nil {
		return fmt.Errorf("create mirror dir: %w", err)
	}

	mirror, err := state.OpenMirror(mirrorPath)
	if err != nil {
		return fmt.Errorf("open mirror: %w", err)
	}
	defer mirror.Close()
	backend := state.NewMirrored(state.NewMemory(), mirror, func(err error) {
		logger.Error("state mirror write failed", "err", err)
	})

	pl, err := pipeline.Build(props, backend)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	db, err := sink.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	feed := sink.NewFeed(logger)
	defer feed.Close()

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/feed", feed)
	srv := &http.Server{Addr: runListen, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "err", err)
		}
	}()
	defer func() {
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutCtx)
	}()

	in, closeIn, err := openInput(runInput)
	if err != nil {
		return err
	}
	defer closeIn()

	src := worker.NewFileSource(in, logger)
	go func() {
		if err := src.Run(); err != nil {
			logger.Error("source failed", "err", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Derived elements go over the bus; a single drain goroutine feeds the
	// persistent sinks so the per-match graphs never block on sink I/O.
	bus := worker.NewBus()
	out := bus.Subscribe("sinks", 256)
	sinks := worker.MultiSink(db, feed)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for e := range out.Elements() {
			if err := sinks.Emit(e); err != nil {
				logger.Error("sink failed", "stream", e.StreamName, "err", err)
			}
		}
	}()

	eng := worker.New("engine", pl.Graph, pl.Window, worker.BusSink(bus), logger, worker.Options{
		Tick:    runTick,
		Restore: backend.RestoreMatch,
	})
	logger.Info("engine started", "input", runInput, "listen", runListen)
	runErr := eng.Run(ctx, src)
	bus.Close()
	<-drained
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	logger.Info("engine stopped")
	return nil
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open input: %w", err)
	}
	return f, func() { f.Close() }, nil
}
