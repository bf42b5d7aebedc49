package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/stevemurr/mockdb/config"
	"github.com/stevemurr/mockdb/handler"
	"github.com/stevemurr/mockdb/medium"
	"github.com/stevemurr/mockdb/recordstore"
	"github.com/stevemurr/mockdb/seed"
)

// corsMiddleware wraps an http.Handler with CORS headers.
func corsMiddleware(next http.Handler, allowedOrigins []string) http.Handler {
	// Fast path: wildcard allows everything.
	allowAll := len(allowedOrigins) == 1 && allowedOrigins[0] == "*"

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowAll {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		} else if origin != "" {
			for _, o := range allowedOrigins {
				if strings.TrimSpace(o) == origin {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Vary", "Origin")
					break
				}
			}
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

func storeOptions(cfg config.Config) []recordstore.Option {
	return []recordstore.Option{
		recordstore.WithTimeout(cfg.Latency),
		recordstore.WithCapacity(cfg.CapacityBytes),
	}
}

type app struct {
	cfg    config.Config
	log    *zap.Logger
	medium medium.Medium
}

func (a *app) open() error {
	m, err := medium.New(a.cfg.Backend, a.cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open medium (backend=%s): %w", a.cfg.Backend, err)
	}
	a.medium = m
	return nil
}

// close releases the medium and flushes the logger. It is safe to call on
// a partially opened app.
func (a *app) close() {
	log := a.log
	if log == nil {
		log = zap.NewNop()
	}
	if c, ok := a.medium.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			log.Warn("close medium", zap.Error(err))
		}
	}
	_ = log.Sync()
}

func (a *app) seed(ctx context.Context, path string) error {
	f, err := seed.LoadFile(path)
	if err != nil {
		return fmt.Errorf("load seed: %w", err)
	}
	// Seeding is local setup; skip the simulated latency.
	opts := append(storeOptions(a.cfg), recordstore.WithTimeout(0))
	counts, err := seed.Apply(ctx, a.medium, f, a.log, opts...)
	if err != nil {
		return err
	}
	a.log.Info("seed applied", zap.String("file", path), zap.Any("records", counts))
	return nil
}

func (a *app) serve(ctx context.Context) error {
	if a.cfg.SeedFile != "" {
		if err := a.seed(ctx, a.cfg.SeedFile); err != nil {
			return err
		}
	}

	h := handler.New(a.medium, a.log, storeOptions(a.cfg)...)
	srv := &http.Server{
		Addr:              a.cfg.Addr(),
		Handler:           corsMiddleware(h, a.cfg.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	a.log.Info("mockdb starting",
		zap.String("addr", srv.Addr),
		zap.String("medium", a.cfg.Backend),
		zap.String("data", a.cfg.DataDir),
		zap.Duration("latency", a.cfg.Latency))

	select {
	case err := <-errc:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	a.log.Info("mockdb stopped")
	return nil
}

func (a *app) dump(collection string) error {
	items, err := recordstore.New[recordstore.Document](a.medium, collection, recordstore.WithTimeout(0)).List()
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}

func rootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "mockdb",
		Short:         "Mock record database backend for front-end development",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("backend") {
				cfg.Backend, _ = flags.GetString("backend")
			}
			if flags.Changed("data-dir") {
				cfg.DataDir, _ = flags.GetString("data-dir")
			}
			if flags.Changed("log-level") {
				cfg.LogLevel, _ = flags.GetString("log-level")
			}
			if flags.Changed("port") {
				cfg.Port, _ = flags.GetString("port")
			}
			if flags.Changed("latency") {
				cfg.Latency, _ = flags.GetDuration("latency")
			}
			a.cfg = cfg

			log, err := newLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			a.log = log
			return a.open()
		},
	}
	root.PersistentFlags().String("backend", "", "medium backend: file, sqlite, sqlite-pure, memory (env MEDIUM_BACKEND)")
	root.PersistentFlags().String("data-dir", "", "data directory (env DATA_DIR)")
	root.PersistentFlags().String("log-level", "", "log level (env LOG_LEVEL)")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	serve.Flags().String("port", "", "listen port (env PORT)")
	serve.Flags().Duration("latency", 0, "artificial latency per operation (env LATENCY)")

	seedCmd := &cobra.Command{
		Use:   "seed <file.yaml>",
		Short: "Load collections from a YAML seed file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.seed(cmd.Context(), args[0])
		},
	}

	dump := &cobra.Command{
		Use:   "dump <collection>",
		Short: "Print a collection as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return a.dump(args[0])
		},
	}

	root.AddCommand(serve, seedCmd, dump)
	return root
}

// execute runs the CLI with args and always releases what the command
// opened, whether or not it succeeded.
func execute(ctx context.Context, a *app, args []string) error {
	defer a.close()
	cmd := rootCmd(a)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

func main() {
	if err := execute(context.Background(), &app{}, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "mockdb:", err)
		os.Exit(1)
	}
}
