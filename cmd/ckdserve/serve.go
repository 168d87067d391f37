package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"ckdserve/internal/artifact"
	"ckdserve/internal/common/fsutil"
	"ckdserve/internal/config"
	"ckdserve/internal/httpapi"
	"ckdserve/internal/predict"
)

func newServeCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Run the HTTP prediction API",
		Example: "  ckdserve serve --artifact ./ckd_model.json --addr :8000 --watch",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.resolve(cmd)
			if err != nil {
				return err
			}
			log, err := newLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			a, err := newApp(cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ln, err := net.Listen("tcp", cfg.Addr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", cfg.Addr, err)
			}
			return a.serve(ctx, ln)
		},
	}
	f := cmd.Flags()
	f.String("addr", "", "HTTP listen address (default "+config.DefaultAddr+")")
	f.Bool("watch", false, "Reload the artifact eagerly on file events")
	f.Int("cache-size", 0, "Prediction memo entries (0 disables)")
	f.String("audit-log", "", "Audit log file, rotated by size (default stdout)")
	return cmd
}

// app is a fully wired server that has not started listening yet.
type app struct {
	cfg    config.Config
	log    zerolog.Logger
	store  *artifact.Store
	svc    *predict.Service
	srv    *http.Server
	closer io.Closer
}

func newApp(cfg config.Config, log zerolog.Logger) (*app, error) {
	path, err := fsutil.ResolvePath(cfg.ArtifactPath)
	if err != nil {
		return nil, err
	}
	labels, err := fitLabels(cfg)
	if err != nil {
		return nil, err
	}
	storeLog := log.With().Str("component", "artifact").Logger()
	store := artifact.NewStore(artifact.StoreConfig{Path: path, Labels: labels, Logger: &storeLog})
	if _, err := store.EnsureFresh(); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("artifact not loaded at startup; predictions fail until it is readable")
	}

	audit, closer := predict.NewAuditLogger(predict.AuditConfig{
		Path:       cfg.AuditLog,
		MaxSizeMB:  cfg.AuditMaxSizeMB,
		MaxBackups: cfg.AuditMaxBackups,
		MaxAgeDays: cfg.AuditMaxAgeDays,
		Compress:   cfg.AuditCompress,
	})
	svcLog := log.With().Str("component", "predict").Logger()
	svc, err := predict.New(predict.Config{Store: store, Logger: &svcLog, Audit: &audit, CacheSize: cfg.CacheSize})
	if err != nil {
		_ = closer.Close()
		return nil, err
	}

	httpapi.SetLogger(log.With().Str("component", "http").Logger())
	httpapi.SetDefaultLogLevel(cfg.RequestLogLevel())
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetCORSOptions(cfg.CORSEnabled(), cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(svc),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(cfg.WriteTimeoutSeconds) * time.Second,
	}
	return &app{cfg: cfg, log: log, store: store, svc: svc, srv: srv, closer: closer}, nil
}

func fitLabels(cfg config.Config) (*artifact.LabelDecoder, error) {
	if cfg.LabelsCSV == "" {
		return nil, nil
	}
	p, err := fsutil.ResolvePath(cfg.LabelsCSV)
	if err != nil {
		return nil, err
	}
	labels, err := artifact.FitLabelsCSVFile(p, cfg.LabelsColumn)
	if err != nil {
		return nil, fmt.Errorf("fit labels from %s: %w", p, err)
	}
	return labels, nil
}

// serve runs the HTTP server and, when enabled, the artifact watcher until ctx
// is done, then shuts the server down gracefully.
func (a *app) serve(ctx context.Context, ln net.Listener) error {
	httpapi.SetBaseContext(ctx)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Info().Str("addr", ln.Addr().String()).Str("artifact", a.store.Path()).Msg("ckdserve listening")
		if err := a.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	if a.cfg.WatchArtifact {
		g.Go(func() error {
			if err := a.store.Watch(gctx); err != nil {
				a.log.Warn().Err(err).Msg("artifact watch stopped; request-time checks still apply")
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), time.Duration(a.cfg.ShutdownTimeoutSeconds)*time.Second)
		defer cancel()
		if err := a.srv.Shutdown(sctx); err != nil {
			a.log.Error().Err(err).Msg("graceful shutdown error")
			return err
		}
		a.log.Info().Msg("ckdserve stopped")
		return nil
	})
	return g.Wait()
}

// Close releases the audit sink.
func (a *app) Close() error { return a.closer.Close() }
