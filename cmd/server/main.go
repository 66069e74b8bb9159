package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"adventure-backend/internal/config"
	"adventure-backend/internal/handlers"
	"adventure-backend/internal/health"
	h "adventure-backend/internal/http"
	"adventure-backend/internal/middleware"
	"adventure-backend/internal/monitoring"
	"adventure-backend/internal/reload"
	"adventure-backend/internal/render"
	"adventure-backend/static"
	"adventure-backend/templates"

	"github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"
)

// ErrBindFailure is returned when a listener cannot be opened
var ErrBindFailure = errors.New("bind failure")

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// maxprocs.Set only fails on an invalid GOMAXPROCS, in which case the runtime default stays
	if cfg.Debug {
		_, _ = maxprocs.Set(maxprocs.Logger(log.Printf))
	} else {
		_, _ = maxprocs.Set(maxprocs.Logger(func(string, ...interface{}) {}))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Printf("Server failed: %v", err)
		stop()
		os.Exit(1)
	}
}

// run binds the public listener and serves until ctx is cancelled
func run(ctx context.Context, cfg *config.Config) error {
	ln, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBindFailure, cfg.Addr(), err)
	}
	return serve(ctx, cfg, ln)
}

func serve(ctx context.Context, cfg *config.Config, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	renderer := render.New(templateSource(cfg), render.Options{Reload: cfg.Debug})
	if err := renderer.Exists(cfg.Templates.Index); err != nil {
		// Not fatal: the page answers 500 until the template appears
		log.Printf("Warning: %v", err)
	}

	metrics := monitoring.NewMetrics()
	pages := handlers.NewPageHandler(renderer, cfg.Templates.Index, cfg.Debug, metrics)
	opts := h.RouterOptions{
		StaticFS: staticSource(cfg),
		Debug:    cfg.Debug,
	}

	if cfg.Debug {
		watcher, err := newWatcher(cfg, renderer)
		if err != nil {
			log.Printf("Live reload disabled: %v", err)
		} else {
			go watcher.Run(ctx)
			opts.Reload = handlers.NewReloadHandler(watcher)
			log.Printf("Live reload enabled at %s", handlers.ReloadPath)
		}
	}

	var limiter *middleware.RateLimiter
	if n := cfg.RateLimit.RequestsPerMinute; n > 0 {
		limiter = middleware.NewRateLimiter(n, time.Minute)
		limiter.TrustProxyHeaders(cfg.RateLimit.TrustProxyHeaders)
		limiter.StartCleanup(ctx)
	}

	router := h.NewRouter(pages, opts)
	server := h.NewServer(cfg.Addr(), h.NewHandler(router, cfg, metrics, limiter), cfg)

	var admin *http.Server
	if cfg.Monitoring.Addr != "" {
		adminLn, err := net.Listen("tcp", cfg.Monitoring.Addr)
		if err != nil {
			ln.Close()
			return fmt.Errorf("%w: %s: %v", ErrBindFailure, cfg.Monitoring.Addr, err)
		}

		monitoring.NewMonitoringService(metrics, cfg.Monitoring.CollectInterval).StartCollection(ctx)
		checker := health.NewHealthChecker(renderer, cfg.Templates.Index, cfg.Mode())
		admin = h.NewServer(cfg.Monitoring.Addr, h.NewAdminRouter(checker, metrics), cfg)

		go func() {
			if err := admin.Serve(adminLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("Monitoring server failed: %v", err)
			}
		}()
		log.Printf("Monitoring on http://%s (/health, /metrics)", adminLn.Addr())
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(ln)
	}()
	log.Printf("Server running on http://%s (mode: %s)", ln.Addr(), cfg.Mode())

	select {
	case err := <-errCh:
		if admin != nil {
			admin.Close()
		}
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")
	// Stop the watcher first so live reload sockets close before Shutdown waits
	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	if admin != nil {
		if err := admin.Shutdown(shutdownCtx); err != nil {
			log.Printf("Monitoring server shutdown: %v", err)
		}
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Println("Server exiting")
	return nil
}

func templateSource(cfg *config.Config) fs.FS {
	if cfg.Templates.Embedded {
		return templates.FS
	}
	return os.DirFS(cfg.Templates.Dir)
}

func staticSource(cfg *config.Config) fs.FS {
	if cfg.Static.Embedded {
		return static.FS
	}
	if _, err := os.Stat(cfg.Static.Dir); err != nil {
		log.Printf("Warning: static directory %s: %v", cfg.Static.Dir, err)
	}
	return os.DirFS(cfg.Static.Dir)
}

// newWatcher watches the on-disk template and static directories; embedded
// sources never change and are skipped.
func newWatcher(cfg *config.Config, renderer *render.Renderer) (*reload.Watcher, error) {
	var dirs []string
	if !cfg.Static.Embedded {
		if info, err := os.Stat(cfg.Static.Dir); err == nil && info.IsDir() {
			dirs = append(dirs, cfg.Static.Dir)
		}
	}

	templateDir := cfg.Templates.Dir
	if cfg.Templates.Embedded {
		templateDir = ""
	}
	if templateDir == "" && len(dirs) == 0 {
		return nil, errors.New("nothing on disk to watch")
	}
	return reload.NewWatcher(templateDir, renderer, dirs...)
}
