package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/km-arc/go-dicontainer/framework/config"
	"github.com/km-arc/go-dicontainer/framework/container"
	gohttp "github.com/km-arc/go-dicontainer/framework/http"
	"github.com/km-arc/go-dicontainer/framework/logging"
	"github.com/km-arc/go-dicontainer/framework/providers"
	"github.com/km-arc/go-dicontainer/framework/routing"
	"github.com/km-arc/go-dicontainer/framework/tracing"
)

const shutdownTimeout = 10 * time.Second

// Application is the top-level application container.
// It embeds the Container and ProviderRegistry so user code can call
// app.Bind(), app.Singleton(), app.Register() directly.
type Application struct {
	*container.Container
	Providers *container.ProviderRegistry

	cfg *config.Config
	log *zap.Logger
}

// New builds the ambient stack from cfg (logger, metrics registry, tracer
// provider), creates the container with it and registers the framework
// providers.
//
//	application, err := app.New(config.Load())
func New(cfg *config.Config) (*Application, error) {
	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	log = log.With(zap.String("app", cfg.App.Name), zap.String("env", cfg.App.Env))
	return NewWithLogger(cfg, log)
}

// NewWithLogger is New with a caller-supplied logger.
func NewWithLogger(cfg *config.Config, log *zap.Logger) (*Application, error) {
	tp, err := tracing.NewProvider(cfg.Tracing, cfg.App.Name)
	if err != nil {
		return nil, fmt.Errorf("app: tracing: %w", err)
	}

	reg := prometheus.NewRegistry()
	opts := []container.Option{
		container.WithLogger(log),
		container.WithTracerProvider(tp.TracerProvider()),
	}
	if cfg.Metrics.Enabled {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m, err := container.NewMetrics(reg)
		if err != nil {
			return nil, fmt.Errorf("app: metrics: %w", err)
		}
		opts = append(opts, container.WithMetrics(m))
	}

	c := container.New(opts...)
	a := &Application{
		Container: c,
		Providers: container.NewProviderRegistry(c).ValidateOnBoot(cfg.Container.Validate),
		cfg:       cfg,
		log:       log,
	}

	err = multierr.Combine(
		a.Register(&providers.ConfigServiceProvider{Config: cfg}),
		a.Register(&providers.LoggingServiceProvider{Logger: log}),
		a.Register(&providers.TelemetryServiceProvider{Registry: reg, Tracing: tp}),
		a.Register(&providers.RoutingServiceProvider{}),
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Register adds a ServiceProvider to the application.
func (a *Application) Register(provider container.ServiceProvider) error {
	return a.Providers.Register(provider)
}

// Boot freezes the container, validates the graph when configured and runs
// every provider's Boot.
func (a *Application) Boot() error {
	if a.Providers.Booted() {
		return nil
	}
	if err := a.Providers.Boot(); err != nil {
		return err
	}
	a.log.Info("application booted", zap.Int("bindings", len(a.Bindings())))
	return nil
}

// Config returns the configuration the application was built with.
func (a *Application) Config() *config.Config { return a.cfg }

// Logger returns the application logger.
func (a *Application) Logger() *zap.Logger { return a.log }

// Router resolves the router. The application must be booted.
func (a *Application) Router() (*routing.Router, error) {
	return container.Make[*routing.Router](a.Container, "")
}

// Run boots the application (if needed) and serves HTTP on APP_PORT until ctx
// is cancelled, then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", ":"+a.cfg.App.Port)
	if err != nil {
		return fmt.Errorf("app: listen: %w", err)
	}
	return a.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (a *Application) Serve(ctx context.Context, ln net.Listener) error {
	if err := a.Boot(); err != nil {
		_ = ln.Close()
		return err
	}
	router, err := a.Router()
	if err != nil {
		_ = ln.Close()
		return err
	}

	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Info("http server listening", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	return multierr.Append(err, a.Shutdown(context.Background()))
}

// Shutdown disposes singletons (which flushes tracing) and syncs the logger.
func (a *Application) Shutdown(_ context.Context) error {
	err := a.Container.Shutdown()
	_ = a.log.Sync()
	return err
}

// Environment returns APP_ENV value.
func (a *Application) Environment() string { return a.cfg.App.Env }
func (a *Application) IsLocal() bool       { return a.Environment() == "local" }
func (a *Application) IsProduction() bool  { return a.cfg.IsProduction() }
func (a *Application) IsTesting() bool     { return a.Environment() == "testing" }
func (a *Application) IsDebug() bool       { return a.cfg.App.Debug }
func (a *Application) Version() string     { return "0.1.0" }

// Controller is an embeddable base for HTTP controllers.
type Controller struct{}

func (c *Controller) Request(r *http.Request) *gohttp.Request {
	return gohttp.NewRequest(r)
}
func (c *Controller) Response(w http.ResponseWriter) *gohttp.Response {
	return gohttp.NewResponse(w)
}
