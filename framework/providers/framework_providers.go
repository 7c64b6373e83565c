package providers

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/km-arc/go-dicontainer/framework/config"
	"github.com/km-arc/go-dicontainer/framework/container"
	"github.com/km-arc/go-dicontainer/framework/routing"
	"github.com/km-arc/go-dicontainer/framework/tracing"
)

// ── ConfigServiceProvider ─────────────────────────────────────────────────────

// ConfigServiceProvider binds the loaded configuration.
//
// Bound contracts:
//   - *config.Config
//   - *config.AppConfig
type ConfigServiceProvider struct {
	container.BaseProvider
	Config *config.Config
}

func (p *ConfigServiceProvider) Register(app *container.Container) error {
	if err := app.Instance(container.Key[*config.Config](), p.Config); err != nil {
		return err
	}
	return container.Provide(app, container.Singleton, func(a container.Args) (*config.AppConfig, error) {
		return &container.Arg[*config.Config](a, 0).App, nil
	}, container.Key[*config.Config]())
}

func (p *ConfigServiceProvider) Provides() []container.Contract {
	return []container.Contract{container.Key[*config.Config](), container.Key[*config.AppConfig]()}
}

// ── LoggingServiceProvider ────────────────────────────────────────────────────

// LoggingServiceProvider binds the application logger. Singletons that need
// one declare container.Key[*zap.Logger]().
//
// Bound contracts:
//   - *zap.Logger
type LoggingServiceProvider struct {
	container.BaseProvider
	Logger *zap.Logger
}

func (p *LoggingServiceProvider) Register(app *container.Container) error {
	return app.Instance(container.Key[*zap.Logger](), p.Logger)
}

func (p *LoggingServiceProvider) Provides() []container.Contract {
	return []container.Contract{container.Key[*zap.Logger]()}
}

// ── TelemetryServiceProvider ──────────────────────────────────────────────────

// TelemetryServiceProvider binds the metrics registry and the tracing
// provider. The tracing provider is flushed when the container shuts down.
//
// Bound contracts:
//   - *prometheus.Registry
//   - *tracing.Provider
type TelemetryServiceProvider struct {
	container.BaseProvider
	Registry *prometheus.Registry
	Tracing  *tracing.Provider
}

func (p *TelemetryServiceProvider) Register(app *container.Container) error {
	if err := app.Instance(container.Key[*prometheus.Registry](), p.Registry); err != nil {
		return err
	}
	return app.Bind(container.Key[*tracing.Provider]()).
		AsSingleton().
		OnDispose(func(v any) error { return v.(*tracing.Provider).Shutdown(context.Background()) }).
		ToFactory(func(container.Args) (any, error) { return p.Tracing, nil })
}

func (p *TelemetryServiceProvider) Provides() []container.Contract {
	return []container.Contract{container.Key[*prometheus.Registry](), container.Key[*tracing.Provider]()}
}

// Boot builds the tracing provider so its disposal runs on shutdown.
func (p *TelemetryServiceProvider) Boot(app *container.Container) error {
	_, err := container.Make[*tracing.Provider](app, "")
	return err
}

// ── RoutingServiceProvider ────────────────────────────────────────────────────

// RoutingServiceProvider registers the HTTP router. Boot installs the
// request scope middleware and, when enabled, the metrics endpoint. Register
// it before providers whose Boot adds routes.
//
// Bound contracts:
//   - *routing.Router
type RoutingServiceProvider struct {
	container.BaseProvider
}

func (p *RoutingServiceProvider) Register(app *container.Container) error {
	return container.Provide(app, container.Singleton, func(a container.Args) (*routing.Router, error) {
		return routing.New(container.Arg[*zap.Logger](a, 0)), nil
	}, container.Key[*zap.Logger]())
}

func (p *RoutingServiceProvider) Provides() []container.Contract {
	return []container.Contract{container.Key[*routing.Router]()}
}

func (p *RoutingServiceProvider) Boot(app *container.Container) error {
	router, err := container.Make[*routing.Router](app, "")
	if err != nil {
		return err
	}
	log, err := container.Make[*zap.Logger](app, "")
	if err != nil {
		return err
	}
	router.Middleware(routing.RequestScope(app.Bridge(), log))

	cfg, err := container.Make[*config.Config](app, "")
	if err != nil {
		return err
	}
	if cfg.Metrics.Enabled {
		reg, err := container.Make[*prometheus.Registry](app, "")
		if err != nil {
			return err
		}
		router.Handle(cfg.Metrics.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	}
	return nil
}
