package app_test

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/km-arc/go-dicontainer/framework/app"
	"github.com/km-arc/go-dicontainer/framework/config"
	"github.com/km-arc/go-dicontainer/framework/container"
	"github.com/km-arc/go-dicontainer/framework/routing"
)

func testConfig() *config.Config {
	return &config.Config{
		App:       config.AppConfig{Name: "kernel-test", Env: "testing", Port: "0"},
		Log:       config.LogConfig{Level: "info", Format: "json"},
		Container: config.ContainerConfig{Validate: true},
		Metrics:   config.MetricsConfig{Enabled: true, Path: "/metrics"},
		Tracing:   config.TracingConfig{Exporter: "none"},
	}
}

type pingProvider struct {
	container.BaseProvider
}

type pong struct{ n int }

func (p *pingProvider) Register(c *container.Container) error {
	return container.Provide(c, container.Singleton, func(container.Args) (*pong, error) { return &pong{n: 1}, nil })
}

func (p *pingProvider) Boot(c *container.Container) error {
	router, err := container.Make[*routing.Router](c, "")
	if err != nil {
		return err
	}
	router.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		v, err := routing.Resolve[*pong](r, "")
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		_, _ = fmt.Fprintf(w, "pong %d", v.n)
	})
	return nil
}

func TestNew_BindsFrameworkServices(t *testing.T) {
	cfg := testConfig()
	a, err := app.New(cfg)
	require.NoError(t, err)
	require.NoError(t, a.Boot())

	got, err := container.Make[*config.Config](a.Container, "")
	require.NoError(t, err)
	assert.Same(t, cfg, got)

	appCfg, err := container.Make[*config.AppConfig](a.Container, "")
	require.NoError(t, err)
	assert.Equal(t, "kernel-test", appCfg.Name)

	_, err = container.Make[*zap.Logger](a.Container, "")
	assert.NoError(t, err)
	_, err = a.Router()
	assert.NoError(t, err)

	assert.True(t, a.IsTesting())
	assert.False(t, a.IsProduction())
	assert.Equal(t, "testing", a.Environment())
}

func TestNew_RejectsUnknownExporter(t *testing.T) {
	cfg := testConfig()
	cfg.Tracing = config.TracingConfig{Enabled: true, Exporter: "carrier-pigeon"}

	_, err := app.New(cfg)
	assert.ErrorContains(t, err, "tracing")
}

func TestBoot_IsIdempotentAndFreezes(t *testing.T) {
	a, err := app.NewWithLogger(testConfig(), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, a.Boot())
	require.NoError(t, a.Boot())

	err = a.Register(&pingProvider{})
	assert.ErrorIs(t, err, container.ErrRegistryFrozen)
}

func TestBoot_FailsOnInvalidGraph(t *testing.T) {
	a, err := app.NewWithLogger(testConfig(), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, a.Transient(container.Key[*pong](), func(container.Args) (any, error) { return &pong{}, nil },
		container.Key[*net.Dialer]()))

	var unbound container.UnboundContractError
	assert.ErrorAs(t, a.Boot(), &unbound)
}

func TestServe_GracefulShutdown(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	a, err := app.NewWithLogger(testConfig(), zap.New(core))
	require.NoError(t, err)
	require.NoError(t, a.Register(&pingProvider{}))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String()
	require.Eventually(t, func() bool {
		resp, err := http.Get(url + "/ping")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode == http.StatusOK && string(body) == "pong 1"
	}, 5*time.Second, 20*time.Millisecond)

	resp, err := http.Get(url + "/metrics")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
	assert.Equal(t, 1, logs.FilterMessage("application booted").Len())
	assert.Equal(t, 1, logs.FilterMessage("shutting down").Len())
}
