package cmd

import (
	"github.com/spf13/cobra"

	"github.com/km-arc/go-dicontainer/app/greeting"
	"github.com/km-arc/go-dicontainer/framework/app"
	"github.com/km-arc/go-dicontainer/framework/config"
)

var (
	version  = "dev"
	envFiles []string
	manifest string
)

// rootCmd serves when run without a subcommand.
var rootCmd = &cobra.Command{
	Use:          "dicontainer",
	Short:        "Greeting service wired by a scoped dependency injection container",
	Version:      version,
	RunE:         runServe,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringSliceVarP(&envFiles, "env-file", "e", nil,
		"env files to load (default: .env)")
	rootCmd.PersistentFlags().StringVarP(&manifest, "manifest", "m", "",
		"bindings manifest, overrides CONTAINER_MANIFEST")

	rootCmd.AddCommand(serveCmd, checkCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// loadConfig applies the persistent flags on top of the environment.
func loadConfig() *config.Config {
	cfg := config.Load(envFiles...)
	if manifest != "" {
		cfg.Container.Manifest = manifest
	}
	return cfg
}

// newApplication builds the application with the greeting provider registered.
func newApplication(cfg *config.Config) (*app.Application, error) {
	application, err := app.New(cfg)
	if err != nil {
		return nil, err
	}
	if err := application.Register(&greeting.ServiceProvider{Manifest: cfg.Container.Manifest}); err != nil {
		return nil, err
	}
	return application, nil
}
