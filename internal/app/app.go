// Package app is the client-side facade the CLI and TUI share. Every
// operation dials the daemon, performs one RPC and decodes the reply.
package app

import (
	"time"

	"srvctl/internal/config"
)

// DefaultTimeout bounds quick RPCs such as ping and status.
const DefaultTimeout = 5 * time.Second

// Options configures the top-level controller.
type Options struct {
	// ConfigPath points to the optional daemon config file.
	ConfigPath string
}

// App exposes high-level operations that the CLI/TUI can reuse.
type App struct {
	cfgPath string
}

// New constructs the shared controller facade.
func New(opts Options) *App {
	return &App{
		cfgPath: opts.ConfigPath,
	}
}

// ConfigPath returns the configured config file path (if any).
func (a *App) ConfigPath() string {
	return a.cfgPath
}

// LoadConfig reads the daemon configuration from ConfigPath and the
// environment.
func (a *App) LoadConfig() (config.Config, error) {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// OperationTimeout is how long backup, rollback and restart may take: two
// server stops plus the copies.
func (a *App) OperationTimeout() time.Duration {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		cfg = config.Default()
	}
	return 2*cfg.StopTimeout + time.Minute
}
