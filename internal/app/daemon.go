package app

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"srvctl/internal/daemon"
)

// DaemonStatus represents current information about the daemon process.
type DaemonStatus struct {
	Running bool
	PID     int
}

// Status returns whether the daemon is running and its PID if known.
func (a *App) Status() (DaemonStatus, error) {
	if !daemonIsRunning() {
		return DaemonStatus{Running: false}, nil
	}
	pid, err := daemon.RunningPID()
	if err != nil {
		return DaemonStatus{Running: true}, err
	}
	return DaemonStatus{Running: true, PID: pid}, nil
}

// StopDaemon signals the running daemon and waits for it to stop its server.
func (a *App) StopDaemon(force bool) error {
	cfg, err := a.LoadConfig()
	timeout := cfg.StopTimeout
	if err != nil || timeout <= 0 {
		timeout = time.Minute
	}
	return daemon.StopRunningDaemon(force, timeout+5*time.Second)
}

// DaemonHandle holds a running daemon instance.
type DaemonHandle struct {
	srv *daemon.Server
}

// Shutdown stops the daemon and its server.
func (h *DaemonHandle) Shutdown(ctx context.Context) error {
	if h == nil || h.srv == nil {
		return nil
	}
	return h.srv.Shutdown(ctx)
}

// StartDaemon loads the config, starts the server and serves it in this
// process until the handle is shut down.
func (a *App) StartDaemon(logger *log.Logger) (*DaemonHandle, error) {
	cfg, err := a.LoadConfig()
	if err != nil {
		return nil, err
	}
	srv, err := daemon.StartDaemon(cfg, daemon.Options{Logger: logger})
	if err != nil {
		return nil, err
	}
	return &DaemonHandle{srv: srv}, nil
}
