package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	srvctlv1 "srvctl/api/srvctl/v1"
	"srvctl/internal/daemon"
)

var (
	daemonIsRunning  = daemon.IsRunning
	dialDaemonClient = defaultDial
)

func defaultDial(ctx context.Context) (srvctlv1.SupervisorClient, io.Closer, error) {
	client, conn, err := daemon.Dial(ctx)
	if err != nil {
		return nil, nil, err
	}
	return client, conn, nil
}

func resetDaemonDeps() {
	daemonIsRunning = daemon.IsRunning
	dialDaemonClient = defaultDial
}

// ErrDaemonNotRunning is returned when no daemon answers on the socket.
var ErrDaemonNotRunning = errors.New("daemon is not running")

func (a *App) withClient(ctx context.Context, timeout time.Duration, fn func(context.Context, srvctlv1.SupervisorClient) error) error {
	if timeout <= 0 {
		return errors.New("timeout must be greater than 0")
	}
	if !daemonIsRunning() {
		return ErrDaemonNotRunning
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, conn, err := dialDaemonClient(ctx)
	if err != nil {
		return fmt.Errorf("connect to daemon: %w", err)
	}
	if conn != nil {
		defer conn.Close()
	}

	return fn(ctx, client)
}
