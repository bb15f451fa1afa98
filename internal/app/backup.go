package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	srvctlv1 "srvctl/api/srvctl/v1"
)

// Backup asks the daemon to stop the server, copy its state and restart it.
func (a *App) Backup(ctx context.Context, timeout time.Duration) (srvctlv1.Backup, error) {
	var b srvctlv1.Backup
	err := a.withClient(ctx, timeout, func(ctx context.Context, client srvctlv1.SupervisorClient) error {
		resp, err := client.Backup(ctx, &emptypb.Empty{})
		if err != nil {
			return fmt.Errorf("daemon backup RPC failed: %w", err)
		}
		b = srvctlv1.BackupFromStruct(resp)
		return nil
	})
	return b, err
}

// ListBackups returns the backups known to the daemon, newest first.
func (a *App) ListBackups(ctx context.Context, timeout time.Duration) ([]srvctlv1.Backup, error) {
	var backups []srvctlv1.Backup
	err := a.withClient(ctx, timeout, func(ctx context.Context, client srvctlv1.SupervisorClient) error {
		resp, err := client.ListBackups(ctx, &emptypb.Empty{})
		if err != nil {
			return fmt.Errorf("daemon list backups RPC failed: %w", err)
		}
		backups = srvctlv1.BackupsFromList(resp)
		return nil
	})
	return backups, err
}

// Rollback replaces the live state with the named backup.
func (a *App) Rollback(ctx context.Context, name string, timeout time.Duration) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("backup name must not be empty")
	}
	return a.withClient(ctx, timeout, func(ctx context.Context, client srvctlv1.SupervisorClient) error {
		if _, err := client.Rollback(ctx, wrapperspb.String(name)); err != nil {
			return fmt.Errorf("daemon rollback RPC failed: %w", err)
		}
		return nil
	})
}
