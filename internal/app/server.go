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

// ServerStatus returns the supervised server's state as seen by the daemon.
func (a *App) ServerStatus(ctx context.Context, timeout time.Duration) (srvctlv1.Status, error) {
	var st srvctlv1.Status
	err := a.withClient(ctx, timeout, func(ctx context.Context, client srvctlv1.SupervisorClient) error {
		resp, err := client.Status(ctx, &emptypb.Empty{})
		if err != nil {
			return fmt.Errorf("daemon status RPC failed: %w", err)
		}
		st = srvctlv1.StatusFromStruct(resp)
		return nil
	})
	return st, err
}

// Exec sends console input, possibly several commands separated by ';' or
// newlines, and returns the commands that ran.
func (a *App) Exec(ctx context.Context, input string, timeout time.Duration) ([]string, error) {
	if strings.TrimSpace(input) == "" {
		return nil, errors.New("input must not be empty")
	}
	var commands []string
	err := a.withClient(ctx, timeout, func(ctx context.Context, client srvctlv1.SupervisorClient) error {
		resp, err := client.Exec(ctx, wrapperspb.String(input))
		if err != nil {
			return fmt.Errorf("daemon exec RPC failed: %w", err)
		}
		commands = srvctlv1.ExecResultFromStruct(resp).Commands
		return nil
	})
	return commands, err
}

// RunCommand runs a single console command and returns the output that
// completed it.
func (a *App) RunCommand(ctx context.Context, command string, timeout time.Duration) (srvctlv1.CommandResult, error) {
	var res srvctlv1.CommandResult
	if strings.TrimSpace(command) == "" {
		return res, errors.New("command must not be empty")
	}
	err := a.withClient(ctx, timeout, func(ctx context.Context, client srvctlv1.SupervisorClient) error {
		resp, err := client.RunCommand(ctx, wrapperspb.String(command))
		if err != nil {
			return fmt.Errorf("daemon command RPC failed: %w", err)
		}
		res = srvctlv1.CommandResultFromStruct(resp)
		return nil
	})
	return res, err
}

// Restart starts the server if it is down; force restarts a running server.
func (a *App) Restart(ctx context.Context, force bool, timeout time.Duration) error {
	return a.withClient(ctx, timeout, func(ctx context.Context, client srvctlv1.SupervisorClient) error {
		if _, err := client.Restart(ctx, wrapperspb.Bool(force)); err != nil {
			return fmt.Errorf("daemon restart RPC failed: %w", err)
		}
		return nil
	})
}

// Logs returns recorded console lines, limited to kinds when any are given.
func (a *App) Logs(ctx context.Context, kinds []string, timeout time.Duration) ([]srvctlv1.LogEntry, error) {
	var entries []srvctlv1.LogEntry
	err := a.withClient(ctx, timeout, func(ctx context.Context, client srvctlv1.SupervisorClient) error {
		resp, err := client.Logs(ctx, wrapperspb.String(strings.Join(kinds, ",")))
		if err != nil {
			return fmt.Errorf("daemon logs RPC failed: %w", err)
		}
		entries = srvctlv1.LogsFromList(resp)
		return nil
	})
	return entries, err
}
