package daemon

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	srvctlv1 "srvctl/api/srvctl/v1"
	"srvctl/internal/backup"
	"srvctl/internal/console"
	"srvctl/internal/correlator"
	"srvctl/internal/process"
	"srvctl/internal/recorder"
	"srvctl/internal/supervisor"
)

// Backend is the supervisor surface served over RPC.
type Backend interface {
	Status() supervisor.Status
	Exec(ctx context.Context, command string) (correlator.Result, error)
	Backup(ctx context.Context) (backup.Record, error)
	ListBackups() ([]backup.Record, error)
	Rollback(ctx context.Context, name string) error
	Restart(ctx context.Context, force bool) error
	Logs(kinds ...recorder.Kind) []recorder.Entry
}

// service implements the Supervisor gRPC service.
type service struct {
	backend Backend
	console *console.Console
	logger  *log.Logger
}

func newService(backend Backend, cons *console.Console, logger *log.Logger) *service {
	return &service{backend: backend, console: cons, logger: logger}
}

func (s *service) Ping(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.StringValue, error) {
	return wrapperspb.String("pong"), nil
}

func (s *service) Status(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	st := s.backend.Status()
	view := srvctlv1.Status{
		State:     st.State.String(),
		Running:   st.Running,
		PID:       st.PID,
		Command:   st.Cmdline,
		StartedAt: st.StartedAt,
		Busy:      st.Busy,
		InFlight:  st.InFlight,
	}
	if st.LastExit != nil {
		view.LastExit = &srvctlv1.Exit{
			PID:       st.LastExit.PID,
			Code:      st.LastExit.Code,
			Requested: st.LastExit.Requested,
			At:        st.LastExit.At,
		}
	}
	return encode(view.Struct())
}

func (s *service) Exec(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	input := req.GetValue()
	if strings.TrimSpace(input) == "" {
		return nil, status.Error(codes.InvalidArgument, "input is required")
	}
	out := s.console.Handle(ctx, input)
	if !out.OK() {
		s.logger.Info("console input failed", "input", input, "command", out.Failed, "err", out.Err)
		return nil, toStatus(fmt.Errorf("command %q failed: %w", out.Failed, out.Err))
	}
	return encode(srvctlv1.ExecResult{Commands: out.Commands}.Struct())
}

func (s *service) RunCommand(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	command := strings.TrimSpace(req.GetValue())
	if command == "" {
		return nil, status.Error(codes.InvalidArgument, "command is required")
	}
	res, err := s.backend.Exec(ctx, command)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(srvctlv1.CommandResult{
		Keyword: res.Keyword,
		Command: res.Command,
		Output:  res.Output,
	}.Struct())
}

func (s *service) Backup(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	rec, err := s.backend.Backup(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(backupView(rec).Struct())
}

func (s *service) ListBackups(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	records, err := s.backend.ListBackups()
	if err != nil {
		return nil, toStatus(err)
	}
	views := make([]srvctlv1.Backup, 0, len(records))
	for _, r := range records {
		views = append(views, backupView(r))
	}
	return encode(srvctlv1.BackupList(views))
}

func (s *service) Rollback(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	if err := s.backend.Rollback(ctx, req.GetValue()); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *service) Restart(ctx context.Context, req *wrapperspb.BoolValue) (*emptypb.Empty, error) {
	if err := s.backend.Restart(ctx, req.GetValue()); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *service) Logs(ctx context.Context, req *wrapperspb.StringValue) (*structpb.ListValue, error) {
	var kinds []recorder.Kind
	for _, raw := range strings.Split(req.GetValue(), ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		kind, ok := recorder.ParseKind(raw)
		if !ok {
			return nil, status.Errorf(codes.InvalidArgument, "unknown log kind %q", raw)
		}
		kinds = append(kinds, kind)
	}

	entries := s.backend.Logs(kinds...)
	views := make([]srvctlv1.LogEntry, 0, len(entries))
	for _, e := range entries {
		views = append(views, srvctlv1.LogEntry{
			Index: e.Index,
			Kind:  string(e.Kind),
			Data:  e.Data,
			Time:  e.Time,
		})
	}
	return encode(srvctlv1.LogList(views))
}

func backupView(r backup.Record) srvctlv1.Backup {
	return srvctlv1.Backup{Name: r.Name, Path: r.Path, ModTime: r.ModTime}
}

func encode[T any](msg T, err error) (T, error) {
	if err != nil {
		var zero T
		return zero, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return msg, nil
}

// toStatus maps supervisor errors onto gRPC codes.
func toStatus(err error) error {
	// copy, restart and spawn failures stay Internal
	code := codes.Internal
	switch {
	case errors.Is(err, supervisor.ErrCommandRejected), errors.Is(err, backup.ErrInvalidName):
		code = codes.InvalidArgument
	case errors.Is(err, backup.ErrBackupNotFound):
		code = codes.NotFound
	case errors.Is(err, supervisor.ErrNotNeeded), errors.Is(err, process.ErrNotRunning):
		code = codes.FailedPrecondition
	case errors.Is(err, correlator.ErrCommandTimeout), errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, supervisor.ErrBusy),
		errors.Is(err, correlator.ErrCommandFailed),
		errors.Is(err, correlator.ErrProcessExited):
		code = codes.Aborted
	}
	return status.Error(code, err.Error())
}
