// Package supervisor runs one console server and exposes the operations the
// daemon serves: correlated commands, backups, rollbacks and restarts.
//
// A supervisor-wide operation lock serialises every command from issue to
// resolution with backup, rollback, restart and shutdown, so a backup can never
// stop the server underneath an in-flight command.
package supervisor

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"srvctl/internal/backup"
	"srvctl/internal/config"
	"srvctl/internal/correlator"
	"srvctl/internal/process"
	"srvctl/internal/recorder"
)

const defaultRestartSettle = 500 * time.Millisecond

// Options carries the optional collaborators of a Supervisor.
type Options struct {
	Recorder *recorder.Recorder
	Logger   *log.Logger
	// Copier copies state directories; nil uses backup.TreeCopier.
	Copier backup.Copier
	// RestartSettle is how long a restarted server must stay up to count as
	// started.
	RestartSettle time.Duration
}

// Status is the supervisor's view of the server.
type Status struct {
	process.Status
	// Cmdline is the running server's command line as the OS reports it.
	Cmdline  string
	Busy     bool
	InFlight string
}

// Supervisor owns the server process and everything layered on it.
type Supervisor struct {
	cfg    config.Config
	logger *log.Logger
	settle time.Duration

	rec     *recorder.Recorder
	table   *correlator.Table
	corr    *correlator.Correlator
	proc    *process.Server
	backups *backup.Manager

	ops      chan struct{}
	shutDown atomic.Bool
}

// New builds a Supervisor for cfg. The server is not started.
func New(cfg config.Config, opts Options) (*Supervisor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	table, err := correlator.CompileTable(cfg.Patterns)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	rec := opts.Recorder
	if rec == nil {
		rec = recorder.New(logger.WithPrefix("console"))
	}
	settle := opts.RestartSettle
	if settle <= 0 {
		settle = defaultRestartSettle
	}

	s := &Supervisor{
		cfg:    cfg,
		logger: logger.WithPrefix("supervisor"),
		settle: settle,
		rec:    rec,
		table:  table,
		ops:    make(chan struct{}, 1),
	}
	s.corr = correlator.New(table, correlator.Options{
		ErrorMatcher: correlator.Substring(cfg.ErrorIndicator),
		Timeout:      cfg.CommandTimeout,
		Logger:       logger.WithPrefix("correlator"),
	})
	s.proc = process.New(process.Options{
		Path:     cfg.Executable,
		Args:     cfg.Args,
		Dir:      cfg.WorkDir,
		OnOutput: s.onOutput,
		OnExit:   s.onExit,
		Logger:   logger.WithPrefix("process"),
	})
	store := backup.NewStore(cfg.StateRoot, cfg.StateName, opts.Copier)
	s.backups = backup.NewManager(store, procControl{s}, logger.WithPrefix("backup"))
	return s, nil
}

// Recorder returns the console history.
func (s *Supervisor) Recorder() *recorder.Recorder { return s.rec }

// Start launches the server.
func (s *Supervisor) Start() error {
	return s.proc.Start()
}

func (s *Supervisor) tryAcquire() bool {
	select {
	case s.ops <- struct{}{}:
		return true
	default:
		return false
	}
}

func (s *Supervisor) acquire(ctx context.Context) error {
	if s.tryAcquire() {
		return nil
	}
	select {
	case s.ops <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Supervisor) release() { <-s.ops }

// RunCommand issues command when its keyword is known and nothing else holds
// the supervisor. The decision is immediate; false means nothing was written.
func (s *Supervisor) RunCommand(command string) (*correlator.Pending, bool) {
	if !s.tryAcquire() {
		return nil, false
	}
	p, ok := s.corr.RunCommand(command, consoleWriter{s})
	if !ok {
		s.release()
		return nil, false
	}
	go func() {
		<-p.Done()
		s.release()
	}()
	return p, true
}

// Exec runs command and waits for its outcome. Rejections are reported as
// ErrCommandRejected or ErrBusy.
func (s *Supervisor) Exec(ctx context.Context, command string) (correlator.Result, error) {
	p, ok := s.RunCommand(command)
	if !ok {
		keyword := correlator.Keyword(command)
		if _, known := s.table.Lookup(keyword); !known {
			return correlator.Result{Command: command}, fmt.Errorf("%w: unknown keyword %q", ErrCommandRejected, keyword)
		}
		return correlator.Result{Keyword: keyword, Command: command}, ErrBusy
	}
	return p.Wait(ctx)
}

// Backup stops the server, copies its state and starts it again.
func (s *Supervisor) Backup(ctx context.Context) (backup.Record, error) {
	if err := s.acquire(ctx); err != nil {
		return backup.Record{}, err
	}
	defer s.release()

	op := s.logger.With("op", uuid.NewString(), "action", "backup")
	op.Info("operation started")
	rec, err := s.backups.Backup(ctx)
	if err != nil {
		op.Error("operation failed", "err", err)
		return rec, err
	}
	op.Info("operation finished", "name", rec.Name)
	return rec, nil
}

// ListBackups returns the backups on disk, newest first.
func (s *Supervisor) ListBackups() ([]backup.Record, error) {
	return s.backups.Store().List()
}

// Rollback replaces the live state with the named backup.
func (s *Supervisor) Rollback(ctx context.Context, name string) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	op := s.logger.With("op", uuid.NewString(), "action", "rollback", "backup", name)
	op.Info("operation started")
	if err := s.backups.Rollback(ctx, name); err != nil {
		op.Error("operation failed", "err", err)
		return err
	}
	op.Info("operation finished")
	return nil
}

// Restart starts the server when it is not running. A forced restart stops a
// running server first. The server must stay up for the settle period; ctx
// only bounds the wait for the operation lock.
func (s *Supervisor) Restart(ctx context.Context, force bool) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	if s.proc.Running() {
		if !force {
			return ErrNotNeeded
		}
		if err := (procControl{s}).Stop(ctx); err != nil {
			s.logger.Warn("forced restart: stop did not complete cleanly", "err", err)
		}
	}

	if err := s.startAndSettle(); err != nil {
		return err
	}
	s.logger.Info("server restarted", "pid", s.proc.Status().PID)
	return nil
}

// startAndSettle spawns the server and requires it to stay up for the settle
// period. The wait always runs to the end so a healthy server is never
// reported as failed.
func (s *Supervisor) startAndSettle() error {
	if err := s.proc.Restart(); err != nil {
		return &RestartError{Err: err}
	}
	select {
	case <-s.proc.Done():
		return &RestartError{Exit: s.proc.Status().LastExit}
	case <-time.After(s.settle):
		return nil
	}
}

// Status returns a snapshot of the server and the in-flight command.
func (s *Supervisor) Status() Status {
	st := Status{Status: s.proc.Status(), Busy: len(s.ops) > 0}
	st.InFlight, _ = s.corr.InFlight()
	if st.Running {
		st.Cmdline = process.Cmdline(st.PID)
	}
	return st
}

// Logs returns recorded console lines, optionally limited to kinds.
func (s *Supervisor) Logs(kinds ...recorder.Kind) []recorder.Entry {
	return s.rec.Entries(kinds...)
}

// Shutdown waits for the current operation and stops the server. The
// supervisor stays locked afterwards and later calls return nil.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	if s.shutDown.Load() {
		return nil
	}
	if err := s.acquire(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.shutDown.Store(true)
	s.logger.Info("shutting down")
	return procControl{s}.Stop(ctx)
}
