package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gofrs/flock"
	"google.golang.org/grpc"

	srvctlv1 "srvctl/api/srvctl/v1"
	"srvctl/internal/config"
	"srvctl/internal/console"
	"srvctl/internal/supervisor"
)

// ErrAlreadyRunning is returned when another daemon holds the lock file.
var ErrAlreadyRunning = errors.New("daemon is already running")

// Options configures StartDaemon.
type Options struct {
	// SocketPath overrides SocketPath(); the pid and lock files live beside it.
	SocketPath string
	Logger     *log.Logger
	// Supervisor tunes the supervisor built from the config.
	Supervisor supervisor.Options
}

// Server serves the supervisor over a UNIX socket.
type Server struct {
	path    string
	pidPath string
	lock    *flock.Flock
	ln      net.Listener
	grpc    *grpc.Server
	sup     *supervisor.Supervisor
	logger  *log.Logger

	// stopBudget bounds the supervisor shutdown independently of the caller.
	stopBudget time.Duration

	shutdownOnce sync.Once
	shutdownErr  error
}

// StartDaemon takes the daemon lock, starts the server process described by
// cfg and serves RPCs until Shutdown.
func StartDaemon(cfg config.Config, opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	logger := opts.Logger
	path := opts.SocketPath
	if path == "" {
		path = SocketPath()
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}

	lock := flock.New(filepath.Join(dir, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", lock.Path(), err)
	}
	if !locked {
		return nil, ErrAlreadyRunning
	}

	s := &Server{
		path:    path,
		pidPath: filepath.Join(dir, pidFileName),
		lock:    lock,
		logger:  logger.WithPrefix("daemon"),
	}
	if err := s.start(cfg, opts); err != nil {
		_ = s.cleanup()
		return nil, err
	}
	return s, nil
}

func (s *Server) start(cfg config.Config, opts Options) error {
	supOpts := opts.Supervisor
	if supOpts.Logger == nil {
		supOpts.Logger = opts.Logger
	}
	sup, err := supervisor.New(cfg, supOpts)
	if err != nil {
		return err
	}
	// Room for a running backup or rollback to finish, then one clean stop.
	s.stopBudget = 3*cfg.StopTimeout + time.Minute

	// Holding the lock means any socket file left here is stale.
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	ln, err := net.Listen("unix", s.path)
	if err != nil {
		return err
	}
	s.ln = ln
	if err := os.Chmod(s.path, 0o600); err != nil {
		return err
	}
	if err := os.WriteFile(s.pidPath, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0o600); err != nil {
		return err
	}

	if err := sup.Start(); err != nil {
		return err
	}
	s.sup = sup

	cons := console.New(sup, sup.Recorder(), supOpts.Logger.WithPrefix("console"))
	s.grpc = grpc.NewServer(grpc.UnaryInterceptor(s.logCalls))
	srvctlv1.RegisterSupervisorServer(s.grpc, newService(sup, cons, s.logger))

	go func() {
		if err := s.grpc.Serve(ln); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			s.logger.Error("rpc server stopped", "err", err)
		}
	}()
	s.logger.Info("daemon listening", "socket", s.path, "pid", os.Getpid())
	return nil
}

func (s *Server) logCalls(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	if err != nil {
		s.logger.Debug("rpc", "method", info.FullMethod, "elapsed", time.Since(start), "err", err)
	} else {
		s.logger.Debug("rpc", "method", info.FullMethod, "elapsed", time.Since(start))
	}
	return resp, err
}

// Supervisor returns the supervisor being served.
func (s *Server) Supervisor() *supervisor.Supervisor { return s.sup }

// SocketPath returns the socket the daemon listens on.
func (s *Server) SocketPath() string { return s.path }

// Shutdown stops accepting RPCs, stops the server process and releases the
// socket, pid file and lock. In-flight RPCs get until ctx ends to finish.
// Later calls return the first result.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		s.shutdownErr = s.shutdown(ctx)
	})
	return s.shutdownErr
}

func (s *Server) shutdown(ctx context.Context) error {
	if s.grpc != nil {
		stopped := make(chan struct{})
		go func() {
			s.grpc.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-ctx.Done():
			s.grpc.Stop()
		}
	}

	var errs []error
	if s.sup != nil {
		// The RPC drain above may have spent ctx; the server still gets a
		// clean stop.
		supCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.stopBudget)
		defer cancel()
		if err := s.sup.Shutdown(supCtx); err != nil {
			errs = append(errs, fmt.Errorf("stop server: %w", err))
		}
	}
	errs = append(errs, s.cleanup())
	s.logger.Info("daemon stopped")
	return errors.Join(errs...)
}

func (s *Server) cleanup() error {
	var errs []error
	if s.ln != nil {
		if err := s.ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = append(errs, err)
		}
	}
	for _, p := range []string{s.path, s.pidPath} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	if err := s.lock.Unlock(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// StopRunningDaemon sends SIGTERM to the running daemon and waits up to
// timeout for it to stop its server and exit. With force, a daemon that is
// still up afterwards is killed.
func StopRunningDaemon(force bool, timeout time.Duration) error {
	pid, err := RunningPID()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if IsRunning() {
				return fmt.Errorf("daemon is running but PID file %q is missing; stop it manually", PIDPath())
			}
			return nil
		}
		return fmt.Errorf("unable to read daemon PID: %w", err)
	}
	if pid == os.Getpid() {
		return errors.New("refusing to stop current process")
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	if err := sendSignal(proc, syscall.SIGTERM); err != nil {
		return err
	}
	if waitForShutdown(timeout) {
		return nil
	}
	if !force {
		return fmt.Errorf("daemon process %d did not exit after SIGTERM", pid)
	}
	if err := sendSignal(proc, syscall.SIGKILL); err != nil {
		return err
	}
	if waitForShutdown(2 * time.Second) {
		return nil
	}
	return fmt.Errorf("daemon process %d did not exit after SIGKILL", pid)
}

func sendSignal(proc *os.Process, sig syscall.Signal) error {
	if err := proc.Signal(sig); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			_ = RemovePID()
			return nil
		}
		return err
	}
	return nil
}

func waitForShutdown(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if !IsRunning() {
			_ = RemovePID()
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(100 * time.Millisecond)
	}
}
