// Package process owns the supervised server's OS process: launching it in its
// own process group, streaming its output, writing console lines, and
// observing its exit.
package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sys/unix"
)

// StopCommand is the console line that asks the server to shut down.
const StopCommand = "stop"

const (
	readBufferSize = 4096
	killGrace      = 5 * time.Second
)

// OutputFunc receives every chunk read from the server's stdout and stderr.
type OutputFunc func(Chunk)

// ExitFunc is called once the current server handle has closed.
type ExitFunc func(ExitInfo)

// Options configures a Server.
type Options struct {
	Path string
	Args []string
	Dir  string
	// Env entries are appended to the supervisor's environment.
	Env []string

	OnOutput OutputFunc
	OnExit   ExitFunc
	Logger   *log.Logger
}

type handle struct {
	cmd           *exec.Cmd
	stdin         io.WriteCloser
	pid           int
	done          chan struct{}
	stopRequested bool
}

// Server supervises one server process at a time. Restart replaces the handle
// wholesale; output and exit events from a replaced handle no longer affect
// the server state.
type Server struct {
	opts   Options
	logger *log.Logger

	mu       sync.RWMutex
	cur      *handle
	state    State
	started  time.Time
	lastExit *ExitInfo

	writeMu sync.Mutex
}

// New returns a stopped Server.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default().WithPrefix("process")
	}
	return &Server{opts: opts, logger: logger, state: StateStopped}
}

// Start launches the server detached from the controlling terminal.
func (s *Server) Start() error {
	if s.opts.Path == "" {
		return &SpawnError{Path: s.opts.Path, Err: errors.New("executable is required")}
	}

	cmd := exec.Command(s.opts.Path, s.opts.Args...)
	cmd.Dir = s.opts.Dir
	if len(s.opts.Env) > 0 {
		cmd.Env = append(os.Environ(), s.opts.Env...)
	}
	// New process group so a kill reaches the launcher and its children.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return s.spawnFailed(err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return s.spawnFailed(err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return s.spawnFailed(err)
	}

	s.mu.Lock()
	s.state = StateStarting
	s.mu.Unlock()

	s.logger.Info("starting server", "path", s.opts.Path, "args", s.opts.Args)
	if err := cmd.Start(); err != nil {
		return s.spawnFailed(err)
	}

	s.mu.Lock()
	h := &handle{
		cmd:   cmd,
		stdin: stdin,
		pid:   cmd.Process.Pid,
		done:  make(chan struct{}),
	}
	s.cur = h
	s.state = StateRunning
	s.started = time.Now()
	s.mu.Unlock()

	s.logger.Info("server started", "pid", h.pid)

	var pumps sync.WaitGroup
	pumps.Add(2)
	go s.pump(Stdout, stdout, &pumps)
	go s.pump(Stderr, stderr, &pumps)
	go s.wait(h, &pumps)
	return nil
}

// Restart starts a fresh server process. The previous handle is discarded
// without checking that it exited.
func (s *Server) Restart() error {
	return s.Start()
}

func (s *Server) spawnFailed(err error) error {
	s.mu.Lock()
	s.cur = nil
	s.state = StateStopped
	s.mu.Unlock()
	s.logger.Error("failed to start server", "path", s.opts.Path, "err", err)
	return &SpawnError{Path: s.opts.Path, Err: err}
}

func (s *Server) pump(stream Stream, r io.Reader, wg *sync.WaitGroup) {
	defer wg.Done()
	buf := make([]byte, readBufferSize)
	for {
		n, err := r.Read(buf)
		if n > 0 && s.opts.OnOutput != nil {
			s.opts.OnOutput(Chunk{Stream: stream, Data: string(buf[:n])})
		}
		if err != nil {
			return
		}
	}
}

// wait observes the close of h: all output drained, then the exit status.
func (s *Server) wait(h *handle, pumps *sync.WaitGroup) {
	pumps.Wait()
	err := h.cmd.Wait()

	info := ExitInfo{PID: h.pid, Code: 0, At: time.Now()}
	if err != nil {
		info.Err = err
		info.Code = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			info.Code = exitErr.ExitCode()
		}
	}

	s.mu.Lock()
	info.Requested = h.stopRequested
	current := s.cur == h
	if current {
		s.cur = nil
		if info.Requested || info.Code == 0 {
			s.state = StateStopped
		} else {
			s.state = StateCrashed
		}
		s.lastExit = &info
	}
	s.mu.Unlock()

	if info.Requested {
		s.logger.Info("server stopped", "pid", info.PID, "code", info.Code)
	} else {
		s.logger.Warn("server exited unexpectedly", "pid", info.PID, "code", info.Code, "err", info.Err)
	}
	if current && s.opts.OnExit != nil {
		s.opts.OnExit(info)
	}
	close(h.done)
}

// WriteLine writes line followed by a newline to the server console.
func (s *Server) WriteLine(line string) error {
	s.mu.RLock()
	h := s.cur
	s.mu.RUnlock()
	if h == nil {
		return ErrNotRunning
	}
	return s.writeTo(h, line)
}

func (s *Server) writeTo(h *handle, line string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := io.WriteString(h.stdin, line+"\n"); err != nil {
		return fmt.Errorf("write to server stdin: %w", err)
	}
	return nil
}

// Stop sends the stop command and waits for the server to close. When ctx ends
// first the process group is killed and ErrStopTimeout returned. Stopping a
// server that is not running is a no-op.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	h := s.cur
	if h == nil {
		s.mu.Unlock()
		return nil
	}
	h.stopRequested = true
	s.state = StateExiting
	s.mu.Unlock()

	s.logger.Info("stopping server", "pid", h.pid)
	if err := s.writeTo(h, StopCommand); err != nil {
		s.logger.Warn("could not send stop command", "pid", h.pid, "err", err)
	}

	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
	}

	s.logger.Warn("server ignored stop command, killing process group", "pid", h.pid)
	if err := unix.Kill(-h.pid, unix.SIGKILL); err != nil {
		_ = h.cmd.Process.Kill()
	}
	select {
	case <-h.done:
		return ErrStopTimeout
	case <-time.After(killGrace):
		return fmt.Errorf("%w: pid %d still open after kill", ErrStopTimeout, h.pid)
	}
}

// Done returns a channel closed when the current handle closes. It is already
// closed when no server is running.
func (s *Server) Done() <-chan struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cur == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return s.cur.done
}

// Running reports whether a launched server has not yet been observed to close.
func (s *Server) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur != nil
}

// Status returns a snapshot of the server state.
func (s *Server) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Status{State: s.state, Running: s.cur != nil}
	if s.cur != nil {
		st.PID = s.cur.pid
		st.StartedAt = s.started
	}
	if s.lastExit != nil {
		exit := *s.lastExit
		st.LastExit = &exit
	}
	return st
}
