package process

import (
	"errors"
	"fmt"
	"time"
)

// State is the lifecycle stage of the supervised server.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	// StateExiting is entered once a stop was requested and lasts until close.
	StateExiting
	// StateCrashed is a stopped server whose exit was not requested.
	StateCrashed
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateExiting:
		return "exiting"
	case StateCrashed:
		return "crashed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Stream identifies the pipe an output chunk came from.
type Stream int

const (
	Stdout Stream = iota
	Stderr
)

func (s Stream) String() string {
	if s == Stderr {
		return "stderr"
	}
	return "stdout"
}

// Chunk is one read from a server output pipe. Chunks are not line aligned.
type Chunk struct {
	Stream Stream
	Data   string
}

// ExitInfo describes how a server handle closed.
type ExitInfo struct {
	PID int
	// Code is -1 when the process did not exit normally.
	Code      int
	Err       error
	Requested bool
	At        time.Time
}

// Status is a point-in-time view of the server.
type Status struct {
	State     State
	Running   bool
	PID       int
	StartedAt time.Time
	LastExit  *ExitInfo
}

var (
	// ErrNotRunning is returned when writing to a server that is not running.
	ErrNotRunning = errors.New("server process is not running")
	// ErrStopTimeout is returned when the server ignored the stop command and
	// had to be killed.
	ErrStopTimeout = errors.New("server did not stop in time and was killed")
)

// SpawnError reports that the server executable could not be launched.
type SpawnError struct {
	Path string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %s: %v", e.Path, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }
