package supervisor

import (
	"errors"
	"fmt"

	"srvctl/internal/process"
)

var (
	// ErrCommandRejected means the command keyword has no completion pattern.
	ErrCommandRejected = errors.New("command rejected")
	// ErrBusy means another command or operation holds the supervisor.
	ErrBusy = errors.New("supervisor is busy")
	// ErrNotNeeded is returned by a non-forced restart of a running server.
	ErrNotNeeded = errors.New("server is running, restart not needed")
)

// RestartError reports that the server did not come up after a restart.
type RestartError struct {
	Err  error
	Exit *process.ExitInfo
}

func (e *RestartError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("server restart failed: %v", e.Err)
	case e.Exit != nil:
		return fmt.Sprintf("server restart failed: exited with code %d", e.Exit.Code)
	default:
		return "server restart failed"
	}
}

func (e *RestartError) Unwrap() error { return e.Err }
