package supervisor

import (
	"context"

	"srvctl/internal/process"
	"srvctl/internal/recorder"
)

// onOutput records every chunk and lets stdout resolve the in-flight command.
func (s *Supervisor) onOutput(c process.Chunk) {
	if c.Stream == process.Stderr {
		s.rec.Append(c.Data, recorder.KindStderr)
		return
	}
	s.rec.Append(c.Data, recorder.KindStdout)
	s.corr.Feed(c.Data)
}

func (s *Supervisor) onExit(info process.ExitInfo) {
	s.corr.ProcessExited()
	if !info.Requested {
		s.logger.Warn("server closed without a stop request", "pid", info.PID, "code", info.Code)
	}
}

// consoleWriter records command lines as stdin before handing them to the
// server.
type consoleWriter struct {
	s *Supervisor
}

func (w consoleWriter) WriteLine(line string) error {
	w.s.rec.Append(line, recorder.KindStdin)
	return w.s.proc.WriteLine(line)
}

// procControl gives the backup manager a bounded stop and a checked restart.
type procControl struct {
	s *Supervisor
}

// Stop waits up to StopTimeout for the server to close. Cancelling ctx does not
// shorten the wait.
func (c procControl) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.s.cfg.StopTimeout)
	defer cancel()
	return c.s.proc.Stop(ctx)
}

func (c procControl) Restart() error {
	return c.s.startAndSettle()
}
