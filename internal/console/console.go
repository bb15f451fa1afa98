// Package console handles free-form input typed by an operator: one or more
// commands run in order, with the outcome recorded in the console history.
package console

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"

	"srvctl/internal/correlator"
	"srvctl/internal/recorder"
)

// Executor runs a single correlated command.
type Executor interface {
	Exec(ctx context.Context, command string) (correlator.Result, error)
}

// Outcome describes how one Handle call ended.
type Outcome struct {
	Commands []string
	// Failed is the command that stopped the run, empty on success.
	Failed string
	Err    error
}

// OK reports whether every command succeeded.
func (o Outcome) OK() bool { return o.Err == nil }

// Console feeds operator input to an Executor.
type Console struct {
	exec   Executor
	rec    *recorder.Recorder
	logger *log.Logger
}

// New returns a Console recording into rec.
func New(exec Executor, rec *recorder.Recorder, logger *log.Logger) *Console {
	if logger == nil {
		logger = log.Default().WithPrefix("console")
	}
	return &Console{exec: exec, rec: rec, logger: logger}
}

// Split breaks input into commands on newlines and semicolons, dropping
// blanks.
func Split(input string) []string {
	fields := strings.FieldsFunc(input, func(r rune) bool {
		return r == '\n' || r == '\r' || r == ';'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Handle runs every command in input in order and stops at the first failure.
// Input that is not exactly one command is recorded as typed.
func (c *Console) Handle(ctx context.Context, input string) Outcome {
	commands := Split(input)
	out := Outcome{Commands: commands}
	if !(len(commands) == 1 && commands[0] == input) {
		c.rec.Append(input, recorder.KindUserIn)
	}

	for _, cmd := range commands {
		if _, err := c.exec.Exec(ctx, cmd); err != nil {
			c.logger.Debug("command failed", "command", cmd, "err", err)
			out.Failed = cmd
			out.Err = err
			c.rec.Append("Failed: "+input, recorder.KindUserError)
			return out
		}
	}
	c.rec.Append("Success: "+input, recorder.KindUserOut)
	return out
}
