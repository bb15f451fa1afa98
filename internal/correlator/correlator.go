// Package correlator pairs a command written to the server console with the
// output that reports its outcome.
//
// The console stream carries no request identifiers, so correlation is a
// heuristic: while a command is in flight, the first output chunk that matches
// the error matcher fails it and the first chunk that matches the keyword's
// completion matcher succeeds it. Output printed for an unrelated reason can
// resolve the in-flight command. Only one command may be in flight at a time.
package correlator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

var (
	// ErrCommandFailed means the error indicator appeared in the output.
	ErrCommandFailed = errors.New("command reported an error")
	// ErrCommandTimeout means no resolving output arrived before the deadline.
	ErrCommandTimeout = errors.New("command timed out waiting for output")
	// ErrProcessExited means the server exited with the command still pending.
	ErrProcessExited = errors.New("server exited while command was in flight")
)

const defaultTimeout = 10 * time.Second

// LineWriter delivers one console line to the server.
type LineWriter interface {
	WriteLine(line string) error
}

// Result is the outcome of a correlated command.
type Result struct {
	Keyword string
	Command string
	// Output is the chunk that resolved the command, if any.
	Output string
	Err    error
}

// Options tunes a Correlator.
type Options struct {
	// ErrorMatcher detects failed commands. Defaults to Substring("error").
	ErrorMatcher Matcher
	// Timeout bounds how long a command may stay in flight.
	Timeout time.Duration
	Logger  *log.Logger
}

// Correlator owns the single in-flight command slot.
type Correlator struct {
	table    *Table
	errMatch Matcher
	timeout  time.Duration
	logger   *log.Logger

	mu       sync.Mutex
	inflight *Pending
}

// New builds a Correlator over table.
func New(table *Table, opts Options) *Correlator {
	if opts.ErrorMatcher == nil {
		opts.ErrorMatcher = Substring("error")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = log.Default().WithPrefix("correlator")
	}
	return &Correlator{
		table:    table,
		errMatch: opts.ErrorMatcher,
		timeout:  opts.Timeout,
		logger:   opts.Logger,
	}
}

// RunCommand issues command through w when its keyword is registered and no
// other command is in flight. It returns false, writing nothing, otherwise.
// A write failure resolves the returned Pending with that error.
func (c *Correlator) RunCommand(command string, w LineWriter) (*Pending, bool) {
	keyword := Keyword(command)
	matcher, ok := c.table.Lookup(keyword)
	if !ok {
		c.logger.Debug("rejecting unknown command", "keyword", keyword)
		return nil, false
	}

	c.mu.Lock()
	if c.inflight != nil {
		busy := c.inflight.keyword
		c.mu.Unlock()
		c.logger.Debug("rejecting command while busy", "keyword", keyword, "inflight", busy)
		return nil, false
	}
	p := &Pending{
		keyword:  keyword,
		command:  command,
		matcher:  matcher,
		issued:   time.Now(),
		resolved: make(chan struct{}),
		c:        c,
	}
	c.inflight = p
	p.timer = time.AfterFunc(c.timeout, func() {
		c.resolve(p, Result{Err: ErrCommandTimeout})
	})
	c.mu.Unlock()

	if err := w.WriteLine(command); err != nil {
		c.resolve(p, Result{Err: err})
	}
	return p, true
}

// Feed tests one output chunk against the in-flight command and reports
// whether it resolved it.
func (c *Correlator) Feed(chunk string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.inflight
	if p == nil {
		return false
	}
	switch {
	case c.errMatch.Match(chunk):
		return c.resolveLocked(p, Result{Output: chunk, Err: ErrCommandFailed})
	case p.matcher.Match(chunk):
		return c.resolveLocked(p, Result{Output: chunk})
	}
	return false
}

// ProcessExited fails the in-flight command, if any.
func (c *Correlator) ProcessExited() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight != nil {
		c.resolveLocked(c.inflight, Result{Err: ErrProcessExited})
	}
}

// InFlight returns the keyword of the pending command.
func (c *Correlator) InFlight() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight == nil {
		return "", false
	}
	return c.inflight.keyword, true
}

func (c *Correlator) resolve(p *Pending, res Result) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resolveLocked(p, res)
}

func (c *Correlator) resolveLocked(p *Pending, res Result) bool {
	if c.inflight != p {
		return false
	}
	c.inflight = nil
	p.timer.Stop()

	res.Keyword = p.keyword
	res.Command = p.command
	p.result = res
	close(p.resolved)

	if res.Err != nil {
		c.logger.Debug("command resolved", "keyword", p.keyword, "err", res.Err, "elapsed", time.Since(p.issued))
	} else {
		c.logger.Debug("command resolved", "keyword", p.keyword, "elapsed", time.Since(p.issued))
	}
	return true
}

// Pending is a command awaiting its outcome. It resolves exactly once.
type Pending struct {
	keyword string
	command string
	matcher Matcher
	issued  time.Time
	timer   *time.Timer
	c       *Correlator

	resolved chan struct{}
	result   Result
}

// Keyword returns the command keyword.
func (p *Pending) Keyword() string { return p.keyword }

// Done is closed once the command resolves.
func (p *Pending) Done() <-chan struct{} { return p.resolved }

// Result returns the outcome; only meaningful after Done is closed.
func (p *Pending) Result() Result {
	<-p.resolved
	return p.result
}

// Wait blocks until the command resolves or ctx ends. Cancelling ctx resolves
// the command with the context error and frees the slot.
func (p *Pending) Wait(ctx context.Context) (Result, error) {
	select {
	case <-p.resolved:
	case <-ctx.Done():
		p.c.resolve(p, Result{Err: ctx.Err()})
	}
	res := p.Result()
	return res, res.Err
}
