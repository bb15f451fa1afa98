package correlator

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

type recordingWriter struct {
	mu    sync.Mutex
	lines []string
	err   error
}

func (w *recordingWriter) WriteLine(line string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.lines = append(w.lines, line+"\n")
	return nil
}

func (w *recordingWriter) written() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.lines...)
}

func newTestCorrelator(t *testing.T, timeout time.Duration) *Correlator {
	t.Helper()
	table, err := CompileTable(DefaultPatterns())
	if err != nil {
		t.Fatalf("CompileTable failed: %v", err)
	}
	return New(table, Options{Timeout: timeout, Logger: log.New(io.Discard)})
}

func waitResult(t *testing.T, p *Pending) (Result, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return p.Wait(ctx)
}

func TestRunCommandRejectsUnknownKeyword(t *testing.T) {
	c := newTestCorrelator(t, time.Second)
	w := &recordingWriter{}

	if p, ok := c.RunCommand("give steve diamond", w); ok || p != nil {
		t.Fatalf("expected rejection for unknown keyword")
	}
	if got := w.written(); len(got) != 0 {
		t.Fatalf("expected nothing written, got %q", got)
	}
	if _, busy := c.InFlight(); busy {
		t.Fatalf("slot should stay empty")
	}
}

func TestRunCommandRejectsEmpty(t *testing.T) {
	c := newTestCorrelator(t, time.Second)
	if _, ok := c.RunCommand("   ", &recordingWriter{}); ok {
		t.Fatalf("expected rejection for blank command")
	}
}

func TestRunCommandSuccess(t *testing.T) {
	c := newTestCorrelator(t, time.Second)
	w := &recordingWriter{}

	p, ok := c.RunCommand("fill x y z block", w)
	if !ok {
		t.Fatalf("expected command to be accepted")
	}
	if got := w.written(); len(got) != 1 || got[0] != "fill x y z block\n" {
		t.Fatalf("unexpected write %q", got)
	}
	if kw, busy := c.InFlight(); !busy || kw != "fill" {
		t.Fatalf("expected fill in flight, got %q %v", kw, busy)
	}

	if c.Feed("Done (3.2s)! For help, type \"help\"") {
		t.Fatalf("unrelated chunk should not resolve")
	}
	if !c.Feed("1 blocks filled") {
		t.Fatalf("expected success chunk to resolve")
	}
	if c.Feed("2 blocks filled") {
		t.Fatalf("second chunk must not resolve again")
	}

	res, err := waitResult(t, p)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if res.Keyword != "fill" || res.Output != "1 blocks filled" || res.Command != "fill x y z block" {
		t.Fatalf("unexpected result %+v", res)
	}
	if _, busy := c.InFlight(); busy {
		t.Fatalf("slot should be cleared after resolution")
	}
}

func TestRunCommandRejectsWhileBusy(t *testing.T) {
	c := newTestCorrelator(t, time.Second)
	w := &recordingWriter{}

	first, ok := c.RunCommand("fill 0 0 0 1 1 1 stone", w)
	if !ok {
		t.Fatalf("expected first command to be accepted")
	}
	if _, ok := c.RunCommand("fill 2 2 2 3 3 3 dirt", w); ok {
		t.Fatalf("expected second command to be rejected")
	}
	if _, ok := c.RunCommand("unknown", w); ok {
		t.Fatalf("expected unknown command to be rejected")
	}
	if got := w.written(); len(got) != 1 {
		t.Fatalf("expected only the first write, got %q", got)
	}

	select {
	case <-first.Done():
		t.Fatalf("first command must not be resolved by rejections")
	default:
	}

	c.Feed("8 blocks filled")
	if _, err := waitResult(t, first); err != nil {
		t.Fatalf("expected first command to succeed, got %v", err)
	}
}

func TestErrorChunkWinsOverSuccess(t *testing.T) {
	c := newTestCorrelator(t, time.Second)
	p, ok := c.RunCommand("fill a b c block", &recordingWriter{})
	if !ok {
		t.Fatalf("expected command to be accepted")
	}

	c.Feed("Unknown or incomplete command, see below for error")
	c.Feed("1 blocks filled")

	res, err := waitResult(t, p)
	if !errors.Is(err, ErrCommandFailed) {
		t.Fatalf("expected ErrCommandFailed, got %v", err)
	}
	if res.Output != "Unknown or incomplete command, see below for error" {
		t.Fatalf("unexpected resolving chunk %q", res.Output)
	}
	if _, busy := c.InFlight(); busy {
		t.Fatalf("slot should be cleared after error")
	}
}

func TestErrorAndSuccessInSameChunk(t *testing.T) {
	c := newTestCorrelator(t, time.Second)
	p, _ := c.RunCommand("fill a b c block", &recordingWriter{})
	c.Feed("error: 0 blocks filled")
	if _, err := waitResult(t, p); !errors.Is(err, ErrCommandFailed) {
		t.Fatalf("error indicator must take priority, got %v", err)
	}
}

func TestTimeoutClearsSlot(t *testing.T) {
	c := newTestCorrelator(t, 30*time.Millisecond)
	p, ok := c.RunCommand("fill 1 2 3 stone", &recordingWriter{})
	if !ok {
		t.Fatalf("expected command to be accepted")
	}

	if _, err := waitResult(t, p); !errors.Is(err, ErrCommandTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if _, busy := c.InFlight(); busy {
		t.Fatalf("slot should be cleared after timeout")
	}
	if _, ok := c.RunCommand("fill 1 2 3 stone", &recordingWriter{}); !ok {
		t.Fatalf("expected a new command to be accepted after timeout")
	}
}

func TestWaitContextCancel(t *testing.T) {
	c := newTestCorrelator(t, time.Minute)
	p, _ := c.RunCommand("fill 1 2 3 stone", &recordingWriter{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, busy := c.InFlight(); busy {
		t.Fatalf("slot should be cleared after cancel")
	}
}

func TestWriteFailureResolvesPending(t *testing.T) {
	c := newTestCorrelator(t, time.Minute)
	writeErr := errors.New("broken pipe")
	p, ok := c.RunCommand("fill 1 2 3 stone", &recordingWriter{err: writeErr})
	if !ok {
		t.Fatalf("expected command to be accepted before the write")
	}
	if _, err := waitResult(t, p); !errors.Is(err, writeErr) {
		t.Fatalf("expected write error, got %v", err)
	}
}

func TestProcessExitedFailsPending(t *testing.T) {
	c := newTestCorrelator(t, time.Minute)
	p, _ := c.RunCommand("fill 1 2 3 stone", &recordingWriter{})
	c.ProcessExited()
	if _, err := waitResult(t, p); !errors.Is(err, ErrProcessExited) {
		t.Fatalf("expected ErrProcessExited, got %v", err)
	}
	c.ProcessExited()
}

func TestFeedWithoutInflightIsIgnored(t *testing.T) {
	c := newTestCorrelator(t, time.Second)
	if c.Feed("1 blocks filled") {
		t.Fatalf("feed without a pending command must not resolve anything")
	}
}

func TestLegacySearchMatcher(t *testing.T) {
	m := LegacySearch("error")
	if !m.Match("1 blocks filled") {
		t.Fatalf("legacy search treats a missing needle as a match")
	}
	if m.Match("error at start") {
		t.Fatalf("legacy search treats offset 0 as no match")
	}
	if Substring("error").Match("1 blocks filled") {
		t.Fatalf("substring must not match absent text")
	}
}

func TestCompileTableRejectsBadInput(t *testing.T) {
	if _, err := CompileTable(map[string]string{"fill": "("}); err == nil {
		t.Fatalf("expected regexp compile error")
	}
	if _, err := CompileTable(map[string]string{"two words": "x"}); err == nil {
		t.Fatalf("expected keyword error")
	}
	table, err := CompileTable(map[string]string{"fill": "filled", "say": "said"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kws := table.Keywords(); len(kws) != 2 || kws[0] != "fill" || kws[1] != "say" {
		t.Fatalf("unexpected keywords %v", kws)
	}
}

func TestKeyword(t *testing.T) {
	cases := map[string]string{
		"fill x y z block": "fill",
		"  fill\tx":        "fill",
		"":                 "",
		"stop":             "stop",
	}
	for in, want := range cases {
		if got := Keyword(in); got != want {
			t.Fatalf("Keyword(%q) = %q, want %q", in, got, want)
		}
	}
}
