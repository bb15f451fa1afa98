package console

import (
	"context"
	"errors"
	"io"
	"reflect"
	"testing"

	"github.com/charmbracelet/log"

	"srvctl/internal/correlator"
	"srvctl/internal/recorder"
)

type stubExecutor struct {
	ran   []string
	fails map[string]error
}

func (s *stubExecutor) Exec(_ context.Context, command string) (correlator.Result, error) {
	s.ran = append(s.ran, command)
	if err := s.fails[command]; err != nil {
		return correlator.Result{Command: command, Err: err}, err
	}
	return correlator.Result{Command: command}, nil
}

func newTestConsole(exec Executor) (*Console, *recorder.Recorder) {
	logger := log.New(io.Discard)
	rec := recorder.New(logger)
	return New(exec, rec, logger), rec
}

func TestSplit(t *testing.T) {
	got := Split("fill 0 0 0 1 1 1 stone; say hi\n\n  fill 1 1 1 2 2 2 air ;;")
	want := []string{"fill 0 0 0 1 1 1 stone", "say hi", "fill 1 1 1 2 2 2 air"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %q want %q", got, want)
	}
	if got := Split("  \n ; "); len(got) != 0 {
		t.Fatalf("expected no commands, got %q", got)
	}
}

func TestHandleSingleCommandSuccess(t *testing.T) {
	exec := &stubExecutor{}
	c, rec := newTestConsole(exec)

	out := c.Handle(context.Background(), "fill 0 0 0 1 1 1 stone")
	if !out.OK() {
		t.Fatalf("unexpected failure %+v", out)
	}
	if n := len(rec.Entries(recorder.KindUserIn)); n != 0 {
		t.Fatalf("single command input should not be echoed, got %d entries", n)
	}
	userOut := rec.Entries(recorder.KindUserOut)
	if len(userOut) != 1 || userOut[0].Data != "Success: fill 0 0 0 1 1 1 stone" {
		t.Fatalf("unexpected userOut %+v", userOut)
	}
}

func TestHandleStopsAtFirstFailure(t *testing.T) {
	boom := errors.New("boom")
	exec := &stubExecutor{fails: map[string]error{"say hi": boom}}
	c, rec := newTestConsole(exec)

	input := "fill 0 0 0 1 1 1 stone;say hi;fill 1 1 1 2 2 2 air"
	out := c.Handle(context.Background(), input)
	if out.OK() || out.Failed != "say hi" || !errors.Is(out.Err, boom) {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if !reflect.DeepEqual(exec.ran, []string{"fill 0 0 0 1 1 1 stone", "say hi"}) {
		t.Fatalf("commands after the failure must not run, ran %q", exec.ran)
	}

	userIn := rec.Entries(recorder.KindUserIn)
	if len(userIn) != 1 || userIn[0].Data != input {
		t.Fatalf("expected raw input recorded, got %+v", userIn)
	}
	userErr := rec.Entries(recorder.KindUserError)
	if len(userErr) != 1 || userErr[0].Data != "Failed: "+input {
		t.Fatalf("unexpected userError %+v", userErr)
	}
	if n := len(rec.Entries(recorder.KindUserOut)); n != 0 {
		t.Fatalf("no success entry expected, got %d", n)
	}
}

func TestHandlePaddedSingleCommandIsEchoed(t *testing.T) {
	c, rec := newTestConsole(&stubExecutor{})
	c.Handle(context.Background(), " fill 0 0 0 1 1 1 stone ")
	if n := len(rec.Entries(recorder.KindUserIn)); n != 1 {
		t.Fatalf("input differing from its command should be recorded, got %d", n)
	}
}
