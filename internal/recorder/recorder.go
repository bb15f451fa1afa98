// Package recorder keeps a short history of the lines exchanged with the
// supervised server so front ends can display recent console activity.
package recorder

import (
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Capacity is the number of entries kept before the oldest is dropped.
const Capacity = 128

// Kind tags where a recorded line came from.
type Kind string

const (
	KindStdin     Kind = "stdin"
	KindStdout    Kind = "stdout"
	KindStderr    Kind = "stderr"
	KindUserIn    Kind = "userIn"
	KindUserOut   Kind = "userOut"
	KindUserError Kind = "userError"
)

// ParseKind maps a wire name back to a Kind.
func ParseKind(s string) (Kind, bool) {
	switch k := Kind(s); k {
	case KindStdin, KindStdout, KindStderr, KindUserIn, KindUserOut, KindUserError:
		return k, true
	}
	return "", false
}

// Entry is one recorded line.
type Entry struct {
	Index uint64
	Kind  Kind
	Data  string
	Time  time.Time
}

// Recorder is a bounded, threadsafe ring of entries. It is sink-only for the
// supervisor; nothing in the core reads it back.
type Recorder struct {
	mu      sync.RWMutex
	next    uint64
	entries []Entry
	limit   int
	logger  *log.Logger
}

// New returns a Recorder holding at most Capacity entries. A nil logger disables
// line logging.
func New(logger *log.Logger) *Recorder {
	return newWithLimit(logger, Capacity)
}

func newWithLimit(logger *log.Logger, limit int) *Recorder {
	return &Recorder{
		entries: make([]Entry, 0, limit),
		limit:   limit,
		logger:  logger,
	}
}

// Append records data stamped with the current time.
func (r *Recorder) Append(data string, kind Kind) {
	r.AppendAt(data, kind, time.Now())
}

// AppendAt records data with an explicit timestamp.
func (r *Recorder) AppendAt(data string, kind Kind, t time.Time) {
	if r == nil {
		return
	}

	r.mu.Lock()
	r.entries = append(r.entries, Entry{Index: r.next, Kind: kind, Data: data, Time: t})
	r.next++
	if over := len(r.entries) - r.limit; over > 0 {
		r.entries = append(r.entries[:0], r.entries[over:]...)
	}
	r.mu.Unlock()

	if r.logger != nil {
		r.logger.Info(escapeNewlines(data), "kind", kind, "at", t.Format(time.DateTime))
	}
}

// Entries returns a copy of the recorded entries, oldest first. With kinds
// given, only entries of those kinds are returned.
func (r *Recorder) Entries(kinds ...Kind) []Entry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		if len(kinds) == 0 || hasKind(kinds, e.Kind) {
			out = append(out, e)
		}
	}
	return out
}

// Len reports how many entries are currently held.
func (r *Recorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func hasKind(kinds []Kind, k Kind) bool {
	for _, want := range kinds {
		if want == k {
			return true
		}
	}
	return false
}

var newlineReplacer = strings.NewReplacer("\r\n", `\n`, "\n", `\n`)

func escapeNewlines(s string) string {
	return newlineReplacer.Replace(s)
}
