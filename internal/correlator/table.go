package correlator

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Table maps command keywords to the matcher that signals their completion.
// It is immutable after construction.
type Table struct {
	m map[string]Matcher
}

// DefaultPatterns are the completion patterns known out of the box.
func DefaultPatterns() map[string]string {
	return map[string]string{"fill": "filled"}
}

// NewTable copies entries into a new Table.
func NewTable(entries map[string]Matcher) *Table {
	m := make(map[string]Matcher, len(entries))
	for k, v := range entries {
		m[k] = v
	}
	return &Table{m: m}
}

// CompileTable builds a Table from keyword -> regexp source pairs.
func CompileTable(patterns map[string]string) (*Table, error) {
	entries := make(map[string]Matcher, len(patterns))
	var errs []error
	for keyword, pattern := range patterns {
		if keyword == "" || strings.ContainsAny(keyword, " \t") {
			errs = append(errs, fmt.Errorf("invalid keyword %q", keyword))
			continue
		}
		re, err := NewRegexp(pattern)
		if err != nil {
			errs = append(errs, fmt.Errorf("keyword %s: %w", keyword, err))
			continue
		}
		entries[keyword] = re
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return NewTable(entries), nil
}

// Lookup returns the completion matcher for keyword.
func (t *Table) Lookup(keyword string) (Matcher, bool) {
	if t == nil {
		return nil, false
	}
	m, ok := t.m[keyword]
	return m, ok
}

// Keywords lists the registered keywords in sorted order.
func (t *Table) Keywords() []string {
	out := make([]string, 0, len(t.m))
	for k := range t.m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Keyword extracts the leading whitespace-delimited token of command.
func Keyword(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
