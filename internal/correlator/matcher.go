package correlator

import (
	"fmt"
	"regexp"
	"strings"
)

// Matcher reports whether a chunk of console output carries a signal.
type Matcher interface {
	Match(chunk string) bool
}

// MatcherFunc adapts a plain function to Matcher.
type MatcherFunc func(chunk string) bool

func (f MatcherFunc) Match(chunk string) bool { return f(chunk) }

// Substring matches chunks that contain the literal text.
type Substring string

func (s Substring) Match(chunk string) bool {
	return strings.Contains(chunk, string(s))
}

// LegacySearch reproduces the original console heuristic: a chunk matches
// unless the text sits at offset 0. Absent text counts as a match. Only useful
// when replaying behaviour of older deployments.
type LegacySearch string

func (s LegacySearch) Match(chunk string) bool {
	return strings.Index(chunk, string(s)) != 0
}

// Regexp matches chunks where the expression finds a match anywhere.
type Regexp struct {
	re *regexp.Regexp
}

// NewRegexp compiles pattern into a Matcher.
func NewRegexp(pattern string) (Regexp, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Regexp{}, fmt.Errorf("compile pattern %q: %w", pattern, err)
	}
	return Regexp{re: re}, nil
}

// MustRegexp is NewRegexp for static patterns.
func MustRegexp(pattern string) Regexp {
	m, err := NewRegexp(pattern)
	if err != nil {
		panic(err)
	}
	return m
}

func (r Regexp) Match(chunk string) bool {
	return r.re != nil && r.re.MatchString(chunk)
}

func (r Regexp) String() string {
	if r.re == nil {
		return ""
	}
	return r.re.String()
}
