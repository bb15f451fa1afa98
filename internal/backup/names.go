package backup

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// TimestampLayout formats backup timestamps. Only the first time separator is
// replaced so names stay compatible with backups taken by earlier releases,
// e.g. "world-2024-03-09 14-05:33".
const TimestampLayout = "2006-01-02 15-04:05"

// SafetySuffix is appended to the state name for the copy kept by rollback.
const SafetySuffix = ".old"

const maxNameLen = 128

// NameAt returns the backup name for state taken at t.
func NameAt(state string, t time.Time) string {
	return state + "-" + t.Format(TimestampLayout)
}

// freeName returns NameAt for t, suffixed with -2, -3, ... while that name is
// already taken. Suffixed names still sort after the plain one.
func (s *Store) freeName(t time.Time) string {
	base := NameAt(s.state, t)
	name := base
	for n := 2; exists(s.PathFor(name)); n++ {
		name = fmt.Sprintf("%s-%d", base, n)
	}
	return name
}

// validateName rejects names that could escape the state root.
func validateName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", fmt.Errorf("%w: name is empty", ErrInvalidName)
	}
	if len(name) > maxNameLen {
		return "", fmt.Errorf("%w: %q is too long (max %d characters)", ErrInvalidName, name, maxNameLen)
	}
	if name == "." || name == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	for _, r := range name {
		if isAllowedNameRune(r) {
			continue
		}
		return "", fmt.Errorf("%w: %q contains invalid character %q", ErrInvalidName, name, r)
	}
	return name, nil
}

func isAllowedNameRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	switch r {
	case '-', '_', '.', ' ', ':':
		return true
	default:
		return false
	}
}
