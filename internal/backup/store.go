package backup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/u-root/u-root/pkg/cp"
)

var (
	// ErrBackupNotFound is returned for names absent from the catalog.
	ErrBackupNotFound = errors.New("backup not found")
	// ErrInvalidName is returned for names that are not plain directory names.
	ErrInvalidName = errors.New("invalid backup name")
)

// Record is one backup directory in the catalog.
type Record struct {
	Name    string
	Path    string
	ModTime time.Time
}

// Copier copies a directory tree to a destination that does not exist yet.
type Copier interface {
	CopyTree(src, dst string) error
}

// CopierFunc adapts a function to Copier.
type CopierFunc func(src, dst string) error

func (f CopierFunc) CopyTree(src, dst string) error { return f(src, dst) }

// TreeCopier copies with u-root's cp, preserving symlinks as links.
var TreeCopier Copier = CopierFunc(cp.NoFollowSymlinks.CopyTree)

// Store locates the live state directory and its backups under one root. The
// catalog is read from the directory listing on every call; nothing else is
// persisted.
type Store struct {
	root   string
	state  string
	copier Copier
	remove func(string) error
}

// NewStore returns a Store for root/state. A nil copier uses TreeCopier.
func NewStore(root, state string, copier Copier) *Store {
	if copier == nil {
		copier = TreeCopier
	}
	return &Store{root: root, state: state, copier: copier, remove: os.RemoveAll}
}

// Root is the directory holding the live state and backups.
func (s *Store) Root() string { return s.root }

// LivePath is the live state directory.
func (s *Store) LivePath() string { return filepath.Join(s.root, s.state) }

// SafetyPath is where rollback keeps the replaced live state.
func (s *Store) SafetyPath() string { return filepath.Join(s.root, s.state+SafetySuffix) }

// PathFor returns the directory of the named backup.
func (s *Store) PathFor(name string) string { return filepath.Join(s.root, name) }

// List returns the backups of the live state, newest first.
func (s *Store) List() ([]Record, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.root, err)
	}
	prefix := s.state + "-"
	out := make([]Record, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Record{
			Name:    e.Name(),
			Path:    filepath.Join(s.root, e.Name()),
			ModTime: info.ModTime(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		// Names embed a sortable timestamp.
		return out[i].Name > out[j].Name
	})
	return out, nil
}

// Lookup finds name in the catalog.
func (s *Store) Lookup(name string) (Record, error) {
	clean, err := validateName(name)
	if err != nil {
		return Record{}, err
	}
	records, err := s.List()
	if err != nil {
		return Record{}, err
	}
	for _, r := range records {
		if r.Name == clean {
			return r, nil
		}
	}
	return Record{}, fmt.Errorf("%w: %s", ErrBackupNotFound, clean)
}

func (s *Store) copyTree(src, dst string) error {
	if _, err := os.Stat(src); err != nil {
		return err
	}
	if _, err := os.Lstat(dst); err == nil {
		return fmt.Errorf("%s: %w", dst, os.ErrExist)
	}
	return s.copier.CopyTree(src, dst)
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
