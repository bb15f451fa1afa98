// Package backup takes and restores copies of the server's state directory.
//
// Both operations stop the server first and only restart it once every
// filesystem step has succeeded. On any failure the server is left stopped so
// a damaged state directory is never served. Copies are not crash-safe:
// rollback removes the live directory before the backup is copied into place,
// and a crash in between leaves only the safety copy.
package backup

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
)

// Controller stops and restarts the supervised server.
type Controller interface {
	// Stop asks the server to stop and returns once it has closed.
	Stop(ctx context.Context) error
	Restart() error
}

// CopyError reports a failed filesystem step. The server is stopped.
type CopyError struct {
	Op   string
	Step string
	Path string
	Err  error
}

func (e *CopyError) Error() string {
	return fmt.Sprintf("%s: %s %s: %v", e.Op, e.Step, e.Path, e.Err)
}

func (e *CopyError) Unwrap() error { return e.Err }

// Manager runs backup and rollback sequences. Callers serialise calls.
type Manager struct {
	store  *Store
	ctl    Controller
	now    func() time.Time
	logger *log.Logger
}

// NewManager returns a Manager acting on store through ctl.
func NewManager(store *Store, ctl Controller, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Default().WithPrefix("backup")
	}
	return &Manager{store: store, ctl: ctl, now: time.Now, logger: logger}
}

// Store exposes the catalog the manager works on.
func (m *Manager) Store() *Store { return m.store }

// Backup stops the server, copies the live state beside it under a
// timestamped name and restarts the server.
func (m *Manager) Backup(ctx context.Context) (Record, error) {
	name := m.store.freeName(m.now())
	rec := Record{Name: name, Path: m.store.PathFor(name)}

	m.logger.Info("backup: stopping server")
	if err := m.ctl.Stop(ctx); err != nil {
		return Record{}, fmt.Errorf("backup: stop server: %w", err)
	}

	m.logger.Info("backup: copying state", "from", m.store.LivePath(), "to", rec.Path)
	if err := m.store.copyTree(m.store.LivePath(), rec.Path); err != nil {
		m.logger.Error("backup failed, server left stopped", "name", name, "err", err)
		m.discardPartial(rec.Path, err)
		return Record{}, &CopyError{Op: "backup", Step: "copy state to", Path: rec.Path, Err: err}
	}
	rec.ModTime = m.now()

	if err := m.ctl.Restart(); err != nil {
		return rec, fmt.Errorf("backup %s taken but restart failed: %w", name, err)
	}
	m.logger.Info("backup complete", "name", name)
	return rec, nil
}

// discardPartial removes a half-written backup so it never shows up in the
// catalog. An existing directory with the same name is left untouched.
func (m *Manager) discardPartial(path string, cause error) {
	if isExist(cause) || !exists(path) {
		return
	}
	if err := m.store.remove(path); err != nil {
		m.logger.Warn("could not remove partial backup", "path", path, "err", err)
	}
}
