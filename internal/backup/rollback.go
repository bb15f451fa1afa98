package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// Rollback replaces the live state with the named backup. Unknown names fail
// with ErrBackupNotFound before the server is touched. The replaced state is
// kept at SafetyPath until the next rollback.
func (m *Manager) Rollback(ctx context.Context, name string) error {
	rec, err := m.store.Lookup(name)
	if err != nil {
		return fmt.Errorf("rollback: %w", err)
	}

	m.logger.Info("rollback: stopping server", "backup", rec.Name)
	if err := m.ctl.Stop(ctx); err != nil {
		return fmt.Errorf("rollback: stop server: %w", err)
	}

	live := m.store.LivePath()
	safety := m.store.SafetyPath()

	if exists(safety) {
		if err := m.store.remove(safety); err != nil {
			return m.rollbackFailed("remove stale safety copy", safety, err)
		}
	}
	if err := m.store.copyTree(live, safety); err != nil {
		return m.rollbackFailed("save current state to", safety, err)
	}
	if err := m.store.remove(live); err != nil {
		return m.rollbackFailed("remove current state", live, err)
	}
	if err := m.store.copyTree(rec.Path, live); err != nil {
		return m.rollbackFailed("restore backup to", live, err)
	}

	if err := m.ctl.Restart(); err != nil {
		return fmt.Errorf("rollback to %s done but restart failed: %w", rec.Name, err)
	}
	m.logger.Info("rollback complete", "backup", rec.Name)
	return nil
}

func (m *Manager) rollbackFailed(step, path string, err error) error {
	m.logger.Error("rollback failed, server left stopped", "step", step, "path", path, "err", err)
	return &CopyError{Op: "rollback", Step: step, Path: path, Err: err}
}

func isExist(err error) bool {
	return errors.Is(err, os.ErrExist)
}
