package backup

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

type fakeController struct {
	calls      []string
	stopErr    error
	restartErr error
}

func (f *fakeController) Stop(context.Context) error {
	f.calls = append(f.calls, "stop")
	return f.stopErr
}

func (f *fakeController) Restart() error {
	f.calls = append(f.calls, "restart")
	return f.restartErr
}

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func newTestManager(t *testing.T, copier Copier) (*Manager, *fakeController, string) {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "world", "level.dat"), "v1")
	writeFile(t, filepath.Join(root, "world", "region", "r.0.0.mca"), "chunks")

	ctl := &fakeController{}
	m := NewManager(NewStore(root, "world", copier), ctl, log.New(io.Discard))
	m.now = func() time.Time { return time.Date(2024, 3, 9, 14, 5, 33, 0, time.UTC) }
	return m, ctl, root
}

func TestNameAtReplacesFirstColonOnly(t *testing.T) {
	got := NameAt("world", time.Date(2024, 3, 9, 14, 5, 33, 0, time.UTC))
	if got != "world-2024-03-09 14-05:33" {
		t.Fatalf("unexpected name %q", got)
	}
}

func TestBackupCopiesStateAndRestarts(t *testing.T) {
	m, ctl, root := newTestManager(t, nil)

	rec, err := m.Backup(context.Background())
	if err != nil {
		t.Fatalf("Backup failed: %v", err)
	}
	if rec.Name != "world-2024-03-09 14-05:33" {
		t.Fatalf("unexpected backup name %q", rec.Name)
	}
	if got := readFile(t, filepath.Join(root, rec.Name, "region", "r.0.0.mca")); got != "chunks" {
		t.Fatalf("backup content mismatch: %q", got)
	}
	if !reflect.DeepEqual(ctl.calls, []string{"stop", "restart"}) {
		t.Fatalf("unexpected controller calls %v", ctl.calls)
	}

	list, err := m.Store().List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 1 || list[0].Name != rec.Name {
		t.Fatalf("expected catalog to contain the new backup, got %+v", list)
	}
}

func TestBackupCopyFailureLeavesServerStopped(t *testing.T) {
	copyErr := errors.New("disk full")
	failing := CopierFunc(func(src, dst string) error {
		if err := os.MkdirAll(dst, 0o755); err != nil {
			return err
		}
		return copyErr
	})
	m, ctl, root := newTestManager(t, failing)

	_, err := m.Backup(context.Background())
	var ce *CopyError
	if !errors.As(err, &ce) || ce.Op != "backup" {
		t.Fatalf("expected backup CopyError, got %v", err)
	}
	if !errors.Is(err, copyErr) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
	if !reflect.DeepEqual(ctl.calls, []string{"stop"}) {
		t.Fatalf("server must stay stopped, calls=%v", ctl.calls)
	}
	if exists(filepath.Join(root, "world-2024-03-09 14-05:33")) {
		t.Fatalf("partial backup should be removed")
	}
}

func TestBackupSameSecondGetsSuffix(t *testing.T) {
	m, ctl, root := newTestManager(t, nil)
	existing := filepath.Join(root, "world-2024-03-09 14-05:33")
	writeFile(t, filepath.Join(existing, "keep"), "old")

	rec, err := m.Backup(context.Background())
	if err != nil {
		t.Fatalf("Backup failed: %v", err)
	}
	if rec.Name != "world-2024-03-09 14-05:33-2" {
		t.Fatalf("unexpected backup name %q", rec.Name)
	}
	if got := readFile(t, filepath.Join(existing, "keep")); got != "old" {
		t.Fatalf("existing backup must be untouched")
	}
	if got := readFile(t, filepath.Join(rec.Path, "level.dat")); got != "v1" {
		t.Fatalf("unexpected backup contents %q", got)
	}
	if !reflect.DeepEqual(ctl.calls, []string{"stop", "restart"}) {
		t.Fatalf("unexpected calls %v", ctl.calls)
	}

	third, err := m.Backup(context.Background())
	if err != nil {
		t.Fatalf("third Backup failed: %v", err)
	}
	if third.Name != "world-2024-03-09 14-05:33-3" {
		t.Fatalf("unexpected backup name %q", third.Name)
	}
	list, err := m.Store().List()
	if err != nil || len(list) != 3 || list[0].Name != third.Name {
		t.Fatalf("unexpected list %+v %v", list, err)
	}
}

func TestBackupStopFailure(t *testing.T) {
	m, ctl, _ := newTestManager(t, nil)
	ctl.stopErr = errors.New("stuck")
	if _, err := m.Backup(context.Background()); err == nil || !strings.Contains(err.Error(), "stuck") {
		t.Fatalf("expected stop error, got %v", err)
	}
}

func TestRollbackRestoresBackupAndKeepsSafetyCopy(t *testing.T) {
	m, ctl, root := newTestManager(t, nil)
	rec, err := m.Backup(context.Background())
	if err != nil {
		t.Fatalf("Backup failed: %v", err)
	}
	writeFile(t, filepath.Join(root, "world", "level.dat"), "v2")
	writeFile(t, filepath.Join(root, "world", "new.dat"), "x")
	// stale safety copy from an earlier rollback
	writeFile(t, filepath.Join(root, "world.old", "stale"), "s")
	ctl.calls = nil

	if err := m.Rollback(context.Background(), rec.Name); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}
	if got := readFile(t, filepath.Join(root, "world", "level.dat")); got != "v1" {
		t.Fatalf("expected restored level.dat, got %q", got)
	}
	if exists(filepath.Join(root, "world", "new.dat")) {
		t.Fatalf("files newer than the backup must be gone")
	}
	if got := readFile(t, filepath.Join(root, "world.old", "level.dat")); got != "v2" {
		t.Fatalf("expected safety copy of replaced state, got %q", got)
	}
	if exists(filepath.Join(root, "world.old", "stale")) {
		t.Fatalf("stale safety copy should be replaced")
	}
	if !reflect.DeepEqual(ctl.calls, []string{"stop", "restart"}) {
		t.Fatalf("unexpected controller calls %v", ctl.calls)
	}
	if got := readFile(t, filepath.Join(root, rec.Name, "level.dat")); got != "v1" {
		t.Fatalf("backup must survive rollback")
	}
}

func TestRollbackUnknownNameDoesNotStop(t *testing.T) {
	m, ctl, _ := newTestManager(t, nil)
	err := m.Rollback(context.Background(), "world-1999-01-01 00-00:00")
	if !errors.Is(err, ErrBackupNotFound) {
		t.Fatalf("expected ErrBackupNotFound, got %v", err)
	}
	if len(ctl.calls) != 0 {
		t.Fatalf("server must not be touched, calls=%v", ctl.calls)
	}
}

func TestRollbackRejectsTraversal(t *testing.T) {
	m, ctl, _ := newTestManager(t, nil)
	for _, name := range []string{"", "..", "../etc", "world/../../x"} {
		if err := m.Rollback(context.Background(), name); !errors.Is(err, ErrInvalidName) {
			t.Fatalf("%q: expected ErrInvalidName, got %v", name, err)
		}
	}
	if len(ctl.calls) != 0 {
		t.Fatalf("server must not be touched, calls=%v", ctl.calls)
	}
}

func TestRollbackCopyFailureLeavesServerStopped(t *testing.T) {
	m, ctl, root := newTestManager(t, nil)
	rec, err := m.Backup(context.Background())
	if err != nil {
		t.Fatalf("Backup failed: %v", err)
	}
	ctl.calls = nil

	copyErr := errors.New("io error")
	m.store.copier = CopierFunc(func(src, dst string) error {
		if filepath.Base(dst) == "world" {
			return copyErr
		}
		return TreeCopier.CopyTree(src, dst)
	})

	err = m.Rollback(context.Background(), rec.Name)
	var ce *CopyError
	if !errors.As(err, &ce) || ce.Op != "rollback" || !errors.Is(err, copyErr) {
		t.Fatalf("expected rollback CopyError, got %v", err)
	}
	if !reflect.DeepEqual(ctl.calls, []string{"stop"}) {
		t.Fatalf("server must stay stopped, calls=%v", ctl.calls)
	}
	if got := readFile(t, filepath.Join(root, "world.old", "level.dat")); got != "v1" {
		t.Fatalf("safety copy should hold the replaced state")
	}
}

func TestListOrdersNewestFirstAndSkipsOthers(t *testing.T) {
	root := t.TempDir()
	for _, d := range []string{
		"world",
		"world.old",
		"world-2024-01-01 10-00:00",
		"world-2024-02-01 10-00:00",
		"other-2024-03-01 10-00:00",
	} {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	writeFile(t, filepath.Join(root, "world-2024-05-01 10-00:00"), "not a dir")

	list, err := NewStore(root, "world", nil).List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	var names []string
	for _, r := range list {
		names = append(names, r.Name)
	}
	want := []string{"world-2024-02-01 10-00:00", "world-2024-01-01 10-00:00"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("got %v want %v", names, want)
	}
}
