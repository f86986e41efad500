package backup

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xelth-com/eckpunchgo/internal/database"
	"github.com/xelth-com/eckpunchgo/internal/ledger"
	"github.com/xelth-com/eckpunchgo/internal/models"
	"go.uber.org/zap"
)

func setupStore(t *testing.T) *ledger.Store {
	t.Helper()
	store, err := ledger.Open(ledger.Options{
		DB: database.Options{
			Path:        filepath.Join(t.TempDir(), "punches.db"),
			BusyTimeout: 5 * time.Second,
		},
		Location: "hall",
		DeviceID: "kiosk-1",
	}, zap.NewNop())
	require.NoError(t, err)
	return store
}

func readMirror(t *testing.T, path string) []Record {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var records []Record
	require.NoError(t, json.Unmarshal(data, &records))
	return records
}

type fakeUploader struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (u *fakeUploader) Upload(_ context.Context, key, _ string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.keys = append(u.keys, key)
	return u.err
}

func TestMirror_RefreshWritesLedger(t *testing.T) {
	store := setupStore(t)
	p, err := store.RecordPunch("AABBCC11", models.MovementIn, "Maria", "")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "mirror", "punches.json")
	mirror := NewMirror(store, path, zap.NewNop())
	require.NoError(t, mirror.Refresh())

	records := readMirror(t, path)
	require.Len(t, records, 1)
	assert.Equal(t, "AABBCC11", records[0].BadgeID)
	assert.Equal(t, "entrata", records[0].Movement)
	assert.Equal(t, p.Timestamp.UTC().Format(time.RFC3339), records[0].Timestamp)
	assert.Equal(t, p.IntegrityHash, records[0].IntegrityHash)
}

func TestMirror_NotifyRegenerates(t *testing.T) {
	store := setupStore(t)
	path := filepath.Join(t.TempDir(), "punches.json")
	mirror := NewMirror(store, path, zap.NewNop())
	store.OnChange(func(ledger.Change) { mirror.Notify() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mirror.Run(ctx)

	for i := 0; i < 3; i++ {
		_, err := store.RecordPunch("B", models.MovementIn, "", "")
		require.NoError(t, err)
	}

	assert.Eventually(t, func() bool {
		data, err := os.ReadFile(path)
		if err != nil {
			return false
		}
		var records []Record
		return json.Unmarshal(data, &records) == nil && len(records) == 3
	}, 2*time.Second, 10*time.Millisecond)
}

func TestMirror_NotifyNeverBlocks(t *testing.T) {
	mirror := NewMirror(nil, "unused", zap.NewNop())
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			mirror.Notify()
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked without a running mirror")
	}
}

func TestDailyBackup_CopiesStoreAndMirror(t *testing.T) {
	store := setupStore(t)
	_, err := store.RecordPunch("B1", models.MovementIn, "", "")
	require.NoError(t, err)

	mirror := NewMirror(store, filepath.Join(t.TempDir(), "punches.json"), zap.NewNop())
	uploader := &fakeUploader{}
	dir := t.TempDir()
	m := NewManager(store, mirror, dir, 30, uploader, zap.NewNop())
	m.now = func() time.Time { return time.Date(2025, 6, 1, 10, 0, 0, 0, time.Local) }

	target, err := m.DailyBackup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "backup_20250601_100000"), target)

	assert.FileExists(t, filepath.Join(target, "punches.db"))
	records := readMirror(t, filepath.Join(target, "punches.json"))
	assert.Len(t, records, 1)

	copyStore, err := ledger.Open(ledger.Options{
		DB: database.Options{Path: filepath.Join(target, "punches.db"), BusyTimeout: time.Second},
	}, zap.NewNop())
	require.NoError(t, err)
	all, err := copyStore.All()
	require.NoError(t, err)
	assert.Len(t, all, 1)

	assert.ElementsMatch(t, []string{
		"backup_20250601_100000/punches.db",
		"backup_20250601_100000/punches.json",
	}, uploader.keys)
}

func TestDailyBackup_UploadFailureKeepsLocalCopy(t *testing.T) {
	store := setupStore(t)
	m := NewManager(store, nil, t.TempDir(), 30, &fakeUploader{err: errors.New("offline")}, zap.NewNop())

	target, err := m.DailyBackup(context.Background())
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(target, "punches.db"))
}

type failingSnapshotter struct{ path string }

func (f failingSnapshotter) Snapshot(string) error { return errors.New("disk full") }
func (f failingSnapshotter) Path() string          { return f.path }

type brokenLedger struct{}

func (brokenLedger) All() ([]models.Punch, error) { return nil, errors.New("store is locked") }

func TestDailyBackup_FailedSnapshotLeavesNoDirectory(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(failingSnapshotter{path: "punches.db"}, nil, dir, 30, nil, zap.NewNop())

	target, err := m.DailyBackup(context.Background())
	assert.Error(t, err)
	assert.Empty(t, target)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDailyBackup_FailedMirrorLeavesNoDirectory(t *testing.T) {
	store := setupStore(t)
	dir := t.TempDir()
	mirror := NewMirror(brokenLedger{}, filepath.Join(t.TempDir(), "punches.json"), zap.NewNop())
	m := NewManager(store, mirror, dir, 30, nil, zap.NewNop())

	_, err := m.DailyBackup(context.Background())
	assert.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPrune_RemovesExpiredBackups(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2025, 6, 30, 12, 0, 0, 0, time.Local)
	for _, name := range []string{
		"backup_20250501_080000", // expired
		"backup_20250529_080000", // expired
		"backup_20250615_080000",
		"not_a_backup",
	} {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, name), 0o755))
	}

	m := NewManager(nil, nil, dir, 30, nil, zap.NewNop())
	m.now = func() time.Time { return now }

	removed, err := m.Prune()
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	assert.NoDirExists(t, filepath.Join(dir, "backup_20250501_080000"))
	assert.NoDirExists(t, filepath.Join(dir, "backup_20250529_080000"))
	assert.DirExists(t, filepath.Join(dir, "backup_20250615_080000"))
	assert.DirExists(t, filepath.Join(dir, "not_a_backup"))
}

func TestScheduler_StopIsIdempotent(t *testing.T) {
	s := NewScheduler(NewManager(nil, nil, t.TempDir(), 30, nil, zap.NewNop()), time.Hour, zap.NewNop())
	s.Start()
	s.Stop()
	s.Stop()
}
