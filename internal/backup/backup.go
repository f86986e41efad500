package backup

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

const dirPrefix = "backup_"
const dirLayout = "20060102_150405"

// Snapshotter copies the primary store consistently
type Snapshotter interface {
	Snapshot(dst string) error
	Path() string
}

// Uploader ships a finished backup file offsite
type Uploader interface {
	Upload(ctx context.Context, key, file string) error
}

// Manager produces timestamped backups and enforces retention
type Manager struct {
	store     Snapshotter
	mirror    *Mirror
	dir       string
	retention time.Duration
	uploader  Uploader
	now       func() time.Time
	log       *zap.Logger
}

// NewManager creates a backup manager. uploader may be nil.
func NewManager(store Snapshotter, mirror *Mirror, dir string, retentionDays int, uploader Uploader, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	if retentionDays < 1 {
		retentionDays = 30
	}
	return &Manager{
		store:     store,
		mirror:    mirror,
		dir:       dir,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		uploader:  uploader,
		now:       time.Now,
		log:       log.Named("backup"),
	}
}

// DailyBackup writes the store and its mirror to a new timestamped
// directory, then prunes backups past retention. It returns the directory.
func (m *Manager) DailyBackup(ctx context.Context) (string, error) {
	name := dirPrefix + m.now().Format(dirLayout)
	target := filepath.Join(m.dir, name)
	if err := os.MkdirAll(target, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	var files []string
	storeCopy := filepath.Join(target, filepath.Base(m.store.Path()))
	if err := m.store.Snapshot(storeCopy); err != nil {
		m.log.Error("store backup failed", zap.String("dir", target), zap.Error(err))
		m.discard(target)
		return "", fmt.Errorf("failed to snapshot store: %w", err)
	}
	files = append(files, storeCopy)

	if m.mirror != nil {
		mirrorCopy := filepath.Join(target, filepath.Base(m.mirror.Path()))
		if err := m.mirror.WriteTo(mirrorCopy); err != nil {
			m.log.Error("mirror backup failed", zap.String("dir", target), zap.Error(err))
			m.discard(target)
			return "", fmt.Errorf("failed to write mirror: %w", err)
		}
		files = append(files, mirrorCopy)
	}

	if m.uploader != nil {
		for _, f := range files {
			key := path.Join(name, filepath.Base(f))
			if err := m.uploader.Upload(ctx, key, f); err != nil {
				// Offsite copy is best effort, the local backup stands.
				m.log.Warn("offsite upload failed", zap.String("key", key), zap.Error(err))
			}
		}
	}

	removed, err := m.Prune()
	if err != nil {
		m.log.Warn("backup pruning failed", zap.Error(err))
	}

	m.log.Info("backup completed", zap.String("dir", target), zap.Int("pruned", removed))
	return target, nil
}

// discard removes a backup directory left incomplete by a failed run
func (m *Manager) discard(target string) {
	if err := os.RemoveAll(target); err != nil {
		m.log.Warn("failed to remove incomplete backup", zap.String("dir", target), zap.Error(err))
	}
}

// Prune deletes backup directories older than the retention window
func (m *Manager) Prune() (int, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := m.now().Add(-m.retention)
	removed := 0
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), dirPrefix) {
			continue
		}
		taken, err := time.ParseInLocation(dirLayout, strings.TrimPrefix(e.Name(), dirPrefix), time.Local)
		if err != nil || !taken.Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(m.dir, e.Name())); err != nil {
			return removed, err
		}
		removed++
		m.log.Info("old backup removed", zap.String("name", e.Name()))
	}
	return removed, nil
}
