package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/xelth-com/eckpunchgo/internal/models"
	"go.uber.org/zap"
)

// LedgerReader loads the whole ledger
type LedgerReader interface {
	All() ([]models.Punch, error)
}

// Record is one mirrored punch, timestamps as ISO-8601 strings
type Record struct {
	ID            uint   `json:"id"`
	BadgeID       string `json:"badge_id"`
	FirstName     string `json:"first_name"`
	Surname       string `json:"surname"`
	Timestamp     string `json:"timestamp"`
	Movement      string `json:"movement"`
	Location      string `json:"location"`
	DeviceID      string `json:"device_id"`
	SyncStatus    string `json:"sync_status"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
	IntegrityHash string `json:"integrity_hash"`
	Notes         string `json:"notes"`
}

// Mirror keeps a human-readable copy of the ledger. It is derived data:
// regenerated from the store, never read back as a source of truth.
type Mirror struct {
	src    LedgerReader
	path   string
	log    *zap.Logger
	notify chan struct{}

	mu sync.Mutex // serializes writers
}

// NewMirror creates a mirror written to path
func NewMirror(src LedgerReader, path string, log *zap.Logger) *Mirror {
	if log == nil {
		log = zap.NewNop()
	}
	return &Mirror{
		src:    src,
		path:   path,
		log:    log.Named("mirror"),
		notify: make(chan struct{}, 1),
	}
}

// Path returns the mirror file location
func (m *Mirror) Path() string {
	return m.path
}

// Notify schedules a regeneration. It never blocks and bursts coalesce.
func (m *Mirror) Notify() {
	select {
	case m.notify <- struct{}{}:
	default:
	}
}

// Run regenerates the mirror after each notification until ctx ends
func (m *Mirror) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.notify:
			if err := m.Refresh(); err != nil {
				m.log.Warn("mirror refresh failed", zap.Error(err))
			}
		}
	}
}

// Refresh regenerates the mirror file now
func (m *Mirror) Refresh() error {
	return m.WriteTo(m.path)
}

// WriteTo serializes the ledger into path through a temp file and rename
func (m *Mirror) WriteTo(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	punches, err := m.src.All()
	if err != nil {
		return fmt.Errorf("failed to load ledger: %w", err)
	}

	records := make([]Record, len(punches))
	for i, p := range punches {
		records[i] = toRecord(p)
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".mirror-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	m.log.Debug("mirror written", zap.String("path", path), zap.Int("punches", len(records)))
	return nil
}

func toRecord(p models.Punch) Record {
	return Record{
		ID:            p.ID,
		BadgeID:       p.BadgeID,
		FirstName:     p.FirstName,
		Surname:       p.Surname,
		Timestamp:     p.Timestamp.UTC().Format(time.RFC3339),
		Movement:      string(p.Movement),
		Location:      p.Location,
		DeviceID:      p.DeviceID,
		SyncStatus:    string(p.SyncStatus),
		CreatedAt:     p.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:     p.UpdatedAt.UTC().Format(time.RFC3339Nano),
		IntegrityHash: p.IntegrityHash,
		Notes:         p.Notes,
	}
}
