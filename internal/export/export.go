package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/xelth-com/eckpunchgo/internal/models"
	"go.uber.org/zap"
)

// DefaultWindow is the range exported when none is given
const DefaultWindow = 30 * 24 * time.Hour

// Header is the fixed column order of every export
var Header = []string{"ID", "BadgeID", "FirstName", "Surname", "Timestamp", "Movement", "Location", "Device", "SyncStatus"}

// Source provides punches newest first
type Source interface {
	Range(from, to time.Time) ([]models.Punch, error)
}

// Exporter writes ledger extracts into a directory
type Exporter struct {
	src Source
	dir string
	now func() time.Time
	log *zap.Logger
}

// New creates an exporter writing into dir
func New(src Source, dir string, log *zap.Logger) *Exporter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Exporter{src: src, dir: dir, now: time.Now, log: log.Named("export")}
}

// CSV exports the range to a new file and returns its path. An empty path
// with a nil error means the range held no punches.
func (e *Exporter) CSV(from, to *time.Time) (string, error) {
	return e.export(from, to, "csv", func(path string, punches []models.Punch) error {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := WriteCSV(f, punches); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	})
}

// XLSX exports the range as a spreadsheet, same semantics as CSV
func (e *Exporter) XLSX(from, to *time.Time) (string, error) {
	return e.export(from, to, "xlsx", writeXLSX)
}

func (e *Exporter) export(from, to *time.Time, ext string, write func(string, []models.Punch) error) (string, error) {
	start, end := e.bounds(from, to)
	punches, err := e.src.Range(start, end)
	if err != nil {
		return "", fmt.Errorf("failed to load punches: %w", err)
	}
	if len(punches) == 0 {
		e.log.Info("nothing to export", zap.Time("from", start), zap.Time("to", end))
		return "", nil
	}

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	path := filepath.Join(e.dir, fmt.Sprintf("punches_%s.%s", e.now().Format("20060102_150405"), ext))
	if err := write(path, punches); err != nil {
		e.log.Error("export failed", zap.String("path", path), zap.Error(err))
		return "", fmt.Errorf("failed to write %s: %w", ext, err)
	}

	e.log.Info("export written", zap.String("path", path), zap.Int("rows", len(punches)))
	return path, nil
}

func (e *Exporter) bounds(from, to *time.Time) (time.Time, time.Time) {
	end := e.now()
	if to != nil {
		end = *to
	}
	start := end.Add(-DefaultWindow)
	if from != nil {
		start = *from
	}
	return start, end
}

// WriteCSV writes the header and one row per punch
func WriteCSV(w io.Writer, punches []models.Punch) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, p := range punches {
		if err := cw.Write(row(p)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func row(p models.Punch) []string {
	return []string{
		strconv.FormatUint(uint64(p.ID), 10),
		p.BadgeID,
		p.FirstName,
		p.Surname,
		p.Timestamp.Local().Format(time.RFC3339),
		string(p.Movement),
		p.Location,
		p.DeviceID,
		string(p.SyncStatus),
	}
}
