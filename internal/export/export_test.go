package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xelth-com/eckpunchgo/internal/models"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

type stubSource struct {
	punches  []models.Punch
	from, to time.Time
}

func (s *stubSource) Range(from, to time.Time) ([]models.Punch, error) {
	s.from, s.to = from, to
	var out []models.Punch
	for _, p := range s.punches {
		if !p.Timestamp.Before(from) && !p.Timestamp.After(to) {
			out = append(out, p)
		}
	}
	return out, nil
}

func samplePunches(now time.Time, n int) []models.Punch {
	punches := make([]models.Punch, n)
	for i := range punches {
		punches[i] = models.Punch{
			ID:         uint(n - i),
			BadgeID:    "B" + string(rune('A'+i)),
			FirstName:  "Maria",
			Surname:    "Rossi, jr",
			Timestamp:  now.Add(-time.Duration(i) * time.Hour),
			Movement:   models.MovementIn,
			Location:   "hall",
			DeviceID:   "kiosk-1",
			SyncStatus: models.SyncPending,
		}
	}
	return punches
}

func newTestExporter(t *testing.T, src Source, now time.Time) *Exporter {
	e := New(src, t.TempDir(), zap.NewNop())
	e.now = func() time.Time { return now }
	return e
}

func TestCSV_EmptyRangeReturnsNoPath(t *testing.T) {
	now := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)
	e := newTestExporter(t, &stubSource{}, now)

	path, err := e.CSV(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestCSV_WritesHeaderPlusRows(t *testing.T) {
	now := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)
	src := &stubSource{punches: samplePunches(now, 5)}
	e := newTestExporter(t, src, now)

	path, err := e.CSV(nil, nil)
	require.NoError(t, err)
	require.NotEmpty(t, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	assert.Len(t, lines, 6)
	assert.Equal(t, "ID,BadgeID,FirstName,Surname,Timestamp,Movement,Location,Device,SyncStatus", lines[0])

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "Rossi, jr", records[1][3])
	assert.Equal(t, "5", records[1][0])
}

func TestCSV_DefaultWindow(t *testing.T) {
	now := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)
	src := &stubSource{}
	e := newTestExporter(t, src, now)

	_, err := e.CSV(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, now, src.to)
	assert.Equal(t, now.Add(-30*24*time.Hour), src.from)

	from := now.Add(-2 * time.Hour)
	_, err = e.CSV(&from, nil)
	require.NoError(t, err)
	assert.Equal(t, from, src.from)
	assert.Equal(t, now, src.to)
}

func TestCSV_ExplicitRangeFilters(t *testing.T) {
	now := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)
	src := &stubSource{punches: samplePunches(now, 5)}
	e := newTestExporter(t, src, now)

	from, to := now.Add(-90*time.Minute), now
	path, err := e.CSV(&from, &to)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestXLSX_WritesSheet(t *testing.T) {
	now := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)
	src := &stubSource{punches: samplePunches(now, 3)}
	e := newTestExporter(t, src, now)

	path, err := e.XLSX(nil, nil)
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(path, ".xlsx"))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 4)
	assert.Equal(t, Header, rows[0])
	assert.Equal(t, "BA", rows[1][1])
}
