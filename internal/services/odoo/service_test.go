package odoo

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xelth-com/eckpunchgo/internal/database"
	"github.com/xelth-com/eckpunchgo/internal/ledger"
	"github.com/xelth-com/eckpunchgo/internal/models"
	"go.uber.org/zap"
)

type write struct {
	model  string
	ids    []int64
	values map[string]interface{}
}

type fakeRPC struct {
	authCalls  int
	employees  string // raw JSON as Odoo would return it
	barcodes   map[string]int64
	openByEmp  map[int64]int64
	created    []write
	written    []write
	createErr  error
	nextRecord int64
}

func (f *fakeRPC) Authenticate() (int, error) {
	f.authCalls++
	return 2, nil
}

func (f *fakeRPC) SearchRead(model string, _ []interface{}, _ []string, _ int, result interface{}) error {
	if model != "hr.employee" {
		return errors.New("unexpected model " + model)
	}
	return json.Unmarshal([]byte(f.employees), result)
}

func (f *fakeRPC) Search(model string, domain []interface{}, _ int) ([]int64, error) {
	first := domain[0].([]interface{})
	switch model {
	case "hr.employee":
		if id, ok := f.barcodes[first[2].(string)]; ok {
			return []int64{id}, nil
		}
	case "hr.attendance":
		if id, ok := f.openByEmp[first[2].(int64)]; ok {
			return []int64{id}, nil
		}
	}
	return nil, nil
}

func (f *fakeRPC) Create(model string, values map[string]interface{}) (int64, error) {
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.nextRecord++
	f.created = append(f.created, write{model: model, values: values})
	if model == "hr.attendance" {
		f.openByEmp[values["employee_id"].(int64)] = f.nextRecord
	}
	return f.nextRecord, nil
}

func (f *fakeRPC) Write(model string, ids []int64, values map[string]interface{}) error {
	f.written = append(f.written, write{model: model, ids: ids, values: values})
	return nil
}

func setupStore(t *testing.T, now *time.Time) *ledger.Store {
	t.Helper()
	store, err := ledger.Open(ledger.Options{
		DB: database.Options{
			Path:        filepath.Join(t.TempDir(), "punches.db"),
			BusyTimeout: 5 * time.Second,
		},
		Location: "hall",
		DeviceID: "kiosk-1",
		Now:      func() time.Time { return *now },
	}, zap.NewNop())
	require.NoError(t, err)
	return store
}

func newTestService(rpc *fakeRPC, store Ledger) *SyncService {
	return newSyncService(rpc, store, Config{URL: "http://odoo.local"}, zap.NewNop())
}

func TestOdooString_AcceptsFalse(t *testing.T) {
	var e hrEmployee
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"name":"Maria","pin":"123","barcode":false,"active":true}`), &e))
	assert.Equal(t, odooString("123"), e.Pin)
	assert.Empty(t, e.Barcode)

	assert.Error(t, json.Unmarshal([]byte(`{"pin":true}`), &e))
}

func TestSplitName(t *testing.T) {
	first, last := splitName("  Maria  De Luca ")
	assert.Equal(t, "Maria", first)
	assert.Equal(t, "De Luca", last)

	first, last = splitName("Cher")
	assert.Equal(t, "Cher", first)
	assert.Empty(t, last)
}

func TestSyncNow_ImportsDirectory(t *testing.T) {
	now := time.Date(2025, 5, 2, 8, 0, 0, 0, time.UTC)
	store := setupStore(t, &now)
	rpc := &fakeRPC{
		employees: `[
			{"id":7,"name":"Maria Rossi","pin":"123","barcode":"AABBCC11","active":true},
			{"id":8,"name":"Luca","pin":"0042","barcode":false,"active":true},
			{"id":9,"name":"Broken","pin":"abc","barcode":false,"active":true}
		]`,
		openByEmp: map[int64]int64{},
	}
	svc := newTestService(rpc, store)

	res, err := svc.SyncNow()
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, 1, res.Skipped)

	maria, err := store.EmployeeByBadge("AABBCC11")
	require.NoError(t, err)
	require.NotNil(t, maria)
	assert.Equal(t, "123", maria.Code)
	assert.Equal(t, "Rossi", maria.LastName())

	luca, err := store.EmployeeByCode("0042")
	require.NoError(t, err)
	assert.Nil(t, luca.BadgeID)

	_, err = svc.SyncNow()
	require.NoError(t, err)
	assert.Equal(t, 1, rpc.authCalls)
}

func TestSyncNow_PushesAttendance(t *testing.T) {
	now := time.Date(2025, 5, 2, 8, 0, 0, 0, time.UTC)
	store := setupStore(t, &now)
	rpc := &fakeRPC{
		employees: `[]`,
		barcodes:  map[string]int64{"AABBCC11": 7},
		openByEmp: map[int64]int64{},
	}

	in, err := store.RecordPunch("AABBCC11", models.MovementIn, "", "")
	require.NoError(t, err)
	now = now.Add(8 * time.Hour)
	out, err := store.RecordPunch("AABBCC11", models.MovementOut, "", "")
	require.NoError(t, err)
	stranger, err := store.RecordPunch("NOBODY", models.MovementIn, "", "")
	require.NoError(t, err)

	res, err := newTestService(rpc, store).SyncNow()
	require.NoError(t, err)
	assert.Equal(t, 2, res.Pushed)
	assert.Equal(t, 1, res.Failed)

	require.Len(t, rpc.created, 1)
	assert.Equal(t, "2025-05-02 08:00:00", rpc.created[0].values["check_in"])
	require.Len(t, rpc.written, 1)
	assert.Equal(t, "2025-05-02 16:00:00", rpc.written[0].values["check_out"])

	pending, err := store.PendingSync(10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	all, err := store.All()
	require.NoError(t, err)
	byID := map[uint]models.Punch{}
	for _, p := range all {
		byID[p.ID] = p
	}
	assert.Equal(t, models.SyncSynced, byID[in.ID].SyncStatus)
	assert.Equal(t, models.SyncSynced, byID[out.ID].SyncStatus)
	assert.Equal(t, models.SyncError, byID[stranger.ID].SyncStatus)
	assert.Contains(t, byID[stranger.ID].Notes, "NOBODY")
}

func TestSyncNow_DisabledWithoutURL(t *testing.T) {
	svc := newSyncService(&fakeRPC{}, nil, Config{}, zap.NewNop())
	assert.False(t, svc.Enabled())
	_, err := svc.SyncNow()
	assert.Error(t, err)
	svc.Start()
	svc.Stop()
	svc.Stop()
}
