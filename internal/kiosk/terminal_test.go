package kiosk

import (
	"errors"
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

func setupLedger(t *testing.T, now *time.Time) *ledger.Store {
	t.Helper()
	store, err := ledger.Open(ledger.Options{
		DB: database.Options{
			Path:        filepath.Join(t.TempDir(), "punches.db"),
			BusyTimeout: 5 * time.Second,
		},
		Location: "entrance",
		DeviceID: "kiosk-1",
		Now:      func() time.Time { return *now },
	}, zap.NewNop())
	require.NoError(t, err)
	return store
}

func TestTerminal_MariaScenario(t *testing.T) {
	now := time.Date(2025, 5, 2, 8, 30, 0, 0, time.Local)
	store := setupLedger(t, &now)

	_, err := store.UpsertEmployee("0000000123", "Maria", "")
	require.NoError(t, err)
	require.NoError(t, store.BindBadge("0000000123", "AABBCC11"))

	term := NewTerminal(store, false, zap.NewNop())

	term.HandleScan("AABBCC11")
	last, err := store.LastForBadge("AABBCC11")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, models.MovementIn, last.Movement)
	assert.Equal(t, "Maria", last.FirstName)

	now = now.Add(10 * time.Second)
	term.HandleScan("AABBCC11")
	last, err = store.LastForBadge("AABBCC11")
	require.NoError(t, err)
	assert.Equal(t, models.MovementOut, last.Movement)

	today, err := store.Today()
	require.NoError(t, err)
	assert.Len(t, today, 2)
}

func TestTerminal_UnknownBadgePolicy(t *testing.T) {
	now := time.Date(2025, 5, 2, 8, 30, 0, 0, time.Local)
	store := setupLedger(t, &now)

	permissive := NewTerminal(store, false, zap.NewNop())
	p, err := permissive.Punch("STRANGER")
	require.NoError(t, err)
	assert.Empty(t, p.FirstName)

	strict := NewTerminal(store, true, zap.NewNop())
	_, err = strict.Punch("OTHER")
	assert.True(t, errors.Is(err, ErrUnknownBadge))
}

func TestTerminal_InactiveEmployee(t *testing.T) {
	now := time.Date(2025, 5, 2, 8, 30, 0, 0, time.Local)
	store := setupLedger(t, &now)
	_, err := store.UpsertEmployee("5", "Luca", "")
	require.NoError(t, err)
	require.NoError(t, store.BindBadge("5", "L5"))
	require.NoError(t, store.SetActive("5", false))

	_, err = NewTerminal(store, false, zap.NewNop()).Punch("L5")
	assert.True(t, errors.Is(err, ErrInactiveEmployee))

	last, err := store.LastForBadge("L5")
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestTerminal_ConcurrentPunchesAlternate(t *testing.T) {
	now := time.Date(2025, 5, 2, 8, 30, 0, 0, time.Local)
	store := setupLedger(t, &now)
	term := NewTerminal(store, false, zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := term.Punch("RACE01")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	all, err := store.All()
	require.NoError(t, err)
	require.Len(t, all, 4)
	want := []models.Movement{models.MovementIn, models.MovementOut, models.MovementIn, models.MovementOut}
	for i, p := range all {
		assert.Equal(t, want[i], p.Movement, "punch %d", i)
	}
}
