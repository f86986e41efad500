package odoo

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/xelth-com/eckpunchgo/internal/ledger"
	"github.com/xelth-com/eckpunchgo/internal/models"
	"go.uber.org/zap"
)

const pushBatch = 100

// RPC is the subset of the Odoo client the sync service needs
type RPC interface {
	Authenticate() (int, error)
	SearchRead(model string, domain []interface{}, fields []string, limit int, result interface{}) error
	Search(model string, domain []interface{}, limit int) ([]int64, error)
	Create(model string, values map[string]interface{}) (int64, error)
	Write(model string, ids []int64, values map[string]interface{}) error
}

// Ledger is the local side of the sync
type Ledger interface {
	UpsertEmployee(code, firstName, surname string) (*models.Employee, error)
	BindBadge(code, badge string) error
	SetActive(code string, active bool) error
	PendingSync(limit int) ([]models.Punch, error)
	MarkSynced(ids ...uint) error
	MarkSyncError(note string, ids ...uint) error
}

// Config holds Odoo connection settings
type Config struct {
	URL          string
	Database     string
	Username     string
	Password     string
	SyncInterval int // in minutes
}

// Result summarizes one sync pass
type Result struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Pushed   int `json:"pushed"`
	Failed   int `json:"failed"`
}

// SyncService keeps the employee directory and the attendance log in step
// with Odoo HR
type SyncService struct {
	client RPC
	store  Ledger
	cfg    Config
	log    *zap.Logger

	mu       sync.Mutex // one pass at a time
	authed   bool
	stop     chan struct{}
	stopOnce sync.Once
}

// NewSyncService creates a new synchronization service
func NewSyncService(store Ledger, cfg Config, log *zap.Logger) *SyncService {
	return newSyncService(NewClient(cfg.URL, cfg.Database, cfg.Username, cfg.Password), store, cfg, log)
}

func newSyncService(client RPC, store Ledger, cfg Config, log *zap.Logger) *SyncService {
	return &SyncService{
		client: client,
		store:  store,
		cfg:    cfg,
		log:    log.Named("odoo"),
		stop:   make(chan struct{}),
	}
}

// Enabled reports whether an Odoo endpoint is configured
func (s *SyncService) Enabled() bool {
	return s.cfg.URL != ""
}

// Start begins the background synchronization loop
func (s *SyncService) Start() {
	if !s.Enabled() {
		s.log.Info("Odoo sync disabled: ODOO_URL not configured")
		return
	}

	go func() {
		s.log.Info("Odoo sync service started", zap.String("url", s.cfg.URL))

		s.runLogged()

		interval := time.Duration(s.cfg.SyncInterval) * time.Minute
		if s.cfg.SyncInterval <= 0 {
			interval = 15 * time.Minute
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.runLogged()
			case <-s.stop:
				s.log.Info("Odoo sync service stopped")
				return
			}
		}
	}()
}

// Stop halts the service
func (s *SyncService) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *SyncService) runLogged() {
	res, err := s.SyncNow()
	if err != nil {
		s.log.Error("Odoo sync failed", zap.Error(err))
		return
	}
	s.log.Info("Odoo sync complete",
		zap.Int("imported", res.Imported),
		zap.Int("skipped", res.Skipped),
		zap.Int("pushed", res.Pushed),
		zap.Int("failed", res.Failed),
	)
}

// SyncNow imports the employee directory then pushes pending punches
func (s *SyncService) SyncNow() (*Result, error) {
	if !s.Enabled() {
		return nil, errors.New("odoo sync is not configured")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.authed {
		if _, err := s.client.Authenticate(); err != nil {
			return nil, err
		}
		s.authed = true
	}

	res := &Result{}
	if err := s.importEmployees(res); err != nil {
		// Force a fresh login next time; sessions do expire
		s.authed = false
		return res, err
	}
	if err := s.pushAttendance(res); err != nil {
		s.authed = false
		return res, err
	}
	return res, nil
}

func (s *SyncService) importEmployees(res *Result) error {
	var employees []hrEmployee
	domain := []interface{}{
		[]interface{}{"pin", "!=", false},
	}
	if err := s.client.SearchRead("hr.employee", domain, employeeFields, 0, &employees); err != nil {
		return fmt.Errorf("failed to read hr.employee: %w", err)
	}

	for _, e := range employees {
		first, last := splitName(e.Name)
		emp, err := s.store.UpsertEmployee(string(e.Pin), first, last)
		if err != nil {
			if ledger.IsValidation(err) {
				s.log.Warn("Skipping Odoo employee", zap.Int64("odoo_id", e.ID), zap.String("pin", string(e.Pin)), zap.Error(err))
				res.Skipped++
				continue
			}
			return err
		}
		if e.Barcode != "" {
			if err := s.store.BindBadge(emp.Code, string(e.Barcode)); err != nil {
				s.log.Warn("Failed to bind Odoo badge", zap.String("code", emp.Code), zap.Error(err))
			}
		}
		if emp.Active != e.Active {
			if err := s.store.SetActive(emp.Code, e.Active); err != nil {
				return err
			}
		}
		res.Imported++
	}
	return nil
}

func (s *SyncService) pushAttendance(res *Result) error {
	pending, err := s.store.PendingSync(pushBatch)
	if err != nil {
		return err
	}

	employeeIDs := make(map[string]int64)
	var synced []uint
	for _, p := range pending {
		if err := s.pushPunch(p, employeeIDs); err != nil {
			s.log.Warn("Failed to push punch",
				zap.Uint("id", p.ID),
				zap.String("badge_id", p.BadgeID),
				zap.Error(err),
			)
			if err := s.store.MarkSyncError(err.Error(), p.ID); err != nil {
				return err
			}
			res.Failed++
			continue
		}
		synced = append(synced, p.ID)
	}

	if err := s.store.MarkSynced(synced...); err != nil {
		return err
	}
	res.Pushed += len(synced)
	return nil
}

func (s *SyncService) pushPunch(p models.Punch, employeeIDs map[string]int64) error {
	empID, ok := employeeIDs[p.BadgeID]
	if !ok {
		ids, err := s.client.Search("hr.employee", []interface{}{
			[]interface{}{"barcode", "=", p.BadgeID},
		}, 1)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return fmt.Errorf("no hr.employee with barcode %q", p.BadgeID)
		}
		empID = ids[0]
		employeeIDs[p.BadgeID] = empID
	}

	switch p.Movement {
	case models.MovementIn:
		_, err := s.client.Create("hr.attendance", map[string]interface{}{
			"employee_id": empID,
			"check_in":    formatOdooTime(p.Timestamp),
		})
		return err
	case models.MovementOut:
		open, err := s.client.Search("hr.attendance", []interface{}{
			[]interface{}{"employee_id", "=", empID},
			[]interface{}{"check_out", "=", false},
		}, 1)
		if err != nil {
			return err
		}
		if len(open) == 0 {
			return fmt.Errorf("no open attendance for employee %d", empID)
		}
		return s.client.Write("hr.attendance", open, map[string]interface{}{
			"check_out": formatOdooTime(p.Timestamp),
		})
	}
	return fmt.Errorf("unknown movement %q", p.Movement)
}
