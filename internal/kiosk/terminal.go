package kiosk

import (
	"errors"
	"sync"

	"github.com/xelth-com/eckpunchgo/internal/models"
	"go.uber.org/zap"
)

var (
	// ErrUnknownBadge is returned when unknown badges are rejected
	ErrUnknownBadge = errors.New("badge is not bound to any employee")
	// ErrInactiveEmployee is returned for badges of deactivated employees
	ErrInactiveEmployee = errors.New("employee is not active")
)

// Ledger is the part of the store a terminal needs
type Ledger interface {
	EmployeeByBadge(badge string) (*models.Employee, error)
	LastForBadge(badge string) (*models.Punch, error)
	RecordPunch(badge string, movement models.Movement, firstName, surname string) (*models.Punch, error)
}

// Terminal turns accepted scans into punches. Movement alternation is
// decided here; the ledger itself accepts any sequence.
type Terminal struct {
	ledger        Ledger
	rejectUnknown bool
	log           *zap.Logger

	mu sync.Mutex // pairs the last-movement read with the write
}

// NewTerminal creates a terminal on top of ledger
func NewTerminal(ledger Ledger, rejectUnknown bool, log *zap.Logger) *Terminal {
	if log == nil {
		log = zap.NewNop()
	}
	return &Terminal{ledger: ledger, rejectUnknown: rejectUnknown, log: log.Named("kiosk")}
}

// HandleScan is the capture loop callback. Failures leave the scan
// unrecorded and are only logged.
func (t *Terminal) HandleScan(badge string) {
	if _, err := t.Punch(badge); err != nil {
		t.log.Warn("scan not recorded", zap.String("badge", badge), zap.Error(err))
	}
}

// Punch records the next movement for badge
func (t *Terminal) Punch(badge string) (*models.Punch, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	emp, err := t.ledger.EmployeeByBadge(badge)
	if err != nil {
		return nil, err
	}
	switch {
	case emp == nil && t.rejectUnknown:
		return nil, ErrUnknownBadge
	case emp != nil && !emp.Active:
		return nil, ErrInactiveEmployee
	}

	movement, err := t.NextMovement(badge)
	if err != nil {
		return nil, err
	}

	var first, last string
	if emp != nil {
		first, last = emp.FirstName, emp.LastName()
	}
	return t.ledger.RecordPunch(badge, movement, first, last)
}

// NextMovement is the opposite of the badge's last punch, entrata when it has none
func (t *Terminal) NextMovement(badge string) (models.Movement, error) {
	last, err := t.ledger.LastForBadge(badge)
	if err != nil {
		return "", err
	}
	if last == nil {
		return models.MovementIn, nil
	}
	return last.Movement.Opposite(), nil
}
