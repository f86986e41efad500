package ledger

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoMatchingEmployee is returned when a code resolves to no directory row
	ErrNoMatchingEmployee = errors.New("no matching employee")
	// ErrTransient wraps lock contention that outlived the busy timeout
	ErrTransient = errors.New("store busy")
	// ErrClosed is returned by every operation after Close
	ErrClosed = errors.New("store closed")
)

// ValidationError rejects input before any write happens
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err carries a ValidationError
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func classify(err error) error {
	if err == nil || errors.Is(err, ErrTransient) {
		return err
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "database is locked") || strings.Contains(msg, "sqlite_busy") || strings.Contains(msg, "database is busy") {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	return err
}
