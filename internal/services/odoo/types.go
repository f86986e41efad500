package odoo

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Odoo datetimes are naive UTC in this layout
const odooDateTime = "2006-01-02 15:04:05"

// odooString accepts Odoo's `false` for empty text fields
type odooString string

// UnmarshalJSON handles string or false
func (s *odooString) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = odooString(str)
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err == nil && !b {
		*s = ""
		return nil
	}
	return errors.New("odooString: cannot unmarshal value into string")
}

// hrEmployee is the subset of hr.employee read by the directory import
type hrEmployee struct {
	ID      int64      `json:"id"`
	Name    string     `json:"name"`
	Pin     odooString `json:"pin"`
	Barcode odooString `json:"barcode"`
	Active  bool       `json:"active"`
}

var employeeFields = []string{"name", "pin", "barcode", "active"}

// splitName takes the first word as first name and the rest as surname
func splitName(full string) (string, string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

func formatOdooTime(t time.Time) string {
	return t.UTC().Format(odooDateTime)
}
