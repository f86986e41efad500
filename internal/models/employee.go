package models

import (
	"strings"
	"time"
)

// Employee maps a numeric code to a person and at most one badge
type Employee struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Code      string    `gorm:"uniqueIndex;not null;size:10" json:"code"`
	FirstName string    `gorm:"not null" json:"firstName"`
	Surname   *string   `json:"surname,omitempty"`
	BadgeID   *string   `gorm:"uniqueIndex" json:"badgeId,omitempty"`
	Active    bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name for Employee
func (Employee) TableName() string {
	return "employees"
}

// LastName returns the surname or an empty string
func (e Employee) LastName() string {
	if e.Surname == nil {
		return ""
	}
	return *e.Surname
}

// Badge returns the bound badge or an empty string
func (e Employee) Badge() string {
	if e.BadgeID == nil {
		return ""
	}
	return *e.BadgeID
}

// FullName joins first name and surname
func (e Employee) FullName() string {
	return strings.TrimSpace(e.FirstName + " " + e.LastName())
}
