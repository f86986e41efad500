package models

import "time"

// Movement is the direction of a punch
type Movement string

const (
	MovementIn  Movement = "entrata" // clock-in
	MovementOut Movement = "uscita"  // clock-out
)

// Valid reports whether m is one of the known movements
func (m Movement) Valid() bool {
	return m == MovementIn || m == MovementOut
}

// Opposite returns the other movement
func (m Movement) Opposite() Movement {
	if m == MovementIn {
		return MovementOut
	}
	return MovementIn
}

// SyncStatus tracks delivery of a punch to the HR backend
type SyncStatus string

const (
	SyncPending SyncStatus = "pending"
	SyncSynced  SyncStatus = "synced"
	SyncError   SyncStatus = "error"
)

// Punch is one recorded work-shift boundary event.
// Rows are append-only; only SyncStatus (and Notes on sync failure) ever change.
type Punch struct {
	ID            uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	BadgeID       string     `gorm:"not null;index:idx_punch_badge" json:"badgeId"`
	FirstName     string     `json:"firstName"`
	Surname       string     `json:"surname"`
	Timestamp     time.Time  `gorm:"not null;index:idx_punch_time" json:"timestamp"`
	Movement      Movement   `gorm:"not null;check:chk_punch_movement,movement IN ('entrata','uscita')" json:"movement"`
	Location      string     `json:"location"`
	DeviceID      string     `json:"deviceId"`
	SyncStatus    SyncStatus `gorm:"not null;default:'pending';check:chk_punch_sync,sync_status IN ('pending','synced','error')" json:"syncStatus"`
	IntegrityHash string     `gorm:"not null" json:"integrityHash"`
	Notes         string     `json:"notes"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// TableName specifies the table name for Punch
func (Punch) TableName() string {
	return "punches"
}
