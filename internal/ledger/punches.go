package ledger

import (
	"time"

	"github.com/xelth-com/eckpunchgo/internal/database"
	"github.com/xelth-com/eckpunchgo/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Stats summarizes the ledger
type Stats struct {
	TotalPunches   int64      `json:"totalPunches"`
	DistinctBadges int64      `json:"distinctBadges"`
	PunchesToday   int64      `json:"punchesToday"`
	LastPunchTime  *time.Time `json:"lastPunchTime,omitempty"`
	StoreSizeBytes int64      `json:"storeSizeBytes"`
}

// RecordPunch appends a punch. Empty names are filled from the directory
// entry currently bound to badge, if any.
func (s *Store) RecordPunch(badge string, movement models.Movement, firstName, surname string) (*models.Punch, error) {
	badge, err := normalizeBadge(badge)
	if err != nil {
		s.log.Warn("punch rejected", zap.Error(err))
		return nil, err
	}
	if !movement.Valid() {
		err := &ValidationError{Field: "movement", Reason: "must be entrata or uscita"}
		s.log.Warn("punch rejected", zap.String("badge", badge), zap.Error(err))
		return nil, err
	}

	var punch models.Punch
	err = s.write(func(db *database.DB) error {
		// Timestamp is taken under the lock so id order and time order agree.
		ts := s.opts.Now().UTC().Truncate(time.Second)
		punch = models.Punch{
			BadgeID:       badge,
			FirstName:     firstName,
			Surname:       surname,
			Timestamp:     ts,
			Movement:      movement,
			Location:      s.opts.Location,
			DeviceID:      s.opts.DeviceID,
			SyncStatus:    models.SyncPending,
			IntegrityHash: IntegrityHash(badge, ts, movement),
		}

		if firstName == "" && surname == "" {
			var emp models.Employee
			res := db.Where("badge_id = ?", badge).Limit(1).Find(&emp)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected > 0 {
				punch.FirstName = emp.FirstName
				punch.Surname = emp.LastName()
			}
		}

		return db.Create(&punch).Error
	})
	if err != nil {
		s.log.Error("failed to record punch",
			zap.String("badge", badge), zap.String("movement", string(movement)), zap.Error(err))
		return nil, err
	}

	s.log.Info("punch recorded",
		zap.Uint("id", punch.ID),
		zap.String("badge", badge),
		zap.String("movement", string(movement)),
		zap.Time("timestamp", punch.Timestamp))

	s.emit(Change{Punch: &punch})
	return &punch, nil
}

// Today returns punches of the current local calendar date, newest first
func (s *Store) Today() ([]models.Punch, error) {
	start, end := s.dayBounds()
	return s.find("timestamp >= ? AND timestamp < ?", start, end)
}

// Range returns punches with from <= timestamp <= to, newest first
func (s *Store) Range(from, to time.Time) ([]models.Punch, error) {
	return s.find("timestamp >= ? AND timestamp <= ?", from.UTC(), to.UTC())
}

// All returns the whole ledger in id order
func (s *Store) All() ([]models.Punch, error) {
	var punches []models.Punch
	err := s.read(func(db *database.DB) error {
		return db.Order("id ASC").Find(&punches).Error
	})
	if err != nil {
		s.log.Error("failed to load ledger", zap.Error(err))
		return nil, err
	}
	return punches, nil
}

// LastForBadge returns the newest punch of badge, or nil when it has none
func (s *Store) LastForBadge(badge string) (*models.Punch, error) {
	badge, err := normalizeBadge(badge)
	if err != nil {
		return nil, err
	}

	var punches []models.Punch
	err = s.read(func(db *database.DB) error {
		return db.Where("badge_id = ?", badge).
			Order("timestamp DESC, id DESC").
			Limit(1).
			Find(&punches).Error
	})
	if err != nil {
		s.log.Error("failed to query last punch", zap.String("badge", badge), zap.Error(err))
		return nil, err
	}
	if len(punches) == 0 {
		return nil, nil
	}
	return &punches[0], nil
}

// Stats computes ledger counters
func (s *Store) Stats() (*Stats, error) {
	var st Stats
	start, end := s.dayBounds()

	err := s.read(func(db *database.DB) error {
		if err := db.Model(&models.Punch{}).Count(&st.TotalPunches).Error; err != nil {
			return err
		}
		if err := db.Model(&models.Punch{}).Distinct("badge_id").Count(&st.DistinctBadges).Error; err != nil {
			return err
		}
		if err := db.Model(&models.Punch{}).
			Where("timestamp >= ? AND timestamp < ?", start, end).
			Count(&st.PunchesToday).Error; err != nil {
			return err
		}

		var last []models.Punch
		if err := db.Order("timestamp DESC, id DESC").Limit(1).Find(&last).Error; err != nil {
			return err
		}
		if len(last) > 0 {
			ts := last[0].Timestamp
			st.LastPunchTime = &ts
		}
		return nil
	})
	if err != nil {
		s.log.Error("failed to compute stats", zap.Error(err))
		return nil, err
	}

	st.StoreSizeBytes = s.sizeOnDisk()
	return &st, nil
}

// PendingSync returns up to limit punches not yet delivered, oldest first
func (s *Store) PendingSync(limit int) ([]models.Punch, error) {
	var punches []models.Punch
	err := s.read(func(db *database.DB) error {
		return db.Where("sync_status = ?", models.SyncPending).
			Order("id ASC").
			Limit(limit).
			Find(&punches).Error
	})
	if err != nil {
		s.log.Error("failed to load pending punches", zap.Error(err))
		return nil, err
	}
	return punches, nil
}

// MarkSynced flags punches as delivered
func (s *Store) MarkSynced(ids ...uint) error {
	return s.setSyncStatus(map[string]interface{}{"sync_status": models.SyncSynced, "notes": ""}, ids)
}

// MarkSyncError flags punches whose delivery failed, keeping note as the reason
func (s *Store) MarkSyncError(note string, ids ...uint) error {
	return s.setSyncStatus(map[string]interface{}{"sync_status": models.SyncError, "notes": note}, ids)
}

// setSyncStatus is the only update path for written punches
func (s *Store) setSyncStatus(values map[string]interface{}, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	values["updated_at"] = s.opts.Now().UTC()
	err := s.write(func(db *database.DB) error {
		return db.Model(&models.Punch{}).
			Where("id IN ?", ids).
			Updates(values).Error
	})
	if err != nil {
		s.log.Error("failed to update sync status", zap.Any("status", values["sync_status"]), zap.Error(err))
	}
	return err
}

// VerifyHashes recomputes integrity hashes and returns ids that no longer match
func (s *Store) VerifyHashes() ([]uint, error) {
	var mismatched []uint
	err := s.read(func(db *database.DB) error {
		mismatched = mismatched[:0]
		var batch []models.Punch
		return db.Order("id ASC").FindInBatches(&batch, 500, func(tx *gorm.DB, _ int) error {
			for _, p := range batch {
				if IntegrityHash(p.BadgeID, p.Timestamp, p.Movement) != p.IntegrityHash {
					mismatched = append(mismatched, p.ID)
				}
			}
			return nil
		}).Error
	})
	if err != nil {
		s.log.Error("hash verification failed", zap.Error(err))
		return nil, err
	}
	if len(mismatched) > 0 {
		s.log.Warn("integrity hash mismatch", zap.Uints("ids", mismatched))
	}
	return mismatched, nil
}

func (s *Store) find(query string, args ...interface{}) ([]models.Punch, error) {
	var punches []models.Punch
	err := s.read(func(db *database.DB) error {
		return db.Where(query, args...).Order("timestamp DESC, id DESC").Find(&punches).Error
	})
	if err != nil {
		s.log.Error("punch query failed", zap.Error(err))
		return nil, err
	}
	return punches, nil
}

// dayBounds returns the current local day as a UTC half-open interval
func (s *Store) dayBounds() (time.Time, time.Time) {
	now := s.opts.Now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return start.UTC(), start.AddDate(0, 0, 1).UTC()
}
