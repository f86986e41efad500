package ledger

import (
	"github.com/xelth-com/eckpunchgo/internal/database"
	"github.com/xelth-com/eckpunchgo/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ResetAll wipes the ledger. With keepDirectory the employees survive but
// every badge binding is cleared; without it the directory is wiped too.
func (s *Store) ResetAll(keepDirectory bool) error {
	err := s.write(func(db *database.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
			if err := all.Delete(&models.Punch{}).Error; err != nil {
				return err
			}
			if keepDirectory {
				return all.Model(&models.Employee{}).
					Updates(map[string]interface{}{"badge_id": nil, "updated_at": s.opts.Now().UTC()}).Error
			}
			return all.Delete(&models.Employee{}).Error
		})
	})
	if err != nil {
		s.log.Error("reset failed", zap.Bool("keepDirectory", keepDirectory), zap.Error(err))
		return err
	}

	s.log.Warn("store reset", zap.Bool("keepDirectory", keepDirectory))
	s.emit(Change{Reset: true})
	return nil
}
