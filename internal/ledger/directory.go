package ledger

import (
	"strings"

	"github.com/xelth-com/eckpunchgo/internal/database"
	"github.com/xelth-com/eckpunchgo/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UpsertEmployee creates or updates the employee keyed by the normalized code.
// An existing badge binding and active flag are left untouched.
func (s *Store) UpsertEmployee(code, firstName, surname string) (*models.Employee, error) {
	code, err := NormalizeCode(code)
	if err != nil {
		s.log.Warn("employee rejected", zap.Error(err))
		return nil, err
	}
	firstName = strings.TrimSpace(firstName)
	if firstName == "" {
		err := &ValidationError{Field: "firstName", Reason: "is required"}
		s.log.Warn("employee rejected", zap.String("code", code), zap.Error(err))
		return nil, err
	}
	var last *string
	if sn := strings.TrimSpace(surname); sn != "" {
		last = &sn
	}

	var emp models.Employee
	err = s.write(func(db *database.DB) error {
		row := models.Employee{Code: code, FirstName: firstName, Surname: last, Active: true}
		if err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoUpdates: clause.AssignmentColumns([]string{"first_name", "surname", "updated_at"}),
		}).Create(&row).Error; err != nil {
			return err
		}
		return db.Where("code = ?", code).First(&emp).Error
	})
	if err != nil {
		s.log.Error("failed to upsert employee", zap.String("code", code), zap.Error(err))
		return nil, err
	}

	s.log.Info("employee saved", zap.String("code", code), zap.String("name", emp.FullName()))
	return &emp, nil
}

// BindBadge assigns badge to the employee with code. Any other holder of the
// badge loses it in the same transaction, so the badge is never claimed twice
// nor left orphaned by a crash in between.
func (s *Store) BindBadge(code, badge string) error {
	code, err := NormalizeCode(code)
	if err != nil {
		return err
	}
	badge, err = normalizeBadge(badge)
	if err != nil {
		return err
	}

	var previous string
	err = s.write(func(db *database.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			var target models.Employee
			res := tx.Where("code = ?", code).Limit(1).Find(&target)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrNoMatchingEmployee
			}
			if target.Badge() == badge {
				return nil
			}

			var holder models.Employee
			res = tx.Where("badge_id = ? AND code <> ?", badge, code).Limit(1).Find(&holder)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected > 0 {
				previous = holder.Code
				if err := tx.Model(&models.Employee{}).
					Where("id = ?", holder.ID).
					Updates(map[string]interface{}{"badge_id": nil, "updated_at": s.opts.Now().UTC()}).Error; err != nil {
					return err
				}
			}

			return tx.Model(&models.Employee{}).
				Where("id = ?", target.ID).
				Updates(map[string]interface{}{"badge_id": badge, "updated_at": s.opts.Now().UTC()}).Error
		})
	})
	if err != nil {
		s.log.Error("failed to bind badge", zap.String("code", code), zap.String("badge", badge), zap.Error(err))
		return err
	}

	fields := []zap.Field{zap.String("code", code), zap.String("badge", badge)}
	if previous != "" {
		fields = append(fields, zap.String("previousHolder", previous))
	}
	s.log.Info("badge bound", fields...)
	return nil
}

// UnbindBadge clears the badge of the employee with code
func (s *Store) UnbindBadge(code string) error {
	code, err := NormalizeCode(code)
	if err != nil {
		return err
	}
	err = s.updateEmployee(code, map[string]interface{}{"badge_id": nil})
	if err != nil {
		s.log.Error("failed to unbind badge", zap.String("code", code), zap.Error(err))
	}
	return err
}

// SetActive toggles the active flag of the employee with code
func (s *Store) SetActive(code string, active bool) error {
	code, err := NormalizeCode(code)
	if err != nil {
		return err
	}
	err = s.updateEmployee(code, map[string]interface{}{"active": active})
	if err != nil {
		s.log.Error("failed to set active flag", zap.String("code", code), zap.Error(err))
	}
	return err
}

func (s *Store) updateEmployee(code string, values map[string]interface{}) error {
	values["updated_at"] = s.opts.Now().UTC()
	return s.write(func(db *database.DB) error {
		res := db.Model(&models.Employee{}).Where("code = ?", code).Updates(values)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNoMatchingEmployee
		}
		return nil
	})
}

// EmployeeByCode returns the employee with code, or nil when there is none
func (s *Store) EmployeeByCode(code string) (*models.Employee, error) {
	code, err := NormalizeCode(code)
	if err != nil {
		return nil, err
	}
	return s.findEmployee("code = ?", code)
}

// EmployeeByBadge returns the employee holding badge, or nil when there is none
func (s *Store) EmployeeByBadge(badge string) (*models.Employee, error) {
	badge, err := normalizeBadge(badge)
	if err != nil {
		return nil, err
	}
	return s.findEmployee("badge_id = ?", badge)
}

// Employees lists the directory ordered by code
func (s *Store) Employees() ([]models.Employee, error) {
	var employees []models.Employee
	err := s.read(func(db *database.DB) error {
		return db.Order("code ASC").Find(&employees).Error
	})
	if err != nil {
		s.log.Error("failed to list employees", zap.Error(err))
		return nil, err
	}
	return employees, nil
}

func (s *Store) findEmployee(query string, arg string) (*models.Employee, error) {
	var found []models.Employee
	err := s.read(func(db *database.DB) error {
		return db.Where(query, arg).Limit(1).Find(&found).Error
	})
	if err != nil {
		s.log.Error("employee lookup failed", zap.String("key", arg), zap.Error(err))
		return nil, err
	}
	if len(found) == 0 {
		return nil, nil
	}
	return &found[0], nil
}
