package postgres

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/frahmantamala/time-tracking/internal/schedule"
)

// ScheduleRepository implements schedule.Repository using GORM.
type ScheduleRepository struct {
	db *gorm.DB
}

func NewScheduleRepository(db *gorm.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// CreateWithAutoClose validates, closes and inserts inside one transaction.
// The member's existing rows are locked so two concurrent inserts cannot
// both pass the overlap check.
func (r *ScheduleRepository) CreateWithAutoClose(p *schedule.WorkSchedulePeriod) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var existing []schedule.WorkSchedulePeriod
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("organization_id = ? AND user_id = ?", p.OrganizationID, p.UserID).
			Find(&existing).Error; err != nil {
			return err
		}

		plan, err := schedule.PlanInsertion(existing, p)
		if err != nil {
			return err
		}

		if len(plan.CloseIDs) > 0 {
			if err := tx.Model(&schedule.WorkSchedulePeriod{}).
				Where("id IN ?", plan.CloseIDs).
				Update("valid_to", plan.CloseTo).Error; err != nil {
				return err
			}
		}

		return tx.Create(p).Error
	})
}

// UpdateWithOverlapCheck re-validates the edited range against the member's
// other periods under the same row lock as inserts, then saves.
func (r *ScheduleRepository) UpdateWithOverlapCheck(p *schedule.WorkSchedulePeriod) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var existing []schedule.WorkSchedulePeriod
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("organization_id = ? AND user_id = ?", p.OrganizationID, p.UserID).
			Find(&existing).Error; err != nil {
			return err
		}

		if err := schedule.ValidateUpdate(existing, p); err != nil {
			return err
		}

		return tx.Save(p).Error
	})
}

func (r *ScheduleRepository) GetByID(id int64) (*schedule.WorkSchedulePeriod, error) {
	var p schedule.WorkSchedulePeriod
	err := r.db.Where("id = ?", id).First(&p).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, schedule.ErrPeriodNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *ScheduleRepository) ListForMember(orgID, userID int64) ([]schedule.WorkSchedulePeriod, error) {
	var periods []schedule.WorkSchedulePeriod
	err := r.db.Where("organization_id = ? AND user_id = ?", orgID, userID).
		Order("valid_from ASC").
		Find(&periods).Error
	return periods, err
}

func (r *ScheduleRepository) Delete(id int64) error {
	return r.db.Delete(&schedule.WorkSchedulePeriod{}, id).Error
}
