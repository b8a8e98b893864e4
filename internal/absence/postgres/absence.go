package postgres

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/frahmantamala/time-tracking/internal/absence"
)

// AbsenceRepository implements absence.Repository using GORM. One absence per
// member-day is a unique index on (user_id, organization_id, date).
type AbsenceRepository struct {
	db *gorm.DB
}

func NewAbsenceRepository(db *gorm.DB) *AbsenceRepository {
	return &AbsenceRepository{db: db}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (r *AbsenceRepository) Create(day *absence.AbsenceDay) error {
	if err := r.db.Create(day).Error; err != nil {
		if isUniqueViolation(err) {
			return absence.ErrDuplicateAbsence
		}
		return err
	}
	return nil
}

func (r *AbsenceRepository) GetByID(id int64) (*absence.AbsenceDay, error) {
	var day absence.AbsenceDay
	err := r.db.Where("id = ?", id).First(&day).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, absence.ErrAbsenceNotFound
		}
		return nil, err
	}
	return &day, nil
}

const detailSelect = `absence_days.id, absence_days.user_id,
users.first_name AS user_first_name, users.last_name AS user_last_name,
absence_days.date, absence_days.type, absence_days.note, absence_days.created_at`

func (r *AbsenceRepository) ListForOrg(orgID int64, filter absence.ListFilter) ([]absence.AbsenceDetail, error) {
	q := r.db.Table("absence_days").Select(detailSelect).
		Joins("JOIN users ON users.id = absence_days.user_id").
		Where("absence_days.organization_id = ?", orgID)
	if filter.UserID != nil {
		q = q.Where("absence_days.user_id = ?", *filter.UserID)
	}
	if filter.From != nil {
		q = q.Where("absence_days.date >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("absence_days.date <= ?", *filter.To)
	}

	var out []absence.AbsenceDetail
	err := q.Order("absence_days.date ASC").Scan(&out).Error
	return out, err
}

func (r *AbsenceRepository) Delete(id int64) error {
	return r.db.Delete(&absence.AbsenceDay{}, id).Error
}
