package postgres

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/frahmantamala/time-tracking/internal/pauserule"
)

// PauseRuleRepository implements pauserule.Repository using GORM. Threshold
// uniqueness per organization is a unique index on
// (organization_id, min_hours).
type PauseRuleRepository struct {
	db *gorm.DB
}

func NewPauseRuleRepository(db *gorm.DB) *PauseRuleRepository {
	return &PauseRuleRepository{db: db}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (r *PauseRuleRepository) Create(rule *pauserule.PauseRule) error {
	if err := r.db.Create(rule).Error; err != nil {
		if isUniqueViolation(err) {
			return pauserule.ErrDuplicateRule
		}
		return err
	}
	return nil
}

func (r *PauseRuleRepository) GetByID(id int64) (*pauserule.PauseRule, error) {
	var rule pauserule.PauseRule
	err := r.db.Where("id = ?", id).First(&rule).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pauserule.ErrRuleNotFound
		}
		return nil, err
	}
	return &rule, nil
}

func (r *PauseRuleRepository) ListForOrg(orgID int64) ([]pauserule.PauseRule, error) {
	var rules []pauserule.PauseRule
	err := r.db.Where("organization_id = ?", orgID).
		Order("min_hours ASC").
		Find(&rules).Error
	return rules, err
}

func (r *PauseRuleRepository) Update(rule *pauserule.PauseRule) error {
	if err := r.db.Save(rule).Error; err != nil {
		if isUniqueViolation(err) {
			return pauserule.ErrDuplicateRule
		}
		return err
	}
	return nil
}

func (r *PauseRuleRepository) Delete(id int64) error {
	return r.db.Delete(&pauserule.PauseRule{}, id).Error
}
