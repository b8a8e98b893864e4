package postgres

import (
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/frahmantamala/time-tracking/internal/organization"
	"github.com/frahmantamala/time-tracking/internal/orgrequest"
)

// RequestRepository implements orgrequest.Repository using GORM. The
// one-pending-request-per-type rule is enforced by a partial unique index on
// (user_id, organization_id, type) where status = 'pending'; concurrent
// inserts surface here as unique violations.
type RequestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	// sqlite, used by the repository tests
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (r *RequestRepository) Create(req *orgrequest.OrgRequest) error {
	if err := r.db.Create(req).Error; err != nil {
		if isUniqueViolation(err) {
			return orgrequest.ErrDuplicatePending
		}
		return err
	}
	return nil
}

func (r *RequestRepository) CreateAccepted(req *orgrequest.OrgRequest, membership *organization.Membership) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(req).Error; err != nil {
			return err
		}
		return tx.Create(membership).Error
	})
}

func (r *RequestRepository) GetByID(id int64) (*orgrequest.OrgRequest, error) {
	var req orgrequest.OrgRequest
	err := r.db.Where("id = ?", id).First(&req).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, orgrequest.ErrRequestNotFound
		}
		return nil, err
	}
	return &req, nil
}

const detailSelect = `org_requests.id, org_requests.user_id, users.email AS user_email,
users.first_name AS user_first_name, users.last_name AS user_last_name,
org_requests.organization_id, organizations.name AS organization_name,
org_requests.type, org_requests.status, org_requests.message, org_requests.request_data,
org_requests.created_at, org_requests.resolved_at`

func (r *RequestRepository) ListForUser(userID int64) ([]orgrequest.RequestDetail, error) {
	var out []orgrequest.RequestDetail
	err := r.db.Table("org_requests").
		Select(detailSelect).
		Joins("JOIN users ON users.id = org_requests.user_id").
		Joins("JOIN organizations ON organizations.id = org_requests.organization_id").
		Where("org_requests.user_id = ?", userID).
		Order("org_requests.created_at DESC").
		Scan(&out).Error
	return out, err
}

func (r *RequestRepository) ListPendingForOrgs(orgIDs []int64) ([]orgrequest.RequestDetail, error) {
	var out []orgrequest.RequestDetail
	err := r.db.Table("org_requests").
		Select(detailSelect).
		Joins("JOIN users ON users.id = org_requests.user_id").
		Joins("JOIN organizations ON organizations.id = org_requests.organization_id").
		Where("org_requests.organization_id IN ? AND org_requests.status = ?", orgIDs, orgrequest.StatusPending).
		Order("org_requests.created_at DESC").
		Scan(&out).Error
	return out, err
}

func (r *RequestRepository) ListForOrg(orgID int64, filter orgrequest.ListFilter) ([]orgrequest.RequestDetail, error) {
	q := r.db.Table("org_requests").
		Select(detailSelect).
		Joins("JOIN users ON users.id = org_requests.user_id").
		Joins("JOIN organizations ON organizations.id = org_requests.organization_id").
		Where("org_requests.organization_id = ?", orgID)
	if filter.Type != nil {
		q = q.Where("org_requests.type = ?", *filter.Type)
	}
	if filter.Status != nil {
		q = q.Where("org_requests.status = ?", *filter.Status)
	}

	var out []orgrequest.RequestDetail
	err := q.Order("org_requests.created_at DESC").Scan(&out).Error
	return out, err
}

func (r *RequestRepository) CountPendingForOrgs(orgIDs []int64) (int64, error) {
	var count int64
	err := r.db.Model(&orgrequest.OrgRequest{}).
		Where("organization_id IN ? AND status = ?", orgIDs, orgrequest.StatusPending).
		Count(&count).Error
	return count, err
}

// respondTx flips a pending request to its final status inside tx. The
// status guard in the WHERE clause makes concurrent responses lose cleanly:
// zero rows updated means someone else resolved it first.
func respondTx(tx *gorm.DB, id int64, status orgrequest.RequestStatus, resolvedBy int64, resolvedAt time.Time) error {
	res := tx.Model(&orgrequest.OrgRequest{}).
		Where("id = ? AND status = ?", id, orgrequest.StatusPending).
		Updates(map[string]interface{}{
			"status":      status,
			"resolved_by": resolvedBy,
			"resolved_at": resolvedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return orgrequest.ErrRequestNotFound
	}
	return nil
}

func (r *RequestRepository) Respond(id int64, status orgrequest.RequestStatus, resolvedBy int64, resolvedAt time.Time) error {
	return respondTx(r.db, id, status, resolvedBy, resolvedAt)
}

func (r *RequestRepository) RespondAndCreateMembership(req *orgrequest.OrgRequest, resolvedBy int64, membership *organization.Membership) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := respondTx(tx, req.ID, orgrequest.StatusAccepted, resolvedBy, time.Now()); err != nil {
			return err
		}

		// The user may have been added manually or soft-removed since filing
		// the request; reactivate in place instead of inserting a duplicate.
		var existing organization.Membership
		err := tx.Where("organization_id = ? AND user_id = ?", req.OrganizationID, req.UserID).
			First(&existing).Error
		switch {
		case err == nil:
			existing.IsActive = true
			existing.JoinedAt = membership.JoinedAt
			return tx.Save(&existing).Error
		case err == gorm.ErrRecordNotFound:
			return tx.Create(membership).Error
		default:
			return err
		}
	})
}

func (r *RequestRepository) RespondAndSetInitialOvertime(req *orgrequest.OrgRequest, resolvedBy int64, hours float64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := respondTx(tx, req.ID, orgrequest.StatusAccepted, resolvedBy, time.Now()); err != nil {
			return err
		}
		res := tx.Model(&organization.Membership{}).
			Where("organization_id = ? AND user_id = ? AND is_active = ?", req.OrganizationID, req.UserID, true).
			Update("initial_overtime_hours", hours)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return organization.ErrMemberNotFound
		}
		return nil
	})
}
