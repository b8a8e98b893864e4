package postgres

import (
	"time"

	"gorm.io/gorm"

	"github.com/frahmantamala/time-tracking/internal/organization"
)

// OrganizationRepository implements organization.Repository using GORM.
type OrganizationRepository struct {
	db *gorm.DB
}

func NewOrganizationRepository(db *gorm.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

func (r *OrganizationRepository) ListActive() ([]*organization.Organization, error) {
	var orgs []*organization.Organization
	err := r.db.Where("is_active = ?", true).
		Order("created_at DESC").
		Find(&orgs).Error
	return orgs, err
}

func (r *OrganizationRepository) GetBySlug(slug string) (*organization.Organization, error) {
	var org organization.Organization
	err := r.db.Where("slug = ? AND is_active = ?", slug, true).First(&org).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, organization.ErrOrgNotFound
		}
		return nil, err
	}
	return &org, nil
}

func (r *OrganizationRepository) GetByID(id int64) (*organization.Organization, error) {
	var org organization.Organization
	err := r.db.Where("id = ? AND is_active = ?", id, true).First(&org).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, organization.ErrOrgNotFound
		}
		return nil, err
	}
	return &org, nil
}

// Create inserts the organization and its owner membership atomically.
func (r *OrganizationRepository) Create(org *organization.Organization, ownerUserID int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(org).Error; err != nil {
			return err
		}
		membership := &organization.Membership{
			UserID:         ownerUserID,
			OrganizationID: org.ID,
			Role:           organization.RoleOwner,
			IsActive:       true,
			JoinedAt:       time.Now(),
		}
		return tx.Create(membership).Error
	})
}

func (r *OrganizationRepository) Update(org *organization.Organization) error {
	org.UpdatedAt = time.Now()
	return r.db.Save(org).Error
}

// Deactivate soft-deletes the organization and all its memberships in one
// transaction.
func (r *OrganizationRepository) Deactivate(orgID int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&organization.Organization{}).
			Where("id = ?", orgID).
			Updates(map[string]interface{}{"is_active": false, "updated_at": time.Now()}).Error; err != nil {
			return err
		}
		return tx.Model(&organization.Membership{}).
			Where("organization_id = ?", orgID).
			Update("is_active", false).Error
	})
}

func (r *OrganizationRepository) CountActiveMembers(orgID int64) (int64, error) {
	var count int64
	err := r.db.Model(&organization.Membership{}).
		Where("organization_id = ? AND is_active = ?", orgID, true).
		Count(&count).Error
	return count, err
}

func (r *OrganizationRepository) ListMembers(orgID int64) ([]organization.MemberDetail, error) {
	var members []organization.MemberDetail
	err := r.db.Table("user_organizations").
		Select("users.id AS user_id, users.email, users.first_name, users.last_name, user_organizations.role, user_organizations.joined_at, user_organizations.initial_overtime_hours").
		Joins("JOIN users ON users.id = user_organizations.user_id").
		Where("user_organizations.organization_id = ? AND user_organizations.is_active = ?", orgID, true).
		Order("user_organizations.joined_at ASC").
		Scan(&members).Error
	return members, err
}

func (r *OrganizationRepository) GetMembership(orgID, userID int64) (*organization.Membership, error) {
	var m organization.Membership
	err := r.db.Where("organization_id = ? AND user_id = ?", orgID, userID).First(&m).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, organization.ErrMemberNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *OrganizationRepository) GetActiveMembership(orgID, userID int64) (*organization.Membership, error) {
	var m organization.Membership
	err := r.db.Where("organization_id = ? AND user_id = ? AND is_active = ?", orgID, userID, true).
		First(&m).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, organization.ErrMemberNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *OrganizationRepository) CreateMembership(m *organization.Membership) error {
	return r.db.Create(m).Error
}

func (r *OrganizationRepository) SaveMembership(m *organization.Membership) error {
	return r.db.Save(m).Error
}

func (r *OrganizationRepository) ListUserMemberships(userID int64) ([]*organization.Membership, error) {
	var memberships []*organization.Membership
	err := r.db.Where("user_id = ? AND is_active = ?", userID, true).
		Order("joined_at ASC").
		Find(&memberships).Error
	return memberships, err
}

// AdminOrgIDs returns the IDs of organizations where the user holds at least
// the admin role. The request service uses it to scope incoming approvals.
func (r *OrganizationRepository) AdminOrgIDs(userID int64) ([]int64, error) {
	var ids []int64
	err := r.db.Model(&organization.Membership{}).
		Where("user_id = ? AND is_active = ? AND role IN ?", userID, true, []string{
			string(organization.RoleAdmin), string(organization.RoleOwner),
		}).
		Pluck("organization_id", &ids).Error
	return ids, err
}
