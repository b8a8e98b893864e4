package organization

import (
	"log/slog"
	"time"

	"github.com/frahmantamala/time-tracking/internal"
)

// Repository defines the data access methods for organizations and
// memberships.
type Repository interface {
	ListActive() ([]*Organization, error)
	GetBySlug(slug string) (*Organization, error)
	GetByID(id int64) (*Organization, error)
	// Create inserts the organization and the owner membership in one
	// transaction.
	Create(org *Organization, ownerUserID int64) error
	Update(org *Organization) error
	// Deactivate soft-deletes the organization and all its memberships.
	Deactivate(orgID int64) error

	CountActiveMembers(orgID int64) (int64, error)
	ListMembers(orgID int64) ([]MemberDetail, error)
	GetMembership(orgID, userID int64) (*Membership, error)
	GetActiveMembership(orgID, userID int64) (*Membership, error)
	CreateMembership(m *Membership) error
	SaveMembership(m *Membership) error
	ListUserMemberships(userID int64) ([]*Membership, error)
}

// EntryStatsStore aggregates tracked time per member for the admin overview.
// The time-entry store implements it.
type EntryStatsStore interface {
	StatsForMember(userID, orgID int64, from, to time.Time) (EntryStats, error)
	EntriesForMember(userID, orgID int64, from, to time.Time) ([]MemberEntry, error)
}

type Service struct {
	repo   Repository
	stats  EntryStatsStore
	logger *slog.Logger
}

func NewService(repo Repository, stats EntryStatsStore, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		stats:  stats,
		logger: logger,
	}
}

// ListOrganizations returns all active organizations with member counts, for
// the discovery listing.
func (s *Service) ListOrganizations() ([]OrganizationSummary, error) {
	orgs, err := s.repo.ListActive()
	if err != nil {
		s.logger.Error("failed to list organizations", "error", err)
		return nil, err
	}

	summaries := make([]OrganizationSummary, 0, len(orgs))
	for _, org := range orgs {
		count, err := s.repo.CountActiveMembers(org.ID)
		if err != nil {
			s.logger.Error("failed to count members", "error", err, "organization_id", org.ID)
			return nil, err
		}
		summaries = append(summaries, s.toSummary(org, count))
	}
	return summaries, nil
}

// GetOrganization returns the full organization detail including settings and
// the member list. Only members may see it.
func (s *Service) GetOrganization(slug string, userID int64) (*OrganizationDetail, error) {
	org, err := s.repo.GetBySlug(slug)
	if err != nil {
		return nil, internal.NewNotFoundError("organization not found", internal.ErrCodeOrgNotFound)
	}

	if _, err := s.requireRole(org.ID, userID, RoleMember); err != nil {
		return nil, err
	}

	members, err := s.repo.ListMembers(org.ID)
	if err != nil {
		s.logger.Error("failed to list members", "error", err, "organization_id", org.ID)
		return nil, err
	}

	detail := &OrganizationDetail{
		OrganizationSummary:    s.toSummary(org, int64(len(members))),
		AutoPauseEnabled:       org.AutoPauseEnabled,
		EditPastEntriesMode:    string(org.EditPastEntriesMode),
		EditPauseMode:          string(org.EditPauseMode),
		InitialOvertimeMode:    string(org.InitialOvertimeMode),
		WorkScheduleChangeMode: string(org.WorkScheduleChangeMode),
		Members:                members,
	}
	return detail, nil
}

// CreateOrganization creates the organization with default rule modes and
// makes the caller its Owner.
func (s *Service) CreateOrganization(userID int64, dto CreateOrganizationDTO) (*Organization, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	if existing, err := s.repo.GetBySlug(dto.Slug); err == nil && existing != nil {
		return nil, internal.NewConflictError("an organization with this slug already exists", internal.ErrCodeDuplicateSlug)
	}

	org := &Organization{
		Name:        dto.Name,
		Description: dto.Description,
		Slug:        dto.Slug,
		Website:     dto.Website,
		LogoURL:     dto.LogoURL,
		IsActive:    true,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	org.ApplyDefaultModes()

	if err := s.repo.Create(org, userID); err != nil {
		s.logger.Error("failed to create organization", "error", err, "slug", dto.Slug)
		return nil, err
	}

	s.logger.Info("organization created",
		"organization_id", org.ID,
		"slug", org.Slug,
		"owner_user_id", userID)

	return org, nil
}

// UpdateOrganization updates profile fields. Admin or Owner only.
func (s *Service) UpdateOrganization(slug string, userID int64, dto UpdateOrganizationDTO) (*Organization, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	org, err := s.repo.GetBySlug(slug)
	if err != nil {
		return nil, internal.NewNotFoundError("organization not found", internal.ErrCodeOrgNotFound)
	}

	if _, err := s.requireRole(org.ID, userID, RoleAdmin); err != nil {
		return nil, err
	}

	if dto.Slug != nil && *dto.Slug != org.Slug {
		if existing, err := s.repo.GetBySlug(*dto.Slug); err == nil && existing != nil {
			return nil, internal.NewConflictError("an organization with this slug already exists", internal.ErrCodeDuplicateSlug)
		}
		org.Slug = *dto.Slug
	}
	if dto.Name != nil {
		org.Name = *dto.Name
	}
	if dto.Description != nil {
		org.Description = dto.Description
	}
	if dto.Website != nil {
		org.Website = dto.Website
	}
	if dto.LogoURL != nil {
		org.LogoURL = dto.LogoURL
	}
	org.UpdatedAt = time.Now()

	if err := s.repo.Update(org); err != nil {
		s.logger.Error("failed to update organization", "error", err, "organization_id", org.ID)
		return nil, err
	}

	return org, nil
}

// UpdateSettings changes the rule modes and the auto-pause switch. Admin or
// Owner only.
func (s *Service) UpdateSettings(slug string, userID int64, dto UpdateSettingsDTO) (*Organization, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	org, err := s.repo.GetBySlug(slug)
	if err != nil {
		return nil, internal.NewNotFoundError("organization not found", internal.ErrCodeOrgNotFound)
	}

	if _, err := s.requireRole(org.ID, userID, RoleAdmin); err != nil {
		return nil, err
	}

	org.ApplySettings(dto)
	org.UpdatedAt = time.Now()

	if err := s.repo.Update(org); err != nil {
		s.logger.Error("failed to update organization settings", "error", err, "organization_id", org.ID)
		return nil, err
	}

	s.logger.Info("organization settings updated",
		"organization_id", org.ID,
		"updated_by", userID)

	return org, nil
}

// DeleteOrganization soft-deletes the organization and its memberships.
// Owner only.
func (s *Service) DeleteOrganization(slug string, userID int64) error {
	org, err := s.repo.GetBySlug(slug)
	if err != nil {
		return internal.NewNotFoundError("organization not found", internal.ErrCodeOrgNotFound)
	}

	if _, err := s.requireRole(org.ID, userID, RoleOwner); err != nil {
		return err
	}

	if err := s.repo.Deactivate(org.ID); err != nil {
		s.logger.Error("failed to deactivate organization", "error", err, "organization_id", org.ID)
		return err
	}

	s.logger.Info("organization deleted", "organization_id", org.ID, "deleted_by", userID)
	return nil
}

// AddMember adds a user to the organization directly, bypassing the join
// workflow. Admin or Owner only; an Admin may not grant the Owner role.
func (s *Service) AddMember(slug string, actorID int64, dto AddMemberDTO) (*Membership, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	org, err := s.repo.GetBySlug(slug)
	if err != nil {
		return nil, internal.NewNotFoundError("organization not found", internal.ErrCodeOrgNotFound)
	}

	actor, err := s.requireRole(org.ID, actorID, RoleAdmin)
	if err != nil {
		return nil, err
	}

	role := RoleMember
	if dto.Role != "" {
		role, _ = ParseRole(dto.Role)
	}
	if role == RoleOwner && actor.Role != RoleOwner {
		return nil, internal.NewForbiddenError("only the owner can grant the owner role", internal.ErrCodeInsufficientRole)
	}

	existing, err := s.repo.GetMembership(org.ID, dto.UserID)
	if err == nil && existing != nil {
		if existing.IsActive {
			return nil, internal.NewConflictError("user is already a member of this organization", internal.ErrCodeAlreadyMember)
		}
		// Previously removed: reactivate instead of inserting a duplicate row.
		existing.IsActive = true
		existing.Role = role
		existing.JoinedAt = time.Now()
		if err := s.repo.SaveMembership(existing); err != nil {
			s.logger.Error("failed to reactivate membership", "error", err, "user_id", dto.UserID)
			return nil, err
		}
		return existing, nil
	}

	membership := &Membership{
		UserID:         dto.UserID,
		OrganizationID: org.ID,
		Role:           role,
		IsActive:       true,
		JoinedAt:       time.Now(),
	}
	if err := s.repo.CreateMembership(membership); err != nil {
		s.logger.Error("failed to add member", "error", err, "organization_id", org.ID, "user_id", dto.UserID)
		return nil, err
	}

	s.logger.Info("member added",
		"organization_id", org.ID,
		"user_id", dto.UserID,
		"role", role,
		"added_by", actorID)

	return membership, nil
}

// UpdateMemberRole changes a member's role. The Owner's own role is
// immutable; an Admin may neither modify Admins or the Owner nor grant the
// Owner role.
func (s *Service) UpdateMemberRole(slug string, actorID, memberUserID int64, dto UpdateMemberRoleDTO) (*Membership, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}
	newRole, _ := ParseRole(dto.Role)

	org, err := s.repo.GetBySlug(slug)
	if err != nil {
		return nil, internal.NewNotFoundError("organization not found", internal.ErrCodeOrgNotFound)
	}

	actor, err := s.requireRole(org.ID, actorID, RoleAdmin)
	if err != nil {
		return nil, err
	}

	target, err := s.repo.GetActiveMembership(org.ID, memberUserID)
	if err != nil {
		return nil, internal.NewNotFoundError("member not found in this organization", internal.ErrCodeMemberNotFound)
	}

	if target.Role == RoleOwner {
		return nil, internal.NewForbiddenError("the owner's role cannot be changed", internal.ErrCodeOwnerImmutable)
	}
	if actor.Role != RoleOwner {
		if target.Role.AtLeast(RoleAdmin) {
			return nil, internal.NewForbiddenError("admins cannot modify other admins", internal.ErrCodeInsufficientRole)
		}
		if newRole == RoleOwner {
			return nil, internal.NewForbiddenError("only the owner can grant the owner role", internal.ErrCodeInsufficientRole)
		}
	}
	if newRole == RoleOwner {
		return nil, internal.NewForbiddenError("ownership cannot be transferred through role updates", internal.ErrCodeOwnerImmutable)
	}

	target.Role = newRole
	if err := s.repo.SaveMembership(target); err != nil {
		s.logger.Error("failed to update member role", "error", err, "organization_id", org.ID, "user_id", memberUserID)
		return nil, err
	}

	s.logger.Info("member role updated",
		"organization_id", org.ID,
		"user_id", memberUserID,
		"role", newRole,
		"updated_by", actorID)

	return target, nil
}

// RemoveMember deactivates a membership. Members may remove themselves
// (leave) unless they are the Owner; Admins may remove plain members; the
// Owner may remove anyone but themselves.
func (s *Service) RemoveMember(slug string, actorID, memberUserID int64) error {
	org, err := s.repo.GetBySlug(slug)
	if err != nil {
		return internal.NewNotFoundError("organization not found", internal.ErrCodeOrgNotFound)
	}

	actor, err := s.requireRole(org.ID, actorID, RoleMember)
	if err != nil {
		return err
	}

	target, err := s.repo.GetActiveMembership(org.ID, memberUserID)
	if err != nil {
		return internal.NewNotFoundError("member not found in this organization", internal.ErrCodeMemberNotFound)
	}

	if target.Role == RoleOwner {
		return internal.NewForbiddenError("the owner cannot be removed from the organization", internal.ErrCodeOwnerImmutable)
	}
	if actorID != memberUserID {
		if !actor.Role.AtLeast(RoleAdmin) {
			return internal.NewForbiddenError("insufficient role to remove members", internal.ErrCodeInsufficientRole)
		}
		if actor.Role != RoleOwner && target.Role.AtLeast(RoleAdmin) {
			return internal.NewForbiddenError("admins cannot remove other admins", internal.ErrCodeInsufficientRole)
		}
	}

	target.IsActive = false
	if err := s.repo.SaveMembership(target); err != nil {
		s.logger.Error("failed to remove member", "error", err, "organization_id", org.ID, "user_id", memberUserID)
		return err
	}

	s.logger.Info("member removed",
		"organization_id", org.ID,
		"user_id", memberUserID,
		"removed_by", actorID)

	return nil
}

// ListUserOrganizations returns the organizations the user belongs to,
// with their role in each.
func (s *Service) ListUserOrganizations(userID int64) ([]UserOrganizationSummary, error) {
	memberships, err := s.repo.ListUserMemberships(userID)
	if err != nil {
		s.logger.Error("failed to list user memberships", "error", err, "user_id", userID)
		return nil, err
	}

	out := make([]UserOrganizationSummary, 0, len(memberships))
	for _, m := range memberships {
		org, err := s.repo.GetByID(m.OrganizationID)
		if err != nil {
			continue
		}
		count, err := s.repo.CountActiveMembers(org.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, UserOrganizationSummary{
			OrganizationID: org.ID,
			Name:           org.Name,
			Description:    org.Description,
			Slug:           org.Slug,
			Role:           m.Role,
			JoinedAt:       m.JoinedAt,
			MemberCount:    count,
		})
	}
	return out, nil
}

// TimeOverview aggregates every member's tracked time within [from, to].
// Admin or Owner only.
func (s *Service) TimeOverview(slug string, actorID int64, from, to time.Time) ([]MemberTimeOverview, error) {
	org, err := s.repo.GetBySlug(slug)
	if err != nil {
		return nil, internal.NewNotFoundError("organization not found", internal.ErrCodeOrgNotFound)
	}

	if _, err := s.requireRole(org.ID, actorID, RoleAdmin); err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, internal.NewValidationError("to must not be before from", internal.ErrCodeInvalidTimeRange)
	}

	members, err := s.repo.ListMembers(org.ID)
	if err != nil {
		return nil, err
	}

	rows := make([]MemberTimeOverview, 0, len(members))
	for _, m := range members {
		stats, err := s.stats.StatsForMember(m.UserID, org.ID, from, to)
		if err != nil {
			s.logger.Error("failed to aggregate member time", "error", err, "user_id", m.UserID)
			return nil, err
		}
		membership, err := s.repo.GetActiveMembership(org.ID, m.UserID)
		if err != nil {
			continue
		}
		rows = append(rows, MemberTimeOverview{
			UserID:              m.UserID,
			FirstName:           m.FirstName,
			LastName:            m.LastName,
			Email:               m.Email,
			Role:                m.Role,
			WeeklyWorkHours:     membership.WeeklyWorkHours,
			TotalTrackedMinutes: stats.TotalMinutes,
			NetTrackedMinutes:   stats.TotalMinutes - stats.PauseMinutes,
			EntryCount:          stats.EntryCount,
		})
	}
	return rows, nil
}

// MemberEntries lists one member's entries within [from, to] for the admin
// drill-down under the time overview. Admin or Owner only.
func (s *Service) MemberEntries(slug string, actorID, memberUserID int64, from, to time.Time) ([]MemberEntry, error) {
	org, err := s.repo.GetBySlug(slug)
	if err != nil {
		return nil, internal.NewNotFoundError("organization not found", internal.ErrCodeOrgNotFound)
	}

	if _, err := s.requireRole(org.ID, actorID, RoleAdmin); err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, internal.NewValidationError("to must not be before from", internal.ErrCodeInvalidTimeRange)
	}
	if _, err := s.repo.GetActiveMembership(org.ID, memberUserID); err != nil {
		return nil, internal.NewNotFoundError("member not found in this organization", internal.ErrCodeMemberNotFound)
	}

	entries, err := s.stats.EntriesForMember(memberUserID, org.ID, from, to)
	if err != nil {
		s.logger.Error("failed to list member entries", "error", err, "user_id", memberUserID)
		return nil, err
	}
	return entries, nil
}

// requireRole loads the actor's active membership and checks it against the
// minimum role.
func (s *Service) requireRole(orgID, userID int64, min Role) (*Membership, error) {
	m, err := s.repo.GetActiveMembership(orgID, userID)
	if err != nil {
		return nil, internal.NewForbiddenError("you are not a member of this organization", internal.ErrCodeMemberNotFound)
	}
	if !m.Role.AtLeast(min) {
		return nil, internal.NewForbiddenError("insufficient role for this action", internal.ErrCodeInsufficientRole)
	}
	return m, nil
}

func (s *Service) toSummary(org *Organization, memberCount int64) OrganizationSummary {
	return OrganizationSummary{
		ID:          org.ID,
		Name:        org.Name,
		Description: org.Description,
		Slug:        org.Slug,
		Website:     org.Website,
		LogoURL:     org.LogoURL,
		CreatedAt:   org.CreatedAt,
		MemberCount: memberCount,
		JoinPolicy:  string(org.JoinPolicy),
	}
}
