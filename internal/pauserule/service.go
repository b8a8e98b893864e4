package pauserule

import (
	"log/slog"
	"time"

	"github.com/frahmantamala/time-tracking/internal"
	"github.com/frahmantamala/time-tracking/internal/organization"
)

// Repository defines data access for pause rules.
type Repository interface {
	Create(rule *PauseRule) error
	GetByID(id int64) (*PauseRule, error)
	ListForOrg(orgID int64) ([]PauseRule, error)
	Update(rule *PauseRule) error
	Delete(id int64) error
}

// OrgStore is the slice of the organization repository the service needs.
type OrgStore interface {
	GetBySlug(slug string) (*organization.Organization, error)
	GetActiveMembership(orgID, userID int64) (*organization.Membership, error)
}

type Service struct {
	repo   Repository
	orgs   OrgStore
	logger *slog.Logger
}

func NewService(repo Repository, orgs OrgStore, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		orgs:   orgs,
		logger: logger,
	}
}

// ListRules returns the organization's pause rules ordered by threshold.
// Any member may read them.
func (s *Service) ListRules(slug string, userID int64) ([]PauseRule, error) {
	org, err := s.orgs.GetBySlug(slug)
	if err != nil {
		return nil, internal.NewNotFoundError("organization not found", internal.ErrCodeOrgNotFound)
	}
	if _, err := s.orgs.GetActiveMembership(org.ID, userID); err != nil {
		return nil, internal.NewForbiddenError("you are not a member of this organization", internal.ErrCodeMemberNotFound)
	}
	return s.repo.ListForOrg(org.ID)
}

// CreateRule adds a deduction rule. Admin or Owner only.
func (s *Service) CreateRule(slug string, userID int64, dto CreatePauseRuleDTO) (*PauseRule, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeInvalidThreshold)
	}

	org, err := s.requireAdmin(slug, userID)
	if err != nil {
		return nil, err
	}

	rule := &PauseRule{
		OrganizationID: org.ID,
		MinHours:       dto.MinHours,
		PauseMinutes:   dto.PauseMinutes,
		CreatedAt:      time.Now(),
	}
	if err := s.repo.Create(rule); err != nil {
		if err == ErrDuplicateRule {
			return nil, internal.NewConflictError(
				"a pause rule with this threshold already exists",
				internal.ErrCodeDuplicateRule)
		}
		s.logger.Error("failed to create pause rule", "error", err, "organization_id", org.ID)
		return nil, err
	}

	s.logger.Info("pause rule created",
		"rule_id", rule.ID,
		"organization_id", org.ID,
		"min_hours", rule.MinHours,
		"pause_minutes", rule.PauseMinutes)

	return rule, nil
}

// UpdateRule changes an existing rule. Admin or Owner only.
func (s *Service) UpdateRule(slug string, userID, ruleID int64, dto UpdatePauseRuleDTO) (*PauseRule, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeInvalidThreshold)
	}

	org, err := s.requireAdmin(slug, userID)
	if err != nil {
		return nil, err
	}

	rule, err := s.repo.GetByID(ruleID)
	if err != nil || rule.OrganizationID != org.ID {
		return nil, internal.NewNotFoundError("pause rule not found", internal.ErrCodePauseRuleNotFound)
	}

	if dto.MinHours != nil {
		rule.MinHours = *dto.MinHours
	}
	if dto.PauseMinutes != nil {
		rule.PauseMinutes = *dto.PauseMinutes
	}

	if err := s.repo.Update(rule); err != nil {
		if err == ErrDuplicateRule {
			return nil, internal.NewConflictError(
				"a pause rule with this threshold already exists",
				internal.ErrCodeDuplicateRule)
		}
		s.logger.Error("failed to update pause rule", "error", err, "rule_id", ruleID)
		return nil, err
	}
	return rule, nil
}

// DeleteRule removes a rule. Admin or Owner only.
func (s *Service) DeleteRule(slug string, userID, ruleID int64) error {
	org, err := s.requireAdmin(slug, userID)
	if err != nil {
		return err
	}

	rule, err := s.repo.GetByID(ruleID)
	if err != nil || rule.OrganizationID != org.ID {
		return internal.NewNotFoundError("pause rule not found", internal.ErrCodePauseRuleNotFound)
	}

	if err := s.repo.Delete(ruleID); err != nil {
		s.logger.Error("failed to delete pause rule", "error", err, "rule_id", ruleID)
		return err
	}

	s.logger.Info("pause rule deleted", "rule_id", ruleID, "organization_id", org.ID)
	return nil
}

func (s *Service) requireAdmin(slug string, userID int64) (*organization.Organization, error) {
	org, err := s.orgs.GetBySlug(slug)
	if err != nil {
		return nil, internal.NewNotFoundError("organization not found", internal.ErrCodeOrgNotFound)
	}
	mem, err := s.orgs.GetActiveMembership(org.ID, userID)
	if err != nil {
		return nil, internal.NewForbiddenError("you are not a member of this organization", internal.ErrCodeMemberNotFound)
	}
	if !mem.Role.AtLeast(organization.RoleAdmin) {
		return nil, internal.NewForbiddenError("insufficient role for this action", internal.ErrCodeInsufficientRole)
	}
	return org, nil
}
