package schedule

import (
	"log/slog"
	"time"

	"github.com/frahmantamala/time-tracking/internal"
	"github.com/frahmantamala/time-tracking/internal/organization"
	"github.com/frahmantamala/time-tracking/internal/rulemode"
)

// Repository defines data access for schedule periods.
type Repository interface {
	// CreateWithAutoClose inserts the period, closing any earlier open-ended
	// period the day before the new one starts, all in one transaction. It
	// reports ErrPeriodOverlap when the new range collides with a closed
	// period.
	CreateWithAutoClose(p *WorkSchedulePeriod) error
	// UpdateWithOverlapCheck saves the edited period after re-validating its
	// range against the member's other periods, in one transaction.
	UpdateWithOverlapCheck(p *WorkSchedulePeriod) error
	GetByID(id int64) (*WorkSchedulePeriod, error)
	ListForMember(orgID, userID int64) ([]WorkSchedulePeriod, error)
	Delete(id int64) error
}

// OrgStore is the slice of the organization repository the service needs.
type OrgStore interface {
	GetBySlug(slug string) (*organization.Organization, error)
	GetActiveMembership(orgID, userID int64) (*organization.Membership, error)
	SaveMembership(m *organization.Membership) error
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

// access loads org, actor membership and target membership, and enforces
// that non-admins only touch their own schedule.
func (s *Service) access(slug string, actorID, targetUserID int64) (*organization.Organization, *organization.Membership, *organization.Membership, error) {
	org, err := s.orgs.GetBySlug(slug)
	if err != nil {
		return nil, nil, nil, internal.NewNotFoundError("organization not found", internal.ErrCodeOrgNotFound)
	}
	actor, err := s.orgs.GetActiveMembership(org.ID, actorID)
	if err != nil {
		return nil, nil, nil, internal.NewForbiddenError("you are not a member of this organization", internal.ErrCodeMemberNotFound)
	}
	if targetUserID != actorID && !actor.Role.AtLeast(organization.RoleAdmin) {
		return nil, nil, nil, internal.NewForbiddenError("you can only manage your own work schedule", internal.ErrCodeNotOwnResource)
	}
	target := actor
	if targetUserID != actorID {
		target, err = s.orgs.GetActiveMembership(org.ID, targetUserID)
		if err != nil {
			return nil, nil, nil, internal.NewNotFoundError("member not found in this organization", internal.ErrCodeMemberNotFound)
		}
	}
	return org, actor, target, nil
}

// ListPeriods returns a member's schedule periods, oldest first. Members see
// their own; admins see anyone's.
func (s *Service) ListPeriods(slug string, actorID, targetUserID int64) ([]WorkSchedulePeriod, error) {
	org, _, _, err := s.access(slug, actorID, targetUserID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListForMember(org.ID, targetUserID)
}

// CreatePeriod adds a schedule period. Members changing their own schedule
// go through the organization's work schedule change mode; admins are not
// gated.
func (s *Service) CreatePeriod(slug string, actorID, targetUserID int64, dto CreatePeriodDTO) (*WorkSchedulePeriod, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	org, actor, _, err := s.access(slug, actorID, targetUserID)
	if err != nil {
		return nil, err
	}

	if !actor.Role.AtLeast(organization.RoleAdmin) {
		if err := rulemode.CheckDirect(org.WorkScheduleChangeMode, "Changing the work schedule"); err != nil {
			return nil, err
		}
	}

	period := dto.ToPeriod(targetUserID, org.ID)
	if err := s.repo.CreateWithAutoClose(period); err != nil {
		if err == ErrPeriodOverlap {
			return nil, internal.NewConflictError(
				"the period overlaps an existing work schedule period",
				internal.ErrCodePeriodOverlap)
		}
		s.logger.Error("failed to create schedule period", "error", err, "user_id", targetUserID, "organization_id", org.ID)
		return nil, err
	}

	s.logger.Info("schedule period created",
		"period_id", period.ID,
		"user_id", targetUserID,
		"organization_id", org.ID,
		"valid_from", period.ValidFrom.Format(dateLayout),
		"created_by", actorID)

	return period, nil
}

// UpdatePeriod partially edits a period; unset fields keep their values.
// Same access rules as creating one.
func (s *Service) UpdatePeriod(slug string, actorID, periodID int64, dto UpdatePeriodDTO) (*WorkSchedulePeriod, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	period, err := s.repo.GetByID(periodID)
	if err != nil {
		return nil, internal.NewNotFoundError("work schedule period not found", internal.ErrCodePeriodNotFound)
	}

	org, actor, _, err := s.access(slug, actorID, period.UserID)
	if err != nil {
		return nil, err
	}
	if period.OrganizationID != org.ID {
		return nil, internal.NewNotFoundError("work schedule period not found", internal.ErrCodePeriodNotFound)
	}

	if !actor.Role.AtLeast(organization.RoleAdmin) {
		if err := rulemode.CheckDirect(org.WorkScheduleChangeMode, "Changing the work schedule"); err != nil {
			return nil, err
		}
	}

	dto.Apply(period)
	if period.ValidTo != nil && Day(*period.ValidTo).Before(Day(period.ValidFrom)) {
		return nil, internal.NewValidationError("valid_to must not be before valid_from", internal.ErrCodeValidationFailed)
	}

	if err := s.repo.UpdateWithOverlapCheck(period); err != nil {
		if err == ErrPeriodOverlap {
			return nil, internal.NewConflictError(
				"the period overlaps an existing work schedule period",
				internal.ErrCodePeriodOverlap)
		}
		s.logger.Error("failed to update schedule period", "error", err, "period_id", periodID)
		return nil, err
	}

	s.logger.Info("schedule period updated", "period_id", periodID, "updated_by", actorID)
	return period, nil
}

// DeletePeriod removes a period. Same access rules as creating one.
func (s *Service) DeletePeriod(slug string, actorID, periodID int64) error {
	period, err := s.repo.GetByID(periodID)
	if err != nil {
		return internal.NewNotFoundError("work schedule period not found", internal.ErrCodePeriodNotFound)
	}

	org, actor, _, err := s.access(slug, actorID, period.UserID)
	if err != nil {
		return err
	}
	if period.OrganizationID != org.ID {
		return internal.NewNotFoundError("work schedule period not found", internal.ErrCodePeriodNotFound)
	}

	if !actor.Role.AtLeast(organization.RoleAdmin) {
		if err := rulemode.CheckDirect(org.WorkScheduleChangeMode, "Changing the work schedule"); err != nil {
			return err
		}
	}

	if err := s.repo.Delete(periodID); err != nil {
		s.logger.Error("failed to delete schedule period", "error", err, "period_id", periodID)
		return err
	}

	s.logger.Info("schedule period deleted", "period_id", periodID, "deleted_by", actorID)
	return nil
}

// UpdateDefaults changes the membership's default schedule. Members go
// through the work schedule change mode; admins edit anyone directly.
func (s *Service) UpdateDefaults(slug string, actorID, targetUserID int64, dto UpdateDefaultsDTO) (*organization.Membership, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	org, actor, target, err := s.access(slug, actorID, targetUserID)
	if err != nil {
		return nil, err
	}
	if !actor.Role.AtLeast(organization.RoleAdmin) {
		if err := rulemode.CheckDirect(org.WorkScheduleChangeMode, "Changing the work schedule"); err != nil {
			return nil, err
		}
	}

	if dto.WeeklyWorkHours != nil {
		target.WeeklyWorkHours = dto.WeeklyWorkHours
	}
	if dto.DistributeEvenly {
		daily := DistributeEvenly(*dto.WeeklyWorkHours)
		target.TargetMon, target.TargetTue, target.TargetWed, target.TargetThu, target.TargetFri = daily, daily, daily, daily, daily
	} else {
		if dto.TargetMon != nil {
			target.TargetMon = *dto.TargetMon
		}
		if dto.TargetTue != nil {
			target.TargetTue = *dto.TargetTue
		}
		if dto.TargetWed != nil {
			target.TargetWed = *dto.TargetWed
		}
		if dto.TargetThu != nil {
			target.TargetThu = *dto.TargetThu
		}
		if dto.TargetFri != nil {
			target.TargetFri = *dto.TargetFri
		}
	}

	if err := s.orgs.SaveMembership(target); err != nil {
		s.logger.Error("failed to update schedule defaults", "error", err, "user_id", targetUserID, "organization_id", org.ID)
		return nil, err
	}

	s.logger.Info("schedule defaults updated", "user_id", targetUserID, "organization_id", org.ID, "changed_by", actorID)
	return target, nil
}

// SetInitialOvertime writes the member's overtime carried in from a previous
// system. Members go through the initial overtime mode; the approval path for
// requires_approval is an organization request.
func (s *Service) SetInitialOvertime(slug string, actorID, targetUserID int64, dto SetInitialOvertimeDTO) (*organization.Membership, error) {
	org, actor, target, err := s.access(slug, actorID, targetUserID)
	if err != nil {
		return nil, err
	}
	if !actor.Role.AtLeast(organization.RoleAdmin) {
		if err := rulemode.CheckDirect(org.InitialOvertimeMode, "Setting initial overtime"); err != nil {
			return nil, err
		}
	}

	target.InitialOvertimeHours = dto.Hours
	if err := s.orgs.SaveMembership(target); err != nil {
		s.logger.Error("failed to set initial overtime", "error", err, "user_id", targetUserID, "organization_id", org.ID)
		return nil, err
	}

	s.logger.Info("initial overtime set", "user_id", targetUserID, "organization_id", org.ID, "hours", dto.Hours, "changed_by", actorID)
	return target, nil
}

// EffectiveAt resolves the schedule in force for the member on the given
// day, falling back to the membership defaults when no period matches.
func (s *Service) EffectiveAt(slug string, actorID, targetUserID int64, day time.Time) (*EffectiveSchedule, error) {
	org, _, target, err := s.access(slug, actorID, targetUserID)
	if err != nil {
		return nil, err
	}

	periods, err := s.repo.ListForMember(org.ID, targetUserID)
	if err != nil {
		s.logger.Error("failed to list schedule periods", "error", err, "user_id", targetUserID)
		return nil, err
	}

	effective := ResolveAt(periods, target, day)
	return &effective, nil
}
