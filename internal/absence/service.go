package absence

import (
	"log/slog"
	"time"

	"github.com/frahmantamala/time-tracking/internal"
	"github.com/frahmantamala/time-tracking/internal/organization"
)

// Repository defines data access for absence days.
type Repository interface {
	Create(day *AbsenceDay) error
	GetByID(id int64) (*AbsenceDay, error)
	ListForOrg(orgID int64, filter ListFilter) ([]AbsenceDetail, error)
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

// ListAbsences returns absences in the organization. Admins see everyone's,
// optionally filtered; members see only their own regardless of the filter.
func (s *Service) ListAbsences(slug string, userID int64, filter ListFilter) ([]AbsenceDetail, error) {
	org, mem, err := s.requireMember(slug, userID)
	if err != nil {
		return nil, err
	}
	if !mem.Role.AtLeast(organization.RoleAdmin) {
		filter.UserID = &userID
	}
	days, err := s.repo.ListForOrg(org.ID, filter)
	if err != nil {
		s.logger.Error("failed to list absences", "error", err, "organization_id", org.ID)
		return nil, err
	}
	return days, nil
}

// CreateAbsence records an absence for the caller.
func (s *Service) CreateAbsence(slug string, userID int64, dto CreateAbsenceDTO) (*AbsenceDay, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}
	org, _, err := s.requireMember(slug, userID)
	if err != nil {
		return nil, err
	}
	return s.create(org.ID, userID, dto.ParsedDate(), AbsenceType(dto.Type), dto.Note)
}

// CreateForMember records an absence for another member. Admin or Owner only;
// the target must be an active member of the organization.
func (s *Service) CreateForMember(slug string, actorID int64, dto AdminCreateAbsenceDTO) (*AbsenceDay, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}
	org, actor, err := s.requireMember(slug, actorID)
	if err != nil {
		return nil, err
	}
	if !actor.Role.AtLeast(organization.RoleAdmin) {
		return nil, internal.NewForbiddenError("insufficient role for this action", internal.ErrCodeInsufficientRole)
	}
	if _, err := s.orgs.GetActiveMembership(org.ID, dto.UserID); err != nil {
		return nil, internal.NewNotFoundError("member not found in this organization", internal.ErrCodeMemberNotFound)
	}
	parsed, _ := time.Parse("2006-01-02", dto.Date)
	return s.create(org.ID, dto.UserID, parsed, AbsenceType(dto.Type), dto.Note)
}

// DeleteAbsence removes an absence. Members delete their own; admins any.
func (s *Service) DeleteAbsence(slug string, userID, absenceID int64) error {
	org, mem, err := s.requireMember(slug, userID)
	if err != nil {
		return err
	}

	day, err := s.repo.GetByID(absenceID)
	if err != nil || day.OrganizationID != org.ID {
		return internal.NewNotFoundError("absence day not found", internal.ErrCodeAbsenceNotFound)
	}
	if day.UserID != userID && !mem.Role.AtLeast(organization.RoleAdmin) {
		return internal.NewForbiddenError("you can only delete your own absences", internal.ErrCodeNotOwnResource)
	}

	if err := s.repo.Delete(absenceID); err != nil {
		s.logger.Error("failed to delete absence", "error", err, "absence_id", absenceID)
		return err
	}

	s.logger.Info("absence deleted", "absence_id", absenceID, "organization_id", org.ID)
	return nil
}

func (s *Service) create(orgID, userID int64, date time.Time, typ AbsenceType, note *string) (*AbsenceDay, error) {
	day := &AbsenceDay{
		UserID:         userID,
		OrganizationID: orgID,
		Date:           date,
		Type:           typ,
		Note:           note,
		CreatedAt:      time.Now(),
	}
	if err := s.repo.Create(day); err != nil {
		if err == ErrDuplicateAbsence {
			return nil, internal.NewConflictError(
				"an absence already exists on this date",
				internal.ErrCodeDuplicateAbsence)
		}
		s.logger.Error("failed to create absence", "error", err, "organization_id", orgID, "user_id", userID)
		return nil, err
	}

	s.logger.Info("absence recorded",
		"absence_id", day.ID,
		"organization_id", orgID,
		"user_id", userID,
		"date", date.Format("2006-01-02"),
		"type", typ)

	return day, nil
}

func (s *Service) requireMember(slug string, userID int64) (*organization.Organization, *organization.Membership, error) {
	org, err := s.orgs.GetBySlug(slug)
	if err != nil {
		return nil, nil, internal.NewNotFoundError("organization not found", internal.ErrCodeOrgNotFound)
	}
	mem, err := s.orgs.GetActiveMembership(org.ID, userID)
	if err != nil {
		return nil, nil, internal.NewForbiddenError("you are not a member of this organization", internal.ErrCodeMemberNotFound)
	}
	return org, mem, nil
}
