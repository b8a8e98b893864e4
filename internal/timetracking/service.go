package timetracking

import (
	"log/slog"
	"time"

	"github.com/frahmantamala/time-tracking/internal"
	"github.com/frahmantamala/time-tracking/internal/organization"
	"github.com/frahmantamala/time-tracking/internal/pauserule"
	"github.com/frahmantamala/time-tracking/internal/rulemode"
)

// Repository defines data access for time entries. A partial unique index on
// user_id where is_running guarantees at most one running entry per user;
// Create reports ErrAlreadyRunning on violation.
type Repository interface {
	Create(e *TimeEntry) error
	GetByID(id int64) (*TimeEntry, error)
	GetRunning(userID int64) (*TimeEntry, error)
	Update(e *TimeEntry) error
	Delete(id int64) error
	List(userID int64, filter HistoryFilter) ([]*TimeEntry, error)
}

// OrgStore is the slice of the organization repository the service needs.
type OrgStore interface {
	GetByID(id int64) (*organization.Organization, error)
	GetActiveMembership(orgID, userID int64) (*organization.Membership, error)
}

// RuleStore provides the pause rules for automatic deduction.
type RuleStore interface {
	ListForOrg(orgID int64) ([]pauserule.PauseRule, error)
}

type Service struct {
	repo   Repository
	orgs   OrgStore
	rules  RuleStore
	logger *slog.Logger
}

func NewService(repo Repository, orgs OrgStore, rules RuleStore, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		orgs:   orgs,
		rules:  rules,
		logger: logger,
	}
}

// Start begins a new entry. A still-running entry is stopped first, with its
// pause deduction applied, so the clock never runs twice.
func (s *Service) Start(userID int64, dto StartEntryDTO) (*TimeEntry, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	if dto.OrganizationID != nil {
		if _, err := s.orgs.GetActiveMembership(*dto.OrganizationID, userID); err != nil {
			return nil, internal.NewForbiddenError("you are not a member of this organization", internal.ErrCodeMemberNotFound)
		}
	}

	if running, err := s.repo.GetRunning(userID); err == nil && running != nil {
		if err := s.stop(running, time.Now()); err != nil {
			return nil, err
		}
		s.logger.Info("running entry force-stopped", "entry_id", running.ID, "user_id", userID)
	}

	entry := &TimeEntry{
		UserID:         userID,
		OrganizationID: dto.OrganizationID,
		Description:    dto.Description,
		StartTime:      dto.ParsedStart(),
		IsRunning:      true,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	if err := s.repo.Create(entry); err != nil {
		if err == ErrAlreadyRunning {
			return nil, internal.NewConflictError("a time entry is already running", internal.ErrCodeEntryRunning)
		}
		s.logger.Error("failed to start entry", "error", err, "user_id", userID)
		return nil, err
	}

	s.logger.Info("entry started", "entry_id", entry.ID, "user_id", userID)
	return entry, nil
}

// Stop ends the user's running entry and applies the pause deduction.
func (s *Service) Stop(userID int64) (*TimeEntry, error) {
	running, err := s.repo.GetRunning(userID)
	if err != nil {
		return nil, internal.NewNotFoundError("no running time entry", internal.ErrCodeEntryNotFound)
	}
	if err := s.stop(running, time.Now()); err != nil {
		return nil, err
	}

	s.logger.Info("entry stopped",
		"entry_id", running.ID,
		"user_id", userID,
		"pause_minutes", running.PauseMinutes)

	return running, nil
}

func (s *Service) stop(e *TimeEntry, at time.Time) error {
	e.EndTime = &at
	e.IsRunning = false
	e.UpdatedAt = time.Now()
	s.applyPauseRules(e)
	return s.repo.Update(e)
}

// applyPauseRules sets the automatic deduction on a finished entry. Personal
// entries, organizations with auto-pause off, and manually overridden pauses
// are left alone.
func (s *Service) applyPauseRules(e *TimeEntry) {
	if e.OrganizationID == nil || e.EndTime == nil || e.PauseOverridden {
		return
	}
	org, err := s.orgs.GetByID(*e.OrganizationID)
	if err != nil || !org.AutoPauseEnabled {
		return
	}
	rules, err := s.rules.ListForOrg(org.ID)
	if err != nil {
		s.logger.Error("failed to load pause rules", "error", err, "organization_id", org.ID)
		return
	}
	e.PauseMinutes = pauserule.Resolve(rules, e.Worked())
}

// Current returns the running entry, if any.
func (s *Service) Current(userID int64) (*TimeEntry, error) {
	running, err := s.repo.GetRunning(userID)
	if err != nil {
		return nil, internal.NewNotFoundError("no running time entry", internal.ErrCodeEntryNotFound)
	}
	return running, nil
}

// Update edits an entry. Finished entries that belong to an organization go
// through the edit gates: time changes through the past-entries mode, pause
// changes through the pause mode. A manual pause edit sticks: automatic
// deduction never overwrites it afterwards.
func (s *Service) Update(userID, entryID int64, dto UpdateEntryDTO) (*TimeEntry, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	entry, err := s.repo.GetByID(entryID)
	if err != nil {
		return nil, internal.NewNotFoundError("time entry not found", internal.ErrCodeEntryNotFound)
	}
	if entry.UserID != userID {
		return nil, internal.NewForbiddenError("you can only edit your own time entries", internal.ErrCodeNotOwnResource)
	}

	if entry.IsRunning && (dto.TouchesTimes() || dto.PauseMinutes != nil) {
		return nil, internal.NewInvalidStateError(
			"stop the entry before editing its times or pause",
			internal.ErrCodeEntryRunning)
	}

	if entry.OrganizationID != nil && !entry.IsRunning {
		org, err := s.orgs.GetByID(*entry.OrganizationID)
		if err != nil {
			return nil, internal.NewNotFoundError("organization not found", internal.ErrCodeOrgNotFound)
		}
		if dto.TouchesTimes() {
			if err := rulemode.CheckDirect(org.EditPastEntriesMode, "Editing past entries"); err != nil {
				return nil, err
			}
		}
		if dto.PauseMinutes != nil {
			if err := rulemode.CheckDirect(org.EditPauseMode, "Editing pauses"); err != nil {
				return nil, err
			}
		}
	}

	if dto.Description != nil {
		entry.Description = dto.Description
	}
	if dto.StartTime != nil {
		start, _ := time.Parse(time.RFC3339, *dto.StartTime)
		entry.StartTime = start
	}
	if dto.EndTime != nil {
		end, _ := time.Parse(time.RFC3339, *dto.EndTime)
		entry.EndTime = &end
	}
	if entry.EndTime != nil && !entry.EndTime.After(entry.StartTime) {
		return nil, internal.NewValidationError("end_time must be after start_time", internal.ErrCodeInvalidTimeRange)
	}
	if dto.PauseMinutes != nil {
		entry.PauseMinutes = *dto.PauseMinutes
		entry.PauseOverridden = true
	} else if dto.TouchesTimes() {
		// The worked duration changed, so the deduction may change too.
		s.applyPauseRules(entry)
	}
	entry.UpdatedAt = time.Now()

	if err := s.repo.Update(entry); err != nil {
		s.logger.Error("failed to update entry", "error", err, "entry_id", entryID)
		return nil, err
	}

	s.logger.Info("entry updated", "entry_id", entryID, "user_id", userID)
	return entry, nil
}

// Delete removes a finished entry. Past organization entries go through the
// same gate as editing them.
func (s *Service) Delete(userID, entryID int64) error {
	entry, err := s.repo.GetByID(entryID)
	if err != nil {
		return internal.NewNotFoundError("time entry not found", internal.ErrCodeEntryNotFound)
	}
	if entry.UserID != userID {
		return internal.NewForbiddenError("you can only delete your own time entries", internal.ErrCodeNotOwnResource)
	}

	if entry.OrganizationID != nil && !entry.IsRunning {
		org, err := s.orgs.GetByID(*entry.OrganizationID)
		if err == nil {
			if err := rulemode.CheckDirect(org.EditPastEntriesMode, "Editing past entries"); err != nil {
				return err
			}
		}
	}

	if err := s.repo.Delete(entryID); err != nil {
		s.logger.Error("failed to delete entry", "error", err, "entry_id", entryID)
		return err
	}

	s.logger.Info("entry deleted", "entry_id", entryID, "user_id", userID)
	return nil
}

// History lists the user's entries, newest first.
func (s *Service) History(userID int64, filter HistoryFilter) ([]EntryView, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 50
	}
	entries, err := s.repo.List(userID, filter)
	if err != nil {
		s.logger.Error("failed to list entries", "error", err, "user_id", userID)
		return nil, err
	}

	views := make([]EntryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, NewEntryView(e))
	}
	return views, nil
}
