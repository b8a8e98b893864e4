package organization

import (
	"errors"
	"regexp"
	"time"

	"github.com/frahmantamala/time-tracking/internal/rulemode"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// CreateOrganizationDTO is the payload for creating an organization. The
// caller becomes the Owner.
type CreateOrganizationDTO struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Slug        string  `json:"slug"`
	Website     *string `json:"website,omitempty"`
	LogoURL     *string `json:"logo_url,omitempty"`
}

func (dto CreateOrganizationDTO) Validate() error {
	if dto.Name == "" {
		return errors.New("name is required")
	}
	if dto.Slug == "" {
		return errors.New("slug is required")
	}
	if !slugPattern.MatchString(dto.Slug) {
		return errors.New("slug must contain only lowercase letters, digits and hyphens")
	}
	return nil
}

type UpdateOrganizationDTO struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Slug        *string `json:"slug,omitempty"`
	Website     *string `json:"website,omitempty"`
	LogoURL     *string `json:"logo_url,omitempty"`
}

func (dto UpdateOrganizationDTO) Validate() error {
	if dto.Slug != nil && !slugPattern.MatchString(*dto.Slug) {
		return errors.New("slug must contain only lowercase letters, digits and hyphens")
	}
	return nil
}

// UpdateSettingsDTO carries partial updates of the rule modes. Empty strings
// mean "leave unchanged".
type UpdateSettingsDTO struct {
	AutoPauseEnabled       *bool   `json:"auto_pause_enabled,omitempty"`
	EditPastEntriesMode    *string `json:"edit_past_entries_mode,omitempty"`
	EditPauseMode          *string `json:"edit_pause_mode,omitempty"`
	InitialOvertimeMode    *string `json:"initial_overtime_mode,omitempty"`
	JoinPolicy             *string `json:"join_policy,omitempty"`
	WorkScheduleChangeMode *string `json:"work_schedule_change_mode,omitempty"`
}

func (dto UpdateSettingsDTO) Validate() error {
	for _, m := range []*string{
		dto.EditPastEntriesMode,
		dto.EditPauseMode,
		dto.InitialOvertimeMode,
		dto.JoinPolicy,
		dto.WorkScheduleChangeMode,
	} {
		if m == nil {
			continue
		}
		if _, err := rulemode.Parse(*m); err != nil {
			return err
		}
	}
	return nil
}

type AddMemberDTO struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
}

func (dto AddMemberDTO) Validate() error {
	if dto.UserID <= 0 {
		return errors.New("user_id is required")
	}
	if dto.Role != "" {
		if _, err := ParseRole(dto.Role); err != nil {
			return err
		}
	}
	return nil
}

type UpdateMemberRoleDTO struct {
	Role string `json:"role"`
}

func (dto UpdateMemberRoleDTO) Validate() error {
	if dto.Role == "" {
		return errors.New("role is required")
	}
	_, err := ParseRole(dto.Role)
	return err
}

type OrganizationSummary struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Slug        string    `json:"slug"`
	Website     *string   `json:"website,omitempty"`
	LogoURL     *string   `json:"logo_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	MemberCount int64     `json:"member_count"`
	JoinPolicy  string    `json:"join_policy"`
}

type OrganizationDetail struct {
	OrganizationSummary
	AutoPauseEnabled       bool           `json:"auto_pause_enabled"`
	EditPastEntriesMode    string         `json:"edit_past_entries_mode"`
	EditPauseMode          string         `json:"edit_pause_mode"`
	InitialOvertimeMode    string         `json:"initial_overtime_mode"`
	WorkScheduleChangeMode string         `json:"work_schedule_change_mode"`
	Members                []MemberDetail `json:"members"`
}

type UserOrganizationSummary struct {
	OrganizationID int64     `json:"organization_id"`
	Name           string    `json:"name"`
	Description    *string   `json:"description,omitempty"`
	Slug           string    `json:"slug"`
	Role           Role      `json:"role"`
	JoinedAt       time.Time `json:"joined_at"`
	MemberCount    int64     `json:"member_count"`
}

// MemberTimeOverview is one row of the admin time overview: a member with
// aggregate tracked minutes for the requested range.
type MemberTimeOverview struct {
	UserID              int64    `json:"user_id"`
	FirstName           string   `json:"first_name"`
	LastName            string   `json:"last_name"`
	Email               string   `json:"email"`
	Role                Role     `json:"role"`
	WeeklyWorkHours     *float64 `json:"weekly_work_hours,omitempty"`
	TotalTrackedMinutes float64  `json:"total_tracked_minutes"`
	NetTrackedMinutes   float64  `json:"net_tracked_minutes"`
	EntryCount          int      `json:"entry_count"`
}
