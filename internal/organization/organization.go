package organization

import (
	"errors"
	"fmt"
	"time"

	"github.com/frahmantamala/time-tracking/internal/rulemode"
)

// Organization is the tenant root. The five rule-mode columns each gate one
// member-facing behavior independently; AutoPauseEnabled switches the pause
// deduction on stop.
type Organization struct {
	ID          int64   `json:"id" gorm:"primaryKey"`
	Name        string  `json:"name" gorm:"not null"`
	Description *string `json:"description,omitempty"`
	Slug        string  `json:"slug" gorm:"not null"`
	Website     *string `json:"website,omitempty"`
	LogoURL     *string `json:"logo_url,omitempty" gorm:"column:logo_url"`
	IsActive    bool    `json:"is_active" gorm:"column:is_active;default:true"`

	AutoPauseEnabled       bool              `json:"auto_pause_enabled" gorm:"column:auto_pause_enabled;default:true"`
	EditPastEntriesMode    rulemode.RuleMode `json:"edit_past_entries_mode" gorm:"column:edit_past_entries_mode;default:allowed"`
	EditPauseMode          rulemode.RuleMode `json:"edit_pause_mode" gorm:"column:edit_pause_mode;default:allowed"`
	InitialOvertimeMode    rulemode.RuleMode `json:"initial_overtime_mode" gorm:"column:initial_overtime_mode;default:allowed"`
	JoinPolicy             rulemode.RuleMode `json:"join_policy" gorm:"column:join_policy;default:requires_approval"`
	WorkScheduleChangeMode rulemode.RuleMode `json:"work_schedule_change_mode" gorm:"column:work_schedule_change_mode;default:allowed"`

	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;default:now()"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at;default:now()"`
}

func (Organization) TableName() string {
	return "organizations"
}

// ApplyDefaultModes sets the rule modes a fresh organization starts with:
// everything allowed except joining, which goes through approval.
func (o *Organization) ApplyDefaultModes() {
	o.AutoPauseEnabled = true
	o.EditPastEntriesMode = rulemode.Allowed
	o.EditPauseMode = rulemode.Allowed
	o.InitialOvertimeMode = rulemode.Allowed
	o.JoinPolicy = rulemode.RequiresApproval
	o.WorkScheduleChangeMode = rulemode.Allowed
}

// ApplySettings copies the non-nil fields of a validated settings update
// onto the organization.
func (o *Organization) ApplySettings(dto UpdateSettingsDTO) {
	if dto.AutoPauseEnabled != nil {
		o.AutoPauseEnabled = *dto.AutoPauseEnabled
	}
	if dto.EditPastEntriesMode != nil {
		o.EditPastEntriesMode = rulemode.RuleMode(*dto.EditPastEntriesMode)
	}
	if dto.EditPauseMode != nil {
		o.EditPauseMode = rulemode.RuleMode(*dto.EditPauseMode)
	}
	if dto.InitialOvertimeMode != nil {
		o.InitialOvertimeMode = rulemode.RuleMode(*dto.InitialOvertimeMode)
	}
	if dto.JoinPolicy != nil {
		o.JoinPolicy = rulemode.RuleMode(*dto.JoinPolicy)
	}
	if dto.WorkScheduleChangeMode != nil {
		o.WorkScheduleChangeMode = rulemode.RuleMode(*dto.WorkScheduleChangeMode)
	}
}

type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
	RoleOwner  Role = "owner"
)

// Level makes roles comparable: owner > admin > member.
func (r Role) Level() int {
	switch r {
	case RoleOwner:
		return 2
	case RoleAdmin:
		return 1
	case RoleMember:
		return 0
	default:
		return -1
	}
}

func (r Role) AtLeast(other Role) bool {
	return r.Level() >= other.Level()
}

func ParseRole(s string) (Role, error) {
	r := Role(s)
	if r.Level() < 0 {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Membership joins a user to an organization. It also carries the member's
// default work schedule; WorkSchedulePeriods override these per date range.
type Membership struct {
	ID             int64     `json:"id" gorm:"primaryKey"`
	UserID         int64     `json:"user_id" gorm:"column:user_id;not null"`
	OrganizationID int64     `json:"organization_id" gorm:"column:organization_id;not null"`
	Role           Role      `json:"role" gorm:"column:role;default:member"`
	IsActive       bool      `json:"is_active" gorm:"column:is_active;default:true"`
	JoinedAt       time.Time `json:"joined_at" gorm:"column:joined_at;default:now()"`

	WeeklyWorkHours      *float64 `json:"weekly_work_hours,omitempty" gorm:"column:weekly_work_hours"`
	TargetMon            float64  `json:"target_mon" gorm:"column:target_mon;default:0"`
	TargetTue            float64  `json:"target_tue" gorm:"column:target_tue;default:0"`
	TargetWed            float64  `json:"target_wed" gorm:"column:target_wed;default:0"`
	TargetThu            float64  `json:"target_thu" gorm:"column:target_thu;default:0"`
	TargetFri            float64  `json:"target_fri" gorm:"column:target_fri;default:0"`
	InitialOvertimeHours float64  `json:"initial_overtime_hours" gorm:"column:initial_overtime_hours;default:0"`
}

func (Membership) TableName() string {
	return "user_organizations"
}

// MemberDetail is a membership joined with the user's identity fields for
// listings and admin views.
type MemberDetail struct {
	UserID               int64     `json:"id"`
	Email                string    `json:"email"`
	FirstName            string    `json:"first_name"`
	LastName             string    `json:"last_name"`
	Role                 Role      `json:"role"`
	JoinedAt             time.Time `json:"joined_at"`
	InitialOvertimeHours float64   `json:"initial_overtime_hours"`
}

// EntryStats aggregates a member's tracked time inside a date range. The
// time-entry store fills these for the admin overview.
type EntryStats struct {
	TotalMinutes float64
	PauseMinutes float64
	EntryCount   int
}

// MemberEntry is one tracked entry in the admin drill-down under the time
// overview.
type MemberEntry struct {
	ID           int64      `json:"id"`
	Description  *string    `json:"description,omitempty"`
	StartTime    time.Time  `json:"start_time"`
	EndTime      *time.Time `json:"end_time,omitempty"`
	PauseMinutes float64    `json:"pause_minutes"`
	NetMinutes   float64    `json:"net_minutes"`
	IsRunning    bool       `json:"is_running"`
}

// Domain errors
var (
	ErrOrgNotFound    = errors.New("organization not found")
	ErrMemberNotFound = errors.New("member not found in this organization")
	ErrDuplicateSlug  = errors.New("an organization with this slug already exists")
	ErrAlreadyMember  = errors.New("user is already a member of this organization")
)
