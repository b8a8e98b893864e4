// Package timetracking implements the time clock: starting and stopping
// entries, applying automatic pause deductions, and the gated editing of
// past entries and pauses.
package timetracking

import (
	"errors"
	"time"
)

// TimeEntry is one tracked block of work. OrganizationID is nil for
// personal entries, which bypass all organization rules. PauseOverridden
// marks a manually edited pause, which automatic deduction never touches
// again.
type TimeEntry struct {
	ID             int64   `json:"id" gorm:"primaryKey"`
	UserID         int64   `json:"user_id" gorm:"column:user_id;not null"`
	OrganizationID *int64  `json:"organization_id,omitempty" gorm:"column:organization_id"`
	Description    *string `json:"description,omitempty"`

	StartTime time.Time  `json:"start_time" gorm:"column:start_time;not null"`
	EndTime   *time.Time `json:"end_time,omitempty" gorm:"column:end_time"`
	IsRunning bool       `json:"is_running" gorm:"column:is_running;default:false"`

	PauseMinutes    float64 `json:"pause_minutes" gorm:"column:pause_minutes;default:0"`
	PauseOverridden bool    `json:"pause_overridden" gorm:"column:pause_overridden;default:false"`

	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;default:now()"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at;default:now()"`
}

func (TimeEntry) TableName() string {
	return "time_entries"
}

// Worked returns the gross tracked duration, zero while running.
func (e *TimeEntry) Worked() time.Duration {
	if e.EndTime == nil {
		return 0
	}
	return e.EndTime.Sub(e.StartTime)
}

// NetMinutes is the tracked time minus the pause deduction, floored at zero.
func (e *TimeEntry) NetMinutes() float64 {
	net := e.Worked().Minutes() - e.PauseMinutes
	if net < 0 {
		return 0
	}
	return net
}

var (
	ErrEntryNotFound  = errors.New("time entry not found")
	ErrAlreadyRunning = errors.New("a time entry is already running")
)
