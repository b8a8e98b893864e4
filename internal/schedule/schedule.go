// Package schedule manages work schedule periods: dated overrides of a
// member's weekly hours and per-day targets, used to compute overtime
// against tracked time.
package schedule

import (
	"errors"
	"time"
)

// WorkSchedulePeriod overrides the membership's default schedule for a date
// range. A nil ValidTo means the period is open-ended; a member has at most
// one open-ended period per organization.
type WorkSchedulePeriod struct {
	ID             int64      `json:"id" gorm:"primaryKey"`
	UserID         int64      `json:"user_id" gorm:"column:user_id;not null"`
	OrganizationID int64      `json:"organization_id" gorm:"column:organization_id;not null"`
	ValidFrom      time.Time  `json:"valid_from" gorm:"column:valid_from;not null"`
	ValidTo        *time.Time `json:"valid_to,omitempty" gorm:"column:valid_to"`

	WeeklyWorkHours float64 `json:"weekly_work_hours" gorm:"column:weekly_work_hours;not null"`
	TargetMon       float64 `json:"target_mon" gorm:"column:target_mon;default:0"`
	TargetTue       float64 `json:"target_tue" gorm:"column:target_tue;default:0"`
	TargetWed       float64 `json:"target_wed" gorm:"column:target_wed;default:0"`
	TargetThu       float64 `json:"target_thu" gorm:"column:target_thu;default:0"`
	TargetFri       float64 `json:"target_fri" gorm:"column:target_fri;default:0"`

	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;default:now()"`
}

func (WorkSchedulePeriod) TableName() string {
	return "work_schedule_periods"
}

// Contains reports whether the calendar day falls inside the period.
func (p *WorkSchedulePeriod) Contains(day time.Time) bool {
	day = Day(day)
	if day.Before(Day(p.ValidFrom)) {
		return false
	}
	if p.ValidTo != nil && day.After(Day(*p.ValidTo)) {
		return false
	}
	return true
}

var (
	ErrPeriodNotFound = errors.New("work schedule period not found")
	ErrPeriodOverlap  = errors.New("the period overlaps an existing work schedule period")
)
