// Package absence records whole-day absences (sick days, vacation) per
// member, at most one per member and calendar day.
package absence

import (
	"errors"
	"fmt"
	"time"
)

type AbsenceType string

const (
	TypeSickDay  AbsenceType = "sick_day"
	TypeVacation AbsenceType = "vacation"
	TypeOther    AbsenceType = "other"
)

func ParseAbsenceType(s string) (AbsenceType, error) {
	switch t := AbsenceType(s); t {
	case TypeSickDay, TypeVacation, TypeOther:
		return t, nil
	}
	return "", fmt.Errorf("unknown absence type %q", s)
}

// AbsenceDay marks one member absent for one calendar date. Date carries no
// time-of-day component; uniqueness is (user, organization, date).
type AbsenceDay struct {
	ID             int64       `json:"id" gorm:"primaryKey"`
	UserID         int64       `json:"user_id" gorm:"column:user_id;not null"`
	OrganizationID int64       `json:"organization_id" gorm:"column:organization_id;not null"`
	Date           time.Time   `json:"date" gorm:"column:date;not null"`
	Type           AbsenceType `json:"type" gorm:"column:type;not null"`
	Note           *string     `json:"note,omitempty" gorm:"column:note"`
	CreatedAt      time.Time   `json:"created_at" gorm:"column:created_at;default:now()"`
}

func (AbsenceDay) TableName() string {
	return "absence_days"
}

var (
	ErrAbsenceNotFound  = errors.New("absence day not found")
	ErrDuplicateAbsence = errors.New("an absence already exists on this date")
)
