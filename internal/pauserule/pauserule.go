// Package pauserule manages the per-organization break deduction table and
// resolves which deduction applies to a finished time entry.
package pauserule

import (
	"errors"
	"time"
)

// PauseRule deducts PauseMinutes from entries whose worked time reaches
// MinHours. Rules are unique per (organization, min_hours).
type PauseRule struct {
	ID             int64     `json:"id" gorm:"primaryKey"`
	OrganizationID int64     `json:"organization_id" gorm:"column:organization_id;not null"`
	MinHours       float64   `json:"min_hours" gorm:"column:min_hours;not null"`
	PauseMinutes   float64   `json:"pause_minutes" gorm:"column:pause_minutes;not null"`
	CreatedAt      time.Time `json:"created_at" gorm:"column:created_at;default:now()"`
}

func (PauseRule) TableName() string {
	return "pause_rules"
}

// Resolve picks the deduction for the worked duration: the rule with the
// highest threshold that the duration reaches. Zero when no rule qualifies.
func Resolve(rules []PauseRule, worked time.Duration) float64 {
	workedHours := worked.Hours()

	var best *PauseRule
	for i := range rules {
		r := &rules[i]
		if workedHours < r.MinHours {
			continue
		}
		if best == nil || r.MinHours > best.MinHours {
			best = r
		}
	}
	if best == nil {
		return 0
	}
	return best.PauseMinutes
}

var (
	ErrRuleNotFound  = errors.New("pause rule not found")
	ErrDuplicateRule = errors.New("a pause rule with this threshold already exists")
)
