package schedule

import (
	"math"
	"time"

	"github.com/frahmantamala/time-tracking/internal/organization"
)

// Day truncates a timestamp to its UTC calendar day. All period math runs on
// whole days.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// InsertionPlan describes what must happen, atomically, for a new period to
// be inserted: the open-ended periods that get closed the day before the new
// period starts.
type InsertionPlan struct {
	CloseIDs []int64
	CloseTo  time.Time
}

// PlanInsertion validates the new period against the member's existing ones.
// An open-ended period that started earlier does not count as an overlap: it
// is scheduled to be closed at next.ValidFrom minus one day. Anything else
// that intersects the new range is an overlap.
func PlanInsertion(existing []WorkSchedulePeriod, next *WorkSchedulePeriod) (*InsertionPlan, error) {
	nextFrom := Day(next.ValidFrom)
	plan := &InsertionPlan{CloseTo: nextFrom.AddDate(0, 0, -1)}

	for i := range existing {
		p := &existing[i]

		if p.ValidTo == nil && Day(p.ValidFrom).Before(nextFrom) {
			plan.CloseIDs = append(plan.CloseIDs, p.ID)
			continue
		}
		if rangesIntersect(p, next) {
			return nil, ErrPeriodOverlap
		}
	}
	return plan, nil
}

// ValidateUpdate checks an edited period against the member's other periods.
// Unlike insertion there is no auto-close step: the edited range must simply
// not intersect any other period.
func ValidateUpdate(existing []WorkSchedulePeriod, updated *WorkSchedulePeriod) error {
	for i := range existing {
		p := &existing[i]
		if p.ID == updated.ID {
			continue
		}
		if rangesIntersect(p, updated) {
			return ErrPeriodOverlap
		}
	}
	return nil
}

func rangesIntersect(a, b *WorkSchedulePeriod) bool {
	aFrom, bFrom := Day(a.ValidFrom), Day(b.ValidFrom)

	// a starts after b ends
	if b.ValidTo != nil && aFrom.After(Day(*b.ValidTo)) {
		return false
	}
	// b starts after a ends
	if a.ValidTo != nil && bFrom.After(Day(*a.ValidTo)) {
		return false
	}
	return true
}

// EffectiveSchedule is the schedule in force on a given day, either from a
// matching period or from the membership defaults.
type EffectiveSchedule struct {
	WeeklyWorkHours float64 `json:"weekly_work_hours"`
	TargetMon       float64 `json:"target_mon"`
	TargetTue       float64 `json:"target_tue"`
	TargetWed       float64 `json:"target_wed"`
	TargetThu       float64 `json:"target_thu"`
	TargetFri       float64 `json:"target_fri"`
	// Source is "period" or "membership_defaults".
	Source   string `json:"source"`
	PeriodID *int64 `json:"period_id,omitempty"`
}

// ResolveAt picks the schedule applicable on the given day. When several
// periods contain the day the one with the latest ValidFrom wins; when none
// does, the membership defaults apply.
func ResolveAt(periods []WorkSchedulePeriod, membership *organization.Membership, day time.Time) EffectiveSchedule {
	var best *WorkSchedulePeriod
	for i := range periods {
		p := &periods[i]
		if !p.Contains(day) {
			continue
		}
		if best == nil || Day(p.ValidFrom).After(Day(best.ValidFrom)) {
			best = p
		}
	}

	if best != nil {
		return EffectiveSchedule{
			WeeklyWorkHours: best.WeeklyWorkHours,
			TargetMon:       best.TargetMon,
			TargetTue:       best.TargetTue,
			TargetWed:       best.TargetWed,
			TargetThu:       best.TargetThu,
			TargetFri:       best.TargetFri,
			Source:          "period",
			PeriodID:        &best.ID,
		}
	}

	var weekly float64
	if membership.WeeklyWorkHours != nil {
		weekly = *membership.WeeklyWorkHours
	}
	return EffectiveSchedule{
		WeeklyWorkHours: weekly,
		TargetMon:       membership.TargetMon,
		TargetTue:       membership.TargetTue,
		TargetWed:       membership.TargetWed,
		TargetThu:       membership.TargetThu,
		TargetFri:       membership.TargetFri,
		Source:          "membership_defaults",
	}
}

// DistributeEvenly spreads weekly hours over the five workdays, rounded to
// two decimals.
func DistributeEvenly(weekly float64) float64 {
	return math.Round(weekly/5*100) / 100
}
