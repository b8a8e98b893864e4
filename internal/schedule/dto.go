package schedule

import (
	"errors"
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

type CreatePeriodDTO struct {
	ValidFrom string  `json:"valid_from"`
	ValidTo   *string `json:"valid_to,omitempty"`

	WeeklyWorkHours float64  `json:"weekly_work_hours"`
	TargetMon       *float64 `json:"target_mon,omitempty"`
	TargetTue       *float64 `json:"target_tue,omitempty"`
	TargetWed       *float64 `json:"target_wed,omitempty"`
	TargetThu       *float64 `json:"target_thu,omitempty"`
	TargetFri       *float64 `json:"target_fri,omitempty"`

	// DistributeEvenly spreads weekly_work_hours over Mon-Fri and ignores
	// any explicit day targets.
	DistributeEvenly bool `json:"distribute_evenly,omitempty"`
}

func (dto CreatePeriodDTO) Validate() error {
	if dto.WeeklyWorkHours < 0 || dto.WeeklyWorkHours > 7*24 {
		return errors.New("weekly_work_hours must be between 0 and 168")
	}
	from, err := time.Parse(dateLayout, dto.ValidFrom)
	if err != nil {
		return fmt.Errorf("valid_from: expected YYYY-MM-DD: %w", err)
	}
	if dto.ValidTo != nil {
		to, err := time.Parse(dateLayout, *dto.ValidTo)
		if err != nil {
			return fmt.Errorf("valid_to: expected YYYY-MM-DD: %w", err)
		}
		if to.Before(from) {
			return errors.New("valid_to must not be before valid_from")
		}
	}
	for _, target := range []*float64{dto.TargetMon, dto.TargetTue, dto.TargetWed, dto.TargetThu, dto.TargetFri} {
		if target != nil && (*target < 0 || *target > 24) {
			return errors.New("day targets must be between 0 and 24 hours")
		}
	}
	return nil
}

// UpdatePeriodDTO partially edits an existing period: unset fields keep
// their current values.
type UpdatePeriodDTO struct {
	ValidFrom *string `json:"valid_from,omitempty"`
	ValidTo   *string `json:"valid_to,omitempty"`

	WeeklyWorkHours *float64 `json:"weekly_work_hours,omitempty"`
	TargetMon       *float64 `json:"target_mon,omitempty"`
	TargetTue       *float64 `json:"target_tue,omitempty"`
	TargetWed       *float64 `json:"target_wed,omitempty"`
	TargetThu       *float64 `json:"target_thu,omitempty"`
	TargetFri       *float64 `json:"target_fri,omitempty"`

	DistributeEvenly bool `json:"distribute_evenly,omitempty"`
}

func (dto UpdatePeriodDTO) Validate() error {
	if dto.ValidFrom != nil {
		if _, err := time.Parse(dateLayout, *dto.ValidFrom); err != nil {
			return fmt.Errorf("valid_from: expected YYYY-MM-DD: %w", err)
		}
	}
	if dto.ValidTo != nil {
		if _, err := time.Parse(dateLayout, *dto.ValidTo); err != nil {
			return fmt.Errorf("valid_to: expected YYYY-MM-DD: %w", err)
		}
	}
	if dto.WeeklyWorkHours != nil && (*dto.WeeklyWorkHours < 0 || *dto.WeeklyWorkHours > 7*24) {
		return errors.New("weekly_work_hours must be between 0 and 168")
	}
	if dto.DistributeEvenly && dto.WeeklyWorkHours == nil {
		return errors.New("distribute_evenly requires weekly_work_hours")
	}
	for _, target := range []*float64{dto.TargetMon, dto.TargetTue, dto.TargetWed, dto.TargetThu, dto.TargetFri} {
		if target != nil && (*target < 0 || *target > 24) {
			return errors.New("day targets must be between 0 and 24 hours")
		}
	}
	return nil
}

// Apply merges the set fields onto the period.
func (dto UpdatePeriodDTO) Apply(p *WorkSchedulePeriod) {
	if dto.ValidFrom != nil {
		from, _ := time.Parse(dateLayout, *dto.ValidFrom)
		p.ValidFrom = Day(from)
	}
	if dto.ValidTo != nil {
		to, _ := time.Parse(dateLayout, *dto.ValidTo)
		to = Day(to)
		p.ValidTo = &to
	}
	if dto.WeeklyWorkHours != nil {
		p.WeeklyWorkHours = *dto.WeeklyWorkHours
	}
	if dto.DistributeEvenly {
		daily := DistributeEvenly(p.WeeklyWorkHours)
		p.TargetMon, p.TargetTue, p.TargetWed, p.TargetThu, p.TargetFri = daily, daily, daily, daily, daily
		return
	}
	if dto.TargetMon != nil {
		p.TargetMon = *dto.TargetMon
	}
	if dto.TargetTue != nil {
		p.TargetTue = *dto.TargetTue
	}
	if dto.TargetWed != nil {
		p.TargetWed = *dto.TargetWed
	}
	if dto.TargetThu != nil {
		p.TargetThu = *dto.TargetThu
	}
	if dto.TargetFri != nil {
		p.TargetFri = *dto.TargetFri
	}
}

// UpdateDefaultsDTO changes the membership's default work schedule, the
// fallback used where no period applies.
type UpdateDefaultsDTO struct {
	WeeklyWorkHours *float64 `json:"weekly_work_hours,omitempty"`
	TargetMon       *float64 `json:"target_mon,omitempty"`
	TargetTue       *float64 `json:"target_tue,omitempty"`
	TargetWed       *float64 `json:"target_wed,omitempty"`
	TargetThu       *float64 `json:"target_thu,omitempty"`
	TargetFri       *float64 `json:"target_fri,omitempty"`

	DistributeEvenly bool `json:"distribute_evenly,omitempty"`
}

func (dto UpdateDefaultsDTO) Validate() error {
	if dto.WeeklyWorkHours != nil && (*dto.WeeklyWorkHours < 0 || *dto.WeeklyWorkHours > 7*24) {
		return errors.New("weekly_work_hours must be between 0 and 168")
	}
	if dto.DistributeEvenly && dto.WeeklyWorkHours == nil {
		return errors.New("distribute_evenly requires weekly_work_hours")
	}
	for _, target := range []*float64{dto.TargetMon, dto.TargetTue, dto.TargetWed, dto.TargetThu, dto.TargetFri} {
		if target != nil && (*target < 0 || *target > 24) {
			return errors.New("day targets must be between 0 and 24 hours")
		}
	}
	return nil
}

type SetInitialOvertimeDTO struct {
	Hours float64 `json:"hours"`
}

// ToPeriod builds the model from a validated DTO.
func (dto CreatePeriodDTO) ToPeriod(userID, orgID int64) *WorkSchedulePeriod {
	from, _ := time.Parse(dateLayout, dto.ValidFrom)
	p := &WorkSchedulePeriod{
		UserID:          userID,
		OrganizationID:  orgID,
		ValidFrom:       Day(from),
		WeeklyWorkHours: dto.WeeklyWorkHours,
		CreatedAt:       time.Now(),
	}
	if dto.ValidTo != nil {
		to, _ := time.Parse(dateLayout, *dto.ValidTo)
		to = Day(to)
		p.ValidTo = &to
	}

	if dto.DistributeEvenly {
		daily := DistributeEvenly(dto.WeeklyWorkHours)
		p.TargetMon, p.TargetTue, p.TargetWed, p.TargetThu, p.TargetFri = daily, daily, daily, daily, daily
		return p
	}

	if dto.TargetMon != nil {
		p.TargetMon = *dto.TargetMon
	}
	if dto.TargetTue != nil {
		p.TargetTue = *dto.TargetTue
	}
	if dto.TargetWed != nil {
		p.TargetWed = *dto.TargetWed
	}
	if dto.TargetThu != nil {
		p.TargetThu = *dto.TargetThu
	}
	if dto.TargetFri != nil {
		p.TargetFri = *dto.TargetFri
	}
	return p
}
