package pauserule

import "errors"

type CreatePauseRuleDTO struct {
	MinHours     float64 `json:"min_hours"`
	PauseMinutes float64 `json:"pause_minutes"`
}

func (dto CreatePauseRuleDTO) Validate() error {
	if dto.MinHours <= 0 {
		return errors.New("min_hours must be positive")
	}
	if dto.MinHours > 24 {
		return errors.New("min_hours must not exceed 24")
	}
	if dto.PauseMinutes <= 0 {
		return errors.New("pause_minutes must be positive")
	}
	if dto.PauseMinutes > 24*60 {
		return errors.New("pause_minutes must not exceed a day")
	}
	return nil
}

type UpdatePauseRuleDTO struct {
	MinHours     *float64 `json:"min_hours,omitempty"`
	PauseMinutes *float64 `json:"pause_minutes,omitempty"`
}

func (dto UpdatePauseRuleDTO) Validate() error {
	if dto.MinHours != nil && (*dto.MinHours <= 0 || *dto.MinHours > 24) {
		return errors.New("min_hours must be positive and at most 24")
	}
	if dto.PauseMinutes != nil && (*dto.PauseMinutes <= 0 || *dto.PauseMinutes > 24*60) {
		return errors.New("pause_minutes must be between 0 and a day")
	}
	return nil
}
