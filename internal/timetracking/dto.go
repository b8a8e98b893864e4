package timetracking

import (
	"errors"
	"fmt"
	"time"
)

type StartEntryDTO struct {
	OrganizationID *int64  `json:"organization_id,omitempty"`
	Description    *string `json:"description,omitempty"`
	// StartTime defaults to now when absent; it may not lie in the future.
	StartTime *string `json:"start_time,omitempty"`
}

func (dto StartEntryDTO) Validate() error {
	if dto.StartTime != nil {
		start, err := time.Parse(time.RFC3339, *dto.StartTime)
		if err != nil {
			return fmt.Errorf("start_time: %w", err)
		}
		if start.After(time.Now().Add(time.Minute)) {
			return errors.New("start_time must not be in the future")
		}
	}
	return nil
}

func (dto StartEntryDTO) ParsedStart() time.Time {
	if dto.StartTime == nil {
		return time.Now()
	}
	start, _ := time.Parse(time.RFC3339, *dto.StartTime)
	return start
}

type UpdateEntryDTO struct {
	Description  *string  `json:"description,omitempty"`
	StartTime    *string  `json:"start_time,omitempty"`
	EndTime      *string  `json:"end_time,omitempty"`
	PauseMinutes *float64 `json:"pause_minutes,omitempty"`
}

func (dto UpdateEntryDTO) Validate() error {
	if dto.StartTime != nil {
		if _, err := time.Parse(time.RFC3339, *dto.StartTime); err != nil {
			return fmt.Errorf("start_time: %w", err)
		}
	}
	if dto.EndTime != nil {
		if _, err := time.Parse(time.RFC3339, *dto.EndTime); err != nil {
			return fmt.Errorf("end_time: %w", err)
		}
	}
	if dto.PauseMinutes != nil && *dto.PauseMinutes < 0 {
		return errors.New("pause_minutes must not be negative")
	}
	return nil
}

// TouchesTimes reports whether the update changes the entry's time range.
func (dto UpdateEntryDTO) TouchesTimes() bool {
	return dto.StartTime != nil || dto.EndTime != nil
}

type HistoryFilter struct {
	OrganizationID *int64
	From           *time.Time
	To             *time.Time
	Limit          int
	Offset         int
}

type EntryView struct {
	TimeEntry
	WorkedMinutes float64 `json:"worked_minutes"`
	NetMinutes    float64 `json:"net_minutes"`
}

func NewEntryView(e *TimeEntry) EntryView {
	return EntryView{
		TimeEntry:     *e,
		WorkedMinutes: e.Worked().Minutes(),
		NetMinutes:    e.NetMinutes(),
	}
}
