package absence

import (
	"errors"
	"time"
)

type CreateAbsenceDTO struct {
	Date string  `json:"date"`
	Type string  `json:"type"`
	Note *string `json:"note,omitempty"`
}

func (dto CreateAbsenceDTO) Validate() error {
	if _, err := time.Parse("2006-01-02", dto.Date); err != nil {
		return errors.New("date must be YYYY-MM-DD")
	}
	if _, err := ParseAbsenceType(dto.Type); err != nil {
		return err
	}
	return nil
}

// ParsedDate is only valid after Validate has passed.
func (dto CreateAbsenceDTO) ParsedDate() time.Time {
	d, _ := time.Parse("2006-01-02", dto.Date)
	return d
}

// AdminCreateAbsenceDTO lets an admin record an absence for another member.
type AdminCreateAbsenceDTO struct {
	UserID int64   `json:"user_id"`
	Date   string  `json:"date"`
	Type   string  `json:"type"`
	Note   *string `json:"note,omitempty"`
}

func (dto AdminCreateAbsenceDTO) Validate() error {
	if dto.UserID <= 0 {
		return errors.New("user_id is required")
	}
	return CreateAbsenceDTO{Date: dto.Date, Type: dto.Type}.Validate()
}

// ListFilter narrows the admin listing; members always see only their own.
type ListFilter struct {
	UserID *int64
	From   *time.Time
	To     *time.Time
}

// AbsenceDetail is an absence joined with the member's name for the admin
// listing.
type AbsenceDetail struct {
	ID            int64       `json:"id"`
	UserID        int64       `json:"user_id"`
	UserFirstName string      `json:"user_first_name"`
	UserLastName  string      `json:"user_last_name"`
	Date          time.Time   `json:"date"`
	Type          AbsenceType `json:"type"`
	Note          *string     `json:"note,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
}
