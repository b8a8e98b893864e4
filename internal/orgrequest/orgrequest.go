// Package orgrequest implements the approval workflow behind the
// requires_approval rule mode: users file requests, org admins accept or
// decline them, and accepting applies the requested change.
package orgrequest

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type RequestType string

const (
	TypeJoinOrganization   RequestType = "join_organization"
	TypeEditPastEntry      RequestType = "edit_past_entry"
	TypeEditPause          RequestType = "edit_pause"
	TypeSetInitialOvertime RequestType = "set_initial_overtime"
)

func (t RequestType) Valid() bool {
	switch t {
	case TypeJoinOrganization, TypeEditPastEntry, TypeEditPause, TypeSetInitialOvertime:
		return true
	}
	return false
}

func ParseRequestType(s string) (RequestType, error) {
	t := RequestType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown request type %q", s)
	}
	return t, nil
}

type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusAccepted RequestStatus = "accepted"
	StatusDeclined RequestStatus = "declined"
)

func ParseRequestStatus(s string) (RequestStatus, error) {
	switch st := RequestStatus(s); st {
	case StatusPending, StatusAccepted, StatusDeclined:
		return st, nil
	}
	return "", fmt.Errorf("unknown request status %q", s)
}

// OrgRequest is one approval request. RequestData holds the typed payload
// for the request's type; join requests carry none. Message is the
// requester's free-text note to the reviewing admin.
type OrgRequest struct {
	ID             int64           `json:"id" gorm:"primaryKey"`
	UserID         int64           `json:"user_id" gorm:"column:user_id;not null"`
	OrganizationID int64           `json:"organization_id" gorm:"column:organization_id;not null"`
	Type           RequestType     `json:"type" gorm:"column:type;not null"`
	Status         RequestStatus   `json:"status" gorm:"column:status;default:pending"`
	Message        *string         `json:"message,omitempty" gorm:"column:message"`
	RequestData    json.RawMessage `json:"request_data,omitempty" gorm:"column:request_data;type:jsonb"`
	CreatedAt      time.Time       `json:"created_at" gorm:"column:created_at;default:now()"`
	ResolvedAt     *time.Time      `json:"resolved_at,omitempty" gorm:"column:resolved_at"`
	ResolvedBy     *int64          `json:"resolved_by,omitempty" gorm:"column:resolved_by"`
}

func (OrgRequest) TableName() string {
	return "org_requests"
}

// EditPastEntryPayload asks for a retroactive change to a finished entry.
type EditPastEntryPayload struct {
	EntryID        int64   `json:"entry_id"`
	NewStartTime   string  `json:"new_start_time"`
	NewEndTime     string  `json:"new_end_time"`
	NewDescription *string `json:"new_description,omitempty"`
}

func (p EditPastEntryPayload) Validate() error {
	if p.EntryID <= 0 {
		return errors.New("entry_id is required")
	}
	start, err := time.Parse(time.RFC3339, p.NewStartTime)
	if err != nil {
		return fmt.Errorf("new_start_time: %w", err)
	}
	end, err := time.Parse(time.RFC3339, p.NewEndTime)
	if err != nil {
		return fmt.Errorf("new_end_time: %w", err)
	}
	if !end.After(start) {
		return errors.New("new_end_time must be after new_start_time")
	}
	return nil
}

// EditPausePayload asks to override the pause minutes of an entry.
type EditPausePayload struct {
	EntryID         int64   `json:"entry_id"`
	NewPauseMinutes float64 `json:"new_pause_minutes"`
}

func (p EditPausePayload) Validate() error {
	if p.EntryID <= 0 {
		return errors.New("entry_id is required")
	}
	if p.NewPauseMinutes < 0 {
		return errors.New("new_pause_minutes must not be negative")
	}
	return nil
}

// SetInitialOvertimePayload asks to set the member's overtime carried in
// from before they started tracking here.
type SetInitialOvertimePayload struct {
	Hours float64 `json:"hours"`
}

func (p SetInitialOvertimePayload) Validate() error {
	return nil
}

// ValidatePayload checks that the raw request data decodes into the payload
// the type expects. Join requests take no payload.
func ValidatePayload(t RequestType, raw json.RawMessage) error {
	switch t {
	case TypeJoinOrganization:
		return nil
	case TypeEditPastEntry:
		var p EditPastEntryPayload
		if err := strictDecode(raw, &p); err != nil {
			return err
		}
		return p.Validate()
	case TypeEditPause:
		var p EditPausePayload
		if err := strictDecode(raw, &p); err != nil {
			return err
		}
		return p.Validate()
	case TypeSetInitialOvertime:
		var p SetInitialOvertimePayload
		if err := strictDecode(raw, &p); err != nil {
			return err
		}
		return p.Validate()
	}
	return fmt.Errorf("unknown request type %q", t)
}

func strictDecode(raw json.RawMessage, dst interface{}) error {
	if len(raw) == 0 {
		return errors.New("request_data is required for this request type")
	}
	return json.Unmarshal(raw, dst)
}

// Domain errors
var (
	ErrRequestNotFound  = errors.New("request not found")
	ErrDuplicatePending = errors.New("a pending request of this type already exists for this organization")
)
