package orgrequest

import (
	"encoding/json"
	"errors"
	"time"
)

type CreateRequestDTO struct {
	Type        string          `json:"type"`
	Message     *string         `json:"message,omitempty"`
	RequestData json.RawMessage `json:"request_data,omitempty"`
}

func (dto CreateRequestDTO) Validate() error {
	t, err := ParseRequestType(dto.Type)
	if err != nil {
		return err
	}
	return ValidatePayload(t, dto.RequestData)
}

type RespondDTO struct {
	Accept *bool `json:"accept"`
}

func (dto RespondDTO) Validate() error {
	if dto.Accept == nil {
		return errors.New("accept is required")
	}
	return nil
}

// ListFilter narrows the admin per-organization request list.
type ListFilter struct {
	Type   *RequestType
	Status *RequestStatus
}

// RequestDetail is a request joined with requester identity and organization
// name for the admin inbox and the user's own list.
type RequestDetail struct {
	ID               int64           `json:"id"`
	UserID           int64           `json:"user_id"`
	UserEmail        string          `json:"user_email"`
	UserFirstName    string          `json:"user_first_name"`
	UserLastName     string          `json:"user_last_name"`
	OrganizationID   int64           `json:"organization_id"`
	OrganizationName string          `json:"organization_name"`
	Type             RequestType     `json:"type"`
	Status           RequestStatus   `json:"status"`
	Message          *string         `json:"message,omitempty"`
	RequestData      json.RawMessage `json:"request_data,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	ResolvedAt       *time.Time      `json:"resolved_at,omitempty"`
}
