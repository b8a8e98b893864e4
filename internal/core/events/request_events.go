package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeRequestCreated   = "request.created"
	EventTypeRequestResponded = "request.responded"
)

// RequestCreatedEvent fires when a user submits an approval request, so org
// admins can be notified.
type RequestCreatedEvent struct {
	BaseEvent
	RequestID      int64  `json:"request_id"`
	UserID         int64  `json:"user_id"`
	OrganizationID int64  `json:"organization_id"`
	RequestType    string `json:"request_type"`
}

func NewRequestCreatedEvent(requestID, userID, organizationID int64, requestType string) *RequestCreatedEvent {
	return &RequestCreatedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeRequestCreated,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"request_id":      requestID,
				"user_id":         userID,
				"organization_id": organizationID,
				"request_type":    requestType,
			},
		},
		RequestID:      requestID,
		UserID:         userID,
		OrganizationID: organizationID,
		RequestType:    requestType,
	}
}

// RequestRespondedEvent fires when an admin accepts or declines a request,
// so the requester can be notified of the outcome.
type RequestRespondedEvent struct {
	BaseEvent
	RequestID      int64  `json:"request_id"`
	UserID         int64  `json:"user_id"`
	OrganizationID int64  `json:"organization_id"`
	RequestType    string `json:"request_type"`
	Status         string `json:"status"`
	RespondedBy    int64  `json:"responded_by"`
}

func NewRequestRespondedEvent(requestID, userID, organizationID int64, requestType, status string, respondedBy int64) *RequestRespondedEvent {
	return &RequestRespondedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeRequestResponded,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"request_id":      requestID,
				"user_id":         userID,
				"organization_id": organizationID,
				"request_type":    requestType,
				"status":          status,
				"responded_by":    respondedBy,
			},
		},
		RequestID:      requestID,
		UserID:         userID,
		OrganizationID: organizationID,
		RequestType:    requestType,
		Status:         status,
		RespondedBy:    respondedBy,
	}
}
