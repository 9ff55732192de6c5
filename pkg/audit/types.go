package audit

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// EventType represents the category of audit event
type EventType string

const (
	EventTypeTierCreate         EventType = "tier.create"
	EventTypeTierUpdate         EventType = "tier.update"
	EventTypeTierArchive        EventType = "tier.archive"
	EventTypeTierBenefitsUpdate EventType = "tier.benefits_update"

	EventTypeBenefitCreate EventType = "benefit.create"
	EventTypeBenefitUpdate EventType = "benefit.update"
	EventTypeBenefitDelete EventType = "benefit.delete"

	EventTypeSessionCreate       EventType = "subscribe_session.create"
	EventTypeSubscriptionsExport EventType = "subscriptions.export"
)

// EventStatus represents the outcome of an event
type EventStatus string

const (
	EventStatusSuccess EventStatus = "success"
	EventStatusFailure EventStatus = "failure"
	EventStatusDenied  EventStatus = "denied"
)

// StatusFor maps an HTTP status code to an event outcome
func StatusFor(code int) EventStatus {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return EventStatusDenied
	case code >= http.StatusBadRequest:
		return EventStatusFailure
	default:
		return EventStatusSuccess
	}
}

// Event is one audited request
type Event struct {
	Timestamp  time.Time     `json:"timestamp"`
	EventType  EventType     `json:"event_type"`
	Status     EventStatus   `json:"status"`
	UserID     *uuid.UUID    `json:"user_id,omitempty"`
	RequestID  string        `json:"request_id,omitempty"`
	IPAddress  string        `json:"ip_address,omitempty"`
	Method     string        `json:"method"`
	Route      string        `json:"route"`
	ResourceID string        `json:"resource_id,omitempty"`
	StatusCode int           `json:"status_code"`
	Duration   time.Duration `json:"duration"`
}
