package events

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketUpdated       EventType = "ticket_updated"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketStatusChanged EventType = "ticket_status_changed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	ActorID   string      `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload. Assignee fields are set only when the ticket
// was created already assigned.
type TicketCreatedPayload struct {
	Title         string                `json:"title"`
	Priority      domain.TicketPriority `json:"priority"`
	AssigneeID    *string               `json:"assignee_id,omitempty"`
	AssigneeEmail string                `json:"assignee_email,omitempty"`
}

// TicketUpdatedPayload payload.
type TicketUpdatedPayload struct {
	Title         string  `json:"title"`
	AssigneeID    *string `json:"assignee_id,omitempty"`
	AssigneeEmail string  `json:"assignee_email,omitempty"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	Title         string `json:"title"`
	AssigneeID    string `json:"assignee_id"`
	AssigneeEmail string `json:"assignee_email"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	Title         string              `json:"title"`
	OldStatus     domain.TicketStatus `json:"old_status"`
	NewStatus     domain.TicketStatus `json:"new_status"`
	AssigneeID    *string             `json:"assignee_id,omitempty"`
	AssigneeEmail string              `json:"assignee_email,omitempty"`
}
