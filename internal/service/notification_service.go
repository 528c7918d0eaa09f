package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/broadcast"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/notify"
)

// NotificationService turns ticket events into assignee notifications. It
// runs entirely on the dispatcher's delivery goroutine; nothing here can
// fail the mutation that published the event.
type NotificationService struct {
	dispatcher  events.Dispatcher
	notifier    *notify.Notifier
	broadcaster broadcast.Broadcaster
	logger      *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, notifier *notify.Notifier, broadcaster broadcast.Broadcaster, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher:  dispatcher,
		notifier:    notifier,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// RegisterHandlers subscribes to ticket events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketUpdated, n.handleTicketUpdated)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleTicketAssigned)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload for %s", event.Type)
	}
	if payload.AssigneeEmail == "" {
		return nil
	}
	n.notifier.Notify(ctx, payload.AssigneeEmail,
		"New Ticket Assigned",
		fmt.Sprintf("A new ticket has been assigned to you: %s", payload.Title))
	return nil
}

func (n *NotificationService) handleTicketUpdated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketUpdatedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload for %s", event.Type)
	}
	if payload.AssigneeEmail == "" {
		return nil
	}
	n.notifier.Notify(ctx, payload.AssigneeEmail,
		"Ticket Updated",
		"A ticket assigned to you has been updated.")
	return nil
}

// handleTicketAssigned sends the mail-style notification and additionally
// emits a transient ticket_assigned broadcast event for real-time clients.
func (n *NotificationService) handleTicketAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload for %s", event.Type)
	}
	n.notifier.Notify(ctx, payload.AssigneeEmail,
		"Ticket Assigned",
		"You have a new ticket assigned to you.")

	if n.broadcaster != nil {
		n.broadcaster.Publish(ctx, "ticket_assigned", map[string]string{
			"user_id":   payload.AssigneeID,
			"ticket_id": event.TicketID,
		})
	}
	return nil
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload for %s", event.Type)
	}
	if payload.AssigneeEmail == "" {
		return nil
	}
	n.notifier.Notify(ctx, payload.AssigneeEmail,
		"Ticket Status Updated",
		fmt.Sprintf("The status of your ticket has been updated to %s.", payload.NewStatus))
	return nil
}
