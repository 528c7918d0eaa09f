package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
)

type ticketFixture struct {
	svc        *TicketService
	tickets    *fakeTicketRepo
	users      *fakeUserRepo
	dispatcher *recordingDispatcher
	customer   *domain.User
	agent      *domain.User
}

func newTicketFixture(t *testing.T) *ticketFixture {
	t.Helper()
	users := newFakeUserRepo()
	tickets := newFakeTicketRepo()
	dispatcher := &recordingDispatcher{}

	customer := &domain.User{Name: "Carol", Email: "carol@example.com", PasswordHash: "x", Role: domain.RoleCustomer}
	require.NoError(t, users.Create(context.Background(), customer))
	agent := &domain.User{Name: "Andre", Email: "andre@example.com", PasswordHash: "x", Role: domain.RoleAgent}
	require.NoError(t, users.Create(context.Background(), agent))

	svc := NewTicketService(TicketDependencies{
		TicketRepo: tickets,
		UserRepo:   users,
		Dispatcher: dispatcher,
		Logger:     testLogger(),
	})
	return &ticketFixture{svc: svc, tickets: tickets, users: users, dispatcher: dispatcher, customer: customer, agent: agent}
}

func TestCreate_Defaults(t *testing.T) {
	fx := newTicketFixture(t)

	ticket, err := fx.svc.Create(context.Background(), fx.customer.ID, TicketCreateInput{
		Title:       "Issue with login",
		Description: "Unable to login",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
	assert.Equal(t, fx.customer.ID, ticket.CreatedBy)
	assert.Nil(t, ticket.AssignedTo)
	assert.Equal(t, ticket.CreatedAt, ticket.UpdatedAt)

	// no assignee, no notification
	assert.Empty(t, fx.dispatcher.published())
}

func TestCreate_Validation(t *testing.T) {
	fx := newTicketFixture(t)

	_, err := fx.svc.Create(context.Background(), fx.customer.ID, TicketCreateInput{Title: "", Description: "d"})
	assert.Equal(t, "VALIDATION_FAILED", domainCode(t, err))

	_, err = fx.svc.Create(context.Background(), fx.customer.ID, TicketCreateInput{Title: "t", Description: "  "})
	assert.Equal(t, "VALIDATION_FAILED", domainCode(t, err))

	_, err = fx.svc.Create(context.Background(), fx.customer.ID, TicketCreateInput{Title: "t", Description: "d", Priority: "urgent"})
	assert.Equal(t, "VALIDATION_FAILED", domainCode(t, err))
}

func TestCreate_AssignedNotifies(t *testing.T) {
	fx := newTicketFixture(t)

	ticket, err := fx.svc.Create(context.Background(), fx.customer.ID, TicketCreateInput{
		Title:       "Printer on fire",
		Description: "Literally",
		AssignedTo:  &fx.agent.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, ticket.AssignedTo)

	published := fx.dispatcher.published()
	require.Len(t, published, 1)
	assert.Equal(t, events.EventTicketCreated, published[0].Type)
	payload, ok := published[0].Payload.(events.TicketCreatedPayload)
	require.True(t, ok)
	assert.Equal(t, fx.agent.Email, payload.AssigneeEmail)
}

func TestUpdate_RefreshesUpdatedAtAndNotifiesNewAssignee(t *testing.T) {
	fx := newTicketFixture(t)

	ticket, err := fx.svc.Create(context.Background(), fx.customer.ID, TicketCreateInput{
		Title:       "Slow dashboard",
		Description: "Takes 30s to load",
	})
	require.NoError(t, err)
	before := ticket.UpdatedAt

	updated, err := fx.svc.Update(context.Background(), fx.agent.ID, ticket.ID, TicketPatch{
		AssignedTo: &fx.agent.ID,
	})
	require.NoError(t, err)

	require.NotNil(t, updated.AssignedTo)
	assert.Equal(t, fx.agent.ID, *updated.AssignedTo)
	assert.True(t, updated.UpdatedAt.After(before), "updated_at must be strictly later")
	assert.Equal(t, ticket.CreatedAt, updated.CreatedAt, "created_at is immutable")

	published := fx.dispatcher.published()
	require.Len(t, published, 1)
	assert.Equal(t, events.EventTicketUpdated, published[0].Type)
	payload, ok := published[0].Payload.(events.TicketUpdatedPayload)
	require.True(t, ok)
	assert.Equal(t, fx.agent.Email, payload.AssigneeEmail)
}

func TestUpdate_NotFound(t *testing.T) {
	fx := newTicketFixture(t)

	title := "x"
	_, err := fx.svc.Update(context.Background(), fx.agent.ID, "ticket-999", TicketPatch{Title: &title})
	assert.Equal(t, "NOT_FOUND", domainCode(t, err))
}

func TestUpdate_UnassignedTicketDoesNotNotify(t *testing.T) {
	fx := newTicketFixture(t)

	ticket, err := fx.svc.Create(context.Background(), fx.customer.ID, TicketCreateInput{Title: "t", Description: "d"})
	require.NoError(t, err)

	priority := domain.TicketPriorityHigh
	_, err = fx.svc.Update(context.Background(), fx.agent.ID, ticket.ID, TicketPatch{Priority: &priority})
	require.NoError(t, err)

	assert.Empty(t, fx.dispatcher.published())
}

func TestAssign_PublishesAfterPersist(t *testing.T) {
	fx := newTicketFixture(t)

	ticket, err := fx.svc.Create(context.Background(), fx.customer.ID, TicketCreateInput{Title: "t", Description: "d"})
	require.NoError(t, err)

	assigned, err := fx.svc.Assign(context.Background(), fx.agent.ID, ticket.ID, fx.agent.ID)
	require.NoError(t, err)
	require.NotNil(t, assigned.AssignedTo)
	assert.Equal(t, fx.agent.ID, *assigned.AssignedTo)

	published := fx.dispatcher.published()
	require.Len(t, published, 1)
	assert.Equal(t, events.EventTicketAssigned, published[0].Type)
	payload, ok := published[0].Payload.(events.TicketAssignedPayload)
	require.True(t, ok)
	assert.Equal(t, fx.agent.ID, payload.AssigneeID)
	assert.Equal(t, fx.agent.Email, payload.AssigneeEmail)

	// the mutation persisted regardless of notification
	stored, err := fx.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, fx.agent.ID, *stored.AssignedTo)
}

func TestAssign_MissingAssigneeSkipsNotification(t *testing.T) {
	fx := newTicketFixture(t)

	ticket, err := fx.svc.Create(context.Background(), fx.customer.ID, TicketCreateInput{Title: "t", Description: "d"})
	require.NoError(t, err)

	// assignment to a dangling user id persists but produces no event
	assigned, err := fx.svc.Assign(context.Background(), fx.agent.ID, ticket.ID, "user-999")
	require.NoError(t, err)
	assert.Equal(t, "user-999", *assigned.AssignedTo)
	assert.Empty(t, fx.dispatcher.published())
}

func TestAssign_NotFound(t *testing.T) {
	fx := newTicketFixture(t)

	_, err := fx.svc.Assign(context.Background(), fx.agent.ID, "ticket-999", fx.agent.ID)
	assert.Equal(t, "NOT_FOUND", domainCode(t, err))
}

func TestSetStatus_AnyTransitionLegal(t *testing.T) {
	fx := newTicketFixture(t)

	ticket, err := fx.svc.Create(context.Background(), fx.customer.ID, TicketCreateInput{Title: "t", Description: "d"})
	require.NoError(t, err)

	// forward and backward transitions are both allowed
	for _, status := range []domain.TicketStatus{
		domain.TicketStatusInProgress,
		domain.TicketStatusClosed,
		domain.TicketStatusOpen,
	} {
		updated, err := fx.svc.SetStatus(context.Background(), fx.agent.ID, ticket.ID, status)
		require.NoError(t, err)
		assert.Equal(t, status, updated.Status)
	}
}

func TestSetStatus_UnknownStatusRejected(t *testing.T) {
	fx := newTicketFixture(t)

	ticket, err := fx.svc.Create(context.Background(), fx.customer.ID, TicketCreateInput{Title: "t", Description: "d"})
	require.NoError(t, err)

	_, err = fx.svc.SetStatus(context.Background(), fx.agent.ID, ticket.ID, "resolved")
	assert.Equal(t, "VALIDATION_FAILED", domainCode(t, err))
}

func TestSetStatus_NotifiesAssignee(t *testing.T) {
	fx := newTicketFixture(t)

	ticket, err := fx.svc.Create(context.Background(), fx.customer.ID, TicketCreateInput{Title: "t", Description: "d"})
	require.NoError(t, err)
	_, err = fx.svc.Assign(context.Background(), fx.agent.ID, ticket.ID, fx.agent.ID)
	require.NoError(t, err)

	before := len(fx.dispatcher.published())
	_, err = fx.svc.SetStatus(context.Background(), fx.agent.ID, ticket.ID, domain.TicketStatusClosed)
	require.NoError(t, err)

	published := fx.dispatcher.published()
	require.Len(t, published, before+1, "exactly one event per status change")
	event := published[len(published)-1]
	assert.Equal(t, events.EventTicketStatusChanged, event.Type)
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	require.True(t, ok)
	assert.Equal(t, fx.agent.Email, payload.AssigneeEmail)
	assert.Equal(t, domain.TicketStatusOpen, payload.OldStatus)
	assert.Equal(t, domain.TicketStatusClosed, payload.NewStatus)
}

func TestDelete(t *testing.T) {
	fx := newTicketFixture(t)

	ticket, err := fx.svc.Create(context.Background(), fx.customer.ID, TicketCreateInput{Title: "t", Description: "d"})
	require.NoError(t, err)

	require.NoError(t, fx.svc.Delete(context.Background(), ticket.ID))

	_, err = fx.tickets.GetByID(context.Background(), ticket.ID)
	assert.Error(t, err)

	// deleting again (or any unknown id) is NOT_FOUND, not a crash
	err = fx.svc.Delete(context.Background(), ticket.ID)
	assert.Equal(t, "NOT_FOUND", domainCode(t, err))
}

func TestGetForRequester_CustomerOwnership(t *testing.T) {
	fx := newTicketFixture(t)

	other := &domain.User{Name: "Oscar", Email: "oscar@example.com", PasswordHash: "x", Role: domain.RoleCustomer}
	require.NoError(t, fx.users.Create(context.Background(), other))

	ticket, err := fx.svc.Create(context.Background(), fx.customer.ID, TicketCreateInput{Title: "t", Description: "d"})
	require.NoError(t, err)

	// owner reads fine
	view, err := fx.svc.GetForRequester(context.Background(), fx.customer, ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, view.Creator)
	assert.Equal(t, fx.customer.ID, view.Creator.ID)

	// another customer is denied
	_, err = fx.svc.GetForRequester(context.Background(), other, ticket.ID)
	assert.Equal(t, "ACCESS_DENIED", domainCode(t, err))

	// agents read any ticket
	_, err = fx.svc.GetForRequester(context.Background(), fx.agent, ticket.ID)
	assert.NoError(t, err)
}

func TestListAll_DenormalizedProjections(t *testing.T) {
	fx := newTicketFixture(t)

	ticket, err := fx.svc.Create(context.Background(), fx.customer.ID, TicketCreateInput{Title: "t", Description: "d"})
	require.NoError(t, err)
	_, err = fx.svc.Assign(context.Background(), fx.agent.ID, ticket.ID, fx.agent.ID)
	require.NoError(t, err)

	views, err := fx.svc.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 1)

	view := views[0]
	require.NotNil(t, view.Creator)
	assert.Equal(t, fx.customer.Email, view.Creator.Email)
	require.NotNil(t, view.Assignee)
	assert.Equal(t, fx.agent.Email, view.Assignee.Email)
}

func TestListAll_DanglingReferenceIsIntegrityError(t *testing.T) {
	fx := newTicketFixture(t)

	ticket := &domain.Ticket{
		Title:       "orphaned",
		Description: "creator no longer exists",
		Status:      domain.TicketStatusOpen,
		Priority:    domain.TicketPriorityMedium,
		CreatedBy:   "user-999",
	}
	require.NoError(t, fx.tickets.Create(context.Background(), ticket))

	_, err := fx.svc.ListAll(context.Background())
	require.Error(t, err)
	assert.Equal(t, "INTERNAL", domainCode(t, err))
}

func TestGetForRequester_NotFound(t *testing.T) {
	fx := newTicketFixture(t)

	_, err := fx.svc.GetForRequester(context.Background(), fx.agent, "ticket-999")
	assert.Equal(t, "NOT_FOUND", domainCode(t, err))
}
