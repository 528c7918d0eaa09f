package auth

import "github.com/spec-kit/helpdesk/internal/domain"

// Action names a protected operation gated by the role policy.
type Action string

const (
	ActionTicketCreate    Action = "ticket:create"
	ActionTicketRead      Action = "ticket:read"
	ActionTicketList      Action = "ticket:list"
	ActionTicketUpdate    Action = "ticket:update"
	ActionTicketSetStatus Action = "ticket:set_status"
	ActionTicketAssign    Action = "ticket:assign"
	ActionTicketDelete    Action = "ticket:delete"
	ActionUserUpdateRole  Action = "user:update_role"
	ActionUserList        Action = "user:list"
)

// Actions lists every policed action.
var Actions = []Action{
	ActionTicketCreate,
	ActionTicketRead,
	ActionTicketList,
	ActionTicketUpdate,
	ActionTicketSetStatus,
	ActionTicketAssign,
	ActionTicketDelete,
	ActionUserUpdateRole,
	ActionUserList,
}

// policy is the static (role, action) permission table. Ticket reads are
// permitted to customers only for their own tickets; that ownership check
// lives in the ticket service, not here.
var policy = map[Action]map[domain.Role]bool{
	ActionTicketCreate:    {domain.RoleCustomer: true},
	ActionTicketRead:      {domain.RoleCustomer: true, domain.RoleAgent: true, domain.RoleAdmin: true},
	ActionTicketList:      {domain.RoleAgent: true, domain.RoleAdmin: true},
	ActionTicketUpdate:    {domain.RoleAgent: true, domain.RoleAdmin: true},
	ActionTicketSetStatus: {domain.RoleAgent: true, domain.RoleAdmin: true},
	ActionTicketAssign:    {domain.RoleAdmin: true},
	ActionTicketDelete:    {domain.RoleAdmin: true},
	ActionUserUpdateRole:  {domain.RoleAdmin: true},
	ActionUserList:        {domain.RoleAdmin: true},
}

// Permit reports whether role may perform action. Unknown roles and unknown
// actions are denied.
func Permit(role domain.Role, action Action) bool {
	return policy[action][role]
}
