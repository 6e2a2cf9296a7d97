package auth

// Action names a guarded operation. Every mutation in the order and result
// lifecycles consults the gate before touching storage, so the role policy
// lives in exactly one table.
type Action string

const (
	ActionOrderCreate     Action = "order:create"
	ActionOrderRead       Action = "order:read"
	ActionOrderTransition Action = "order:transition"
	ActionOrderUpdate     Action = "order:update"
	ActionOrderDelete     Action = "order:delete"
	ActionOrderPay        Action = "order:pay"
	ActionResultSubmit    Action = "result:submit"
	ActionResultRead      Action = "result:read"
	ActionResultEdit      Action = "result:edit"
	ActionResultVerify    Action = "result:verify"
	ActionResultDelete    Action = "result:delete"
	ActionReportRead      Action = "report:read"
)

// policy is the single source of truth for which role may attempt which
// action. State- and ownership-dependent rules (verified results, result
// authorship) are enforced by the owning service after this check.
var policy = map[Action][]Role{
	ActionOrderCreate:     {RoleAdmin, RoleReception, RoleDoctor},
	ActionOrderRead:       {RoleAdmin, RoleReception, RoleDoctor, RoleLabTech},
	ActionOrderTransition: {RoleAdmin, RoleReception, RoleLabTech},
	ActionOrderUpdate:     {RoleAdmin, RoleReception, RoleLabTech},
	ActionOrderDelete:     {RoleAdmin},
	ActionOrderPay:        {RoleAdmin, RoleReception, RoleLabTech},
	ActionResultSubmit:    {RoleAdmin, RoleLabTech},
	ActionResultRead:      {RoleAdmin, RoleReception, RoleDoctor, RoleLabTech},
	ActionResultEdit:      {RoleAdmin, RoleLabTech},
	ActionResultVerify:    {RoleAdmin, RoleDoctor},
	ActionResultDelete:    {RoleAdmin},
	ActionReportRead:      {RoleAdmin, RoleReception, RoleDoctor, RoleLabTech},
}

// Allows reports whether role may attempt action.
func Allows(role Role, action Action) bool {
	for _, r := range policy[action] {
		if r == role {
			return true
		}
	}
	return false
}
