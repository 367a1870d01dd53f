package model

type Role string

const (
	RoleCustomer   Role = "customer"
	RoleAdmin      Role = "admin"
	RoleOperations Role = "operations"
)

func (r Role) IsValid() bool {
	return r == RoleCustomer || r == RoleAdmin || r == RoleOperations
}

// Actor is the already-authenticated caller of a core operation.
// For customers, ID is the customer ID.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// Is reports whether the actor holds any of the given roles
func (a Actor) Is(roles ...Role) bool {
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}
