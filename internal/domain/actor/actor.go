package actor

type Role string

const (
	RoleCustomer Role = "customer"
	RoleProvider Role = "provider"
	RoleAdmin    Role = "admin"
)

// Actor é quem executa a operação (vem do JWT).
type Actor struct {
	UserID uint
	Role   Role
}

func (a Actor) IsAdmin() bool    { return a.Role == RoleAdmin }
func (a Actor) IsCustomer() bool { return a.Role == RoleCustomer }
func (a Actor) IsProvider() bool { return a.Role == RoleProvider }

func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleCustomer, RoleProvider, RoleAdmin:
		return Role(s), true
	}
	return "", false
}

// CancelledBy is the value stored in appointments.cancelled_by.
func (a Actor) CancelledBy() string {
	return string(a.Role)
}
