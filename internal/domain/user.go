package domain

type Role string

const (
	RoleOwner  Role = "OWNER"
	RoleTenant Role = "TENANT"
	RoleAdmin  Role = "ADMIN"
)

func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleTenant, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID            string  `json:"id"`
	Email         string  `json:"email"`
	Name          string  `json:"name"`
	Role          Role    `json:"role"`
	WalletAddress *string `json:"wallet_address,omitempty"` // set once, lower-case hex
	CreatedOn     string  `json:"created_on"`
	UpdatedOn     string  `json:"updated_on"`
}

// HasWallet reports whether the user has linked a wallet address.
func (u *User) HasWallet() bool {
	return u.WalletAddress != nil && *u.WalletAddress != ""
}

// Actor is the authenticated caller of a service operation. It is built by the
// transport layer from a verified token and passed explicitly into every call.
type Actor struct {
	ID   string
	Role Role
}

func (a Actor) Authenticated() bool {
	return a.ID != "" && a.Role.Valid()
}
