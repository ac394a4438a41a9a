package metadata

// Capability is an atomic permission token scoped to one table.
type Capability string

const (
	CapabilityView Capability = "view"
	CapabilityEdit Capability = "edit"
)

// User is the authenticated user together with its table grants, decoded
// from the opaque JSON blobs in _users. Grants are re-read from the store on
// every request; a User value is never shared across requests.
type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	IsAdmin      bool   `json:"is_admin"`
	Active       bool   `json:"active"`

	// AccessibleTables gates dashboard listing and the read path.
	// Permissions gates column/row access per capability. The two are
	// enforced independently: a table may appear in one and not the other.
	AccessibleTables []string                `json:"accessible_tables"`
	Permissions      map[string][]Capability `json:"permissions"`
}

// CanView reports whether the user holds the view capability for the table.
// A table absent from Permissions simply has no grants.
func (u *User) CanView(table string) bool {
	return u.hasCapability(table, CapabilityView)
}

// CanEdit reports whether the user holds the edit capability for the table.
func (u *User) CanEdit(table string) bool {
	return u.hasCapability(table, CapabilityEdit)
}

// CanAccess reports whether the table is in the user's accessible list.
// This is the read-path gate; it is deliberately distinct from CanView.
func (u *User) CanAccess(table string) bool {
	for _, t := range u.AccessibleTables {
		if t == table {
			return true
		}
	}
	return false
}

func (u *User) hasCapability(table string, cap Capability) bool {
	caps, ok := u.Permissions[table]
	if !ok {
		return false
	}
	for _, c := range caps {
		if c == cap {
			return true
		}
	}
	return false
}
