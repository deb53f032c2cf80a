package member

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

const RoleAdmin = "admin"

// Member attaches a platform user to a license with a role and the
// permissions that role grants. Rows are soft-removed (Active=false), never
// deleted, so the membership history stays auditable.
type Member struct {
	ID          int64        `db:"id" json:"id"`
	LicenseID   int64        `db:"license_id" json:"license_id"`
	UserID      uuid.UUID    `db:"user_id" json:"user_id"`
	IsAdmin     bool         `db:"is_admin" json:"is_admin"`
	Role        string       `db:"role" json:"role"`
	Permissions []string     `db:"permissions" json:"permissions"`
	Active      bool         `db:"active" json:"active"`
	LastLogin   sql.NullTime `db:"last_login" json:"last_login,omitempty"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updated_at"`
}

// PermissionsForRole maps a role to its fixed permission set. Admins get a
// superset including manage_users; every other role gets the base set.
func PermissionsForRole(role string) (permissions []string, isAdmin bool) {
	if role == RoleAdmin {
		return []string{"view", "edit", "create", "delete", "manage_users"}, true
	}
	return []string{"view", "edit", "create"}, false
}
