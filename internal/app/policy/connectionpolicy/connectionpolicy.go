// Package connectionpolicy decides which side of a connection the current
// user may act for.
//
// The user side belongs to the connection's user only. The org side belongs
// to the organization's admins and to site admins.
package connectionpolicy

import (
	"github.com/dalemusser/melange/internal/app/policy/orgpolicy"
	"github.com/dalemusser/melange/internal/domain/models"
)

// Access lists the sides of one connection an actor may act for.
type Access struct {
	UserSide bool
	OrgSide  bool
}

// CanView reports whether the actor may see the connection at all.
func (a Access) CanView() bool {
	return a.UserSide || a.OrgSide
}

// ForConnection computes the actor's access to conn.
func ForConnection(a orgpolicy.Actor, conn models.Connection) Access {
	return Access{
		UserSide: a.UserID == conn.UserID && a.ProfileID() == conn.ProfileID,
		OrgSide:  a.CanAdminOrg(conn.OrganizationID),
	}
}

// CanStartAsUser reports whether the actor may request a connection with an
// organization for itself.
func CanStartAsUser(a orgpolicy.Actor) bool {
	return a.Profile != nil && a.Profile.Status == models.ProfileStatusActive && !a.Profile.IsStudent
}

// CanStartAsOrg reports whether the actor may offer a role on behalf of org
// to somebody else.
func CanStartAsOrg(a orgpolicy.Actor, org models.Organization) bool {
	return a.CanAdminOrg(org.ID)
}
