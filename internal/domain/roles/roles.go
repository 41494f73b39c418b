// Package roles holds the connection role negotiation rules: which role a
// profile effectively holds for an organization given what the user asked
// for and what the organization offered, and what changes when either side
// picks a new role.
//
// The package is pure; persistence and eligibility checks live in
// system/negotiation and policy/rolepolicy.
package roles

import "fmt"

// Roles a user can request on a connection.
const (
	NoRole = "no_role"
	Role   = "role"
)

// Roles an organization can offer on a connection. NoRole is shared.
const (
	MentorRole   = "mentor"
	OrgAdminRole = "org_admin"
)

// Auto-generated connection message markers.
const (
	MsgUserRequestsRole       = "User requests role."
	MsgUserDoesNotRequestRole = "User does not request role."
	msgOrgRoleChanged         = "Organization changed role to %s (by %s)."
)

// Level is the effective role a profile holds for one organization.
type Level int

const (
	None Level = iota
	Mentor
	OrgAdmin
)

func (l Level) String() string {
	switch l {
	case Mentor:
		return "mentor"
	case OrgAdmin:
		return "org_admin"
	default:
		return "none"
	}
}

// ValidUserRole reports whether s is a role a user may request.
func ValidUserRole(s string) bool {
	return s == NoRole || s == Role
}

// ValidOrgRole reports whether s is a role an organization may offer.
func ValidOrgRole(s string) bool {
	return s == NoRole || s == MentorRole || s == OrgAdminRole
}

// VerboseName returns the display name for a user or org role.
func VerboseName(role string) string {
	switch role {
	case NoRole:
		return "No Role"
	case Role:
		return "Role"
	case MentorRole:
		return "Mentor"
	case OrgAdminRole:
		return "Organization Administrator"
	default:
		return role
	}
}

// Effective returns the role the profile holds when both sides agree.
// A role is held only when the user requests one and the organization
// offers mentor or org admin.
func Effective(userRole, orgRole string) Level {
	if userRole != Role {
		return None
	}
	switch orgRole {
	case MentorRole:
		return Mentor
	case OrgAdminRole:
		return OrgAdmin
	default:
		return None
	}
}

// State is the negotiated pair stored on a connection.
type State struct {
	UserRole string
	OrgRole  string
}

// Effective is shorthand for Effective(s.UserRole, s.OrgRole).
func (s State) Effective() Level {
	return Effective(s.UserRole, s.OrgRole)
}

// Requirement names the eligibility check that must pass before a
// transition may be persisted.
type Requirement int

const (
	NoCheck Requirement = iota
	// NoRoleEligible: the profile must be able to give up every role for
	// the organization.
	NoRoleEligible
	// MentorRoleEligible: the profile must be able to give up org admin
	// while staying a mentor.
	MentorRoleEligible
)

// Transition is the outcome of one side selecting a role.
type Transition struct {
	From, To State
	// Changed is false when the selected role equals the stored one; nothing
	// is written and no message is created in that case.
	Changed    bool
	SeenByUser bool
	SeenByOrg  bool
	Message    string
}

// Before and After are the effective levels around the transition.
func (t Transition) Before() Level { return t.From.Effective() }
func (t Transition) After() Level  { return t.To.Effective() }

// Requirement returns the eligibility check for a role drop, or NoCheck
// when the effective level does not go down.
func (t Transition) Requirement() Requirement {
	if !t.Changed {
		return NoCheck
	}
	before, after := t.Before(), t.After()
	if after >= before {
		return NoCheck
	}
	if after == None {
		return NoRoleEligible
	}
	return MentorRoleEligible
}

// UserSelects computes the transition for the user picking newUserRole.
// The user has now seen the connection; the organization has not.
func UserSelects(cur State, newUserRole string) (Transition, error) {
	if !ValidUserRole(newUserRole) {
		return Transition{}, fmt.Errorf("invalid user role %q", newUserRole)
	}
	t := Transition{From: cur, To: cur}
	if cur.UserRole == newUserRole {
		return t, nil
	}
	t.To.UserRole = newUserRole
	t.Changed = true
	t.SeenByUser = true
	t.SeenByOrg = false
	if newUserRole == Role {
		t.Message = MsgUserRequestsRole
	} else {
		t.Message = MsgUserDoesNotRequestRole
	}
	return t, nil
}

// OrgSelects computes the transition for an org admin (adminName) picking
// newOrgRole. The organization has now seen the connection; the user has not.
func OrgSelects(cur State, newOrgRole, adminName string) (Transition, error) {
	if !ValidOrgRole(newOrgRole) {
		return Transition{}, fmt.Errorf("invalid org role %q", newOrgRole)
	}
	t := Transition{From: cur, To: cur}
	if cur.OrgRole == newOrgRole {
		return t, nil
	}
	t.To.OrgRole = newOrgRole
	t.Changed = true
	t.SeenByUser = false
	t.SeenByOrg = true
	t.Message = fmt.Sprintf(msgOrgRoleChanged, VerboseName(newOrgRole), adminName)
	return t, nil
}
