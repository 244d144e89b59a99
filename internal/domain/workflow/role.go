package workflow

// Role is the capability an actor holds
type Role string

const (
	RoleEmployee   Role = "employee"
	RoleMG         Role = "mg"
	RoleAccounting Role = "accounting"
	RoleDirector   Role = "director"
)

var validRoles = map[Role]bool{
	RoleEmployee:   true,
	RoleMG:         true,
	RoleAccounting: true,
	RoleDirector:   true,
}

// Display names of the approval stages, keyed by the role that owns them
var roleLabels = map[Role]string{
	RoleMG:         "Moyens Généraux",
	RoleAccounting: "Comptabilité",
	RoleDirector:   "Direction",
}

// TerminalLabel is shown as the current step of a closed request
const TerminalLabel = "Terminée"

// IsValid returns true for a known role
func (r Role) IsValid() bool {
	return validRoles[r]
}

// CanSubmit returns true if the role may create purchase requests
func (r Role) CanSubmit() bool {
	return r == RoleEmployee || r == RoleMG
}

// Label returns the display name of the stage owned by the role
func (r Role) Label() string {
	if label, ok := roleLabels[r]; ok {
		return label
	}
	return string(r)
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}
