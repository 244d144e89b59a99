package workflow

// Action is a decision an actor takes on a request
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// IsValid returns true for a known action
func (a Action) IsValid() bool {
	return a == ActionApprove || a == ActionReject
}

// String returns the string representation of the action
func (a Action) String() string {
	return string(a)
}
