package workflow

// Status represents a purchase request's position in the approval chain
type Status string

const (
	StatusPending            Status = "pending"
	StatusMGApproved         Status = "mg_approved"
	StatusAccountingReviewed Status = "accounting_reviewed"
	StatusDirectorApproved   Status = "director_approved"
	StatusRejected           Status = "rejected"
)

// StatusInProgress is a list filter alias, never a persisted status
const StatusInProgress Status = "in_progress"

var validStatuses = map[Status]bool{
	StatusPending:            true,
	StatusMGApproved:         true,
	StatusAccountingReviewed: true,
	StatusDirectorApproved:   true,
	StatusRejected:           true,
}

var terminalStatuses = map[Status]bool{
	StatusDirectorApproved: true,
	StatusRejected:         true,
}

// AllStatuses lists persisted statuses in workflow order
func AllStatuses() []Status {
	return []Status{
		StatusPending,
		StatusMGApproved,
		StatusAccountingReviewed,
		StatusDirectorApproved,
		StatusRejected,
	}
}

// IsTerminal returns true if no further transitions are accepted
func (s Status) IsTerminal() bool {
	return terminalStatuses[s]
}

// IsValid returns true if the status can be persisted
func (s Status) IsValid() bool {
	return validStatuses[s]
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}
