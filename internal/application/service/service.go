package service

import (
	"errors"

	"github.com/garyjia/purchase-approval/internal/application/port"
	"github.com/garyjia/purchase-approval/internal/domain/entity"
	domainwf "github.com/garyjia/purchase-approval/internal/domain/workflow"
)

// Logger is the key/value logging interface used by the services
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

func orNop(logger Logger) Logger {
	if logger == nil {
		return nopLogger{}
	}
	return logger
}

// ErrAccessDenied is returned when an actor may not read or touch a resource.
// Workflow decisions refused by the role policy use domainwf.ErrForbidden instead.
var ErrAccessDenied = errors.New("access denied")

// VisibilityFor returns the slice of requests an actor may list:
// employees their own, general services everything, accounting and
// direction the stages from theirs onward plus the rejections they made.
func VisibilityFor(actor entity.Actor) port.Visibility {
	switch actor.Role {
	case domainwf.RoleEmployee:
		return port.Visibility{RequesterID: actor.ID}
	case domainwf.RoleMG:
		return port.Visibility{All: true}
	case domainwf.RoleAccounting:
		return port.Visibility{
			Statuses: []domainwf.Status{
				domainwf.StatusMGApproved,
				domainwf.StatusAccountingReviewed,
				domainwf.StatusDirectorApproved,
			},
			RejectedByRole: domainwf.RoleAccounting,
		}
	case domainwf.RoleDirector:
		return port.Visibility{
			Statuses: []domainwf.Status{
				domainwf.StatusAccountingReviewed,
				domainwf.StatusDirectorApproved,
			},
			RejectedByRole: domainwf.RoleDirector,
		}
	default:
		return port.Visibility{}
	}
}

// canRead reports whether the actor may open a single request.
// Only employees are restricted, to their own requests.
func canRead(actor entity.Actor, req *entity.PurchaseRequest) bool {
	if !actor.Role.IsValid() {
		return false
	}
	return actor.Role != domainwf.RoleEmployee || req.RequesterID == actor.ID
}

// queueFor returns the listing of requests waiting on the actor: for an
// employee their own open requests, otherwise every request at a status
// the actor's role acts on.
func queueFor(policy *domainwf.Policy, actor entity.Actor) (port.Visibility, []domainwf.Status) {
	if actor.Role == domainwf.RoleEmployee {
		var open []domainwf.Status
		for _, s := range domainwf.AllStatuses() {
			if !s.IsTerminal() {
				open = append(open, s)
			}
		}
		return port.Visibility{RequesterID: actor.ID}, open
	}
	statuses := policy.StatusesActedBy(actor.Role)
	if len(statuses) == 0 {
		return port.Visibility{}, nil
	}
	return port.Visibility{All: true}, statuses
}
