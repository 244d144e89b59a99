package workflow

import (
	domainwf "github.com/garyjia/purchase-approval/internal/domain/workflow"
)

// BuildPurchasePolicy returns the approval chain for purchase requests:
// general services, then accounting, then the director. Each stage may reject.
func BuildPurchasePolicy() *domainwf.Policy {
	builder := domainwf.NewBuilder()

	builder.Configure(domainwf.StatusPending).
		ActedBy(domainwf.RoleMG).
		Permit(domainwf.ActionApprove, domainwf.StatusMGApproved).
		Permit(domainwf.ActionReject, domainwf.StatusRejected)

	builder.Configure(domainwf.StatusMGApproved).
		ActedBy(domainwf.RoleAccounting).
		Permit(domainwf.ActionApprove, domainwf.StatusAccountingReviewed).
		Permit(domainwf.ActionReject, domainwf.StatusRejected)

	builder.Configure(domainwf.StatusAccountingReviewed).
		ActedBy(domainwf.RoleDirector).
		Permit(domainwf.ActionApprove, domainwf.StatusDirectorApproved).
		Permit(domainwf.ActionReject, domainwf.StatusRejected)

	// director_approved and rejected are terminal - no outgoing transitions

	return builder.Build()
}
