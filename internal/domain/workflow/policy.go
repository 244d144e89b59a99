package workflow

import (
	"fmt"
	"sort"
)

type statusRule struct {
	role        Role
	transitions map[Action]Status
}

// Policy maps a status to the role authorized to act next and to the
// outcome of each action. It is immutable and safe for concurrent use.
type Policy struct {
	rules map[Status]statusRule
}

// NextRequiredRole returns the single role allowed to act on the status
func (p *Policy) NextRequiredRole(status Status) (Role, error) {
	rule, ok := p.rules[status]
	if !ok {
		return "", fmt.Errorf("%w: no acting role for status %s", ErrInvalidTransition, status)
	}
	return rule.role, nil
}

// NextStatusOnApprove returns the status an approval leads to
func (p *Policy) NextStatusOnApprove(status Status) (Status, error) {
	return p.Next(status, ActionApprove)
}

// Next returns the status the action leads to from the given status
func (p *Policy) Next(status Status, action Action) (Status, error) {
	rule, ok := p.rules[status]
	if !ok {
		return "", fmt.Errorf("%w: cannot %s from status %s", ErrInvalidTransition, action, status)
	}
	to, ok := rule.transitions[action]
	if !ok {
		return "", fmt.Errorf("%w: cannot %s from status %s", ErrInvalidTransition, action, status)
	}
	return to, nil
}

// PermittedActions returns the actions available on the status, sorted
func (p *Policy) PermittedActions(status Status) []Action {
	rule, ok := p.rules[status]
	if !ok {
		return []Action{}
	}
	actions := make([]Action, 0, len(rule.transitions))
	for action := range rule.transitions {
		actions = append(actions, action)
	}
	sort.Slice(actions, func(i, j int) bool { return actions[i] < actions[j] })
	return actions
}

// StatusesActedBy returns every status the role is authorized to act on
func (p *Policy) StatusesActedBy(role Role) []Status {
	var statuses []Status
	for _, status := range AllStatuses() {
		if rule, ok := p.rules[status]; ok && rule.role == role {
			statuses = append(statuses, status)
		}
	}
	return statuses
}

// CurrentStep returns the display label of the stage a request is waiting on
func (p *Policy) CurrentStep(status Status) string {
	role, err := p.NextRequiredRole(status)
	if err != nil {
		return TerminalLabel
	}
	return role.Label()
}
