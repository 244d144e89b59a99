package workflow

import "fmt"

// PolicyBuilder builds an immutable role policy
type PolicyBuilder interface {
	// Configure returns the configuration for the given status
	Configure(status Status) StatusConfiguration

	// Build freezes the configured transitions into a Policy
	Build() *Policy
}

// StatusConfiguration configures who acts on a status and where each action leads
type StatusConfiguration interface {
	// ActedBy sets the single role authorized to act on the status
	ActedBy(role Role) StatusConfiguration

	// Permit allows an action to move the request to the target status
	Permit(action Action, toStatus Status) StatusConfiguration
}

type statusConfig struct {
	from        Status
	role        Role
	transitions map[Action]Status
}

type policyBuilder struct {
	configurations map[Status]*statusConfig
}

// NewBuilder creates a new policy builder
func NewBuilder() PolicyBuilder {
	return &policyBuilder{
		configurations: make(map[Status]*statusConfig),
	}
}

// Configure returns the configuration for the given status
func (b *policyBuilder) Configure(status Status) StatusConfiguration {
	if !status.IsValid() {
		panic(fmt.Sprintf("invalid status: %s", status))
	}
	if status.IsTerminal() {
		panic(fmt.Sprintf("terminal status cannot have transitions: %s", status))
	}

	config, exists := b.configurations[status]
	if !exists {
		config = &statusConfig{
			from:        status,
			transitions: make(map[Action]Status),
		}
		b.configurations[status] = config
	}
	return config
}

// Build freezes the configured transitions into a Policy
func (b *policyBuilder) Build() *Policy {
	rules := make(map[Status]statusRule, len(b.configurations))
	for status, config := range b.configurations {
		if config.role == "" {
			panic(fmt.Sprintf("status %s has no acting role", status))
		}
		transitions := make(map[Action]Status, len(config.transitions))
		for action, to := range config.transitions {
			transitions[action] = to
		}
		rules[status] = statusRule{role: config.role, transitions: transitions}
	}
	return &Policy{rules: rules}
}

// ActedBy sets the single role authorized to act on the status
func (c *statusConfig) ActedBy(role Role) StatusConfiguration {
	if !role.IsValid() {
		panic(fmt.Sprintf("invalid role: %s", role))
	}
	c.role = role
	return c
}

// Permit allows an action to move the request to the target status
func (c *statusConfig) Permit(action Action, toStatus Status) StatusConfiguration {
	if !action.IsValid() {
		panic(fmt.Sprintf("invalid action: %s", action))
	}
	if !toStatus.IsValid() {
		panic(fmt.Sprintf("invalid target status: %s", toStatus))
	}
	c.transitions[action] = toStatus
	return c
}
