// Package rulemode implements the tri-state policy switch that governs the
// gated organization behaviors: joining, editing past entries, overriding
// pause deductions, setting initial overtime, and changing work schedules.
// Each behavior carries its own independent RuleMode on the organization.
package rulemode

import (
	"fmt"

	"github.com/frahmantamala/time-tracking/internal"
)

type RuleMode string

const (
	// Disabled switches the behavior off entirely.
	Disabled RuleMode = "disabled"
	// RequiresApproval forces the user through the request/approval workflow.
	RequiresApproval RuleMode = "requires_approval"
	// Allowed lets the user perform the action directly.
	Allowed RuleMode = "allowed"
)

type Decision int

const (
	Deny Decision = iota
	RequireRequest
	Allow
)

func (m RuleMode) Valid() bool {
	switch m {
	case Disabled, RequiresApproval, Allowed:
		return true
	}
	return false
}

func Parse(s string) (RuleMode, error) {
	m := RuleMode(s)
	if !m.Valid() {
		return "", fmt.Errorf("unknown rule mode %q", s)
	}
	return m, nil
}

// Evaluate maps a configured mode to the decision for a direct action.
// Unknown modes deny, matching the behavior of a disabled feature.
func Evaluate(mode RuleMode) Decision {
	switch mode {
	case Allowed:
		return Allow
	case RequiresApproval:
		return RequireRequest
	default:
		return Deny
	}
}

// CheckDirect gates an action the caller attempts to perform directly.
// Only Allowed passes; the other modes return the taxonomy error the
// handlers translate to a response.
func CheckDirect(mode RuleMode, feature string) error {
	switch Evaluate(mode) {
	case Allow:
		return nil
	case RequireRequest:
		return internal.NewForbiddenError(
			fmt.Sprintf("%s requires admin approval in this organization. Please submit a request.", feature),
			internal.ErrCodeApprovalRequired)
	default:
		return internal.NewForbiddenError(
			fmt.Sprintf("%s is disabled in this organization.", feature),
			internal.ErrCodeFeatureDisabled)
	}
}

// CheckRequestable gates creating an approval request for the action.
// Only RequiresApproval accepts requests: a disabled feature takes none,
// and an allowed one must be performed directly instead.
func CheckRequestable(mode RuleMode, feature string) error {
	switch Evaluate(mode) {
	case RequireRequest:
		return nil
	case Allow:
		return internal.NewInvalidStateError(
			fmt.Sprintf("%s is allowed directly; no request is needed.", feature),
			internal.ErrCodeDirectActionAllowed)
	default:
		return internal.NewInvalidStateError(
			fmt.Sprintf("%s is disabled in this organization.", feature),
			internal.ErrCodeFeatureDisabled)
	}
}
