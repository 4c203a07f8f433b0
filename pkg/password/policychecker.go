package password

import (
	"fmt"

	errs "github.com/tendant/simple-auth/pkg/errors"
)

// Policy defines the requirements for new passwords
type Policy struct {
	MinLength int
}

// PolicyChecker validates candidate passwords against a policy
type PolicyChecker interface {
	CheckPassword(password string) error
}

// DefaultPolicyChecker implements PolicyChecker
type DefaultPolicyChecker struct {
	policy Policy
}

// DefaultPolicy returns the default password policy
func DefaultPolicy() Policy {
	return Policy{MinLength: 6}
}

// NewDefaultPolicyChecker creates a policy checker. A zero MinLength falls
// back to the default policy.
func NewDefaultPolicyChecker(policy Policy) *DefaultPolicyChecker {
	if policy.MinLength <= 0 {
		policy = DefaultPolicy()
	}
	return &DefaultPolicyChecker{policy: policy}
}

// CheckPassword verifies that a candidate password meets the policy
func (pc *DefaultPolicyChecker) CheckPassword(password string) error {
	if len(password) < pc.policy.MinLength {
		return errs.ValidationFailed("password",
			fmt.Sprintf("must be at least %d characters long", pc.policy.MinLength))
	}
	return nil
}
