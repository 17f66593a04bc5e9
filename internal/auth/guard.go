package auth

import "strings"

// Decision is the outcome of the owner-equality authorization policy.
type Decision int

const (
	// DecisionAnonymous means no valid session identity is present; the
	// caller must log in.
	DecisionAnonymous Decision = iota
	// DecisionDeniedNotOwner means the caller is authenticated but is not
	// the owner of the target resource.
	DecisionDeniedNotOwner
	// DecisionAllowed means the caller is the resource owner.
	DecisionAllowed
)

// Authorize applies the single access policy for every protected operation:
// anonymous callers are turned away, and an authenticated caller may only
// touch resources it owns. A session claim alone never grants access to
// another user's resources.
func Authorize(currentIdentity, resourceOwner string) Decision {
	identity := strings.TrimSpace(currentIdentity)
	if identity == "" {
		return DecisionAnonymous
	}
	if identity != strings.TrimSpace(resourceOwner) {
		return DecisionDeniedNotOwner
	}
	return DecisionAllowed
}
