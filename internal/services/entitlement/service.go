// Package entitlement is the boundary to the external subscription and
// tier service. The lifecycle controller consults it only for
// subscription_only and tier_gated access checks.
package entitlement

import "context"

// Checker answers whether a user holds an entitlement for an event.
type Checker interface {
	HasEntitlement(ctx context.Context, userID, eventID uint) (bool, error)
}

// Static is a fixed-answer Checker used until the real entitlement
// service is wired in, and by tests.
type Static struct {
	Allow bool
}

func NewStatic(allow bool) *Static {
	return &Static{Allow: allow}
}

func (s *Static) HasEntitlement(ctx context.Context, userID, eventID uint) (bool, error) {
	return s.Allow, nil
}
