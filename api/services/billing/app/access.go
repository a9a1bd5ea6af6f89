package app

import (
	"context"
	"fmt"
	"time"

	"github.com/tbeaudouin05/subscription-reconciler/api/auth"
	billingdb "github.com/tbeaudouin05/subscription-reconciler/api/services/billing/db"
)

// CheckAccess decides whether the caller may use a protected resource. It only reads
// the account; a missing record or any failure denies access.
func (s serviceImpl) CheckAccess(ctx context.Context, p auth.Principal) (decision AccessDecision, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("access check panicked", "user_id", p.UserID, "panic", r)
			decision = AccessDecision{Allowed: false, Reason: ReasonInternal}
			err = fmt.Errorf("%w: access check failed", ErrInternal)
		}
	}()

	if p.UserID == "" {
		return AccessDecision{Allowed: false, Reason: ReasonInternal}, fmt.Errorf("%w: missing user", ErrUnauthenticated)
	}
	if p.Admin {
		return AccessDecision{Allowed: true, Reason: ReasonAdmin}, nil
	}
	acc, err := s.store.GetAccountByUser(ctx, p.UserID)
	if isNotFound(err) {
		return AccessDecision{Allowed: false, Reason: ReasonNoAccount}, nil
	}
	if err != nil {
		s.log.Error("access check failed", "user_id", p.UserID, "error", err)
		return AccessDecision{Allowed: false, Reason: ReasonInternal}, fmt.Errorf("%w: access check failed", ErrInternal)
	}
	return Decide(acc, s.now()), nil
}

// Decide applies the access table to one account at time now.
func Decide(acc billingdb.Account, now time.Time) AccessDecision {
	switch acc.Status {
	case billingdb.StatusIncomplete:
		return AccessDecision{Allowed: false, Reason: ReasonTrialRequired}
	case billingdb.StatusInactive:
		return AccessDecision{Allowed: false, Reason: ReasonNoSubscription}
	case billingdb.StatusActive:
		if acc.PaidUntil >= now.Unix() {
			return AccessDecision{Allowed: true, Reason: ReasonAllowed}
		}
		return AccessDecision{Allowed: false, Reason: ReasonExpired}
	}
	return AccessDecision{Allowed: false, Reason: ReasonInternal}
}
