package app

import (
	"context"
	"errors"
	"fmt"

	billingdb "github.com/tbeaudouin05/subscription-reconciler/api/services/billing/db"
	gw "github.com/tbeaudouin05/subscription-reconciler/api/services/billing/gateway"
)

const secondsPerDay = 24 * 60 * 60

// StartSubscription subscribes the caller with one of their payment methods.
// An Incomplete account gets a trial; an Inactive account is charged now. The local
// record only changes after every gateway call has succeeded.
func (s serviceImpl) StartSubscription(ctx context.Context, userID, methodID string) (Account, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	acc, err := s.accountByUser(ctx, userID)
	if err != nil {
		return Account{}, err
	}
	if _, err := transition(acc.Status, triggerStart); err != nil {
		return Account{}, fmt.Errorf("%w: subscription is already active", ErrConflict)
	}
	m, err := s.store.GetPaymentMethod(ctx, acc.ID, methodID)
	if errors.Is(err, billingdb.ErrNotFound) || (err == nil && m.Status != billingdb.MethodActive) {
		return Account{}, fmt.Errorf("%w: payment method not found", ErrNotFound)
	}
	if err != nil {
		return Account{}, fmt.Errorf("%w: error retrieving payment method: %v", ErrDatabase, err)
	}

	if err := s.gw.SetDefaultPaymentMethod(ctx, acc.GatewayCustomerID, m.GatewayPaymentMethodID); err != nil {
		return Account{}, gatewayErr("set default payment method", err)
	}
	price, err := s.gw.GetPrice(ctx, s.opts.PriceID)
	if err != nil {
		return Account{}, gatewayErr("retrieve price", err)
	}

	// Keys are stable for one attempt on one record version, so gateway retries cannot double charge.
	key := fmt.Sprintf("%s-v%d", acc.ID, acc.Version)
	var sub gw.Subscription
	var paidUntil int64
	switch acc.Status {
	case billingdb.StatusInactive:
		sub, err = s.subscribeNow(ctx, acc, m, price, key)
		if err != nil {
			return Account{}, err
		}
		paidUntil = sub.CurrentPeriodEnd
	case billingdb.StatusIncomplete:
		trialDays := price.TrialPeriodDays
		if trialDays <= 0 {
			trialDays = int64(s.opts.DefaultTrialDays)
		}
		trialEnd := s.now().Unix() + trialDays*secondsPerDay
		sub, err = s.gw.CreateSubscription(ctx, gw.SubscriptionInput{
			CustomerID:           acc.GatewayCustomerID,
			PriceID:              price.ID,
			DefaultPaymentMethod: m.GatewayPaymentMethodID,
			TrialEnd:             trialEnd,
			IdempotencyKey:       "subscription-" + key,
		})
		if err != nil {
			return Account{}, gatewayErr("create subscription", err)
		}
		paidUntil = sub.CurrentPeriodEnd
		if paidUntil == 0 {
			paidUntil = trialEnd
		}
	}

	updated, err := s.store.MutateAccount(ctx, billingdb.ByID(acc.ID), billingdb.MutateOptions{DefaultPaymentMethodID: m.ID}, func(a *billingdb.Account) error {
		a.Status = billingdb.StatusActive
		a.ActivePaymentMethodID = m.ID
		a.ActiveSubscriptionID = sub.ID
		a.CancelRequested = false
		a.PaidUntil = max(a.PaidUntil, paidUntil)
		return nil
	})
	if err != nil {
		s.log.Error("subscription created remotely but local update failed",
			"account_id", acc.ID, "subscription_id", sub.ID, "error", err)
		return Account{}, fmt.Errorf("%w: error activating subscription: %v", ErrDatabase, err)
	}
	s.log.Info("subscription started", "account_id", acc.ID, "subscription_id", sub.ID, "from_status", acc.Status.String())
	return toAccount(updated), nil
}

// subscribeNow creates the payment intent and the subscription, then confirms the intent.
func (s serviceImpl) subscribeNow(ctx context.Context, acc billingdb.Account, m billingdb.PaymentMethod, price gw.Price, key string) (gw.Subscription, error) {
	intent, err := s.gw.CreatePaymentIntent(ctx, gw.PaymentIntentInput{
		CustomerID:      acc.GatewayCustomerID,
		PaymentMethodID: m.GatewayPaymentMethodID,
		Amount:          price.UnitAmount,
		Currency:        price.Currency,
		IdempotencyKey:  "intent-" + key,
	})
	if err != nil {
		return gw.Subscription{}, gatewayErr("create payment intent", err)
	}
	sub, err := s.gw.CreateSubscription(ctx, gw.SubscriptionInput{
		CustomerID:           acc.GatewayCustomerID,
		PriceID:              price.ID,
		DefaultPaymentMethod: m.GatewayPaymentMethodID,
		IdempotencyKey:       "subscription-" + key,
	})
	if err != nil {
		return gw.Subscription{}, gatewayErr("create subscription", err)
	}
	confirmed, err := s.gw.ConfirmPaymentIntent(ctx, intent.ID, "confirm-"+key)
	if err != nil {
		return gw.Subscription{}, gatewayErr("confirm payment intent", err)
	}
	switch confirmed.Status {
	case "succeeded", "processing", "requires_capture":
	default:
		return gw.Subscription{}, &GatewayError{
			Op:      "confirm payment intent",
			Message: "The payment could not be completed.",
			Err:     fmt.Errorf("payment intent %s is %s", confirmed.ID, confirmed.Status),
		}
	}
	return sub, nil
}

// RequestCancellation toggles cancel-at-period-end. Status is left alone; the
// gateway's termination event deactivates the account later.
func (s serviceImpl) RequestCancellation(ctx context.Context, userID string, cancel bool) (Account, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	acc, err := s.accountByUser(ctx, userID)
	if err != nil {
		return Account{}, err
	}
	if acc.Status != billingdb.StatusActive {
		return Account{}, fmt.Errorf("%w: subscription is not active", ErrConflict)
	}
	if acc.CancelRequested == cancel {
		return Account{}, fmt.Errorf("%w: cancellation is already set to %t", ErrConflict, cancel)
	}
	if _, err := s.gw.SetCancelAtPeriodEnd(ctx, acc.ActiveSubscriptionID, cancel); err != nil {
		return Account{}, gatewayErr("modify subscription", err)
	}

	subscriptionID := acc.ActiveSubscriptionID
	updated, err := s.store.MutateAccount(ctx, billingdb.ByID(acc.ID), billingdb.MutateOptions{}, func(a *billingdb.Account) error {
		if a.Status != billingdb.StatusActive || a.ActiveSubscriptionID != subscriptionID {
			return fmt.Errorf("%w: subscription changed while updating cancellation", ErrConflict)
		}
		a.CancelRequested = cancel
		return nil
	})
	if errors.Is(err, ErrConflict) {
		return Account{}, err
	}
	if err != nil {
		return Account{}, fmt.Errorf("%w: error updating cancellation: %v", ErrDatabase, err)
	}
	s.log.Info("cancellation updated", "account_id", acc.ID, "cancel", cancel)
	return toAccount(updated), nil
}

// ApplyChargeSucceeded records a paid billing cycle. Each event id counts once.
func (s serviceImpl) ApplyChargeSucceeded(ctx context.Context, customerID string, periodEnd int64, meta EventMeta) error {
	_, err := s.applyChargeSucceeded(ctx, customerID, periodEnd, meta)
	return err
}

func (s serviceImpl) applyChargeSucceeded(ctx context.Context, customerID string, periodEnd int64, meta EventMeta) (bool, error) {
	return s.applyEvent(ctx, customerID, meta, func(a *billingdb.Account) error {
		if a.ActiveSubscriptionID == "" {
			return billingdb.ErrSkip
		}
		next, err := transition(a.Status, triggerCharge)
		if err != nil {
			return billingdb.ErrSkip
		}
		a.Status = next
		a.PaidUntil = max(a.PaidUntil, periodEnd)
		a.SubscriptionCount++
		a.LastEventAt = max(a.LastEventAt, meta.Created)
		return nil
	})
}

// ApplySubscriptionActivated extends access for the matching (customer, subscription) pair.
func (s serviceImpl) ApplySubscriptionActivated(ctx context.Context, customerID, subscriptionID string, periodEnd int64, meta EventMeta) error {
	_, err := s.applySubscriptionActivated(ctx, customerID, subscriptionID, periodEnd, meta)
	return err
}

func (s serviceImpl) applySubscriptionActivated(ctx context.Context, customerID, subscriptionID string, periodEnd int64, meta EventMeta) (bool, error) {
	return s.applyEvent(ctx, customerID, EventMeta{Created: meta.Created}, func(a *billingdb.Account) error {
		if subscriptionID == "" || a.ActiveSubscriptionID != subscriptionID {
			return billingdb.ErrSkip
		}
		// An event older than the last applied one may still extend paidUntil but never moves status.
		if meta.Created == 0 || meta.Created >= a.LastEventAt {
			next, err := transition(a.Status, triggerActivated)
			if err != nil {
				return billingdb.ErrSkip
			}
			a.Status = next
		}
		a.PaidUntil = max(a.PaidUntil, periodEnd)
		a.LastEventAt = max(a.LastEventAt, meta.Created)
		return nil
	})
}

// ApplySubscriptionTerminated deactivates the matching (customer, subscription) pair.
// Repeats are no-ops because the pair no longer matches.
func (s serviceImpl) ApplySubscriptionTerminated(ctx context.Context, customerID, subscriptionID string, meta EventMeta) error {
	_, err := s.applySubscriptionTerminated(ctx, customerID, subscriptionID, meta)
	return err
}

func (s serviceImpl) applySubscriptionTerminated(ctx context.Context, customerID, subscriptionID string, meta EventMeta) (bool, error) {
	return s.applyEvent(ctx, customerID, EventMeta{Created: meta.Created}, func(a *billingdb.Account) error {
		if subscriptionID == "" || a.ActiveSubscriptionID != subscriptionID {
			return billingdb.ErrSkip
		}
		if meta.Created != 0 && meta.Created < a.LastEventAt {
			s.log.Warn("ignoring stale subscription termination",
				"account_id", a.ID, "subscription_id", subscriptionID, "event_created", meta.Created, "last_event_at", a.LastEventAt)
			return billingdb.ErrSkip
		}
		next, err := transition(a.Status, triggerTerminated)
		if err != nil {
			return billingdb.ErrSkip
		}
		a.Status = next
		a.ActivePaymentMethodID = ""
		a.ActiveSubscriptionID = ""
		a.PaidUntil = 0
		a.CancelRequested = false
		a.LastEventAt = max(a.LastEventAt, meta.Created)
		return nil
	})
}

// ApplyCustomerDeleted removes the account of a deleted gateway customer together with the user's payment methods.
func (s serviceImpl) ApplyCustomerDeleted(ctx context.Context, customerID string) error {
	_, err := s.applyCustomerDeleted(ctx, customerID)
	return err
}

func (s serviceImpl) applyCustomerDeleted(ctx context.Context, customerID string) (bool, error) {
	acc, err := s.store.DeleteAccount(ctx, billingdb.ByCustomer(customerID))
	if errors.Is(err, billingdb.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: error deleting billing account: %v", ErrDatabase, err)
	}
	s.log.Info("billing account removed after customer deletion", "account_id", acc.ID, "customer_id", customerID)
	return true, nil
}

// applyEvent runs fn under the account lock. Unknown customers, skipped mutations and
// already recorded events report false without error.
func (s serviceImpl) applyEvent(ctx context.Context, customerID string, meta EventMeta, fn func(*billingdb.Account) error) (bool, error) {
	if customerID == "" {
		return false, nil
	}
	_, err := s.store.MutateAccount(ctx, billingdb.ByCustomer(customerID), billingdb.MutateOptions{EventID: meta.ID, EventType: meta.Type}, fn)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, billingdb.ErrNotFound), errors.Is(err, billingdb.ErrSkip), errors.Is(err, billingdb.ErrDuplicateEvent):
		return false, nil
	}
	return false, fmt.Errorf("%w: %v", ErrDatabase, err)
}
