package app

import (
	"context"
	"encoding/json"
	"fmt"

	gw "github.com/tbeaudouin05/subscription-reconciler/api/services/billing/gateway"
)

// Recognized gateway event types.
const (
	EventChargeSucceeded       = "charge.succeeded"
	EventSubscriptionCreated   = "customer.subscription.created"
	EventSubscriptionUpdated   = "customer.subscription.updated"
	EventSubscriptionDeleted   = "customer.subscription.deleted"
	EventCustomerDeleted       = "customer.deleted"
	EventSubscriptionTrialEnds = "customer.subscription.trial_will_end"
)

type chargeObject struct {
	ID            string `json:"id"`
	Customer      string `json:"customer"`
	PaymentIntent string `json:"payment_intent"`
}

type subscriptionObject struct {
	ID               string `json:"id"`
	Customer         string `json:"customer"`
	CurrentPeriodEnd int64  `json:"current_period_end"`
}

type customerObject struct {
	ID string `json:"id"`
}

// HandleWebhook verifies and applies one gateway event. Redeliveries of an event that is
// being or has been processed are acknowledged without effect; a failed event releases
// its claim so the gateway's retry is processed.
func (s serviceImpl) HandleWebhook(ctx context.Context, payload []byte, signature string) (WebhookResult, error) {
	ev, err := s.gw.ConstructEvent(payload, signature)
	if err != nil {
		return WebhookResult{}, fmt.Errorf("%w: %v", ErrBadEvent, err)
	}
	if ev.ID == "" || ev.Type == "" {
		return WebhookResult{}, fmt.Errorf("%w: event id or type missing", ErrBadEvent)
	}
	result := WebhookResult{EventID: ev.ID, Type: ev.Type}
	log := s.log.With("event_id", ev.ID, "event_type", ev.Type)

	ctx, cancel := context.WithTimeout(ctx, s.opts.WebhookTimeout)
	defer cancel()

	claimed, err := s.opts.Dedup.Claim(ctx, ev.ID)
	if err != nil {
		// The charge counter is still deduplicated by the store.
		log.Warn("event dedup unavailable, processing anyway", "error", err)
		claimed = true
	}
	if !claimed {
		log.Info("duplicate webhook event")
		result.Outcome = OutcomeDuplicate
		return result, nil
	}

	applied, err := s.dispatch(ctx, ev)
	if err != nil {
		if relErr := s.opts.Dedup.Release(context.WithoutCancel(ctx), ev.ID); relErr != nil {
			log.Warn("failed to release event claim", "error", relErr)
		}
		log.Error("webhook event failed", "error", err)
		return result, err
	}
	result.Outcome = OutcomeIgnored
	if applied {
		result.Outcome = OutcomeApplied
	}
	log.Info("webhook event processed", "outcome", result.Outcome)
	return result, nil
}

// dispatch routes the event to exactly one state machine operation.
func (s serviceImpl) dispatch(ctx context.Context, ev gw.Event) (bool, error) {
	meta := EventMeta{ID: ev.ID, Type: ev.Type, Created: ev.Created}
	switch ev.Type {
	case EventChargeSucceeded:
		var charge chargeObject
		if err := decodeObject(ev, &charge); err != nil {
			return false, err
		}
		return s.handleChargeSucceeded(ctx, charge, meta)

	case EventSubscriptionCreated, EventSubscriptionUpdated:
		var sub subscriptionObject
		if err := decodeObject(ev, &sub); err != nil {
			return false, err
		}
		return s.applySubscriptionActivated(ctx, sub.Customer, sub.ID, sub.CurrentPeriodEnd, meta)

	case EventSubscriptionDeleted:
		var sub subscriptionObject
		if err := decodeObject(ev, &sub); err != nil {
			return false, err
		}
		return s.applySubscriptionTerminated(ctx, sub.Customer, sub.ID, meta)

	case EventCustomerDeleted:
		var cust customerObject
		if err := decodeObject(ev, &cust); err != nil {
			return false, err
		}
		return s.applyCustomerDeleted(ctx, cust.ID)
	}
	// Trial-ending notices and unknown types are accepted without a state change.
	return false, nil
}

// handleChargeSucceeded resolves the charge's customer and the current period end of
// the account's subscription. Charges without a customer are one-time payments.
// It runs under the user's lock so a charge racing StartSubscription sees its result.
func (s serviceImpl) handleChargeSucceeded(ctx context.Context, charge chargeObject, meta EventMeta) (bool, error) {
	customerID := charge.Customer
	if customerID == "" && charge.PaymentIntent != "" {
		intent, err := s.gw.GetPaymentIntent(ctx, charge.PaymentIntent)
		if err != nil {
			return false, gatewayErr("retrieve payment intent", err)
		}
		customerID = intent.CustomerID
	}
	if customerID == "" {
		return false, nil
	}

	acc, err := s.store.GetAccountByCustomer(ctx, customerID)
	if isNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	unlock := s.locks.Lock(acc.UserID)
	defer unlock()

	acc, err = s.store.GetAccountByCustomer(ctx, customerID)
	if isNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	if acc.ActiveSubscriptionID == "" {
		// Another replica may still be starting the subscription.
		return false, fmt.Errorf("%w: account %s has no active subscription for charge %s", ErrNotReady, acc.ID, charge.ID)
	}
	sub, err := s.gw.GetSubscription(ctx, acc.ActiveSubscriptionID)
	if err != nil {
		return false, gatewayErr("retrieve subscription", err)
	}
	return s.applyChargeSucceeded(ctx, customerID, sub.CurrentPeriodEnd, meta)
}

func decodeObject(ev gw.Event, dst any) error {
	if len(ev.Object) == 0 {
		return fmt.Errorf("%w: %s has no data object", ErrBadEvent, ev.Type)
	}
	if err := json.Unmarshal(ev.Object, dst); err != nil {
		return fmt.Errorf("%w: error unmarshaling %s object: %v", ErrBadEvent, ev.Type, err)
	}
	return nil
}
