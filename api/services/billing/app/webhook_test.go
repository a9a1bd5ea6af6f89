package app

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	billingdb "github.com/tbeaudouin05/subscription-reconciler/api/services/billing/db"
	gw "github.com/tbeaudouin05/subscription-reconciler/api/services/billing/gateway"
)

const testSignature = "t=1,v1=abc"

func event(id, typ string, created int64, object any) gw.Event {
	raw, _ := json.Marshal(object)
	return gw.Event{ID: id, Type: typ, Created: created, Object: raw}
}

// deliver makes ConstructEvent return ev and runs the webhook handler.
func (f *fixture) deliver(t *testing.T, ev gw.Event) (WebhookResult, error) {
	t.Helper()
	payload := []byte(ev.ID)
	f.gw.EXPECT().ConstructEvent(payload, testSignature).Return(ev, nil)
	return f.svc.HandleWebhook(context.Background(), payload, testSignature)
}

func TestHandleWebhook_BadSignature(t *testing.T) {
	f := newFixture(t)
	f.seedAccount(t, "user-1", billingdb.StatusActive, "sub_1", testNow.Unix())
	before := f.account(t, "user-1")
	f.gw.EXPECT().ConstructEvent(gomock.Any(), "bogus").Return(gw.Event{}, gw.ErrSignature)

	_, err := f.svc.HandleWebhook(context.Background(), []byte(`{}`), "bogus")
	assert.ErrorIs(t, err, ErrBadEvent)
	assert.Equal(t, before, f.account(t, "user-1"))
}

func TestHandleWebhook_MalformedObject(t *testing.T) {
	f := newFixture(t)
	ev := gw.Event{ID: "evt_1", Type: EventSubscriptionDeleted, Object: json.RawMessage(`"not an object"`)}

	_, err := f.deliver(t, ev)
	assert.ErrorIs(t, err, ErrBadEvent)
	assert.NotContains(t, UserMessage(err), ".go")
}

func TestHandleWebhook_ChargeSucceededResolvesCustomerFromIntent(t *testing.T) {
	f := newFixture(t)
	f.seedAccount(t, "user-1", billingdb.StatusActive, "sub_1", testNow.Unix())
	periodEnd := testNow.Unix() + periodDays

	f.gw.EXPECT().GetPaymentIntent(gomock.Any(), "pi_1").Return(gw.PaymentIntent{ID: "pi_1", CustomerID: "cus_user-1"}, nil)
	f.gw.EXPECT().GetSubscription(gomock.Any(), "sub_1").Return(gw.Subscription{ID: "sub_1", CurrentPeriodEnd: periodEnd}, nil)

	res, err := f.deliver(t, event("evt_charge", EventChargeSucceeded, testNow.Unix(), map[string]any{"id": "ch_1", "payment_intent": "pi_1"}))
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, res.Outcome)

	acc := f.account(t, "user-1")
	assert.Equal(t, int64(1), acc.SubscriptionCount)
	assert.Equal(t, periodEnd, acc.PaidUntil)
}

func TestHandleWebhook_DuplicateDeliveryCountsOnce(t *testing.T) {
	f := newFixture(t)
	f.seedAccount(t, "user-1", billingdb.StatusActive, "sub_1", testNow.Unix())
	f.gw.EXPECT().GetSubscription(gomock.Any(), "sub_1").Return(gw.Subscription{ID: "sub_1", CurrentPeriodEnd: testNow.Unix() + periodDays}, nil)
	ev := event("evt_charge", EventChargeSucceeded, testNow.Unix(), map[string]any{"id": "ch_1", "customer": "cus_user-1"})

	_, err := f.deliver(t, ev)
	require.NoError(t, err)
	res, err := f.deliver(t, ev)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, res.Outcome)
	assert.Equal(t, int64(1), f.account(t, "user-1").SubscriptionCount)
}

func TestHandleWebhook_DuplicateAfterDedupExpiryStillCountsOnce(t *testing.T) {
	f := newFixture(t)
	f.seedAccount(t, "user-1", billingdb.StatusActive, "sub_1", testNow.Unix())
	f.gw.EXPECT().GetSubscription(gomock.Any(), "sub_1").Return(gw.Subscription{ID: "sub_1", CurrentPeriodEnd: testNow.Unix() + periodDays}, nil).Times(2)
	ev := event("evt_charge", EventChargeSucceeded, testNow.Unix(), map[string]any{"id": "ch_1", "customer": "cus_user-1"})

	_, err := f.deliver(t, ev)
	require.NoError(t, err)
	require.NoError(t, f.dedup.Release(context.Background(), "evt_charge"))
	res, err := f.deliver(t, ev)
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, res.Outcome)
	assert.Equal(t, int64(1), f.account(t, "user-1").SubscriptionCount)
}

func TestHandleWebhook_FailureReleasesClaim(t *testing.T) {
	f := newFixture(t)
	f.seedAccount(t, "user-1", billingdb.StatusActive, "sub_1", testNow.Unix())
	ev := event("evt_charge", EventChargeSucceeded, testNow.Unix(), map[string]any{"id": "ch_1", "customer": "cus_user-1"})

	f.gw.EXPECT().GetSubscription(gomock.Any(), "sub_1").Return(gw.Subscription{}, &gw.Error{Op: "retrieve subscription", Err: errors.New("timeout")})
	_, err := f.deliver(t, ev)
	assert.ErrorIs(t, err, ErrGateway)
	assert.Equal(t, int64(0), f.account(t, "user-1").SubscriptionCount)

	// The gateway's retry is processed.
	f.gw.EXPECT().GetSubscription(gomock.Any(), "sub_1").Return(gw.Subscription{ID: "sub_1", CurrentPeriodEnd: testNow.Unix() + periodDays}, nil)
	res, err := f.deliver(t, ev)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, res.Outcome)
	assert.Equal(t, int64(1), f.account(t, "user-1").SubscriptionCount)
}

func TestHandleWebhook_OneTimeChargeIgnored(t *testing.T) {
	f := newFixture(t)
	res, err := f.deliver(t, event("evt_1", EventChargeSucceeded, testNow.Unix(), map[string]any{"id": "ch_1"}))
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, res.Outcome)
}

func TestHandleWebhook_SubscriptionLifecycle(t *testing.T) {
	f := newFixture(t)
	f.seedAccount(t, "user-1", billingdb.StatusActive, "sub_1", testNow.Unix())
	t0 := testNow.Unix()

	res, err := f.deliver(t, event("evt_upd", EventSubscriptionUpdated, t0+10,
		map[string]any{"id": "sub_1", "customer": "cus_user-1", "current_period_end": t0 + periodDays}))
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, res.Outcome)
	assert.Equal(t, t0+periodDays, f.account(t, "user-1").PaidUntil)

	res, err = f.deliver(t, event("evt_del", EventSubscriptionDeleted, t0+20, map[string]any{"id": "sub_1", "customer": "cus_user-1"}))
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, res.Outcome)

	// A late "created" event for the terminated subscription does not reactivate it.
	res, err = f.deliver(t, event("evt_new", EventSubscriptionCreated, t0+5,
		map[string]any{"id": "sub_1", "customer": "cus_user-1", "current_period_end": t0 + periodDays}))
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, res.Outcome)

	acc := f.account(t, "user-1")
	assert.Equal(t, billingdb.StatusInactive, acc.Status)
	assert.Empty(t, acc.ActiveSubscriptionID)
}

func TestHandleWebhook_CustomerDeleted(t *testing.T) {
	f := newFixture(t)
	acc := f.seedAccount(t, "user-1", billingdb.StatusInactive, "", 0)
	f.seedMethod(t, acc, "m1", "fp1", false)

	res, err := f.deliver(t, event("evt_cd", EventCustomerDeleted, testNow.Unix(), map[string]any{"id": "cus_user-1"}))
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, res.Outcome)
	_, err = f.store.GetAccountByUser(context.Background(), "user-1")
	assert.ErrorIs(t, err, billingdb.ErrNotFound)
}

func TestHandleWebhook_TrialWillEndAccepted(t *testing.T) {
	f := newFixture(t)
	f.seedAccount(t, "user-1", billingdb.StatusActive, "sub_1", testNow.Unix())
	before := f.account(t, "user-1")

	res, err := f.deliver(t, event("evt_trial", EventSubscriptionTrialEnds, testNow.Unix(), map[string]any{"id": "sub_1", "customer": "cus_user-1"}))
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, res.Outcome)
	assert.Equal(t, before, f.account(t, "user-1"))
}

func TestHandleWebhook_ChargeDuringStartSubscriptionIsCounted(t *testing.T) {
	f := newFixture(t)
	acc := f.seedAccount(t, "user-1", billingdb.StatusInactive, "", 0)
	f.seedMethod(t, acc, "m1", "fp1", true)
	periodEnd := testNow.Unix() + periodDays
	ev := event("evt_first_charge", EventChargeSucceeded, testNow.Unix(), map[string]any{"id": "ch_1", "customer": "cus_user-1"})
	payload := []byte(ev.ID)

	received := make(chan struct{})
	f.gw.EXPECT().ConstructEvent(payload, testSignature).DoAndReturn(func([]byte, string) (gw.Event, error) {
		close(received)
		return ev, nil
	})
	f.gw.EXPECT().GetSubscription(gomock.Any(), "sub_1").Return(gw.Subscription{ID: "sub_1", CurrentPeriodEnd: periodEnd}, nil)
	f.gw.EXPECT().SetDefaultPaymentMethod(gomock.Any(), "cus_user-1", "pm_m1").Return(nil)
	f.gw.EXPECT().GetPrice(gomock.Any(), testPriceID).Return(testPrice, nil)
	f.gw.EXPECT().CreatePaymentIntent(gomock.Any(), gomock.Any()).Return(gw.PaymentIntent{ID: "pi_1", Status: "requires_confirmation"}, nil)
	f.gw.EXPECT().CreateSubscription(gomock.Any(), gomock.Any()).Return(gw.Subscription{ID: "sub_1", CustomerID: "cus_user-1", CurrentPeriodEnd: periodEnd}, nil)

	type delivery struct {
		res WebhookResult
		err error
	}
	done := make(chan delivery, 1)
	f.gw.EXPECT().ConfirmPaymentIntent(gomock.Any(), "pi_1", gomock.Any()).DoAndReturn(
		func(context.Context, string, string) (gw.PaymentIntent, error) {
			// The charge webhook arrives before the confirmation call returns.
			go func() {
				res, err := f.svc.HandleWebhook(context.Background(), payload, testSignature)
				done <- delivery{res: res, err: err}
			}()
			<-received
			return gw.PaymentIntent{ID: "pi_1", Status: "succeeded"}, nil
		})

	_, err := f.svc.StartSubscription(context.Background(), "user-1", "m1")
	require.NoError(t, err)

	d := <-done
	require.NoError(t, d.err)
	assert.Equal(t, OutcomeApplied, d.res.Outcome)
	stored := f.account(t, "user-1")
	assert.Equal(t, int64(1), stored.SubscriptionCount)
	assert.Equal(t, periodEnd, stored.PaidUntil)
}

func TestHandleWebhook_ChargeBeforeSubscriptionIsRetried(t *testing.T) {
	f := newFixture(t)
	acc := f.seedAccount(t, "user-1", billingdb.StatusInactive, "", 0)
	ev := event("evt_early_charge", EventChargeSucceeded, testNow.Unix(), map[string]any{"id": "ch_1", "customer": "cus_user-1"})

	_, err := f.deliver(t, ev)
	assert.ErrorIs(t, err, ErrNotReady)
	assert.NotErrorIs(t, err, ErrBadEvent)
	assert.Equal(t, int64(0), f.account(t, "user-1").SubscriptionCount)

	// Another replica finishes starting the subscription; the redelivery is counted.
	_, err = f.store.MutateAccount(context.Background(), billingdb.ByID(acc.ID), billingdb.MutateOptions{}, func(a *billingdb.Account) error {
		a.Status = billingdb.StatusActive
		a.ActiveSubscriptionID = "sub_1"
		return nil
	})
	require.NoError(t, err)
	f.gw.EXPECT().GetSubscription(gomock.Any(), "sub_1").Return(gw.Subscription{ID: "sub_1", CurrentPeriodEnd: testNow.Unix() + periodDays}, nil)

	res, err := f.deliver(t, ev)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, res.Outcome)
	assert.Equal(t, int64(1), f.account(t, "user-1").SubscriptionCount)
}
