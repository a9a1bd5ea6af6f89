package app

import (
	billingdb "github.com/tbeaudouin05/subscription-reconciler/api/services/billing/db"
)

// Access gate reasons.
const (
	ReasonAllowed        = "ok"
	ReasonAdmin          = "admin"
	ReasonTrialRequired  = "trial required"
	ReasonNoSubscription = "no active subscription"
	ReasonExpired        = "subscription expired"
	ReasonNoAccount      = "no billing account"
	ReasonInternal       = "access could not be verified"
)

// Webhook outcomes.
const (
	OutcomeApplied   = "applied"
	OutcomeIgnored   = "ignored"
	OutcomeDuplicate = "duplicate"
)

// User is the identity handed to ProvisionAccount at registration time.
type User struct {
	ID    string `json:"userId" validate:"required,max=128"`
	Email string `json:"email" validate:"omitempty,email"`
	Name  string `json:"name" validate:"omitempty,max=200"`
}

// Account is the caller-facing view of a billing record.
// Keep value types to avoid pointer proliferation in domain.
type Account struct {
	ID                    string `json:"id"`
	UserID                string `json:"userId"`
	Status                string `json:"status"`
	PaidUntil             int64  `json:"paidUntil"`
	CancelRequested       bool   `json:"cancelRequested"`
	SubscriptionCount     int64  `json:"subscriptionCount"`
	ActiveSubscriptionID  string `json:"activeSubscriptionId,omitempty"`
	ActivePaymentMethodID string `json:"activePaymentMethodId,omitempty"`
}

func toAccount(a billingdb.Account) Account {
	return Account{
		ID:                    a.ID,
		UserID:                a.UserID,
		Status:                a.Status.String(),
		PaidUntil:             a.PaidUntil,
		CancelRequested:       a.CancelRequested,
		SubscriptionCount:     a.SubscriptionCount,
		ActiveSubscriptionID:  a.ActiveSubscriptionID,
		ActivePaymentMethodID: a.ActivePaymentMethodID,
	}
}

// AttachPaymentMethodInput is raw card data; it is forwarded to the gateway and never stored.
type AttachPaymentMethodInput struct {
	CardNumber string `json:"cardNumber" validate:"required,credit_card"`
	ExpMonth   int64  `json:"expMonth" validate:"required,min=1,max=12"`
	ExpYear    int64  `json:"expYear" validate:"required,min=2000,max=2100"`
	CVC        string `json:"cvc" validate:"required,numeric,min=3,max=4"`
	Name       string `json:"name" validate:"omitempty,max=200"`
	Email      string `json:"email" validate:"omitempty,email"`
}

type UpdatePaymentMethodInput struct {
	ExpMonth int64 `json:"expMonth" validate:"required,min=1,max=12"`
	ExpYear  int64 `json:"expYear" validate:"required,min=2000,max=2100"`
}

type PaymentMethod struct {
	ID        string `json:"id"`
	Brand     string `json:"brand"`
	Last4     string `json:"last4"`
	ExpMonth  int64  `json:"expMonth"`
	ExpYear   int64  `json:"expYear"`
	IsDefault bool   `json:"isDefault"`
}

func toPaymentMethod(m billingdb.PaymentMethod) PaymentMethod {
	return PaymentMethod{
		ID:        m.ID,
		Brand:     m.Brand,
		Last4:     m.Last4,
		ExpMonth:  m.ExpMonth,
		ExpYear:   m.ExpYear,
		IsDefault: m.IsDefault,
	}
}

// Plan summarizes the single subscription plan.
type Plan struct {
	PriceID     string `json:"priceId"`
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	Currency    string `json:"currency"`
	Amount      int64  `json:"amount"`
	Interval    string `json:"interval"`
}

type PaymentMethodList struct {
	Methods         []PaymentMethod `json:"paymentMethods"`
	Plan            Plan            `json:"plan"`
	SubscriptionID  string          `json:"subscriptionId,omitempty"`
	Status          string          `json:"status"`
	CancelRequested bool            `json:"cancelRequested"`
}

type AccessDecision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

// Err returns nil when access is allowed and an AccessDeniedError otherwise.
func (d AccessDecision) Err() error {
	if d.Allowed {
		return nil
	}
	return &AccessDeniedError{Reason: d.Reason}
}

// EventMeta identifies the gateway event behind an Apply call. Zero values disable
// deduplication and ordering checks.
type EventMeta struct {
	ID      string
	Type    string
	Created int64
}

type WebhookResult struct {
	EventID string `json:"eventId"`
	Type    string `json:"type"`
	Outcome string `json:"outcome"`
}

type ClientConfig struct {
	PublishableKey string `json:"publishableKey"`
}
