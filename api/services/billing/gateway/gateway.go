package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

//go:generate mockgen -destination=mock_gateway/mock_gateway.go -package=mock_gateway . Gateway

// Gateway abstracts the payment gateway operations needed by the app layer.
// Methods return values (not pointers) to respect the project's preference
// to avoid pointer types in public interfaces.
type Gateway interface {
	CreateCustomer(ctx context.Context, in CustomerInput) (Customer, error)
	GetCustomer(ctx context.Context, id string) (Customer, error)
	DeleteCustomer(ctx context.Context, id string) error
	SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error

	CreateCardToken(ctx context.Context, card Card) (CardToken, error)
	GetCardToken(ctx context.Context, id string) (CardToken, error)

	CreatePaymentMethod(ctx context.Context, tokenID string, billing BillingDetails) (PaymentMethod, error)
	GetPaymentMethod(ctx context.Context, id string) (PaymentMethod, error)
	UpdatePaymentMethodExpiry(ctx context.Context, id string, expMonth, expYear int64) (PaymentMethod, error)
	AttachPaymentMethod(ctx context.Context, paymentMethodID, customerID string) error
	DetachPaymentMethod(ctx context.Context, paymentMethodID string) error

	GetPrice(ctx context.Context, id string) (Price, error)

	CreatePaymentIntent(ctx context.Context, in PaymentIntentInput) (PaymentIntent, error)
	GetPaymentIntent(ctx context.Context, id string) (PaymentIntent, error)
	ConfirmPaymentIntent(ctx context.Context, id, idempotencyKey string) (PaymentIntent, error)

	CreateSubscription(ctx context.Context, in SubscriptionInput) (Subscription, error)
	GetSubscription(ctx context.Context, id string) (Subscription, error)
	SetCancelAtPeriodEnd(ctx context.Context, id string, cancel bool) (Subscription, error)

	// ConstructEvent verifies the signature header against the webhook secret and parses the envelope.
	ConstructEvent(payload []byte, signature string) (Event, error)
}

type CustomerInput struct {
	UserID         string
	Email          string
	Name           string
	IdempotencyKey string
}

type Customer struct {
	ID      string
	Email   string
	Deleted bool
}

// Card is raw card data; it only travels to the gateway and is never stored.
type Card struct {
	Number   string
	ExpMonth int64
	ExpYear  int64
	CVC      string
}

type CardToken struct {
	ID          string
	Fingerprint string
	Brand       string
	Last4       string
	ExpMonth    int64
	ExpYear     int64
	Used        bool
}

type BillingDetails struct {
	Email string
	Name  string
}

type PaymentMethod struct {
	ID          string
	CustomerID  string
	Fingerprint string
	Brand       string
	Last4       string
	ExpMonth    int64
	ExpYear     int64
}

type Price struct {
	ID              string
	ProductID       string
	ProductName     string
	Currency        string
	UnitAmount      int64
	Interval        string
	TrialPeriodDays int64
}

type PaymentIntentInput struct {
	CustomerID      string
	PaymentMethodID string
	Amount          int64
	Currency        string
	ReceiptEmail    string
	IdempotencyKey  string
}

type PaymentIntent struct {
	ID         string
	CustomerID string
	Status     string
}

type SubscriptionInput struct {
	CustomerID           string
	PriceID              string
	DefaultPaymentMethod string
	// TrialEnd is a unix timestamp; zero bills immediately.
	TrialEnd       int64
	IdempotencyKey string
}

type Subscription struct {
	ID                string
	CustomerID        string
	Status            string
	CurrentPeriodEnd  int64
	CancelAtPeriodEnd bool
}

// Event is a verified webhook envelope. Object holds the raw data.object payload.
type Event struct {
	ID      string
	Type    string
	Created int64
	Object  json.RawMessage
}

// ErrSignature is returned by ConstructEvent when the payload cannot be trusted.
var ErrSignature = errors.New("webhook signature verification failed")

// Error is a failed remote call. UserMessage is safe to show to the caller.
type Error struct {
	Op          string
	Code        string
	UserMessage string
	HTTPStatus  int
	Err         error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("gateway %s failed (%s): %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("gateway %s failed: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsResourceMissing reports whether err is a gateway 404 for the requested object.
func IsResourceMissing(err error) bool {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.HTTPStatus == 404 || gwErr.Code == "resource_missing"
	}
	return false
}
