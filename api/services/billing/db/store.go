package db

import (
	"context"
	"errors"
	"time"
)

// AccountStatus mirrors the billing_account.status column.
type AccountStatus int

const (
	StatusIncomplete AccountStatus = -1
	StatusInactive   AccountStatus = 0
	StatusActive     AccountStatus = 1
)

func (s AccountStatus) String() string {
	switch s {
	case StatusIncomplete:
		return "incomplete"
	case StatusInactive:
		return "inactive"
	case StatusActive:
		return "active"
	}
	return "unknown"
}

// MethodStatus mirrors the payment_method.status column.
type MethodStatus int

const (
	MethodInactive MethodStatus = 0
	MethodActive   MethodStatus = 1
)

// Account is the local billing record of one user.
type Account struct {
	ID                    string
	UserID                string
	GatewayCustomerID     string
	ActivePaymentMethodID string
	ActiveSubscriptionID  string
	// PaidUntil is the unix time up to which access is granted.
	PaidUntil         int64
	Status            AccountStatus
	CancelRequested   bool
	SubscriptionCount int64
	// LastEventAt is the creation time of the newest gateway event applied to the record.
	LastEventAt int64
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PaymentMethod is a tokenized card. AccountID is empty once the owning account is gone.
type PaymentMethod struct {
	ID                     string
	OwnerUserID            string
	AccountID              string
	GatewayTokenID         string
	GatewayPaymentMethodID string
	Fingerprint            string
	Brand                  string
	Last4                  string
	ExpMonth               int64
	ExpYear                int64
	IsDefault              bool
	Status                 MethodStatus
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// AccountKey selects an account either by its id or by its gateway customer id.
type AccountKey struct {
	AccountID         string
	GatewayCustomerID string
}

func ByID(id string) AccountKey               { return AccountKey{AccountID: id} }
func ByCustomer(customerID string) AccountKey { return AccountKey{GatewayCustomerID: customerID} }

// MutateOptions adds side effects committed together with an account mutation.
type MutateOptions struct {
	// EventID records a processed gateway event; a second mutation with the same id fails with ErrDuplicateEvent.
	EventID   string
	EventType string
	// DefaultPaymentMethodID becomes the single default method of the account.
	DefaultPaymentMethodID string
}

var (
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is a uniqueness violation (user, customer, token or active fingerprint).
	ErrDuplicate = errors.New("record already exists")
	// ErrDuplicateEvent means the event id was already recorded.
	ErrDuplicateEvent = errors.New("event already processed")
	// ErrDefaultMethod is returned when deleting the account's default payment method.
	ErrDefaultMethod = errors.New("payment method is the default")
	// ErrSkip may be returned by a mutate callback to abort without writing.
	ErrSkip = errors.New("mutation skipped")
)

// Store persists accounts and their payment methods. MutateAccount serializes
// read-modify-write cycles on one account across concurrent callers.
type Store interface {
	CreateAccount(ctx context.Context, acc Account) (Account, error)
	GetAccount(ctx context.Context, accountID string) (Account, error)
	GetAccountByUser(ctx context.Context, userID string) (Account, error)
	GetAccountByCustomer(ctx context.Context, customerID string) (Account, error)
	// MutateAccount loads the account under lock, applies fn and commits. When fn
	// returns ErrSkip nothing is written and the unchanged account is returned with ErrSkip.
	MutateAccount(ctx context.Context, key AccountKey, opts MutateOptions, fn func(*Account) error) (Account, error)
	// DeleteAccount removes the account and every payment method owned by its user.
	DeleteAccount(ctx context.Context, key AccountKey) (Account, error)
	DeleteAccountByUser(ctx context.Context, userID string) (Account, error)

	CreatePaymentMethod(ctx context.Context, pm PaymentMethod) (PaymentMethod, error)
	GetPaymentMethod(ctx context.Context, accountID, methodID string) (PaymentMethod, error)
	ListPaymentMethods(ctx context.Context, accountID string) ([]PaymentMethod, error)
	FindActiveByFingerprint(ctx context.Context, accountID, fingerprint string) (PaymentMethod, error)
	UpdatePaymentMethodExpiry(ctx context.Context, accountID, methodID string, expMonth, expYear int64) (PaymentMethod, error)
	SetDefaultPaymentMethod(ctx context.Context, accountID, methodID string) error
	DeletePaymentMethod(ctx context.Context, accountID, methodID string) error

	PruneProcessedEvents(ctx context.Context, before time.Time) (int64, error)
}
