package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/tbeaudouin05/subscription-reconciler/api/auth"
	billingdb "github.com/tbeaudouin05/subscription-reconciler/api/services/billing/db"
	"github.com/tbeaudouin05/subscription-reconciler/api/services/billing/dedup"
	gw "github.com/tbeaudouin05/subscription-reconciler/api/services/billing/gateway"
)

// Service defines the business operations for the billing domain.
// User-facing operations are keyed by the caller's user id.
type Service interface {
	ProvisionAccount(ctx context.Context, user User) (Account, error)
	TeardownAccount(ctx context.Context, userID string) error
	GetAccount(ctx context.Context, userID string) (Account, error)

	AttachPaymentMethod(ctx context.Context, userID string, in AttachPaymentMethodInput) (PaymentMethod, error)
	ListPaymentMethods(ctx context.Context, userID string) (PaymentMethodList, error)
	UpdatePaymentMethod(ctx context.Context, userID, methodID string, in UpdatePaymentMethodInput) (PaymentMethod, error)
	DetachPaymentMethod(ctx context.Context, userID, methodID string) error
	MarkDefault(ctx context.Context, userID, methodID string) (PaymentMethod, error)

	StartSubscription(ctx context.Context, userID, methodID string) (Account, error)
	RequestCancellation(ctx context.Context, userID string, cancel bool) (Account, error)

	ApplyChargeSucceeded(ctx context.Context, customerID string, periodEnd int64, meta EventMeta) error
	ApplySubscriptionActivated(ctx context.Context, customerID, subscriptionID string, periodEnd int64, meta EventMeta) error
	ApplySubscriptionTerminated(ctx context.Context, customerID, subscriptionID string, meta EventMeta) error
	ApplyCustomerDeleted(ctx context.Context, customerID string) error

	HandleWebhook(ctx context.Context, payload []byte, signature string) (WebhookResult, error)
	CheckAccess(ctx context.Context, p auth.Principal) (AccessDecision, error)
	ClientConfig() (ClientConfig, error)
}

// Options configures NewService. Zero values fall back to defaults.
type Options struct {
	PriceID          string
	PublishableKey   string
	DefaultTrialDays int
	WebhookTimeout   time.Duration
	// Dedup short-circuits redelivered webhook events. Defaults to an in-memory set.
	Dedup  dedup.Set
	Logger *slog.Logger
	Now    func() time.Time
	// Background runs fire-and-forget work such as remote customer deletion.
	Background func(func())
}

type serviceImpl struct {
	gw    gw.Gateway
	store billingdb.Store
	opts  Options
	log   *slog.Logger
	locks *keyedMutex
}

func NewService(g gw.Gateway, store billingdb.Store, opts Options) Service {
	if opts.DefaultTrialDays <= 0 {
		opts.DefaultTrialDays = 7
	}
	if opts.WebhookTimeout <= 0 {
		opts.WebhookTimeout = 20 * time.Second
	}
	if opts.Dedup == nil {
		opts.Dedup = dedup.NewMemorySet(72 * time.Hour)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Background == nil {
		opts.Background = func(f func()) { go f() }
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return serviceImpl{gw: g, store: store, opts: opts, log: logger, locks: newKeyedMutex()}
}

func (s serviceImpl) now() time.Time { return s.opts.Now() }

// ProvisionAccount creates the gateway customer and the local Incomplete record.
// It is called once, when the user registers.
func (s serviceImpl) ProvisionAccount(ctx context.Context, user User) (Account, error) {
	if err := validateStruct(user); err != nil {
		return Account{}, err
	}
	if _, err := s.store.GetAccountByUser(ctx, user.ID); err == nil {
		return Account{}, fmt.Errorf("%w: billing account already exists", ErrConflict)
	} else if !errors.Is(err, billingdb.ErrNotFound) {
		return Account{}, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	accountID := uuid.NewString()
	cust, err := s.gw.CreateCustomer(ctx, gw.CustomerInput{
		UserID:         user.ID,
		Email:          user.Email,
		Name:           user.Name,
		IdempotencyKey: "customer-" + accountID,
	})
	if err != nil {
		return Account{}, gatewayErr("create customer", err)
	}

	acc, err := s.store.CreateAccount(ctx, billingdb.Account{
		ID:                accountID,
		UserID:            user.ID,
		GatewayCustomerID: cust.ID,
		Status:            billingdb.StatusIncomplete,
		PaidUntil:         s.now().Unix(),
	})
	if err != nil {
		var result error = fmt.Errorf("%w: error creating billing account: %v", ErrDatabase, err)
		if errors.Is(err, billingdb.ErrDuplicate) {
			result = fmt.Errorf("%w: billing account already exists", ErrConflict)
		}
		// The remote customer would be orphaned without a local record.
		if delErr := s.gw.DeleteCustomer(ctx, cust.ID); delErr != nil {
			result = multierror.Append(result, gatewayErr("delete customer", delErr))
		}
		return Account{}, result
	}
	s.log.Info("billing account provisioned", "user_id", user.ID, "account_id", acc.ID, "customer_id", cust.ID)
	return toAccount(acc), nil
}

// TeardownAccount removes the account and its payment methods, then deletes the
// gateway customer in the background.
func (s serviceImpl) TeardownAccount(ctx context.Context, userID string) error {
	unlock := s.locks.Lock(userID)
	defer unlock()

	acc, err := s.store.DeleteAccountByUser(ctx, userID)
	if errors.Is(err, billingdb.ErrNotFound) {
		return fmt.Errorf("%w: billing account not found", ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("%w: error deleting billing account: %v", ErrDatabase, err)
	}
	s.log.Info("billing account removed", "user_id", userID, "account_id", acc.ID)

	customerID := acc.GatewayCustomerID
	s.opts.Background(func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.WebhookTimeout)
		defer cancel()
		if err := s.gw.DeleteCustomer(ctx, customerID); err != nil && !gw.IsResourceMissing(err) {
			s.log.Error("failed to delete gateway customer", "customer_id", customerID, "error", err)
		}
	})
	return nil
}

func (s serviceImpl) GetAccount(ctx context.Context, userID string) (Account, error) {
	acc, err := s.accountByUser(ctx, userID)
	if err != nil {
		return Account{}, err
	}
	return toAccount(acc), nil
}

func (s serviceImpl) ClientConfig() (ClientConfig, error) {
	if s.opts.PublishableKey == "" {
		return ClientConfig{}, fmt.Errorf("%w: publishable key is not configured", ErrNotFound)
	}
	return ClientConfig{PublishableKey: s.opts.PublishableKey}, nil
}

func (s serviceImpl) accountByUser(ctx context.Context, userID string) (billingdb.Account, error) {
	if userID == "" {
		return billingdb.Account{}, fmt.Errorf("%w: missing user", ErrUnauthenticated)
	}
	acc, err := s.store.GetAccountByUser(ctx, userID)
	if errors.Is(err, billingdb.ErrNotFound) {
		return billingdb.Account{}, fmt.Errorf("%w: billing account not found", ErrNotFound)
	}
	if err != nil {
		return billingdb.Account{}, fmt.Errorf("%w: error retrieving billing account: %v", ErrDatabase, err)
	}
	return acc, nil
}

// keyedMutex serializes user actions on one account within this process.
// Cross-process serialization comes from the store's row lock.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

func (k *keyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func isNotFound(err error) bool { return errors.Is(err, billingdb.ErrNotFound) }
