package db

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used by tests and local runs without Postgres.
// One mutex guards everything, so MutateAccount is trivially serialized.
type MemoryStore struct {
	mu       sync.Mutex
	accounts map[string]Account
	methods  map[string]PaymentMethod
	events   map[string]time.Time
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]Account),
		methods:  make(map[string]PaymentMethod),
		events:   make(map[string]time.Time),
		now:      time.Now,
	}
}

func (s *MemoryStore) CreateAccount(_ context.Context, acc Account) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.ID == acc.ID || a.UserID == acc.UserID || a.GatewayCustomerID == acc.GatewayCustomerID {
			return Account{}, ErrDuplicate
		}
	}
	now := s.now()
	acc.CreatedAt, acc.UpdatedAt = now, now
	s.accounts[acc.ID] = acc
	return acc, nil
}

func (s *MemoryStore) GetAccount(_ context.Context, accountID string) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.accounts[accountID]; ok {
		return a, nil
	}
	return Account{}, ErrNotFound
}

func (s *MemoryStore) GetAccountByUser(_ context.Context, userID string) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.find(func(a Account) bool { return a.UserID == userID })
}

func (s *MemoryStore) GetAccountByCustomer(_ context.Context, customerID string) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.find(func(a Account) bool { return a.GatewayCustomerID == customerID })
}

func (s *MemoryStore) find(match func(Account) bool) (Account, error) {
	for _, a := range s.accounts {
		if match(a) {
			return a, nil
		}
	}
	return Account{}, ErrNotFound
}

func (s *MemoryStore) byKey(key AccountKey) (Account, error) {
	switch {
	case key.AccountID != "":
		if a, ok := s.accounts[key.AccountID]; ok {
			return a, nil
		}
		return Account{}, ErrNotFound
	case key.GatewayCustomerID != "":
		return s.find(func(a Account) bool { return a.GatewayCustomerID == key.GatewayCustomerID })
	}
	return Account{}, errors.New("empty account key")
}

func (s *MemoryStore) MutateAccount(_ context.Context, key AccountKey, opts MutateOptions, fn func(*Account) error) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before, err := s.byKey(key)
	if err != nil {
		return Account{}, err
	}
	if opts.EventID != "" {
		if _, seen := s.events[opts.EventID]; seen {
			return before, ErrDuplicateEvent
		}
	}
	if opts.DefaultPaymentMethodID != "" {
		m, ok := s.methods[opts.DefaultPaymentMethodID]
		if !ok || m.AccountID != before.ID || m.Status != MethodActive {
			return before, ErrNotFound
		}
	}

	acc := before
	if err := fn(&acc); err != nil {
		return before, err
	}
	// Identity fields are immutable.
	acc.ID, acc.UserID, acc.GatewayCustomerID, acc.CreatedAt = before.ID, before.UserID, before.GatewayCustomerID, before.CreatedAt
	acc.Version = before.Version + 1
	acc.UpdatedAt = s.now()
	s.accounts[acc.ID] = acc

	if opts.EventID != "" {
		s.events[opts.EventID] = s.now()
	}
	if opts.DefaultPaymentMethodID != "" {
		s.setDefault(acc.ID, opts.DefaultPaymentMethodID)
	}
	return acc, nil
}

func (s *MemoryStore) DeleteAccount(_ context.Context, key AccountKey) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, err := s.byKey(key)
	if err != nil {
		return Account{}, err
	}
	s.deleteLocked(acc)
	return acc, nil
}

func (s *MemoryStore) DeleteAccountByUser(_ context.Context, userID string) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, err := s.find(func(a Account) bool { return a.UserID == userID })
	if err != nil {
		return Account{}, err
	}
	s.deleteLocked(acc)
	return acc, nil
}

func (s *MemoryStore) deleteLocked(acc Account) {
	for id, m := range s.methods {
		if m.OwnerUserID == acc.UserID {
			delete(s.methods, id)
		}
	}
	delete(s.accounts, acc.ID)
}

func (s *MemoryStore) CreatePaymentMethod(_ context.Context, pm PaymentMethod) (PaymentMethod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.methods {
		if m.ID == pm.ID {
			return PaymentMethod{}, ErrDuplicate
		}
		if pm.GatewayTokenID != "" && m.GatewayTokenID == pm.GatewayTokenID {
			return PaymentMethod{}, ErrDuplicate
		}
		if pm.AccountID != "" && m.AccountID == pm.AccountID {
			if pm.Fingerprint != "" && pm.Status == MethodActive && m.Status == MethodActive && m.Fingerprint == pm.Fingerprint {
				return PaymentMethod{}, ErrDuplicate
			}
			if pm.IsDefault && m.IsDefault {
				return PaymentMethod{}, ErrDuplicate
			}
		}
	}
	now := s.now()
	pm.CreatedAt, pm.UpdatedAt = now, now
	s.methods[pm.ID] = pm
	return pm, nil
}

func (s *MemoryStore) GetPaymentMethod(_ context.Context, accountID, methodID string) (PaymentMethod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.methods[methodID]
	if !ok || m.AccountID != accountID {
		return PaymentMethod{}, ErrNotFound
	}
	return m, nil
}

func (s *MemoryStore) ListPaymentMethods(_ context.Context, accountID string) ([]PaymentMethod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []PaymentMethod
	for _, m := range s.methods {
		if m.AccountID == accountID && m.Status == MethodActive {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) FindActiveByFingerprint(_ context.Context, accountID, fingerprint string) (PaymentMethod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.methods {
		if fingerprint != "" && m.AccountID == accountID && m.Status == MethodActive && m.Fingerprint == fingerprint {
			return m, nil
		}
	}
	return PaymentMethod{}, ErrNotFound
}

func (s *MemoryStore) UpdatePaymentMethodExpiry(_ context.Context, accountID, methodID string, expMonth, expYear int64) (PaymentMethod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.methods[methodID]
	if !ok || m.AccountID != accountID {
		return PaymentMethod{}, ErrNotFound
	}
	m.ExpMonth, m.ExpYear = expMonth, expYear
	m.UpdatedAt = s.now()
	s.methods[methodID] = m
	return m, nil
}

func (s *MemoryStore) SetDefaultPaymentMethod(_ context.Context, accountID, methodID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.methods[methodID]
	if !ok || m.AccountID != accountID || m.Status != MethodActive {
		return ErrNotFound
	}
	s.setDefault(accountID, methodID)
	return nil
}

func (s *MemoryStore) setDefault(accountID, methodID string) {
	now := s.now()
	for id, m := range s.methods {
		if m.AccountID != accountID {
			continue
		}
		isDefault := id == methodID
		if m.IsDefault != isDefault {
			m.IsDefault = isDefault
			m.UpdatedAt = now
			s.methods[id] = m
		}
	}
}

func (s *MemoryStore) DeletePaymentMethod(_ context.Context, accountID, methodID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.methods[methodID]
	if !ok || m.AccountID != accountID {
		return ErrNotFound
	}
	if m.IsDefault {
		return ErrDefaultMethod
	}
	delete(s.methods, methodID)
	return nil
}

func (s *MemoryStore) PruneProcessedEvents(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, at := range s.events {
		if at.Before(before) {
			delete(s.events, id)
			n++
		}
	}
	return n, nil
}
