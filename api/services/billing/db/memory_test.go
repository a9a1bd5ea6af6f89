package db

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedAccount(t *testing.T, s Store, id, user, customer string) Account {
	t.Helper()
	acc, err := s.CreateAccount(context.Background(), Account{
		ID: id, UserID: user, GatewayCustomerID: customer, Status: StatusIncomplete, PaidUntil: 100,
	})
	require.NoError(t, err)
	return acc
}

func seedMethod(t *testing.T, s Store, id, accountID, owner, fingerprint string) PaymentMethod {
	t.Helper()
	pm, err := s.CreatePaymentMethod(context.Background(), PaymentMethod{
		ID: id, OwnerUserID: owner, AccountID: accountID, GatewayTokenID: "tok_" + id,
		GatewayPaymentMethodID: "pm_" + id, Fingerprint: fingerprint, Status: MethodActive,
	})
	require.NoError(t, err)
	return pm
}

func TestMemoryStore_CreateAccountUniqueness(t *testing.T) {
	s := NewMemoryStore()
	seedAccount(t, s, "acc1", "user1", "cus1")

	_, err := s.CreateAccount(context.Background(), Account{ID: "acc2", UserID: "user1", GatewayCustomerID: "cus2"})
	assert.ErrorIs(t, err, ErrDuplicate)
	_, err = s.CreateAccount(context.Background(), Account{ID: "acc3", UserID: "user3", GatewayCustomerID: "cus1"})
	assert.ErrorIs(t, err, ErrDuplicate)

	got, err := s.GetAccountByCustomer(context.Background(), "cus1")
	require.NoError(t, err)
	assert.Equal(t, "user1", got.UserID)
	_, err = s.GetAccountByUser(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_MutateAccount(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seedAccount(t, s, "acc1", "user1", "cus1")

	after, err := s.MutateAccount(ctx, ByCustomer("cus1"), MutateOptions{}, func(a *Account) error {
		a.Status = StatusActive
		a.ActiveSubscriptionID = "sub1"
		a.UserID = "someone-else"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, StatusActive, after.Status)
	assert.Equal(t, "user1", after.UserID)
	assert.Equal(t, int64(1), after.Version)

	unchanged, err := s.MutateAccount(ctx, ByID("acc1"), MutateOptions{}, func(a *Account) error {
		a.Status = StatusInactive
		return ErrSkip
	})
	assert.ErrorIs(t, err, ErrSkip)
	assert.Equal(t, StatusActive, unchanged.Status)

	_, err = s.MutateAccount(ctx, ByCustomer("missing"), MutateOptions{}, func(*Account) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_MutateAccountRecordsEventOnce(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seedAccount(t, s, "acc1", "user1", "cus1")
	inc := func(a *Account) error { a.SubscriptionCount++; return nil }

	_, err := s.MutateAccount(ctx, ByCustomer("cus1"), MutateOptions{EventID: "evt1"}, inc)
	require.NoError(t, err)
	_, err = s.MutateAccount(ctx, ByCustomer("cus1"), MutateOptions{EventID: "evt1"}, inc)
	assert.ErrorIs(t, err, ErrDuplicateEvent)

	acc, err := s.GetAccount(ctx, "acc1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), acc.SubscriptionCount)

	// A failed callback does not record the event.
	_, err = s.MutateAccount(ctx, ByCustomer("cus1"), MutateOptions{EventID: "evt2"}, func(*Account) error { return errors.New("boom") })
	require.Error(t, err)
	_, err = s.MutateAccount(ctx, ByCustomer("cus1"), MutateOptions{EventID: "evt2"}, inc)
	require.NoError(t, err)
}

func TestMemoryStore_ConcurrentMutationsSerialize(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seedAccount(t, s, "acc1", "user1", "cus1")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.MutateAccount(ctx, ByID("acc1"), MutateOptions{}, func(a *Account) error {
				a.SubscriptionCount++
				return nil
			})
		}()
	}
	wg.Wait()

	acc, err := s.GetAccount(ctx, "acc1")
	require.NoError(t, err)
	assert.Equal(t, int64(50), acc.SubscriptionCount)
	assert.Equal(t, int64(50), acc.Version)
}

func TestMemoryStore_FingerprintUniquePerAccount(t *testing.T) {
	s := NewMemoryStore()
	seedAccount(t, s, "acc1", "user1", "cus1")
	seedAccount(t, s, "acc2", "user2", "cus2")
	seedMethod(t, s, "m1", "acc1", "user1", "fp1")

	_, err := s.CreatePaymentMethod(context.Background(), PaymentMethod{
		ID: "m2", OwnerUserID: "user1", AccountID: "acc1", GatewayTokenID: "tok_m2", Fingerprint: "fp1", Status: MethodActive,
	})
	assert.ErrorIs(t, err, ErrDuplicate)

	seedMethod(t, s, "m3", "acc2", "user2", "fp1")
}

func TestMemoryStore_EmptyFingerprintsDoNotCollide(t *testing.T) {
	s := NewMemoryStore()
	seedAccount(t, s, "acc1", "user1", "cus1")
	seedMethod(t, s, "m1", "acc1", "user1", "")
	seedMethod(t, s, "m2", "acc1", "user1", "")

	_, err := s.FindActiveByFingerprint(context.Background(), "acc1", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_DefaultMethod(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seedAccount(t, s, "acc1", "user1", "cus1")
	seedMethod(t, s, "m1", "acc1", "user1", "fp1")
	seedMethod(t, s, "m2", "acc1", "user1", "fp2")

	require.NoError(t, s.SetDefaultPaymentMethod(ctx, "acc1", "m1"))
	_, err := s.MutateAccount(ctx, ByID("acc1"), MutateOptions{DefaultPaymentMethodID: "m2"}, func(*Account) error { return nil })
	require.NoError(t, err)

	methods, err := s.ListPaymentMethods(ctx, "acc1")
	require.NoError(t, err)
	defaults := 0
	for _, m := range methods {
		if m.IsDefault {
			defaults++
			assert.Equal(t, "m2", m.ID)
		}
	}
	assert.Equal(t, 1, defaults)

	assert.ErrorIs(t, s.DeletePaymentMethod(ctx, "acc1", "m2"), ErrDefaultMethod)
	require.NoError(t, s.DeletePaymentMethod(ctx, "acc1", "m1"))
	assert.ErrorIs(t, s.DeletePaymentMethod(ctx, "acc1", "m1"), ErrNotFound)
	assert.ErrorIs(t, s.SetDefaultPaymentMethod(ctx, "acc1", "missing"), ErrNotFound)
}

func TestMemoryStore_DeleteAccountCascades(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seedAccount(t, s, "acc1", "user1", "cus1")
	seedAccount(t, s, "acc2", "user2", "cus2")
	seedMethod(t, s, "m1", "acc1", "user1", "fp1")
	seedMethod(t, s, "m2", "acc2", "user2", "fp1")

	deleted, err := s.DeleteAccount(ctx, ByCustomer("cus1"))
	require.NoError(t, err)
	assert.Equal(t, "acc1", deleted.ID)

	_, err = s.GetAccount(ctx, "acc1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetPaymentMethod(ctx, "acc1", "m1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetPaymentMethod(ctx, "acc2", "m2")
	assert.NoError(t, err)

	_, err = s.DeleteAccount(ctx, ByCustomer("cus1"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_PruneProcessedEvents(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }
	seedAccount(t, s, "acc1", "user1", "cus1")

	_, err := s.MutateAccount(ctx, ByID("acc1"), MutateOptions{EventID: "old"}, func(*Account) error { return nil })
	require.NoError(t, err)
	s.now = func() time.Time { return base.Add(48 * time.Hour) }
	_, err = s.MutateAccount(ctx, ByID("acc1"), MutateOptions{EventID: "new"}, func(*Account) error { return nil })
	require.NoError(t, err)

	n, err := s.PruneProcessedEvents(ctx, base.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// The pruned id can be recorded again, the retained one cannot.
	_, err = s.MutateAccount(ctx, ByID("acc1"), MutateOptions{EventID: "old"}, func(*Account) error { return nil })
	assert.NoError(t, err)
	_, err = s.MutateAccount(ctx, ByID("acc1"), MutateOptions{EventID: "new"}, func(*Account) error { return nil })
	assert.ErrorIs(t, err, ErrDuplicateEvent)
}
