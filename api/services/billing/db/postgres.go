package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

const accountColumns = `account_id, user_id, gateway_customer_id, active_payment_method_id, active_subscription_id,
	paid_until, status, cancel_requested, subscription_count, last_event_at, version, created_at, updated_at`

const methodColumns = `method_id, owner_user_id, account_id, gateway_token_id, gateway_payment_method_id,
	fingerprint, brand, last4, exp_month, exp_year, is_default, status, created_at, updated_at`

// PostgresStore implements Store on the billing_account and payment_method tables.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (Account, error) {
	var a Account
	var status int
	err := row.Scan(&a.ID, &a.UserID, &a.GatewayCustomerID, &a.ActivePaymentMethodID, &a.ActiveSubscriptionID,
		&a.PaidUntil, &status, &a.CancelRequested, &a.SubscriptionCount, &a.LastEventAt, &a.Version,
		&a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	if err != nil {
		return Account{}, err
	}
	a.Status = AccountStatus(status)
	return a, nil
}

func scanMethod(row rowScanner) (PaymentMethod, error) {
	var m PaymentMethod
	var accountID, tokenID sql.NullString
	var status int
	err := row.Scan(&m.ID, &m.OwnerUserID, &accountID, &tokenID, &m.GatewayPaymentMethodID,
		&m.Fingerprint, &m.Brand, &m.Last4, &m.ExpMonth, &m.ExpYear, &m.IsDefault, &status,
		&m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return PaymentMethod{}, ErrNotFound
	}
	if err != nil {
		return PaymentMethod{}, err
	}
	m.AccountID = accountID.String
	m.GatewayTokenID = tokenID.String
	m.Status = MethodStatus(status)
	return m, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// uniqueViolation maps Postgres unique_violation to ErrDuplicate.
func uniqueViolation(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrDuplicate, pqErr.Constraint)
	}
	return err
}

func (s *PostgresStore) CreateAccount(ctx context.Context, acc Account) (Account, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO billing_account (account_id, user_id, gateway_customer_id, paid_until, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+accountColumns,
		acc.ID, acc.UserID, acc.GatewayCustomerID, acc.PaidUntil, int(acc.Status))
	out, err := scanAccount(row)
	if err != nil {
		return Account{}, uniqueViolation(err)
	}
	return out, nil
}

func (s *PostgresStore) GetAccount(ctx context.Context, accountID string) (Account, error) {
	return scanAccount(s.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM billing_account WHERE account_id = $1`, accountID))
}

func (s *PostgresStore) GetAccountByUser(ctx context.Context, userID string) (Account, error) {
	return scanAccount(s.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM billing_account WHERE user_id = $1`, userID))
}

func (s *PostgresStore) GetAccountByCustomer(ctx context.Context, customerID string) (Account, error) {
	return scanAccount(s.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM billing_account WHERE gateway_customer_id = $1`, customerID))
}

func keyClause(key AccountKey) (string, string, error) {
	switch {
	case key.AccountID != "":
		return "account_id = $1", key.AccountID, nil
	case key.GatewayCustomerID != "":
		return "gateway_customer_id = $1", key.GatewayCustomerID, nil
	}
	return "", "", errors.New("empty account key")
}

func (s *PostgresStore) MutateAccount(ctx context.Context, key AccountKey, opts MutateOptions, fn func(*Account) error) (Account, error) {
	where, arg, err := keyClause(key)
	if err != nil {
		return Account{}, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Account{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	before, err := scanAccount(tx.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM billing_account WHERE `+where+` FOR UPDATE`, arg))
	if err != nil {
		return Account{}, err
	}

	if opts.EventID != "" {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO processed_webhook_event (event_id, event_type)
			VALUES ($1, $2)
			ON CONFLICT (event_id) DO NOTHING`, opts.EventID, opts.EventType)
		if err != nil {
			return Account{}, fmt.Errorf("record event: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return before, ErrDuplicateEvent
		}
	}

	acc := before
	if err := fn(&acc); err != nil {
		return before, err
	}

	row := tx.QueryRowContext(ctx, `
		UPDATE billing_account SET
			active_payment_method_id = $2,
			active_subscription_id = $3,
			paid_until = $4,
			status = $5,
			cancel_requested = $6,
			subscription_count = $7,
			last_event_at = $8,
			version = version + 1,
			updated_at = NOW()
		WHERE account_id = $1
		RETURNING `+accountColumns,
		before.ID, acc.ActivePaymentMethodID, acc.ActiveSubscriptionID, acc.PaidUntil, int(acc.Status),
		acc.CancelRequested, acc.SubscriptionCount, acc.LastEventAt)
	after, err := scanAccount(row)
	if err != nil {
		return before, fmt.Errorf("update account: %w", err)
	}

	if opts.DefaultPaymentMethodID != "" {
		if err := setDefault(ctx, tx, before.ID, opts.DefaultPaymentMethodID); err != nil {
			return before, err
		}
	}

	if err := tx.Commit(); err != nil {
		return before, fmt.Errorf("commit: %w", err)
	}
	return after, nil
}

// setDefault clears the current default before setting the new one; the partial unique index allows one default per account.
func setDefault(ctx context.Context, tx *sql.Tx, accountID, methodID string) error {
	if _, err := tx.ExecContext(ctx, `
		UPDATE payment_method SET is_default = FALSE, updated_at = NOW()
		WHERE account_id = $1 AND is_default AND method_id <> $2`, accountID, methodID); err != nil {
		return fmt.Errorf("clear default: %w", err)
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE payment_method SET is_default = TRUE, updated_at = NOW()
		WHERE account_id = $1 AND method_id = $2 AND status = 1`, accountID, methodID)
	if err != nil {
		return fmt.Errorf("set default: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteAccount(ctx context.Context, key AccountKey) (Account, error) {
	where, arg, err := keyClause(key)
	if err != nil {
		return Account{}, err
	}
	return s.deleteAccount(ctx, where, arg)
}

func (s *PostgresStore) DeleteAccountByUser(ctx context.Context, userID string) (Account, error) {
	return s.deleteAccount(ctx, "user_id = $1", userID)
}

func (s *PostgresStore) deleteAccount(ctx context.Context, where, arg string) (Account, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Account{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	acc, err := scanAccount(tx.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM billing_account WHERE `+where+` FOR UPDATE`, arg))
	if err != nil {
		return Account{}, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM payment_method WHERE owner_user_id = $1`, acc.UserID); err != nil {
		return Account{}, fmt.Errorf("delete payment methods: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM billing_account WHERE account_id = $1`, acc.ID); err != nil {
		return Account{}, fmt.Errorf("delete account: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Account{}, fmt.Errorf("commit: %w", err)
	}
	return acc, nil
}

func (s *PostgresStore) CreatePaymentMethod(ctx context.Context, pm PaymentMethod) (PaymentMethod, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO payment_method (method_id, owner_user_id, account_id, gateway_token_id, gateway_payment_method_id,
			fingerprint, brand, last4, exp_month, exp_year, is_default, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+methodColumns,
		pm.ID, pm.OwnerUserID, nullable(pm.AccountID), nullable(pm.GatewayTokenID), pm.GatewayPaymentMethodID,
		pm.Fingerprint, pm.Brand, pm.Last4, pm.ExpMonth, pm.ExpYear, pm.IsDefault, int(pm.Status))
	out, err := scanMethod(row)
	if err != nil {
		return PaymentMethod{}, uniqueViolation(err)
	}
	return out, nil
}

func (s *PostgresStore) GetPaymentMethod(ctx context.Context, accountID, methodID string) (PaymentMethod, error) {
	return scanMethod(s.db.QueryRowContext(ctx, `
		SELECT `+methodColumns+` FROM payment_method
		WHERE account_id = $1 AND method_id = $2`, accountID, methodID))
}

func (s *PostgresStore) ListPaymentMethods(ctx context.Context, accountID string) ([]PaymentMethod, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+methodColumns+` FROM payment_method
		WHERE account_id = $1 AND status = 1
		ORDER BY created_at, method_id`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PaymentMethod
	for rows.Next() {
		m, err := scanMethod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *PostgresStore) FindActiveByFingerprint(ctx context.Context, accountID, fingerprint string) (PaymentMethod, error) {
	return scanMethod(s.db.QueryRowContext(ctx, `
		SELECT `+methodColumns+` FROM payment_method
		WHERE account_id = $1 AND fingerprint = $2 AND fingerprint <> '' AND status = 1`, accountID, fingerprint))
}

func (s *PostgresStore) UpdatePaymentMethodExpiry(ctx context.Context, accountID, methodID string, expMonth, expYear int64) (PaymentMethod, error) {
	return scanMethod(s.db.QueryRowContext(ctx, `
		UPDATE payment_method SET exp_month = $3, exp_year = $4, updated_at = NOW()
		WHERE account_id = $1 AND method_id = $2
		RETURNING `+methodColumns, accountID, methodID, expMonth, expYear))
}

func (s *PostgresStore) SetDefaultPaymentMethod(ctx context.Context, accountID, methodID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if err := setDefault(ctx, tx, accountID, methodID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *PostgresStore) DeletePaymentMethod(ctx context.Context, accountID, methodID string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM payment_method
		WHERE account_id = $1 AND method_id = $2 AND NOT is_default`, accountID, methodID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	// Nothing deleted: tell a default method apart from a missing one.
	var isDefault bool
	err = s.db.QueryRowContext(ctx, `
		SELECT is_default FROM payment_method WHERE account_id = $1 AND method_id = $2`, accountID, methodID).Scan(&isDefault)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return ErrDefaultMethod
}

func (s *PostgresStore) PruneProcessedEvents(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM processed_webhook_event WHERE processed_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
