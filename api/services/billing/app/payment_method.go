package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	billingdb "github.com/tbeaudouin05/subscription-reconciler/api/services/billing/db"
	gw "github.com/tbeaudouin05/subscription-reconciler/api/services/billing/gateway"
)

// AttachPaymentMethod tokenizes a card, attaches it to the caller's gateway customer
// and stores it as a non-default method. A card already attached to the account is rejected.
func (s serviceImpl) AttachPaymentMethod(ctx context.Context, userID string, in AttachPaymentMethodInput) (PaymentMethod, error) {
	in.CardNumber = strings.ReplaceAll(in.CardNumber, " ", "")
	if err := validateStruct(in); err != nil {
		return PaymentMethod{}, err
	}
	if err := validateExpiry(in.ExpMonth, in.ExpYear, s.now()); err != nil {
		return PaymentMethod{}, err
	}
	acc, err := s.accountByUser(ctx, userID)
	if err != nil {
		return PaymentMethod{}, err
	}

	tok, err := s.gw.CreateCardToken(ctx, gw.Card{Number: in.CardNumber, ExpMonth: in.ExpMonth, ExpYear: in.ExpYear, CVC: in.CVC})
	if err != nil {
		return PaymentMethod{}, gatewayErr("create card token", err)
	}
	if tok.Fingerprint != "" {
		_, err := s.store.FindActiveByFingerprint(ctx, acc.ID, tok.Fingerprint)
		if err == nil {
			return PaymentMethod{}, fmt.Errorf("%w: this card is already attached", ErrConflict)
		}
		if !errors.Is(err, billingdb.ErrNotFound) {
			return PaymentMethod{}, fmt.Errorf("%w: %v", ErrDatabase, err)
		}
	}

	pm, err := s.gw.CreatePaymentMethod(ctx, tok.ID, gw.BillingDetails{Email: in.Email, Name: in.Name})
	if err != nil {
		return PaymentMethod{}, gatewayErr("create payment method", err)
	}
	if err := s.gw.AttachPaymentMethod(ctx, pm.ID, acc.GatewayCustomerID); err != nil {
		return PaymentMethod{}, gatewayErr("attach payment method", err)
	}

	rec, err := s.store.CreatePaymentMethod(ctx, billingdb.PaymentMethod{
		ID:                     uuid.NewString(),
		OwnerUserID:            acc.UserID,
		AccountID:              acc.ID,
		GatewayTokenID:         tok.ID,
		GatewayPaymentMethodID: pm.ID,
		Fingerprint:            firstNonEmpty(pm.Fingerprint, tok.Fingerprint),
		Brand:                  firstNonEmpty(pm.Brand, tok.Brand),
		Last4:                  firstNonEmpty(pm.Last4, tok.Last4),
		ExpMonth:               in.ExpMonth,
		ExpYear:                in.ExpYear,
		Status:                 billingdb.MethodActive,
	})
	if err != nil {
		// Undo the remote attach so gateway and store agree.
		if detachErr := s.gw.DetachPaymentMethod(ctx, pm.ID); detachErr != nil {
			s.log.Error("failed to detach orphaned payment method", "payment_method_id", pm.ID, "error", detachErr)
		}
		if errors.Is(err, billingdb.ErrDuplicate) {
			return PaymentMethod{}, fmt.Errorf("%w: this card is already attached", ErrConflict)
		}
		return PaymentMethod{}, fmt.Errorf("%w: error saving payment method: %v", ErrDatabase, err)
	}
	s.log.Info("payment method attached", "account_id", acc.ID, "method_id", rec.ID)
	return toPaymentMethod(rec), nil
}

// ListPaymentMethods returns the caller's active methods with the plan summary.
func (s serviceImpl) ListPaymentMethods(ctx context.Context, userID string) (PaymentMethodList, error) {
	acc, err := s.accountByUser(ctx, userID)
	if err != nil {
		return PaymentMethodList{}, err
	}
	methods, err := s.store.ListPaymentMethods(ctx, acc.ID)
	if err != nil {
		return PaymentMethodList{}, fmt.Errorf("%w: error listing payment methods: %v", ErrDatabase, err)
	}
	price, err := s.gw.GetPrice(ctx, s.opts.PriceID)
	if err != nil {
		return PaymentMethodList{}, gatewayErr("retrieve price", err)
	}

	out := PaymentMethodList{
		Methods: make([]PaymentMethod, 0, len(methods)),
		Plan: Plan{
			PriceID:     price.ID,
			ProductID:   price.ProductID,
			ProductName: price.ProductName,
			Currency:    price.Currency,
			Amount:      price.UnitAmount,
			Interval:    price.Interval,
		},
		SubscriptionID:  acc.ActiveSubscriptionID,
		Status:          acc.Status.String(),
		CancelRequested: acc.CancelRequested,
	}
	for _, m := range methods {
		out.Methods = append(out.Methods, toPaymentMethod(m))
	}
	return out, nil
}

// UpdatePaymentMethod changes the card expiry. The stored card token must still resolve at the gateway.
func (s serviceImpl) UpdatePaymentMethod(ctx context.Context, userID, methodID string, in UpdatePaymentMethodInput) (PaymentMethod, error) {
	if err := validateStruct(in); err != nil {
		return PaymentMethod{}, err
	}
	if err := validateExpiry(in.ExpMonth, in.ExpYear, s.now()); err != nil {
		return PaymentMethod{}, err
	}
	acc, m, err := s.ownedMethod(ctx, userID, methodID)
	if err != nil {
		return PaymentMethod{}, err
	}
	if m.GatewayTokenID == "" {
		return PaymentMethod{}, fmt.Errorf("%w: invalid token", ErrValidation)
	}
	if _, err := s.gw.GetCardToken(ctx, m.GatewayTokenID); err != nil {
		if gw.IsResourceMissing(err) {
			return PaymentMethod{}, fmt.Errorf("%w: invalid token", ErrValidation)
		}
		return PaymentMethod{}, gatewayErr("retrieve card token", err)
	}
	if _, err := s.gw.UpdatePaymentMethodExpiry(ctx, m.GatewayPaymentMethodID, in.ExpMonth, in.ExpYear); err != nil {
		return PaymentMethod{}, gatewayErr("modify payment method", err)
	}
	updated, err := s.store.UpdatePaymentMethodExpiry(ctx, acc.ID, m.ID, in.ExpMonth, in.ExpYear)
	if err != nil {
		return PaymentMethod{}, fmt.Errorf("%w: error updating payment method: %v", ErrDatabase, err)
	}
	return toPaymentMethod(updated), nil
}

// DetachPaymentMethod removes a non-default method remotely and then locally.
func (s serviceImpl) DetachPaymentMethod(ctx context.Context, userID, methodID string) error {
	unlock := s.locks.Lock(userID)
	defer unlock()

	acc, m, err := s.ownedMethod(ctx, userID, methodID)
	if err != nil {
		return err
	}
	if m.IsDefault {
		return fmt.Errorf("%w: set another default payment method before removing this one", ErrConflict)
	}
	if err := s.gw.DetachPaymentMethod(ctx, m.GatewayPaymentMethodID); err != nil && !gw.IsResourceMissing(err) {
		return gatewayErr("detach payment method", err)
	}
	switch err := s.store.DeletePaymentMethod(ctx, acc.ID, m.ID); {
	case errors.Is(err, billingdb.ErrDefaultMethod):
		return fmt.Errorf("%w: set another default payment method before removing this one", ErrConflict)
	case errors.Is(err, billingdb.ErrNotFound):
		return fmt.Errorf("%w: payment method not found", ErrNotFound)
	case err != nil:
		return fmt.Errorf("%w: error deleting payment method: %v", ErrDatabase, err)
	}
	s.log.Info("payment method detached", "account_id", acc.ID, "method_id", m.ID)
	return nil
}

// MarkDefault makes methodID the single default method, remotely and locally.
func (s serviceImpl) MarkDefault(ctx context.Context, userID, methodID string) (PaymentMethod, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	acc, m, err := s.ownedMethod(ctx, userID, methodID)
	if err != nil {
		return PaymentMethod{}, err
	}
	if err := s.gw.SetDefaultPaymentMethod(ctx, acc.GatewayCustomerID, m.GatewayPaymentMethodID); err != nil {
		return PaymentMethod{}, gatewayErr("set default payment method", err)
	}
	_, err = s.store.MutateAccount(ctx, billingdb.ByID(acc.ID), billingdb.MutateOptions{DefaultPaymentMethodID: m.ID}, func(a *billingdb.Account) error {
		if a.Status == billingdb.StatusActive {
			a.ActivePaymentMethodID = m.ID
		}
		return nil
	})
	if err != nil {
		return PaymentMethod{}, fmt.Errorf("%w: error setting default payment method: %v", ErrDatabase, err)
	}
	m.IsDefault = true
	return toPaymentMethod(m), nil
}

func (s serviceImpl) ownedMethod(ctx context.Context, userID, methodID string) (billingdb.Account, billingdb.PaymentMethod, error) {
	acc, err := s.accountByUser(ctx, userID)
	if err != nil {
		return billingdb.Account{}, billingdb.PaymentMethod{}, err
	}
	m, err := s.store.GetPaymentMethod(ctx, acc.ID, methodID)
	if errors.Is(err, billingdb.ErrNotFound) || (err == nil && m.Status != billingdb.MethodActive) {
		return billingdb.Account{}, billingdb.PaymentMethod{}, fmt.Errorf("%w: payment method not found", ErrNotFound)
	}
	if err != nil {
		return billingdb.Account{}, billingdb.PaymentMethod{}, fmt.Errorf("%w: error retrieving payment method: %v", ErrDatabase, err)
	}
	return acc, m, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
