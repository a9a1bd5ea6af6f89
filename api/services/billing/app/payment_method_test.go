package app

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	billingdb "github.com/tbeaudouin05/subscription-reconciler/api/services/billing/db"
	gw "github.com/tbeaudouin05/subscription-reconciler/api/services/billing/gateway"
)

var testCard = AttachPaymentMethodInput{CardNumber: "4242 4242 4242 4242", ExpMonth: 12, ExpYear: 2030, CVC: "123"}

func (f *fixture) expectAttach(customerID, tokenID, pmID, fingerprint string) {
	f.gw.EXPECT().CreateCardToken(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, card gw.Card) (gw.CardToken, error) {
			return gw.CardToken{ID: tokenID, Fingerprint: fingerprint, Brand: "visa", Last4: card.Number[len(card.Number)-4:]}, nil
		})
	f.gw.EXPECT().CreatePaymentMethod(gomock.Any(), tokenID, gomock.Any()).
		Return(gw.PaymentMethod{ID: pmID, Fingerprint: fingerprint, Brand: "visa", Last4: "4242"}, nil)
	f.gw.EXPECT().AttachPaymentMethod(gomock.Any(), pmID, customerID).Return(nil)
}

func TestAttachPaymentMethod_RejectsDuplicateCard(t *testing.T) {
	f := newFixture(t)
	acc := f.seedAccount(t, "user-1", billingdb.StatusIncomplete, "", testNow.Unix())

	f.expectAttach("cus_user-1", "tok_1", "pm_1", "F1")
	pm, err := f.svc.AttachPaymentMethod(context.Background(), "user-1", testCard)
	require.NoError(t, err)
	assert.False(t, pm.IsDefault)
	assert.Equal(t, "4242", pm.Last4)

	f.gw.EXPECT().CreateCardToken(gomock.Any(), gomock.Any()).Return(gw.CardToken{ID: "tok_2", Fingerprint: "F1"}, nil)
	_, err = f.svc.AttachPaymentMethod(context.Background(), "user-1", testCard)
	assert.ErrorIs(t, err, ErrConflict)

	methods, err := f.store.ListPaymentMethods(context.Background(), acc.ID)
	require.NoError(t, err)
	assert.Len(t, methods, 1)
}

func TestAttachPaymentMethod_SameCardOtherAccount(t *testing.T) {
	f := newFixture(t)
	first := f.seedAccount(t, "user-1", billingdb.StatusIncomplete, "", 0)
	f.seedMethod(t, first, "m1", "F1", false)
	f.seedAccount(t, "user-2", billingdb.StatusIncomplete, "", 0)

	f.expectAttach("cus_user-2", "tok_2", "pm_2", "F1")
	_, err := f.svc.AttachPaymentMethod(context.Background(), "user-2", testCard)
	assert.NoError(t, err)
}

func TestAttachPaymentMethod_Validation(t *testing.T) {
	f := newFixture(t)
	f.seedAccount(t, "user-1", billingdb.StatusIncomplete, "", 0)

	bad := testCard
	bad.CardNumber = "1234"
	_, err := f.svc.AttachPaymentMethod(context.Background(), "user-1", bad)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "cardNumber")

	expired := testCard
	expired.ExpYear = 2025
	expired.ExpMonth = 2
	_, err = f.svc.AttachPaymentMethod(context.Background(), "user-1", expired)
	assert.ErrorIs(t, err, ErrValidation)

	noCVC := testCard
	noCVC.CVC = ""
	_, err = f.svc.AttachPaymentMethod(context.Background(), "user-1", noCVC)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAttachPaymentMethod_NoAccount(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.AttachPaymentMethod(context.Background(), "ghost", testCard)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDetachPaymentMethod(t *testing.T) {
	f := newFixture(t)
	acc := f.seedAccount(t, "user-1", billingdb.StatusActive, "sub_1", testNow.Unix())
	f.seedMethod(t, acc, "m1", "fp1", true)
	f.seedMethod(t, acc, "m2", "fp2", false)

	err := f.svc.DetachPaymentMethod(context.Background(), "user-1", "m1")
	assert.ErrorIs(t, err, ErrConflict)

	f.gw.EXPECT().DetachPaymentMethod(gomock.Any(), "pm_m2").Return(nil)
	require.NoError(t, f.svc.DetachPaymentMethod(context.Background(), "user-1", "m2"))
	_, err = f.store.GetPaymentMethod(context.Background(), acc.ID, "m2")
	assert.ErrorIs(t, err, billingdb.ErrNotFound)

	assert.ErrorIs(t, f.svc.DetachPaymentMethod(context.Background(), "user-1", "m2"), ErrNotFound)
}

func TestDetachPaymentMethod_GatewayFailureKeepsRecord(t *testing.T) {
	f := newFixture(t)
	acc := f.seedAccount(t, "user-1", billingdb.StatusIncomplete, "", 0)
	f.seedMethod(t, acc, "m1", "fp1", false)
	f.gw.EXPECT().DetachPaymentMethod(gomock.Any(), "pm_m1").Return(&gw.Error{Op: "detach payment method", HTTPStatus: http.StatusInternalServerError, Err: errors.New("boom")})

	assert.ErrorIs(t, f.svc.DetachPaymentMethod(context.Background(), "user-1", "m1"), ErrGateway)
	_, err := f.store.GetPaymentMethod(context.Background(), acc.ID, "m1")
	assert.NoError(t, err)
}

func TestMarkDefault_ThenDetachPreviousDefault(t *testing.T) {
	f := newFixture(t)
	acc := f.seedAccount(t, "user-1", billingdb.StatusActive, "sub_1", testNow.Unix())
	f.seedMethod(t, acc, "m1", "fp1", true)
	f.seedMethod(t, acc, "m2", "fp2", false)

	f.gw.EXPECT().SetDefaultPaymentMethod(gomock.Any(), "cus_user-1", "pm_m2").Return(nil)
	pm, err := f.svc.MarkDefault(context.Background(), "user-1", "m2")
	require.NoError(t, err)
	assert.True(t, pm.IsDefault)
	assert.Equal(t, []string{"m2"}, defaultMethodIDs(t, f, acc.ID))
	assert.Equal(t, "m2", f.account(t, "user-1").ActivePaymentMethodID)

	f.gw.EXPECT().DetachPaymentMethod(gomock.Any(), "pm_m1").Return(nil)
	assert.NoError(t, f.svc.DetachPaymentMethod(context.Background(), "user-1", "m1"))
}

func TestUpdatePaymentMethod(t *testing.T) {
	f := newFixture(t)
	acc := f.seedAccount(t, "user-1", billingdb.StatusIncomplete, "", 0)
	f.seedMethod(t, acc, "m1", "fp1", false)

	f.gw.EXPECT().GetCardToken(gomock.Any(), "tok_m1").Return(gw.CardToken{ID: "tok_m1"}, nil)
	f.gw.EXPECT().UpdatePaymentMethodExpiry(gomock.Any(), "pm_m1", int64(1), int64(2031)).Return(gw.PaymentMethod{ID: "pm_m1"}, nil)

	pm, err := f.svc.UpdatePaymentMethod(context.Background(), "user-1", "m1", UpdatePaymentMethodInput{ExpMonth: 1, ExpYear: 2031})
	require.NoError(t, err)
	assert.Equal(t, int64(1), pm.ExpMonth)
	assert.Equal(t, int64(2031), pm.ExpYear)
}

func TestUpdatePaymentMethod_InvalidToken(t *testing.T) {
	f := newFixture(t)
	acc := f.seedAccount(t, "user-1", billingdb.StatusIncomplete, "", 0)
	f.seedMethod(t, acc, "m1", "fp1", false)

	f.gw.EXPECT().GetCardToken(gomock.Any(), "tok_m1").
		Return(gw.CardToken{}, &gw.Error{Op: "retrieve card token", Code: "resource_missing", HTTPStatus: http.StatusNotFound, Err: errors.New("404")})

	_, err := f.svc.UpdatePaymentMethod(context.Background(), "user-1", "m1", UpdatePaymentMethodInput{ExpMonth: 1, ExpYear: 2031})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "invalid token")
}

func TestListPaymentMethods(t *testing.T) {
	f := newFixture(t)
	acc := f.seedAccount(t, "user-1", billingdb.StatusActive, "sub_1", testNow.Unix())
	f.seedMethod(t, acc, "m1", "fp1", true)
	f.seedMethod(t, acc, "m2", "fp2", false)
	f.gw.EXPECT().GetPrice(gomock.Any(), testPriceID).Return(testPrice, nil)

	list, err := f.svc.ListPaymentMethods(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Len(t, list.Methods, 2)
	assert.Equal(t, "sub_1", list.SubscriptionID)
	assert.Equal(t, "active", list.Status)
	assert.Equal(t, int64(1500), list.Plan.Amount)
	assert.Equal(t, "Pro", list.Plan.ProductName)
}
