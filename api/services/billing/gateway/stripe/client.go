package stripegw

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	stripe "github.com/stripe/stripe-go/v74"
	stripeclient "github.com/stripe/stripe-go/v74/client"
	"github.com/stripe/stripe-go/v74/webhook"

	gw "github.com/tbeaudouin05/subscription-reconciler/api/services/billing/gateway"
)

// Options configures one scoped Stripe client. Nothing is stored in SDK globals.
type Options struct {
	SecretKey     string
	WebhookSecret string
	Timeout       time.Duration
	// MaxRetries bounds the SDK's network retries; retried POSTs carry an idempotency key.
	MaxRetries int64
}

// client is the Stripe SDK-backed implementation of the gateway.
type client struct {
	api           *stripeclient.API
	webhookSecret string
}

// New returns a Gateway backed by the official Stripe SDK.
func New(opts Options) gw.Gateway {
	api := &stripeclient.API{}
	api.Init(opts.SecretKey, &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendConfig(opts)),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendConfig(opts)),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendConfig(opts)),
	})
	return client{api: api, webhookSecret: opts.WebhookSecret}
}

// backendConfig builds a fresh config per backend: GetBackendWithConfig fills in the URL in place.
func backendConfig(opts Options) *stripe.BackendConfig {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: timeout},
		MaxNetworkRetries: stripe.Int64(opts.MaxRetries),
	}
}

func withContext(ctx context.Context) stripe.Params {
	return stripe.Params{Context: ctx}
}

// wrap converts SDK errors into gateway errors carrying Stripe's user-facing message.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	gwErr := &gw.Error{Op: op, Err: err, UserMessage: "The payment provider could not process the request."}
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		gwErr.Code = string(stripeErr.Code)
		gwErr.HTTPStatus = stripeErr.HTTPStatusCode
		if stripeErr.Msg != "" {
			gwErr.UserMessage = stripeErr.Msg
		}
	}
	return gwErr
}

func (c client) CreateCustomer(ctx context.Context, in gw.CustomerInput) (gw.Customer, error) {
	params := &stripe.CustomerParams{Params: withContext(ctx)}
	if in.Name != "" {
		params.Name = stripe.String(in.Name)
	}
	if in.Email != "" {
		params.Email = stripe.String(in.Email)
	}
	params.AddMetadata("user_id", in.UserID)
	if in.IdempotencyKey != "" {
		params.SetIdempotencyKey(in.IdempotencyKey)
	}
	cust, err := c.api.Customers.New(params)
	if err != nil {
		return gw.Customer{}, wrap("create customer", err)
	}
	return toCustomer(cust), nil
}

func (c client) GetCustomer(ctx context.Context, id string) (gw.Customer, error) {
	cust, err := c.api.Customers.Get(id, &stripe.CustomerParams{Params: withContext(ctx)})
	if err != nil {
		return gw.Customer{}, wrap("retrieve customer", err)
	}
	return toCustomer(cust), nil
}

func (c client) DeleteCustomer(ctx context.Context, id string) error {
	_, err := c.api.Customers.Del(id, &stripe.CustomerParams{Params: withContext(ctx)})
	return wrap("delete customer", err)
}

func (c client) SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	_, err := c.api.Customers.Update(customerID, &stripe.CustomerParams{
		Params: withContext(ctx),
		InvoiceSettings: &stripe.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripe.String(paymentMethodID),
		},
	})
	return wrap("set default payment method", err)
}

func (c client) CreateCardToken(ctx context.Context, card gw.Card) (gw.CardToken, error) {
	tok, err := c.api.Tokens.New(&stripe.TokenParams{
		Params: withContext(ctx),
		Card: &stripe.CardParams{
			Number:   stripe.String(card.Number),
			ExpMonth: stripe.String(strconv.FormatInt(card.ExpMonth, 10)),
			ExpYear:  stripe.String(strconv.FormatInt(card.ExpYear, 10)),
			CVC:      stripe.String(card.CVC),
		},
	})
	if err != nil {
		return gw.CardToken{}, wrap("create card token", err)
	}
	return toCardToken(tok), nil
}

func (c client) GetCardToken(ctx context.Context, id string) (gw.CardToken, error) {
	tok, err := c.api.Tokens.Get(id, &stripe.TokenParams{Params: withContext(ctx)})
	if err != nil {
		return gw.CardToken{}, wrap("retrieve card token", err)
	}
	return toCardToken(tok), nil
}

func (c client) CreatePaymentMethod(ctx context.Context, tokenID string, billing gw.BillingDetails) (gw.PaymentMethod, error) {
	params := &stripe.PaymentMethodParams{
		Params: withContext(ctx),
		Type:   stripe.String(string(stripe.PaymentMethodTypeCard)),
		Card:   &stripe.PaymentMethodCardParams{Token: stripe.String(tokenID)},
	}
	if billing.Email != "" || billing.Name != "" {
		params.BillingDetails = &stripe.PaymentMethodBillingDetailsParams{}
		if billing.Email != "" {
			params.BillingDetails.Email = stripe.String(billing.Email)
		}
		if billing.Name != "" {
			params.BillingDetails.Name = stripe.String(billing.Name)
		}
	}
	pm, err := c.api.PaymentMethods.New(params)
	if err != nil {
		return gw.PaymentMethod{}, wrap("create payment method", err)
	}
	return toPaymentMethod(pm), nil
}

func (c client) GetPaymentMethod(ctx context.Context, id string) (gw.PaymentMethod, error) {
	pm, err := c.api.PaymentMethods.Get(id, &stripe.PaymentMethodParams{Params: withContext(ctx)})
	if err != nil {
		return gw.PaymentMethod{}, wrap("retrieve payment method", err)
	}
	return toPaymentMethod(pm), nil
}

func (c client) UpdatePaymentMethodExpiry(ctx context.Context, id string, expMonth, expYear int64) (gw.PaymentMethod, error) {
	pm, err := c.api.PaymentMethods.Update(id, &stripe.PaymentMethodParams{
		Params: withContext(ctx),
		Card: &stripe.PaymentMethodCardParams{
			ExpMonth: stripe.Int64(expMonth),
			ExpYear:  stripe.Int64(expYear),
		},
	})
	if err != nil {
		return gw.PaymentMethod{}, wrap("modify payment method", err)
	}
	return toPaymentMethod(pm), nil
}

func (c client) AttachPaymentMethod(ctx context.Context, paymentMethodID, customerID string) error {
	_, err := c.api.PaymentMethods.Attach(paymentMethodID, &stripe.PaymentMethodAttachParams{
		Params:   withContext(ctx),
		Customer: stripe.String(customerID),
	})
	return wrap("attach payment method", err)
}

func (c client) DetachPaymentMethod(ctx context.Context, paymentMethodID string) error {
	_, err := c.api.PaymentMethods.Detach(paymentMethodID, &stripe.PaymentMethodDetachParams{Params: withContext(ctx)})
	return wrap("detach payment method", err)
}

func (c client) GetPrice(ctx context.Context, id string) (gw.Price, error) {
	params := &stripe.PriceParams{Params: withContext(ctx)}
	params.AddExpand("product")
	p, err := c.api.Prices.Get(id, params)
	if err != nil {
		return gw.Price{}, wrap("retrieve price", err)
	}
	out := gw.Price{ID: p.ID, Currency: string(p.Currency), UnitAmount: p.UnitAmount}
	if p.Product != nil {
		out.ProductID = p.Product.ID
		out.ProductName = p.Product.Name
	}
	if p.Recurring != nil {
		out.Interval = string(p.Recurring.Interval)
		out.TrialPeriodDays = p.Recurring.TrialPeriodDays
	}
	return out, nil
}

func (c client) CreatePaymentIntent(ctx context.Context, in gw.PaymentIntentInput) (gw.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Params:             withContext(ctx),
		Amount:             stripe.Int64(in.Amount),
		Currency:           stripe.String(in.Currency),
		Customer:           stripe.String(in.CustomerID),
		PaymentMethod:      stripe.String(in.PaymentMethodID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		CaptureMethod:      stripe.String(string(stripe.PaymentIntentCaptureMethodAutomatic)),
	}
	if in.ReceiptEmail != "" {
		params.ReceiptEmail = stripe.String(in.ReceiptEmail)
	}
	if in.IdempotencyKey != "" {
		params.SetIdempotencyKey(in.IdempotencyKey)
	}
	pi, err := c.api.PaymentIntents.New(params)
	if err != nil {
		return gw.PaymentIntent{}, wrap("create payment intent", err)
	}
	return toPaymentIntent(pi), nil
}

func (c client) GetPaymentIntent(ctx context.Context, id string) (gw.PaymentIntent, error) {
	pi, err := c.api.PaymentIntents.Get(id, &stripe.PaymentIntentParams{Params: withContext(ctx)})
	if err != nil {
		return gw.PaymentIntent{}, wrap("retrieve payment intent", err)
	}
	return toPaymentIntent(pi), nil
}

func (c client) ConfirmPaymentIntent(ctx context.Context, id, idempotencyKey string) (gw.PaymentIntent, error) {
	params := &stripe.PaymentIntentConfirmParams{Params: withContext(ctx)}
	if idempotencyKey != "" {
		params.SetIdempotencyKey(idempotencyKey)
	}
	pi, err := c.api.PaymentIntents.Confirm(id, params)
	if err != nil {
		return gw.PaymentIntent{}, wrap("confirm payment intent", err)
	}
	return toPaymentIntent(pi), nil
}

func (c client) CreateSubscription(ctx context.Context, in gw.SubscriptionInput) (gw.Subscription, error) {
	params := &stripe.SubscriptionParams{
		Params:   withContext(ctx),
		Customer: stripe.String(in.CustomerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(in.PriceID)},
		},
	}
	if in.DefaultPaymentMethod != "" {
		params.DefaultPaymentMethod = stripe.String(in.DefaultPaymentMethod)
	}
	if in.TrialEnd > 0 {
		params.TrialEnd = stripe.Int64(in.TrialEnd)
	} else {
		params.TrialEndNow = stripe.Bool(true)
	}
	if in.IdempotencyKey != "" {
		params.SetIdempotencyKey(in.IdempotencyKey)
	}
	s, err := c.api.Subscriptions.New(params)
	if err != nil {
		return gw.Subscription{}, wrap("create subscription", err)
	}
	return toSubscription(s), nil
}

func (c client) GetSubscription(ctx context.Context, id string) (gw.Subscription, error) {
	s, err := c.api.Subscriptions.Get(id, &stripe.SubscriptionParams{Params: withContext(ctx)})
	if err != nil {
		return gw.Subscription{}, wrap("retrieve subscription", err)
	}
	return toSubscription(s), nil
}

func (c client) SetCancelAtPeriodEnd(ctx context.Context, id string, cancel bool) (gw.Subscription, error) {
	s, err := c.api.Subscriptions.Update(id, &stripe.SubscriptionParams{
		Params:            withContext(ctx),
		CancelAtPeriodEnd: stripe.Bool(cancel),
	})
	if err != nil {
		return gw.Subscription{}, wrap("modify subscription", err)
	}
	return toSubscription(s), nil
}

func (c client) ConstructEvent(payload []byte, signature string) (gw.Event, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signature, c.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return gw.Event{}, fmt.Errorf("%w: %v", gw.ErrSignature, err)
	}
	out := gw.Event{ID: ev.ID, Type: string(ev.Type), Created: ev.Created}
	if ev.Data != nil {
		out.Object = ev.Data.Raw
	}
	return out, nil
}
