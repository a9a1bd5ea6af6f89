package stripegw

import (
	stripe "github.com/stripe/stripe-go/v74"

	gw "github.com/tbeaudouin05/subscription-reconciler/api/services/billing/gateway"
)

func toCustomer(c *stripe.Customer) gw.Customer {
	if c == nil {
		return gw.Customer{}
	}
	return gw.Customer{ID: c.ID, Email: c.Email, Deleted: c.Deleted}
}

func toCardToken(t *stripe.Token) gw.CardToken {
	if t == nil {
		return gw.CardToken{}
	}
	out := gw.CardToken{ID: t.ID, Used: t.Used}
	if t.Card != nil {
		out.Fingerprint = t.Card.Fingerprint
		out.Brand = string(t.Card.Brand)
		out.Last4 = t.Card.Last4
		out.ExpMonth = int64(t.Card.ExpMonth)
		out.ExpYear = int64(t.Card.ExpYear)
	}
	return out
}

func toPaymentMethod(pm *stripe.PaymentMethod) gw.PaymentMethod {
	if pm == nil {
		return gw.PaymentMethod{}
	}
	out := gw.PaymentMethod{ID: pm.ID}
	if pm.Customer != nil {
		out.CustomerID = pm.Customer.ID
	}
	if pm.Card != nil {
		out.Fingerprint = pm.Card.Fingerprint
		out.Brand = string(pm.Card.Brand)
		out.Last4 = pm.Card.Last4
		out.ExpMonth = int64(pm.Card.ExpMonth)
		out.ExpYear = int64(pm.Card.ExpYear)
	}
	return out
}

func toPaymentIntent(pi *stripe.PaymentIntent) gw.PaymentIntent {
	if pi == nil {
		return gw.PaymentIntent{}
	}
	out := gw.PaymentIntent{ID: pi.ID, Status: string(pi.Status)}
	if pi.Customer != nil {
		out.CustomerID = pi.Customer.ID
	}
	return out
}

func toSubscription(s *stripe.Subscription) gw.Subscription {
	if s == nil {
		return gw.Subscription{}
	}
	out := gw.Subscription{
		ID:                s.ID,
		Status:            string(s.Status),
		CurrentPeriodEnd:  s.CurrentPeriodEnd,
		CancelAtPeriodEnd: s.CancelAtPeriodEnd,
	}
	if s.Customer != nil {
		out.CustomerID = s.Customer.ID
	}
	return out
}
