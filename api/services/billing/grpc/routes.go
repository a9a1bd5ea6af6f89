package grpcserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/tbeaudouin05/subscription-reconciler/api/auth"
	app "github.com/tbeaudouin05/subscription-reconciler/api/services/billing/app"
)

// AuthLevel is what a route requires from the caller.
type AuthLevel int

const (
	// AuthSignature routes authenticate the payload itself (gateway webhooks).
	AuthSignature AuthLevel = iota
	AuthUser
	AuthAdmin
)

// Call is one decoded request, independent of the transport it arrived on.
type Call struct {
	Principal auth.Principal
	Params    map[string]string
	// Body is the JSON request body, or the raw payload for AuthSignature routes.
	Body      []byte
	Signature string
}

// Route maps one request variant to its handler and response shape.
type Route struct {
	RPC        string
	HTTPMethod string
	Path       string
	// PathParams are the names bound by Path.
	PathParams []string
	Auth       AuthLevel
	// Status is the HTTP status of a successful response.
	Status int
	Handle func(ctx context.Context, svc app.Service, c Call) (any, error)
}

type empty struct{}

type startSubscriptionRequest struct {
	PaymentMethodID string `json:"paymentMethodId"`
}

type cancellationRequest struct {
	Cancel *bool `json:"cancel"`
}

// Routes is the billing API surface.
var Routes = []Route{
	{
		RPC: "ReceiveWebhook", HTTPMethod: http.MethodPost, Path: "/api/stripe-webhooks",
		Auth: AuthSignature, Status: http.StatusOK,
		Handle: func(ctx context.Context, svc app.Service, c Call) (any, error) {
			res, err := svc.HandleWebhook(ctx, c.Body, c.Signature)
			if err != nil && !errors.Is(err, app.ErrBadEvent) {
				// Anything but a bad event is retried by the gateway; keep details in the logs.
				return nil, status.Error(codes.Internal, "event processing failed")
			}
			return res, err
		},
	},
	{
		RPC: "CheckAccess", HTTPMethod: http.MethodPost, Path: "/api/check-access",
		Auth: AuthUser, Status: http.StatusOK,
		Handle: func(ctx context.Context, svc app.Service, c Call) (any, error) {
			return svc.CheckAccess(ctx, c.Principal)
		},
	},
	{
		RPC: "GetConfig", HTTPMethod: http.MethodGet, Path: "/api/billing/config",
		Auth: AuthUser, Status: http.StatusOK,
		Handle: func(_ context.Context, svc app.Service, _ Call) (any, error) {
			return svc.ClientConfig()
		},
	},
	{
		RPC: "GetAccount", HTTPMethod: http.MethodGet, Path: "/api/billing/account",
		Auth: AuthUser, Status: http.StatusOK,
		Handle: func(ctx context.Context, svc app.Service, c Call) (any, error) {
			return svc.GetAccount(ctx, c.Principal.UserID)
		},
	},
	{
		RPC: "AttachPaymentMethod", HTTPMethod: http.MethodPost, Path: "/api/payment-methods",
		Auth: AuthUser, Status: http.StatusCreated,
		Handle: func(ctx context.Context, svc app.Service, c Call) (any, error) {
			var in app.AttachPaymentMethodInput
			if err := decodeBody(c.Body, &in); err != nil {
				return nil, err
			}
			return svc.AttachPaymentMethod(ctx, c.Principal.UserID, in)
		},
	},
	{
		RPC: "ListPaymentMethods", HTTPMethod: http.MethodGet, Path: "/api/payment-methods",
		Auth: AuthUser, Status: http.StatusOK,
		Handle: func(ctx context.Context, svc app.Service, c Call) (any, error) {
			return svc.ListPaymentMethods(ctx, c.Principal.UserID)
		},
	},
	{
		RPC: "UpdatePaymentMethod", HTTPMethod: http.MethodPut, Path: "/api/payment-methods/{id}", PathParams: []string{"id"},
		Auth: AuthUser, Status: http.StatusOK,
		Handle: func(ctx context.Context, svc app.Service, c Call) (any, error) {
			var in app.UpdatePaymentMethodInput
			if err := decodeBody(c.Body, &in); err != nil {
				return nil, err
			}
			return svc.UpdatePaymentMethod(ctx, c.Principal.UserID, c.Params["id"], in)
		},
	},
	{
		RPC: "DetachPaymentMethod", HTTPMethod: http.MethodDelete, Path: "/api/payment-methods/{id}", PathParams: []string{"id"},
		Auth: AuthUser, Status: http.StatusOK,
		Handle: func(ctx context.Context, svc app.Service, c Call) (any, error) {
			return empty{}, svc.DetachPaymentMethod(ctx, c.Principal.UserID, c.Params["id"])
		},
	},
	{
		RPC: "SetDefaultPaymentMethod", HTTPMethod: http.MethodPost, Path: "/api/payment-methods/{id}/default", PathParams: []string{"id"},
		Auth: AuthUser, Status: http.StatusOK,
		Handle: func(ctx context.Context, svc app.Service, c Call) (any, error) {
			return svc.MarkDefault(ctx, c.Principal.UserID, c.Params["id"])
		},
	},
	{
		RPC: "StartSubscription", HTTPMethod: http.MethodPost, Path: "/api/subscription",
		Auth: AuthUser, Status: http.StatusOK,
		Handle: func(ctx context.Context, svc app.Service, c Call) (any, error) {
			var in startSubscriptionRequest
			if err := decodeBody(c.Body, &in); err != nil {
				return nil, err
			}
			if in.PaymentMethodID == "" {
				return nil, fmt.Errorf("%w: paymentMethodId is required", app.ErrValidation)
			}
			return svc.StartSubscription(ctx, c.Principal.UserID, in.PaymentMethodID)
		},
	},
	{
		RPC: "UpdateCancellation", HTTPMethod: http.MethodPut, Path: "/api/subscription/cancel",
		Auth: AuthUser, Status: http.StatusOK,
		Handle: func(ctx context.Context, svc app.Service, c Call) (any, error) {
			var in cancellationRequest
			if err := decodeBody(c.Body, &in); err != nil {
				return nil, err
			}
			if in.Cancel == nil {
				return nil, fmt.Errorf("%w: cancel is required", app.ErrValidation)
			}
			return svc.RequestCancellation(ctx, c.Principal.UserID, *in.Cancel)
		},
	},
	{
		RPC: "ProvisionAccount", HTTPMethod: http.MethodPost, Path: "/internal/users",
		Auth: AuthAdmin, Status: http.StatusCreated,
		Handle: func(ctx context.Context, svc app.Service, c Call) (any, error) {
			var in app.User
			if err := decodeBody(c.Body, &in); err != nil {
				return nil, err
			}
			return svc.ProvisionAccount(ctx, in)
		},
	},
	{
		RPC: "TeardownAccount", HTTPMethod: http.MethodDelete, Path: "/internal/users/{userId}", PathParams: []string{"userId"},
		Auth: AuthAdmin, Status: http.StatusOK,
		Handle: func(ctx context.Context, svc app.Service, c Call) (any, error) {
			return empty{}, svc.TeardownAccount(ctx, c.Params["userId"])
		},
	},
}

func decodeBody(body []byte, dst any) error {
	if len(body) == 0 {
		return fmt.Errorf("%w: request body is required", app.ErrValidation)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: malformed request body", app.ErrValidation)
	}
	return nil
}

// authenticate resolves the caller from an Authorization header value.
func authenticate(tokens auth.Tokens, level AuthLevel, authorization string) (auth.Principal, error) {
	if level == AuthSignature {
		return auth.Principal{}, nil
	}
	raw, ok := auth.BearerToken(authorization)
	if !ok {
		return auth.Principal{}, fmt.Errorf("%w: bearer token required", app.ErrUnauthenticated)
	}
	p, err := tokens.Parse(raw)
	if err != nil {
		return auth.Principal{}, fmt.Errorf("%w: invalid bearer token", app.ErrUnauthenticated)
	}
	if level == AuthAdmin && !p.Admin {
		return auth.Principal{}, &app.AccessDeniedError{Reason: "administrator only"}
	}
	return p, nil
}
