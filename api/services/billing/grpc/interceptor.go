package grpcserver

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/tbeaudouin05/subscription-reconciler/api/auth"
	app "github.com/tbeaudouin05/subscription-reconciler/api/services/billing/app"
)

// Gate authenticates the caller and asks the billing service whether they may
// use a premium feature. It returns the caller on success.
func Gate(ctx context.Context, svc app.Service, tokens auth.Tokens, authorization string) (auth.Principal, error) {
	p, err := authenticate(tokens, AuthUser, authorization)
	if err != nil {
		return auth.Principal{}, err
	}
	decision, err := svc.CheckAccess(ctx, p)
	if err != nil {
		return auth.Principal{}, err
	}
	if err := decision.Err(); err != nil {
		return auth.Principal{}, err
	}
	return p, nil
}

// AccessGateInterceptor guards every unary method registered on the server
// except the billing service's own, which handle authentication per route.
func AccessGateInterceptor(svc app.Service, tokens auth.Tokens) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if strings.HasPrefix(info.FullMethod, "/"+ServiceName+"/") {
			return handler(ctx, req)
		}
		md, _ := metadata.FromIncomingContext(ctx)
		p, err := Gate(ctx, svc, tokens, firstValue(md, "authorization"))
		if err != nil {
			return nil, ToStatus(err).Err()
		}
		return handler(auth.WithPrincipal(ctx, p), req)
	}
}
