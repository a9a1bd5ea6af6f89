package router

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"

	bootstrap "github.com/tbeaudouin05/subscription-reconciler/api/bootstrap"
	"github.com/tbeaudouin05/subscription-reconciler/api/auth"
	grpcserver "github.com/tbeaudouin05/subscription-reconciler/api/services/billing/grpc"
)

// NewRouter returns the central HTTP router for the API using grpc-gateway.
// Every billing route is bound to the same handler the gRPC server runs.
func NewRouter() http.Handler {
	// Initialize app dependencies (non-fatal if it fails here; RPCs re-check).
	if err := bootstrap.Ensure(); err != nil {
		slog.Error("bootstrap ensure failed", "err", err)
	}

	mux := runtime.NewServeMux(runtime.WithIncomingHeaderMatcher(grpcserver.HeaderMatcher))
	srv := grpcserver.New(bootstrap.GetBillingService(), bootstrap.GetTokens())
	if err := grpcserver.RegisterGateway(context.Background(), mux, srv); err != nil {
		slog.Error("failed to register grpc-gateway", "err", err)
	}
	if err := mux.HandlePath(http.MethodGet, "/healthz", func(w http.ResponseWriter, _ *http.Request, _ map[string]string) {
		w.WriteHeader(http.StatusNoContent)
	}); err != nil {
		slog.Error("failed to register health check", "err", err)
	}
	return mux
}

// Protect wraps a premium HTTP handler with the access gate. Denied callers get
// the gate's error status; allowed callers reach next with their principal in
// the request context.
func Protect(next http.Handler) http.Handler {
	mux := runtime.NewServeMux()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := grpcserver.Gate(r.Context(), bootstrap.GetBillingService(), bootstrap.GetTokens(), r.Header.Get("Authorization"))
		if err != nil {
			_, outbound := runtime.MarshalerForRequest(mux, r)
			runtime.HTTPError(r.Context(), mux, outbound, w, r, grpcserver.ToStatus(err).Err())
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
	})
}
