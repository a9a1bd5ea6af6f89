package grpcserver

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/genproto/googleapis/api/httpbody"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// MaxBodyBytes caps request bodies, webhook payloads included.
const MaxBodyBytes = 1 << 20

// HeaderMatcher forwards the webhook signature header into gRPC metadata.
func HeaderMatcher(key string) (string, bool) {
	if strings.EqualFold(key, "Stripe-Signature") {
		return signatureMetadataKey, true
	}
	return runtime.DefaultHeaderMatcher(key)
}

// RegisterGateway binds every route to its HTTP method and path on mux.
// The mux should be built with runtime.WithIncomingHeaderMatcher(HeaderMatcher).
func RegisterGateway(_ context.Context, mux *runtime.ServeMux, srv *Server) error {
	for _, route := range Routes {
		route := route
		if err := mux.HandlePath(route.HTTPMethod, route.Path, srv.httpHandler(mux, route)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) httpHandler(mux *runtime.ServeMux, route Route) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		// The error handler reads response metadata from the context.
		ctx = runtime.NewServerMetadataContext(ctx, runtime.ServerMetadata{})
		_, outbound := runtime.MarshalerForRequest(mux, r)

		ctx, err := runtime.AnnotateIncomingContext(ctx, mux, r, FullMethod(route.RPC), runtime.WithHTTPPathPattern(route.Path))
		if err != nil {
			runtime.HTTPError(ctx, mux, outbound, w, r, err)
			return
		}
		in, err := readRequest(w, r, route, pathParams)
		if err != nil {
			runtime.HTTPError(ctx, mux, outbound, w, r, err)
			return
		}
		out, err := s.invoke(ctx, route, in)
		if err != nil {
			runtime.HTTPError(ctx, mux, outbound, w, r, err)
			return
		}
		body, err := outbound.Marshal(out)
		if err != nil {
			runtime.HTTPError(ctx, mux, outbound, w, r, status.Error(codes.Internal, "internal error"))
			return
		}
		w.Header().Set("Content-Type", outbound.ContentType(out))
		w.WriteHeader(route.Status)
		_, _ = w.Write(body)
	}
}

// readRequest builds the RPC input: raw bytes for signed payloads, a Struct of
// the JSON body merged with path parameters otherwise.
func readRequest(w http.ResponseWriter, r *http.Request, route Route, pathParams map[string]string) (proto.Message, error) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, status.Error(codes.InvalidArgument, "request body too large")
		}
		return nil, status.Error(codes.InvalidArgument, "unreadable request body")
	}
	if route.Auth == AuthSignature {
		return &httpbody.HttpBody{ContentType: r.Header.Get("Content-Type"), Data: raw}, nil
	}

	in := &structpb.Struct{Fields: map[string]*structpb.Value{}}
	if len(strings.TrimSpace(string(raw))) > 0 {
		if err := protojson.Unmarshal(raw, in); err != nil {
			return nil, status.Error(codes.InvalidArgument, "malformed request body")
		}
	}
	for _, name := range route.PathParams {
		in.Fields[name] = structpb.NewStringValue(pathParams[name])
	}
	return in, nil
}
