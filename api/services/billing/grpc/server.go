package grpcserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genproto/googleapis/api/httpbody"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/tbeaudouin05/subscription-reconciler/api/auth"
	app "github.com/tbeaudouin05/subscription-reconciler/api/services/billing/app"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "billing.v1.BillingService"

const signatureMetadataKey = "stripe-signature"

// BillingServer is the handler type registered with grpc.Server.
type BillingServer interface {
	billingServer()
}

// Server exposes the billing routes over gRPC and, through RegisterGateway, HTTP.
// Webhook calls take a google.api.HttpBody; every other call takes and returns a google.protobuf.Struct.
type Server struct {
	svc    app.Service
	tokens auth.Tokens
}

func New(svc app.Service, tokens auth.Tokens) *Server {
	return &Server{svc: svc, tokens: tokens}
}

func (*Server) billingServer() {}

// FullMethod returns the gRPC method path of an RPC name.
func FullMethod(rpc string) string {
	return "/" + ServiceName + "/" + rpc
}

// Register adds the billing service to gs.
func Register(gs *grpc.Server, srv *Server) {
	desc := grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*BillingServer)(nil),
		Metadata:    "billing/v1/billing.proto",
	}
	for _, route := range Routes {
		desc.Methods = append(desc.Methods, grpc.MethodDesc{
			MethodName: route.RPC,
			Handler:    srv.methodHandler(route),
		})
	}
	gs.RegisterService(&desc, srv)
}

func (s *Server) methodHandler(route Route) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		var in proto.Message = &structpb.Struct{}
		if route.Auth == AuthSignature {
			in = &httpbody.HttpBody{}
		}
		if err := dec(in); err != nil {
			return nil, err
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return s.invoke(ctx, route, req.(proto.Message))
		}
		if interceptor == nil {
			return handler(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(route.RPC)}
		return interceptor(ctx, in, info, handler)
	}
}

func (s *Server) invoke(ctx context.Context, route Route, in proto.Message) (*structpb.Struct, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	call := Call{Params: map[string]string{}, Signature: firstValue(md, signatureMetadataKey)}

	switch req := in.(type) {
	case *httpbody.HttpBody:
		call.Body = req.GetData()
	case *structpb.Struct:
		body, err := protojson.Marshal(req)
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, "malformed request")
		}
		call.Body = body
		for _, name := range route.PathParams {
			call.Params[name] = req.GetFields()[name].GetStringValue()
		}
	}

	p, err := authenticate(s.tokens, route.Auth, firstValue(md, "authorization"))
	if err != nil {
		return nil, ToStatus(err).Err()
	}
	call.Principal = p

	out, err := route.Handle(ctx, s.svc, call)
	if err != nil {
		st := ToStatus(err)
		if st.Code() == codes.Internal {
			slog.Error("billing call failed", "rpc", route.RPC, "user_id", p.UserID, "err", err)
		}
		return nil, st.Err()
	}
	return toStruct(out)
}

// toStruct converts a JSON-tagged response value into a Struct.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	fields := map[string]any{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	st, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	return st, nil
}

func firstValue(md metadata.MD, key string) string {
	if vals := md.Get(strings.ToLower(key)); len(vals) > 0 {
		return vals[0]
	}
	return ""
}
