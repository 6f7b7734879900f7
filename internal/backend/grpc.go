package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"taxclient/internal/apperr"
	"taxclient/internal/obs"
)

const (
	resourcesService = "taxclient.backend.v1.Resources"
	callMethod       = "/" + resourcesService + "/Call"

	defaultGRPCDialTimeout = 2 * time.Second
)

type GRPCConfig struct {
	Tokens  TokenSource
	Logger  *zap.Logger
	Metrics *obs.Metrics
	Tracer  trace.Tracer
}

// GRPC carries the same REST calls over a unary gRPC method. Requests and
// responses are structpb.Struct values: {method, path, body} in and
// {payload} out.
type GRPC struct {
	conn    *grpc.ClientConn
	tokens  TokenSource
	logger  *zap.Logger
	metrics *obs.Metrics
	tracer  trace.Tracer
}

func NewGRPC(conn *grpc.ClientConn, cfg GRPCConfig) *GRPC {
	return &GRPC{
		conn:    conn,
		tokens:  cfg.Tokens,
		logger:  obs.Logger(cfg.Logger).Named("backend.grpc"),
		metrics: cfg.Metrics,
		tracer:  obs.Tracer(cfg.Tracer),
	}
}

// DialGRPC connects to addr and waits until the connection is ready or
// dialTimeout passes.
func DialGRPC(ctx context.Context, addr string, dialTimeout time.Duration, cfg GRPCConfig, extra ...grpc.DialOption) (*GRPC, error) {
	if dialTimeout <= 0 {
		dialTimeout = defaultGRPCDialTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithBlock(),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                30 * time.Second,
			Timeout:             5 * time.Second,
			PermitWithoutStream: true,
		}),
	}, extra...)
	conn, err := grpc.DialContext(ctx, addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial backend %s: %w", addr, err)
	}
	return NewGRPC(conn, cfg), nil
}

func (g *GRPC) Do(ctx context.Context, method string, path string, body any) (data []byte, err error) {
	if g == nil || g.conn == nil {
		return nil, grpc.ErrClientConnClosing
	}
	ctx, span := obs.StartSpan(ctx, g.tracer, "backend.grpc",
		attribute.String("rpc.method", method),
		attribute.String("rpc.path", path),
	)
	defer func() { obs.EndSpan(span, err) }()

	req, err := encodeCall(method, path, body)
	if err != nil {
		return nil, err
	}
	if g.tokens != nil {
		token, err := g.tokens.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("session token: %w", err)
		}
		if token != "" {
			ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
		}
	}

	resp := &structpb.Struct{}
	if err := g.conn.Invoke(ctx, callMethod, req, resp); err != nil {
		g.metrics.RecordBackendCall("grpc", method, httpStatusFromCode(status.Code(err)))
		return nil, err
	}
	g.metrics.RecordBackendCall("grpc", method, http.StatusOK)

	payload, ok := resp.GetFields()["payload"]
	if !ok {
		return []byte("null"), nil
	}
	data, err = protojson.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return data, nil
}

func (g *GRPC) Close() error {
	if g == nil || g.conn == nil {
		return nil
	}
	return g.conn.Close()
}

func encodeCall(method string, path string, body any) (*structpb.Struct, error) {
	req := &structpb.Struct{Fields: map[string]*structpb.Value{
		"method": structpb.NewStringValue(method),
		"path":   structpb.NewStringValue(path),
	}}
	payload, err := encodeBody(body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		value := &structpb.Value{}
		if err := protojson.Unmarshal(payload, value); err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		req.Fields["body"] = value
	}
	return req, nil
}

// resourcesServer is the server side of the Resources service.
type resourcesServer interface {
	Call(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var resourcesServiceDesc = grpc.ServiceDesc{
	ServiceName: resourcesService,
	HandlerType: (*resourcesServer)(nil),
	Methods: []grpc.MethodDesc{{
		MethodName: "Call",
		Handler:    callHandler,
	}},
	Streams:  []grpc.StreamDesc{},
	Metadata: "taxclient/backend/v1/resources.proto",
}

func callHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := &structpb.Struct{}
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(resourcesServer).Call(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: callMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(resourcesServer).Call(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, req, info, handler)
}

// GRPCServer exposes a Backend as the Resources gRPC service.
type GRPCServer struct {
	backend Backend
}

// RegisterGRPC registers b on server.
func RegisterGRPC(server *grpc.Server, b Backend) {
	server.RegisterService(&resourcesServiceDesc, &GRPCServer{backend: b})
}

func (s *GRPCServer) Call(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	method := fields["method"].GetStringValue()
	path := fields["path"].GetStringValue()
	if method == "" || path == "" {
		return nil, status.Error(codes.InvalidArgument, "method and path are required")
	}
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get("authorization"); len(values) > 0 {
			ctx = WithToken(ctx, bearerToken(values[0]))
		}
	}

	var body any
	if value, ok := fields["body"]; ok {
		raw, err := protojson.Marshal(value)
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		body = raw
	}

	data, err := s.backend.Do(ctx, method, path, body)
	if err != nil {
		return nil, grpcError(err)
	}
	payload := &structpb.Value{}
	if err := protojson.Unmarshal(data, payload); err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode payload: %v", err))
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{"payload": payload}}, nil
}

func grpcError(err error) error {
	var statusErr *apperr.StatusError
	if !errors.As(err, &statusErr) {
		if _, ok := status.FromError(err); ok {
			return err
		}
		return status.Error(codes.Internal, err.Error())
	}
	return status.Error(codeFromHTTPStatus(statusErr.Status), statusErr.Message)
}

func codeFromHTTPStatus(code int) codes.Code {
	switch code {
	case http.StatusUnauthorized:
		return codes.Unauthenticated
	case http.StatusForbidden:
		return codes.PermissionDenied
	case http.StatusNotFound:
		return codes.NotFound
	case http.StatusBadRequest:
		return codes.InvalidArgument
	case http.StatusConflict:
		return codes.AlreadyExists
	default:
		return codes.Internal
	}
}

func httpStatusFromCode(code codes.Code) int {
	switch code {
	case codes.OK:
		return http.StatusOK
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.NotFound:
		return http.StatusNotFound
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.Unavailable:
		return 0
	default:
		return http.StatusInternalServerError
	}
}
