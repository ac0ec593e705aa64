package grpc

import (
	"context"
	"runtime/debug"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/credcore/internal/common"
	"github.com/dmitrijs2005/credcore/internal/rpc"
)

type ctxKey string

const accessTokenKey ctxKey = "accessToken"

// protectedMethods need a valid access token in metadata.
var protectedMethods = map[string]bool{
	rpc.MethodWhoAmI:        true,
	rpc.MethodSuperUserPing: true,
}

func accessTokenFromContext(ctx context.Context) string {
	s, _ := ctx.Value(accessTokenKey).(string)
	return s
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if !protectedMethods[info.FullMethod] {
		return handler(ctx, req)
	}

	var accessToken string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(common.AccessTokenHeaderName); len(values) > 0 {
			accessToken = values[0]
		}
	}
	if accessToken == "" {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	if _, err := s.svc.Authenticate(accessToken); err != nil {
		return nil, status.Error(codes.Unauthenticated, "invalid credentials")
	}

	return handler(context.WithValue(ctx, accessTokenKey, accessToken), req)
}

func (s *GRPCServer) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)

	code := status.Code(err)
	args := []any{"method", info.FullMethod, "code", code.String(), "duration_ms", time.Since(start).Milliseconds()}
	switch code {
	case codes.Internal, codes.Unknown:
		s.logger.Error(ctx, "grpc call", append(args, "error", err)...)
	case codes.Unavailable:
		s.logger.Warn(ctx, "grpc call", args...)
	default:
		s.logger.Debug(ctx, "grpc call", args...)
	}
	return resp, err
}

func (s *GRPCServer) recoveryInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error(ctx, "panic recovered", "method", info.FullMethod, "panic", p, "stack", string(debug.Stack()))
			resp, err = nil, status.Error(codes.Internal, "internal error")
		}
	}()
	return handler(ctx, req)
}
