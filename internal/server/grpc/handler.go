package grpc

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/credcore/internal/common"
	"github.com/dmitrijs2005/credcore/internal/rpc"
	"github.com/dmitrijs2005/credcore/internal/server/services"
)

// toStatus maps core errors onto gRPC codes with constant messages for the
// auth failures.
func toStatus(err error) error {
	switch {
	case errors.Is(err, common.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrorUnauthorized), errors.Is(err, common.ErrInvalidToken):
		return status.Error(codes.Unauthenticated, "invalid credentials")
	case errors.Is(err, common.ErrForbidden):
		return status.Error(codes.PermissionDenied, "insufficient permissions")
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, "user not found")
	case errors.Is(err, common.ErrConflict):
		return status.Error(codes.AlreadyExists, "username or email already registered")
	case errors.Is(err, common.ErrTooManyRequests):
		return status.Error(codes.ResourceExhausted, "too many requests")
	case errors.Is(err, common.ErrStoreUnavailable):
		return status.Error(codes.Unavailable, "service temporarily unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "canceled")
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

func toTokenPair(p *services.TokenPair) *rpc.TokenPair {
	return &rpc.TokenPair{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    p.TokenType,
		ExpiresIn:    int64(p.ExpiresIn / time.Second),
	}
}

func (s *GRPCServer) Register(ctx context.Context, req *rpc.RegisterRequest) (*rpc.RegisterResponse, error) {
	res, err := s.svc.Register(ctx, services.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		return nil, toStatus(err)
	}

	out := &rpc.RegisterResponse{
		UserID:   res.User.ID,
		Username: res.User.Username,
		Pending:  res.Pending,
		Message:  res.Message,
	}
	if res.Tokens != nil {
		out.Tokens = toTokenPair(res.Tokens)
	}
	return out, nil
}

func (s *GRPCServer) RequestOTP(ctx context.Context, req *rpc.RequestOTPRequest) (*rpc.MessageResponse, error) {
	msg, err := s.svc.RequestOTP(ctx, req.Email)
	if err != nil {
		return nil, toStatus(err)
	}
	return &rpc.MessageResponse{Message: msg}, nil
}

func (s *GRPCServer) LoginOTP(ctx context.Context, req *rpc.LoginOTPRequest) (*rpc.TokenPair, error) {
	pair, err := s.svc.LoginOTP(ctx, req.Email, req.Code)
	if err != nil {
		return nil, toStatus(err)
	}
	return toTokenPair(pair), nil
}

func (s *GRPCServer) LoginPassword(ctx context.Context, req *rpc.LoginPasswordRequest) (*rpc.TokenPair, error) {
	pair, err := s.svc.LoginPassword(ctx, req.Username, req.Password)
	if err != nil {
		return nil, toStatus(err)
	}
	return toTokenPair(pair), nil
}

func (s *GRPCServer) RefreshToken(ctx context.Context, req *rpc.RefreshTokenRequest) (*rpc.TokenPair, error) {
	pair, err := s.svc.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return nil, toStatus(err)
	}
	return toTokenPair(pair), nil
}

func (s *GRPCServer) Logout(ctx context.Context, req *rpc.RefreshTokenRequest) (*rpc.Empty, error) {
	if err := s.svc.Logout(ctx, req.RefreshToken); err != nil {
		return nil, toStatus(err)
	}
	return &rpc.Empty{}, nil
}

func (s *GRPCServer) WhoAmI(ctx context.Context, _ *rpc.Empty) (*rpc.WhoAmIResponse, error) {
	u, err := s.svc.CurrentUser(ctx, accessTokenFromContext(ctx))
	if err != nil {
		return nil, toStatus(err)
	}
	return &rpc.WhoAmIResponse{
		UserID:        u.ID,
		Username:      u.Username,
		Email:         u.Email,
		Phone:         u.Phone,
		Roles:         u.Roles,
		EmailVerified: u.EmailVerified,
	}, nil
}

func (s *GRPCServer) SuperUserPing(ctx context.Context, _ *rpc.Empty) (*rpc.SuperUserPingResponse, error) {
	id, err := s.svc.RequireRole(accessTokenFromContext(ctx), common.RoleSuperUser)
	if err != nil {
		return nil, toStatus(err)
	}
	return &rpc.SuperUserPingResponse{Status: "OK", Username: id.Username}, nil
}
