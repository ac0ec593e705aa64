package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/credcore/internal/common"
	"github.com/dmitrijs2005/credcore/internal/rpc"
)

// protectedMethods carry the access token; a rejected token is refreshed once
// and the call retried.
var protectedMethods = map[string]bool{
	rpc.MethodWhoAmI:        true,
	rpc.MethodSuperUserPing: true,
}

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      rpc.CredentialServiceClient

	mu           sync.Mutex
	accessToken  string
	refreshToken string
	onRotate     func(Tokens)
}

var _ Client = (*GRPCClient)(nil)

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) tokens() (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken, s.refreshToken
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if !protectedMethods[method] {
		return invoker(ctx, method, req, reply, cc, opts...)
	}

	access, refresh := s.tokens()
	err := invoker(withAccessToken(ctx, access), method, req, reply, cc, opts...)
	if err == nil || status.Code(err) != codes.Unauthenticated || refresh == "" {
		return err
	}

	if _, rerr := s.Refresh(ctx); rerr != nil {
		return err
	}

	access, _ = s.tokens()
	return invoker(withAccessToken(ctx, access), method, req, reply, cc, opts...)
}

func NewGRPCClient(endpointURL string) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL}
	if err := c.InitGRPCClient(); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient() error {
	conn, err := grpc.NewClient(s.endpointURL,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor))
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = rpc.NewCredentialServiceClient(conn)
	return nil
}

func (s *GRPCClient) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// SetTokens seeds the client from a stored session.
func (s *GRPCClient) SetTokens(access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken, s.refreshToken = access, refresh
}

// OnRotate registers fn to be called with every new token pair, including
// ones obtained by the interceptor's silent refresh.
func (s *GRPCClient) OnRotate(fn func(Tokens)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRotate = fn
}

func (s *GRPCClient) adopt(p *rpc.TokenPair) *Tokens {
	t := &Tokens{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		ExpiresIn:    time.Duration(p.ExpiresIn) * time.Second,
	}

	s.mu.Lock()
	s.accessToken, s.refreshToken = t.AccessToken, t.RefreshToken
	fn := s.onRotate
	s.mu.Unlock()

	if fn != nil {
		fn(*t)
	}
	return t
}

func (s *GRPCClient) Register(ctx context.Context, username, email, phone, password string) (*Registration, error) {
	resp, err := s.client.Register(ctx, &rpc.RegisterRequest{
		Username: username,
		Email:    email,
		Phone:    phone,
		Password: password,
	})
	if err != nil {
		return nil, s.mapError(err)
	}

	reg := &Registration{
		UserID:   resp.UserID,
		Username: resp.Username,
		Pending:  resp.Pending,
		Message:  resp.Message,
	}
	if resp.Tokens != nil {
		reg.Tokens = s.adopt(resp.Tokens)
	}
	return reg, nil
}

func (s *GRPCClient) LoginPassword(ctx context.Context, username, password string) (*Tokens, error) {
	resp, err := s.client.LoginPassword(ctx, &rpc.LoginPasswordRequest{Username: username, Password: password})
	if err != nil {
		return nil, s.mapError(err)
	}
	return s.adopt(resp), nil
}

func (s *GRPCClient) RequestOTP(ctx context.Context, email string) (string, error) {
	resp, err := s.client.RequestOTP(ctx, &rpc.RequestOTPRequest{Email: email})
	if err != nil {
		return "", s.mapError(err)
	}
	return resp.Message, nil
}

func (s *GRPCClient) LoginOTP(ctx context.Context, email, code string) (*Tokens, error) {
	resp, err := s.client.LoginOTP(ctx, &rpc.LoginOTPRequest{Email: email, Code: code})
	if err != nil {
		return nil, s.mapError(err)
	}
	return s.adopt(resp), nil
}

// Refresh rotates the held refresh token.
func (s *GRPCClient) Refresh(ctx context.Context) (*Tokens, error) {
	_, refresh := s.tokens()
	if refresh == "" {
		return nil, ErrNotLoggedIn
	}

	resp, err := s.client.RefreshToken(ctx, &rpc.RefreshTokenRequest{RefreshToken: refresh})
	if err != nil {
		return nil, s.mapError(err)
	}
	return s.adopt(resp), nil
}

// Logout revokes the server-side session and forgets the local tokens.
func (s *GRPCClient) Logout(ctx context.Context) error {
	_, refresh := s.tokens()
	if refresh == "" {
		return ErrNotLoggedIn
	}

	if _, err := s.client.Logout(ctx, &rpc.RefreshTokenRequest{RefreshToken: refresh}); err != nil {
		return s.mapError(err)
	}
	s.SetTokens("", "")
	return nil
}

func (s *GRPCClient) WhoAmI(ctx context.Context) (*Identity, error) {
	resp, err := s.client.WhoAmI(ctx, &rpc.Empty{})
	if err != nil {
		return nil, s.mapError(err)
	}
	return &Identity{
		UserID:        resp.UserID,
		Username:      resp.Username,
		Email:         resp.Email,
		Phone:         resp.Phone,
		Roles:         resp.Roles,
		EmailVerified: resp.EmailVerified,
	}, nil
}

func (s *GRPCClient) SuperUserPing(ctx context.Context) (string, error) {
	resp, err := s.client.SuperUserPing(ctx, &rpc.Empty{})
	if err != nil {
		return "", s.mapError(err)
	}
	return resp.Status, nil
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated:
		return ErrUnauthorized
	case codes.PermissionDenied:
		return ErrForbidden
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	case codes.AlreadyExists:
		return ErrConflict
	case codes.NotFound:
		return ErrNotFound
	case codes.ResourceExhausted:
		return ErrTooManyRequests
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", ErrInvalidInput, st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
