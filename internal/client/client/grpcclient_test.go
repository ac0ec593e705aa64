package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/credcore/internal/common"
	"github.com/dmitrijs2005/credcore/internal/rpc"
)

/*************
 * Fake rpc client
 *************/

type fakeRPC struct {
	lastRegisterReq *rpc.RegisterRequest
	lastLoginReq    *rpc.LoginPasswordRequest
	lastOTPReq      *rpc.RequestOTPRequest
	lastLoginOTPReq *rpc.LoginOTPRequest
	lastRefreshReq  *rpc.RefreshTokenRequest
	lastLogoutReq   *rpc.RefreshTokenRequest

	registerResp *rpc.RegisterResponse
	registerErr  error

	tokenResp *rpc.TokenPair
	tokenErr  error

	otpResp *rpc.MessageResponse
	otpErr  error

	refreshResp *rpc.TokenPair
	refreshErr  error

	logoutErr error

	whoamiResp *rpc.WhoAmIResponse
	whoamiErr  error

	pingResp *rpc.SuperUserPingResponse
	pingErr  error
}

func (f *fakeRPC) Register(_ context.Context, in *rpc.RegisterRequest, _ ...grpc.CallOption) (*rpc.RegisterResponse, error) {
	f.lastRegisterReq = in
	return f.registerResp, f.registerErr
}
func (f *fakeRPC) RequestOTP(_ context.Context, in *rpc.RequestOTPRequest, _ ...grpc.CallOption) (*rpc.MessageResponse, error) {
	f.lastOTPReq = in
	return f.otpResp, f.otpErr
}
func (f *fakeRPC) LoginOTP(_ context.Context, in *rpc.LoginOTPRequest, _ ...grpc.CallOption) (*rpc.TokenPair, error) {
	f.lastLoginOTPReq = in
	return f.tokenResp, f.tokenErr
}
func (f *fakeRPC) LoginPassword(_ context.Context, in *rpc.LoginPasswordRequest, _ ...grpc.CallOption) (*rpc.TokenPair, error) {
	f.lastLoginReq = in
	return f.tokenResp, f.tokenErr
}
func (f *fakeRPC) RefreshToken(_ context.Context, in *rpc.RefreshTokenRequest, _ ...grpc.CallOption) (*rpc.TokenPair, error) {
	f.lastRefreshReq = in
	return f.refreshResp, f.refreshErr
}
func (f *fakeRPC) Logout(_ context.Context, in *rpc.RefreshTokenRequest, _ ...grpc.CallOption) (*rpc.Empty, error) {
	f.lastLogoutReq = in
	return &rpc.Empty{}, f.logoutErr
}
func (f *fakeRPC) WhoAmI(context.Context, *rpc.Empty, ...grpc.CallOption) (*rpc.WhoAmIResponse, error) {
	return f.whoamiResp, f.whoamiErr
}
func (f *fakeRPC) SuperUserPing(context.Context, *rpc.Empty, ...grpc.CallOption) (*rpc.SuperUserPingResponse, error) {
	return f.pingResp, f.pingErr
}

func tokenFrom(t *testing.T, ctx context.Context) string {
	t.Helper()
	md, _ := metadata.FromOutgoingContext(ctx)
	toks := md.Get(common.AccessTokenHeaderName)
	require.Len(t, toks, 1)
	return toks[0]
}

/*************
 * accessTokenInterceptor tests
 *************/

func TestInterceptor_RefreshesOnUnauthenticatedAndRetries(t *testing.T) {
	f := &fakeRPC{refreshResp: &rpc.TokenPair{AccessToken: "A2", RefreshToken: "R2", ExpiresIn: 900}}
	c := &GRPCClient{client: f, accessToken: "A1", refreshToken: "R1"}

	var rotated []Tokens
	c.OnRotate(func(tk Tokens) { rotated = append(rotated, tk) })

	callCount := 0
	invoker := func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		callCount++
		if callCount == 1 {
			require.Equal(t, "A1", tokenFrom(t, ctx))
			return status.Error(codes.Unauthenticated, "invalid credentials")
		}
		require.Equal(t, "A2", tokenFrom(t, ctx))
		return nil
	}

	err := c.accessTokenInterceptor(context.Background(), rpc.MethodWhoAmI, nil, nil, nil, invoker)
	require.NoError(t, err)
	require.Equal(t, 2, callCount)
	require.Equal(t, "A2", c.accessToken)
	require.Equal(t, "R2", c.refreshToken)
	require.Equal(t, "R1", f.lastRefreshReq.RefreshToken)
	require.Len(t, rotated, 1)
	require.Equal(t, 900*time.Second, rotated[0].ExpiresIn)
}

func TestInterceptor_NoRefreshIfNoRefreshToken(t *testing.T) {
	f := &fakeRPC{}
	c := &GRPCClient{client: f, accessToken: "A1"}

	invoker := func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		return status.Error(codes.Unauthenticated, "invalid credentials")
	}

	err := c.accessTokenInterceptor(context.Background(), rpc.MethodWhoAmI, nil, nil, nil, invoker)
	require.Equal(t, codes.Unauthenticated, status.Code(err))
	require.Nil(t, f.lastRefreshReq)
}

func TestInterceptor_RefreshFailureReturnsOriginalError(t *testing.T) {
	f := &fakeRPC{refreshErr: status.Error(codes.Unauthenticated, "invalid credentials")}
	c := &GRPCClient{client: f, accessToken: "A1", refreshToken: "R1"}

	calls := 0
	invoker := func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		calls++
		return status.Error(codes.Unauthenticated, "invalid credentials")
	}

	err := c.accessTokenInterceptor(context.Background(), rpc.MethodSuperUserPing, nil, nil, nil, invoker)
	require.Equal(t, codes.Unauthenticated, status.Code(err))
	require.Equal(t, 1, calls)
	require.Equal(t, "A1", c.accessToken)
}

func TestInterceptor_IgnoresOtherErrors(t *testing.T) {
	f := &fakeRPC{}
	c := &GRPCClient{client: f, accessToken: "X", refreshToken: "R"}
	invoker := func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		return status.Error(codes.Internal, "boom")
	}
	err := c.accessTokenInterceptor(context.Background(), rpc.MethodWhoAmI, nil, nil, nil, invoker)
	require.Error(t, err)
	require.Nil(t, f.lastRefreshReq)
}

func TestInterceptor_PublicMethodsCarryNoToken(t *testing.T) {
	c := &GRPCClient{accessToken: "X", refreshToken: "R"}
	invoker := func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		md, _ := metadata.FromOutgoingContext(ctx)
		require.Empty(t, md.Get(common.AccessTokenHeaderName))
		return status.Error(codes.Unauthenticated, "invalid credentials")
	}
	err := c.accessTokenInterceptor(context.Background(), rpc.MethodLoginPassword, nil, nil, nil, invoker)
	require.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestWithAccessToken_ReplacesExisting(t *testing.T) {
	ctx := metadata.AppendToOutgoingContext(context.Background(), common.AccessTokenHeaderName, "old", "x-other", "1")
	ctx = withAccessToken(ctx, "new")

	md, _ := metadata.FromOutgoingContext(ctx)
	require.Equal(t, []string{"new"}, md.Get(common.AccessTokenHeaderName))
	require.Equal(t, []string{"1"}, md.Get("x-other"))
}

/*************
 * mapError tests
 *************/

func TestMapError(t *testing.T) {
	c := &GRPCClient{}

	require.Nil(t, c.mapError(nil))
	require.Equal(t, ErrUnauthorized, c.mapError(status.Error(codes.Unauthenticated, "x")))
	require.Equal(t, ErrForbidden, c.mapError(status.Error(codes.PermissionDenied, "x")))
	require.Equal(t, ErrUnavailable, c.mapError(status.Error(codes.Unavailable, "x")))
	require.Equal(t, ErrUnavailable, c.mapError(status.Error(codes.DeadlineExceeded, "x")))
	require.Equal(t, ErrConflict, c.mapError(status.Error(codes.AlreadyExists, "x")))
	require.Equal(t, ErrNotFound, c.mapError(status.Error(codes.NotFound, "x")))
	require.Equal(t, ErrTooManyRequests, c.mapError(status.Error(codes.ResourceExhausted, "x")))

	err := c.mapError(status.Error(codes.InvalidArgument, "email: must be a valid email"))
	require.ErrorIs(t, err, ErrInvalidInput)
	require.ErrorContains(t, err, "must be a valid email")

	require.ErrorContains(t, c.mapError(errors.New("plain")), "rpc error:")
}

/*************
 * call tests
 *************/

func TestRegister_PasswordModeAdoptsTokens(t *testing.T) {
	f := &fakeRPC{registerResp: &rpc.RegisterResponse{
		UserID: "id-1", Username: "alice",
		Tokens: &rpc.TokenPair{AccessToken: "A", RefreshToken: "R", ExpiresIn: 60},
	}}
	c := &GRPCClient{client: f}

	reg, err := c.Register(context.Background(), "alice", "a@x.io", "+15550001", "secret123")
	require.NoError(t, err)
	require.False(t, reg.Pending)
	require.NotNil(t, reg.Tokens)
	require.Equal(t, "A", c.accessToken)
	require.Equal(t, "+15550001", f.lastRegisterReq.Phone)
	require.Equal(t, "secret123", f.lastRegisterReq.Password)
}

func TestRegister_Pending(t *testing.T) {
	f := &fakeRPC{registerResp: &rpc.RegisterResponse{UserID: "id-1", Username: "alice", Pending: true, Message: "check your inbox"}}
	c := &GRPCClient{client: f}

	reg, err := c.Register(context.Background(), "alice", "a@x.io", "", "")
	require.NoError(t, err)
	require.True(t, reg.Pending)
	require.Nil(t, reg.Tokens)
	require.Equal(t, "check your inbox", reg.Message)
	require.Empty(t, c.accessToken)
}

func TestRegister_MapsError(t *testing.T) {
	f := &fakeRPC{registerErr: status.Error(codes.AlreadyExists, "taken")}
	c := &GRPCClient{client: f}
	_, err := c.Register(context.Background(), "u", "u@x.io", "", "password1")
	require.ErrorIs(t, err, ErrConflict)
}

func TestLoginPassword_SetsTokens(t *testing.T) {
	f := &fakeRPC{tokenResp: &rpc.TokenPair{AccessToken: "A", RefreshToken: "R"}}
	c := &GRPCClient{client: f}

	tk, err := c.LoginPassword(context.Background(), "u", "pw")
	require.NoError(t, err)
	require.Equal(t, "A", tk.AccessToken)
	require.Equal(t, "R", c.refreshToken)
	require.Equal(t, "u", f.lastLoginReq.Username)
}

func TestLoginPassword_MapsError(t *testing.T) {
	f := &fakeRPC{tokenErr: status.Error(codes.Unauthenticated, "invalid credentials")}
	c := &GRPCClient{client: f}
	_, err := c.LoginPassword(context.Background(), "u", "pw")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestRequestOTPAndLoginOTP(t *testing.T) {
	f := &fakeRPC{
		otpResp:   &rpc.MessageResponse{Message: "sent"},
		tokenResp: &rpc.TokenPair{AccessToken: "A", RefreshToken: "R"},
	}
	c := &GRPCClient{client: f}

	msg, err := c.RequestOTP(context.Background(), "a@x.io")
	require.NoError(t, err)
	require.Equal(t, "sent", msg)
	require.Equal(t, "a@x.io", f.lastOTPReq.Email)

	_, err = c.LoginOTP(context.Background(), "a@x.io", "123456")
	require.NoError(t, err)
	require.Equal(t, "123456", f.lastLoginOTPReq.Code)
	require.Equal(t, "A", c.accessToken)
}

func TestRequestOTP_RateLimited(t *testing.T) {
	f := &fakeRPC{otpErr: status.Error(codes.ResourceExhausted, "slow down")}
	c := &GRPCClient{client: f}
	_, err := c.RequestOTP(context.Background(), "a@x.io")
	require.ErrorIs(t, err, ErrTooManyRequests)
}

func TestRefresh_NoSession(t *testing.T) {
	c := &GRPCClient{client: &fakeRPC{}}
	_, err := c.Refresh(context.Background())
	require.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestLogout_ClearsTokens(t *testing.T) {
	f := &fakeRPC{}
	c := &GRPCClient{client: f}
	c.SetTokens("A", "R")

	require.NoError(t, c.Logout(context.Background()))
	require.Equal(t, "R", f.lastLogoutReq.RefreshToken)
	require.Empty(t, c.accessToken)
	require.Empty(t, c.refreshToken)

	require.ErrorIs(t, c.Logout(context.Background()), ErrNotLoggedIn)
}

func TestLogout_KeepsTokensOnError(t *testing.T) {
	f := &fakeRPC{logoutErr: status.Error(codes.Unavailable, "down")}
	c := &GRPCClient{client: f}
	c.SetTokens("A", "R")

	require.ErrorIs(t, c.Logout(context.Background()), ErrUnavailable)
	require.Equal(t, "R", c.refreshToken)
}

func TestWhoAmIAndPing(t *testing.T) {
	f := &fakeRPC{
		whoamiResp: &rpc.WhoAmIResponse{UserID: "1", Username: "root", Roles: []string{"user", "super_user"}, EmailVerified: true},
		pingResp:   &rpc.SuperUserPingResponse{Status: "ok", Username: "root"},
	}
	c := &GRPCClient{client: f}

	id, err := c.WhoAmI(context.Background())
	require.NoError(t, err)
	require.Equal(t, "root", id.Username)
	require.True(t, id.EmailVerified)

	st, err := c.SuperUserPing(context.Background())
	require.NoError(t, err)
	require.Equal(t, "ok", st)

	f.pingErr = status.Error(codes.PermissionDenied, "no")
	_, err = c.SuperUserPing(context.Background())
	require.ErrorIs(t, err, ErrForbidden)
}

func TestClose_NilConn(t *testing.T) {
	require.NoError(t, (&GRPCClient{}).Close())
}

func TestNewGRPCClient(t *testing.T) {
	c, err := NewGRPCClient("127.0.0.1:0")
	require.NoError(t, err)
	require.NotNil(t, c.client)
	require.NoError(t, c.Close())
}
