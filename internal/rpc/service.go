package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "credcore.v1.CredentialService"

// Full method names, as seen by interceptors.
const (
	MethodRegister      = "/" + ServiceName + "/Register"
	MethodRequestOTP    = "/" + ServiceName + "/RequestOTP"
	MethodLoginOTP      = "/" + ServiceName + "/LoginOTP"
	MethodLoginPassword = "/" + ServiceName + "/LoginPassword"
	MethodRefreshToken  = "/" + ServiceName + "/RefreshToken"
	MethodLogout        = "/" + ServiceName + "/Logout"
	MethodWhoAmI        = "/" + ServiceName + "/WhoAmI"
	MethodSuperUserPing = "/" + ServiceName + "/SuperUserPing"
)

type CredentialServiceServer interface {
	Register(context.Context, *RegisterRequest) (*RegisterResponse, error)
	RequestOTP(context.Context, *RequestOTPRequest) (*MessageResponse, error)
	LoginOTP(context.Context, *LoginOTPRequest) (*TokenPair, error)
	LoginPassword(context.Context, *LoginPasswordRequest) (*TokenPair, error)
	RefreshToken(context.Context, *RefreshTokenRequest) (*TokenPair, error)
	Logout(context.Context, *RefreshTokenRequest) (*Empty, error)
	WhoAmI(context.Context, *Empty) (*WhoAmIResponse, error)
	SuperUserPing(context.Context, *Empty) (*SuperUserPingResponse, error)
}

// UnimplementedCredentialServiceServer answers Unimplemented for every
// method; embed it to stay forward compatible.
type UnimplementedCredentialServiceServer struct{}

func (UnimplementedCredentialServiceServer) Register(context.Context, *RegisterRequest) (*RegisterResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Register not implemented")
}
func (UnimplementedCredentialServiceServer) RequestOTP(context.Context, *RequestOTPRequest) (*MessageResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RequestOTP not implemented")
}
func (UnimplementedCredentialServiceServer) LoginOTP(context.Context, *LoginOTPRequest) (*TokenPair, error) {
	return nil, status.Error(codes.Unimplemented, "method LoginOTP not implemented")
}
func (UnimplementedCredentialServiceServer) LoginPassword(context.Context, *LoginPasswordRequest) (*TokenPair, error) {
	return nil, status.Error(codes.Unimplemented, "method LoginPassword not implemented")
}
func (UnimplementedCredentialServiceServer) RefreshToken(context.Context, *RefreshTokenRequest) (*TokenPair, error) {
	return nil, status.Error(codes.Unimplemented, "method RefreshToken not implemented")
}
func (UnimplementedCredentialServiceServer) Logout(context.Context, *RefreshTokenRequest) (*Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method Logout not implemented")
}
func (UnimplementedCredentialServiceServer) WhoAmI(context.Context, *Empty) (*WhoAmIResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method WhoAmI not implemented")
}
func (UnimplementedCredentialServiceServer) SuperUserPing(context.Context, *Empty) (*SuperUserPingResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method SuperUserPing not implemented")
}

func RegisterCredentialServiceServer(s grpc.ServiceRegistrar, srv CredentialServiceServer) {
	s.RegisterService(&CredentialServiceDesc, srv)
}

// unary builds a MethodDesc handler for one request type.
func unary[Req any, Resp any](fullMethod string, call func(CredentialServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CredentialServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(CredentialServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var CredentialServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CredentialServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Register", Handler: unary(MethodRegister, CredentialServiceServer.Register)},
		{MethodName: "RequestOTP", Handler: unary(MethodRequestOTP, CredentialServiceServer.RequestOTP)},
		{MethodName: "LoginOTP", Handler: unary(MethodLoginOTP, CredentialServiceServer.LoginOTP)},
		{MethodName: "LoginPassword", Handler: unary(MethodLoginPassword, CredentialServiceServer.LoginPassword)},
		{MethodName: "RefreshToken", Handler: unary(MethodRefreshToken, CredentialServiceServer.RefreshToken)},
		{MethodName: "Logout", Handler: unary(MethodLogout, CredentialServiceServer.Logout)},
		{MethodName: "WhoAmI", Handler: unary(MethodWhoAmI, CredentialServiceServer.WhoAmI)},
		{MethodName: "SuperUserPing", Handler: unary(MethodSuperUserPing, CredentialServiceServer.SuperUserPing)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "credcore/v1/credentials",
}

type CredentialServiceClient interface {
	Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*RegisterResponse, error)
	RequestOTP(ctx context.Context, in *RequestOTPRequest, opts ...grpc.CallOption) (*MessageResponse, error)
	LoginOTP(ctx context.Context, in *LoginOTPRequest, opts ...grpc.CallOption) (*TokenPair, error)
	LoginPassword(ctx context.Context, in *LoginPasswordRequest, opts ...grpc.CallOption) (*TokenPair, error)
	RefreshToken(ctx context.Context, in *RefreshTokenRequest, opts ...grpc.CallOption) (*TokenPair, error)
	Logout(ctx context.Context, in *RefreshTokenRequest, opts ...grpc.CallOption) (*Empty, error)
	WhoAmI(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*WhoAmIResponse, error)
	SuperUserPing(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*SuperUserPingResponse, error)
}

type credentialServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewCredentialServiceClient returns a stub that always uses Codec.
func NewCredentialServiceClient(cc grpc.ClientConnInterface) CredentialServiceClient {
	return &credentialServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.ForceCodec(Codec{})}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *credentialServiceClient) Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*RegisterResponse, error) {
	return invoke[RegisterResponse](ctx, c.cc, MethodRegister, in, opts)
}

func (c *credentialServiceClient) RequestOTP(ctx context.Context, in *RequestOTPRequest, opts ...grpc.CallOption) (*MessageResponse, error) {
	return invoke[MessageResponse](ctx, c.cc, MethodRequestOTP, in, opts)
}

func (c *credentialServiceClient) LoginOTP(ctx context.Context, in *LoginOTPRequest, opts ...grpc.CallOption) (*TokenPair, error) {
	return invoke[TokenPair](ctx, c.cc, MethodLoginOTP, in, opts)
}

func (c *credentialServiceClient) LoginPassword(ctx context.Context, in *LoginPasswordRequest, opts ...grpc.CallOption) (*TokenPair, error) {
	return invoke[TokenPair](ctx, c.cc, MethodLoginPassword, in, opts)
}

func (c *credentialServiceClient) RefreshToken(ctx context.Context, in *RefreshTokenRequest, opts ...grpc.CallOption) (*TokenPair, error) {
	return invoke[TokenPair](ctx, c.cc, MethodRefreshToken, in, opts)
}

func (c *credentialServiceClient) Logout(ctx context.Context, in *RefreshTokenRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, MethodLogout, in, opts)
}

func (c *credentialServiceClient) WhoAmI(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*WhoAmIResponse, error) {
	return invoke[WhoAmIResponse](ctx, c.cc, MethodWhoAmI, in, opts)
}

func (c *credentialServiceClient) SuperUserPing(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*SuperUserPingResponse, error) {
	return invoke[SuperUserPingResponse](ctx, c.cc, MethodSuperUserPing, in, opts)
}
