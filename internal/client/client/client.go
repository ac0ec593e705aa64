// Package client is the CLI's gRPC view of the credential service.
package client

import (
	"context"
	"time"
)

type Tokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}

type Registration struct {
	UserID   string
	Username string
	Pending  bool
	Message  string
	// Tokens is nil when the account still waits for OTP verification.
	Tokens *Tokens
}

type Identity struct {
	UserID        string
	Username      string
	Email         string
	Phone         string
	Roles         []string
	EmailVerified bool
}

type Client interface {
	Close() error
	Register(ctx context.Context, username, email, phone, password string) (*Registration, error)
	LoginPassword(ctx context.Context, username, password string) (*Tokens, error)
	RequestOTP(ctx context.Context, email string) (string, error)
	LoginOTP(ctx context.Context, email, code string) (*Tokens, error)
	Refresh(ctx context.Context) (*Tokens, error)
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) (*Identity, error)
	SuperUserPing(ctx context.Context) (string, error)
	SetTokens(access, refresh string)
	OnRotate(fn func(Tokens))
}
