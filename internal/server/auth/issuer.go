// Package auth issues and verifies signed bearer tokens and password hashes.
package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/credcore/internal/common"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Identity is what a token asserts about its bearer.
type Identity struct {
	Username string
	UserID   string
	Roles    []string
}

func (id Identity) HasRole(role string) bool {
	return slices.Contains(id.Roles, role)
}

// Claims is the JWT payload shared by access and refresh tokens.
// Refresh tokens additionally carry a random jti.
type Claims struct {
	UserID    string   `json:"user_id"`
	Roles     []string `json:"roles"`
	TokenType string   `json:"token_type"`
	jwt.RegisteredClaims
}

func (c *Claims) Identity() Identity {
	return Identity{
		Username: c.Subject,
		UserID:   c.UserID,
		Roles:    slices.Clone(c.Roles),
	}
}

// Issuer signs and verifies tokens with one process-wide secret and algorithm.
// It holds no per-token state and is safe for concurrent use.
type Issuer struct {
	secret []byte
	method jwt.SigningMethod
	issuer string
	now    func() time.Time
}

// NewIssuer returns an Issuer for HS256, HS384 or HS512. Any other algorithm,
// or an empty secret, is a configuration error.
func NewIssuer(secret, algorithm, issuer string) (*Issuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: empty signing secret", common.ErrInvalidConfiguration)
	}

	var method jwt.SigningMethod
	switch algorithm {
	case "HS256":
		method = jwt.SigningMethodHS256
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("%w: unsupported signing algorithm %q", common.ErrInvalidConfiguration, algorithm)
	}

	return &Issuer{
		secret: []byte(secret),
		method: method,
		issuer: issuer,
		now:    time.Now,
	}, nil
}

func (i *Issuer) IssueAccess(id Identity, ttl time.Duration) (string, error) {
	return i.issue(id, TokenTypeAccess, ttl, "")
}

func (i *Issuer) IssueRefresh(id Identity, ttl time.Duration) (string, error) {
	jti, err := common.MakeRandHexString(16)
	if err != nil {
		return "", fmt.Errorf("generate jti: %w", err)
	}
	return i.issue(id, TokenTypeRefresh, ttl, jti)
}

func (i *Issuer) issue(id Identity, tokenType string, ttl time.Duration, jti string) (string, error) {
	now := i.now().UTC()
	roles := id.Roles
	if roles == nil {
		roles = []string{}
	}

	claims := &Claims{
		UserID:    id.UserID,
		Roles:     roles,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Username,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        jti,
		},
	}

	signed, err := jwt.NewWithClaims(i.method, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", tokenType, err)
	}
	return signed, nil
}

// Decode verifies signature, algorithm, issuer and expiry and requires sub,
// user_id and roles. Every failure wraps common.ErrInvalidToken.
func (i *Issuer) Decode(token string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{i.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	}
	if i.issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.issuer))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, common.ErrInvalidToken
	}

	if claims.Subject == "" || claims.UserID == "" || claims.Roles == nil {
		return nil, fmt.Errorf("%w: missing required claims", common.ErrInvalidToken)
	}

	return claims, nil
}

// DecodeAccess is Decode plus token_type == "access".
func (i *Issuer) DecodeAccess(token string) (*Claims, error) {
	return i.decodeTyped(token, TokenTypeAccess)
}

// DecodeRefresh is Decode plus token_type == "refresh", so an access token
// cannot be replayed against the refresh endpoint.
func (i *Issuer) DecodeRefresh(token string) (*Claims, error) {
	return i.decodeTyped(token, TokenTypeRefresh)
}

var errWrongTokenType = errors.New("wrong token type")

func (i *Issuer) decodeTyped(token, want string) (*Claims, error) {
	claims, err := i.Decode(token)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != want {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidToken, errWrongTokenType)
	}
	return claims, nil
}

// Fingerprint is the value stored server-side for a refresh token.
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
