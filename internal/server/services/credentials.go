// Package services holds the credential core: registration, password and
// one-time-passcode login, and refresh-token rotation.
//
// Refresh tokens are bound one per user by a SHA-256 fingerprint stored on the
// user record and rotated on every use. A second use of the same refresh
// token fails, and a new login invalidates the previous session.
package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/credcore/internal/common"
	"github.com/dmitrijs2005/credcore/internal/dbx"
	"github.com/dmitrijs2005/credcore/internal/logging"
	"github.com/dmitrijs2005/credcore/internal/server/auth"
	"github.com/dmitrijs2005/credcore/internal/server/metrics"
	"github.com/dmitrijs2005/credcore/internal/server/models"
	"github.com/dmitrijs2005/credcore/internal/server/otp"
	"github.com/dmitrijs2005/credcore/internal/server/otp/sender"
	"github.com/dmitrijs2005/credcore/internal/server/otp/store"
	"github.com/dmitrijs2005/credcore/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/credcore/internal/server/repositories/users"
)

const (
	RegistrationPassword = "password"
	RegistrationOTP      = "otp"

	// OTPRequestedMessage is returned for every accepted OTP request, whether
	// or not the address belongs to an account.
	OTPRequestedMessage = "If a user with that email exists, an OTP has been sent."

	// VerificationPendingMessage acknowledges an OTP-mode registration.
	VerificationPendingMessage = "Registration received. Check your inbox for a one-time passcode."

	methodPassword = "password"
	methodOTP      = "otp"
)

// TokenPair bundles a short-lived access token and a refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    time.Duration
}

// Limiter throttles by key.
type Limiter interface {
	Allow(key string) bool
}

type RegisterInput struct {
	Username string
	Email    string
	Phone    string
	Password string
}

// RegisterResult carries either Tokens (password mode) or a pending
// verification Message (otp mode).
type RegisterResult struct {
	User    models.User
	Tokens  *TokenPair
	Pending bool
	Message string
}

type Options struct {
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	OTPTTL           time.Duration
	SendTimeout      time.Duration
	RegistrationMode string
}

// Deps are the collaborators selected once at startup.
type Deps struct {
	Repos     repomanager.RepositoryManager
	Issuer    *auth.Issuer
	Hasher    auth.PasswordHasher
	Generator *otp.Generator
	OTPStore  store.Store
	Sender    sender.Sender
	Limiter   Limiter
	Metrics   *metrics.Metrics
	Logger    logging.Logger
}

type CredentialService struct {
	repos     repomanager.RepositoryManager
	issuer    *auth.Issuer
	hasher    auth.PasswordHasher
	generator *otp.Generator
	otpStore  store.Store
	sender    sender.Sender
	limiter   Limiter
	metrics   *metrics.Metrics
	log       logging.Logger
	opts      Options

	dispatches sync.WaitGroup
}

func NewCredentialService(d Deps, opts Options) (*CredentialService, error) {
	if d.Repos == nil || d.Issuer == nil || d.Hasher == nil || d.Generator == nil ||
		d.OTPStore == nil || d.Sender == nil || d.Limiter == nil {
		return nil, fmt.Errorf("%w: credential service is missing a dependency", common.ErrInvalidConfiguration)
	}
	if opts.RegistrationMode != RegistrationPassword && opts.RegistrationMode != RegistrationOTP {
		return nil, fmt.Errorf("%w: unknown registration mode %q", common.ErrInvalidConfiguration, opts.RegistrationMode)
	}

	log := d.Logger
	if log == nil {
		log = logging.Nop{}
	}

	return &CredentialService{
		repos:     d.Repos,
		issuer:    d.Issuer,
		hasher:    d.Hasher,
		generator: d.Generator,
		otpStore:  d.OTPStore,
		sender:    d.Sender,
		limiter:   d.Limiter,
		metrics:   d.Metrics,
		log:       log.With("module", "credentials"),
		opts:      opts,
	}, nil
}

// RegistrationMode reports the policy chosen at startup.
func (s *CredentialService) RegistrationMode() string {
	return s.opts.RegistrationMode
}

// Wait blocks until every background OTP delivery has finished.
func (s *CredentialService) Wait() {
	s.dispatches.Wait()
}

// Register creates a user with the "user" role.
func (s *CredentialService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = common.NormalizeEmail(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)

	if in.Username == "" || in.Email == "" {
		return nil, fmt.Errorf("%w: username and email are required", common.ErrInvalidInput)
	}
	if s.opts.RegistrationMode == RegistrationPassword && in.Password == "" {
		return nil, fmt.Errorf("%w: password is required", common.ErrInvalidInput)
	}

	repo := s.repos.Users()
	if err := s.ensureAvailable(ctx, repo, in.Username, in.Email); err != nil {
		return nil, err
	}

	user := &models.User{
		Username: in.Username,
		Email:    in.Email,
		Phone:    in.Phone,
		Roles:    []string{common.RoleUser},
	}
	if in.Password != "" {
		hash, err := s.hasher.Hash(in.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = hash
	}

	if s.opts.RegistrationMode == RegistrationOTP {
		return s.registerPendingOTP(ctx, repo, user)
	}

	var pair *TokenPair
	err := s.repos.InTx(ctx, func(ctx context.Context, tx users.Repository) error {
		if _, err := tx.Create(ctx, user); err != nil {
			return err
		}
		var err error
		pair, err = s.startSession(ctx, tx, user)
		return err
	})
	if err != nil {
		return nil, s.registerError(err)
	}

	s.log.Info(ctx, "user registered", "user_id", user.ID, "mode", RegistrationPassword)
	return &RegisterResult{User: user.Public(), Tokens: pair}, nil
}

func (s *CredentialService) registerPendingOTP(ctx context.Context, repo users.Repository, user *models.User) (*RegisterResult, error) {
	if _, err := repo.Create(ctx, user); err != nil {
		return nil, s.registerError(err)
	}

	code, err := s.generator.Generate()
	if err != nil {
		return nil, err
	}
	if err := s.otpStore.Store(ctx, user.Email, code, s.opts.OTPTTL); err != nil {
		// Undo the insert so a retry is not refused as a duplicate.
		if derr := repo.Delete(ctx, user.ID); derr != nil {
			s.log.Error(ctx, "pending registration left behind", "user_id", user.ID, "error", derr)
		}
		return nil, err
	}
	s.dispatch(ctx, user, code)

	s.log.Info(ctx, "user registered", "user_id", user.ID, "mode", RegistrationOTP)
	return &RegisterResult{User: user.Public(), Pending: true, Message: VerificationPendingMessage}, nil
}

func (s *CredentialService) registerError(err error) error {
	if errors.Is(err, common.ErrConflict) {
		return common.ErrConflict
	}
	return fmt.Errorf("create user: %w", err)
}

func (s *CredentialService) ensureAvailable(ctx context.Context, repo users.Repository, username, email string) error {
	if _, err := repo.GetByUsername(ctx, username); err == nil {
		return common.ErrConflict
	} else if !errors.Is(err, common.ErrorNotFound) {
		return err
	}

	if _, err := repo.GetByEmail(ctx, email); err == nil {
		return common.ErrConflict
	} else if !errors.Is(err, common.ErrorNotFound) {
		return err
	}
	return nil
}

// LoginPassword exchanges a username and password for a token pair. Unknown
// users, OTP-only users, unverified otp-mode users and wrong passwords are
// indistinguishable.
func (s *CredentialService) LoginPassword(ctx context.Context, username, password string) (*TokenPair, error) {
	repo := s.repos.Users()

	user, err := repo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.VerifyDummy(password)
			s.metrics.Login(methodPassword, false)
			return nil, common.ErrorUnauthorized
		}
		return nil, err
	}

	// In otp mode an address must be proven before its password counts.
	if !user.HasPassword() || (s.opts.RegistrationMode == RegistrationOTP && !user.EmailVerified) {
		s.hasher.VerifyDummy(password)
		s.metrics.Login(methodPassword, false)
		return nil, common.ErrorUnauthorized
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		s.log.Error(ctx, "stored password hash unreadable", "user_id", user.ID, "error", err)
	}
	if !ok {
		s.metrics.Login(methodPassword, false)
		return nil, common.ErrorUnauthorized
	}

	pair, err := s.startSession(ctx, repo, user)
	if err != nil {
		return nil, err
	}

	s.metrics.Login(methodPassword, true)
	s.log.Info(ctx, "password login", "user_id", user.ID)
	return pair, nil
}

// RequestOTP always answers with OTPRequestedMessage. Unknown addresses get a
// decoy code that is stored but never sent, so both paths do the same work.
// Delivery runs in the background; its failures are logged and counted only.
func (s *CredentialService) RequestOTP(ctx context.Context, email string) (string, error) {
	email = common.NormalizeEmail(email)
	if email == "" {
		return "", fmt.Errorf("%w: email is required", common.ErrInvalidInput)
	}
	if !s.limiter.Allow("request-otp:" + email) {
		return "", common.ErrTooManyRequests
	}

	user, err := s.repos.Users().GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return "", err
	}

	code, err := s.generator.Generate()
	if err != nil {
		return "", err
	}
	if err := s.otpStore.Store(ctx, email, code, s.opts.OTPTTL); err != nil {
		return "", err
	}

	if user != nil {
		s.dispatch(ctx, user, code)
	}
	return OTPRequestedMessage, nil
}

// LoginOTP exchanges a live code for a token pair and consumes the code.
func (s *CredentialService) LoginOTP(ctx context.Context, email, code string) (*TokenPair, error) {
	email = common.NormalizeEmail(email)
	if !s.limiter.Allow("login-otp:" + email) {
		return nil, common.ErrTooManyRequests
	}

	user, err := s.repos.Users().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.metrics.Login(methodOTP, false)
		}
		return nil, err
	}

	ok, err := s.otpStore.Verify(ctx, email, strings.TrimSpace(code))
	if err != nil {
		return nil, err
	}
	if !ok {
		s.metrics.Login(methodOTP, false)
		return nil, common.ErrorUnauthorized
	}

	var pair *TokenPair
	err = s.repos.InTx(ctx, func(ctx context.Context, tx users.Repository) error {
		if !user.EmailVerified {
			if err := tx.MarkEmailVerified(ctx, user.ID); err != nil {
				return err
			}
		}
		var err error
		pair, err = s.startSession(ctx, tx, user)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Login(methodOTP, true)
	s.log.Info(ctx, "otp login", "user_id", user.ID)
	return pair, nil
}

// Refresh trades a refresh token for a new pair. The stored fingerprint is
// swapped with a compare-and-swap, so of two concurrent uses only one wins.
func (s *CredentialService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	pair, err := s.refresh(ctx, refreshToken)
	s.metrics.Refresh(err == nil)
	return pair, err
}

func (s *CredentialService) refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.issuer.DecodeRefresh(refreshToken)
	if err != nil {
		return nil, common.ErrorUnauthorized
	}

	repo := s.repos.Users()
	user, err := repo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, err
	}

	presented := auth.Fingerprint(refreshToken)
	if !sameFingerprint(user.RefreshTokenHash, presented) {
		s.log.Warn(ctx, "refresh token reuse or stale session", "user_id", user.ID)
		return nil, common.ErrorUnauthorized
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, err
	}

	swapped, err := repo.RotateRefreshTokenHash(ctx, user.ID, presented, auth.Fingerprint(pair.RefreshToken))
	if err != nil {
		return nil, err
	}
	if !swapped {
		return nil, common.ErrorUnauthorized
	}
	return pair, nil
}

// Logout ends the session bound to refreshToken.
func (s *CredentialService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.issuer.DecodeRefresh(refreshToken)
	if err != nil {
		return common.ErrorUnauthorized
	}

	swapped, err := s.repos.Users().RotateRefreshTokenHash(ctx, claims.UserID, auth.Fingerprint(refreshToken), "")
	if err != nil {
		return err
	}
	if !swapped {
		return common.ErrorUnauthorized
	}

	s.log.Info(ctx, "logout", "user_id", claims.UserID)
	return nil
}

// Authenticate returns the identity carried by a valid access token.
func (s *CredentialService) Authenticate(accessToken string) (auth.Identity, error) {
	claims, err := s.issuer.DecodeAccess(accessToken)
	if err != nil {
		return auth.Identity{}, common.ErrorUnauthorized
	}
	return claims.Identity(), nil
}

// RequireRole authenticates accessToken and demands role in its role set.
// There is no hierarchy: super_user does not imply user.
func (s *CredentialService) RequireRole(accessToken, role string) (auth.Identity, error) {
	id, err := s.Authenticate(accessToken)
	if err != nil {
		return auth.Identity{}, err
	}
	if !id.HasRole(role) {
		return auth.Identity{}, common.ErrForbidden
	}
	return id, nil
}

// CurrentUser loads the record behind an access token, without secrets.
func (s *CredentialService) CurrentUser(ctx context.Context, accessToken string) (*models.User, error) {
	id, err := s.Authenticate(accessToken)
	if err != nil {
		return nil, err
	}

	user, err := s.repos.Users().GetByID(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, err
	}

	pub := user.Public()
	return &pub, nil
}

// --- helpers below ---

func sameFingerprint(stored, presented string) bool {
	if stored == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
}

func (s *CredentialService) issuePair(user *models.User) (*TokenPair, error) {
	id := auth.Identity{Username: user.Username, UserID: user.ID, Roles: user.Roles}

	access, err := s.issuer.IssueAccess(id, s.opts.AccessTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	refresh, err := s.issuer.IssueRefresh(id, s.opts.RefreshTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    s.opts.AccessTTL,
	}, nil
}

// startSession issues a pair and binds its refresh token to the user,
// replacing any previous session.
func (s *CredentialService) startSession(ctx context.Context, repo users.Repository, user *models.User) (*TokenPair, error) {
	pair, err := s.issuePair(user)
	if err != nil {
		return nil, err
	}
	if err := repo.SetRefreshTokenHash(ctx, user.ID, auth.Fingerprint(pair.RefreshToken)); err != nil {
		return nil, fmt.Errorf("bind refresh token: %w", err)
	}
	return pair, nil
}

func (s *CredentialService) recipient(user *models.User) string {
	if s.sender.Medium() == sender.MediumSMS {
		return user.Phone
	}
	return user.Email
}

// dispatch delivers code in the background under its own timeout, detached
// from the request's cancellation.
func (s *CredentialService) dispatch(ctx context.Context, user *models.User, code string) {
	to := s.recipient(user)
	ctx = context.WithoutCancel(ctx)

	s.dispatches.Add(1)
	go func() {
		defer s.dispatches.Done()

		ctx, cancel := dbx.WithTimeout(ctx, s.opts.SendTimeout)
		defer cancel()

		res := sender.Result{Reason: "no address on file for channel"}
		if to != "" {
			res = s.sender.Send(ctx, to, code, user.ID)
		}

		s.metrics.OTPDispatched(s.sender.Channel(), res.OK)
		if !res.OK {
			s.log.Warn(ctx, "otp delivery failed",
				"user_id", user.ID,
				"channel", s.sender.Channel(),
				"error", fmt.Errorf("%w: %s", common.ErrSendFailure, res.Reason))
			return
		}
		s.log.Debug(ctx, "otp delivered", "user_id", user.ID, "channel", s.sender.Channel())
	}()
}

// Credentials is the surface the transports depend on.
type Credentials interface {
	Register(ctx context.Context, in RegisterInput) (*RegisterResult, error)
	LoginPassword(ctx context.Context, username, password string) (*TokenPair, error)
	RequestOTP(ctx context.Context, email string) (string, error)
	LoginOTP(ctx context.Context, email, code string) (*TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	Authenticate(accessToken string) (auth.Identity, error)
	RequireRole(accessToken, role string) (auth.Identity, error)
	CurrentUser(ctx context.Context, accessToken string) (*models.User, error)
}

var _ Credentials = (*CredentialService)(nil)
