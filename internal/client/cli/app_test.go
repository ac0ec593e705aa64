package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/credcore/internal/client/client"
	"github.com/dmitrijs2005/credcore/internal/client/session"
)

// fakeClient records calls and behaves like a server that accepts anything
// unless an error is preset.
type fakeClient struct {
	access, refresh string
	onRotate        func(client.Tokens)

	registered   []string
	pending      bool
	loginUser    string
	loginPass    string
	otpEmail     string
	otpCode      string
	loginErr     error
	logoutErr    error
	whoami       *client.Identity
	whoamiErr    error
	pingErr      error
	refreshCalls int
	closed       bool
}

func (f *fakeClient) Close() error { f.closed = true; return nil }

func (f *fakeClient) issue(n string) *client.Tokens {
	t := &client.Tokens{AccessToken: "A" + n, RefreshToken: "R" + n, ExpiresIn: 15 * time.Minute}
	f.access, f.refresh = t.AccessToken, t.RefreshToken
	if f.onRotate != nil {
		f.onRotate(*t)
	}
	return t
}

func (f *fakeClient) Register(_ context.Context, username, email, phone, password string) (*client.Registration, error) {
	f.registered = []string{username, email, phone, password}
	if f.pending {
		return &client.Registration{Username: username, Pending: true, Message: "Check your inbox."}, nil
	}
	return &client.Registration{Username: username, Tokens: f.issue("reg")}, nil
}

func (f *fakeClient) LoginPassword(_ context.Context, username, password string) (*client.Tokens, error) {
	f.loginUser, f.loginPass = username, password
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return f.issue("pw"), nil
}

func (f *fakeClient) RequestOTP(_ context.Context, email string) (string, error) {
	f.otpEmail = email
	return "If a user with that email exists, an OTP has been sent.", nil
}

func (f *fakeClient) LoginOTP(_ context.Context, email, code string) (*client.Tokens, error) {
	f.otpEmail, f.otpCode = email, code
	return f.issue("otp"), nil
}

func (f *fakeClient) Refresh(context.Context) (*client.Tokens, error) {
	if f.refresh == "" {
		return nil, client.ErrNotLoggedIn
	}
	f.refreshCalls++
	return f.issue("ref"), nil
}

func (f *fakeClient) Logout(context.Context) error {
	if f.logoutErr != nil {
		return f.logoutErr
	}
	f.access, f.refresh = "", ""
	return nil
}

func (f *fakeClient) WhoAmI(context.Context) (*client.Identity, error) {
	if f.whoamiErr != nil {
		return nil, f.whoamiErr
	}
	if f.whoami != nil {
		return f.whoami, nil
	}
	return &client.Identity{UserID: "id-1", Username: "alice", Email: "alice@example.org", Roles: []string{"user"}}, nil
}

func (f *fakeClient) SuperUserPing(context.Context) (string, error) {
	if f.pingErr != nil {
		return "", f.pingErr
	}
	return "OK", nil
}

func (f *fakeClient) SetTokens(access, refresh string) { f.access, f.refresh = access, refresh }
func (f *fakeClient) OnRotate(fn func(client.Tokens))  { f.onRotate = fn }

type harness struct {
	app   *App
	fake  *fakeClient
	store *session.Store
	out   *bytes.Buffer
}

func newHarness(t *testing.T, stdin string) *harness {
	t.Helper()

	stubTerminal(t, false, nil, nil)

	store, err := session.Open(context.Background(), ":memory:")
	require.NoError(t, err)

	f := &fakeClient{}
	out := &bytes.Buffer{}
	a := newApp(f, store, 5*time.Second, strings.NewReader(stdin), out)
	t.Cleanup(func() { _ = a.Close() })

	return &harness{app: a, fake: f, store: store, out: out}
}

func (h *harness) session(t *testing.T) session.Session {
	t.Helper()
	s, err := h.store.Load(context.Background())
	require.NoError(t, err)
	return s
}

func TestRun_Usage(t *testing.T) {
	h := newHarness(t, "")

	assert.ErrorIs(t, h.app.Run(context.Background(), nil), ErrUsage)
	assert.Contains(t, h.out.String(), "login-otp")

	h.out.Reset()
	assert.NoError(t, h.app.Run(context.Background(), []string{"help"}))
	assert.Contains(t, h.out.String(), "Commands:")

	h.out.Reset()
	assert.ErrorIs(t, h.app.Run(context.Background(), []string{"frobnicate"}), ErrUsage)
	assert.Contains(t, h.out.String(), `unknown command "frobnicate"`)
}

func TestRun_BadFlags(t *testing.T) {
	h := newHarness(t, "")
	assert.ErrorIs(t, h.app.Run(context.Background(), []string{"login", "-nope"}), ErrUsage)
	assert.ErrorIs(t, h.app.Run(context.Background(), []string{"whoami", "extra"}), ErrUsage)
}

func TestRegister_WithPassword(t *testing.T) {
	h := newHarness(t, "correct horse\n")

	err := h.app.Run(context.Background(), []string{"register", "-u", "alice", "-e", "alice@example.org", "-phone", "+15551234567"})
	require.NoError(t, err)

	assert.Equal(t, []string{"alice", "alice@example.org", "+15551234567", "correct horse"}, h.fake.registered)
	assert.Contains(t, h.out.String(), "Registered and logged in as alice")
	assert.Equal(t, session.Session{Username: "alice", AccessToken: "Areg", RefreshToken: "Rreg"}, h.session(t))
}

func TestRegister_OTPPendingPromptsForMissing(t *testing.T) {
	h := newHarness(t, "bob\nbob@example.org\n")
	h.fake.pending = true

	err := h.app.Run(context.Background(), []string{"register", "-otp"})
	require.NoError(t, err)

	assert.Equal(t, []string{"bob", "bob@example.org", "", ""}, h.fake.registered)
	assert.Contains(t, h.out.String(), "Check your inbox.")
	assert.Contains(t, h.out.String(), "login-otp -e bob@example.org")

	_, err = h.store.Load(context.Background())
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestLogin_SavesSessionUnderServerUsername(t *testing.T) {
	h := newHarness(t, "pw\n")

	require.NoError(t, h.app.Run(context.Background(), []string{"login", "-u", "Alice"}))

	assert.Equal(t, "Alice", h.fake.loginUser)
	assert.Equal(t, "pw", h.fake.loginPass)
	assert.Equal(t, "alice", h.session(t).Username)
	assert.Contains(t, h.out.String(), "Logged in as alice (access token valid for 15m0s)")
}

func TestLogin_Failure(t *testing.T) {
	h := newHarness(t, "wrong\n")
	h.fake.loginErr = client.ErrUnauthorized

	err := h.app.Run(context.Background(), []string{"login", "-u", "alice"})
	assert.ErrorIs(t, err, client.ErrUnauthorized)

	_, err = h.store.Load(context.Background())
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestOTPFlow(t *testing.T) {
	h := newHarness(t, "654321\n")
	h.fake.whoamiErr = client.ErrUnavailable

	require.NoError(t, h.app.Run(context.Background(), []string{"request-otp", "-e", "alice@example.org"}))
	assert.Contains(t, h.out.String(), "an OTP has been sent")

	require.NoError(t, h.app.Run(context.Background(), []string{"login-otp", "-e", "alice@example.org"}))
	assert.Equal(t, "654321", h.fake.otpCode)
	assert.Equal(t, "alice@example.org", h.session(t).Username)
	assert.Equal(t, "Aotp", h.session(t).AccessToken)
}

func TestCommandsRequireSession(t *testing.T) {
	h := newHarness(t, "")
	for _, cmd := range []string{"refresh", "whoami", "token", "admin-ping", "logout"} {
		assert.ErrorIs(t, h.app.Run(context.Background(), []string{cmd}), client.ErrNotLoggedIn, cmd)
	}
}

func TestRefresh_PersistsRotatedPair(t *testing.T) {
	h := newHarness(t, "")
	ctx := context.Background()
	require.NoError(t, h.store.Save(ctx, session.Session{Username: "alice", AccessToken: "A0", RefreshToken: "R0"}))

	require.NoError(t, h.app.Run(ctx, []string{"refresh"}))

	assert.Equal(t, 1, h.fake.refreshCalls)
	assert.Equal(t, session.Session{Username: "alice", AccessToken: "Aref", RefreshToken: "Rref"}, h.session(t))
}

func TestWhoAmIAndToken(t *testing.T) {
	h := newHarness(t, "")
	ctx := context.Background()
	require.NoError(t, h.store.Save(ctx, session.Session{Username: "root", AccessToken: "A0", RefreshToken: "R0"}))
	h.fake.whoami = &client.Identity{UserID: "u-1", Username: "root", Email: "root@example.org", Phone: "+15550000000", Roles: []string{"user", "super_user"}, EmailVerified: true}

	require.NoError(t, h.app.Run(ctx, []string{"whoami"}))
	assert.Contains(t, h.out.String(), "roles:    user, super_user")
	assert.Contains(t, h.out.String(), "phone:    +15550000000")
	assert.Equal(t, "A0", h.fake.access)

	h.out.Reset()
	require.NoError(t, h.app.Run(ctx, []string{"token"}))
	assert.Equal(t, "A0\n", h.out.String())
}

func TestAdminPing(t *testing.T) {
	h := newHarness(t, "")
	ctx := context.Background()
	require.NoError(t, h.store.Save(ctx, session.Session{Username: "alice", AccessToken: "A0", RefreshToken: "R0"}))

	require.NoError(t, h.app.Run(ctx, []string{"admin-ping"}))
	assert.Equal(t, "OK\n", h.out.String())

	h.fake.pingErr = client.ErrForbidden
	assert.ErrorIs(t, h.app.Run(ctx, []string{"admin-ping"}), client.ErrForbidden)
}

func TestLogout(t *testing.T) {
	ctx := context.Background()

	t.Run("clears session", func(t *testing.T) {
		h := newHarness(t, "")
		require.NoError(t, h.store.Save(ctx, session.Session{Username: "alice", AccessToken: "A0", RefreshToken: "R0"}))

		require.NoError(t, h.app.Run(ctx, []string{"logout"}))
		_, err := h.store.Load(ctx)
		assert.ErrorIs(t, err, session.ErrNoSession)
	})

	t.Run("already revoked server-side", func(t *testing.T) {
		h := newHarness(t, "")
		require.NoError(t, h.store.Save(ctx, session.Session{Username: "alice", AccessToken: "A0", RefreshToken: "R0"}))
		h.fake.logoutErr = client.ErrUnauthorized

		require.NoError(t, h.app.Run(ctx, []string{"logout"}))
		_, err := h.store.Load(ctx)
		assert.ErrorIs(t, err, session.ErrNoSession)
	})

	t.Run("server down keeps session", func(t *testing.T) {
		h := newHarness(t, "")
		require.NoError(t, h.store.Save(ctx, session.Session{Username: "alice", AccessToken: "A0", RefreshToken: "R0"}))
		h.fake.logoutErr = client.ErrUnavailable

		assert.ErrorIs(t, h.app.Run(ctx, []string{"logout"}), client.ErrUnavailable)
		assert.Equal(t, "R0", h.session(t).RefreshToken)
	})
}

func TestClose(t *testing.T) {
	store, err := session.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	f := &fakeClient{}
	a := newApp(f, store, time.Second, strings.NewReader(""), io.Discard)

	require.NoError(t, a.Close())
	assert.True(t, f.closed)
}

func TestVersion(t *testing.T) {
	h := newHarness(t, "")
	require.NoError(t, h.app.Run(context.Background(), []string{"version"}))
	assert.Contains(t, h.out.String(), "Build version:")
}
