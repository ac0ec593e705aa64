package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/credcore/internal/logging"
	"github.com/dmitrijs2005/credcore/internal/server/config"
	"github.com/dmitrijs2005/credcore/internal/server/otp/store"
)

func memoryConfig() *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.UserStore = config.UserStoreMemory
	c.OTPStore = config.OTPStoreMemory
	c.OTPSender = config.SenderLog
	c.HTTPAddr = "127.0.0.1:0"
	c.GRPCAddr = "127.0.0.1:0"
	return c
}

func TestNewApp_MemoryBackends(t *testing.T) {
	t.Parallel()

	app, err := NewApp(context.Background(), memoryConfig(), logging.Nop{})
	require.NoError(t, err)

	srv := httptest.NewServer(app.Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/auth/register", "application/json",
		bytes.NewBufferString(`{"username":"alice","email":"alice@example.com","password":"correct-horse"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/health/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNewApp_RejectsUnknownSelectors(t *testing.T) {
	t.Parallel()

	for name, mutate := range map[string]func(*config.Config){
		"user store": func(c *config.Config) { c.UserStore = "mongo" },
		"otp store":  func(c *config.Config) { c.OTPStore = "memcached" },
		"sender":     func(c *config.Config) { c.OTPSender = "pigeon" },
		"algorithm":  func(c *config.Config) { c.SigningAlgorithm = "none" },
		"otp length": func(c *config.Config) { c.OTPLength = 0 },
		"mode":       func(c *config.Config) { c.RegistrationMode = "magic" },
	} {
		c := memoryConfig()
		mutate(c)
		_, err := NewApp(context.Background(), c, logging.Nop{})
		assert.Error(t, err, name)
	}
}

func TestNewOTPStore_Redis(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)

	c := memoryConfig()
	c.OTPStore = config.OTPStoreRedis
	c.RedisAddr = mr.Addr()

	s, closer, err := newOTPStore(c)
	require.NoError(t, err)
	defer closer.Close()

	ctx := context.Background()
	require.NoError(t, s.Store(ctx, "a@x.com", "123456", time.Minute))
	ok, err := s.Verify(ctx, "a@x.com", "123456")
	require.NoError(t, err)
	assert.True(t, ok)

	p, isPinger := s.(store.Pinger)
	require.True(t, isPinger)
	assert.NoError(t, p.Ping(ctx))
}

func TestNewSender_Channels(t *testing.T) {
	t.Parallel()

	c := memoryConfig()
	c.SMTPHost, c.SMTPFrom = "smtp.example.com", "noreply@example.com"
	c.TwilioAccountSID, c.TwilioAuthToken, c.TwilioFromNumber = "AC1", "tok", "+15550000"
	c.AWSAccessKeyID, c.AWSSecretAccessKey = "AKIA", "secret"

	for channel, want := range map[string]string{
		config.SenderEmail:  "email",
		config.SenderTwilio: "twilio",
		config.SenderSNS:    "sns",
		config.SenderLog:    "log",
	} {
		c.OTPSender = channel
		s, err := newSender(context.Background(), c, logging.Nop{})
		require.NoError(t, err, channel)
		assert.Equal(t, want, s.Channel())
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	app, err := NewApp(context.Background(), memoryConfig(), logging.Nop{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	select {
	case err := <-done:
		t.Fatalf("app exited too early: %v", err)
	case <-time.After(150 * time.Millisecond):
	}

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop after cancel")
	}
}

func TestRun_FailsOnBadAddress(t *testing.T) {
	t.Parallel()

	c := memoryConfig()
	c.GRPCAddr = "127.0.0.1:99999"
	app, err := NewApp(context.Background(), c, logging.Nop{})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- app.Run(context.Background()) }()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not fail on a bad address")
	}
}
