// Package server assembles the credential service from configuration and runs
// its HTTP and gRPC front ends until the process is told to stop.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/credcore/internal/logging"
	"github.com/dmitrijs2005/credcore/internal/server/auth"
	"github.com/dmitrijs2005/credcore/internal/server/config"
	gs "github.com/dmitrijs2005/credcore/internal/server/grpc"
	"github.com/dmitrijs2005/credcore/internal/server/httpapi"
	"github.com/dmitrijs2005/credcore/internal/server/metrics"
	"github.com/dmitrijs2005/credcore/internal/server/otp"
	"github.com/dmitrijs2005/credcore/internal/server/otp/sender"
	"github.com/dmitrijs2005/credcore/internal/server/otp/store"
	"github.com/dmitrijs2005/credcore/internal/server/ratelimit"
	"github.com/dmitrijs2005/credcore/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/credcore/internal/server/services"
)

const (
	shutdownTimeout = 10 * time.Second
	sweepInterval   = time.Minute
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	repos   repomanager.RepositoryManager
	otps    store.Store
	service *services.CredentialService
	metrics *metrics.Metrics
	health  *httpapi.Health
	closers []io.Closer
}

// NewApp builds every component selected by c. Backends are opened and
// migrations applied here, so a misconfigured store fails before serving.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	app := &App{config: c, logger: logger, metrics: metrics.New(), health: httpapi.NewHealth()}
	built := false
	defer func() {
		if !built {
			app.close()
		}
	}()

	var err error
	if app.repos, err = newRepositoryManager(ctx, c); err != nil {
		return nil, err
	}
	app.closers = append(app.closers, app.repos)
	app.health.Register("user_store", app.repos.Ping)

	otps, closer, err := newOTPStore(c)
	if err != nil {
		return nil, err
	}
	app.otps = otps
	if closer != nil {
		app.closers = append(app.closers, closer)
	}
	if p, ok := otps.(store.Pinger); ok {
		app.health.Register("otp_store", p.Ping)
	}

	snd, err := newSender(ctx, c, logger)
	if err != nil {
		return nil, err
	}

	issuer, err := auth.NewIssuer(c.SecretKey, c.SigningAlgorithm, c.Issuer)
	if err != nil {
		return nil, err
	}
	gen, err := otp.NewGenerator(c.OTPLength)
	if err != nil {
		return nil, err
	}

	app.service, err = services.NewCredentialService(services.Deps{
		Repos:     app.repos,
		Issuer:    issuer,
		Hasher:    auth.NewArgon2Hasher(auth.DefaultArgon2Params),
		Generator: gen,
		OTPStore:  otps,
		Sender:    snd,
		Limiter:   ratelimit.NewPerMinute(c.OTPRequestsPerMinute, c.OTPRequestBurst),
		Metrics:   app.metrics,
		Logger:    logger,
	}, services.Options{
		AccessTTL:        c.AccessTokenTTL,
		RefreshTTL:       c.RefreshTokenTTL,
		OTPTTL:           c.OTPTTL,
		SendTimeout:      c.SendTimeout,
		RegistrationMode: c.RegistrationMode,
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "app configured",
		"user_store", c.UserStore,
		"otp_store", c.OTPStore,
		"otp_sender", snd.Channel(),
		"registration_mode", c.RegistrationMode)
	built = true
	return app, nil
}

func newRepositoryManager(ctx context.Context, c *config.Config) (repomanager.RepositoryManager, error) {
	switch c.UserStore {
	case config.UserStoreMemory:
		return repomanager.NewMemoryRepositoryManager(), nil
	case config.UserStorePostgres:
		db, err := repomanager.OpenPostgres(c.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		rm := repomanager.NewPostgresRepositoryManager(db, c.DBTimeout)
		if err := rm.RunMigrations(ctx); err != nil {
			_ = rm.Close()
			return nil, fmt.Errorf("db init error: %w", err)
		}
		return rm, nil
	default:
		return nil, fmt.Errorf("unknown user store %q", c.UserStore)
	}
}

func newOTPStore(c *config.Config) (store.Store, io.Closer, error) {
	switch c.OTPStore {
	case config.OTPStoreMemory:
		return store.NewMemory(), nil, nil
	case config.OTPStoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		})
		return store.NewRedis(client, c.DBTimeout), client, nil
	default:
		return nil, nil, fmt.Errorf("unknown otp store %q", c.OTPStore)
	}
}

func newSender(ctx context.Context, c *config.Config, logger logging.Logger) (sender.Sender, error) {
	switch c.OTPSender {
	case config.SenderEmail:
		return sender.NewEmail(sender.EmailConfig{
			Host:     c.SMTPHost,
			Port:     c.SMTPPort,
			Username: c.SMTPUsername,
			Password: c.SMTPPassword,
			From:     c.SMTPFrom,
			Timeout:  c.SendTimeout,
			TTL:      c.OTPTTL,
		}), nil
	case config.SenderTwilio:
		return sender.NewTwilio(sender.TwilioConfig{
			AccountSID: c.TwilioAccountSID,
			AuthToken:  c.TwilioAuthToken,
			FromNumber: c.TwilioFromNumber,
			BaseURL:    c.TwilioBaseURL,
			Timeout:    c.SendTimeout,
			TTL:        c.OTPTTL,
		}, logger), nil
	case config.SenderSNS:
		return sender.NewSNS(ctx, sender.SNSConfig{
			Region:          c.AWSRegion,
			AccessKeyID:     c.AWSAccessKeyID,
			SecretAccessKey: c.AWSSecretAccessKey,
			Endpoint:        c.SNSEndpoint,
			Timeout:         c.SendTimeout,
			TTL:             c.OTPTTL,
		})
	case config.SenderLog:
		// codes are only echoed outside production
		return sender.NewLog(logger, !c.Production), nil
	default:
		return nil, fmt.Errorf("unknown otp sender %q", c.OTPSender)
	}
}

func (app *App) close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i].Close(); err != nil {
			app.logger.Warn(context.Background(), "close failed", "error", err)
		}
	}
	app.closers = nil
}

// Handler returns the HTTP API.
func (app *App) Handler() http.Handler {
	return httpapi.NewRouter(app.service, app.health, app.metrics, app.logger)
}

func (app *App) serveHTTP(ctx context.Context) error {
	srv := &http.Server{
		Addr:              app.config.HTTPAddr,
		Handler:           app.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	stop := context.AfterFunc(ctx, func() {
		app.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Warn(ctx, "http shutdown", "error", err)
		}
	})
	defer stop()

	app.logger.Info(ctx, "Starting HTTP server", "address", app.config.HTTPAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Run serves until ctx is cancelled or one server fails. Either way every
// server is stopped, in-flight OTP deliveries drain and backends are closed.
func (app *App) Run(ctx context.Context) error {
	app.logger.Info(ctx, "Starting app...")

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return app.serveHTTP(ctx)
	})
	g.Go(func() error {
		return gs.NewGRPCServer(app.config.GRPCAddr, app.logger, app.service).Run(ctx)
	})
	if m, ok := app.otps.(*store.Memory); ok {
		g.Go(func() error {
			return m.RunSweeper(ctx, sweepInterval)
		})
	}

	err := g.Wait()
	app.service.Wait()
	app.close()

	app.logger.Info(context.WithoutCancel(ctx), "App stopped")
	return err
}

// RunWithSignals runs the app until SIGINT, SIGTERM or SIGQUIT.
func (app *App) RunWithSignals(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()
	return app.Run(ctx)
}
