package sender

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/dmitrijs2005/credcore/internal/logging"
	"github.com/dmitrijs2005/credcore/internal/server/otp"
)

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	// BaseURL defaults to https://api.twilio.com.
	BaseURL string
	Timeout time.Duration
	TTL     time.Duration
}

// Twilio sends SMS through the Messages REST API. Transport errors and 5xx
// answers count against a circuit breaker; while it is open, sends fail fast.
// 4xx answers (bad number, rejected credentials) are reported but do not
// trip the breaker.
type Twilio struct {
	cfg     TwilioConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[twilioOutcome]
}

type twilioOutcome struct {
	sid    string
	reject string
}

type twilioError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type twilioMessage struct {
	SID string `json:"sid"`
}

func NewTwilio(cfg TwilioConfig, log logging.Logger) *Twilio {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.twilio.com"
	}
	log = log.With("module", "otp-sender", "channel", "twilio")

	settings := gobreaker.Settings{
		Name:        "twilio",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn(context.Background(), "circuit breaker state change",
				"breaker", name, "from", from.String(), "to", to.String())
		},
	}

	return &Twilio{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: gobreaker.NewCircuitBreaker[twilioOutcome](settings),
	}
}

func (t *Twilio) Channel() string { return "twilio" }
func (t *Twilio) Medium() Medium  { return MediumSMS }

func (t *Twilio) State() gobreaker.State {
	return t.breaker.State()
}

func (t *Twilio) Send(ctx context.Context, recipient, code, contextID string) Result {
	return guard(func() Result {
		if recipient == "" {
			return failed("invalid recipient")
		}

		out, err := t.breaker.Execute(func() (twilioOutcome, error) {
			return t.post(ctx, recipient, otp.Message(code, t.cfg.TTL))
		})
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			return failed("twilio: circuit open")
		case err != nil:
			return failed("twilio: %v", err)
		case out.reject != "":
			return failed("twilio rejected: %s", out.reject)
		}
		return ok()
	})
}

func (t *Twilio) post(ctx context.Context, to, body string) (twilioOutcome, error) {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json",
		strings.TrimRight(t.cfg.BaseURL, "/"), url.PathEscape(t.cfg.AccountSID))

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", t.cfg.FromNumber)
	form.Set("Body", body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return twilioOutcome{}, err
	}
	req.SetBasicAuth(t.cfg.AccountSID, t.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return twilioOutcome{}, err
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	switch {
	case resp.StatusCode >= 500:
		return twilioOutcome{}, fmt.Errorf("server error %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		var te twilioError
		if json.Unmarshal(data, &te) == nil && te.Message != "" {
			return twilioOutcome{reject: fmt.Sprintf("%d %s", te.Code, te.Message)}, nil
		}
		return twilioOutcome{reject: fmt.Sprintf("status %d", resp.StatusCode)}, nil
	}

	var msg twilioMessage
	_ = json.Unmarshal(data, &msg)
	return twilioOutcome{sid: msg.SID}, nil
}
