package sender

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/credcore/internal/server/otp"
)

const implicitTLSPort = 465

type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
	// TTL is quoted in the message body.
	TTL time.Duration
}

// Email delivers codes over SMTP. Port 465 uses implicit TLS; any other port
// upgrades with STARTTLS when the server offers it.
type Email struct {
	cfg EmailConfig
}

func NewEmail(cfg EmailConfig) *Email {
	return &Email{cfg: cfg}
}

func (e *Email) Channel() string { return "email" }
func (e *Email) Medium() Medium  { return MediumEmail }

func (e *Email) Send(ctx context.Context, recipient, code, contextID string) Result {
	return guard(func() Result {
		if recipient == "" || strings.ContainsAny(recipient, "\r\n") {
			return failed("invalid recipient")
		}
		if err := e.deliver(ctx, recipient, e.message(recipient, code, contextID)); err != nil {
			return failed("smtp: %v", err)
		}
		return ok()
	})
}

func (e *Email) message(to, code, contextID string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", e.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	b.WriteString("Subject: Your one-time passcode\r\n")
	if contextID != "" {
		fmt.Fprintf(&b, "X-Request-Context: %s\r\n", contextID)
	}
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(otp.Message(code, e.cfg.TTL))
	b.WriteString("\r\n")
	return []byte(b.String())
}

func (e *Email) deliver(ctx context.Context, to string, msg []byte) error {
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	addr := net.JoinHostPort(e.cfg.Host, strconv.Itoa(e.cfg.Port))
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	tlsConfig := &tls.Config{ServerName: e.cfg.Host}
	if e.cfg.Port == implicitTLSPort {
		tc := tls.Client(conn, tlsConfig)
		if err := tc.HandshakeContext(ctx); err != nil {
			return err
		}
		conn = tc
	}

	client, err := smtp.NewClient(conn, e.cfg.Host)
	if err != nil {
		return err
	}
	defer client.Close()

	if e.cfg.Port != implicitTLSPort {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(tlsConfig); err != nil {
				return err
			}
		}
	}

	if e.cfg.Username != "" {
		auth := smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return err
		}
	}

	if err := client.Mail(e.cfg.From); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}

	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	return client.Quit()
}
