// Package sender delivers one-time passcodes over a single channel chosen at
// startup: SMTP email, Twilio SMS, AWS SNS SMS, or a development log sink.
//
// Senders never return transport errors to the caller. Timeouts, rejected
// credentials, bad recipients and even provider panics come back as a
// Result with OK=false and a short reason.
package sender

import (
	"context"
	"fmt"
)

// Medium is the kind of address a channel delivers to.
type Medium string

const (
	MediumEmail Medium = "email"
	MediumSMS   Medium = "sms"
)

// Result reports the outcome of one delivery attempt.
type Result struct {
	OK     bool
	Reason string
}

func ok() Result {
	return Result{OK: true}
}

func failed(format string, args ...any) Result {
	return Result{Reason: fmt.Sprintf(format, args...)}
}

// Sender delivers code to recipient. contextID ties the attempt to a user or
// request in provider logs and must not carry secrets.
type Sender interface {
	Send(ctx context.Context, recipient, code, contextID string) Result
	Channel() string
	Medium() Medium
}

// guard turns a panic inside fn into a failed Result.
func guard(fn func() Result) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			res = failed("provider panic: %v", p)
		}
	}()
	return fn()
}
