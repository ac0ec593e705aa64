package sender

import (
	"context"

	"github.com/dmitrijs2005/credcore/internal/logging"
)

// Log is a development sender. It records that a code was dispatched and
// only includes the code itself when revealCode is set (never in production).
type Log struct {
	log        logging.Logger
	revealCode bool
}

func NewLog(log logging.Logger, revealCode bool) *Log {
	return &Log{log: log.With("module", "otp-sender", "channel", "log"), revealCode: revealCode}
}

func (l *Log) Channel() string { return "log" }
func (l *Log) Medium() Medium  { return MediumEmail }

func (l *Log) Send(ctx context.Context, recipient, code, contextID string) Result {
	if l.revealCode {
		l.log.Info(ctx, "otp dispatched", "recipient", recipient, "context_id", contextID, "dev_code", code)
	} else {
		l.log.Info(ctx, "otp dispatched", "recipient", recipient, "context_id", contextID)
	}
	return ok()
}
