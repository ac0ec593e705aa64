package sender

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrijs2005/credcore/internal/logging"
)

func TestGuard_RecoversPanic(t *testing.T) {
	res := guard(func() Result { panic("boom") })
	assert.False(t, res.OK)
	assert.Contains(t, res.Reason, "boom")
}

func TestGuard_PassesThrough(t *testing.T) {
	assert.Equal(t, ok(), guard(ok))
	assert.Equal(t, Result{Reason: "x 1"}, guard(func() Result { return failed("x %d", 1) }))
}

type capturingLogger struct {
	logging.Nop
	args [][]any
}

func (c *capturingLogger) Info(_ context.Context, _ string, args ...any) {
	c.args = append(c.args, args)
}

func (c *capturingLogger) With(...any) logging.Logger { return c }

func TestLog_HidesCodeUnlessRevealed(t *testing.T) {
	l := &capturingLogger{}

	res := NewLog(l, false).Send(context.Background(), "a@x.com", "123456", "ctx-1")
	assert.True(t, res.OK)
	assert.NotContains(t, l.args[0], "123456")

	res = NewLog(l, true).Send(context.Background(), "a@x.com", "123456", "ctx-1")
	assert.True(t, res.OK)
	assert.Contains(t, l.args[1], "123456")
}

func TestChannelsAndMedia(t *testing.T) {
	cases := []struct {
		s       Sender
		channel string
		medium  Medium
	}{
		{NewLog(logging.Nop{}, false), "log", MediumEmail},
		{NewEmail(EmailConfig{}), "email", MediumEmail},
		{NewTwilio(TwilioConfig{}, logging.Nop{}), "twilio", MediumSMS},
		{NewSNSWithClient(nil, 0, 0), "sns", MediumSMS},
	}
	for _, c := range cases {
		assert.Equal(t, c.channel, c.s.Channel())
		assert.Equal(t, c.medium, c.s.Medium())
	}
}
