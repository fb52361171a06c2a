package email

import (
	"context"
	"net/smtp"
	"testing"

	"github.com/smallbiznis/storefront/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSMTPSendBuildsMessage(t *testing.T) {
	p := NewSMTP(Config{Host: "mail.example.com", Port: 2525, From: "orders@example.com"})
	var (
		gotAddr string
		gotAuth smtp.Auth
		gotTo   []string
		gotMsg  string
	)
	p.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotTo, gotMsg = addr, a, to, string(msg)
		return nil
	}

	require.NoError(t, p.Send(context.Background(), []string{"a@example.com", "b@example.com"}, "Order confirmed", "<p>hi</p>"))
	assert.Equal(t, "mail.example.com:2525", gotAddr)
	assert.Nil(t, gotAuth)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, gotTo)
	assert.Contains(t, gotMsg, "To: a@example.com, b@example.com\r\n")
	assert.Contains(t, gotMsg, "Subject: Order confirmed\r\n")
	assert.Contains(t, gotMsg, "<p>hi</p>")
}

func TestSMTPSendRequiresRecipients(t *testing.T) {
	assert.Error(t, NewSMTP(Config{}).Send(context.Background(), nil, "s", "b"))
}

func TestNewFromConfigFallsBackToNoOp(t *testing.T) {
	_, ok := NewFromConfig(config.Config{}, zap.NewNop()).(*NoOpProvider)
	assert.True(t, ok)

	_, ok = NewFromConfig(config.Config{SMTP: config.SMTPConfig{Host: "mail", Port: 25}}, zap.NewNop()).(*SMTPProvider)
	assert.True(t, ok)
}
