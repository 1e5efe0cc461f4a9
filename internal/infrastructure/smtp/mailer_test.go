package smtp

import (
	"context"
	"net/smtp"
	"testing"

	"github.com/storefront-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captured struct {
	addr string
	auth smtp.Auth
	from string
	to   []string
	body string
}

func newTestMailer(cfg *config.Config, c *captured) *mailer {
	m := NewMailer(cfg).(*mailer)
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		*c = captured{addr: addr, auth: a, from: from, to: to, body: string(msg)}
		return nil
	}
	return m
}

func TestSend_UsesDefaultSenderAndHTMLHeaders(t *testing.T) {
	var c captured
	m := newTestMailer(&config.Config{SMTPHost: "mail.local", SMTPPort: "2525", SMTPFrom: "noreply@shop.test"}, &c)

	err := m.Send(context.Background(), Message{To: "a@b.com", Subject: "Your code", HTML: "<p>123456</p>"})
	require.NoError(t, err)

	assert.Equal(t, "mail.local:2525", c.addr)
	assert.Nil(t, c.auth)
	assert.Equal(t, "noreply@shop.test", c.from)
	assert.Equal(t, []string{"a@b.com"}, c.to)
	assert.Contains(t, c.body, "Content-Type: text/html; charset=UTF-8\r\n")
	assert.Contains(t, c.body, "Subject: Your code\r\n")
	assert.Contains(t, c.body, "\r\n\r\n<p>123456</p>")
}

func TestSend_ExplicitFromAndAuth(t *testing.T) {
	var c captured
	m := newTestMailer(&config.Config{SMTPHost: "mail.local", SMTPPort: "25", SMTPFrom: "noreply@shop.test", SMTPUsername: "u", SMTPPassword: "p"}, &c)

	require.NoError(t, m.Send(context.Background(), Message{From: "billing@shop.test", To: "a@b.com"}))
	assert.Equal(t, "billing@shop.test", c.from)
	assert.NotNil(t, c.auth)
}

func TestSend_NoRecipient(t *testing.T) {
	var c captured
	m := newTestMailer(&config.Config{}, &c)
	assert.ErrorIs(t, m.Send(context.Background(), Message{}), ErrNoRecipient)
}

func TestSend_CancelledContext(t *testing.T) {
	var c captured
	m := newTestMailer(&config.Config{}, &c)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.Send(ctx, Message{To: "a@b.com"}), context.Canceled)
}
