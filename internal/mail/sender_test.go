package mail

import (
	"context"
	"net/smtp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSender() *Sender {
	return NewSender(SMTPConfig{
		Addr:     "smtp.test:587",
		Host:     "smtp.test",
		User:     "mailer",
		Password: "secret",
		From:     "no-reply@bugtalk.test",
		FromName: "BugTalk",
	}, SenderOptions{
		AppName:     "BugTalk",
		FrontendURL: "https://bugtalk.test/",
		VerifyTTL:   15 * time.Minute,
		ResetTTL:    time.Hour,
	})
}

func TestComposeVerify(t *testing.T) {
	s := newTestSender()

	msg, err := s.Compose(Job{Kind: KindVerify, To: "jane@x.com", Token: "abc-123"})
	require.NoError(t, err)

	body := string(msg)
	assert.Contains(t, body, "To: jane@x.com")
	assert.Contains(t, body, "Subject: Confirm your email")
	assert.Contains(t, body, "https://bugtalk.test/verify/abc-123")
	assert.Contains(t, body, "15m0s")
}

func TestComposeReset(t *testing.T) {
	s := newTestSender()

	msg, err := s.Compose(Job{Kind: KindReset, To: "jane@x.com", Token: "tok"})
	require.NoError(t, err)
	assert.Contains(t, string(msg), "https://bugtalk.test/password-reset/tok")
	assert.Contains(t, string(msg), "1h0m0s")
}

func TestComposeUnknownKind(t *testing.T) {
	_, err := newTestSender().Compose(Job{Kind: "welcome", To: "jane@x.com"})
	require.Error(t, err)
}

func TestSendUsesSMTPSettings(t *testing.T) {
	s := newTestSender()

	var gotAddr, gotFrom string
	var gotTo []string
	var gotAuth smtp.Auth
	s.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotFrom, gotTo = addr, a, from, to
		return nil
	}

	require.NoError(t, s.Send(context.Background(), Job{Kind: KindVerify, To: "jane@x.com", Token: "t"}))
	assert.Equal(t, "smtp.test:587", gotAddr)
	assert.Equal(t, "no-reply@bugtalk.test", gotFrom)
	assert.Equal(t, []string{"jane@x.com"}, gotTo)
	assert.NotNil(t, gotAuth)
}
