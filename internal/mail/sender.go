package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/smtp"
	"net/url"
	"strings"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type SMTPConfig struct {
	Addr     string
	Host     string
	User     string
	Password string
	From     string
	FromName string
}

type SenderOptions struct {
	AppName     string
	FrontendURL string
	VerifyTTL   time.Duration
	ResetTTL    time.Duration
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Sender renders mail jobs and delivers them over SMTP.
type Sender struct {
	smtp SMTPConfig
	opts SenderOptions
	send sendFunc
}

func NewSender(cfg SMTPConfig, opts SenderOptions) *Sender {
	return &Sender{smtp: cfg, opts: opts, send: smtp.SendMail}
}

func (s *Sender) Send(ctx context.Context, job Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := s.Compose(job)
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if s.smtp.User != "" {
		auth = smtp.PlainAuth("", s.smtp.User, s.smtp.Password, s.smtp.Host)
	}
	if err := s.send(s.smtp.Addr, auth, s.smtp.From, []string{job.To}, msg); err != nil {
		return fmt.Errorf("smtp send to %s failed: %w", job.To, err)
	}
	return nil
}

// Compose builds the full RFC 5322 message for job.
func (s *Sender) Compose(job Job) ([]byte, error) {
	var (
		subject string
		link    string
		ttl     time.Duration
	)
	switch job.Kind {
	case KindVerify:
		subject = "Confirm your email"
		link = s.link("verify", job.Token)
		ttl = s.opts.VerifyTTL
	case KindReset:
		subject = "Reset your password"
		link = s.link("password-reset", job.Token)
		ttl = s.opts.ResetTTL
	default:
		return nil, fmt.Errorf("unknown mail kind %q", job.Kind)
	}

	var body bytes.Buffer
	err := templates.ExecuteTemplate(&body, string(job.Kind)+".html", map[string]string{
		"AppName": s.opts.AppName,
		"Link":    link,
		"TTL":     ttl.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("render %s template failed: %w", job.Kind, err)
	}

	headers := []string{
		fmt.Sprintf("From: %s <%s>", s.smtp.FromName, s.smtp.From),
		fmt.Sprintf("To: %s", job.To),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		`Content-Type: text/html; charset="UTF-8"`,
		"",
		body.String(),
	}
	return []byte(strings.Join(headers, "\r\n")), nil
}

func (s *Sender) link(path, token string) string {
	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.opts.FrontendURL, "/"), path, url.PathEscape(token))
}
