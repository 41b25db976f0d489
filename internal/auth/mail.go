package auth

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/tathang/foodcourt/internal/config"
)

// Sender delivers mail fire-and-forget; callers log failures and never retry.
type Sender interface {
	Send(to, subject, body string) error
}

type SMTPSender struct {
	cfg config.SMTP
}

func NewSMTPSender(cfg config.SMTP) *SMTPSender { return &SMTPSender{cfg: cfg} }

func (s *SMTPSender) Send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		s.cfg.From, to, subject, body)

	var a smtp.Auth
	if s.cfg.Username != "" {
		host := s.cfg.Addr
		if i := strings.IndexByte(host, ':'); i >= 0 {
			host = host[:i]
		}
		a = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, host)
	}
	return smtp.SendMail(s.cfg.Addr, a, s.cfg.From, []string{to}, []byte(msg))
}
