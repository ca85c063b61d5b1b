// Package mail delivers the digest over SMTP.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"performance-meal-planner/internal/config"
)

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Sender sends plain-text mail through one SMTP relay.
type Sender struct {
	cfg  config.EmailConfig
	log  logrus.FieldLogger
	send sendFunc
	now  func() time.Time
}

// NewSender creates a Sender for the configured relay.
func NewSender(cfg config.EmailConfig, log logrus.FieldLogger) *Sender {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Sender{cfg: cfg, log: log, send: smtp.SendMail, now: time.Now}
}

// Recipients splits the configured To field on commas.
func (s *Sender) Recipients() []string {
	var out []string
	for _, r := range strings.Split(s.cfg.To, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

// Send delivers one message. Failures are logged and reported as false.
func (s *Sender) Send(ctx context.Context, subject, body string) bool {
	to := s.Recipients()
	if len(to) == 0 {
		s.log.Error("email delivery failed: no recipients")
		return false
	}
	if err := ctx.Err(); err != nil {
		s.log.WithError(err).Error("email delivery cancelled")
		return false
	}

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	msg := BuildMessage(s.cfg.From, to, subject, body, s.now())

	if err := s.send(addr, auth, s.cfg.From, to, msg); err != nil {
		s.log.WithError(err).WithField("addr", addr).Error("email delivery failed")
		return false
	}
	s.log.WithField("recipients", len(to)).Info("digest emailed")
	return true
}

// BuildMessage renders a UTF-8 plain-text message with CRLF line endings.
func BuildMessage(from string, to []string, subject, body string, date time.Time) []byte {
	var buf bytes.Buffer
	header := func(k, v string) { fmt.Fprintf(&buf, "%s: %s\r\n", k, v) }
	header("From", from)
	header("To", strings.Join(to, ", "))
	header("Subject", mime.QEncoding.Encode("utf-8", subject))
	header("Date", date.Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", `text/plain; charset="utf-8"`)
	header("Content-Transfer-Encoding", "8bit")
	buf.WriteString("\r\n")

	body = strings.ReplaceAll(body, "\r\n", "\n")
	for _, line := range strings.Split(body, "\n") {
		// SMTP treats a lone dot as end of data.
		if strings.HasPrefix(line, ".") {
			line = "." + line
		}
		buf.WriteString(line)
		buf.WriteString("\r\n")
	}
	return buf.Bytes()
}
