// Package email delivers HTML mail over SMTP.
package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"time"

	"github.com/remessasegura/backend/internal/core"
	"go.uber.org/zap"
)

const defaultTimeout = 30 * time.Second

var errNoTLS = errors.New("smtp server does not offer STARTTLS")

// Config holds SMTP settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	// ImplicitTLS dials TLS directly (port 465). Otherwise STARTTLS is
	// required.
	ImplicitTLS bool
	// AllowInsecure permits plaintext delivery when the server does not
	// offer STARTTLS, e.g. a local relay in development.
	AllowInsecure bool
	Timeout       time.Duration
}

// Email sends one message per connection.
type Email struct {
	cfg    Config
	now    func() time.Time
	logger *zap.Logger
}

// New creates an SMTP sender.
func New(cfg Config, logger *zap.Logger) *Email {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Email{cfg: cfg, now: time.Now, logger: logger}
}

// Send delivers an HTML message to one recipient.
func (e *Email) Send(ctx context.Context, to, subject, html string) error {
	msg, err := e.buildMessage(to, subject, html)
	if err != nil {
		return core.WrapError(core.ErrNotifierFailed, err)
	}
	if err := e.deliver(ctx, to, msg); err != nil {
		e.logger.Warn("smtp delivery failed",
			zap.String("host", e.cfg.Host),
			zap.Error(err),
		)
		return core.WrapError(core.ErrNotifierFailed, err)
	}
	e.logger.Debug("email sent", zap.String("subject", subject))
	return nil
}

func (e *Email) buildMessage(to, subject, html string) ([]byte, error) {
	from := mail.Address{Name: e.cfg.FromName, Address: e.cfg.From}
	rcpt, err := mail.ParseAddress(to)
	if err != nil {
		return nil, fmt.Errorf("parse recipient: %w", err)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", from.String())
	fmt.Fprintf(&buf, "To: %s\r\n", rcpt.String())
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("UTF-8", subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", e.now().Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	buf.WriteString("Content-Transfer-Encoding: quoted-printable\r\n")
	buf.WriteString("\r\n")

	qp := quotedprintable.NewWriter(&buf)
	if _, err := qp.Write([]byte(html)); err != nil {
		return nil, err
	}
	if err := qp.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *Email) deliver(ctx context.Context, to string, msg []byte) error {
	addr := net.JoinHostPort(e.cfg.Host, strconv.Itoa(e.cfg.Port))

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	tlsConfig := &tls.Config{ServerName: e.cfg.Host, MinVersion: tls.VersionTLS12}
	if e.cfg.ImplicitTLS {
		conn = tls.Client(conn, tlsConfig)
	}

	c, err := smtp.NewClient(conn, e.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer c.Close()

	if !e.cfg.ImplicitTLS {
		ok, _ := c.Extension("STARTTLS")
		switch {
		case ok:
			if err := c.StartTLS(tlsConfig); err != nil {
				return fmt.Errorf("starttls: %w", err)
			}
		case e.cfg.AllowInsecure:
			e.logger.Warn("smtp server does not offer STARTTLS, sending in plaintext",
				zap.String("host", e.cfg.Host))
		default:
			return errNoTLS
		}
	}
	if e.cfg.Username != "" {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.Host)); err != nil {
				return fmt.Errorf("smtp auth: %w", err)
			}
		}
	}

	if err := c.Mail(e.cfg.From); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := c.Rcpt(to); err != nil {
		return fmt.Errorf("rcpt to: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close body: %w", err)
	}
	return c.Quit()
}

// Log stands in for SMTP when no host is configured. It records the
// attempt without the body, which may carry secrets.
type Log struct {
	logger *zap.Logger
}

// NewLog creates a log-only sender.
func NewLog(logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{logger: logger}
}

func (l *Log) Send(ctx context.Context, to, subject, html string) error {
	l.logger.Warn("smtp not configured, email dropped",
		zap.String("subject", subject),
		zap.Int("body_bytes", len(html)),
	)
	return nil
}
