package services

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/huangang/projecthub/internal/config"
	"github.com/huangang/projecthub/pkg/logger"
)

const smtpTimeout = 5 * time.Second

// Mailer sends one message to a set of recipients.
type Mailer interface {
	Send(ctx context.Context, to []string, subject, htmlBody string) error
}

type EmailService struct {
	config config.EmailConfig
}

func NewEmailService(cfg config.EmailConfig) *EmailService {
	return &EmailService{config: cfg}
}

func (s *EmailService) Enabled() bool {
	return s.config.Enabled && s.config.Host != ""
}

// Send is a no-op when email is disabled.
func (s *EmailService) Send(ctx context.Context, to []string, subject, htmlBody string) error {
	if !s.Enabled() || len(to) == 0 {
		return nil
	}

	from := s.config.From
	if from == "" {
		from = s.config.Username
	}
	message := buildMessage(from, to, subject, htmlBody)

	ctx, cancel := context.WithTimeout(ctx, smtpTimeout)
	defer cancel()

	if err := s.deliver(ctx, from, to, message); err != nil {
		logger.Error().Err(err).Strs("to", to).Msg("failed to send email")
		return err
	}
	logger.Info().Strs("to", to).Str("subject", subject).Msg("email sent")
	return nil
}

func (s *EmailService) deliver(ctx context.Context, from string, to []string, message string) error {
	addr := net.JoinHostPort(s.config.Host, fmt.Sprint(s.config.Port))
	tlsConfig := &tls.Config{ServerName: s.config.Host}

	dialer := &net.Dialer{Timeout: smtpTimeout}
	var conn net.Conn
	var err error
	if s.config.UseTLS {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: tlsConfig}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		conn.Close()
		return err
	}
	defer client.Close()

	if !s.config.UseTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(tlsConfig); err != nil {
				return err
			}
		}
	}

	if s.config.Username != "" && s.config.Password != "" {
		if err := client.Auth(smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)); err != nil {
			return err
		}
	}

	if err := client.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}

	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte(message)); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func buildMessage(from string, to []string, subject, body string) string {
	var message strings.Builder
	message.WriteString("From: " + from + "\r\n")
	message.WriteString("To: " + strings.Join(to, ",") + "\r\n")
	message.WriteString("Subject: " + subject + "\r\n")
	message.WriteString("MIME-Version: 1.0\r\n")
	message.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	message.WriteString("\r\n")
	message.WriteString(body)
	return message.String()
}
