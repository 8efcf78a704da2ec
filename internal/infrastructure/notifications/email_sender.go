package notifications

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"net/smtp"
	"time"

	"github.com/google/uuid"
	"github.com/tawqeea/marketplace-backend/internal/domain/providers"
	"github.com/tawqeea/marketplace-backend/pkg/config"
)

// sendFunc matches smtp.SendMail and is swappable for tests
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender delivers emails with attachments over SMTP
type SMTPSender struct {
	addr     string
	from     string
	auth     smtp.Auth
	send     sendFunc
	hostname string
}

// NewSMTPSender creates a new SMTP sender
func NewSMTPSender(cfg *config.SMTPConfig) (*SMTPSender, error) {
	if cfg.Host == "" || cfg.From == "" {
		return nil, fmt.Errorf("SMTP host and from address must be configured")
	}

	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	return &SMTPSender{
		addr:     cfg.SMTPAddr(),
		from:     cfg.From,
		auth:     auth,
		send:     smtp.SendMail,
		hostname: cfg.Host,
	}, nil
}

// SendDocument delivers the document to every recipient and reports each
// outcome. Recipients are attempted independently so one failing mailbox does
// not block the other party's copy.
func (s *SMTPSender) SendDocument(ctx context.Context, recipients []string, subject, body string, attachment providers.Attachment) []providers.SendResult {
	results := make([]providers.SendResult, 0, len(recipients))

	for _, recipient := range recipients {
		result := providers.SendResult{Recipient: recipient}

		select {
		case <-ctx.Done():
			result.Err = ctx.Err()
			results = append(results, result)
			continue
		default:
		}

		messageID := fmt.Sprintf("<%s@%s>", uuid.New().String(), s.hostname)
		msg := s.buildMessage(messageID, recipient, subject, body, attachment)

		if err := s.send(s.addr, s.auth, s.from, []string{recipient}, msg); err != nil {
			result.Err = fmt.Errorf("failed to send to %s: %w", recipient, err)
		} else {
			result.MessageID = messageID
		}
		results = append(results, result)
	}

	return results
}

// SendText delivers a plain-text email to every recipient independently
func (s *SMTPSender) SendText(ctx context.Context, recipients []string, subject, body string) []providers.SendResult {
	results := make([]providers.SendResult, 0, len(recipients))

	for _, recipient := range recipients {
		result := providers.SendResult{Recipient: recipient}

		select {
		case <-ctx.Done():
			result.Err = ctx.Err()
			results = append(results, result)
			continue
		default:
		}

		messageID := fmt.Sprintf("<%s@%s>", uuid.New().String(), s.hostname)
		msg := s.buildTextMessage(messageID, recipient, subject, body)

		if err := s.send(s.addr, s.auth, s.from, []string{recipient}, msg); err != nil {
			result.Err = fmt.Errorf("failed to send to %s: %w", recipient, err)
		} else {
			result.MessageID = messageID
		}
		results = append(results, result)
	}

	return results
}

func (s *SMTPSender) buildTextMessage(messageID, to, subject, body string) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Message-ID: %s\r\n", messageID)
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	fmt.Fprintf(&buf, "From: %s\r\n", s.from)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(body)
	buf.WriteString("\r\n")
	return buf.Bytes()
}

// buildMessage assembles a multipart MIME message with one attachment
func (s *SMTPSender) buildMessage(messageID, to, subject, body string, attachment providers.Attachment) []byte {
	boundary := "==nda-document-boundary=="

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Message-ID: %s\r\n", messageID)
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	fmt.Fprintf(&buf, "From: %s\r\n", s.from)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n", boundary)
	buf.WriteString("\r\n")

	fmt.Fprintf(&buf, "--%s\r\n", boundary)
	buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	buf.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(body)
	buf.WriteString("\r\n")

	contentType := attachment.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	fmt.Fprintf(&buf, "--%s\r\n", boundary)
	fmt.Fprintf(&buf, "Content-Type: %s; name=%q\r\n", contentType, attachment.Filename)
	buf.WriteString("Content-Transfer-Encoding: base64\r\n")
	fmt.Fprintf(&buf, "Content-Disposition: attachment; filename=%q\r\n", attachment.Filename)
	buf.WriteString("\r\n")

	encoded := base64.StdEncoding.EncodeToString(attachment.Content)
	for len(encoded) > 76 {
		buf.WriteString(encoded[:76])
		buf.WriteString("\r\n")
		encoded = encoded[76:]
	}
	buf.WriteString(encoded)
	buf.WriteString("\r\n")

	fmt.Fprintf(&buf, "--%s--\r\n", boundary)

	return buf.Bytes()
}
