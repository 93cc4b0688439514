package service

import (
	"bytes"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"io"
	"net/smtp"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"webmail/config"
	"webmail/models"
)

// Relay delivers stored messages to an upstream SMTP server. Delivery is
// best effort: the mailbox service has already persisted the message by
// the time Send runs, so failures are reported to the caller for logging
// only.
type Relay struct {
	cfg config.SMTPConfig
}

// NewRelay creates a relay from config, or nil when relaying is disabled.
func NewRelay(cfg config.SMTPConfig) *Relay {
	if !cfg.Enabled {
		return nil
	}
	return &Relay{cfg: cfg}
}

// Send transmits the message, with attachments read from their stored
// paths.
func (r *Relay) Send(email *models.Email) error {
	addr := fmt.Sprintf("%s:%d", r.cfg.Server, r.cfg.Port)
	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}
	defer client.Close()

	if err := client.Hello(domainOf(email.From)); err != nil {
		return fmt.Errorf("hello failed: %w", err)
	}

	if r.cfg.UseSTARTTLS {
		tlsConfig := &tls.Config{ServerName: r.cfg.Server}
		if err := client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("starttls failed: %w", err)
		}
	}

	if r.cfg.Username != "" {
		auth := smtp.PlainAuth("", r.cfg.Username, r.cfg.Password, r.cfg.Server)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("auth failed: %w", err)
		}
	}

	if err := client.Mail(email.From); err != nil {
		return fmt.Errorf("mail from failed: %w", err)
	}
	for _, rcpt := range recipients(email) {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("rcpt %s failed: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("data failed: %w", err)
	}
	if err := writeMessage(w, email); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("data close failed: %w", err)
	}

	return client.Quit()
}

// recipients flattens to, cc and bcc.
func recipients(email *models.Email) []string {
	out := make([]string, 0, len(email.To)+len(email.Cc)+len(email.Bcc))
	out = append(out, email.To...)
	out = append(out, email.Cc...)
	out = append(out, email.Bcc...)
	return out
}

func domainOf(addr string) string {
	if i := strings.LastIndex(addr, "@"); i >= 0 && i < len(addr)-1 {
		return addr[i+1:]
	}
	return "localhost"
}

// writeMessage renders RFC 5322 headers plus a MIME body: plain text,
// multipart/alternative when HTML is present, wrapped in multipart/mixed
// when attachments exist. Bcc is omitted from the headers.
func writeMessage(w io.Writer, email *models.Email) error {
	mixedBoundary := "mixed-" + uuid.New().String()
	altBoundary := "alt-" + uuid.New().String()
	hasAttachments := len(email.Attachments) > 0
	hasHTML := email.HTML != ""

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	fmt.Fprintf(&buf, "From: %s\r\n", email.From)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(email.To, ", "))
	if len(email.Cc) > 0 {
		fmt.Fprintf(&buf, "Cc: %s\r\n", strings.Join(email.Cc, ", "))
	}
	fmt.Fprintf(&buf, "Subject: %s\r\n", email.Subject)
	fmt.Fprintf(&buf, "Message-ID: %s\r\n", email.MessageID)
	buf.WriteString("MIME-Version: 1.0\r\n")

	switch {
	case hasAttachments:
		fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", mixedBoundary)
	case hasHTML:
		fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", altBoundary)
	default:
		buf.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	}

	if hasAttachments {
		fmt.Fprintf(&buf, "--%s\r\n", mixedBoundary)
		if hasHTML {
			fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", altBoundary)
			writeAlternative(&buf, email, altBoundary)
		} else {
			fmt.Fprintf(&buf, "Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n%s\r\n", email.Text)
		}
		for _, att := range email.Attachments {
			if err := writeAttachment(&buf, att, mixedBoundary); err != nil {
				return err
			}
		}
		fmt.Fprintf(&buf, "--%s--\r\n", mixedBoundary)
	} else if hasHTML {
		writeAlternative(&buf, email, altBoundary)
	} else {
		buf.WriteString(email.Text)
	}

	_, err := w.Write(buf.Bytes())
	return err
}

func writeAlternative(buf *bytes.Buffer, email *models.Email, boundary string) {
	if email.Text != "" {
		fmt.Fprintf(buf, "--%s\r\n", boundary)
		fmt.Fprintf(buf, "Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n%s\r\n", email.Text)
	}
	fmt.Fprintf(buf, "--%s\r\n", boundary)
	fmt.Fprintf(buf, "Content-Type: text/html; charset=\"utf-8\"\r\n\r\n%s\r\n", email.HTML)
	fmt.Fprintf(buf, "--%s--\r\n", boundary)
}

func writeAttachment(buf *bytes.Buffer, att models.Attachment, boundary string) error {
	data, err := os.ReadFile(att.Path)
	if err != nil {
		return fmt.Errorf("failed to read attachment %s: %w", att.Filename, err)
	}

	fmt.Fprintf(buf, "--%s\r\n", boundary)
	fmt.Fprintf(buf, "Content-Type: %s; name=%q\r\n", att.ContentType, att.Filename)
	fmt.Fprintf(buf, "Content-Disposition: attachment; filename=%q\r\n", att.Filename)
	buf.WriteString("Content-Transfer-Encoding: base64\r\n\r\n")

	b64 := base64.StdEncoding.EncodeToString(data)
	for i := 0; i < len(b64); i += 76 {
		end := i + 76
		if end > len(b64) {
			end = len(b64)
		}
		buf.WriteString(b64[i:end])
		buf.WriteString("\r\n")
	}
	return nil
}
