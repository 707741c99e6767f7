// Package mail composes single-attachment messages and sends them over
// SMTP with STARTTLS.
package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"time"
)

// ErrNotConfigured is returned when SMTP credentials are missing.
var ErrNotConfigured = errors.New("SMTP credentials not configured")

const lineLen = 76

// Attachment is a file carried by a message.
type Attachment struct {
	Filename string
	Data     []byte
}

// Message is a mail with exactly one attachment.
type Message struct {
	From       string
	To         string
	Subject    string
	Attachment Attachment
}

// Compose renders m as a multipart/mixed MIME message with the attachment
// base64 encoded.
func Compose(m Message) ([]byte, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", m.From)
	fmt.Fprintf(&buf, "To: %s\r\n", m.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", m.Subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", w.Boundary())

	header := textproto.MIMEHeader{}
	header.Set("Content-Type", "application/octet-stream")
	header.Set("Content-Transfer-Encoding", "base64")
	header.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": m.Attachment.Filename,
	}))
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("creating attachment part: %w", err)
	}

	encoded := base64.StdEncoding.EncodeToString(m.Attachment.Data)
	for len(encoded) > lineLen {
		if _, err := fmt.Fprintf(part, "%s\r\n", encoded[:lineLen]); err != nil {
			return nil, fmt.Errorf("writing attachment: %w", err)
		}
		encoded = encoded[lineLen:]
	}
	if _, err := fmt.Fprintf(part, "%s\r\n", encoded); err != nil {
		return nil, fmt.Errorf("writing attachment: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing message: %w", err)
	}
	return buf.Bytes(), nil
}

// Config holds SMTP server settings.
type Config struct {
	Server string
	Port   int
	User   string
	Pass   string
}

// Sender delivers messages through an SMTP relay.
type Sender struct {
	cfg Config
}

// NewSender creates a Sender for cfg.
func NewSender(cfg Config) *Sender {
	return &Sender{cfg: cfg}
}

// Configured reports whether credentials are present.
func (s *Sender) Configured() bool {
	return s.cfg.User != "" && s.cfg.Pass != ""
}

// From is the envelope and header sender.
func (s *Sender) From() string {
	return s.cfg.User
}

// Send delivers m. The session is upgraded with STARTTLS before
// authenticating.
func (s *Sender) Send(ctx context.Context, m Message) error {
	if !s.Configured() {
		return ErrNotConfigured
	}
	raw, err := Compose(m)
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(s.cfg.Server, strconv.Itoa(s.cfg.Port))
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, s.cfg.Server)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer c.Close()

	if err := c.StartTLS(&tls.Config{ServerName: s.cfg.Server}); err != nil {
		return fmt.Errorf("starttls: %w", err)
	}
	if err := c.Auth(smtp.PlainAuth("", s.cfg.User, s.cfg.Pass, s.cfg.Server)); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}
	if err := c.Mail(m.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := c.Rcpt(m.To); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}
	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := wc.Write(raw); err != nil {
		wc.Close()
		return fmt.Errorf("writing message: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("finishing message: %w", err)
	}
	return c.Quit()
}
