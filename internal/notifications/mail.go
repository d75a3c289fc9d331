package notifications

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"time"
)

type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

type Email struct {
	To          string
	Subject     string
	HTML        string
	Text        string
	Attachments []Attachment
}

type Mailer interface {
	Send(ctx context.Context, email Email) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// SMTPMailer delivers over SMTP. Port 465 uses implicit TLS; other ports
// upgrade with STARTTLS when the server offers it.
type SMTPMailer struct {
	cfg SMTPConfig
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	if cfg.From == "" {
		cfg.From = cfg.User
	}
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) Send(ctx context.Context, email Email) error {
	raw, err := buildMessage(m.cfg.From, email, time.Now())
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	conn, err := (&net.Dialer{}).DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial smtp %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	tlsConfig := &tls.Config{ServerName: m.cfg.Host, MinVersion: tls.VersionTLS12}
	if m.cfg.Port == 465 {
		conn = tls.Client(conn, tlsConfig)
	}

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if m.cfg.Port != 465 {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(tlsConfig); err != nil {
				return fmt.Errorf("smtp starttls: %w", err)
			}
		}
	}
	if m.cfg.User != "" {
		if ok, _ := client.Extension("AUTH"); ok {
			if err := client.Auth(smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)); err != nil {
				return fmt.Errorf("smtp auth: %w", err)
			}
		}
	}

	if err := client.Mail(m.cfg.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(email.To); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		w.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp data close: %w", err)
	}
	return client.Quit()
}

// buildMessage renders a multipart/mixed message: a text and HTML alternative
// followed by the attachments.
func buildMessage(from string, email Email, now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	mixed := multipart.NewWriter(&buf)

	header := textproto.MIMEHeader{}
	header.Set("From", mime.QEncoding.Encode("utf-8", "Bus Booking System")+" <"+from+">")
	header.Set("To", email.To)
	header.Set("Subject", mime.QEncoding.Encode("utf-8", email.Subject))
	header.Set("Date", now.Format(time.RFC1123Z))
	header.Set("MIME-Version", "1.0")
	header.Set("Content-Type", "multipart/mixed; boundary="+mixed.Boundary())

	var head bytes.Buffer
	for _, k := range []string{"From", "To", "Subject", "Date", "MIME-Version", "Content-Type"} {
		fmt.Fprintf(&head, "%s: %s\r\n", k, header.Get(k))
	}
	head.WriteString("\r\n")

	var alt bytes.Buffer
	altWriter := multipart.NewWriter(&alt)
	for _, part := range []struct{ contentType, body string }{
		{"text/plain; charset=utf-8", email.Text},
		{"text/html; charset=utf-8", email.HTML},
	} {
		if part.body == "" {
			continue
		}
		w, err := altWriter.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {part.contentType},
			"Content-Transfer-Encoding": {"quoted-printable"},
		})
		if err != nil {
			return nil, err
		}
		qp := quotedprintable.NewWriter(w)
		if _, err := qp.Write([]byte(part.body)); err != nil {
			return nil, err
		}
		if err := qp.Close(); err != nil {
			return nil, err
		}
	}
	if err := altWriter.Close(); err != nil {
		return nil, err
	}

	altPart, err := mixed.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"multipart/alternative; boundary=" + altWriter.Boundary()},
	})
	if err != nil {
		return nil, err
	}
	if _, err := altPart.Write(alt.Bytes()); err != nil {
		return nil, err
	}

	for _, a := range email.Attachments {
		w, err := mixed.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {a.ContentType + "; name=\"" + a.Name + "\""},
			"Content-Disposition":       {"attachment; filename=\"" + a.Name + "\""},
			"Content-Transfer-Encoding": {"base64"},
		})
		if err != nil {
			return nil, err
		}
		if err := writeBase64Lines(w, a.Data); err != nil {
			return nil, err
		}
	}
	if err := mixed.Close(); err != nil {
		return nil, err
	}

	return append(head.Bytes(), buf.Bytes()...), nil
}

func writeBase64Lines(w interface{ Write([]byte) (int, error) }, data []byte) error {
	const lineLength = 76
	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > 0 {
		n := min(lineLength, len(encoded))
		if _, err := w.Write([]byte(encoded[:n] + "\r\n")); err != nil {
			return err
		}
		encoded = encoded[n:]
	}
	return nil
}
