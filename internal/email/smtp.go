package email

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

// SMTPSender delivers notifications over plain SMTP. Sends run in the
// background so a slow mail server never blocks an export worker.
type SMTPSender struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

func NewSMTPSender(host string, port int, user, password, from string) *SMTPSender {
	return &SMTPSender{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		From:     from,
	}
}

func (s *SMTPSender) auth() smtp.Auth {
	if s.User != "" && s.Password != "" {
		return smtp.PlainAuth("", s.User, s.Password, s.Host)
	}
	return nil
}

func (s *SMTPSender) SendDownloadLink(email, downloadURL string, report string) {
	go func() {
		addr := fmt.Sprintf("%s:%d", s.Host, s.Port)
		subject := "Your query export is ready"
		body := fmt.Sprintf("Hello,\n\nYour export completed.\n\n%s\nDownload:\n%s\n", report, downloadURL)

		msg := []byte(fmt.Sprintf("To: %s\r\nSubject: %s\r\n\r\n%s\r\n", email, subject, body))

		if err := smtp.SendMail(addr, s.auth(), s.From, []string{email}, msg); err != nil {
			slog.Error("sending export email", "to", email, "error", err)
			return
		}
		slog.Info("export email sent", "to", email)
	}()
}

func (s *SMTPSender) SendWithAttachment(email, filename string, content []byte, report string) {
	go func() {
		addr := fmt.Sprintf("%s:%d", s.Host, s.Port)
		subject := "Your query export is ready"
		boundary := "df-export-boundary"

		var b strings.Builder
		fmt.Fprintf(&b, "To: %s\r\n", email)
		fmt.Fprintf(&b, "Subject: %s\r\n", subject)
		fmt.Fprintf(&b, "MIME-Version: 1.0\r\n")
		fmt.Fprintf(&b, "Content-Type: multipart/mixed; boundary=%s\r\n\r\n", boundary)

		fmt.Fprintf(&b, "--%s\r\n", boundary)
		fmt.Fprintf(&b, "Content-Type: text/plain; charset=utf-8\r\n\r\n")
		fmt.Fprintf(&b, "Hello,\n\nYour export completed and is attached.\n\n%s\r\n", report)

		fmt.Fprintf(&b, "--%s\r\n", boundary)
		fmt.Fprintf(&b, "Content-Type: application/octet-stream\r\n")
		fmt.Fprintf(&b, "Content-Transfer-Encoding: base64\r\n")
		fmt.Fprintf(&b, "Content-Disposition: attachment; filename=%q\r\n\r\n", filename)
		b.WriteString(base64.StdEncoding.EncodeToString(content))
		fmt.Fprintf(&b, "\r\n--%s--\r\n", boundary)

		if err := smtp.SendMail(addr, s.auth(), s.From, []string{email}, []byte(b.String())); err != nil {
			slog.Error("sending export email", "to", email, "error", err)
			return
		}
		slog.Info("export email with attachment sent", "to", email, "filename", filename)
	}()
}
