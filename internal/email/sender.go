// Package email notifies export requesters when their artifact is ready.
package email

import (
	"log/slog"
)

type Sender interface {
	SendDownloadLink(email, downloadURL string, report string)
	SendWithAttachment(email, filename string, content []byte, report string)
}

// LogSender logs instead of sending. Used when no SMTP host is configured.
type LogSender struct{}

func NewLogSender() *LogSender {
	return &LogSender{}
}

func (s *LogSender) SendDownloadLink(email, downloadURL string, report string) {
	slog.Info("export notification (log only)",
		"to", email,
		"url", downloadURL,
		"report", report,
	)
}

func (s *LogSender) SendWithAttachment(email, filename string, content []byte, report string) {
	slog.Info("export notification with attachment (log only)",
		"to", email,
		"filename", filename,
		"size", len(content),
		"report", report,
	)
}
