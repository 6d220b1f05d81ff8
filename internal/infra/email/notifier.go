package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"
)

// SMTPNotifier mails the uploader when a recording permanently fails.
type SMTPNotifier struct {
	addr   string
	from   string
	logger *zap.Logger
}

func NewSMTPNotifier(host string, port int, from string, logger *zap.Logger) *SMTPNotifier {
	return &SMTPNotifier{
		addr:   fmt.Sprintf("%s:%d", host, port),
		from:   from,
		logger: logger,
	}
}

func (n *SMTPNotifier) NotifyFailure(_ context.Context, userEmail, jobID, recordingID, errorMsg string) error {
	msg := n.compose(userEmail, jobID, recordingID, errorMsg)

	if err := smtp.SendMail(n.addr, nil, n.from, []string{userEmail}, msg); err != nil {
		n.logger.Error("failed to send failure notification email",
			zap.String("to", userEmail),
			zap.String("job_id", jobID),
			zap.Error(err),
		)
		return fmt.Errorf("send email: %w", err)
	}

	n.logger.Info("failure notification email sent",
		zap.String("to", userEmail),
		zap.String("recording_id", recordingID),
	)
	return nil
}

func (n *SMTPNotifier) compose(to, jobID, recordingID, errorMsg string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", n.from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: Skitrax - GPS Track Extraction Failed [Recording %s]\r\n", recordingID)
	b.WriteString("\r\n")
	b.WriteString("Hello,\r\n\r\n")
	b.WriteString("We could not extract a GPS track from your recording after all retry attempts.\r\n\r\n")
	fmt.Fprintf(&b, "Job ID: %s\r\n", jobID)
	fmt.Fprintf(&b, "Recording: %s\r\n", recordingID)
	fmt.Fprintf(&b, "Error: %s\r\n\r\n", errorMsg)
	b.WriteString("Please re-upload the video chapters or contact support.\r\n\r\n")
	b.WriteString("-- Skitrax Telemetry Service\r\n")
	return []byte(b.String())
}
