package email

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/fiapx/fiapx-frame-sampler/internal/domain/entity"
	"go.uber.org/zap"
)

type SMTPNotifier struct {
	host   string
	port   int
	from   string
	logger *zap.Logger
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPNotifier(host string, port int, from string, logger *zap.Logger) *SMTPNotifier {
	return &SMTPNotifier{host: host, port: port, from: from, logger: logger, send: smtp.SendMail}
}

func (n *SMTPNotifier) NotifyFailure(_ context.Context, userEmail string, job *entity.Job) error {
	addr := fmt.Sprintf("%s:%d", n.host, n.port)

	if err := n.send(addr, nil, n.from, []string{userEmail}, n.compose(userEmail, job)); err != nil {
		n.logger.Error("failed to send failure notification email",
			zap.String("to", userEmail),
			zap.String("job_id", job.ID.String()),
			zap.Error(err),
		)
		return fmt.Errorf("send email: %w", err)
	}

	n.logger.Info("failure notification email sent",
		zap.String("to", userEmail),
		zap.String("job_id", job.ID.String()),
	)
	return nil
}

func (n *SMTPNotifier) compose(userEmail string, job *entity.Job) []byte {
	subject := fmt.Sprintf("Frame sampling failed [Job %s]", job.ID)
	body := fmt.Sprintf(
		"Hello,\r\n\r\n"+
			"We could not sample frames from your video after %d attempt(s).\r\n\r\n"+
			"Job ID: %s\r\n"+
			"Video: %s\r\n"+
			"Strategy: %s\r\n"+
			"Error: %s\r\n\r\n"+
			"Please check the video and submit it again.\r\n\r\n"+
			"-- Frame Sampler",
		job.Attempt, job.ID, job.VideoKey, job.Strategy, job.ErrorMessage,
	)

	return []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		n.from, userEmail, subject, body,
	))
}
