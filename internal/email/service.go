package email

import (
	"context"
	"encoding/json"
	"fmt"
	"net/smtp"
	"time"

	"planpass/internal/logger"
	"planpass/internal/metrics"

	"github.com/redis/go-redis/v9"
)

const (
	queueKey    = "planpass:emails"
	failedKey   = "planpass:emails:failed"
	maxAttempts = 3
)

type EmailJob struct {
	To      string    `json:"to"`
	Name    string    `json:"name"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	Tries   int       `json:"tries"`
	Created time.Time `json:"created"`
}

// Sender delivers one email.
type Sender interface {
	Send(job EmailJob) error
}

type SMTPConfig struct {
	From     string
	FromName string
	Host     string
	Port     string
	User     string
	Pass     string
}

type smtpSender struct {
	cfg SMTPConfig
}

func NewSMTPSender(cfg SMTPConfig) Sender {
	return &smtpSender{cfg: cfg}
}

func (s *smtpSender) Send(job EmailJob) error {
	message := fmt.Sprintf("From: %s <%s>\r\n", s.cfg.FromName, s.cfg.From)
	message += fmt.Sprintf("To: %s\r\n", job.To)
	message += fmt.Sprintf("Subject: %s\r\n", job.Subject)
	message += "\r\n" + job.Body

	var auth smtp.Auth
	if s.cfg.User != "" && s.cfg.Pass != "" {
		auth = smtp.PlainAuth("", s.cfg.User, s.cfg.Pass, s.cfg.Host)
	}

	addr := s.cfg.Host + ":" + s.cfg.Port
	return smtp.SendMail(addr, auth, s.cfg.From, []string{job.To}, []byte(message))
}

// Service queues outgoing email in redis and delivers it from a worker loop.
type Service struct {
	redis      redis.Cmdable
	sender     Sender
	retryDelay time.Duration
	popTimeout time.Duration
}

func New(client redis.Cmdable, sender Sender) *Service {
	return &Service{
		redis:      client,
		sender:     sender,
		retryDelay: 5 * time.Second,
		popTimeout: 2 * time.Second,
	}
}

func (s *Service) Send(ctx context.Context, to, name, subject, body string) error {
	job := EmailJob{
		To:      to,
		Name:    name,
		Subject: subject,
		Body:    body,
		Tries:   0,
		Created: time.Now(),
	}

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal email job: %w", err)
	}

	if err := s.redis.LPush(ctx, queueKey, string(data)).Err(); err != nil {
		logger.Error("failed to queue email", "to", to, "error", err)
		return err
	}

	metrics.RecordEmail("queued")
	logger.Info("email queued", "subject", subject, "to", to)
	return nil
}

// Start consumes the queue until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	logger.Info("email worker started", "queued", s.QueueLength(ctx))

	for {
		select {
		case <-ctx.Done():
			logger.Info("email worker stopped")
			return
		default:
			s.processNext(ctx)
		}
	}
}

func (s *Service) processNext(ctx context.Context) {
	result, err := s.redis.BRPop(ctx, s.popTimeout, queueKey).Result()
	if err != nil {
		return
	}

	var job EmailJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		logger.Error("dropping malformed email job", "error", err)
		return
	}

	job.Tries++
	if err := s.sender.Send(job); err != nil {
		logger.Warn("failed to send email", "to", job.To, "attempt", job.Tries, "error", err)

		if job.Tries < maxAttempts {
			s.requeue(ctx, job)
		} else {
			s.saveFailed(job, err)
		}
		return
	}

	metrics.RecordEmail("sent")
	logger.Info("email sent", "to", job.To, "attempt", job.Tries)
}

func (s *Service) requeue(ctx context.Context, job EmailJob) {
	select {
	case <-ctx.Done():
	case <-time.After(s.retryDelay):
	}

	data, _ := json.Marshal(job)
	if err := s.redis.LPush(context.WithoutCancel(ctx), queueKey, string(data)).Err(); err != nil {
		logger.Error("failed to requeue email", "to", job.To, "error", err)
	}
}

func (s *Service) saveFailed(job EmailJob, err error) {
	failed := map[string]any{
		"job":   job,
		"error": err.Error(),
		"time":  time.Now(),
	}
	data, _ := json.Marshal(failed)
	s.redis.LPush(context.Background(), failedKey, string(data))

	metrics.RecordEmail("failed")
	logger.Error("email moved to failed queue", "to", job.To, "attempts", job.Tries)
}

func (s *Service) QueueLength(ctx context.Context) int64 {
	length, _ := s.redis.LLen(ctx, queueKey).Result()
	return length
}
