package email

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/smtp"
	"time"

	"github.com/redis/go-redis/v9"

	"trainerbook/internal/logger"
	"trainerbook/internal/metrics"
)

const (
	QueueKey  = "emails"
	FailedKey = "emails:failed"
	MaxTries  = 3
)

var ErrNoRecipient = errors.New("email recipient is empty")

type Job struct {
	To      string    `json:"to"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	Tries   int       `json:"tries"`
	Created time.Time `json:"created"`
}

// Transport delivers one message. SMTPTransport is the production one.
type Transport interface {
	Deliver(job Job) error
}

type SMTPConfig struct {
	Host     string
	Port     string
	User     string
	Pass     string
	From     string
	FromName string
}

type SMTPTransport struct {
	cfg SMTPConfig
}

func NewSMTPTransport(cfg SMTPConfig) *SMTPTransport {
	return &SMTPTransport{cfg: cfg}
}

func (t *SMTPTransport) Deliver(job Job) error {
	message := fmt.Sprintf("From: %s <%s>\r\n", t.cfg.FromName, t.cfg.From)
	message += fmt.Sprintf("To: %s\r\n", job.To)
	message += fmt.Sprintf("Subject: %s\r\n", job.Subject)
	message += "Content-Type: text/plain; charset=UTF-8\r\n"
	message += "\r\n" + job.Body

	var auth smtp.Auth
	if t.cfg.User != "" && t.cfg.Pass != "" {
		auth = smtp.PlainAuth("", t.cfg.User, t.cfg.Pass, t.cfg.Host)
	}

	addr := t.cfg.Host + ":" + t.cfg.Port
	return smtp.SendMail(addr, auth, t.cfg.From, []string{job.To}, []byte(message))
}

// Service queues outgoing mail on a redis list and drains it with Start.
type Service struct {
	redis      *redis.Client
	transport  Transport
	retryDelay time.Duration
}

func New(rdb *redis.Client, transport Transport) *Service {
	return &Service{
		redis:      rdb,
		transport:  transport,
		retryDelay: 5 * time.Second,
	}
}

// Send enqueues a message; delivery happens on the worker.
func (s *Service) Send(ctx context.Context, to, subject, body string) error {
	if to == "" {
		return ErrNoRecipient
	}

	job := Job{
		To:      to,
		Subject: subject,
		Body:    body,
		Created: time.Now(),
	}

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal email job: %w", err)
	}

	if err := s.redis.LPush(ctx, QueueKey, data).Err(); err != nil {
		logger.Error("failed to queue email", "to", to, "error", err)
		return fmt.Errorf("queue email: %w", err)
	}

	logger.Info("email queued", "subject", subject, "to", to)
	return nil
}

func (s *Service) Start(ctx context.Context) {
	logger.Info("email worker started")

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
	result, err := s.redis.BRPop(ctx, 2*time.Second, QueueKey).Result()
	if err != nil {
		return
	}
	metrics.EmailQueueLength.Set(float64(s.QueueLength(ctx)))

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		logger.Error("dropping malformed email job", "error", err)
		return
	}

	s.handle(ctx, job)
}

func (s *Service) handle(ctx context.Context, job Job) {
	job.Tries++
	err := s.transport.Deliver(job)
	if err == nil {
		metrics.RecordEmail("sent")
		logger.Info("email sent", "to", job.To, "attempt", job.Tries)
		return
	}

	logger.Warn("email delivery failed", "to", job.To, "attempt", job.Tries, "error", err)
	if job.Tries >= MaxTries {
		s.saveFailed(ctx, job, err)
		return
	}

	select {
	case <-ctx.Done():
	case <-time.After(s.retryDelay):
	}

	data, _ := json.Marshal(job)
	if err := s.redis.LPush(context.WithoutCancel(ctx), QueueKey, data).Err(); err != nil {
		logger.Error("failed to requeue email", "to", job.To, "error", err)
	}
}

func (s *Service) saveFailed(ctx context.Context, job Job, cause error) {
	failed := map[string]interface{}{
		"job":   job,
		"error": cause.Error(),
		"time":  time.Now(),
	}
	data, _ := json.Marshal(failed)
	if err := s.redis.LPush(context.WithoutCancel(ctx), FailedKey, data).Err(); err != nil {
		logger.Error("failed to dead-letter email", "to", job.To, "error", err)
	}
	metrics.RecordEmail("failed")
	logger.Error("email moved to failed queue", "to", job.To, "tries", job.Tries)
}

func (s *Service) QueueLength(ctx context.Context) int64 {
	length, _ := s.redis.LLen(ctx, QueueKey).Result()
	return length
}

func (s *Service) Close() error {
	return s.redis.Close()
}
