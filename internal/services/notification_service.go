// internal/services/notification_service.go
package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/land-escrow-backend/internal/config"
	"github.com/javajoker/land-escrow-backend/internal/i18n"
	"github.com/javajoker/land-escrow-backend/internal/models"
	"github.com/javajoker/land-escrow-backend/internal/utils"
)

// Notifier is what the lifecycle engine calls after a commit. Calls never
// block on delivery and never report failure to the caller.
type Notifier interface {
	NotifyTransactionDisputed(ctx context.Context, sellerID uuid.UUID, listingTitle string)
	NotifyTransactionReleased(ctx context.Context, sellerID uuid.UUID, listingTitle string, netAmount int64)
}

// maxBackoffFactor caps a single retry delay at 64x the configured backoff.
const maxBackoffFactor = 64

// Notification kinds
const (
	NotificationTransactionDisputed = "transaction_disputed"
	NotificationTransactionReleased = "transaction_released"
)

// Message is one queued notification for a single user.
type Message struct {
	ID     uuid.UUID
	Kind   string
	UserID uuid.UUID
	Data   map[string]interface{}
}

// Sender delivers a rendered message over one channel.
type Sender interface {
	Name() string
	Send(ctx context.Context, to *models.User, subject, htmlBody, text string) error
}

type userLookup interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type NotificationStats struct {
	Enqueued int64 `json:"enqueued"`
	Sent     int64 `json:"sent"`
	Failed   int64 `json:"failed"`
	Dropped  int64 `json:"dropped"`
}

// NotificationService is an in-process queue drained by a fixed set of
// workers. Each delivery is retried with exponential backoff.
type NotificationService struct {
	users       userLookup
	senders     []Sender
	queue       chan Message
	workers     int
	maxAttempts int
	backoff     time.Duration
	locale      string

	mu      sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
	cancel  context.CancelFunc
	started bool

	enqueued atomic.Int64
	sent     atomic.Int64
	failed   atomic.Int64
	dropped  atomic.Int64
}

func NewNotificationService(users userLookup, senders []Sender, cfg config.EscrowConfig, locale string) *NotificationService {
	queueSize := cfg.NotificationQueueSize
	if queueSize < 1 {
		queueSize = 1
	}
	workers := cfg.NotificationWorkers
	if workers < 1 {
		workers = 1
	}
	attempts := cfg.NotificationMaxAttempt
	if attempts < 1 {
		attempts = 1
	}
	if locale == "" {
		locale = "en"
	}

	return &NotificationService{
		users:       users,
		senders:     senders,
		queue:       make(chan Message, queueSize),
		workers:     workers,
		maxAttempts: attempts,
		backoff:     time.Duration(cfg.NotificationBackoffMs) * time.Millisecond,
		locale:      locale,
	}
}

// Start launches the workers. They run until Stop.
func (s *NotificationService) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.closed {
		return
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx)
	}
}

// Stop stops accepting messages, drains what is queued and waits for the
// workers.
func (s *NotificationService) Stop() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	s.wg.Wait()
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *NotificationService) Stats() NotificationStats {
	return NotificationStats{
		Enqueued: s.enqueued.Load(),
		Sent:     s.sent.Load(),
		Failed:   s.failed.Load(),
		Dropped:  s.dropped.Load(),
	}
}

func (s *NotificationService) NotifyTransactionDisputed(ctx context.Context, sellerID uuid.UUID, listingTitle string) {
	s.Enqueue(Message{
		Kind:   NotificationTransactionDisputed,
		UserID: sellerID,
		Data:   map[string]interface{}{"ListingTitle": listingTitle},
	})
}

func (s *NotificationService) NotifyTransactionReleased(ctx context.Context, sellerID uuid.UUID, listingTitle string, netAmount int64) {
	s.Enqueue(Message{
		Kind:   NotificationTransactionReleased,
		UserID: sellerID,
		Data: map[string]interface{}{
			"ListingTitle": listingTitle,
			"NetAmount":    utils.FormatGHS(netAmount),
		},
	})
}

// Enqueue adds msg without blocking. A full or stopped queue drops it.
func (s *NotificationService) Enqueue(msg Message) bool {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		s.dropped.Add(1)
		logrus.WithFields(logrus.Fields{"kind": msg.Kind, "user_id": msg.UserID}).Warn("Notification dropped: dispatcher stopped")
		return false
	}

	select {
	case s.queue <- msg:
		s.enqueued.Add(1)
		return true
	default:
		s.dropped.Add(1)
		logrus.WithFields(logrus.Fields{"kind": msg.Kind, "user_id": msg.UserID}).Warn("Notification dropped: queue full")
		return false
	}
}

func (s *NotificationService) worker(ctx context.Context) {
	defer s.wg.Done()
	for msg := range s.queue {
		s.deliver(ctx, msg)
	}
}

func (s *NotificationService) deliver(ctx context.Context, msg Message) {
	log := logrus.WithFields(logrus.Fields{
		"notification_id": msg.ID,
		"kind":            msg.Kind,
		"user_id":         msg.UserID,
	})

	user, err := s.users.GetUser(ctx, msg.UserID)
	if err != nil {
		s.failed.Add(int64(len(s.senders)))
		log.WithError(err).Error("Notification recipient lookup failed")
		return
	}

	subject, body, text, err := s.render(msg, user)
	if err != nil {
		s.failed.Add(int64(len(s.senders)))
		log.WithError(err).Error("Failed to render notification")
		return
	}

	for _, sender := range s.senders {
		if err := s.sendWithRetry(ctx, sender, user, subject, body, text); err != nil {
			s.failed.Add(1)
			log.WithError(err).WithField("channel", sender.Name()).Error("Notification delivery failed")
			continue
		}
		s.sent.Add(1)
	}
}

func (s *NotificationService) sendWithRetry(ctx context.Context, sender Sender, user *models.User, subject, body, text string) error {
	var lastErr error
	attempts := 0
	err := backoff.RetryNotify(func() error {
		attempts++
		lastErr = sender.Send(ctx, user, subject, body, text)
		return lastErr
	}, s.retryPolicy(ctx), func(err error, wait time.Duration) {
		logrus.WithError(err).WithFields(logrus.Fields{
			"channel": sender.Name(),
			"attempt": attempts,
			"wait":    wait,
		}).Warn("Notification send failed, retrying")
	})
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return errors.Join(lastErr, ctx.Err())
	}
	return fmt.Errorf("gave up after %d attempts: %w", attempts, lastErr)
}

// retryPolicy allows maxAttempts sends in total, spaced by a jittered
// exponential delay starting at the configured backoff.
func (s *NotificationService) retryPolicy(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = s.backoff
	exp.Multiplier = 2
	exp.RandomizationFactor = 0.5
	exp.MaxInterval = s.backoff * maxBackoffFactor
	exp.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(s.maxAttempts-1)), ctx)
	policy.Reset()
	return policy
}

func (s *NotificationService) render(msg Message, user *models.User) (string, string, string, error) {
	tmpl := getEmailTemplate(msg.Kind)

	data := map[string]interface{}{"Name": user.Name}
	for k, v := range msg.Data {
		data[k] = v
	}

	subject, err := renderTemplate(tmpl.Subject, data)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to render subject: %w", err)
	}
	body, err := renderTemplate(tmpl.Body, data)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to render email template: %w", err)
	}

	var text string
	switch msg.Kind {
	case NotificationTransactionDisputed:
		text = i18n.T(s.locale, i18n.KeyNotificationDisputed, data["ListingTitle"])
	case NotificationTransactionReleased:
		text = i18n.T(s.locale, i18n.KeyNotificationReleased, data["NetAmount"], data["ListingTitle"])
	default:
		text = subject
	}

	return subject, body, text, nil
}

type EmailTemplate struct {
	Subject string
	Body    string
}

func renderTemplate(templateStr string, data interface{}) (string, error) {
	tmpl, err := template.New("email").Parse(templateStr)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func getEmailTemplate(kind string) EmailTemplate {
	templates := map[string]EmailTemplate{
		NotificationTransactionDisputed: {
			Subject: "Dispute raised - {{.ListingTitle}}",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>A dispute has been raised</h2>
	<p>Hello {{.Name}},</p>
	<p>The buyer of "{{.ListingTitle}}" has raised a dispute during the verification period.
	Funds stay in escrow until a reviewer decides the case.</p>
	<p>Best regards,<br>Land Escrow Team</p>
</body>
</html>`,
		},
		NotificationTransactionReleased: {
			Subject: "Funds released - {{.ListingTitle}}",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Funds released</h2>
	<p>Hello {{.Name}},</p>
	<p>Escrow for "{{.ListingTitle}}" has been released. {{.NetAmount}} will be paid out to your account.</p>
	<p>Best regards,<br>Land Escrow Team</p>
</body>
</html>`,
		},
	}

	if tmpl, exists := templates[kind]; exists {
		return tmpl
	}

	// Default template
	return EmailTemplate{
		Subject: "Notification",
		Body:    "<p>{{.Message}}</p>",
	}
}
