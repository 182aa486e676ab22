// internal/services/notification_service_test.go
package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/sns"
	"github.com/aws/aws-sdk-go/service/sns/snsiface"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/land-escrow-backend/internal/config"
	"github.com/javajoker/land-escrow-backend/internal/i18n"
	"github.com/javajoker/land-escrow-backend/internal/models"
	"github.com/javajoker/land-escrow-backend/internal/repositories"
)

type flakySender struct {
	mu       sync.Mutex
	failures int
	attempts int
	subjects []string
	texts    []string
}

func (s *flakySender) Name() string { return "flaky" }

func (s *flakySender) Send(ctx context.Context, to *models.User, subject, htmlBody, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	if s.attempts <= s.failures {
		return errors.New("smtp: 421 service not available")
	}
	s.subjects = append(s.subjects, subject)
	s.texts = append(s.texts, text)
	return nil
}

func notificationConfig(queue int) config.EscrowConfig {
	return config.EscrowConfig{
		NotificationWorkers:    2,
		NotificationQueueSize:  queue,
		NotificationMaxAttempt: 3,
		NotificationBackoffMs:  1,
	}
}

func createSeller(t *testing.T, store *repositories.MemoryStore) *models.User {
	t.Helper()
	seller := &models.User{Name: "Kwame Boateng", Email: "kwame@example.com", Phone: "+233201234567", Role: models.UserRoleSeller}
	require.NoError(t, store.CreateUser(context.Background(), seller))
	return seller
}

func TestNotificationDeliveredAfterRetries(t *testing.T) {
	require.NoError(t, i18n.Initialize("en"))

	store := repositories.NewMemoryStore()
	seller := createSeller(t, store)
	sender := &flakySender{failures: 2}

	svc := NewNotificationService(store, []Sender{sender}, notificationConfig(8), "en")
	svc.Start(context.Background())
	svc.NotifyTransactionReleased(context.Background(), seller.ID, "2 plots, East Legon", 975_000)
	svc.Stop()

	stats := svc.Stats()
	assert.Equal(t, int64(1), stats.Enqueued)
	assert.Equal(t, int64(1), stats.Sent)
	assert.Zero(t, stats.Failed)

	assert.Equal(t, 3, sender.attempts)
	require.Len(t, sender.texts, 1)
	assert.Contains(t, sender.texts[0], "GHS 9,750.00")
	assert.Contains(t, sender.texts[0], "East Legon")
	assert.Equal(t, "Funds released - 2 plots, East Legon", sender.subjects[0])
}

func TestNotificationGivesUp(t *testing.T) {
	store := repositories.NewMemoryStore()
	seller := createSeller(t, store)
	sender := &flakySender{failures: 10}

	svc := NewNotificationService(store, []Sender{sender}, notificationConfig(8), "en")
	svc.Start(context.Background())
	svc.NotifyTransactionDisputed(context.Background(), seller.ID, "Farmland, Dodowa")
	svc.NotifyTransactionDisputed(context.Background(), uuid.New(), "Unknown seller")
	svc.Stop()

	stats := svc.Stats()
	assert.Equal(t, int64(2), stats.Enqueued)
	assert.Zero(t, stats.Sent)
	assert.Equal(t, int64(2), stats.Failed)
	assert.Equal(t, 3, sender.attempts)
}

func TestNotificationQueueNeverBlocks(t *testing.T) {
	store := repositories.NewMemoryStore()
	svc := NewNotificationService(store, nil, notificationConfig(1), "en")

	assert.True(t, svc.Enqueue(Message{Kind: NotificationTransactionDisputed, UserID: uuid.New()}))
	assert.False(t, svc.Enqueue(Message{Kind: NotificationTransactionDisputed, UserID: uuid.New()}))

	svc.Stop()
	assert.False(t, svc.Enqueue(Message{Kind: NotificationTransactionReleased, UserID: uuid.New()}))

	stats := svc.Stats()
	assert.Equal(t, int64(1), stats.Enqueued)
	assert.Equal(t, int64(2), stats.Dropped)
}

func TestRetryPolicyIsJitteredAndBounded(t *testing.T) {
	cfg := notificationConfig(1)
	cfg.NotificationMaxAttempt = 4
	cfg.NotificationBackoffMs = 100
	svc := NewNotificationService(repositories.NewMemoryStore(), nil, cfg, "en")

	policy := svc.retryPolicy(context.Background())
	base := 100 * time.Millisecond
	for retry := 0; retry < 3; retry++ {
		wait := policy.NextBackOff()
		require.NotEqual(t, backoff.Stop, wait, "retry %d", retry)
		nominal := base * time.Duration(1<<retry)
		assert.GreaterOrEqual(t, wait, nominal/2, "retry %d", retry)
		assert.LessOrEqual(t, wait, nominal*3/2, "retry %d", retry)
	}
	assert.Equal(t, backoff.Stop, policy.NextBackOff())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, backoff.Stop, svc.retryPolicy(ctx).NextBackOff())
}

func TestSendWithRetryStopsOnCancelledContext(t *testing.T) {
	cfg := notificationConfig(1)
	cfg.NotificationBackoffMs = 50
	svc := NewNotificationService(repositories.NewMemoryStore(), nil, cfg, "en")
	sender := &flakySender{failures: 10}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := svc.sendWithRetry(ctx, sender, &models.User{Name: "Ama"}, "s", "b", "t")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, sender.attempts)
}

func TestRenderFallsBackToGenericTemplate(t *testing.T) {
	svc := NewNotificationService(repositories.NewMemoryStore(), nil, notificationConfig(1), "en")
	subject, body, text, err := svc.render(Message{Kind: "unknown", Data: map[string]interface{}{"Message": "hello"}}, &models.User{Name: "Ama"})
	require.NoError(t, err)
	assert.Equal(t, "Notification", subject)
	assert.True(t, strings.Contains(body, "hello"))
	assert.Equal(t, subject, text)
}

type fakeSNS struct {
	snsiface.SNSAPI
	inputs []*sns.PublishInput
}

func (f *fakeSNS) PublishWithContext(ctx context.Context, input *sns.PublishInput, opts ...request.Option) (*sns.PublishOutput, error) {
	f.inputs = append(f.inputs, input)
	return &sns.PublishOutput{}, nil
}

func TestSMSSender(t *testing.T) {
	client := &fakeSNS{}
	sender := NewSMSSenderWithClient(client, "LandEscrow")

	require.NoError(t, sender.Send(context.Background(), &models.User{Phone: "+233201234567"}, "subject", "<p>body</p>", "Escrow released"))
	require.NoError(t, sender.Send(context.Background(), &models.User{}, "subject", "<p>body</p>", "no phone"))

	require.Len(t, client.inputs, 1)
	input := client.inputs[0]
	assert.Equal(t, "+233201234567", *input.PhoneNumber)
	assert.Equal(t, "Escrow released", *input.Message)
	assert.Equal(t, "LandEscrow", *input.MessageAttributes["AWS.SNS.SMS.SenderID"].StringValue)
}
