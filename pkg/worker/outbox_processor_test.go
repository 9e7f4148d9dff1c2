package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turnomed/clinic-api/internal/model"
	"github.com/turnomed/clinic-api/pkg/logger"
	"github.com/turnomed/clinic-api/pkg/metrics"
)

// a single registry-backed instance shared across tests; registering the
// collectors twice would panic
var testMetrics = metrics.NewMetrics("clinic", "workertest")

// fakeOutboxRepo reproduces the claim contract of the real repository: a
// claimed event leaves the PENDING state in the same call that returns it,
// so a second claim never hands out the same event.
type fakeOutboxRepo struct {
	events map[uuid.UUID]*model.OutboxEvent
}

func newFakeOutboxRepo() *fakeOutboxRepo {
	return &fakeOutboxRepo{events: make(map[uuid.UUID]*model.OutboxEvent)}
}

func (r *fakeOutboxRepo) addPending(eventType string) *model.OutboxEvent {
	event := &model.OutboxEvent{
		ID:        uuid.New(),
		EventType: eventType,
		Payload:   json.RawMessage(`{}`),
		Status:    model.OutboxStatusPending,
	}
	r.events[event.ID] = event
	return event
}

func (r *fakeOutboxRepo) GetPendingEventsWithLock(_ context.Context, limit int) ([]*model.OutboxEvent, error) {
	var claimed []*model.OutboxEvent
	for _, event := range r.events {
		if event.Status != model.OutboxStatusPending {
			continue
		}
		event.Status = model.OutboxStatusProcessing
		copied := *event
		claimed = append(claimed, &copied)
		if len(claimed) == limit {
			break
		}
	}
	return claimed, nil
}

func (r *fakeOutboxRepo) UpdateStatus(_ context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string) error {
	event, ok := r.events[id]
	if !ok {
		return errors.New("event not found")
	}
	event.Status = status
	event.ErrorMessage = errorMessage
	if status == model.OutboxStatusFailed {
		event.RetryCount++
	}
	return nil
}

func (r *fakeOutboxRepo) DeleteProcessedBefore(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

type fakeBroker struct {
	published map[string]int
	err       error
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{published: make(map[string]int)}
}

func (b *fakeBroker) Publish(_ context.Context, channel string, _ interface{}) error {
	if b.err != nil {
		return b.err
	}
	b.published[channel]++
	return nil
}

func (b *fakeBroker) Subscribe(_ context.Context, _ string) (<-chan []byte, error) {
	return nil, errors.New("not implemented")
}

func (b *fakeBroker) Close() error { return nil }

func newTestProcessor(repo *fakeOutboxRepo, broker *fakeBroker) *OutboxProcessor {
	return NewOutboxProcessor(repo, broker, OutboxProcessorConfig{
		BatchSize:     10,
		PollInterval:  time.Second,
		RetryAttempts: 2,
		RetryDelay:    time.Millisecond,
	}, logger.From(zerolog.Nop()), testMetrics)
}

func TestProcessEventsPublishesEachEventOnce(t *testing.T) {
	repo := newFakeOutboxRepo()
	broker := newFakeBroker()
	first := repo.addPending("appointment.accepted")
	second := repo.addPending("appointment.cancelled")

	p := newTestProcessor(repo, broker)

	require.NoError(t, p.processEvents(context.Background()))
	// a second drain must find nothing left to claim
	require.NoError(t, p.processEvents(context.Background()))

	assert.Equal(t, 1, broker.published["appointment.accepted"])
	assert.Equal(t, 1, broker.published["appointment.cancelled"])
	assert.Equal(t, model.OutboxStatusProcessed, repo.events[first.ID].Status)
	assert.Equal(t, model.OutboxStatusProcessed, repo.events[second.ID].Status)
}

func TestProcessEventsMarksFailedAfterRetries(t *testing.T) {
	repo := newFakeOutboxRepo()
	broker := newFakeBroker()
	broker.err = errors.New("broker down")
	event := repo.addPending("appointment.created")

	p := newTestProcessor(repo, broker)

	require.NoError(t, p.processEvents(context.Background()))

	stored := repo.events[event.ID]
	assert.Equal(t, model.OutboxStatusFailed, stored.Status)
	require.NotNil(t, stored.ErrorMessage)
	assert.Equal(t, "broker down", *stored.ErrorMessage)
	assert.Equal(t, 1, stored.RetryCount)
}
