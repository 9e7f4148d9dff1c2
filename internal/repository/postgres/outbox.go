package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/turnomed/clinic-api/internal/model"
	"github.com/turnomed/clinic-api/internal/repository"
)

type outboxRepository struct {
	BaseRepository
}

func NewOutboxRepository(base BaseRepository) repository.OutboxRepository {
	return &outboxRepository{base}
}

// GetPendingEventsWithLock claims a batch for this worker. The claim flips
// the rows to PROCESSING in the same statement, so the rows stay owned after
// the row locks are released and two workers never publish the same event.
func (r *outboxRepository) GetPendingEventsWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	query := `
		UPDATE outbox_events
		SET status = $1, updated_at = $2
		WHERE id IN (
			SELECT id FROM outbox_events
			WHERE status = $3
			ORDER BY created_at ASC
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, event_type, payload, status, error_message,
				  retry_count, created_at, processed_at, updated_at
	`
	var events []*model.OutboxEvent
	if err := r.GetDB().SelectContext(ctx, &events, query,
		model.OutboxStatusProcessing, time.Now(), model.OutboxStatusPending, limit); err != nil {
		return nil, fmt.Errorf("failed to claim pending events: %w", err)
	}
	return events, nil
}

func (r *outboxRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string) error {
	query := `
		UPDATE outbox_events
		SET status = $1,
			error_message = $2,
			retry_count = retry_count + CASE WHEN $1 = $3 THEN 1 ELSE 0 END,
			processed_at = CASE WHEN $1 = $4 THEN $5 ELSE processed_at END,
			updated_at = $5
		WHERE id = $6
	`
	now := time.Now()
	if _, err := r.GetDB().ExecContext(ctx, query,
		status, errorMessage, model.OutboxStatusFailed, model.OutboxStatusProcessed, now, id); err != nil {
		return fmt.Errorf("failed to update outbox event: %w", err)
	}
	return nil
}

func (r *outboxRepository) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	query := `
		DELETE FROM outbox_events
		WHERE status = $1 AND processed_at < $2
	`
	result, err := r.GetDB().ExecContext(ctx, query, model.OutboxStatusProcessed, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete processed events: %w", err)
	}
	return result.RowsAffected()
}
