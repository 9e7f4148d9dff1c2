package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/turnomed/clinic-api/internal/model"
	"github.com/turnomed/clinic-api/internal/repository"
	apperrors "github.com/turnomed/clinic-api/pkg/errors"
)

type slotRepository struct {
	BaseRepository
}

func NewSlotRepository(base BaseRepository) repository.SlotRepository {
	return &slotRepository{base}
}

// BulkInsert writes generated slots in one statement. The unique index on
// (specialist_id, start_at) plus ON CONFLICT DO NOTHING makes concurrent
// generation runs benign: the loser's duplicates are skipped, not errors.
func (r *slotRepository) BulkInsert(ctx context.Context, slots []*model.Slot) (int, error) {
	if len(slots) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO appointment_slots (
			id, specialist_id, specialty_id, availability_id,
			date, start_at, end_at, duration, status,
			created_at, updated_at
		) VALUES (
			:id, :specialist_id, :specialty_id, :availability_id,
			:date, :start_at, :end_at, :duration, :status,
			:created_at, :updated_at
		)
		ON CONFLICT (specialist_id, start_at) DO NOTHING
	`

	now := time.Now()
	for _, slot := range slots {
		if slot.ID == uuid.Nil {
			slot.ID = uuid.New()
		}
		slot.CreatedAt = now
		slot.UpdatedAt = now
	}

	result, err := r.GetDB().NamedExecContext(ctx, query, slots)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			// Conflict target mismatch can still surface the violation
			// directly; treat it the same as a skipped duplicate batch.
			return 0, nil
		}
		return 0, fmt.Errorf("failed to bulk insert slots: %w", err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(inserted), nil
}

func (r *slotRepository) Get(ctx context.Context, id uuid.UUID) (*model.Slot, error) {
	query := `
		SELECT id, specialist_id, specialty_id, availability_id,
			   date, start_at, end_at, duration, status,
			   created_at, updated_at
		FROM appointment_slots
		WHERE id = $1
	`
	var slot model.Slot
	if err := r.GetDB().GetContext(ctx, &slot, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("slot", err)
		}
		return nil, fmt.Errorf("failed to get slot: %w", err)
	}
	return &slot, nil
}

func (r *slotRepository) LatestDate(ctx context.Context, specialistID int64) (*time.Time, error) {
	query := `
		SELECT date FROM appointment_slots
		WHERE specialist_id = $1
		ORDER BY date DESC
		LIMIT 1
	`
	var date time.Time
	if err := r.GetDB().GetContext(ctx, &date, query, specialistID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest slot date: %w", err)
	}
	return &date, nil
}

func (r *slotRepository) List(ctx context.Context, filters *model.SlotFilters) ([]*model.SlotWithDetails, error) {
	query := `
		SELECT s.id, s.specialist_id, s.specialty_id, s.availability_id,
			   s.date, s.start_at, s.end_at, s.duration, s.status,
			   s.created_at, s.updated_at,
			   sp.first_name || ' ' || sp.last_name AS specialist_name,
			   e.name AS specialty_name
		FROM appointment_slots s
		JOIN specialists sp ON sp.id = s.specialist_id
		JOIN specialties e ON e.id = s.specialty_id
		WHERE 1=1
	`
	args := []interface{}{}

	if filters.SpecialistID != nil {
		query += fmt.Sprintf(" AND s.specialist_id = $%d", len(args)+1)
		args = append(args, *filters.SpecialistID)
	}
	if filters.SpecialtyID != nil {
		query += fmt.Sprintf(" AND s.specialty_id = $%d", len(args)+1)
		args = append(args, *filters.SpecialtyID)
	}
	status := filters.Status
	if status == "" {
		status = model.SlotStatusFree
	}
	query += fmt.Sprintf(" AND s.status = $%d", len(args)+1)
	args = append(args, status)

	if filters.DateFrom != nil {
		query += fmt.Sprintf(" AND s.start_at >= $%d", len(args)+1)
		args = append(args, *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query += fmt.Sprintf(" AND s.end_at <= $%d", len(args)+1)
		args = append(args, *filters.DateTo)
	}

	query += " ORDER BY s.start_at ASC"

	var slots []*model.SlotWithDetails
	if err := r.GetDB().SelectContext(ctx, &slots, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	return slots, nil
}
