package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/turnomed/clinic-api/internal/model"
	"github.com/turnomed/clinic-api/internal/repository"
	apperrors "github.com/turnomed/clinic-api/pkg/errors"
)

type appointmentRepository struct {
	BaseRepository
}

func NewAppointmentRepository(base BaseRepository) repository.AppointmentRepository {
	return &appointmentRepository{base}
}

const appointmentColumns = `
	id, slot_id, specialist_id, specialty_id, patient_id, created_by_id,
	status, cancel_reason, reject_reason, specialist_review, patient_comment,
	accepted_at, completed_at, created_at, updated_at
`

// Create books a slot. The conditional UPDATE is the critical section: only
// one of any number of concurrent bookings observes FREE and flips it, so
// a lost race surfaces as SlotNotAvailable instead of a double booking.
func (r *appointmentRepository) Create(ctx context.Context, appt *model.Appointment, note *string) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		reserve := `
			UPDATE appointment_slots
			SET status = $1, updated_at = $2
			WHERE id = $3 AND status = $4
		`
		result, err := tx.ExecContext(ctx, reserve,
			model.SlotStatusReserved, time.Now(), appt.SlotID, model.SlotStatusFree)
		if err != nil {
			return fmt.Errorf("failed to reserve slot: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			var exists bool
			check := `SELECT EXISTS (SELECT 1 FROM appointment_slots WHERE id = $1)`
			if err := tx.GetContext(ctx, &exists, check, appt.SlotID); err != nil {
				return fmt.Errorf("failed to check slot existence: %w", err)
			}
			if !exists {
				return apperrors.NotFound("slot", nil)
			}
			return apperrors.SlotNotAvailable()
		}

		insert := `
			INSERT INTO appointments (
				id, slot_id, specialist_id, specialty_id, patient_id,
				created_by_id, status, patient_comment, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`
		appt.ID = uuid.New()
		appt.CreatedAt = time.Now()
		appt.UpdatedAt = appt.CreatedAt

		if _, err := tx.ExecContext(ctx, insert,
			appt.ID,
			appt.SlotID,
			appt.SpecialistID,
			appt.SpecialtyID,
			appt.PatientID,
			appt.CreatedByID,
			appt.Status,
			appt.PatientComment,
			appt.CreatedAt,
			appt.UpdatedAt,
		); err != nil {
			return fmt.Errorf("failed to create appointment: %w", err)
		}

		if err := r.insertHistory(ctx, tx, appt.ID, appt.CreatedByID, appt.Status, note); err != nil {
			return err
		}
		return r.insertEvent(ctx, tx, "appointment.created", appt, appt.CreatedByID, note)
	})
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	var appt model.Appointment
	if err := r.GetDB().GetContext(ctx, &appt, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("appointment", err)
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appt, nil
}

const appointmentRelationsQuery = `
	SELECT a.id, a.slot_id, a.specialist_id, a.specialty_id, a.patient_id,
		   a.created_by_id, a.status, a.cancel_reason, a.reject_reason,
		   a.specialist_review, a.patient_comment, a.accepted_at,
		   a.completed_at, a.created_at, a.updated_at,
		   e.name AS specialty_name,
		   sp.first_name || ' ' || sp.last_name AS specialist_name,
		   p.first_name || ' ' || p.last_name AS patient_name,
		   s.start_at AS slot_start_at,
		   s.end_at AS slot_end_at
	FROM appointments a
	JOIN appointment_slots s ON s.id = a.slot_id
	JOIN specialties e ON e.id = a.specialty_id
	JOIN specialists sp ON sp.id = a.specialist_id
	JOIN users p ON p.id = a.patient_id
`

func (r *appointmentRepository) GetWithRelations(ctx context.Context, id uuid.UUID) (*model.AppointmentWithRelations, error) {
	query := appointmentRelationsQuery + ` WHERE a.id = $1`
	var appt model.AppointmentWithRelations
	if err := r.GetDB().GetContext(ctx, &appt, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("appointment", err)
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appt, nil
}

// Transition applies the guarded status update and every side effect in one
// transaction. The WHERE status = expected clause serializes concurrent
// transitions on the same appointment: the second writer sees zero rows.
func (r *appointmentRepository) Transition(ctx context.Context, t *model.AppointmentTransition) (*model.Appointment, error) {
	var updated model.Appointment

	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			UPDATE appointments
			SET status = $1,
				cancel_reason = COALESCE($2, cancel_reason),
				reject_reason = COALESCE($3, reject_reason),
				specialist_review = COALESCE($4, specialist_review),
				accepted_at = COALESCE($5, accepted_at),
				completed_at = COALESCE($6, completed_at),
				updated_at = $7
			WHERE id = $8 AND status = $9
			RETURNING ` + appointmentColumns

		err := tx.GetContext(ctx, &updated, query,
			t.NextStatus,
			t.CancelReason,
			t.RejectReason,
			t.SpecialistReview,
			t.AcceptedAt,
			t.CompletedAt,
			time.Now(),
			t.AppointmentID,
			t.ExpectedStatus,
		)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperrors.InvalidTransition(string(t.ExpectedStatus), string(t.NextStatus))
			}
			return fmt.Errorf("failed to update appointment status: %w", err)
		}

		if t.CancelSlot {
			void := `
				UPDATE appointment_slots
				SET status = $1, updated_at = $2
				WHERE id = $3 AND status = $4
			`
			if _, err := tx.ExecContext(ctx, void,
				model.SlotStatusCancelled, time.Now(), updated.SlotID, model.SlotStatusReserved); err != nil {
				return fmt.Errorf("failed to void slot: %w", err)
			}
		}

		if t.Record != nil {
			if err := r.upsertMedicalRecord(ctx, tx, t.Record); err != nil {
				return err
			}
		}

		if err := r.insertHistory(ctx, tx, updated.ID, t.ActorID, t.NextStatus, t.Note); err != nil {
			return err
		}
		return r.insertEvent(ctx, tx, "appointment."+eventSuffix(t.NextStatus), &updated, t.ActorID, t.Note)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *appointmentRepository) SetPatientComment(ctx context.Context, id, actorID uuid.UUID, note string) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			UPDATE appointments
			SET patient_comment = $1, updated_at = $2
			WHERE id = $3
			RETURNING status
		`
		var status model.AppointmentStatus
		if err := tx.GetContext(ctx, &status, query, note, time.Now(), id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperrors.NotFound("appointment", err)
			}
			return fmt.Errorf("failed to set patient comment: %w", err)
		}
		return r.insertHistory(ctx, tx, id, actorID, status, &note)
	})
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.AppointmentWithRelations, error) {
	query := appointmentRelationsQuery + ` WHERE 1=1`
	args := []interface{}{}

	if filters.Status != "" {
		query += fmt.Sprintf(" AND a.status = $%d", len(args)+1)
		args = append(args, filters.Status)
	}
	if filters.SpecialtyID != nil {
		query += fmt.Sprintf(" AND a.specialty_id = $%d", len(args)+1)
		args = append(args, *filters.SpecialtyID)
	}
	if filters.PatientID != nil {
		query += fmt.Sprintf(" AND a.patient_id = $%d", len(args)+1)
		args = append(args, *filters.PatientID)
	}
	if filters.SpecialistID != nil {
		query += fmt.Sprintf(" AND a.specialist_id = $%d", len(args)+1)
		args = append(args, *filters.SpecialistID)
	}
	if filters.Search != "" {
		// Search spans the specialty name, counterpart names, the review
		// and comment, and the medical record's pressure/search text.
		idx := len(args) + 1
		query += fmt.Sprintf(`
			AND (
				e.name ILIKE $%d
				OR sp.first_name || ' ' || sp.last_name ILIKE $%d
				OR p.first_name || ' ' || p.last_name ILIKE $%d
				OR a.specialist_review ILIKE $%d
				OR a.patient_comment ILIKE $%d
				OR EXISTS (
					SELECT 1 FROM medical_records m
					WHERE m.appointment_id = a.id
					AND (m.pressure ILIKE $%d OR m.search_text ILIKE $%d)
				)
			)`, idx, idx, idx, idx, idx, idx, idx)
		args = append(args, "%"+filters.Search+"%")
	}

	query += " ORDER BY a.created_at DESC"

	var appointments []*model.AppointmentWithRelations
	if err := r.GetDB().SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) ListHistory(ctx context.Context, appointmentID uuid.UUID) ([]*model.AppointmentHistory, error) {
	query := `
		SELECT id, appointment_id, actor_id, action, note, created_at
		FROM appointment_history
		WHERE appointment_id = $1
		ORDER BY created_at ASC, id ASC
	`
	var history []*model.AppointmentHistory
	if err := r.GetDB().SelectContext(ctx, &history, query, appointmentID); err != nil {
		return nil, fmt.Errorf("failed to list appointment history: %w", err)
	}
	return history, nil
}

func (r *appointmentRepository) insertHistory(ctx context.Context, tx *sqlx.Tx, appointmentID, actorID uuid.UUID, action model.AppointmentStatus, note *string) error {
	query := `
		INSERT INTO appointment_history (
			appointment_id, actor_id, action, note, created_at
		) VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := tx.ExecContext(ctx, query, appointmentID, actorID, action, note, time.Now()); err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}
	return nil
}

func (r *appointmentRepository) upsertMedicalRecord(ctx context.Context, tx *sqlx.Tx, record *model.MedicalRecord) error {
	extra, err := json.Marshal(record.Extra)
	if err != nil {
		return fmt.Errorf("failed to marshal extra fields: %w", err)
	}
	record.ExtraJSON = extra

	query := `
		INSERT INTO medical_records (
			id, appointment_id, patient_id, specialist_id,
			height, weight, temperature, pressure,
			extra_fields, search_text, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (appointment_id) DO UPDATE SET
			height = EXCLUDED.height,
			weight = EXCLUDED.weight,
			temperature = EXCLUDED.temperature,
			pressure = EXCLUDED.pressure,
			extra_fields = EXCLUDED.extra_fields,
			search_text = EXCLUDED.search_text,
			updated_at = EXCLUDED.updated_at
	`
	now := time.Now()
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.CreatedAt = now
	record.UpdatedAt = now

	if _, err := tx.ExecContext(ctx, query,
		record.ID,
		record.AppointmentID,
		record.PatientID,
		record.SpecialistID,
		record.Height,
		record.Weight,
		record.Temperature,
		record.Pressure,
		record.ExtraJSON,
		record.SearchText,
		record.CreatedAt,
		record.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to upsert medical record: %w", err)
	}
	return nil
}

func (r *appointmentRepository) insertEvent(ctx context.Context, tx *sqlx.Tx, eventType string, appt *model.Appointment, actorID uuid.UUID, note *string) error {
	payload, err := json.Marshal(model.AppointmentEvent{
		AppointmentID: appt.ID,
		SlotID:        appt.SlotID,
		PatientID:     appt.PatientID,
		SpecialistID:  appt.SpecialistID,
		ActorID:       actorID,
		Status:        appt.Status,
		Note:          note,
		OccurredAt:    time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	query := `
		INSERT INTO outbox_events (
			id, event_type, payload, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`
	now := time.Now()
	if _, err := tx.ExecContext(ctx, query,
		uuid.New(), eventType, payload, model.OutboxStatusPending, now, now); err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}
	return nil
}

func eventSuffix(status model.AppointmentStatus) string {
	switch status {
	case model.AppointmentStatusAccepted:
		return "accepted"
	case model.AppointmentStatusRejected:
		return "rejected"
	case model.AppointmentStatusCancelled:
		return "cancelled"
	case model.AppointmentStatusDone:
		return "completed"
	default:
		return "updated"
	}
}
