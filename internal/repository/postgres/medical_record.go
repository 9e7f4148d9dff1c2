package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/turnomed/clinic-api/internal/model"
	"github.com/turnomed/clinic-api/internal/repository"
	apperrors "github.com/turnomed/clinic-api/pkg/errors"
)

type medicalRecordRepository struct {
	BaseRepository
}

func NewMedicalRecordRepository(base BaseRepository) repository.MedicalRecordRepository {
	return &medicalRecordRepository{base}
}

// Writes happen inside the finalize transaction owned by the appointment
// repository; this repository only serves reads.
func (r *medicalRecordRepository) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.MedicalRecord, error) {
	query := `
		SELECT id, appointment_id, patient_id, specialist_id,
			   height, weight, temperature, pressure,
			   extra_fields, search_text, created_at, updated_at
		FROM medical_records
		WHERE appointment_id = $1
	`
	var record model.MedicalRecord
	if err := r.GetDB().GetContext(ctx, &record, query, appointmentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("medical record", err)
		}
		return nil, fmt.Errorf("failed to get medical record: %w", err)
	}

	if len(record.ExtraJSON) > 0 {
		if err := json.Unmarshal(record.ExtraJSON, &record.Extra); err != nil {
			return nil, fmt.Errorf("failed to unmarshal extra fields: %w", err)
		}
	}
	return &record, nil
}
