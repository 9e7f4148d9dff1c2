package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/turnomed/clinic-api/internal/model"
	"github.com/turnomed/clinic-api/internal/repository"
	apperrors "github.com/turnomed/clinic-api/pkg/errors"
)

type availabilityRepository struct {
	BaseRepository
}

func NewAvailabilityRepository(base BaseRepository) repository.AvailabilityRepository {
	return &availabilityRepository{base}
}

func (r *availabilityRepository) Create(ctx context.Context, tmpl *model.AvailabilityTemplate) error {
	query := `
		INSERT INTO availability_templates (
			specialist_id, specialty_id, day_of_week,
			start_minute, end_minute, duration, active,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	tmpl.CreatedAt = time.Now()
	tmpl.UpdatedAt = tmpl.CreatedAt

	err := r.GetDB().QueryRowContext(ctx, query,
		tmpl.SpecialistID,
		tmpl.SpecialtyID,
		tmpl.DayOfWeek,
		tmpl.StartMinute,
		tmpl.EndMinute,
		tmpl.Duration,
		tmpl.Active,
		tmpl.CreatedAt,
		tmpl.UpdatedAt,
	).Scan(&tmpl.ID)
	if err != nil {
		return fmt.Errorf("failed to create availability template: %w", err)
	}
	return nil
}

func (r *availabilityRepository) Get(ctx context.Context, id int64) (*model.AvailabilityTemplate, error) {
	query := `
		SELECT id, specialist_id, specialty_id, day_of_week,
			   start_minute, end_minute, duration, active,
			   created_at, updated_at
		FROM availability_templates
		WHERE id = $1
	`
	var tmpl model.AvailabilityTemplate
	if err := r.GetDB().GetContext(ctx, &tmpl, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("availability template", err)
		}
		return nil, fmt.Errorf("failed to get availability template: %w", err)
	}
	return &tmpl, nil
}

func (r *availabilityRepository) Update(ctx context.Context, tmpl *model.AvailabilityTemplate) error {
	query := `
		UPDATE availability_templates
		SET specialist_id = $1, specialty_id = $2, day_of_week = $3,
			start_minute = $4, end_minute = $5, duration = $6,
			active = $7, updated_at = $8
		WHERE id = $9
	`
	tmpl.UpdatedAt = time.Now()

	result, err := r.GetDB().ExecContext(ctx, query,
		tmpl.SpecialistID,
		tmpl.SpecialtyID,
		tmpl.DayOfWeek,
		tmpl.StartMinute,
		tmpl.EndMinute,
		tmpl.Duration,
		tmpl.Active,
		tmpl.UpdatedAt,
		tmpl.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update availability template: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("availability template", nil)
	}
	return nil
}

// Deactivate soft-deletes: generated slots keep their back-reference, so
// templates are never removed.
func (r *availabilityRepository) Deactivate(ctx context.Context, id int64) error {
	query := `
		UPDATE availability_templates
		SET active = false, updated_at = $1
		WHERE id = $2
	`
	result, err := r.GetDB().ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to deactivate availability template: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("availability template", nil)
	}
	return nil
}

func (r *availabilityRepository) List(ctx context.Context, filters *model.AvailabilityFilters) ([]*model.AvailabilityTemplate, error) {
	query := `
		SELECT id, specialist_id, specialty_id, day_of_week,
			   start_minute, end_minute, duration, active,
			   created_at, updated_at
		FROM availability_templates
		WHERE 1=1
	`
	args := []interface{}{}

	if filters.SpecialistID != nil {
		query += fmt.Sprintf(" AND specialist_id = $%d", len(args)+1)
		args = append(args, *filters.SpecialistID)
	}
	if filters.SpecialtyID != nil {
		query += fmt.Sprintf(" AND specialty_id = $%d", len(args)+1)
		args = append(args, *filters.SpecialtyID)
	}
	if filters.DayOfWeek != "" {
		query += fmt.Sprintf(" AND day_of_week = $%d", len(args)+1)
		args = append(args, filters.DayOfWeek)
	}
	if filters.Active != nil {
		query += fmt.Sprintf(" AND active = $%d", len(args)+1)
		args = append(args, *filters.Active)
	}

	query += " ORDER BY created_at DESC"

	var templates []*model.AvailabilityTemplate
	if err := r.GetDB().SelectContext(ctx, &templates, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list availability templates: %w", err)
	}
	return templates, nil
}

func (r *availabilityRepository) ListActive(ctx context.Context, specialistID int64) ([]*model.AvailabilityTemplate, error) {
	query := `
		SELECT id, specialist_id, specialty_id, day_of_week,
			   start_minute, end_minute, duration, active,
			   created_at, updated_at
		FROM availability_templates
		WHERE specialist_id = $1 AND active = true
	`
	var templates []*model.AvailabilityTemplate
	if err := r.GetDB().SelectContext(ctx, &templates, query, specialistID); err != nil {
		return nil, fmt.Errorf("failed to list active templates: %w", err)
	}
	return templates, nil
}
