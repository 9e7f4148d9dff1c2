package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/turnomed/clinic-api/internal/model"
	"github.com/turnomed/clinic-api/internal/repository"
	apperrors "github.com/turnomed/clinic-api/pkg/errors"
)

type specialistRepository struct {
	BaseRepository
}

func NewSpecialistRepository(base BaseRepository) repository.SpecialistRepository {
	return &specialistRepository{base}
}

func (r *specialistRepository) Get(ctx context.Context, id int64) (*model.Specialist, error) {
	query := `
		SELECT id, user_id, first_name, last_name, created_at, updated_at
		FROM specialists
		WHERE id = $1
	`
	var specialist model.Specialist
	if err := r.GetDB().GetContext(ctx, &specialist, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("specialist", err)
		}
		return nil, fmt.Errorf("failed to get specialist: %w", err)
	}
	return &specialist, nil
}

func (r *specialistRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Specialist, error) {
	query := `
		SELECT id, user_id, first_name, last_name, created_at, updated_at
		FROM specialists
		WHERE user_id = $1
	`
	var specialist model.Specialist
	if err := r.GetDB().GetContext(ctx, &specialist, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("specialist", err)
		}
		return nil, fmt.Errorf("failed to get specialist by user: %w", err)
	}
	return &specialist, nil
}

func (r *specialistRepository) HasSpecialty(ctx context.Context, specialistID, specialtyID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM specialist_specialties
			WHERE specialist_id = $1 AND specialty_id = $2
		)
	`
	var exists bool
	if err := r.GetDB().GetContext(ctx, &exists, query, specialistID, specialtyID); err != nil {
		return false, fmt.Errorf("failed to check specialist specialty: %w", err)
	}
	return exists, nil
}

func (r *specialistRepository) ListOfferedSpecialties(ctx context.Context) ([]*model.Specialty, error) {
	query := `
		SELECT DISTINCT e.id, e.name, e.slug, e.created_at
		FROM specialties e
		JOIN specialist_specialties ss ON ss.specialty_id = e.id
		ORDER BY e.name ASC
	`
	var specialties []*model.Specialty
	if err := r.GetDB().SelectContext(ctx, &specialties, query); err != nil {
		return nil, fmt.Errorf("failed to list offered specialties: %w", err)
	}
	return specialties, nil
}
