package slot

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turnomed/clinic-api/internal/model"
	apperrors "github.com/turnomed/clinic-api/pkg/errors"
)

type fakeSlotRepo struct {
	slots       []*model.SlotWithDetails
	lastFilters *model.SlotFilters
}

func (r *fakeSlotRepo) BulkInsert(_ context.Context, _ []*model.Slot) (int, error) { return 0, nil }

func (r *fakeSlotRepo) Get(_ context.Context, _ uuid.UUID) (*model.Slot, error) {
	return nil, apperrors.NotFound("slot", nil)
}

func (r *fakeSlotRepo) LatestDate(_ context.Context, _ int64) (*time.Time, error) { return nil, nil }

func (r *fakeSlotRepo) List(_ context.Context, filters *model.SlotFilters) ([]*model.SlotWithDetails, error) {
	r.lastFilters = filters
	return r.slots, nil
}

type fakeSpecialistRepo struct {
	specialties []*model.Specialty
	calls       int
}

func (r *fakeSpecialistRepo) Get(_ context.Context, _ int64) (*model.Specialist, error) {
	return nil, apperrors.NotFound("specialist", nil)
}

func (r *fakeSpecialistRepo) GetByUserID(_ context.Context, _ uuid.UUID) (*model.Specialist, error) {
	return nil, apperrors.NotFound("specialist", nil)
}

func (r *fakeSpecialistRepo) HasSpecialty(_ context.Context, _, _ int64) (bool, error) {
	return false, nil
}

func (r *fakeSpecialistRepo) ListOfferedSpecialties(_ context.Context) ([]*model.Specialty, error) {
	r.calls++
	return r.specialties, nil
}

func TestListSlotsDefaultsToFree(t *testing.T) {
	slotRepo := &fakeSlotRepo{}
	svc := NewService(slotRepo, &fakeSpecialistRepo{}, time.Minute, time.Minute)

	_, err := svc.ListSlots(context.Background(), &model.SlotFilters{})
	require.NoError(t, err)
	assert.Equal(t, model.SlotStatusFree, slotRepo.lastFilters.Status)
}

func TestListSlotsKeepsExplicitStatus(t *testing.T) {
	slotRepo := &fakeSlotRepo{}
	svc := NewService(slotRepo, &fakeSpecialistRepo{}, time.Minute, time.Minute)

	_, err := svc.ListSlots(context.Background(), &model.SlotFilters{Status: model.SlotStatusReserved})
	require.NoError(t, err)
	assert.Equal(t, model.SlotStatusReserved, slotRepo.lastFilters.Status)
}

func TestListSpecialtiesCaches(t *testing.T) {
	specialistRepo := &fakeSpecialistRepo{
		specialties: []*model.Specialty{{ID: 1, Name: "Cardiology"}},
	}
	svc := NewService(&fakeSlotRepo{}, specialistRepo, time.Minute, time.Minute)

	first, err := svc.ListSpecialties(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := svc.ListSpecialties(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, specialistRepo.calls)
}
