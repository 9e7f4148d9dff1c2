package availability

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turnomed/clinic-api/internal/model"
	"github.com/turnomed/clinic-api/internal/repository"
	apperrors "github.com/turnomed/clinic-api/pkg/errors"
)

type fakeAvailabilityRepo struct {
	templates map[int64]*model.AvailabilityTemplate
	nextID    int64
}

func newFakeAvailabilityRepo() *fakeAvailabilityRepo {
	return &fakeAvailabilityRepo{templates: make(map[int64]*model.AvailabilityTemplate), nextID: 1}
}

func (r *fakeAvailabilityRepo) Create(_ context.Context, tmpl *model.AvailabilityTemplate) error {
	tmpl.ID = r.nextID
	r.nextID++
	copied := *tmpl
	r.templates[tmpl.ID] = &copied
	return nil
}

func (r *fakeAvailabilityRepo) Get(_ context.Context, id int64) (*model.AvailabilityTemplate, error) {
	tmpl, ok := r.templates[id]
	if !ok {
		return nil, apperrors.NotFound("availability template", nil)
	}
	copied := *tmpl
	return &copied, nil
}

func (r *fakeAvailabilityRepo) Update(_ context.Context, tmpl *model.AvailabilityTemplate) error {
	if _, ok := r.templates[tmpl.ID]; !ok {
		return apperrors.NotFound("availability template", nil)
	}
	copied := *tmpl
	r.templates[tmpl.ID] = &copied
	return nil
}

func (r *fakeAvailabilityRepo) Deactivate(_ context.Context, id int64) error {
	tmpl, ok := r.templates[id]
	if !ok {
		return apperrors.NotFound("availability template", nil)
	}
	tmpl.Active = false
	return nil
}

func (r *fakeAvailabilityRepo) List(_ context.Context, _ *model.AvailabilityFilters) ([]*model.AvailabilityTemplate, error) {
	out := make([]*model.AvailabilityTemplate, 0, len(r.templates))
	for _, tmpl := range r.templates {
		copied := *tmpl
		out = append(out, &copied)
	}
	return out, nil
}

func (r *fakeAvailabilityRepo) ListActive(_ context.Context, specialistID int64) ([]*model.AvailabilityTemplate, error) {
	var out []*model.AvailabilityTemplate
	for _, tmpl := range r.templates {
		if tmpl.SpecialistID == specialistID && tmpl.Active {
			copied := *tmpl
			out = append(out, &copied)
		}
	}
	return out, nil
}

type fakeSlotRepo struct {
	slots      []*model.Slot
	latest     *time.Time
	lastInsert []*model.Slot
}

func (r *fakeSlotRepo) BulkInsert(_ context.Context, slots []*model.Slot) (int, error) {
	inserted := 0
	for _, slot := range slots {
		dup := false
		for _, existing := range r.slots {
			if existing.SpecialistID == slot.SpecialistID && existing.StartAt.Equal(slot.StartAt) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		slot.ID = uuid.New()
		r.slots = append(r.slots, slot)
		inserted++
	}
	r.lastInsert = slots
	return inserted, nil
}

func (r *fakeSlotRepo) Get(_ context.Context, id uuid.UUID) (*model.Slot, error) {
	for _, slot := range r.slots {
		if slot.ID == id {
			return slot, nil
		}
	}
	return nil, apperrors.NotFound("slot", nil)
}

func (r *fakeSlotRepo) LatestDate(_ context.Context, specialistID int64) (*time.Time, error) {
	if r.latest != nil {
		return r.latest, nil
	}
	var latest *time.Time
	for _, slot := range r.slots {
		if slot.SpecialistID != specialistID {
			continue
		}
		if latest == nil || slot.Date.After(*latest) {
			d := slot.Date
			latest = &d
		}
	}
	return latest, nil
}

func (r *fakeSlotRepo) List(_ context.Context, _ *model.SlotFilters) ([]*model.SlotWithDetails, error) {
	return nil, nil
}

type fakeSpecialistRepo struct {
	specialists map[int64]*model.Specialist
	specialties map[int64]map[int64]bool
}

func newFakeSpecialistRepo() *fakeSpecialistRepo {
	return &fakeSpecialistRepo{
		specialists: make(map[int64]*model.Specialist),
		specialties: make(map[int64]map[int64]bool),
	}
}

func (r *fakeSpecialistRepo) add(id int64, specialtyIDs ...int64) {
	r.specialists[id] = &model.Specialist{ID: id, UserID: uuid.New()}
	r.specialties[id] = make(map[int64]bool)
	for _, sp := range specialtyIDs {
		r.specialties[id][sp] = true
	}
}

func (r *fakeSpecialistRepo) Get(_ context.Context, id int64) (*model.Specialist, error) {
	specialist, ok := r.specialists[id]
	if !ok {
		return nil, apperrors.NotFound("specialist", nil)
	}
	return specialist, nil
}

func (r *fakeSpecialistRepo) GetByUserID(_ context.Context, userID uuid.UUID) (*model.Specialist, error) {
	for _, specialist := range r.specialists {
		if specialist.UserID == userID {
			return specialist, nil
		}
	}
	return nil, apperrors.NotFound("specialist", nil)
}

func (r *fakeSpecialistRepo) HasSpecialty(_ context.Context, specialistID, specialtyID int64) (bool, error) {
	return r.specialties[specialistID][specialtyID], nil
}

func (r *fakeSpecialistRepo) ListOfferedSpecialties(_ context.Context) ([]*model.Specialty, error) {
	return nil, nil
}

var (
	_ repository.AvailabilityRepository = (*fakeAvailabilityRepo)(nil)
	_ repository.SlotRepository         = (*fakeSlotRepo)(nil)
	_ repository.SpecialistRepository   = (*fakeSpecialistRepo)(nil)
)

func intPtr(v int) *int { return &v }

func newTestService(t *testing.T, nowStr string) (*Service, *fakeAvailabilityRepo, *fakeSlotRepo, *fakeSpecialistRepo) {
	t.Helper()
	now, err := time.Parse(time.RFC3339, nowStr)
	require.NoError(t, err)

	availRepo := newFakeAvailabilityRepo()
	slotRepo := &fakeSlotRepo{}
	specialistRepo := newFakeSpecialistRepo()
	specialistRepo.add(1, 10)

	svc := NewService(availRepo, slotRepo, specialistRepo, nil)
	svc.now = func() time.Time { return now }
	return svc, availRepo, slotRepo, specialistRepo
}

func TestCreateTemplate(t *testing.T) {
	svc, _, _, _ := newTestService(t, "2026-03-02T12:00:00Z")

	tmpl, err := svc.CreateTemplate(context.Background(), &model.CreateAvailabilityRequest{
		SpecialistID: 1,
		SpecialtyID:  10,
		DayOfWeek:    model.WeekdayMonday,
		StartMinute:  intPtr(540),
		EndMinute:    intPtr(600),
		Duration:     model.SlotDuration15,
	})
	require.NoError(t, err)
	assert.NotZero(t, tmpl.ID)
	assert.True(t, tmpl.Active)
}

func TestCreateTemplateInvalidWindow(t *testing.T) {
	svc, _, _, _ := newTestService(t, "2026-03-02T12:00:00Z")

	tests := []struct {
		name     string
		start    int
		end      int
		duration model.SlotDuration
	}{
		{"start after end", 600, 540, model.SlotDuration15},
		{"start equals end", 540, 540, model.SlotDuration15},
		{"not multiple of 5", 542, 600, model.SlotDuration15},
		{"does not tile", 540, 590, model.SlotDuration15},
		{"negative start", -5, 540, model.SlotDuration15},
		{"end past midnight", 1380, 1440, model.SlotDuration15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateTemplate(context.Background(), &model.CreateAvailabilityRequest{
				SpecialistID: 1,
				SpecialtyID:  10,
				DayOfWeek:    model.WeekdayMonday,
				StartMinute:  intPtr(tt.start),
				EndMinute:    intPtr(tt.end),
				Duration:     tt.duration,
			})
			require.Error(t, err)
			assert.Equal(t, apperrors.ErrInvalidWindow, apperrors.CodeOf(err))
		})
	}
}

func TestCreateTemplateSpecialtyNotOffered(t *testing.T) {
	svc, _, _, _ := newTestService(t, "2026-03-02T12:00:00Z")

	_, err := svc.CreateTemplate(context.Background(), &model.CreateAvailabilityRequest{
		SpecialistID: 1,
		SpecialtyID:  99,
		DayOfWeek:    model.WeekdayMonday,
		StartMinute:  intPtr(540),
		EndMinute:    intPtr(600),
		Duration:     model.SlotDuration15,
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrValidation, apperrors.CodeOf(err))
}

func TestUpdateTemplateRevalidatesMergedWindow(t *testing.T) {
	svc, _, _, _ := newTestService(t, "2026-03-02T12:00:00Z")

	tmpl, err := svc.CreateTemplate(context.Background(), &model.CreateAvailabilityRequest{
		SpecialistID: 1,
		SpecialtyID:  10,
		DayOfWeek:    model.WeekdayMonday,
		StartMinute:  intPtr(540),
		EndMinute:    intPtr(600),
		Duration:     model.SlotDuration15,
	})
	require.NoError(t, err)

	// shrinking the end so MIN_15 no longer tiles must fail
	_, err = svc.UpdateTemplate(context.Background(), tmpl.ID, &model.UpdateAvailabilityRequest{
		EndMinute: intPtr(590),
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrInvalidWindow, apperrors.CodeOf(err))

	duration := model.SlotDuration30
	updated, err := svc.UpdateTemplate(context.Background(), tmpl.ID, &model.UpdateAvailabilityRequest{
		Duration: &duration,
	})
	require.NoError(t, err)
	assert.Equal(t, model.SlotDuration30, updated.Duration)
}

func TestDeactivateTemplate(t *testing.T) {
	svc, availRepo, _, _ := newTestService(t, "2026-03-02T12:00:00Z")

	tmpl, err := svc.CreateTemplate(context.Background(), &model.CreateAvailabilityRequest{
		SpecialistID: 1,
		SpecialtyID:  10,
		DayOfWeek:    model.WeekdayMonday,
		StartMinute:  intPtr(540),
		EndMinute:    intPtr(600),
		Duration:     model.SlotDuration15,
	})
	require.NoError(t, err)

	deactivated, err := svc.DeactivateTemplate(context.Background(), tmpl.ID)
	require.NoError(t, err)
	assert.False(t, deactivated.Active)

	stored, err := availRepo.Get(context.Background(), tmpl.ID)
	require.NoError(t, err)
	assert.False(t, stored.Active)
}

func TestGenerateSlotsTilesWindow(t *testing.T) {
	// 2026-03-02 is a Monday
	svc, _, slotRepo, _ := newTestService(t, "2026-03-02T08:00:00Z")

	_, err := svc.CreateTemplate(context.Background(), &model.CreateAvailabilityRequest{
		SpecialistID: 1,
		SpecialtyID:  10,
		DayOfWeek:    model.WeekdayMonday,
		StartMinute:  intPtr(540), // 09:00
		EndMinute:    intPtr(600), // 10:00
		Duration:     model.SlotDuration15,
	})
	require.NoError(t, err)

	result, err := svc.GenerateSlots(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, result.Created)

	require.Len(t, slotRepo.slots, 4)
	first := slotRepo.slots[0]
	assert.Equal(t, 9, first.StartAt.Hour())
	assert.Equal(t, 0, first.StartAt.Minute())
	last := slotRepo.slots[3]
	assert.Equal(t, 9, last.StartAt.Hour())
	assert.Equal(t, 45, last.StartAt.Minute())
	assert.Equal(t, 10, last.EndAt.Hour())
	for _, slot := range slotRepo.slots {
		assert.Equal(t, model.SlotStatusFree, slot.Status)
	}
}

func TestGenerateSlotsMonotonicStart(t *testing.T) {
	svc, _, slotRepo, _ := newTestService(t, "2026-03-02T08:00:00Z")

	_, err := svc.CreateTemplate(context.Background(), &model.CreateAvailabilityRequest{
		SpecialistID: 1,
		SpecialtyID:  10,
		DayOfWeek:    model.WeekdayMonday,
		StartMinute:  intPtr(540),
		EndMinute:    intPtr(600),
		Duration:     model.SlotDuration30,
	})
	require.NoError(t, err)

	// slots already generated through Monday 2026-03-09
	latest := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	slotRepo.latest = &latest

	result, err := svc.GenerateSlots(context.Background(), 1, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Created)

	// generation resumed the day after the latest slot, so the only
	// matching Monday in the 7-day window is 2026-03-16
	for _, slot := range slotRepo.slots {
		assert.Equal(t, time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC), slot.Date)
	}
}

func TestGenerateSlotsRerunSkipsDuplicates(t *testing.T) {
	svc, _, _, _ := newTestService(t, "2026-03-02T08:00:00Z")

	_, err := svc.CreateTemplate(context.Background(), &model.CreateAvailabilityRequest{
		SpecialistID: 1,
		SpecialtyID:  10,
		DayOfWeek:    model.WeekdayMonday,
		StartMinute:  intPtr(540),
		EndMinute:    intPtr(600),
		Duration:     model.SlotDuration15,
	})
	require.NoError(t, err)

	first, err := svc.GenerateSlots(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, first.Created)

	// after the first run LatestDate moves forward, so a rerun over the
	// same day finds nothing new
	second, err := svc.GenerateSlots(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
}

func TestGenerateSlotsNoMatchingDays(t *testing.T) {
	// window contains no Sunday
	svc, _, _, _ := newTestService(t, "2026-03-02T08:00:00Z")

	_, err := svc.CreateTemplate(context.Background(), &model.CreateAvailabilityRequest{
		SpecialistID: 1,
		SpecialtyID:  10,
		DayOfWeek:    model.WeekdaySunday,
		StartMinute:  intPtr(540),
		EndMinute:    intPtr(600),
		Duration:     model.SlotDuration15,
	})
	require.NoError(t, err)

	result, err := svc.GenerateSlots(context.Background(), 1, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Created)
}

func TestGenerateSlotsNoActiveTemplates(t *testing.T) {
	svc, _, _, _ := newTestService(t, "2026-03-02T08:00:00Z")

	_, err := svc.GenerateSlots(context.Background(), 1, 7)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrNoActiveAvailability, apperrors.CodeOf(err))
}

func TestGenerateSlotsUnknownSpecialist(t *testing.T) {
	svc, _, _, _ := newTestService(t, "2026-03-02T08:00:00Z")

	_, err := svc.GenerateSlots(context.Background(), 42, 7)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrNotFound, apperrors.CodeOf(err))
}

func TestGenerateSlotsDefaultHorizon(t *testing.T) {
	svc, _, slotRepo, _ := newTestService(t, "2026-03-02T08:00:00Z")

	_, err := svc.CreateTemplate(context.Background(), &model.CreateAvailabilityRequest{
		SpecialistID: 1,
		SpecialtyID:  10,
		DayOfWeek:    model.WeekdayMonday,
		StartMinute:  intPtr(540),
		EndMinute:    intPtr(600),
		Duration:     model.SlotDuration30,
	})
	require.NoError(t, err)

	// 15-day window starting Monday 2026-03-02 contains three Mondays
	result, err := svc.GenerateSlots(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 6, result.Created)
	assert.Len(t, slotRepo.slots, 6)
}
