package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/turnomed/clinic-api/internal/model"
	redisclient "github.com/turnomed/clinic-api/internal/redis"
	"github.com/turnomed/clinic-api/internal/repository"
	apperrors "github.com/turnomed/clinic-api/pkg/errors"
)

// DefaultHorizonDays is how far ahead slot generation looks when the
// caller does not say otherwise.
const DefaultHorizonDays = 15

type Service struct {
	repo           repository.AvailabilityRepository
	slotRepo       repository.SlotRepository
	specialistRepo repository.SpecialistRepository
	locker         redisclient.Locker
	now            func() time.Time
}

func NewService(
	repo repository.AvailabilityRepository,
	slotRepo repository.SlotRepository,
	specialistRepo repository.SpecialistRepository,
	locker redisclient.Locker,
) *Service {
	return &Service{
		repo:           repo,
		slotRepo:       slotRepo,
		specialistRepo: specialistRepo,
		locker:         locker,
		now:            time.Now,
	}
}

func (s *Service) CreateTemplate(ctx context.Context, req *model.CreateAvailabilityRequest) (*model.AvailabilityTemplate, error) {
	if err := s.ensureSpecialistSpecialty(ctx, req.SpecialistID, req.SpecialtyID); err != nil {
		return nil, err
	}
	if err := validateWindow(*req.StartMinute, *req.EndMinute, req.Duration); err != nil {
		return nil, err
	}

	tmpl := &model.AvailabilityTemplate{
		SpecialistID: req.SpecialistID,
		SpecialtyID:  req.SpecialtyID,
		DayOfWeek:    req.DayOfWeek,
		StartMinute:  *req.StartMinute,
		EndMinute:    *req.EndMinute,
		Duration:     req.Duration,
		Active:       true,
	}
	if req.Active != nil {
		tmpl.Active = *req.Active
	}

	if err := s.repo.Create(ctx, tmpl); err != nil {
		return nil, fmt.Errorf("failed to create template: %w", err)
	}
	return tmpl, nil
}

func (s *Service) GetTemplate(ctx context.Context, id int64) (*model.AvailabilityTemplate, error) {
	return s.repo.Get(ctx, id)
}

// UpdateTemplate merges the patch over the stored template and re-validates
// the merged values, so a partial update can never leave an untileable
// window behind.
func (s *Service) UpdateTemplate(ctx context.Context, id int64, req *model.UpdateAvailabilityRequest) (*model.AvailabilityTemplate, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.SpecialistID != nil {
		current.SpecialistID = *req.SpecialistID
	}
	if req.SpecialtyID != nil {
		current.SpecialtyID = *req.SpecialtyID
	}
	if req.DayOfWeek != nil {
		current.DayOfWeek = *req.DayOfWeek
	}
	if req.StartMinute != nil {
		current.StartMinute = *req.StartMinute
	}
	if req.EndMinute != nil {
		current.EndMinute = *req.EndMinute
	}
	if req.Duration != nil {
		current.Duration = *req.Duration
	}
	if req.Active != nil {
		current.Active = *req.Active
	}

	if err := s.ensureSpecialistSpecialty(ctx, current.SpecialistID, current.SpecialtyID); err != nil {
		return nil, err
	}
	if err := validateWindow(current.StartMinute, current.EndMinute, current.Duration); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, current); err != nil {
		return nil, err
	}
	return current, nil
}

// DeactivateTemplate is the delete operation: templates are only ever
// switched off because generated slots reference them.
func (s *Service) DeactivateTemplate(ctx context.Context, id int64) (*model.AvailabilityTemplate, error) {
	tmpl, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return nil, err
	}
	tmpl.Active = false
	return tmpl, nil
}

func (s *Service) ListTemplates(ctx context.Context, filters *model.AvailabilityFilters) ([]*model.AvailabilityTemplate, error) {
	templates, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return templates, nil
}

// GenerateSlots expands the specialist's active templates into concrete
// FREE slots over the forward horizon. Generation is monotonic: it always
// starts the day after the latest slot already on record, so re-running
// never touches days that were generated before.
func (s *Service) GenerateSlots(ctx context.Context, specialistID int64, days int) (*model.GenerateSlotsResult, error) {
	if days <= 0 {
		days = DefaultHorizonDays
	}

	if s.locker == nil {
		return s.generate(ctx, specialistID, days)
	}

	var result *model.GenerateSlotsResult
	err := s.locker.WithGenerationLock(ctx, specialistID, func(ctx context.Context) error {
		var genErr error
		result, genErr = s.generate(ctx, specialistID, days)
		return genErr
	})
	if errors.Is(err, redisclient.ErrLockNotAcquired) {
		// Another run is in flight; duplicate-skip on insert already makes
		// a second pass harmless, so run without the lock.
		return s.generate(ctx, specialistID, days)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) generate(ctx context.Context, specialistID int64, days int) (*model.GenerateSlotsResult, error) {
	if _, err := s.specialistRepo.Get(ctx, specialistID); err != nil {
		return nil, err
	}

	templates, err := s.repo.ListActive(ctx, specialistID)
	if err != nil {
		return nil, fmt.Errorf("failed to load active templates: %w", err)
	}
	if len(templates) == 0 {
		return nil, apperrors.NoActiveAvailability()
	}

	latest, err := s.slotRepo.LatestDate(ctx, specialistID)
	if err != nil {
		return nil, fmt.Errorf("failed to find latest slot date: %w", err)
	}

	start := startOfDay(s.now())
	if latest != nil {
		start = startOfDay(*latest).AddDate(0, 0, 1)
	}
	endExclusive := start.AddDate(0, 0, days)

	var slots []*model.Slot
	for day := start; day.Before(endExclusive); day = day.AddDate(0, 0, 1) {
		for _, tmpl := range templates {
			if tmpl.DayOfWeek.Time() != day.Weekday() {
				continue
			}
			slots = append(slots, tileTemplate(tmpl, day)...)
		}
	}

	if len(slots) == 0 {
		return &model.GenerateSlotsResult{Created: 0}, nil
	}

	created, err := s.slotRepo.BulkInsert(ctx, slots)
	if err != nil {
		return nil, fmt.Errorf("failed to insert generated slots: %w", err)
	}
	return &model.GenerateSlotsResult{Created: created}, nil
}

// tileTemplate chops the template's [start, end) minute window of the given
// day into consecutive fixed-size slots. The window tiles exactly by
// construction (validateWindow), so the loop guard is belt and braces for
// templates written before a duration change.
func tileTemplate(tmpl *model.AvailabilityTemplate, day time.Time) []*model.Slot {
	durationMinutes := tmpl.Duration.Minutes()
	if durationMinutes <= 0 {
		return nil
	}

	var slots []*model.Slot
	for minute := tmpl.StartMinute; minute+durationMinutes <= tmpl.EndMinute; minute += durationMinutes {
		startAt := day.Add(time.Duration(minute) * time.Minute)
		slots = append(slots, &model.Slot{
			SpecialistID: tmpl.SpecialistID,
			SpecialtyID:  tmpl.SpecialtyID,
			TemplateID:   tmpl.ID,
			Date:         day,
			StartAt:      startAt,
			EndAt:        startAt.Add(time.Duration(durationMinutes) * time.Minute),
			Duration:     tmpl.Duration,
			Status:       model.SlotStatusFree,
		})
	}
	return slots
}

func (s *Service) ensureSpecialistSpecialty(ctx context.Context, specialistID, specialtyID int64) error {
	if _, err := s.specialistRepo.Get(ctx, specialistID); err != nil {
		return err
	}

	offers, err := s.specialistRepo.HasSpecialty(ctx, specialistID, specialtyID)
	if err != nil {
		return fmt.Errorf("failed to check specialist specialty: %w", err)
	}
	if !offers {
		return apperrors.Validation("specialist does not offer this specialty")
	}
	return nil
}

func validateWindow(startMinute, endMinute int, duration model.SlotDuration) error {
	if startMinute < 0 || endMinute > 1439 {
		return apperrors.InvalidWindow("minutes must be within 0 to 1439")
	}
	if startMinute >= endMinute {
		return apperrors.InvalidWindow("start minute must be before end minute")
	}
	if startMinute%5 != 0 || endMinute%5 != 0 {
		return apperrors.InvalidWindow("start and end must be multiples of 5 minutes")
	}
	durationMinutes := duration.Minutes()
	if durationMinutes == 0 {
		return apperrors.InvalidWindow("invalid slot duration")
	}
	if (endMinute-startMinute)%durationMinutes != 0 {
		return apperrors.InvalidWindow("duration must tile the window without leftover")
	}
	return nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
