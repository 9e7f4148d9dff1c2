package slot

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/turnomed/clinic-api/internal/model"
	"github.com/turnomed/clinic-api/internal/repository"
)

const specialtiesCacheKey = "specialties:offered"

// Service serves the public discovery surface: which specialties are
// bookable and which slots are open.
type Service struct {
	slotRepo       repository.SlotRepository
	specialistRepo repository.SpecialistRepository
	cache          *cache.Cache
}

func NewService(slotRepo repository.SlotRepository, specialistRepo repository.SpecialistRepository, ttl, cleanupInterval time.Duration) *Service {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if cleanupInterval <= 0 {
		cleanupInterval = 10 * time.Minute
	}
	return &Service{
		slotRepo:       slotRepo,
		specialistRepo: specialistRepo,
		cache:          cache.New(ttl, cleanupInterval),
	}
}

// ListSlots returns open slots matching the filters. An empty status
// filter defaults to FREE: the public listing never shows taken time.
func (s *Service) ListSlots(ctx context.Context, filters *model.SlotFilters) ([]*model.SlotWithDetails, error) {
	if filters.Status == "" {
		filters.Status = model.SlotStatusFree
	}

	slots, err := s.slotRepo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	return slots, nil
}

// ListSpecialties returns the specialties at least one specialist offers.
// The catalog changes rarely, so results are cached.
func (s *Service) ListSpecialties(ctx context.Context) ([]*model.Specialty, error) {
	if cached, found := s.cache.Get(specialtiesCacheKey); found {
		if specialties, ok := cached.([]*model.Specialty); ok {
			return specialties, nil
		}
	}

	specialties, err := s.specialistRepo.ListOfferedSpecialties(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list specialties: %w", err)
	}

	s.cache.Set(specialtiesCacheKey, specialties, cache.DefaultExpiration)
	return specialties, nil
}
