package appointment

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turnomed/clinic-api/internal/model"
	"github.com/turnomed/clinic-api/internal/repository"
	apperrors "github.com/turnomed/clinic-api/pkg/errors"
)

// DefaultCancelNote is recorded when a patient cancels without giving a
// reason.
const DefaultCancelNote = "cancelled by user"

type Service struct {
	repo           repository.AppointmentRepository
	slotRepo       repository.SlotRepository
	specialistRepo repository.SpecialistRepository
	recordRepo     repository.MedicalRecordRepository
	now            func() time.Time
}

func NewService(
	repo repository.AppointmentRepository,
	slotRepo repository.SlotRepository,
	specialistRepo repository.SpecialistRepository,
	recordRepo repository.MedicalRecordRepository,
) *Service {
	return &Service{
		repo:           repo,
		slotRepo:       slotRepo,
		specialistRepo: specialistRepo,
		recordRepo:     recordRepo,
		now:            time.Now,
	}
}

// Create books a FREE slot. The status pre-check here is advisory; the
// repository repeats it as a conditional update inside the booking
// transaction, so two concurrent bookings of the same slot produce exactly
// one appointment.
func (s *Service) Create(ctx context.Context, actor model.Actor, req *model.CreateAppointmentRequest) (*model.AppointmentWithRelations, error) {
	slot, err := s.slotRepo.Get(ctx, req.SlotID)
	if err != nil {
		return nil, err
	}
	if slot.Status != model.SlotStatusFree {
		return nil, apperrors.SlotNotAvailable()
	}

	patientID := actor.ID
	if req.PatientID != nil && *req.PatientID != actor.ID {
		if !actor.IsAdmin() {
			return nil, apperrors.Forbidden("only admins can book on behalf of a patient")
		}
		patientID = *req.PatientID
	}

	status := model.AppointmentStatusPending
	if actor.IsAdmin() {
		status = model.AppointmentStatusAccepted
	}

	appt := &model.Appointment{
		SlotID:       slot.ID,
		SpecialistID: slot.SpecialistID,
		SpecialtyID:  slot.SpecialtyID,
		PatientID:    patientID,
		CreatedByID:  actor.ID,
		Status:       status,
	}

	var note *string
	if comment := strings.TrimSpace(req.PatientComment); comment != "" {
		appt.PatientComment = &comment
		note = &comment
	}

	if err := s.repo.Create(ctx, appt, note); err != nil {
		return nil, err
	}
	return s.repo.GetWithRelations(ctx, appt.ID)
}

func (s *Service) Get(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.AppointmentWithRelations, error) {
	appt, err := s.repo.GetWithRelations(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureVisible(ctx, actor, &appt.Appointment); err != nil {
		return nil, err
	}
	if err := s.attachRecord(ctx, appt); err != nil {
		return nil, err
	}
	return appt, nil
}

func (s *Service) ListHistory(ctx context.Context, actor model.Actor, id uuid.UUID) ([]*model.AppointmentHistory, error) {
	appt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureVisible(ctx, actor, appt); err != nil {
		return nil, err
	}
	return s.repo.ListHistory(ctx, id)
}

// List scopes the result to what the actor is allowed to see: patients
// their own visits, specialists their own agenda, admins everything.
func (s *Service) List(ctx context.Context, actor model.Actor, filters *model.AppointmentFilters) ([]*model.AppointmentWithRelations, error) {
	switch actor.Role {
	case model.RolePatient:
		id := actor.ID
		filters.PatientID = &id
		filters.SpecialistID = nil
	case model.RoleSpecialist:
		specialist, err := s.specialistRepo.GetByUserID(ctx, actor.ID)
		if err != nil {
			return nil, err
		}
		filters.SpecialistID = &specialist.ID
		filters.PatientID = nil
	case model.RoleAdmin:
		// admins may filter freely
	default:
		return nil, apperrors.Forbidden("")
	}

	return s.repo.List(ctx, filters)
}

func (s *Service) Cancel(ctx context.Context, actor model.Actor, id uuid.UUID, note string) (*model.AppointmentWithRelations, error) {
	if strings.TrimSpace(note) == "" {
		note = DefaultCancelNote
	}
	return s.changeStatus(ctx, actor, id, model.AppointmentStatusCancelled, &note, nil)
}

func (s *Service) Accept(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.AppointmentWithRelations, error) {
	return s.changeStatus(ctx, actor, id, model.AppointmentStatusAccepted, nil, nil)
}

func (s *Service) Reject(ctx context.Context, actor model.Actor, id uuid.UUID, note string) (*model.AppointmentWithRelations, error) {
	if strings.TrimSpace(note) == "" {
		return nil, apperrors.Validation("a rejection reason is required")
	}
	return s.changeStatus(ctx, actor, id, model.AppointmentStatusRejected, &note, nil)
}

// Finalize completes a visit: the DONE flip, the completion timestamp and
// the medical record upsert commit together, so a rejected finalize never
// leaves a record behind.
func (s *Service) Finalize(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.FinalizeAppointmentRequest) (*model.AppointmentWithRelations, error) {
	review := strings.TrimSpace(req.SpecialistReview)
	if review == "" {
		return nil, apperrors.Validation("a specialist review is required to finalize")
	}
	if err := validateVitals(req); err != nil {
		return nil, err
	}
	extra, err := normalizeExtraFields(req.Extra)
	if err != nil {
		return nil, err
	}

	completedAt := s.now()
	updated, err := s.changeStatus(ctx, actor, id, model.AppointmentStatusDone, &review,
		func(appt *model.Appointment, t *model.AppointmentTransition) {
			t.SpecialistReview = &review
			t.CompletedAt = &completedAt
			t.Record = &model.MedicalRecord{
				AppointmentID: appt.ID,
				PatientID:     appt.PatientID,
				SpecialistID:  appt.SpecialistID,
				Height:        req.Height,
				Weight:        req.Weight,
				Temperature:   req.Temperature,
				Pressure:      req.Pressure,
				Extra:         extra,
				SearchText:    buildRecordSearchText(req, review, extra),
			}
		})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// PatientReview lets the owning patient rate a completed visit.
func (s *Service) PatientReview(ctx context.Context, actor model.Actor, id uuid.UUID, note string) (*model.AppointmentWithRelations, error) {
	if strings.TrimSpace(note) == "" {
		return nil, apperrors.Validation("a review note is required")
	}

	appt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	// The review is the patient's own voice; not even admins write it
	// on their behalf.
	if appt.PatientID != actor.ID {
		return nil, apperrors.Forbidden("")
	}
	if appt.Status != model.AppointmentStatusDone {
		return nil, apperrors.Validation("only completed appointments can be reviewed")
	}

	if err := s.repo.SetPatientComment(ctx, id, actor.ID, note); err != nil {
		return nil, err
	}
	result, err := s.repo.GetWithRelations(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.attachRecord(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

type transitionHook func(appt *model.Appointment, t *model.AppointmentTransition)

func (s *Service) changeStatus(ctx context.Context, actor model.Actor, id uuid.UUID, next model.AppointmentStatus, note *string, hook transitionHook) (*model.AppointmentWithRelations, error) {
	appt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.authorizeTransition(ctx, actor, appt, next); err != nil {
		return nil, err
	}

	t := &model.AppointmentTransition{
		AppointmentID:  appt.ID,
		ExpectedStatus: appt.Status,
		NextStatus:     next,
		ActorID:        actor.ID,
		Note:           note,
	}

	switch next {
	case model.AppointmentStatusCancelled:
		t.CancelReason = note
		// Cancellation voids the slot instead of re-freeing it: the time
		// is only offered again through explicit regeneration.
		t.CancelSlot = true
	case model.AppointmentStatusRejected:
		t.RejectReason = note
	case model.AppointmentStatusAccepted:
		acceptedAt := s.now()
		t.AcceptedAt = &acceptedAt
	}

	if hook != nil {
		hook(appt, t)
	}

	if _, err := s.repo.Transition(ctx, t); err != nil {
		return nil, err
	}

	result, err := s.repo.GetWithRelations(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.attachRecord(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// authorizeTransition enforces the role matrix. Admins override everything.
// For everyone else a miss is Forbidden when some other actor could still
// perform the move, and InvalidTransition when the appointment's current
// status rules the move out entirely.
func (s *Service) authorizeTransition(ctx context.Context, actor model.Actor, appt *model.Appointment, next model.AppointmentStatus) error {
	if actor.IsAdmin() {
		return nil
	}

	allowed := false
	switch actor.Role {
	case model.RolePatient:
		allowed = appt.PatientID == actor.ID &&
			next == model.AppointmentStatusCancelled &&
			appt.Status == model.AppointmentStatusPending

	case model.RoleSpecialist:
		specialist, err := s.specialistRepo.GetByUserID(ctx, actor.ID)
		if err != nil {
			return apperrors.Forbidden("")
		}
		if specialist.ID != appt.SpecialistID {
			return apperrors.Forbidden("")
		}

		switch next {
		case model.AppointmentStatusAccepted:
			allowed = appt.Status == model.AppointmentStatusPending
		case model.AppointmentStatusRejected:
			allowed = appt.Status == model.AppointmentStatusPending ||
				appt.Status == model.AppointmentStatusAccepted
		case model.AppointmentStatusDone:
			allowed = appt.Status == model.AppointmentStatusAccepted
		}
	}

	if allowed {
		return nil
	}
	if next == appt.Status || appt.Status.Terminal() {
		return apperrors.InvalidTransition(string(appt.Status), string(next))
	}
	return apperrors.Forbidden("")
}

func (s *Service) ensureVisible(ctx context.Context, actor model.Actor, appt *model.Appointment) error {
	switch actor.Role {
	case model.RoleAdmin:
		return nil
	case model.RolePatient:
		if appt.PatientID == actor.ID {
			return nil
		}
	case model.RoleSpecialist:
		specialist, err := s.specialistRepo.GetByUserID(ctx, actor.ID)
		if err == nil && specialist.ID == appt.SpecialistID {
			return nil
		}
	}
	return apperrors.Forbidden("")
}

// attachRecord decorates the read model with the medical record when one
// exists. Absence is normal for anything short of DONE; any other failure
// is surfaced.
func (s *Service) attachRecord(ctx context.Context, appt *model.AppointmentWithRelations) error {
	record, err := s.recordRepo.GetByAppointment(ctx, appt.ID)
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrNotFound) {
			return nil
		}
		return err
	}
	appt.MedicalRecord = record
	return nil
}

func validateVitals(req *model.FinalizeAppointmentRequest) error {
	if req.Height < 30 || req.Height > 300 {
		return apperrors.Validation("height must be between 30 and 300")
	}
	if req.Weight < 1 || req.Weight > 500 {
		return apperrors.Validation("weight must be between 1 and 500")
	}
	if req.Temperature < 30 || req.Temperature > 45 {
		return apperrors.Validation("temperature must be between 30 and 45")
	}
	if strings.TrimSpace(req.Pressure) == "" {
		return apperrors.Validation("blood pressure is required")
	}
	return nil
}

func normalizeExtraFields(extra []model.ExtraField) ([]model.ExtraField, error) {
	if len(extra) == 0 {
		return nil, nil
	}
	if len(extra) > 3 {
		return nil, apperrors.Validation("at most 3 extra fields are allowed")
	}

	normalized := make([]model.ExtraField, 0, len(extra))
	for _, field := range extra {
		key := strings.TrimSpace(field.Key)
		value := strings.TrimSpace(field.Value)
		if key == "" || value == "" {
			return nil, apperrors.Validation("extra fields must have both key and value")
		}
		normalized = append(normalized, model.ExtraField{Key: key, Value: value})
	}
	return normalized, nil
}

// buildRecordSearchText derives the free-text index for a record: every
// numeric vital as text, the pressure, the review and all extra pairs,
// lower-cased. It is recomputed on every rewrite, never patched.
func buildRecordSearchText(req *model.FinalizeAppointmentRequest, review string, extra []model.ExtraField) string {
	parts := []string{
		strconv.Itoa(req.Height),
		strconv.Itoa(req.Weight),
		strconv.FormatFloat(req.Temperature, 'f', -1, 64),
		req.Pressure,
		review,
	}
	for _, field := range extra {
		parts = append(parts, field.Key, field.Value)
	}

	nonEmpty := parts[:0]
	for _, part := range parts {
		if strings.TrimSpace(part) != "" {
			nonEmpty = append(nonEmpty, part)
		}
	}
	return strings.ToLower(strings.Join(nonEmpty, " "))
}
