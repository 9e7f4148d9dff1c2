package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/turnomed/clinic-api/internal/model"
)

// All repository interfaces in one file
type (
	// AvailabilityRepository stores recurring weekly templates.
	AvailabilityRepository interface {
		Create(ctx context.Context, tmpl *model.AvailabilityTemplate) error
		Get(ctx context.Context, id int64) (*model.AvailabilityTemplate, error)
		Update(ctx context.Context, tmpl *model.AvailabilityTemplate) error
		Deactivate(ctx context.Context, id int64) error
		List(ctx context.Context, filters *model.AvailabilityFilters) ([]*model.AvailabilityTemplate, error)
		ListActive(ctx context.Context, specialistID int64) ([]*model.AvailabilityTemplate, error)
	}

	// SlotRepository stores generated bookable slots. Slot status writes go
	// through the appointment repository so they share the booking
	// transaction; this interface only covers generation and reads.
	SlotRepository interface {
		// BulkInsert inserts the given slots, silently skipping any that
		// collide on (specialist, start_at), and returns the number
		// actually inserted.
		BulkInsert(ctx context.Context, slots []*model.Slot) (int, error)
		Get(ctx context.Context, id uuid.UUID) (*model.Slot, error)
		// LatestDate returns the most recent slot date for the specialist,
		// or nil when the specialist has no slots yet.
		LatestDate(ctx context.Context, specialistID int64) (*time.Time, error)
		List(ctx context.Context, filters *model.SlotFilters) ([]*model.SlotWithDetails, error)
	}

	// SpecialistRepository resolves specialist profiles and the
	// specialist/specialty relation (the specialty catalog itself is an
	// external collaborator; only existence matters here).
	SpecialistRepository interface {
		Get(ctx context.Context, id int64) (*model.Specialist, error)
		GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Specialist, error)
		HasSpecialty(ctx context.Context, specialistID, specialtyID int64) (bool, error)
		ListOfferedSpecialties(ctx context.Context) ([]*model.Specialty, error)
	}

	AppointmentRepository interface {
		// Create books a FREE slot atomically: the slot flip to RESERVED,
		// the appointment insert, the history row and the outbox event
		// commit together or not at all. A non-FREE slot fails with
		// SlotNotAvailable, a missing one with NotFound.
		Create(ctx context.Context, appt *model.Appointment, note *string) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		GetWithRelations(ctx context.Context, id uuid.UUID) (*model.AppointmentWithRelations, error)
		// Transition applies a status change guarded by the observed prior
		// status, together with its side effects (slot voiding, medical
		// record upsert, history, outbox), in one transaction. A guard
		// miss returns InvalidTransition.
		Transition(ctx context.Context, t *model.AppointmentTransition) (*model.Appointment, error)
		// SetPatientComment writes the post-visit patient note and its
		// history row.
		SetPatientComment(ctx context.Context, id, actorID uuid.UUID, note string) error
		List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.AppointmentWithRelations, error)
		ListHistory(ctx context.Context, appointmentID uuid.UUID) ([]*model.AppointmentHistory, error)
	}

	MedicalRecordRepository interface {
		GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.MedicalRecord, error)
	}

	OutboxRepository interface {
		GetPendingEventsWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
