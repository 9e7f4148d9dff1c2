package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "PENDING"
	AppointmentStatusAccepted  AppointmentStatus = "ACCEPTED"
	AppointmentStatusRejected  AppointmentStatus = "REJECTED"
	AppointmentStatusCancelled AppointmentStatus = "CANCELLED"
	AppointmentStatusDone      AppointmentStatus = "DONE"
)

func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusPending, AppointmentStatusAccepted,
		AppointmentStatusRejected, AppointmentStatusCancelled,
		AppointmentStatusDone:
		return true
	}
	return false
}

// Terminal reports whether the status admits no further transitions
// (admins excepted, who may override any state).
func (s AppointmentStatus) Terminal() bool {
	switch s {
	case AppointmentStatusRejected, AppointmentStatusCancelled,
		AppointmentStatusDone:
		return true
	}
	return false
}

// Appointment is a patient's claim on a specific slot. Rows are never
// deleted; terminal states are permanent records.
type Appointment struct {
	ID               uuid.UUID         `db:"id" json:"id"`
	SlotID           uuid.UUID         `db:"slot_id" json:"slot_id"`
	SpecialistID     int64             `db:"specialist_id" json:"specialist_id"`
	SpecialtyID      int64             `db:"specialty_id" json:"specialty_id"`
	PatientID        uuid.UUID         `db:"patient_id" json:"patient_id"`
	CreatedByID      uuid.UUID         `db:"created_by_id" json:"created_by_id"`
	Status           AppointmentStatus `db:"status" json:"status"`
	CancelReason     *string           `db:"cancel_reason" json:"cancel_reason,omitempty"`
	RejectReason     *string           `db:"reject_reason" json:"reject_reason,omitempty"`
	SpecialistReview *string           `db:"specialist_review" json:"specialist_review,omitempty"`
	PatientComment   *string           `db:"patient_comment" json:"patient_comment,omitempty"`
	AcceptedAt       *time.Time        `db:"accepted_at" json:"accepted_at,omitempty"`
	CompletedAt      *time.Time        `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt        time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time         `db:"updated_at" json:"updated_at"`
}

// AppointmentHistory is the append-only audit trail: one row per
// transition, including the creation event.
type AppointmentHistory struct {
	ID            int64             `db:"id" json:"id"`
	AppointmentID uuid.UUID         `db:"appointment_id" json:"appointment_id"`
	ActorID       uuid.UUID         `db:"actor_id" json:"actor_id"`
	Action        AppointmentStatus `db:"action" json:"action"`
	Note          *string           `db:"note" json:"note,omitempty"`
	CreatedAt     time.Time         `db:"created_at" json:"created_at"`
}

type CreateAppointmentRequest struct {
	SlotID         uuid.UUID  `json:"slot_id" binding:"required"`
	PatientID      *uuid.UUID `json:"patient_id"`
	PatientComment string     `json:"patient_comment" binding:"max=1000"`
}

type AppointmentActionRequest struct {
	Note string `json:"note" binding:"max=500"`
}

type AppointmentFilters struct {
	Status       AppointmentStatus
	SpecialtyID  *int64
	PatientID    *uuid.UUID
	SpecialistID *int64
	Search       string
}

// AppointmentTransition describes one status change and every side effect
// that must commit with it. ExpectedStatus is the optimistic guard: the
// update only applies while the row still holds that status.
type AppointmentTransition struct {
	AppointmentID    uuid.UUID
	ExpectedStatus   AppointmentStatus
	NextStatus       AppointmentStatus
	ActorID          uuid.UUID
	Note             *string
	CancelReason     *string
	RejectReason     *string
	SpecialistReview *string
	AcceptedAt       *time.Time
	CompletedAt      *time.Time
	// CancelSlot voids the slot (RESERVED -> CANCELLED) in the same
	// transaction.
	CancelSlot bool
	// Record, when set, is upserted by appointment id in the same
	// transaction.
	Record *MedicalRecord
}

// AppointmentWithRelations is the explicit read model for listing and
// detail queries: the appointment plus the display fields each role needs.
type AppointmentWithRelations struct {
	Appointment
	SpecialtyName  string         `db:"specialty_name" json:"specialty_name"`
	SpecialistName string         `db:"specialist_name" json:"specialist_name"`
	PatientName    string         `db:"patient_name" json:"patient_name"`
	SlotStartAt    time.Time      `db:"slot_start_at" json:"slot_start_at"`
	SlotEndAt      time.Time      `db:"slot_end_at" json:"slot_end_at"`
	MedicalRecord  *MedicalRecord `db:"-" json:"medical_record,omitempty"`
}
