package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "PENDING"
	OutboxStatusProcessing OutboxStatus = "PROCESSING"
	OutboxStatusProcessed  OutboxStatus = "PROCESSED"
	OutboxStatusFailed     OutboxStatus = "FAILED"
)

// OutboxEvent is written in the same transaction as the state change it
// describes; a worker publishes pending events to the broker afterwards.
type OutboxEvent struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	EventType    string          `db:"event_type" json:"event_type"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	Status       OutboxStatus    `db:"status" json:"status"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
	RetryCount   int             `db:"retry_count" json:"retry_count"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt  *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// AppointmentEvent is the payload published for lifecycle transitions.
type AppointmentEvent struct {
	AppointmentID uuid.UUID         `json:"appointment_id"`
	SlotID        uuid.UUID         `json:"slot_id"`
	PatientID     uuid.UUID         `json:"patient_id"`
	SpecialistID  int64             `json:"specialist_id"`
	ActorID       uuid.UUID         `json:"actor_id"`
	Status        AppointmentStatus `json:"status"`
	Note          *string           `json:"note,omitempty"`
	OccurredAt    time.Time         `json:"occurred_at"`
}
