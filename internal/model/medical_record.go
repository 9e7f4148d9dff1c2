package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ExtraField is a free-form key/value pair attached to a medical record.
// A record carries at most three.
type ExtraField struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// MedicalRecord is the clinical note produced by the finalize transition,
// 1:1 with its appointment. It is only ever written through finalize; a
// repeated finalize by an admin overwrites it wholesale.
type MedicalRecord struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	AppointmentID uuid.UUID       `db:"appointment_id" json:"appointment_id"`
	PatientID     uuid.UUID       `db:"patient_id" json:"patient_id"`
	SpecialistID  int64           `db:"specialist_id" json:"specialist_id"`
	Height        int             `db:"height" json:"height"`
	Weight        int             `db:"weight" json:"weight"`
	Temperature   float64         `db:"temperature" json:"temperature"`
	Pressure      string          `db:"pressure" json:"pressure"`
	ExtraJSON     json.RawMessage `db:"extra_fields" json:"-"`
	Extra         []ExtraField    `db:"-" json:"extra_fields,omitempty"`
	SearchText    string          `db:"search_text" json:"search_text"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

type FinalizeAppointmentRequest struct {
	Height           int          `json:"height" binding:"required,min=30,max=300"`
	Weight           int          `json:"weight" binding:"required,min=1,max=500"`
	Temperature      float64      `json:"temperature" binding:"required,min=30,max=45"`
	Pressure         string       `json:"pressure" binding:"required,notblank"`
	SpecialistReview string       `json:"specialist_review" binding:"omitempty,notblank"`
	Extra            []ExtraField `json:"extra_fields" binding:"omitempty,max=3"`
}
