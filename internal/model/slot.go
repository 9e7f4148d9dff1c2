package model

import (
	"time"

	"github.com/google/uuid"
)

type SlotStatus string

const (
	SlotStatusFree      SlotStatus = "FREE"
	SlotStatusReserved  SlotStatus = "RESERVED"
	SlotStatusCancelled SlotStatus = "CANCELLED"
)

// Slot is a concrete bookable interval expanded from an availability
// template. Slots are never deleted and their status never returns to FREE:
// a reservation is consumed by exactly one appointment for the slot's
// lifetime, and cancellation voids the time instead of re-offering it.
type Slot struct {
	ID           uuid.UUID    `db:"id" json:"id"`
	SpecialistID int64        `db:"specialist_id" json:"specialist_id"`
	SpecialtyID  int64        `db:"specialty_id" json:"specialty_id"`
	TemplateID   int64        `db:"availability_id" json:"availability_id"`
	Date         time.Time    `db:"date" json:"date"`
	StartAt      time.Time    `db:"start_at" json:"start_at"`
	EndAt        time.Time    `db:"end_at" json:"end_at"`
	Duration     SlotDuration `db:"duration" json:"duration"`
	Status       SlotStatus   `db:"status" json:"status"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
}

type SlotFilters struct {
	SpecialistID *int64
	SpecialtyID  *int64
	Status       SlotStatus
	DateFrom     *time.Time
	DateTo       *time.Time
}

// SlotWithDetails is the read model for public slot listings.
type SlotWithDetails struct {
	Slot
	SpecialistName string `db:"specialist_name" json:"specialist_name"`
	SpecialtyName  string `db:"specialty_name" json:"specialty_name"`
}
