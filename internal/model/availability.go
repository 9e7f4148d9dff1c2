package model

import (
	"time"
)

// Weekday is the recurring day a template applies to.
type Weekday string

const (
	WeekdaySunday    Weekday = "SUNDAY"
	WeekdayMonday    Weekday = "MONDAY"
	WeekdayTuesday   Weekday = "TUESDAY"
	WeekdayWednesday Weekday = "WEDNESDAY"
	WeekdayThursday  Weekday = "THURSDAY"
	WeekdayFriday    Weekday = "FRIDAY"
	WeekdaySaturday  Weekday = "SATURDAY"
)

// Time maps the enum onto the standard library weekday numbering.
func (w Weekday) Time() time.Weekday {
	switch w {
	case WeekdaySunday:
		return time.Sunday
	case WeekdayMonday:
		return time.Monday
	case WeekdayTuesday:
		return time.Tuesday
	case WeekdayWednesday:
		return time.Wednesday
	case WeekdayThursday:
		return time.Thursday
	case WeekdayFriday:
		return time.Friday
	case WeekdaySaturday:
		return time.Saturday
	}
	return time.Sunday
}

func (w Weekday) Valid() bool {
	switch w {
	case WeekdaySunday, WeekdayMonday, WeekdayTuesday, WeekdayWednesday,
		WeekdayThursday, WeekdayFriday, WeekdaySaturday:
		return true
	}
	return false
}

// SlotDuration is the fixed size a template window is tiled into.
type SlotDuration string

const (
	SlotDuration5  SlotDuration = "MIN_5"
	SlotDuration10 SlotDuration = "MIN_10"
	SlotDuration15 SlotDuration = "MIN_15"
	SlotDuration30 SlotDuration = "MIN_30"
)

func (d SlotDuration) Minutes() int {
	switch d {
	case SlotDuration5:
		return 5
	case SlotDuration10:
		return 10
	case SlotDuration15:
		return 15
	case SlotDuration30:
		return 30
	}
	return 0
}

func (d SlotDuration) Valid() bool {
	return d.Minutes() != 0
}

// AvailabilityTemplate is a recurring weekly rule describing when a
// specialist is open for a given specialty. Deactivation is soft: generated
// slots keep referencing the template after it is switched off.
type AvailabilityTemplate struct {
	ID           int64        `db:"id" json:"id"`
	SpecialistID int64        `db:"specialist_id" json:"specialist_id"`
	SpecialtyID  int64        `db:"specialty_id" json:"specialty_id"`
	DayOfWeek    Weekday      `db:"day_of_week" json:"day_of_week"`
	StartMinute  int          `db:"start_minute" json:"start_minute"`
	EndMinute    int          `db:"end_minute" json:"end_minute"`
	Duration     SlotDuration `db:"duration" json:"duration"`
	Active       bool         `db:"active" json:"active"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
}

type CreateAvailabilityRequest struct {
	SpecialistID int64        `json:"specialist_id" binding:"required"`
	SpecialtyID  int64        `json:"specialty_id" binding:"required"`
	DayOfWeek    Weekday      `json:"day_of_week" binding:"required,oneof=SUNDAY MONDAY TUESDAY WEDNESDAY THURSDAY FRIDAY SATURDAY"`
	StartMinute  *int         `json:"start_minute" binding:"required,min=0,max=1435"`
	EndMinute    *int         `json:"end_minute" binding:"required,min=5,max=1435"`
	Duration     SlotDuration `json:"duration" binding:"required,oneof=MIN_5 MIN_10 MIN_15 MIN_30"`
	Active       *bool        `json:"active"`
}

type UpdateAvailabilityRequest struct {
	SpecialistID *int64        `json:"specialist_id"`
	SpecialtyID  *int64        `json:"specialty_id"`
	DayOfWeek    *Weekday      `json:"day_of_week" binding:"omitempty,oneof=SUNDAY MONDAY TUESDAY WEDNESDAY THURSDAY FRIDAY SATURDAY"`
	StartMinute  *int          `json:"start_minute" binding:"omitempty,min=0,max=1435"`
	EndMinute    *int          `json:"end_minute" binding:"omitempty,min=5,max=1435"`
	Duration     *SlotDuration `json:"duration" binding:"omitempty,oneof=MIN_5 MIN_10 MIN_15 MIN_30"`
	Active       *bool         `json:"active"`
}

type AvailabilityFilters struct {
	SpecialistID *int64
	SpecialtyID  *int64
	DayOfWeek    Weekday
	Active       *bool
}

type GenerateSlotsRequest struct {
	Days int `json:"days" binding:"omitempty,min=1,max=30"`
}

// GenerateSlotsResult reports how many slots a generation run inserted.
// Duplicate (specialist, start) pairs skipped by the store do not count.
type GenerateSlotsResult struct {
	Created int `json:"created"`
}
