package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWeekdayMapping(t *testing.T) {
	expected := map[Weekday]time.Weekday{
		WeekdaySunday:    time.Sunday,
		WeekdayMonday:    time.Monday,
		WeekdayTuesday:   time.Tuesday,
		WeekdayWednesday: time.Wednesday,
		WeekdayThursday:  time.Thursday,
		WeekdayFriday:    time.Friday,
		WeekdaySaturday:  time.Saturday,
	}

	for enum, std := range expected {
		assert.Equal(t, std, enum.Time(), string(enum))
		assert.True(t, enum.Valid())
	}

	assert.False(t, Weekday("FUNDAY").Valid())
}

func TestSlotDurationMinutes(t *testing.T) {
	assert.Equal(t, 5, SlotDuration5.Minutes())
	assert.Equal(t, 10, SlotDuration10.Minutes())
	assert.Equal(t, 15, SlotDuration15.Minutes())
	assert.Equal(t, 30, SlotDuration30.Minutes())

	assert.False(t, SlotDuration("MIN_45").Valid())
	assert.Equal(t, 0, SlotDuration("MIN_45").Minutes())
}

func TestAppointmentStatusTerminal(t *testing.T) {
	assert.False(t, AppointmentStatusPending.Terminal())
	assert.False(t, AppointmentStatusAccepted.Terminal())
	assert.True(t, AppointmentStatusRejected.Terminal())
	assert.True(t, AppointmentStatusCancelled.Terminal())
	assert.True(t, AppointmentStatusDone.Terminal())
}
