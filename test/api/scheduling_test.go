package api_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthEndpoints(t *testing.T) {
	requireServer(t)

	resp := makeRequest("GET", "/health/live", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = makeRequest("GET", "/health/ready", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPublicDiscoveryNeedsNoAuth(t *testing.T) {
	requireServer(t)

	resp := makeRequest("GET", "/specialties", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, resp.IsSuccess())

	resp = makeRequest("GET", "/slots", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, resp.IsSuccess())
}

func TestAppointmentsRequireAuth(t *testing.T) {
	requireServer(t)

	resp := makeRequest("GET", "/appointments", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = makeRequest("GET", "/appointments", nil, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAvailabilityIsAdminOnly(t *testing.T) {
	requireServer(t)

	resp := makeRequest("GET", "/availability", nil, patientToken)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = makeRequest("GET", "/availability", nil, specialistToken)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = makeRequest("GET", "/availability", nil, adminToken)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAvailabilityValidation(t *testing.T) {
	requireServer(t)

	// end before start is rejected regardless of which specialist it names
	resp := makeRequest("POST", "/availability", map[string]interface{}{
		"specialist_id": 1,
		"specialty_id":  1,
		"day_of_week":   "MONDAY",
		"start_minute":  600,
		"end_minute":    540,
		"duration":      "MIN_15",
	}, adminToken)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// unknown duration fails binding
	resp = makeRequest("POST", "/availability", map[string]interface{}{
		"specialist_id": 1,
		"specialty_id":  1,
		"day_of_week":   "MONDAY",
		"start_minute":  540,
		"end_minute":    600,
		"duration":      "MIN_99",
	}, adminToken)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGenerateSlotsHorizonBounds(t *testing.T) {
	requireServer(t)

	resp := makeRequest("POST", "/specialists/1/slots/generate", map[string]interface{}{
		"days": 45,
	}, adminToken)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBookingUnknownSlot(t *testing.T) {
	requireServer(t)

	resp := makeRequest("POST", "/appointments", map[string]interface{}{
		"slot_id": "00000000-0000-0000-0000-000000000000",
	}, patientToken)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = makeRequest("POST", "/appointments", map[string]interface{}{
		"slot_id": "d2719f5e-13b1-4f4e-a9f2-7d94f4bd0a01",
	}, patientToken)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAppointmentListScoping(t *testing.T) {
	requireServer(t)

	resp := makeRequest("GET", "/appointments", nil, patientToken)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, resp.IsSuccess())

	resp = makeRequest("GET", "/appointments?status=BOGUS", nil, patientToken)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
