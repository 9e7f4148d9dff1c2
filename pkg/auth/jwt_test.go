package auth

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turnomed/clinic-api/internal/config"
	"github.com/turnomed/clinic-api/internal/model"
)

func newTestService() TokenService {
	return NewTokenService(config.JWTConfig{
		Secret:      "test-secret",
		ExpiryHours: 1,
	})
}

func TestTokenRoundTrip(t *testing.T) {
	svc := newTestService()
	actor := model.Actor{ID: uuid.New(), Role: model.RoleSpecialist}

	token, err := svc.GenerateToken(actor)
	require.NoError(t, err)

	parsed, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, actor.ID, parsed.ID)
	assert.Equal(t, model.RoleSpecialist, parsed.Role)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	svc := newTestService()
	other := NewTokenService(config.JWTConfig{Secret: "other-secret", ExpiryHours: 1})

	token, err := other.GenerateToken(model.Actor{ID: uuid.New(), Role: model.RolePatient})
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenGarbage(t *testing.T) {
	svc := newTestService()
	_, err := svc.ValidateToken("not-a-token")
	assert.Error(t, err)
}
