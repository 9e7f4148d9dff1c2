package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/turnomed/clinic-api/internal/config"
	"github.com/turnomed/clinic-api/internal/model"
	"github.com/turnomed/clinic-api/pkg/auth"
)

var (
	baseURL         = envOrDefault("API_BASE_URL", "http://localhost:8080/api/v1")
	serverAvailable bool

	adminToken      string
	patientToken    string
	specialistToken string
	patientID       uuid.UUID
)

// APIResponse represents the API response structure
type APIResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// TestResponse wraps the API response for testing
type TestResponse struct {
	StatusCode int
	Status     string
	Message    string
	Data       map[string]interface{}
	RawData    string
}

func (r TestResponse) IsSuccess() bool {
	return r.Status == "success"
}

func (r TestResponse) GetString(key string) string {
	if r.Data == nil {
		return ""
	}
	if v, ok := r.Data[key].(string); ok {
		return v
	}
	return ""
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func checkAPIServer() error {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL + "/health/live")
	if err != nil {
		return fmt.Errorf("API server not reachable: %w", err)
	}
	defer resp.Body.Close()
	return nil
}

// requireServer skips the calling test when no running API server was
// detected during setup.
func requireServer(t *testing.T) {
	t.Helper()
	if !serverAvailable {
		t.Skipf("API server not running at %s", baseURL)
	}
}

func TestMain(m *testing.M) {
	if err := checkAPIServer(); err == nil {
		serverAvailable = true
		setupTokens()
	}
	os.Exit(m.Run())
}

// setupTokens mints tokens directly: the API trusts any JWT signed with
// its secret, and there is no login endpoint in this service.
func setupTokens() {
	secret := envOrDefault("JWT_SECRET", "test-secret")
	tokens := auth.NewTokenService(config.JWTConfig{Secret: secret, ExpiryHours: 1})

	patientID = uuid.New()

	adminToken = mustToken(tokens, model.Actor{ID: uuid.New(), Role: model.RoleAdmin})
	patientToken = mustToken(tokens, model.Actor{ID: patientID, Role: model.RolePatient})
	specialistToken = mustToken(tokens, model.Actor{ID: uuid.New(), Role: model.RoleSpecialist})
}

func mustToken(tokens auth.TokenService, actor model.Actor) string {
	token, err := tokens.GenerateToken(actor)
	if err != nil {
		fmt.Printf("failed to mint token: %v\n", err)
		os.Exit(1)
	}
	return token
}

func makeRequest(method, path string, body interface{}, token string) TestResponse {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return TestResponse{Message: err.Error()}
		}
		reqBody = bytes.NewBuffer(payload)
	}

	req, err := http.NewRequest(method, baseURL+path, reqBody)
	if err != nil {
		return TestResponse{Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return TestResponse{Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return TestResponse{StatusCode: resp.StatusCode, Message: err.Error()}
	}

	var apiResp APIResponse
	if err := json.Unmarshal(raw, &apiResp); err != nil {
		return TestResponse{StatusCode: resp.StatusCode, RawData: string(raw)}
	}

	out := TestResponse{
		StatusCode: resp.StatusCode,
		Status:     apiResp.Status,
		Message:    apiResp.Message,
		RawData:    string(apiResp.Data),
	}
	var data map[string]interface{}
	if json.Unmarshal(apiResp.Data, &data) == nil {
		out.Data = data
	}
	return out
}
