package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"hopelink/internal/config"
	"hopelink/internal/storage"
)

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := storage.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewDB failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	cfg := &config.Config{
		Environment:    "test",
		JWTSecret:      "test-secret",
		AllowedOrigins: []string{"http://localhost:3000"},
		ReminderLead:   24 * time.Hour,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRouter(db, nil, cfg, logger)
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Marshal failed: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) (Response, map[string]any) {
	t.Helper()
	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Decoding response failed: %v (body %s)", err, rec.Body.String())
	}
	data, _ := resp.Data.(map[string]any)
	return resp, data
}

func registerAndLogin(t *testing.T, router *gin.Engine) string {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/auth/register", "", gin.H{
		"email":    "carer@example.com",
		"password": "password123",
		"name":     "Carer",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Register returned %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "carer@example.com",
		"password": "password123",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Login returned %d: %s", rec.Code, rec.Body.String())
	}
	_, data := decodeResponse(t, rec)
	token, _ := data["access_token"].(string)
	if token == "" {
		t.Fatalf("Login returned no token: %s", rec.Body.String())
	}
	return token
}

func createChild(t *testing.T, router *gin.Engine, token string) string {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/children", token, gin.H{
		"name":         "Mina",
		"birth_date":   "2020-05-01",
		"disease_code": "G40.3",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Create child returned %d: %s", rec.Code, rec.Body.String())
	}
	_, data := decodeResponse(t, rec)
	id, _ := data["id"].(string)
	if id == "" {
		t.Fatalf("Create child returned no id: %s", rec.Body.String())
	}
	return id
}

func TestHealthEndpoint(t *testing.T) {
	router := testRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Health returned %d", rec.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	router := testRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/api/schedules", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/schedules", "not-a-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 with bad token, got %d", rec.Code)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	router := testRouter(t)
	registerAndLogin(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/auth/register", "", gin.H{
		"email":    "carer@example.com",
		"password": "password123",
		"name":     "Other",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 on duplicate email, got %d", rec.Code)
	}
}

func TestScheduleFlowWithConflictWarnings(t *testing.T) {
	router := testRouter(t)
	token := registerAndLogin(t, router)
	childID := createChild(t, router, token)

	day := "2026-01-10"
	rec := doJSON(t, router, http.MethodPost, "/api/schedules", token, gin.H{
		"child_id":      childID,
		"title":         "Neurology visit",
		"schedule_type": "hospital",
		"start_time":    day + "T14:00:00Z",
		"end_time":      day + "T15:30:00Z",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Create schedule returned %d: %s", rec.Code, rec.Body.String())
	}
	_, data := decodeResponse(t, rec)
	if warnings, _ := data["warnings"].([]any); len(warnings) != 0 {
		t.Errorf("Expected no warnings for first schedule, got %v", warnings)
	}

	// Overlapping by 30 minutes: the write succeeds and carries a warning.
	rec = doJSON(t, router, http.MethodPost, "/api/schedules", token, gin.H{
		"child_id":      childID,
		"title":         "Rehab session",
		"schedule_type": "rehabilitation",
		"start_time":    day + "T15:00:00Z",
		"end_time":      day + "T16:00:00Z",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Create overlapping schedule returned %d: %s", rec.Code, rec.Body.String())
	}
	_, data = decodeResponse(t, rec)
	warnings, _ := data["warnings"].([]any)
	if len(warnings) != 1 {
		t.Fatalf("Expected 1 warning, got %v", warnings)
	}
	want := "Schedule conflict: 'Neurology visit' and 'Rehab session' overlap for 30 minutes starting 2026-01-10 15:00"
	if warnings[0] != want {
		t.Errorf("Warning = %q, want %q", warnings[0], want)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/schedules", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("List returned %d: %s", rec.Code, rec.Body.String())
	}
	_, data = decodeResponse(t, rec)
	items, _ := data["items"].([]any)
	if len(items) != 2 {
		t.Errorf("Expected 2 schedules listed, got %d", len(items))
	}
	report, _ := data["report"].(map[string]any)
	if total, _ := report["total_conflicts"].(float64); total != 1 {
		t.Errorf("Expected 1 conflict in report, got %v", report["total_conflicts"])
	}
}

func TestScheduleValidationRejected(t *testing.T) {
	router := testRouter(t)
	token := registerAndLogin(t, router)
	childID := createChild(t, router, token)

	rec := doJSON(t, router, http.MethodPost, "/api/schedules", token, gin.H{
		"child_id":      childID,
		"title":         "Backwards",
		"schedule_type": "checkup",
		"start_time":    "2026-01-10T15:00:00Z",
		"end_time":      "2026-01-10T14:00:00Z",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for inverted interval, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestReminderEndpoint(t *testing.T) {
	router := testRouter(t)
	token := registerAndLogin(t, router)
	childID := createChild(t, router, token)

	rec := doJSON(t, router, http.MethodPost, "/api/schedules", token, gin.H{
		"child_id":      childID,
		"title":         "Checkup",
		"schedule_type": "hospital",
		"start_time":    "2026-03-01T10:00:00Z",
		"end_time":      "2026-03-01T11:00:00Z",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Create schedule returned %d: %s", rec.Code, rec.Body.String())
	}
	_, data := decodeResponse(t, rec)
	sched, _ := data["schedule"].(map[string]any)
	id, _ := sched["id"].(string)
	if id == "" {
		t.Fatalf("Create returned no schedule id: %s", rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/schedules/%s/reminder?lead_hours=2", id), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Reminder returned %d: %s", rec.Code, rec.Body.String())
	}
	_, data = decodeResponse(t, rec)
	checklist, _ := data["checklist"].([]any)
	if len(checklist) != 5 {
		t.Errorf("Expected 5 default hospital checklist items, got %d", len(checklist))
	}
	fireAt, _ := data["fire_at"].(string)
	if fireAt != "2026-03-01T08:00:00Z" {
		t.Errorf("fire_at = %q, want 2026-03-01T08:00:00Z", fireAt)
	}
}

func TestSyncUnavailableWithoutProvider(t *testing.T) {
	router := testRouter(t)
	token := registerAndLogin(t, router)
	childID := createChild(t, router, token)

	rec := doJSON(t, router, http.MethodPost, "/api/schedules", token, gin.H{
		"child_id":      childID,
		"title":         "Visit",
		"schedule_type": "checkup",
		"start_time":    "2026-03-01T10:00:00Z",
		"end_time":      "2026-03-01T11:00:00Z",
	})
	_, data := decodeResponse(t, rec)
	sched, _ := data["schedule"].(map[string]any)
	id, _ := sched["id"].(string)

	rec = doJSON(t, router, http.MethodPost, "/api/schedules/"+id+"/sync", token, nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 without provider, got %d", rec.Code)
	}
}
