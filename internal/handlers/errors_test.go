package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"familyhub/internal/repository"
	"familyhub/internal/service"
	"familyhub/internal/validation"
)

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestRespondWithErrorWritesStatusAndBody(t *testing.T) {
	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	respondWithError(recorder, req, http.StatusTeapot, "TEAPOT", "Teapot", nil)

	if recorder.Code != http.StatusTeapot {
		t.Fatalf("expected status 418, got %d", recorder.Code)
	}
	resp := decodeEnvelope(t, recorder)
	if resp.Success {
		t.Error("expected success=false")
	}
	if resp.Error == nil || resp.Error.Code != "TEAPOT" || resp.Error.Message != "Teapot" {
		t.Fatalf("unexpected error body: %+v", resp.Error)
	}
}

func TestRespondWithErrorLogsMessage(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(logger.WithContext(req.Context()))

	respondWithError(recorder, req, http.StatusInternalServerError, CodeInternal, "Internal server error", errors.New("boom"))

	logOutput := buf.String()
	if !strings.Contains(logOutput, "Internal server error") {
		t.Fatalf("expected log to include user message, got %q", logOutput)
	}
	if !strings.Contains(logOutput, "boom") {
		t.Fatalf("expected log to include error, got %q", logOutput)
	}
	if !strings.Contains(logOutput, `"level":"error"`) {
		t.Fatalf("expected error level, got %q", logOutput)
	}
}

func TestRespondJSONWrapsData(t *testing.T) {
	recorder := httptest.NewRecorder()
	respondJSON(recorder, http.StatusCreated, map[string]string{"id": "e1"})

	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", recorder.Code)
	}
	if ct := recorder.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(recorder.Body.String(), `"success":true`) || !strings.Contains(recorder.Body.String(), `"id":"e1"`) {
		t.Errorf("unexpected body %s", recorder.Body.String())
	}
}

func TestRespondWithServiceErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{"validation", validation.ValidationError{Field: "title", Message: "title is required"}, http.StatusBadRequest, CodeValidation, "title: title is required"},
		{"not authenticated", &service.FamilyError{Reason: service.ErrNotAuthenticated}, http.StatusUnauthorized, CodeUnauthorized, ""},
		{"bad credentials", service.ErrInvalidCredentials, http.StatusUnauthorized, CodeUnauthorized, ""},
		{"email taken", service.ErrEmailTaken, http.StatusConflict, CodeConflict, "email already taken"},
		{"name required", &service.FamilyError{Reason: service.ErrFamilyNameRequired}, http.StatusBadRequest, CodeValidation, "Family name is required"},
		{"name too long", &service.FamilyError{Reason: service.ErrFamilyNameInvalid, Cause: validation.ValidationError{Field: "name", Message: "name must be at most 100 characters"}}, http.StatusBadRequest, CodeValidation, "name: name must be at most 100 characters"},
		{"name invalid", &service.FamilyError{Reason: service.ErrFamilyNameInvalid}, http.StatusBadRequest, CodeValidation, "Invalid family name"},
		{"wrong verification code", service.ErrSignupCodeInvalid, http.StatusBadRequest, CodeInvalidVerification, "invalid verification code"},
		{"expired verification code", service.ErrSignupCodeExpired, http.StatusBadRequest, CodeInvalidVerification, "verification code expired"},
		{"email disabled", service.ErrEmailDisabled, http.StatusServiceUnavailable, CodeUnavailable, ""},
		{"invalid code", &service.FamilyError{Reason: service.ErrInvalidInviteCode}, http.StatusBadRequest, CodeInvalidInvite, "Invalid invite code"},
		{"already member", &service.FamilyError{Reason: service.ErrAlreadyMember}, http.StatusConflict, CodeAlreadyMember, "Already a member of this family"},
		{"no family", &service.FamilyError{Reason: service.ErrNoFamilyToLeave}, http.StatusConflict, CodeNoFamily, "No family to leave"},
		{"join failed", &service.FamilyError{Reason: service.ErrJoinFamilyFailed, Cause: errors.New("db down")}, http.StatusInternalServerError, CodeInternal, "Failed to join family"},
		{"not member", service.ErrNotFamilyMember, http.StatusForbidden, CodeNotFamilyMember, ""},
		{"bad rsvp", fmt.Errorf("%w: yes", service.ErrInvalidRSVP), http.StatusBadRequest, CodeValidation, ""},
		{"event missing", repository.ErrEventNotFound, http.StatusNotFound, CodeNotFound, ""},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, CodeInternal, msgInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)

			respondWithServiceError(recorder, req, tt.err)

			if recorder.Code != tt.status {
				t.Errorf("status = %d, want %d", recorder.Code, tt.status)
			}
			resp := decodeEnvelope(t, recorder)
			if resp.Error == nil || resp.Error.Code != tt.code {
				t.Fatalf("error = %+v, want code %s", resp.Error, tt.code)
			}
			if tt.message != "" && resp.Error.Message != tt.message {
				t.Errorf("message = %q, want %q", resp.Error.Message, tt.message)
			}
		})
	}
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Smiths","extra":1}`))

	var body createFamilyRequest
	if decodeJSON(recorder, req, &body) {
		t.Fatal("expected decode to fail")
	}
	if recorder.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", recorder.Code)
	}
}
