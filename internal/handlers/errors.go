package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"familyhub/internal/repository"
	"familyhub/internal/security"
	"familyhub/internal/service"
	"familyhub/internal/validation"
)

// APIResponse is the envelope of every JSON response
type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

// APIError describes a failed request
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	})
}

// respondWithError writes an error envelope. A non-nil err is logged with the request logger.
func respondWithError(w http.ResponseWriter, r *http.Request, status int, code, userMsg string, err error) {
	if err != nil {
		event := zerolog.Ctx(r.Context()).Warn()
		if status >= http.StatusInternalServerError {
			event = zerolog.Ctx(r.Context()).Error()
		}
		event.Err(err).Int("status", status).Str("code", code).Msg(userMsg)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: userMsg},
	})
}

// respondWithServiceError maps a service or repository error to a status and error code
func respondWithServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var ve validation.ValidationError
	switch {
	case errors.As(err, &ve):
		respondWithError(w, r, http.StatusBadRequest, CodeValidation, ve.Error(), nil)

	case errors.Is(err, service.ErrNotAuthenticated),
		errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, security.ErrInvalidToken):
		respondWithError(w, r, http.StatusUnauthorized, CodeUnauthorized, "Not authenticated", nil)
	case errors.Is(err, service.ErrInvalidCredentials):
		respondWithError(w, r, http.StatusUnauthorized, CodeUnauthorized, "Invalid email or password", nil)
	case errors.Is(err, service.ErrEmailTaken), errors.Is(err, service.ErrUsernameTaken):
		respondWithError(w, r, http.StatusConflict, CodeConflict, err.Error(), nil)
	case errors.Is(err, service.ErrSignupCodeInvalid), errors.Is(err, service.ErrSignupCodeExpired):
		respondWithError(w, r, http.StatusBadRequest, CodeInvalidVerification, err.Error(), nil)
	case errors.Is(err, service.ErrEmailDisabled):
		respondWithError(w, r, http.StatusServiceUnavailable, CodeUnavailable, "Email delivery is not configured", err)

	case errors.Is(err, service.ErrFamilyNameRequired),
		errors.Is(err, service.ErrFamilyNameInvalid),
		errors.Is(err, service.ErrInviteCodeRequired):
		respondWithError(w, r, http.StatusBadRequest, CodeValidation, err.Error(), nil)
	case errors.Is(err, service.ErrInvalidInviteCode):
		respondWithError(w, r, http.StatusBadRequest, CodeInvalidInvite, err.Error(), err)
	case errors.Is(err, service.ErrAlreadyMember):
		respondWithError(w, r, http.StatusConflict, CodeAlreadyMember, err.Error(), nil)
	case errors.Is(err, service.ErrNoFamilyToLeave):
		respondWithError(w, r, http.StatusConflict, CodeNoFamily, err.Error(), nil)
	case errors.Is(err, service.ErrCreateFamilyFailed),
		errors.Is(err, service.ErrAddMemberFailed),
		errors.Is(err, service.ErrJoinFamilyFailed),
		errors.Is(err, service.ErrLeaveFamilyFailed):
		respondWithError(w, r, http.StatusInternalServerError, CodeInternal, err.Error(), err)

	case errors.Is(err, service.ErrNotFamilyMember):
		respondWithError(w, r, http.StatusForbidden, CodeNotFamilyMember, "Not a member of this family", nil)
	case errors.Is(err, service.ErrInvalidEventType),
		errors.Is(err, service.ErrInvalidRSVP),
		errors.Is(err, service.ErrEventDateMissing),
		errors.Is(err, service.ErrNothingToUpdate):
		respondWithError(w, r, http.StatusBadRequest, CodeValidation, err.Error(), nil)
	case repository.IsNotFound(err):
		respondWithError(w, r, http.StatusNotFound, CodeNotFound, "Event not found", nil)

	default:
		respondWithError(w, r, http.StatusInternalServerError, CodeInternal, msgInternal, err)
	}
}

// decodeJSON reads a JSON body into dst, rejecting unknown fields
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		respondWithError(w, r, http.StatusBadRequest, CodeBadRequest, msgInvalidBody, nil)
		return false
	}
	return true
}
