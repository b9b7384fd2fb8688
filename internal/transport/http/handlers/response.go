package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/vedran77/arena/internal/service"
	"github.com/vedran77/arena/pkg/validator"
	"go.uber.org/zap"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

func writeValidationErrors(w http.ResponseWriter, errs validator.ValidationErrors) {
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"error": map[string]any{
			"code":   "VALIDATION_ERROR",
			"fields": errs,
		},
	})
}

// writeServiceError maps a service error kind onto a status and code. The
// more specific errors are matched before the kinds they wrap.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, op string, err error) {
	var (
		status int
		code   string
	)
	switch {
	case errors.Is(err, service.ErrInvalidCreds):
		status, code = http.StatusUnauthorized, "INVALID_CREDENTIALS"
	case errors.Is(err, service.ErrWrongPassword):
		status, code = http.StatusUnauthorized, "WRONG_PASSWORD"
	case errors.Is(err, service.ErrAuthFailed):
		status, code = http.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, service.ErrEmailTaken):
		status, code = http.StatusConflict, "EMAIL_TAKEN"
	case errors.Is(err, service.ErrUsernameTaken):
		status, code = http.StatusConflict, "USERNAME_TAKEN"
	case errors.Is(err, service.ErrChallengeClosed):
		status, code = http.StatusConflict, "CHALLENGE_CLOSED"
	case errors.Is(err, service.ErrConflict):
		status, code = http.StatusConflict, "CONFLICT"
	case errors.Is(err, service.ErrAlreadyMember):
		status, code = http.StatusConflict, "ALREADY_MEMBER"
	case errors.Is(err, service.ErrMuted):
		status, code = http.StatusForbidden, "MUTED"
	case errors.Is(err, service.ErrForbidden):
		status, code = http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, service.ErrRoleViolation):
		status, code = http.StatusUnprocessableEntity, "ROLE_VIOLATION"
	case errors.Is(err, service.ErrInvalidArgument):
		status, code = http.StatusBadRequest, "INVALID_ARGUMENT"
	case errors.Is(err, service.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	default:
		logger.Error("request failed", zap.String("op", op), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		return
	}
	writeError(w, status, code, err.Error())
}

// decodeJSON reads the request body into v. An empty body leaves v untouched
// when optional is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, optional bool) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return true
	}
	writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
	return false
}

func pathID(w http.ResponseWriter, r *http.Request, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid "+label+" ID")
		return uuid.Nil, false
	}
	return id, true
}
