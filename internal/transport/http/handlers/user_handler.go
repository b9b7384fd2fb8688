package handlers

import (
	"net/http"

	"github.com/vedran77/arena/internal/domain"
	"github.com/vedran77/arena/internal/service"
	"github.com/vedran77/arena/internal/transport/http/middleware"
	"github.com/vedran77/arena/pkg/validator"
	"go.uber.org/zap"
)

type UserHandler struct {
	userService *service.UserService
	logger      *zap.Logger
}

func NewUserHandler(userService *service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{userService: userService, logger: logger}
}

type statusRequest struct {
	Status domain.UserStatus `json:"status"`
}

// Me returns the snapshot a client seeds its state mirror from.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	me, err := h.userService.Me(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, "me", err)
		return
	}

	writeJSON(w, http.StatusOK, me)
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input service.UpdateProfileInput
	if !decodeJSON(w, r, &input, false) {
		return
	}
	if errs := validator.ValidateProfile(input.Username, input.DisplayName); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), userID, input)
	if err != nil {
		writeServiceError(w, h.logger, "update profile", err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req statusRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	user, err := h.userService.SetStatus(r.Context(), userID, req.Status)
	if err != nil {
		writeServiceError(w, h.logger, "set status", err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
