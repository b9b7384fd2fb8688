package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/vedran77/arena/internal/service"
	"github.com/vedran77/arena/internal/transport/http/middleware"
	"go.uber.org/zap"
)

type DirectHandler struct {
	channelService *service.ChannelService
	logger         *zap.Logger
}

func NewDirectHandler(channelService *service.ChannelService, logger *zap.Logger) *DirectHandler {
	return &DirectHandler{channelService: channelService, logger: logger}
}

type openDirectRequest struct {
	UserID uuid.UUID `json:"user_id"`
}

// Open returns the direct channel with another user, creating it on first use.
func (h *DirectHandler) Open(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req openDirectRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if req.UserID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "user_id is required")
		return
	}

	ch, created, err := h.channelService.OpenDirect(r.Context(), userID, req.UserID)
	if err != nil {
		writeServiceError(w, h.logger, "open direct", err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, ch)
}
