package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/vedran77/arena/internal/domain"
	"github.com/vedran77/arena/internal/service"
	"github.com/vedran77/arena/internal/transport/http/middleware"
	"go.uber.org/zap"
)

type MessageHandler struct {
	messageService *service.MessageService
	logger         *zap.Logger
}

func NewMessageHandler(messageService *service.MessageService, logger *zap.Logger) *MessageHandler {
	return &MessageHandler{messageService: messageService, logger: logger}
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

type invitationRequest struct {
	TargetID uuid.UUID `json:"target_id"`
}

type challengeStatusRequest struct {
	Status domain.ChallengeStatus `json:"status"`
}

func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	channelID, ok := pathID(w, r, "id", "channel")
	if !ok {
		return
	}

	var req sendMessageRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	msg, err := h.messageService.PostText(r.Context(), channelID, userID, req.Content)
	if err != nil {
		writeServiceError(w, h.logger, "send message", err)
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

func (h *MessageHandler) Invite(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	channelID, ok := pathID(w, r, "id", "channel")
	if !ok {
		return
	}

	var req invitationRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	msg, err := h.messageService.PostInvitation(r.Context(), channelID, userID, req.TargetID)
	if err != nil {
		writeServiceError(w, h.logger, "post invitation", err)
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

func (h *MessageHandler) SetChallengeStatus(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	channelID, ok := pathID(w, r, "id", "channel")
	if !ok {
		return
	}
	messageID, ok := pathID(w, r, "mid", "message")
	if !ok {
		return
	}

	var req challengeStatusRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	msg, err := h.messageService.SetChallengeStatus(r.Context(), channelID, messageID, userID, req.Status)
	if err != nil {
		writeServiceError(w, h.logger, "challenge status", err)
		return
	}

	writeJSON(w, http.StatusOK, msg)
}
