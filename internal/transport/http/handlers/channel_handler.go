package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/arena/internal/domain"
	"github.com/vedran77/arena/internal/service"
	"github.com/vedran77/arena/internal/transport/http/middleware"
	"github.com/vedran77/arena/pkg/validator"
	"go.uber.org/zap"
)

type ChannelHandler struct {
	channelService *service.ChannelService
	logger         *zap.Logger
}

func NewChannelHandler(channelService *service.ChannelService, logger *zap.Logger) *ChannelHandler {
	return &ChannelHandler{channelService: channelService, logger: logger}
}

type joinRequest struct {
	Password *string `json:"password"`
}

type memberRequest struct {
	UserID uuid.UUID `json:"user_id"`
}

type roleRequest struct {
	Role domain.Role `json:"role"`
}

type muteRequest struct {
	UserID          uuid.UUID `json:"user_id"`
	DurationSeconds int       `json:"duration_seconds"`
}

func (h *ChannelHandler) List(w http.ResponseWriter, r *http.Request) {
	channels, err := h.channelService.ListPublicChannels(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, "list channels", err)
		return
	}
	writeJSON(w, http.StatusOK, channels)
}

func (h *ChannelHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input service.CreateChannelInput
	if !decodeJSON(w, r, &input, false) {
		return
	}

	if errs := validator.ValidateChannel(input.Name, string(input.Kind), input.Password); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	ch, err := h.channelService.CreateChannel(r.Context(), userID, input)
	if err != nil {
		writeServiceError(w, h.logger, "create channel", err)
		return
	}

	writeJSON(w, http.StatusCreated, ch)
}

func (h *ChannelHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	channelID, ok := pathID(w, r, "id", "channel")
	if !ok {
		return
	}

	detail, err := h.channelService.GetChannel(r.Context(), channelID, userID)
	if err != nil {
		writeServiceError(w, h.logger, "get channel", err)
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

func (h *ChannelHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	channelID, ok := pathID(w, r, "id", "channel")
	if !ok {
		return
	}

	var input service.UpdateChannelInput
	if !decodeJSON(w, r, &input, false) {
		return
	}

	var kind *string
	if input.Kind != nil {
		k := string(*input.Kind)
		kind = &k
	}
	if errs := validator.ValidateChannelPatch(input.Name, kind, input.Password); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	ch, err := h.channelService.UpdateChannel(r.Context(), channelID, userID, input)
	if err != nil {
		writeServiceError(w, h.logger, "update channel", err)
		return
	}

	writeJSON(w, http.StatusOK, ch)
}

func (h *ChannelHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	channelID, ok := pathID(w, r, "id", "channel")
	if !ok {
		return
	}

	if err := h.channelService.DeleteChannel(r.Context(), channelID, userID); err != nil {
		writeServiceError(w, h.logger, "delete channel", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ChannelHandler) Join(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	channelID, ok := pathID(w, r, "id", "channel")
	if !ok {
		return
	}

	var req joinRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}

	member, err := h.channelService.JoinChannel(r.Context(), channelID, userID, req.Password)
	if err != nil {
		writeServiceError(w, h.logger, "join channel", err)
		return
	}

	writeJSON(w, http.StatusOK, member)
}

func (h *ChannelHandler) Leave(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	channelID, ok := pathID(w, r, "id", "channel")
	if !ok {
		return
	}

	if err := h.channelService.LeaveChannel(r.Context(), channelID, userID); err != nil {
		writeServiceError(w, h.logger, "leave channel", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ChannelHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	channelID, ok := pathID(w, r, "id", "channel")
	if !ok {
		return
	}

	var req memberRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if req.UserID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "user_id is required")
		return
	}

	member, err := h.channelService.AddMember(r.Context(), channelID, userID, req.UserID)
	if err != nil {
		writeServiceError(w, h.logger, "add member", err)
		return
	}

	writeJSON(w, http.StatusCreated, member)
}

func (h *ChannelHandler) Kick(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	channelID, ok := pathID(w, r, "id", "channel")
	if !ok {
		return
	}
	targetID, ok := pathID(w, r, "uid", "user")
	if !ok {
		return
	}

	if err := h.channelService.KickMember(r.Context(), channelID, userID, targetID); err != nil {
		writeServiceError(w, h.logger, "kick member", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ChannelHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	channelID, ok := pathID(w, r, "id", "channel")
	if !ok {
		return
	}
	targetID, ok := pathID(w, r, "uid", "user")
	if !ok {
		return
	}

	var req roleRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	member, err := h.channelService.SetRole(r.Context(), channelID, userID, targetID, req.Role)
	if err != nil {
		writeServiceError(w, h.logger, "set role", err)
		return
	}

	writeJSON(w, http.StatusOK, member)
}

func (h *ChannelHandler) Unban(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	channelID, ok := pathID(w, r, "id", "channel")
	if !ok {
		return
	}
	targetID, ok := pathID(w, r, "uid", "user")
	if !ok {
		return
	}

	if err := h.channelService.UnbanMember(r.Context(), channelID, userID, targetID); err != nil {
		writeServiceError(w, h.logger, "unban member", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ChannelHandler) Mute(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	channelID, ok := pathID(w, r, "id", "channel")
	if !ok {
		return
	}

	var req muteRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	entry, err := h.channelService.MuteMember(r.Context(), channelID, userID, req.UserID, time.Duration(req.DurationSeconds)*time.Second)
	if err != nil {
		writeServiceError(w, h.logger, "mute member", err)
		return
	}

	writeJSON(w, http.StatusOK, entry)
}
