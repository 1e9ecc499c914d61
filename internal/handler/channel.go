package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/streamhub/internal/apperror"
	"github.com/sakif/streamhub/internal/auth"
	"github.com/sakif/streamhub/internal/service"
)

// ChannelHandler exposes the derived views: channel profiles, watch
// history, and subscription toggling.
type ChannelHandler struct {
	channels *service.ChannelService
	logger   *slog.Logger
}

func NewChannelHandler(channels *service.ChannelService, logger *slog.Logger) *ChannelHandler {
	return &ChannelHandler{channels: channels, logger: logger}
}

// HandleChannelProfile returns a channel's public profile with subscription
// aggregates computed from the viewer's perspective.
//
// HTTP: GET /api/v1/users/c/{username} (auth required)
func (h *ChannelHandler) HandleChannelProfile(w http.ResponseWriter, r *http.Request) {
	viewer, ok := auth.CurrentUser(r.Context())
	if !ok {
		writeError(w, h.logger, apperror.Unauthorized("unauthorized request"))
		return
	}

	profile, err := h.channels.Profile(r.Context(), chi.URLParam(r, "username"), viewer.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeOK(w, http.StatusOK, "user channel fetched successfully", profile)
}

// HandleWatchHistory returns the viewer's enriched watch history in stored
// order.
//
// HTTP: GET /api/v1/users/history (auth required)
func (h *ChannelHandler) HandleWatchHistory(w http.ResponseWriter, r *http.Request) {
	viewer, ok := auth.CurrentUser(r.Context())
	if !ok {
		writeError(w, h.logger, apperror.Unauthorized("unauthorized request"))
		return
	}

	history, err := h.channels.WatchHistory(r.Context(), viewer.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeOK(w, http.StatusOK, "watch history fetched successfully", history)
}

// HandleWatchHistoryAppend records that the viewer watched a video.
//
// HTTP: POST /api/v1/users/history/{videoId} (auth required)
func (h *ChannelHandler) HandleWatchHistoryAppend(w http.ResponseWriter, r *http.Request) {
	viewer, ok := auth.CurrentUser(r.Context())
	if !ok {
		writeError(w, h.logger, apperror.Unauthorized("unauthorized request"))
		return
	}

	if err := h.channels.AddToHistory(r.Context(), viewer.ID, chi.URLParam(r, "videoId")); err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeOK(w, http.StatusOK, "video added to watch history", nil)
}

// HandleToggleSubscription subscribes or unsubscribes the viewer.
//
// HTTP: POST /api/v1/subscriptions/{channelId} (auth required)
func (h *ChannelHandler) HandleToggleSubscription(w http.ResponseWriter, r *http.Request) {
	viewer, ok := auth.CurrentUser(r.Context())
	if !ok {
		writeError(w, h.logger, apperror.Unauthorized("unauthorized request"))
		return
	}

	subscribed, err := h.channels.ToggleSubscription(r.Context(), viewer.ID, chi.URLParam(r, "channelId"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	message := "unsubscribed successfully"
	if subscribed {
		message = "subscribed successfully"
	}
	writeOK(w, http.StatusOK, message, map[string]bool{"subscribed": subscribed})
}
