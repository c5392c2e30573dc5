package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/keralaseva/deadline-alerts/internal/api/respond"
	"github.com/keralaseva/deadline-alerts/internal/auth"
	"github.com/keralaseva/deadline-alerts/internal/cache"
	"github.com/keralaseva/deadline-alerts/internal/notifications"
	"github.com/keralaseva/deadline-alerts/internal/store"
)

type matchesResponse struct {
	Count        int                   `json:"count"`
	Scholarships []notifications.Match `json:"scholarships"`
}

type notificationsResponse struct {
	UnreadCount   int                      `json:"unread_count"`
	Notifications []store.UserNotification `json:"notifications"`
}

// GetMatching returns the scholarships the caller currently qualifies for.
// @Summary Personal scholarship matches
// @Tags scholarships
// @Produce json
// @Security BearerAuth
// @Success 200 {object} matchesResponse
// @Success 304
// @Failure 500 {object} respond.ErrorResponse
// @Router /scholarships/matching [get]
func (h *Handler) GetMatching(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	cacheKey := cache.MatchesKey(userID)
	ttl := h.cfg.MatchCacheTTL

	if data, etag, ok := h.cache.Get(cacheKey); ok {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, ttl, true)
		return
	}

	matches, err := h.store.Match(r.Context(), userID)
	if err != nil {
		h.logger.Error("match scholarships failed", "user_id", userID, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "Could not load matching scholarships")
		return
	}
	if matches == nil {
		matches = []notifications.Match{}
	}

	raw, err := json.Marshal(matchesResponse{Count: len(matches), Scholarships: matches})
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "Could not encode response")
		return
	}

	etag := h.cache.Set(cacheKey, raw, ttl)
	respond.WriteJSON(w, raw, etag, ttl, false)
}

// GetNotifications lists the caller's deadline notifications, newest first.
// @Summary List my notifications
// @Tags scholarships
// @Produce json
// @Security BearerAuth
// @Success 200 {object} notificationsResponse
// @Failure 500 {object} respond.ErrorResponse
// @Router /scholarships/notifications [get]
func (h *Handler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	list, err := h.store.ListNotifications(r.Context(), userID)
	if err != nil {
		h.logger.Error("list notifications failed", "user_id", userID, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "Could not load notifications")
		return
	}
	if list == nil {
		list = []store.UserNotification{}
	}

	unread := 0
	for _, n := range list {
		if !n.IsRead {
			unread++
		}
	}
	respond.WriteJSONObject(w, http.StatusOK, notificationsResponse{
		UnreadCount:   unread,
		Notifications: list,
	})
}

// MarkNotificationRead marks one of the caller's notifications as read.
// @Summary Mark notification read
// @Tags scholarships
// @Produce json
// @Security BearerAuth
// @Param id path int true "Notification ID"
// @Success 200 {object} respond.MessageResponse
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Router /scholarships/notifications/{id}/read [put]
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_ID", "Notification id must be a positive integer")
		return
	}

	err = h.store.MarkNotificationRead(r.Context(), userID, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		respond.WriteError(w, http.StatusNotFound, "NOT_FOUND", "Notification not found or access denied")
	case err != nil:
		h.logger.Error("mark notification read failed", "user_id", userID, "id", id, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "Could not update notification")
	default:
		respond.WriteMessage(w, http.StatusOK, "Notification marked as read")
	}
}
