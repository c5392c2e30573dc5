package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/keralaseva/deadline-alerts/internal/api/respond"
	"github.com/keralaseva/deadline-alerts/internal/auth"
	"github.com/keralaseva/deadline-alerts/internal/notifications"
	"github.com/keralaseva/deadline-alerts/internal/store"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 16

type preferenceRequest struct {
	AlertBeforeDays json.RawMessage `json:"alert_before_days"`
}

// preferenceInput is the decoded request after the integer check.
type preferenceInput struct {
	AlertBeforeDays int `validate:"min=1,max=90"`
}

var validate = validator.New()

type preferenceSaved struct {
	Message         string `json:"message"`
	AlertBeforeDays int    `json:"alert_before_days"`
}

type jobResponse struct {
	Message string               `json:"message"`
	Result  notifications.Result `json:"result"`
}

// GetPreferences returns the caller's alert threshold, or the default when
// none is stored.
// @Summary Get alert preference
// @Tags alerts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} notifications.Preference
// @Failure 401 {object} respond.ErrorResponse
// @Router /alerts/preferences [get]
func (h *Handler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	pref, err := h.store.GetPreference(r.Context(), userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			h.logger.Warn("get preference failed, serving default", "user_id", userID, "error", err)
		}
		pref = notifications.Preference{UserID: userID, AlertBeforeDays: notifications.DefaultAlertBeforeDays}
	}
	respond.WriteJSONObject(w, http.StatusOK, pref)
}

// SetPreferences stores the caller's alert threshold.
// @Summary Set alert preference
// @Tags alerts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body preferenceRequest true "alert_before_days between 1 and 90"
// @Success 200 {object} preferenceSaved
// @Failure 400 {object} respond.ErrorResponse
// @Failure 422 {object} respond.ErrorResponse
// @Failure 500 {object} respond.ErrorResponse
// @Router /alerts/preferences [put]
func (h *Handler) SetPreferences(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	req, ok := decodePreference(w, r)
	if !ok {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_BODY", "Request body must be JSON")
		return
	}

	var in preferenceInput
	if len(req.AlertBeforeDays) == 0 || json.Unmarshal(req.AlertBeforeDays, &in.AlertBeforeDays) != nil {
		respond.WriteError(w, http.StatusUnprocessableEntity, "INVALID_ALERT_DAYS",
			"alert_before_days must be an integer between 1 and 90")
		return
	}
	if err := validate.Struct(in); err != nil {
		respond.WriteErrorDetail(w, http.StatusUnprocessableEntity, "INVALID_ALERT_DAYS",
			"alert_before_days must be an integer between 1 and 90", err.Error())
		return
	}
	days := in.AlertBeforeDays

	pref := notifications.Preference{UserID: userID, AlertBeforeDays: days}
	if err := h.store.UpsertPreference(r.Context(), pref); err != nil {
		h.logger.Error("save preference failed", "user_id", userID, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "Could not save alert preference")
		return
	}

	respond.WriteJSONObject(w, http.StatusOK, preferenceSaved{
		Message:         "Alert preference saved",
		AlertBeforeDays: days,
	})
}

// decodePreference reads the body as a JSON object with at least one field.
func decodePreference(w http.ResponseWriter, r *http.Request) (preferenceRequest, bool) {
	var req preferenceRequest
	var raw json.RawMessage
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&raw); err != nil {
		return req, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || len(fields) == 0 {
		return req, false
	}
	req.AlertBeforeDays = fields["alert_before_days"]
	return req, true
}

// RunJob runs the deadline alert job synchronously. Admin only.
// @Summary Trigger deadline alert job
// @Description Runs the daily deadline alert job now and returns its summary. Partial failures are listed in result.errors.
// @Tags alerts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} jobResponse
// @Failure 401 {object} respond.ErrorResponse
// @Failure 403 {object} respond.ErrorResponse
// @Router /alerts/run-job [post]
func (h *Handler) RunJob(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	h.logger.Info("manual alert job triggered", "user_id", userID)

	// A disconnecting client must not cancel a run halfway through.
	result := h.runner.Run(context.WithoutCancel(r.Context()))
	notifications.LogResult(h.logger, result)

	respond.WriteJSONObject(w, http.StatusOK, jobResponse{
		Message: "Alert job completed",
		Result:  result,
	})
}
