package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"abchat/internal/apperr"
)

// maxBody bounds an ask request.
const maxBody = 1 << 16

type envelope struct {
	Data    any           `json:"data,omitempty"`
	Error   *apperr.Error `json:"error,omitempty"`
	Success bool          `json:"success"`
}

type askRequest struct {
	Question string `json:"question"`
}

type handler struct {
	chat Chat
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, envelope{Data: map[string]string{"status": "ok"}, Success: true})
}

func (h *handler) ask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req askRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&req); err != nil {
		writeError(ctx, w, apperr.Wrap(err, apperr.KindValidation, "request body must be {\"question\": \"...\"}"))
		return
	}
	ans, err := h.chat.Ask(ctx, req.Question)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, envelope{Data: ans, Success: true})
}

func (h *handler) summary(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, envelope{Data: h.chat.Summary(), Success: true})
}

func (h *handler) history(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(ctx, w, apperr.Validation("limit must be a positive integer"))
			return
		}
		limit = n
	}
	entries, err := h.chat.Recent(ctx, limit)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, envelope{Data: entries, Success: true})
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		appErr = apperr.Wrap(err, apperr.KindInternal, "request failed")
	}
	status := http.StatusInternalServerError
	switch {
	case appErr.Kind == apperr.KindValidation:
		status = http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		// client went away
		status = 499
	}
	if status >= 500 {
		zerolog.Ctx(ctx).Error().Err(err).Msg("request failed")
	}
	writeJSON(ctx, w, status, envelope{Error: appErr, Success: false})
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zerolog.Ctx(ctx).Error().
			Err(err).
			Msg("failed to encode response")
	}
}
