// Package handler serves the dev-only code lookup route. Only mounted when dev OTP mode is
// enabled and the environment is not production.
package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"otp-ceremony/backend/internal/challenge"
	"otp-ceremony/backend/internal/devotp"
)

const devOTPNote = "DEV MODE ONLY"

// Handler reads plaintext codes from the dev store.
type Handler struct {
	store devotp.Store
}

// New returns a dev code handler backed by store.
func New(store devotp.Store) *Handler {
	return &Handler{store: store}
}

type otpResponse struct {
	Subject   string    `json:"subject"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expiresAt"`
	Note      string    `json:"note"`
}

// Mount registers GET /dev/otp/{subject} on r.
func (h *Handler) Mount(r chi.Router) {
	r.Get("/dev/otp/{subject}", h.getOTP)
}

func (h *Handler) getOTP(w http.ResponseWriter, r *http.Request) {
	subject := challenge.NormalizeSubject(chi.URLParam(r, "subject"))
	if subject == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "subject is required"})
		return
	}
	code, expiresAt, ok := h.store.Get(r.Context(), subject)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "code not found or expired"})
		return
	}
	writeJSON(w, http.StatusOK, otpResponse{Subject: subject, Code: code, ExpiresAt: expiresAt, Note: devOTPNote})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
