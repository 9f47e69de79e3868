package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	devhandler "otp-ceremony/backend/internal/devotp/handler"
	"otp-ceremony/backend/internal/logger"
	"otp-ceremony/backend/internal/security"
	"otp-ceremony/backend/internal/server/interceptors"
	"otp-ceremony/backend/internal/trigger"
	"otp-ceremony/backend/internal/trigger/bind"
)

// RouterOptions configures NewRouter. Every field is optional.
type RouterOptions struct {
	// Validator enables Bearer caller authentication on /v1/triggers.
	Validator *security.CallerValidator
	// Health serves GET /healthz.
	Health http.Handler
	// Dev mounts GET /dev/otp/{subject}. Set only in dev mode.
	Dev    *devhandler.Handler
	Logger *logger.Logger
	// Slow marks requests taking at least Slow as warn in the access log.
	Slow time.Duration
}

type errorResponse struct {
	Error     string `json:"error"`
	Field     string `json:"field,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// NewRouter returns the HTTP trigger router.
func NewRouter(svc *trigger.Service, o RouterOptions) http.Handler {
	log := o.Logger
	if log == nil {
		log = logger.Named("http")
	}
	h := &httpHandler{svc: svc, log: log}

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(requestID)
	r.Use(accessLog(log, o.Slow))
	r.Use(recoverJSON(log))

	if o.Health != nil {
		r.Method(http.MethodGet, "/healthz", o.Health)
	}
	r.Route("/v1/triggers", func(r chi.Router) {
		if o.Validator != nil {
			r.Use(callerAuth(o.Validator))
		}
		r.Post("/define", h.define)
		r.Post("/create", h.create)
		r.Post("/verify", h.verify)
	})
	if o.Dev != nil {
		o.Dev.Mount(r)
	}
	return r
}

type httpHandler struct {
	svc *trigger.Service
	log *logger.Logger
}

func (h *httpHandler) define(w http.ResponseWriter, r *http.Request) {
	req, err := bind.ParseJSON[trigger.DefineRequest](r)
	if err != nil {
		req = trigger.DefineRequest{}
	}
	writeJSON(w, http.StatusOK, h.svc.Define(r.Context(), req))
}

func (h *httpHandler) create(w http.ResponseWriter, r *http.Request) {
	req, err := bind.ParseJSON[trigger.CreateRequest](r)
	if err != nil {
		body := errorResponse{Error: "invalid request body", RequestID: logger.RequestID(r.Context())}
		var verr *bind.ValidationError
		if errors.As(err, &verr) {
			body.Error, body.Field = verr.Message, verr.Field
		}
		writeJSON(w, http.StatusBadRequest, body)
		return
	}
	resp, err := h.svc.Create(r.Context(), req)
	if err != nil {
		code, msg := http.StatusServiceUnavailable, "challenge service unavailable"
		if errors.Is(err, trigger.ErrInvalidRequest) {
			code, msg = http.StatusBadRequest, "invalid request"
		}
		writeJSON(w, code, errorResponse{Error: msg, RequestID: logger.RequestID(r.Context())})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *httpHandler) verify(w http.ResponseWriter, r *http.Request) {
	req, err := bind.ParseJSON[trigger.VerifyRequest](r)
	if err != nil {
		writeJSON(w, http.StatusOK, trigger.VerifyResponse{AnswerCorrect: false})
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Verify(r.Context(), req))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// requestID propagates X-Request-ID (or mints one) onto the context and the response.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	})
}

type captureWriter struct {
	http.ResponseWriter
	status int
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func accessLog(log *logger.Logger, slow time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cw := &captureWriter{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()

			next.ServeHTTP(cw, r)

			elapsed := time.Since(start)
			l := logger.C(r.Context(), log)
			evt := l.Info()
			if slow > 0 && elapsed >= slow {
				evt = l.Warn()
			}
			evt.Int("status", cw.status).
				Dur("elapsed", elapsed).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Msg("request done")
		})
	}
}

// recoverJSON converts panics into a JSON 500 and logs the stack with the request id.
func recoverJSON(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					logger.C(r.Context(), log).Error().
						Interface("panic", v).
						Msgf("panic recovered\n%s", debug.Stack())
					writeJSON(w, http.StatusInternalServerError, errorResponse{
						Error:     http.StatusText(http.StatusInternalServerError),
						RequestID: logger.RequestID(r.Context()),
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func callerAuth(v *security.CallerValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := interceptors.ParseBearer(r.Header.Get("Authorization"))
			if token == "" {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing or invalid authorization"})
				return
			}
			claims, err := v.Validate(token)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing or invalid authorization"})
				return
			}
			next.ServeHTTP(w, r.WithContext(interceptors.WithCaller(r.Context(), claims.Subject)))
		})
	}
}
