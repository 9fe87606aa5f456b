package httpadapter

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strings"

	"github.com/elnormous/contenttype"

	"github.com/PabloGalante/tonal/internal/app/editor"
	"github.com/PabloGalante/tonal/internal/domain"
	"github.com/PabloGalante/tonal/internal/observability"
)

const maxBodyBytes = 1 << 20

var jsonMediaType = contenttype.NewMediaType("application/json")

var errInvalidTone = &domain.InvalidInputError{Field: "tone", Reason: "tone must be an integer between 0 and 100"}

type Server struct {
	svc *editor.Service
}

func NewServer(svc *editor.Service) http.Handler {
	s := &Server{svc: svc}
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", s.handleHealthz)

	mux.HandleFunc("/api/transform", post(s.handleTransform))
	mux.HandleFunc("/api/undo", post(s.handleUndo))
	mux.HandleFunc("/api/redo", post(s.handleRedo))
	mux.HandleFunc("/api/reset", post(s.handleReset))

	return chainMiddlewares(mux, withLogging, withRequestID, withCORS)
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type transformRequest struct {
	Text      string          `json:"text"`
	Tone      json.RawMessage `json:"tone,omitempty"`
	SessionID string          `json:"session_id"`
}

type transformResponse struct {
	Transformed string `json:"transformed"`
	SessionID   string `json:"session_id"`
}

type sessionRequest struct {
	SessionID string `json:"session_id"`
}

type textResponse struct {
	Text string `json:"text"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// ─────────────────────────────────────────────
// Concrete handlers
// ─────────────────────────────────────────────

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTransform(w http.ResponseWriter, r *http.Request) {
	var req transformRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	tone, err := parseTone(req.Tone)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out, err := s.svc.Transform(r.Context(), editor.TransformInput{
		SessionID: domain.SessionID(req.SessionID),
		Text:      req.Text,
		Tone:      tone,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, transformResponse{
		Transformed: out.View.Text,
		SessionID:   string(out.SessionID),
	})
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	view, err := s.svc.Undo(r.Context(), domain.SessionID(req.SessionID))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, textResponse{Text: view.Text})
}

func (s *Server) handleRedo(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	view, err := s.svc.Redo(r.Context(), domain.SessionID(req.SessionID))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, textResponse{Text: view.Text})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if _, err := s.svc.Reset(r.Context(), domain.SessionID(req.SessionID)); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "History reset"})
}

// ─────────────────────────────────────────────
// HTTP Helpers
// ─────────────────────────────────────────────

func post(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		h(w, r)
	}
}

// decodeJSON writes the error response itself and reports whether the
// handler should continue.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Header.Get("Content-Type") != "" {
		ctype, err := contenttype.GetMediaType(r)
		if err != nil || !ctype.Matches(jsonMediaType) {
			writeJSON(w, http.StatusUnsupportedMediaType, map[string]string{
				"error": "content-type must be application/json",
			})
			return false
		}
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		badRequest(w, "invalid JSON body")
		return false
	}
	return true
}

// parseTone accepts 20, 20.0 and "20"; a missing or null tone means
// domain.DefaultTone. Fractions and non-numbers are rejected.
func parseTone(raw json.RawMessage) (domain.Tone, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return domain.DefaultTone, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		raw = json.RawMessage(strings.TrimSpace(s))
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, errInvalidTone
	}
	if f != math.Trunc(f) || f < float64(domain.MinTone) || f > float64(domain.MaxTone) {
		return 0, errInvalidTone
	}
	return domain.Tone(f), nil
}

// writeError maps domain errors onto status codes. Upstream details stay in
// the logs.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		invalid   *domain.InvalidInputError
		noHistory *domain.NoHistoryError
		transform *domain.TransformError
	)

	switch {
	case errors.As(err, &invalid):
		badRequest(w, invalid.Reason)
	case errors.As(err, &noHistory):
		badRequest(w, noHistory.Error())
	case errors.As(err, &transform):
		if transform.Timeout() {
			writeJSON(w, http.StatusGatewayTimeout, map[string]string{
				"error": "transform timed out",
			})
			return
		}
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"error": "API call failed",
		})
	case errors.Is(err, domain.ErrStaleTransform):
		writeJSON(w, http.StatusConflict, map[string]string{
			"error": err.Error(),
		})
	default:
		internalError(w, r, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error": msg,
	})
}

func internalError(w http.ResponseWriter, r *http.Request, err error) {
	observability.LoggerFromContext(r.Context()).Error("unhandled error", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error": "internal server error",
	})
}

func methodNotAllowed(w http.ResponseWriter) {
	w.Header().Set("Allow", http.MethodPost)
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{
		"error": "method not allowed",
	})
}
