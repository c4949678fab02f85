// Package api exposes HTTP handlers for the coaching pipeline.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"example.com/activeaging/internal/audit"
	"example.com/activeaging/internal/auth"
	"example.com/activeaging/internal/catalog"
	"example.com/activeaging/internal/coach"
	"example.com/activeaging/internal/errs"
	"example.com/activeaging/internal/llm"
	"example.com/activeaging/internal/persistence"
	"example.com/activeaging/internal/planning"
	"example.com/activeaging/internal/safety"
)

const (
	maxBodyBytes     = 1 << 20
	maxWindowDays    = 90
	defaultAuditPage = 50
)

// Handler coordinates HTTP requests with the coaching service.
type Handler struct {
	service *coach.Service
	audit   audit.Reader
	log     *zap.Logger
}

// NewHandler builds a Handler. auditReader may be nil when the configured sink cannot be read
// back, in which case the audit listing answers 503.
func NewHandler(service *coach.Service, auditReader audit.Reader, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{service: service, audit: auditReader, log: log}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/coach/chat", h.requireScope(auth.ScopeCoachUse, h.chat))
	mux.HandleFunc("GET /v1/movements", h.requireScope(auth.ScopeCoachUse, h.listMovements))
	mux.HandleFunc("POST /v1/plans", h.requireScope(auth.ScopeCoachUse, h.createPlan))
	mux.HandleFunc("GET /v1/plans/{id}", h.requireScope(auth.ScopeCoachUse, h.getPlan))
	mux.HandleFunc("POST /v1/plans/{id}/explain", h.requireScope(auth.ScopeCoachUse, h.explainPlan))
	mux.HandleFunc("POST /v1/plans/{id}/sessions/{sessionID}/complete", h.requireScope(auth.ScopeCoachUse, h.completeSession))
	mux.HandleFunc("GET /v1/adherence", h.requireScope(auth.ScopeCoachUse, h.adherence))
	mux.HandleFunc("POST /v1/safety/validate", h.requireScope(auth.ScopeSafetyReview, h.validateText))
	mux.HandleFunc("GET /v1/audit", h.requireScope(auth.ScopeAuditRead, h.listAudit))
	mux.HandleFunc("GET /healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type claimsHandler func(http.ResponseWriter, *http.Request, *auth.Claims)

func (h *Handler) requireScope(scope string, next claimsHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := auth.FromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}
		if !claims.HasScope(scope) {
			writeError(w, http.StatusForbidden, "forbidden", "scope "+scope+" required")
			return
		}
		next(w, r, claims)
	}
}

func (h *Handler) chat(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	var req ChatRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	reply, err := h.service.Chat(r.Context(), claims.Subject, req.input())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (h *Handler) listMovements(w http.ResponseWriter, r *http.Request, _ *auth.Claims) {
	cat := h.service.Engine().Catalog()
	category := strings.TrimSpace(r.URL.Query().Get("category"))

	items := make([]catalog.Definition, 0, cat.Len())
	for _, def := range cat.All() {
		if category != "" && !slices.Contains(def.Categories, category) {
			continue
		}
		items = append(items, def)
	}
	writeJSON(w, http.StatusOK, MovementsResponse{Version: cat.Version(), Items: items})
}

func (h *Handler) createPlan(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	var req CreatePlanRequest
	if !decodeBody(w, r, &req) {
		return
	}

	plan, err := h.service.BuildPlan(r.Context(), claims.Subject, req.Profile, req.Motivation)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}

func (h *Handler) getPlan(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	plan, err := h.service.GetPlan(r.Context(), claims.Subject, r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (h *Handler) explainPlan(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	var req ChatRequest
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}

	reply, err := h.service.ExplainPlan(r.Context(), claims.Subject, r.PathValue("id"), req.input())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (h *Handler) completeSession(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	var req CompleteSessionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.service.CompleteSession(r.Context(), claims.Subject, r.PathValue("id"), r.PathValue("sessionID"), req.Feedback, req.Profile)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) adherence(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	window := planning.DefaultAdherenceWindow
	if raw := r.URL.Query().Get("window_days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days <= 0 || days > maxWindowDays {
			writeError(w, http.StatusBadRequest, "validation_failed", "window_days must be between 1 and 90")
			return
		}
		window = time.Duration(days) * 24 * time.Hour
	}

	summary, err := h.service.Adherence(r.Context(), claims.Subject, window)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) validateText(w http.ResponseWriter, r *http.Request, _ *auth.Claims) {
	var req ValidateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "text is required")
		return
	}
	writeJSON(w, http.StatusOK, h.service.Validate(req.Text, req.Context))
}

func (h *Handler) listAudit(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	if h.audit == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "audit listing is not configured")
		return
	}

	q := r.URL.Query()
	userID := strings.TrimSpace(q.Get("user_id"))
	if userID == "" {
		userID = claims.Subject
	}
	typ := audit.Type(q.Get("type"))
	if typ != "" && !typ.Valid() {
		writeError(w, http.StatusBadRequest, "validation_failed", "unknown record type")
		return
	}
	limit := defaultAuditPage
	if raw := q.Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	page, err := h.audit.ListByUser(r.Context(), audit.Query{
		UserID: userID,
		Type:   typ,
		Cursor: q.Get("cursor"),
		Limit:  limit,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// ChatRequest is the payload for POST /v1/coach/chat and POST /v1/plans/{id}/explain.
type ChatRequest struct {
	Message  string           `json:"message"`
	Persona  string           `json:"persona,omitempty"`
	UserName string           `json:"user_name,omitempty"`
	Profile  planning.Profile `json:"profile"`
	History  []llm.Message    `json:"history,omitempty"`
}

// Validate ensures request correctness.
func (r ChatRequest) Validate() error {
	if strings.TrimSpace(r.Message) == "" {
		return errors.New("message is required")
	}
	for _, m := range r.History {
		if m.Role != llm.RoleUser && m.Role != llm.RoleModel {
			return errors.New("history role must be user or model")
		}
	}
	return nil
}

func (r ChatRequest) input() coach.ChatInput {
	return coach.ChatInput{
		Message:  r.Message,
		Persona:  r.Persona,
		UserName: r.UserName,
		Profile:  r.Profile,
		History:  r.History,
	}
}

// CreatePlanRequest is the payload for POST /v1/plans.
type CreatePlanRequest struct {
	Profile    planning.Profile `json:"profile"`
	Motivation string           `json:"motivation,omitempty"`
}

// CompleteSessionRequest is the payload for completing a session. Profile is optional; without
// it the plan is not adapted.
type CompleteSessionRequest struct {
	planning.Feedback
	Profile *planning.Profile `json:"profile,omitempty"`
}

// ValidateRequest is the payload for POST /v1/safety/validate.
type ValidateRequest struct {
	Text    string          `json:"text"`
	Context *safety.Context `json:"context,omitempty"`
}

// MovementsResponse lists catalog entries.
type MovementsResponse struct {
	Version string               `json:"version"`
	Items   []catalog.Definition `json:"items"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return false
	}
	return true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	log := h.log.With(zap.String("user_id", auth.SubjectFromContext(r.Context())), zap.String("path", r.URL.Path))
	switch {
	case errors.Is(err, errs.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, persistence.ErrInvalidCursor):
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
	case errors.Is(err, errs.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, errs.ErrUpstream):
		log.Warn("upstream failure", zap.Error(err))
		writeError(w, http.StatusBadGateway, "upstream_unavailable", "the coaching model is unavailable, please try again")
	default:
		log.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
