package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nidhogg/riskline/internal/auditlog"
	"github.com/nidhogg/riskline/internal/pipeline"
)

// ChatTimeout is the wall-clock deadline for one chat turn. The pipeline may
// walk up to four stages with tool loops, so the boundary is generous; a turn
// that exceeds it is abandoned and its session evicted.
const ChatTimeout = 300 * time.Second

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	pipeline    *pipeline.Pipeline
	audit       *auditlog.Store
	chatTimeout time.Duration
	logger      *zap.Logger
}

// NewHandler creates a new API handler. audit may be nil; the read-side
// endpoints then report service unavailable.
func NewHandler(p *pipeline.Pipeline, audit *auditlog.Store, logger *zap.Logger) *Handler {
	return &Handler{
		pipeline:    p,
		audit:       audit,
		chatTimeout: ChatTimeout,
		logger:      logger,
	}
}

// Router builds the chi router with all routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.healthCheck)
		r.Post("/chat", h.chat)

		// Read-side projections over the audit tables.
		r.Get("/sessions", h.listSessions)
		r.Get("/sessions/{sessionID}", h.getSession)
		r.Get("/session-ids", h.listSessionIDs)
		r.Get("/thinking-logs", h.listThinkingLogs)
		r.Get("/thinking-logs-by-session-id/{sessionID}", h.getThinkingLogBySession)
		r.Get("/thinking-log-ids", h.listThinkingLogIDs)
		r.Get("/reports", h.listReports)
		r.Get("/heatmap", h.heatmap)
	})

	return r
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "riskline"})
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type chatResponse struct {
	Status         string `json:"status"`
	Response       string `json:"response,omitempty"`
	Error          string `json:"error,omitempty"`
	SessionID      string `json:"session_id"`
	ConversationID string `json:"conversation_id,omitempty"`
}

func (h *Handler) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.Message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message is required"})
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.chatTimeout)
	defer cancel()

	type outcome struct {
		res *pipeline.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := h.pipeline.Process(ctx, sessionID, req.Message)
		done <- outcome{res, err}
	}()

	select {
	case <-ctx.Done():
		// The timed-out turn must leave no trace: evict so the next turn
		// starts a fresh conversation.
		h.pipeline.Sessions().Evict(sessionID)
		h.logger.Warn("chat turn timed out", zap.String("session", sessionID))
		writeJSON(w, http.StatusGatewayTimeout, chatResponse{
			Status:    "error",
			Error:     "Request timed out. Please try a simpler request or wait a moment before retrying.",
			SessionID: sessionID,
		})

	case out := <-done:
		if out.err != nil {
			h.pipeline.Sessions().Evict(sessionID)
			if ctx.Err() != nil {
				writeJSON(w, http.StatusGatewayTimeout, chatResponse{
					Status:    "error",
					Error:     "Request timed out. Please try a simpler request or wait a moment before retrying.",
					SessionID: sessionID,
				})
				return
			}
			h.logger.Error("chat turn failed",
				zap.String("session", sessionID),
				zap.Error(out.err))
			writeJSON(w, http.StatusInternalServerError, chatResponse{
				Status:    "error",
				Error:     out.err.Error(),
				SessionID: sessionID,
			})
			return
		}
		writeJSON(w, http.StatusOK, chatResponse{
			Status:         "success",
			Response:       out.res.Response,
			SessionID:      sessionID,
			ConversationID: out.res.ConversationID,
		})
	}
}

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	if !h.requireAudit(w) {
		return
	}
	events, err := h.audit.Events(r.Context(), 500)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, groupSessions(events))
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	if !h.requireAudit(w) {
		return
	}
	sessionID := chi.URLParam(r, "sessionID")
	events, err := h.audit.EventsBySession(r.Context(), sessionID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if len(events) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found: " + sessionID})
		return
	}
	writeJSON(w, http.StatusOK, groupSessions(events)[0])
}

func (h *Handler) listSessionIDs(w http.ResponseWriter, r *http.Request) {
	if !h.requireAudit(w) {
		return
	}
	summaries, err := h.audit.SessionSummaries(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if summaries == nil {
		summaries = []auditlog.SessionSummary{}
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (h *Handler) listThinkingLogs(w http.ResponseWriter, r *http.Request) {
	if !h.requireAudit(w) {
		return
	}
	entries, err := h.audit.ThinkingLogs(r.Context(), auditlog.LogFilter{Limit: 500})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, groupThinking(entries))
}

func (h *Handler) getThinkingLogBySession(w http.ResponseWriter, r *http.Request) {
	if !h.requireAudit(w) {
		return
	}
	sessionID := chi.URLParam(r, "sessionID")
	entries, err := h.audit.ThinkingLogsBySession(r.Context(), sessionID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	views := groupThinking(entries)
	if len(views) == 0 {
		writeJSON(w, http.StatusOK, ThinkingView{SessionID: sessionID, Conversations: []ThinkingConversation{}})
		return
	}
	writeJSON(w, http.StatusOK, views[0])
}

func (h *Handler) listThinkingLogIDs(w http.ResponseWriter, r *http.Request) {
	if !h.requireAudit(w) {
		return
	}
	entries, err := h.audit.ThinkingLogs(r.Context(), auditlog.LogFilter{Limit: 500})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	queries := firstQueries(entries)
	if queries == nil {
		queries = []SessionFirstQuery{}
	}
	writeJSON(w, http.StatusOK, queries)
}

func (h *Handler) listReports(w http.ResponseWriter, r *http.Request) {
	if !h.requireAudit(w) {
		return
	}
	reports, err := h.audit.Reports(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if reports == nil {
		reports = []auditlog.ReportRecord{}
	}
	writeJSON(w, http.StatusOK, reports)
}

// heatmapRow is the wire shape of one heatmap entry.
type heatmapRow struct {
	DatetimeStamp  string `json:"datetime_stamp"`
	ConversationID string `json:"conversation_id"`
	SessionID      string `json:"session_id"`
	Country        string `json:"country"`
	AverageRisk    string `json:"average_risk"`
	Breakdown      string `json:"breakdown"`
}

func (h *Handler) heatmap(w http.ResponseWriter, r *http.Request) {
	if !h.requireAudit(w) {
		return
	}
	conversationID := r.URL.Query().Get("conversation_id")
	sessionID := r.URL.Query().Get("session_id")
	if conversationID == "" || sessionID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "conversation_id and session_id are required"})
		return
	}

	rows, err := h.audit.Heatmap(r.Context(), conversationID, sessionID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	now := time.Now().Format(time.RFC3339)
	out := make([]heatmapRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, heatmapRow{
			DatetimeStamp:  now,
			ConversationID: conversationID,
			SessionID:      sessionID,
			Country:        row.Country,
			AverageRisk:    row.AverageRisk,
			Breakdown:      row.Breakdown,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) requireAudit(w http.ResponseWriter) bool {
	if h.audit == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "audit store not configured"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
