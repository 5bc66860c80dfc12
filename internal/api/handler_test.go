package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/nidhogg/riskline/internal/agent"
	"github.com/nidhogg/riskline/internal/pipeline"
	"github.com/nidhogg/riskline/internal/provider"
)

// stubProvider answers instantly, or after a delay when configured.
type stubProvider struct {
	delay time.Duration
}

func (p *stubProvider) ID() string   { return "stub" }
func (p *stubProvider) Name() string { return "Stub" }

func (p *stubProvider) Chat(ctx context.Context, req *provider.ChatRequest) (*provider.ChatResponse, error) {
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return &provider.ChatResponse{Content: "stub reply", FinishReason: "stop"}, nil
}

func (p *stubProvider) HealthCheck(ctx context.Context) error { return nil }

func newTestHandler(t *testing.T, prov provider.Provider) *Handler {
	t.Helper()
	router := provider.NewRouter(zap.NewNop())
	router.Register(prov)

	tb := &agent.Toolbox{Logger: zap.NewNop()}
	stages := tb.Stages()
	exec := agent.NewExecutor(router, "", zap.NewNop())
	pl := pipeline.New(stages, exec, pipeline.KeywordClassifier{},
		pipeline.NewSessions(zap.NewNop()), nil, nil, zap.NewNop())

	return NewHandler(pl, nil, zap.NewNop())
}

func postChat(t *testing.T, h http.Handler, body map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestChatHappyPath(t *testing.T) {
	h := newTestHandler(t, &stubProvider{})
	router := h.Router()

	rec := postChat(t, router, map[string]string{"message": "hello"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp chatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "success" {
		t.Errorf("status = %q", resp.Status)
	}
	if resp.SessionID == "" {
		t.Error("session id not generated for anonymous request")
	}
	if resp.Response != "ASSISTANT_AGENT > stub reply" {
		t.Errorf("response = %q", resp.Response)
	}
	if resp.ConversationID == "" {
		t.Error("conversation id missing")
	}
}

func TestChatSessionContinuity(t *testing.T) {
	h := newTestHandler(t, &stubProvider{})
	router := h.Router()

	rec1 := postChat(t, router, map[string]string{"session_id": "sess-x", "message": "hi"})
	rec2 := postChat(t, router, map[string]string{"session_id": "sess-x", "message": "hi again"})

	var r1, r2 chatResponse
	json.Unmarshal(rec1.Body.Bytes(), &r1)
	json.Unmarshal(rec2.Body.Bytes(), &r2)
	if r1.ConversationID != r2.ConversationID {
		t.Error("conversation id changed across turns of the same session")
	}
}

func TestChatMissingMessage(t *testing.T) {
	h := newTestHandler(t, &stubProvider{})
	rec := postChat(t, h.Router(), map[string]string{"session_id": "s"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestChatTimeoutEvictsSession(t *testing.T) {
	h := newTestHandler(t, &stubProvider{delay: 200 * time.Millisecond})
	h.chatTimeout = 20 * time.Millisecond
	router := h.Router()

	rec := postChat(t, router, map[string]string{"session_id": "slow", "message": "hi"})
	if rec.Code != http.StatusGatewayTimeout {
		t.Fatalf("status = %d, want 504", rec.Code)
	}

	// The next turn must start a fresh conversation.
	h.chatTimeout = ChatTimeout
	fast := postChat(t, router, map[string]string{"session_id": "slow", "message": "hi"})
	var resp chatResponse
	json.Unmarshal(fast.Body.Bytes(), &resp)
	if resp.Status != "success" {
		t.Fatalf("recovery turn failed: %s", fast.Body.String())
	}
	if h.pipeline.Sessions().Len() != 1 {
		t.Errorf("sessions = %d, want 1", h.pipeline.Sessions().Len())
	}
}

func TestReadEndpointsWithoutAuditStore(t *testing.T) {
	h := newTestHandler(t, &stubProvider{})
	router := h.Router()

	for _, path := range []string{
		"/api/sessions",
		"/api/sessions/abc",
		"/api/session-ids",
		"/api/thinking-logs",
		"/api/thinking-logs-by-session-id/abc",
		"/api/thinking-log-ids",
		"/api/reports",
		"/api/heatmap?conversation_id=c&session_id=s",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s: status = %d, want 503", path, rec.Code)
		}
	}
}

func TestHealthCheck(t *testing.T) {
	h := newTestHandler(t, &stubProvider{})
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}
