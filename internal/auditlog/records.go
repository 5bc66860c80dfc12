package auditlog

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ThinkingEntry is one append-only record of an agent's reasoning at a stage.
// Entries are never updated or deleted.
type ThinkingEntry struct {
	AgentName      string    `json:"agent_name"`
	ThinkingStage  string    `json:"thinking_stage"`
	ThoughtContent string    `json:"thought_content"`
	StageOutput    string    `json:"thinking_stage_output"`
	AgentOutput    string    `json:"agent_output"`
	ConversationID string    `json:"conversation_id"`
	SessionID      string    `json:"session_id"`
	ModelName      string    `json:"model_deployment_name"`
	UserQuery      string    `json:"user_query"`
	Status         string    `json:"status"`
	CreatedDate    time.Time `json:"created_date"`
}

// EventEntry records one stage's action and full output; read APIs replay
// these to reconstruct sessions and conversations.
type EventEntry struct {
	EventID        string    `json:"event_id"`
	AgentName      string    `json:"agent_name"`
	EventTime      time.Time `json:"event_time"`
	Action         string    `json:"action"`
	ResultSummary  string    `json:"result_summary"`
	UserQuery      string    `json:"user_query"`
	AgentOutput    string    `json:"agent_output"`
	ConversationID string    `json:"conversation_id"`
	SessionID      string    `json:"session_id"`
}

// ReportRecord is the reporting stage's terminal artifact, written exactly
// once per reporting invocation that completes.
type ReportRecord struct {
	ReportID       string    `json:"report_id"`
	SessionID      string    `json:"session_id"`
	ConversationID string    `json:"conversation_id"`
	Filename       string    `json:"filename"`
	BlobURL        string    `json:"blob_url"`
	ReportType     string    `json:"report_type"`
	CreatedDate    time.Time `json:"created_date"`
}

// CountryRisk is one structured political-risk row extracted from a risk
// stage's output, feeding the heatmap aggregation.
type CountryRisk struct {
	ConversationID string `json:"conversation_id"`
	SessionID      string `json:"session_id"`
	Country        string `json:"country"`
	RiskType       string `json:"risk_type"`
	Likelihood     int    `json:"likelihood"`
}

// InsertThinking persists a thinking-log entry with the uniform retry
// contract. Free-text fields are truncated before write.
func (s *Store) InsertThinking(ctx context.Context, e *ThinkingEntry) error {
	if e.ConversationID == "" {
		e.ConversationID = uuid.New().String()
	}
	if e.Status == "" {
		e.Status = "success"
	}
	if e.CreatedDate.IsZero() {
		e.CreatedDate = time.Now()
	}
	thought := Truncate(e.ThoughtContent)
	stageOut := Truncate(e.StageOutput)
	agentOut := Truncate(e.AgentOutput)

	return Retry(ctx, s.logger, "insert thinking log", func(ctx context.Context) error {
		_, err := s.db.Exec(ctx, `
			INSERT INTO dim_agent_thinking_log
				(agent_name, thinking_stage, thought_content, thinking_stage_output,
				 agent_output, conversation_id, session_id, model_deployment_name,
				 user_query, status, created_date)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			e.AgentName, e.ThinkingStage, thought, stageOut, agentOut,
			e.ConversationID, e.SessionID, e.ModelName, e.UserQuery,
			e.Status, e.CreatedDate,
		)
		return err
	})
}

// InsertEvent persists an event-log entry with the uniform retry contract.
func (s *Store) InsertEvent(ctx context.Context, e *EventEntry) error {
	if e.EventID == "" {
		e.EventID = uuid.New().String()
	}
	if e.ConversationID == "" {
		e.ConversationID = uuid.New().String()
	}
	if e.EventTime.IsZero() {
		e.EventTime = time.Now()
	}
	output := Truncate(e.AgentOutput)

	return Retry(ctx, s.logger, "insert event log", func(ctx context.Context) error {
		_, err := s.db.Exec(ctx, `
			INSERT INTO dim_agent_event_log
				(event_id, agent_name, event_time, action, result_summary,
				 user_query, agent_output, conversation_id, session_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			e.EventID, e.AgentName, e.EventTime, e.Action, e.ResultSummary,
			e.UserQuery, output, e.ConversationID, e.SessionID,
		)
		return err
	})
}

// InsertReport persists a report record with the uniform retry contract.
func (s *Store) InsertReport(ctx context.Context, r *ReportRecord) error {
	if r.ReportID == "" {
		r.ReportID = uuid.New().String()
	}
	if r.CreatedDate.IsZero() {
		r.CreatedDate = time.Now()
	}

	return Retry(ctx, s.logger, "insert report record", func(ctx context.Context) error {
		_, err := s.db.Exec(ctx, `
			INSERT INTO fact_risk_report
				(report_id, session_id, conversation_id, filename, blob_url,
				 report_type, created_date)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			r.ReportID, r.SessionID, r.ConversationID, r.Filename, r.BlobURL,
			r.ReportType, r.CreatedDate,
		)
		return err
	})
}

// InsertCountryRisks persists extracted per-country risk rows in one batch.
func (s *Store) InsertCountryRisks(ctx context.Context, rows []CountryRisk) error {
	if len(rows) == 0 {
		return nil
	}
	return Retry(ctx, s.logger, "insert country risks", func(ctx context.Context) error {
		for _, r := range rows {
			_, err := s.db.Exec(ctx, `
				INSERT INTO dim_country_risk
					(conversation_id, session_id, country, risk_type, likelihood, created_date)
				VALUES ($1, $2, $3, $4, $5, now())`,
				r.ConversationID, r.SessionID, r.Country, r.RiskType, r.Likelihood,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}
