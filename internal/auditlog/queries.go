package auditlog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// LogFilter narrows thinking-log reads. Zero values mean "no filter".
type LogFilter struct {
	ConversationID string
	SessionID      string
	AgentName      string
	Limit          int
}

// ThinkingLogs retrieves thinking entries matching the filter, newest first.
func (s *Store) ThinkingLogs(ctx context.Context, f LogFilter) ([]ThinkingEntry, error) {
	if f.Limit <= 0 {
		f.Limit = 100
	}

	query := `
		SELECT agent_name, thinking_stage, thought_content, thinking_stage_output,
		       agent_output, conversation_id, session_id, model_deployment_name,
		       COALESCE(user_query, ''), status, created_date
		FROM dim_agent_thinking_log
		WHERE 1=1`
	var args []interface{}
	if f.ConversationID != "" {
		args = append(args, f.ConversationID)
		query += fmt.Sprintf(" AND conversation_id = $%d", len(args))
	}
	if f.SessionID != "" {
		args = append(args, f.SessionID)
		query += fmt.Sprintf(" AND session_id = $%d", len(args))
	}
	if f.AgentName != "" {
		args = append(args, f.AgentName)
		query += fmt.Sprintf(" AND agent_name = $%d", len(args))
	}
	args = append(args, f.Limit)
	query += fmt.Sprintf(" ORDER BY created_date DESC LIMIT $%d", len(args))

	var entries []ThinkingEntry
	err := Retry(ctx, s.logger, "query thinking logs", func(ctx context.Context) error {
		rows, err := s.db.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		entries = entries[:0]
		for rows.Next() {
			var e ThinkingEntry
			if err := rows.Scan(&e.AgentName, &e.ThinkingStage, &e.ThoughtContent,
				&e.StageOutput, &e.AgentOutput, &e.ConversationID, &e.SessionID,
				&e.ModelName, &e.UserQuery, &e.Status, &e.CreatedDate); err != nil {
				return err
			}
			entries = append(entries, e)
		}
		return rows.Err()
	})
	return entries, err
}

// ThinkingLogsBySession retrieves a session's thinking entries in insertion order.
func (s *Store) ThinkingLogsBySession(ctx context.Context, sessionID string) ([]ThinkingEntry, error) {
	var entries []ThinkingEntry
	err := Retry(ctx, s.logger, "query session thinking logs", func(ctx context.Context) error {
		rows, err := s.db.Query(ctx, `
			SELECT agent_name, thinking_stage, thought_content, thinking_stage_output,
			       agent_output, conversation_id, session_id, model_deployment_name,
			       COALESCE(user_query, ''), status, created_date
			FROM dim_agent_thinking_log
			WHERE session_id = $1
			ORDER BY created_date ASC`, sessionID)
		if err != nil {
			return err
		}
		defer rows.Close()
		entries = entries[:0]
		for rows.Next() {
			var e ThinkingEntry
			if err := rows.Scan(&e.AgentName, &e.ThinkingStage, &e.ThoughtContent,
				&e.StageOutput, &e.AgentOutput, &e.ConversationID, &e.SessionID,
				&e.ModelName, &e.UserQuery, &e.Status, &e.CreatedDate); err != nil {
				return err
			}
			entries = append(entries, e)
		}
		return rows.Err()
	})
	return entries, err
}

func scanEvents(rows pgx.Rows) ([]EventEntry, error) {
	var events []EventEntry
	for rows.Next() {
		var e EventEntry
		if err := rows.Scan(&e.EventID, &e.AgentName, &e.EventTime, &e.Action,
			&e.ResultSummary, &e.UserQuery, &e.AgentOutput,
			&e.ConversationID, &e.SessionID); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

const eventColumns = `event_id, agent_name, event_time, action,
	COALESCE(result_summary, ''), COALESCE(user_query, ''),
	COALESCE(agent_output, ''), conversation_id, session_id`

// Events retrieves recent event entries across all sessions, newest first.
func (s *Store) Events(ctx context.Context, limit int) ([]EventEntry, error) {
	if limit <= 0 {
		limit = 500
	}
	var events []EventEntry
	err := Retry(ctx, s.logger, "query events", func(ctx context.Context) error {
		rows, err := s.db.Query(ctx,
			`SELECT `+eventColumns+` FROM dim_agent_event_log
			 ORDER BY event_time DESC LIMIT $1`, limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		events, err = scanEvents(rows)
		return err
	})
	return events, err
}

// EventsBySession retrieves one session's events in insertion order.
func (s *Store) EventsBySession(ctx context.Context, sessionID string) ([]EventEntry, error) {
	var events []EventEntry
	err := Retry(ctx, s.logger, "query session events", func(ctx context.Context) error {
		rows, err := s.db.Query(ctx,
			`SELECT `+eventColumns+` FROM dim_agent_event_log
			 WHERE session_id = $1 ORDER BY event_time ASC`, sessionID)
		if err != nil {
			return err
		}
		defer rows.Close()
		events, err = scanEvents(rows)
		return err
	})
	return events, err
}

// SessionSummary pairs a session with its first user query.
type SessionSummary struct {
	SessionID   string `json:"session_id"`
	UserQuery   string `json:"user_query"`
	SessionDate string `json:"session_date"`
}

// SessionSummaries returns each session's first user query and date, newest
// session first.
func (s *Store) SessionSummaries(ctx context.Context) ([]SessionSummary, error) {
	var summaries []SessionSummary
	err := Retry(ctx, s.logger, "query session summaries", func(ctx context.Context) error {
		rows, err := s.db.Query(ctx, `
			SELECT DISTINCT ON (session_id) session_id, user_query,
			       to_char(event_time, 'YYYY-MM-DD"T"HH24:MI:SS') AS session_date
			FROM dim_agent_event_log
			WHERE user_query IS NOT NULL AND user_query <> ''
			ORDER BY session_id, event_time ASC`)
		if err != nil {
			return err
		}
		defer rows.Close()
		summaries = summaries[:0]
		for rows.Next() {
			var sum SessionSummary
			if err := rows.Scan(&sum.SessionID, &sum.UserQuery, &sum.SessionDate); err != nil {
				return err
			}
			summaries = append(summaries, sum)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	// Newest first by date.
	for i, j := 0, len(summaries)-1; i < j; i, j = i+1, j-1 {
		summaries[i], summaries[j] = summaries[j], summaries[i]
	}
	return summaries, nil
}

// Reports returns report records, newest first.
func (s *Store) Reports(ctx context.Context) ([]ReportRecord, error) {
	var reports []ReportRecord
	err := Retry(ctx, s.logger, "query reports", func(ctx context.Context) error {
		rows, err := s.db.Query(ctx, `
			SELECT report_id, session_id, conversation_id, filename, blob_url,
			       report_type, created_date
			FROM fact_risk_report
			ORDER BY created_date DESC`)
		if err != nil {
			return err
		}
		defer rows.Close()
		reports = reports[:0]
		for rows.Next() {
			var r ReportRecord
			if err := rows.Scan(&r.ReportID, &r.SessionID, &r.ConversationID,
				&r.Filename, &r.BlobURL, &r.ReportType, &r.CreatedDate); err != nil {
				return err
			}
			reports = append(reports, r)
		}
		return rows.Err()
	})
	return reports, err
}

// HeatmapRow is one country's aggregated risk for a conversation.
type HeatmapRow struct {
	Country     string `json:"country"`
	AverageRisk string `json:"average_risk"`
	Breakdown   string `json:"breakdown"`
}

// Heatmap calls the country-risk aggregation function. RPC-style reads share
// the same retry contract as inserts.
func (s *Store) Heatmap(ctx context.Context, conversationID, sessionID string) ([]HeatmapRow, error) {
	var result []HeatmapRow
	err := Retry(ctx, s.logger, "heatmap rpc", func(ctx context.Context) error {
		rows, err := s.db.Query(ctx,
			`SELECT country, average_risk, breakdown
			 FROM get_country_risk_heatmap_data($1, $2)`,
			conversationID, sessionID)
		if err != nil {
			return err
		}
		defer rows.Close()
		result = result[:0]
		for rows.Next() {
			var h HeatmapRow
			if err := rows.Scan(&h.Country, &h.AverageRisk, &h.Breakdown); err != nil {
				return err
			}
			result = append(result, h)
		}
		return rows.Err()
	})
	return result, err
}
