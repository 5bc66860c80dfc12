package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nidhogg/riskline/internal/auditlog"
	"github.com/nidhogg/riskline/internal/notify"
	"github.com/nidhogg/riskline/internal/provider"
	"github.com/nidhogg/riskline/internal/report"
	"github.com/nidhogg/riskline/internal/risk"
	"github.com/nidhogg/riskline/internal/schedule"
	"github.com/nidhogg/riskline/internal/search"
)

// Toolbox holds the shared dependencies the per-stage tool sets close over.
// Audit and Notifier may be nil; the affected tools degrade to error payloads
// instead of failing the stage.
type Toolbox struct {
	Schedule schedule.Source
	Search   *search.Client
	Reports  *report.Writer
	Notifier *notify.SlackNotifier
	Audit    *auditlog.Store
	Model    string
	Logger   *zap.Logger
}

// SchedulerTools builds the tool set for the schedule analysis stage.
func (t *Toolbox) SchedulerTools() *ToolRegistry {
	reg := NewToolRegistry()
	t.registerThinking(reg)
	t.registerScheduleData(reg)
	t.registerRiskMath(reg)
	return reg
}

// PoliticalTools builds the tool set for the political risk stage.
func (t *Toolbox) PoliticalTools() *ToolRegistry {
	reg := NewToolRegistry()
	t.registerThinking(reg)
	t.registerSearch(reg)
	t.registerPoliticalJSON(reg)
	return reg
}

// TariffTools builds the tool set for the tariff risk stage.
func (t *Toolbox) TariffTools() *ToolRegistry {
	reg := NewToolRegistry()
	t.registerThinking(reg)
	t.registerSearch(reg)
	return reg
}

// LogisticsTools builds the tool set for the logistics risk stage.
func (t *Toolbox) LogisticsTools() *ToolRegistry {
	reg := NewToolRegistry()
	t.registerThinking(reg)
	t.registerSearch(reg)
	return reg
}

// ReportingTools builds the tool set for the consolidated reporting stage.
func (t *Toolbox) ReportingTools() *ToolRegistry {
	reg := NewToolRegistry()
	t.registerThinking(reg)
	t.registerSaveReport(reg)
	return reg
}

// AssistantTools builds the tool set for the general assistant stage.
func (t *Toolbox) AssistantTools() *ToolRegistry {
	reg := NewToolRegistry()
	t.registerThinking(reg)
	return reg
}

// Stages builds all six stages with their tool sets in one call.
func (t *Toolbox) Stages() *StageSet {
	return &StageSet{
		Scheduler: NewSchedulerStage(t.SchedulerTools()),
		Political: NewPoliticalStage(t.PoliticalTools()),
		Tariff:    NewTariffStage(t.TariffTools()),
		Logistics: NewLogisticsStage(t.LogisticsTools()),
		Reporting: NewReportingStage(t.ReportingTools()),
		Assistant: NewAssistantStage(t.AssistantTools()),
	}
}

// StageSet groups the fixed stage roster.
type StageSet struct {
	Scheduler *Stage
	Political *Stage
	Tariff    *Stage
	Logistics *Stage
	Reporting *Stage
	Assistant *Stage
}

func (t *Toolbox) registerThinking(reg *ToolRegistry) {
	reg.Register(provider.Tool{
		Type: "function",
		Function: provider.ToolFunction{
			Name:        "log_agent_thinking",
			Description: "Record a step of your reasoning process in the durable thinking log",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"agent_name":      map[string]string{"type": "string", "description": "Your agent name"},
					"thinking_stage":  map[string]string{"type": "string", "description": "Stage label such as analysis_start, data_review, risk_calculation"},
					"thought_content": map[string]string{"type": "string", "description": "Detailed description of your thoughts at this stage"},
				},
				"required": []string{"agent_name", "thinking_stage", "thought_content"},
			},
		},
	}, func(ctx context.Context, turn Turn, args string) (string, error) {
		var p struct {
			AgentName      string `json:"agent_name"`
			ThinkingStage  string `json:"thinking_stage"`
			ThoughtContent string `json:"thought_content"`
		}
		if err := json.Unmarshal([]byte(args), &p); err != nil {
			return fmt.Sprintf(`{"success":false,"error":%q}`, "parse args: "+err.Error()), nil
		}
		if t.Audit == nil {
			return `{"success":false,"error":"audit store not configured"}`, nil
		}
		err := t.Audit.InsertThinking(ctx, &auditlog.ThinkingEntry{
			AgentName:      p.AgentName,
			ThinkingStage:  p.ThinkingStage,
			ThoughtContent: p.ThoughtContent,
			ConversationID: turn.ConversationID,
			SessionID:      turn.SessionID,
			ModelName:      t.Model,
			UserQuery:      turn.UserQuery,
		})
		if err != nil {
			t.Logger.Warn("thinking log insert failed", zap.Error(err))
			return fmt.Sprintf(`{"success":false,"error":%q}`, err.Error()), nil
		}
		return `{"success":true,"message":"Thinking logged"}`, nil
	})
}

func (t *Toolbox) registerScheduleData(reg *ToolRegistry) {
	reg.Register(provider.Tool{
		Type: "function",
		Function: provider.ToolFunction{
			Name:        "get_schedule_comparison_data",
			Description: "Retrieve all equipment schedule comparison data with computed variances and risk fields",
			Parameters: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
	}, func(ctx context.Context, turn Turn, args string) (string, error) {
		if t.Schedule == nil {
			return `{"error":"schedule source not configured"}`, nil
		}
		items, err := t.Schedule.Fetch(ctx)
		if err != nil {
			t.Logger.Error("schedule fetch failed", zap.Error(err))
			return fmt.Sprintf(`{"error":%q}`, err.Error()), nil
		}
		return schedule.MarshalItems(items), nil
	})
}

func (t *Toolbox) registerRiskMath(reg *ToolRegistry) {
	reg.Register(provider.Tool{
		Type: "function",
		Function: provider.ToolFunction{
			Name:        "calculate_risk_percentage",
			Description: "Calculate the schedule risk percentage from days variance and days until due",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"days_variance":  map[string]string{"type": "integer", "description": "Delivery variance in days, negative means early"},
					"days_until_due": map[string]string{"type": "integer", "description": "Days remaining until the P6 due date"},
				},
				"required": []string{"days_variance", "days_until_due"},
			},
		},
	}, func(ctx context.Context, turn Turn, args string) (string, error) {
		var p struct {
			DaysVariance *int `json:"days_variance"`
			DaysUntilDue *int `json:"days_until_due"`
		}
		// "-1" is the documented error sentinel for this tool; callers treat
		// any negative result as a failed calculation.
		if err := json.Unmarshal([]byte(args), &p); err != nil || p.DaysVariance == nil || p.DaysUntilDue == nil {
			return "-1", nil
		}
		return fmt.Sprintf("%.2f", risk.Percentage(*p.DaysVariance, *p.DaysUntilDue)), nil
	})

	reg.Register(provider.Tool{
		Type: "function",
		Function: provider.ToolFunction{
			Name:        "categorize_risk",
			Description: "Categorize a risk percentage into Low/Medium/High with its point weight",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"risk_percentage": map[string]string{"type": "number", "description": "Risk percentage to categorize"},
				},
				"required": []string{"risk_percentage"},
			},
		},
	}, func(ctx context.Context, turn Turn, args string) (string, error) {
		var p struct {
			RiskPercentage float64 `json:"risk_percentage"`
		}
		if err := json.Unmarshal([]byte(args), &p); err != nil {
			return fmt.Sprintf(`{"error":%q}`, "parse args: "+err.Error()), nil
		}
		return risk.CategorizeJSON(p.RiskPercentage), nil
	})
}

func (t *Toolbox) registerSearch(reg *ToolRegistry) {
	reg.Register(provider.Tool{
		Type: "function",
		Function: provider.ToolFunction{
			Name:        "web_search",
			Description: "Search the web for current news. Returns a JSON list of results with title, source, url and snippet",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"query": map[string]string{"type": "string", "description": "Search query"},
				},
				"required": []string{"query"},
			},
		},
	}, func(ctx context.Context, turn Turn, args string) (string, error) {
		var p struct {
			Query string `json:"query"`
		}
		if err := json.Unmarshal([]byte(args), &p); err != nil || p.Query == "" {
			return `{"error":"missing query"}`, nil
		}
		if t.Search == nil {
			return `{"error":"search client not configured"}`, nil
		}
		results, err := t.Search.Search(ctx, p.Query)
		if err != nil {
			t.Logger.Warn("web search failed", zap.Error(err))
			return fmt.Sprintf(`{"error":%q}`, err.Error()), nil
		}
		return search.MarshalResults(results), nil
	})
}

func (t *Toolbox) registerPoliticalJSON(reg *ToolRegistry) {
	reg.Register(provider.Tool{
		Type: "function",
		Function: provider.ToolFunction{
			Name:        "convert_to_json",
			Description: "Convert a political risk analysis into standardized JSON",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"risk_analysis": map[string]string{"type": "string", "description": "Full political risk analysis text including the markdown table"},
				},
				"required": []string{"risk_analysis"},
			},
		},
	}, func(ctx context.Context, turn Turn, args string) (string, error) {
		var p struct {
			RiskAnalysis string `json:"risk_analysis"`
		}
		if err := json.Unmarshal([]byte(args), &p); err != nil {
			return fmt.Sprintf(`{"error":%q,"political_risks":[]}`, "parse args: "+err.Error()), nil
		}
		return MarshalPoliticalAnalysis(ParsePoliticalAnalysis(p.RiskAnalysis)), nil
	})

	reg.Register(provider.Tool{
		Type: "function",
		Function: provider.ToolFunction{
			Name:        "store_political_json_output",
			Description: "Convert a political risk analysis to JSON and store it in the event log and country risk table",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"risk_analysis": map[string]string{"type": "string", "description": "Full political risk analysis text including the markdown table"},
					"agent_name":    map[string]string{"type": "string", "description": "Your agent name"},
				},
				"required": []string{"risk_analysis", "agent_name"},
			},
		},
	}, func(ctx context.Context, turn Turn, args string) (string, error) {
		var p struct {
			RiskAnalysis string `json:"risk_analysis"`
			AgentName    string `json:"agent_name"`
		}
		if err := json.Unmarshal([]byte(args), &p); err != nil {
			return fmt.Sprintf(`{"error":%q,"message":"Failed to store political risk JSON"}`, err.Error()), nil
		}
		if t.Audit == nil {
			return `{"error":"audit store not configured","message":"Failed to store political risk JSON"}`, nil
		}
		analysis := ParsePoliticalAnalysis(p.RiskAnalysis)
		jsonData := MarshalPoliticalAnalysis(analysis)

		event := &auditlog.EventEntry{
			AgentName:      p.AgentName,
			Action:         "Political Risk JSON Data",
			ResultSummary:  fmt.Sprintf("Structured JSON data with %d political risks", len(analysis.PoliticalRisks)),
			AgentOutput:    jsonData,
			ConversationID: turn.ConversationID,
			SessionID:      turn.SessionID,
		}
		if err := t.Audit.InsertEvent(ctx, event); err != nil {
			t.Logger.Warn("political event insert failed", zap.Error(err))
			return fmt.Sprintf(`{"error":%q,"message":"Failed to store political risk JSON in event log"}`, err.Error()), nil
		}

		rows := make([]auditlog.CountryRisk, 0, len(analysis.PoliticalRisks))
		for _, r := range analysis.PoliticalRisks {
			rows = append(rows, auditlog.CountryRisk{
				ConversationID: turn.ConversationID,
				SessionID:      turn.SessionID,
				Country:        r.Country,
				RiskType:       r.PoliticalType,
				Likelihood:     r.Likelihood,
			})
		}
		if err := t.Audit.InsertCountryRisks(ctx, rows); err != nil {
			t.Logger.Warn("country risk insert failed", zap.Error(err))
		}

		out, _ := json.Marshal(map[string]any{
			"success":  true,
			"message":  "Political risk JSON data stored in agent event log",
			"event_id": event.EventID,
			"risks":    len(analysis.PoliticalRisks),
		})
		return string(out), nil
	})

	reg.Register(provider.Tool{
		Type: "function",
		Function: provider.ToolFunction{
			Name:        "extract_citations",
			Description: "Extract the unique citation list from a political risk analysis table",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"risk_analysis": map[string]string{"type": "string", "description": "Full political risk analysis text including the markdown table"},
				},
				"required": []string{"risk_analysis"},
			},
		},
	}, func(ctx context.Context, turn Turn, args string) (string, error) {
		var p struct {
			RiskAnalysis string `json:"risk_analysis"`
		}
		if err := json.Unmarshal([]byte(args), &p); err != nil {
			return `{"citations":[],"count":0}`, nil
		}
		citations := ExtractCitations(p.RiskAnalysis)
		out, _ := json.Marshal(map[string]any{
			"citations": citations,
			"count":     len(citations),
			"timestamp": time.Now().Format(time.RFC3339),
		})
		return string(out), nil
	})
}

func (t *Toolbox) registerSaveReport(reg *ToolRegistry) {
	reg.Register(provider.Tool{
		Type: "function",
		Function: provider.ToolFunction{
			Name:        "save_report_to_file",
			Description: "Save the complete report to a file and record it. Returns filename, blob_url and report_id",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"report_content": map[string]string{"type": "string", "description": "Full markdown report content"},
					"report_type":    map[string]string{"type": "string", "description": "Report type, defaults to risk_report"},
				},
				"required": []string{"report_content"},
			},
		},
	}, func(ctx context.Context, turn Turn, args string) (string, error) {
		var p struct {
			ReportContent string `json:"report_content"`
			ReportType    string `json:"report_type"`
		}
		if err := json.Unmarshal([]byte(args), &p); err != nil {
			return fmt.Sprintf(`{"error":%q}`, "parse args: "+err.Error()), nil
		}
		if t.Reports == nil {
			return `{"error":"report writer not configured"}`, nil
		}
		saved, err := t.Reports.Save(ctx, turn.ConversationID, turn.SessionID, p.ReportType, p.ReportContent)
		if err != nil {
			t.Logger.Error("report save failed", zap.Error(err))
			return fmt.Sprintf(`{"error":%q}`, err.Error()), nil
		}
		if t.Notifier != nil {
			t.Notifier.ReportGenerated(ctx, saved.Filename, saved.BlobURL, turn.SessionID)
		}
		out, _ := json.Marshal(saved)
		return string(out), nil
	})
}
