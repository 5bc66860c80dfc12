package agent

import "time"

// Stage is one fixed analysis persona in the pipeline: a name, its system
// instructions and the tool set it may call. Stages are built once at
// startup and shared across turns.
type Stage struct {
	Name         string
	Action       string
	Instructions string
	Tools        *ToolRegistry
}

// StepType identifies the kind of trace step.
type StepType string

const (
	StepReasoning  StepType = "reasoning"
	StepToolCall   StepType = "tool_call"
	StepToolResult StepType = "tool_result"
	StepResponse   StepType = "response"
)

// Trace records the tool-loop steps of one stage execution. It is kept for
// structured logging; durable thinking records go through the
// log_agent_thinking tool the stage itself calls.
type Trace struct {
	Stage     string        `json:"stage"`
	Steps     []TraceStep   `json:"steps"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// TraceStep is a single step in the trace.
type TraceStep struct {
	Type       StepType  `json:"type"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	TokensUsed int       `json:"tokens_used,omitempty"`
}

// NewSchedulerStage builds the schedule analysis stage.
func NewSchedulerStage(tools *ToolRegistry) *Stage {
	return &Stage{
		Name:         SchedulerAgent,
		Action:       "Generated schedule analysis",
		Instructions: schedulerInstructions,
		Tools:        tools,
	}
}

// NewPoliticalStage builds the political risk stage.
func NewPoliticalStage(tools *ToolRegistry) *Stage {
	return &Stage{
		Name:         PoliticalRiskAgent,
		Action:       "Generated political risk analysis",
		Instructions: politicalInstructions,
		Tools:        tools,
	}
}

// NewTariffStage builds the tariff risk stage.
func NewTariffStage(tools *ToolRegistry) *Stage {
	return &Stage{
		Name:         TariffRiskAgent,
		Action:       "Generated tariff risk analysis",
		Instructions: tariffInstructions,
		Tools:        tools,
	}
}

// NewLogisticsStage builds the logistics risk stage.
func NewLogisticsStage(tools *ToolRegistry) *Stage {
	return &Stage{
		Name:         LogisticsRiskAgent,
		Action:       "Generated logistics risk analysis",
		Instructions: logisticsInstructions,
		Tools:        tools,
	}
}

// NewReportingStage builds the consolidated reporting stage.
func NewReportingStage(tools *ToolRegistry) *Stage {
	return &Stage{
		Name:         ReportingAgent,
		Action:       "Generated consolidated report",
		Instructions: reportingInstructions,
		Tools:        tools,
	}
}

// NewAssistantStage builds the general assistant stage.
func NewAssistantStage(tools *ToolRegistry) *Stage {
	return &Stage{
		Name:         AssistantAgent,
		Action:       "Generated assistant response",
		Instructions: assistantInstructions,
		Tools:        tools,
	}
}
