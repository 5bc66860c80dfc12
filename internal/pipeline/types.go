package pipeline

// State is a node in the routing state machine. Each turn starts at
// StateRouter and ends at StateDone.
type State string

const (
	StateRouter    State = "ROUTER"
	StateScheduler State = "SCHEDULER_AGENT"
	StatePolitical State = "POLITICAL_RISK_AGENT"
	StateTariff    State = "TARIFF_RISK_AGENT"
	StateLogistics State = "LOGISTICS_RISK_AGENT"
	StateReporting State = "REPORTING_AGENT"
	StateAssistant State = "ASSISTANT_AGENT"
	StateDone      State = "DONE"
)
