package pipeline

import (
	"strings"

	"github.com/nidhogg/riskline/internal/provider"
)

// Classifier decides routing targets from conversation text.
type Classifier interface {
	// First picks the initial target from the user's message. The pipeline
	// redirects every risk target through the scheduler for baseline data;
	// First reports intent, not the next hop.
	First(message string) State
	// AfterScheduler picks the follow-up stage once the scheduler has run,
	// re-reading the latest user message in the transcript.
	AfterScheduler(transcript []provider.Message) State
}

// KeywordClassifier routes on case-insensitive substring matches. Precedence
// is fixed: political beats tariff beats logistics beats schedule.
type KeywordClassifier struct{}

// First classifies the raw user message.
func (KeywordClassifier) First(message string) State {
	m := strings.ToLower(message)
	switch {
	case strings.Contains(m, "political"):
		return StatePolitical
	case strings.Contains(m, "tariff"):
		return StateTariff
	case strings.Contains(m, "logistics"), strings.Contains(m, "shipping"):
		return StateLogistics
	case strings.Contains(m, "schedule"), strings.Contains(m, "risk"):
		return StateScheduler
	default:
		return StateAssistant
	}
}

// AfterScheduler scans the transcript backward for the latest user message
// and classifies it with the second-pass keyword set. "logistic" matches the
// singular here, and "report" routes straight to the reporting stage, which
// the first pass never does: a "report" query without a risk keyword lands
// on the assistant instead of here. A bare schedule query ends the turn
// after the scheduler.
func (KeywordClassifier) AfterScheduler(transcript []provider.Message) State {
	for i := len(transcript) - 1; i >= 0; i-- {
		if transcript[i].Role != "user" {
			continue
		}
		m := strings.ToLower(transcript[i].Content)
		switch {
		case strings.Contains(m, "political"):
			return StatePolitical
		case strings.Contains(m, "tariff"):
			return StateTariff
		case strings.Contains(m, "logistic"), strings.Contains(m, "shipping"):
			return StateLogistics
		case strings.Contains(m, "report"):
			return StateReporting
		}
		return StateDone
	}
	return StateDone
}
