package api

import (
	"time"

	"github.com/nidhogg/riskline/internal/auditlog"
)

// The read-side endpoints are pure projections over the audit tables: no
// server state is consulted, so a session remains inspectable after its
// in-memory state is gone.

// SessionMessage is one event-log row in a conversation view.
type SessionMessage struct {
	EventTime   time.Time `json:"event_time"`
	UserQuery   string    `json:"user_query"`
	AgentOutput string    `json:"agent_output"`
	AgentName   string    `json:"agent_name,omitempty"`
	Action      string    `json:"action"`
}

// Conversation groups a conversation's messages with its last activity time.
type Conversation struct {
	ConversationID  string           `json:"conversation_id"`
	LastInteraction time.Time        `json:"last_interaction"`
	Messages        []SessionMessage `json:"messages"`
}

// SessionView is one session with all of its conversations.
type SessionView struct {
	SessionID     string         `json:"session_id"`
	Conversations []Conversation `json:"conversations"`
}

// groupSessions replays event-log rows into per-session conversation views,
// preserving first-seen order of sessions and conversations.
func groupSessions(events []auditlog.EventEntry) []SessionView {
	type convKey struct{ sid, cid string }

	var sessionOrder []string
	sessions := make(map[string][]string) // session id -> conversation order
	convs := make(map[convKey]*Conversation)

	for _, e := range events {
		key := convKey{e.SessionID, e.ConversationID}
		if _, ok := sessions[e.SessionID]; !ok {
			sessionOrder = append(sessionOrder, e.SessionID)
			sessions[e.SessionID] = nil
		}
		c, ok := convs[key]
		if !ok {
			c = &Conversation{
				ConversationID:  e.ConversationID,
				LastInteraction: e.EventTime,
			}
			convs[key] = c
			sessions[e.SessionID] = append(sessions[e.SessionID], e.ConversationID)
		}
		c.Messages = append(c.Messages, SessionMessage{
			EventTime:   e.EventTime,
			UserQuery:   e.UserQuery,
			AgentOutput: e.AgentOutput,
			AgentName:   e.AgentName,
			Action:      e.Action,
		})
		if e.EventTime.After(c.LastInteraction) {
			c.LastInteraction = e.EventTime
		}
	}

	views := make([]SessionView, 0, len(sessionOrder))
	for _, sid := range sessionOrder {
		v := SessionView{SessionID: sid}
		for _, cid := range sessions[sid] {
			v.Conversations = append(v.Conversations, *convs[convKey{sid, cid}])
		}
		views = append(views, v)
	}
	return views
}

// Thought is one thinking-log row in an agent's trace.
type Thought struct {
	ThoughtContent string    `json:"thought_content"`
	ThinkingStage  string    `json:"thinking_stage"`
	StageOutput    string    `json:"thinking_stage_output"`
	CreatedDate    time.Time `json:"created_date"`
}

// AgentThoughts groups one agent's thoughts inside a conversation.
type AgentThoughts struct {
	AgentName       string    `json:"agent_name"`
	FirstAppearance time.Time `json:"first_appearance"`
	Thoughts        []Thought `json:"thoughts"`
}

// ThinkingConversation is one conversation's thinking trace grouped by agent.
type ThinkingConversation struct {
	ConversationID string          `json:"conversation_id"`
	UserQuery      string          `json:"user_query"`
	Agents         []AgentThoughts `json:"agents"`
}

// ThinkingView is one session's complete thinking trace.
type ThinkingView struct {
	SessionID     string                 `json:"session_id"`
	Conversations []ThinkingConversation `json:"conversations"`
}

// groupThinking replays thinking-log rows into per-session views grouped by
// conversation and agent. The conversation's user query is the first
// non-empty one observed.
func groupThinking(entries []auditlog.ThinkingEntry) []ThinkingView {
	type convKey struct{ sid, cid string }
	type agentKey struct{ sid, cid, agent string }

	var sessionOrder []string
	convOrder := make(map[string][]string)
	agentOrder := make(map[convKey][]string)
	convs := make(map[convKey]*ThinkingConversation)
	agents := make(map[agentKey]*AgentThoughts)

	for _, e := range entries {
		ck := convKey{e.SessionID, e.ConversationID}
		if _, ok := convOrder[e.SessionID]; !ok {
			sessionOrder = append(sessionOrder, e.SessionID)
			convOrder[e.SessionID] = nil
		}
		c, ok := convs[ck]
		if !ok {
			c = &ThinkingConversation{
				ConversationID: e.ConversationID,
				UserQuery:      e.UserQuery,
			}
			convs[ck] = c
			convOrder[e.SessionID] = append(convOrder[e.SessionID], e.ConversationID)
		}
		if c.UserQuery == "" && e.UserQuery != "" {
			c.UserQuery = e.UserQuery
		}

		ak := agentKey{e.SessionID, e.ConversationID, e.AgentName}
		a, ok := agents[ak]
		if !ok {
			a = &AgentThoughts{
				AgentName:       e.AgentName,
				FirstAppearance: e.CreatedDate,
			}
			agents[ak] = a
			agentOrder[ck] = append(agentOrder[ck], e.AgentName)
		}
		a.Thoughts = append(a.Thoughts, Thought{
			ThoughtContent: e.ThoughtContent,
			ThinkingStage:  e.ThinkingStage,
			StageOutput:    e.StageOutput,
			CreatedDate:    e.CreatedDate,
		})
	}

	views := make([]ThinkingView, 0, len(sessionOrder))
	for _, sid := range sessionOrder {
		v := ThinkingView{SessionID: sid}
		for _, cid := range convOrder[sid] {
			ck := convKey{sid, cid}
			conv := *convs[ck]
			for _, name := range agentOrder[ck] {
				conv.Agents = append(conv.Agents, *agents[agentKey{sid, cid, name}])
			}
			v.Conversations = append(v.Conversations, conv)
		}
		views = append(views, v)
	}
	return views
}

// SessionFirstQuery pairs a session with the first user query seen in its
// thinking log.
type SessionFirstQuery struct {
	SessionID  string `json:"session_id"`
	FirstQuery string `json:"first_query"`
}

// firstQueries collapses thinking-log rows to one row per session, keeping
// the first user query encountered in input order.
func firstQueries(entries []auditlog.ThinkingEntry) []SessionFirstQuery {
	seen := make(map[string]bool)
	var out []SessionFirstQuery
	for _, e := range entries {
		if e.UserQuery == "" || seen[e.SessionID] {
			continue
		}
		seen[e.SessionID] = true
		out = append(out, SessionFirstQuery{SessionID: e.SessionID, FirstQuery: e.UserQuery})
	}
	return out
}
