package pipeline

import (
	"testing"

	"go.uber.org/zap"
)

func TestSessionsGetOrCreateStable(t *testing.T) {
	s := NewSessions(zap.NewNop())

	conv1, transcript := s.GetOrCreate("sess-a")
	if conv1 == "" {
		t.Fatal("empty conversation id")
	}
	if len(transcript) != 0 {
		t.Errorf("new session transcript = %d messages, want 0", len(transcript))
	}

	conv2, _ := s.GetOrCreate("sess-a")
	if conv2 != conv1 {
		t.Errorf("conversation id changed across turns: %s vs %s", conv1, conv2)
	}

	convB, _ := s.GetOrCreate("sess-b")
	if convB == conv1 {
		t.Error("distinct sessions share a conversation id")
	}
}

func TestSessionsAppendTurn(t *testing.T) {
	s := NewSessions(zap.NewNop())
	s.GetOrCreate("sess-a")
	s.AppendTurn("sess-a", "question", "SCHEDULER_AGENT > answer")

	_, transcript := s.GetOrCreate("sess-a")
	if len(transcript) != 2 {
		t.Fatalf("transcript = %d messages, want 2", len(transcript))
	}
	if transcript[0].Role != "user" || transcript[0].Content != "question" {
		t.Errorf("first message = %+v", transcript[0])
	}
	if transcript[1].Role != "assistant" || transcript[1].Content != "SCHEDULER_AGENT > answer" {
		t.Errorf("second message = %+v", transcript[1])
	}

	// The returned transcript is a copy; mutating it must not leak back.
	transcript[0].Content = "mutated"
	_, again := s.GetOrCreate("sess-a")
	if again[0].Content != "question" {
		t.Error("transcript copy leaked mutation into session state")
	}
}

func TestSessionsEvictResetsConversation(t *testing.T) {
	s := NewSessions(zap.NewNop())
	conv1, _ := s.GetOrCreate("sess-a")
	s.AppendTurn("sess-a", "q", "a")

	s.Evict("sess-a")

	conv2, transcript := s.GetOrCreate("sess-a")
	if conv2 == conv1 {
		t.Error("evicted session kept its conversation id")
	}
	if len(transcript) != 0 {
		t.Errorf("evicted session kept %d messages", len(transcript))
	}
}

func TestSessionsClearAll(t *testing.T) {
	s := NewSessions(zap.NewNop())
	s.GetOrCreate("a")
	s.GetOrCreate("b")
	if s.Len() != 2 {
		t.Fatalf("len = %d, want 2", s.Len())
	}
	s.ClearAll()
	if s.Len() != 0 {
		t.Errorf("len after clear = %d, want 0", s.Len())
	}
}

func TestSessionsAppendToUnknownSessionIsNoop(t *testing.T) {
	s := NewSessions(zap.NewNop())
	s.AppendTurn("ghost", "q", "a")
	if s.Len() != 0 {
		t.Error("append to unknown session created state")
	}
}
