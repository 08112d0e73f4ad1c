package domain

import "testing"

func TestUserTextConcatenatesOnlyUserTurns(t *testing.T) {
	state := NewConversationState("conv-1", "Dana", []Message{
		{Role: RoleUser, Text: "Hi, I'm looking for a HOUSE"},
		{Role: RoleAssistant, Text: "Great, what's your budget?"},
		{Role: RoleUser, Text: "Around $450k"},
	})

	got := state.UserText()
	want := "hi, i'm looking for a house around $450k"
	if got != want {
		t.Errorf("UserText() = %q, want %q", got, want)
	}
}

func TestUserTextEmptyHistory(t *testing.T) {
	state := NewConversationState("conv-1", "", nil)
	if got := state.UserText(); got != "" {
		t.Errorf("UserText() on empty history = %q, want empty", got)
	}
}

func TestUserTurns(t *testing.T) {
	state := NewConversationState("conv-1", "", []Message{
		{Role: RoleUser, Text: "one"},
		{Role: RoleAssistant, Text: "reply"},
		{Role: RoleUser, Text: "two"},
	})
	if got := state.UserTurns(); got != 2 {
		t.Errorf("UserTurns() = %d, want 2", got)
	}
}

func TestQualifiedIsDerivedFromScore(t *testing.T) {
	tests := []struct {
		name      string
		score     float64
		threshold int
		want      bool
	}{
		{"below threshold", 69.9, 70, false},
		{"at threshold", 70, 70, true},
		{"above threshold", 85, 70, true},
		{"zero score", 0, 70, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := NewConversationState("conv-1", "", nil)
			state.FinancialReadinessScore = tt.score
			if got := state.Qualified(tt.threshold); got != tt.want {
				t.Errorf("Qualified(%d) with score %v = %v, want %v", tt.threshold, tt.score, got, tt.want)
			}
		})
	}
}

func TestAppendMessage(t *testing.T) {
	state := NewConversationState("conv-1", "", nil)
	state.AppendMessage(RoleUser, "hello")
	state.AppendMessage(RoleAssistant, "hi there")

	if len(state.History) != 2 {
		t.Fatalf("history length = %d, want 2", len(state.History))
	}
	if state.History[0].Role != RoleUser || state.History[1].Role != RoleAssistant {
		t.Errorf("unexpected roles: %+v", state.History)
	}
}

func TestNewConversationStateDefaults(t *testing.T) {
	state := NewConversationState("conv-9", "Sam", nil)

	if state.Step != StepBudget {
		t.Errorf("initial step = %q, want %q", state.Step, StepBudget)
	}
	if state.FinancingStatus != FinancingUnknown {
		t.Errorf("initial financing status = %q, want %q", state.FinancingStatus, FinancingUnknown)
	}
	if state.Urgency != UrgencyBrowsing {
		t.Errorf("initial urgency = %q, want %q", state.Urgency, UrgencyBrowsing)
	}
}
