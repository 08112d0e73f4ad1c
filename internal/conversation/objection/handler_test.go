package objection

import (
	"strings"
	"testing"

	"buyerbot_backend/internal/conversation/domain"
	"buyerbot_backend/internal/conversation/finance"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	h, err := NewHandler()
	if err != nil {
		t.Fatalf("NewHandler() error: %v", err)
	}
	return h
}

func TestHandleNoObjectionIsNoOp(t *testing.T) {
	h := newTestHandler(t)
	state := domain.NewConversationState("conv-1", "", nil)

	if _, ok := h.Handle(state, nil); ok {
		t.Error("expected no-op when no objection is pending")
	}
}

func TestHandleRecognizedObjection(t *testing.T) {
	h := newTestHandler(t)
	state := domain.NewConversationState("conv-1", "", nil)
	state.PendingObjection = domain.ObjectionTiming

	result, ok := h.Handle(state, nil)
	if !ok {
		t.Fatal("expected a handled objection")
	}
	if result.Record.Type != domain.ObjectionTiming {
		t.Errorf("record type = %q, want %q", result.Record.Type, domain.ObjectionTiming)
	}
	if result.Record.Approach == "" || len(result.Record.TalkingPoints) == 0 {
		t.Errorf("strategy incomplete: %+v", result.Record)
	}
	if result.Step != domain.StepObjectionHandling {
		t.Errorf("step = %q, want %q", result.Step, domain.StepObjectionHandling)
	}
	if result.Record.HandledAt.IsZero() {
		t.Error("record must be timestamped")
	}
}

func TestHandleUnrecognizedFallsBackToDefault(t *testing.T) {
	h := newTestHandler(t)
	state := domain.NewConversationState("conv-1", "", nil)
	state.PendingObjection = domain.ObjectionType("haunted_house")

	result, ok := h.Handle(state, nil)
	if !ok {
		t.Fatal("expected the default strategy")
	}
	if result.Record.Approach != h.playbook.Default.Approach {
		t.Errorf("approach = %q, want default", result.Record.Approach)
	}
}

func TestPriceObjectionGetsPaymentTalkingPoint(t *testing.T) {
	h := newTestHandler(t)
	state := domain.NewConversationState("conv-1", "", nil)
	state.PendingObjection = domain.ObjectionPriceShock

	affordability := &finance.Affordability{Price: 500000, TotalMonthly: 3358}

	result, ok := h.Handle(state, affordability)
	if !ok {
		t.Fatal("expected a handled objection")
	}

	last := result.Record.TalkingPoints[len(result.Record.TalkingPoints)-1]
	if !strings.Contains(last, "3,358") {
		t.Errorf("expected payment talking point, got %q", last)
	}

	// Without affordability, no numeric point is appended.
	plain, _ := h.Handle(state, nil)
	if len(plain.Record.TalkingPoints) != len(result.Record.TalkingPoints)-1 {
		t.Errorf("talking point counts: with=%d without=%d",
			len(result.Record.TalkingPoints), len(plain.Record.TalkingPoints))
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		message string
		want    domain.ObjectionType
	}{
		{"That's way too expensive for us", domain.ObjectionPriceShock},
		{"I need to talk to my wife first", domain.ObjectionSharedDecision},
		{"It's just not the right time", domain.ObjectionTiming},
		{"There are so many options, I'm overwhelmed", domain.ObjectionAnalysisParalysis},
		{"just curious what's out there", domain.ObjectionLowCommitment},
		{"Can we see the one on Oak Street?", domain.ObjectionNone},
	}

	for _, tt := range tests {
		if got := Detect(tt.message); got != tt.want {
			t.Errorf("Detect(%q) = %q, want %q", tt.message, got, tt.want)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{500, "500"},
		{3358, "3,358"},
		{500000, "500,000"},
		{1250000, "1,250,000"},
	}
	for _, tt := range tests {
		if got := formatAmount(tt.in); got != tt.want {
			t.Errorf("formatAmount(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
