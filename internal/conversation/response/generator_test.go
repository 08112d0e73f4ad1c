package response

import (
	"context"
	"strings"
	"testing"
	"time"

	"buyerbot_backend/internal/config"
	"buyerbot_backend/internal/conversation/domain"
	"buyerbot_backend/platform/apperr"
	"buyerbot_backend/platform/logger"
)

type stubTextGen struct {
	reply string
	err   error
	calls int
	seen  []string
}

func (s *stubTextGen) Generate(_ context.Context, prompt string) (string, error) {
	s.calls++
	s.seen = append(s.seen, prompt)
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func newTestGenerator(gen *stubTextGen) *Generator {
	return NewGenerator(gen, nil,
		config.Retry{MaxRetries: 1, InitialBackoff: time.Millisecond, CallTimeout: time.Second},
		config.Messaging{SoftLimit: 290, HardLimit: 320, MaxInboundLength: 2000},
		logger.New("test"))
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain text", "Sounds great, let's set it up!", "Sounds great, let's set it up!"},
		{"content field", `{"content": "Here are some homes."}`, "Here are some homes."},
		{"text field", `{"text": "Got it, thanks!"}`, "Got it, thanks!"},
		{"nested message", `{"message": {"content": "On it."}}`, "On it."},
		{"openai shape", `{"choices": [{"message": {"content": "Hello!"}}]}`, "Hello!"},
		{"invalid json passes through", `{broken`, `{broken`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.raw); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestLooksStructured(t *testing.T) {
	if !LooksStructured("# Market Update\nPrices rose") {
		t.Error("leading heading should look structured")
	}
	if !LooksStructured("Quick update\n## Details\nmore text") {
		t.Error("early sub-heading should look structured")
	}
	if LooksStructured("Just a normal sentence about homes.") {
		t.Error("plain sentence should not look structured")
	}
}

func TestStripStructure(t *testing.T) {
	text := "# Homes For You\n- 12 Oak St\nI found three homes in your range this morning."
	got := StripStructure(text)
	// The heading is dropped and "12 Oak St" is below the substance floor,
	// so the sentence wins.
	if !strings.Contains(got, "three homes") {
		t.Errorf("StripStructure() = %q", got)
	}
	if strings.ContainsAny(got, "#*") {
		t.Errorf("markers not stripped: %q", got)
	}

	if StripStructure("## Title\n#") != "" {
		t.Error("nothing usable should yield empty")
	}
}

func TestStripHyphens(t *testing.T) {
	got := StripHyphens("pre-approved — ready to go")
	if strings.ContainsAny(got, "-—–") {
		t.Errorf("hyphens remain: %q", got)
	}
	if got != "pre approved ready to go" {
		t.Errorf("StripHyphens() = %q", got)
	}
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("homes for sale ", 40) // 600 chars
	got := Truncate(long, 290, 320)
	if len([]rune(got)) > 320 {
		t.Errorf("hard cap exceeded: %d runes", len([]rune(got)))
	}
	if len([]rune(got)) > 290 {
		t.Errorf("soft limit exceeded: %d runes", len([]rune(got)))
	}
	if strings.HasSuffix(got, " ") {
		t.Errorf("trailing space after truncation: %q", got)
	}

	short := "short reply"
	if Truncate(short, 290, 320) != short {
		t.Error("short text must pass through untouched")
	}
}

func TestGenerateHappyPath(t *testing.T) {
	gen := &stubTextGen{reply: "I found 3 homes under $500k that fit. Want me to send them over?"}
	g := newTestGenerator(gen)

	state := domain.NewConversationState("conv-1", "Dana", []domain.Message{
		{Role: domain.RoleUser, Text: "looking for a 3 bedroom"},
	})
	state.Budget = &domain.BudgetRange{Min: 400000, Max: 500000}

	result := g.Generate(context.Background(), state)

	if result.NextAction != domain.NextActionRespond {
		t.Errorf("nextAction = %q, want respond", result.NextAction)
	}
	if strings.Contains(result.Text, "-") {
		t.Errorf("reply contains hyphen: %q", result.Text)
	}
	if len([]rune(result.Text)) > 320 {
		t.Errorf("reply exceeds hard cap: %q", result.Text)
	}
	if !strings.Contains(gen.seen[0], "budget") && !strings.Contains(gen.seen[0], "$400000") {
		t.Errorf("prompt missing budget context: %q", gen.seen[0])
	}
}

func TestGenerateStructuredReplyIsFlattened(t *testing.T) {
	gen := &stubTextGen{reply: "# Your Matches\n- one\nI pulled three listings that fit your budget perfectly."}
	g := newTestGenerator(gen)

	result := g.Generate(context.Background(), domain.NewConversationState("conv-1", "", nil))

	if strings.Contains(result.Text, "#") {
		t.Errorf("heading survived sanitization: %q", result.Text)
	}
	if result.Text == "" {
		t.Error("reply must never be empty")
	}
}

func TestGenerateFailureUsesRotatingFallback(t *testing.T) {
	gen := &stubTextGen{err: apperr.UpstreamService("llm down", nil)}
	g := newTestGenerator(gen)
	state := domain.NewConversationState("conv-1", "", nil)

	first := g.Generate(context.Background(), state)
	second := g.Generate(context.Background(), state)

	if first.Text == "" || second.Text == "" {
		t.Fatal("fallback reply must never be empty")
	}
	if first.Text == second.Text {
		t.Errorf("fallbacks should rotate, got %q twice", first.Text)
	}
	for _, r := range []Result{first, second} {
		if strings.Contains(r.Text, "-") {
			t.Errorf("fallback contains hyphen: %q", r.Text)
		}
	}
}

func TestToneFollowsTemperature(t *testing.T) {
	state := domain.NewConversationState("conv-1", "", nil)
	if toneFor(state) != "nurturing" {
		t.Errorf("tone without intent = %q, want nurturing", toneFor(state))
	}

	state.Intent = &domain.IntentProfile{Temperature: domain.TempHot}
	if toneFor(state) != "direct" {
		t.Errorf("hot tone = %q, want direct", toneFor(state))
	}

	state.Intent = &domain.IntentProfile{Temperature: domain.TempWarm}
	if toneFor(state) != "consultative" {
		t.Errorf("warm tone = %q, want consultative", toneFor(state))
	}
}
