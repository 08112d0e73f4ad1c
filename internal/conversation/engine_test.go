package conversation

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"buyerbot_backend/internal/config"
	"buyerbot_backend/internal/conversation/domain"
	"buyerbot_backend/internal/conversation/finance"
	"buyerbot_backend/internal/conversation/intent"
	"buyerbot_backend/internal/conversation/matching"
	"buyerbot_backend/internal/conversation/objection"
	"buyerbot_backend/internal/conversation/optout"
	"buyerbot_backend/internal/conversation/ports"
	"buyerbot_backend/internal/conversation/response"
	"buyerbot_backend/internal/resilience"
	"buyerbot_backend/platform/apperr"
	"buyerbot_backend/platform/events"
	"buyerbot_backend/platform/logger"

	"github.com/google/uuid"
)

// ---- fakes ----

type stubTextGen struct {
	mu      sync.Mutex
	reply   string
	err     error
	calls   int
	prompts []string
}

func (s *stubTextGen) Generate(_ context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.prompts = append(s.prompts, prompt)
	return s.reply, s.err
}

type stubFinder struct {
	mu      sync.Mutex
	matches []domain.PropertyMatch
	err     error
	calls   int
}

func (s *stubFinder) Find(_ context.Context, _ ports.PropertyQuery) ([]domain.PropertyMatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.matches, nil
}

type memGate struct {
	mu       sync.Mutex
	optedOut map[string]bool
	paused   map[string]string
}

func newMemGate() *memGate {
	return &memGate{optedOut: map[string]bool{}, paused: map[string]string{}}
}

func (g *memGate) IsOptedOut(_ context.Context, id string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.optedOut[id], nil
}

func (g *memGate) MarkOptedOut(_ context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.optedOut[id] = true
	return nil
}

func (g *memGate) IsPaused(_ context.Context, id string) (bool, string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	reason, ok := g.paused[id]
	return ok, reason, nil
}

func (g *memGate) Pause(_ context.Context, id, reason string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.paused[id] = reason
	return nil
}

type recordingCRM struct {
	mu    sync.Mutex
	tags  map[string][]string
	notes map[string][]string
}

func newRecordingCRM() *recordingCRM {
	return &recordingCRM{tags: map[string][]string{}, notes: map[string][]string{}}
}

func (c *recordingCRM) AddTags(_ context.Context, id string, tags []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tags[id] = append(c.tags[id], tags...)
	return nil
}

func (c *recordingCRM) AddNote(_ context.Context, id, note string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notes[id] = append(c.notes[id], note)
	return nil
}

func (c *recordingCRM) hasTag(id, tag string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.tags[id] {
		if t == tag {
			return true
		}
	}
	return false
}

func (c *recordingCRM) hasNoteContaining(id, substr string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, n := range c.notes[id] {
		if strings.Contains(n, substr) {
			return true
		}
	}
	return false
}

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *recordingBus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.events))
	for i, e := range b.events {
		out[i] = e.EventName()
	}
	return out
}

func (b *recordingBus) has(name string) bool {
	for _, n := range b.names() {
		if n == name {
			return true
		}
	}
	return false
}

type memTicketStore struct {
	mu      sync.Mutex
	tickets []*resilience.Ticket
	audits  int
}

func (s *memTicketStore) SaveTicket(_ context.Context, t *resilience.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickets = append(s.tickets, t)
	return nil
}

func (s *memTicketStore) SaveAuditRecord(_ context.Context, _ *resilience.Ticket, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audits++
	return nil
}

type noopQueue struct{}

func (noopQueue) EnqueueTicketRedelivery(context.Context, uuid.UUID) error { return nil }

type noopNotifier struct{}

func (noopNotifier) NotifyCompliance(context.Context, *resilience.Ticket, string) error { return nil }

type recordingScheduler struct {
	mu    sync.Mutex
	calls []domain.Temperature
}

func (s *recordingScheduler) ScheduleFollowUp(_ context.Context, _ string, temp domain.Temperature) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, temp)
	return nil
}

func (s *recordingScheduler) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// ---- harness ----

type testHarness struct {
	engine    *Engine
	gen       *stubTextGen
	finder    *stubFinder
	gate      *memGate
	crm       *recordingCRM
	bus       *recordingBus
	tickets   *memTicketStore
	scheduler *recordingScheduler
}

func testEngineConfig() *config.Config {
	return &config.Config{
		Scoring: config.Scoring{
			FinancialWeight:   0.40,
			UrgencyWeight:     0.35,
			EngagementWeight:  0.25,
			HotThreshold:      75,
			WarmThreshold:     50,
			LukewarmThreshold: 35,
			ColdThreshold:     20,
			QualifyThreshold:  70,
			HotPathThreshold:  80,
			BriefThreshold:    80,
		},
		Finance: config.Finance{
			AnnualRate:        0.068,
			TermYears:         30,
			DownPaymentRate:   0.20,
			MonthlyTaxRate:    0.0012,
			MonthlyInsurance:  150,
			ShorthandMinValue: 100,
			ShorthandMaxValue: 1000,
			BudgetMinFraction: 0.8,
		},
		Messaging: config.Messaging{SoftLimit: 290, HardLimit: 320, MaxInboundLength: 2000},
		Retry: config.Retry{
			MaxRetries:     2,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     5 * time.Millisecond,
			JitterFactor:   0.2,
			CallTimeout:    time.Second,
		},
		FollowUp: config.FollowUp{HotDelay: time.Hour, WarmDelay: 24 * time.Hour, DefaultDelay: 72 * time.Hour},
	}
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()
	cfg := testEngineConfig()
	log := logger.New("test")

	gen := &stubTextGen{reply: "Sounds great, happy to help you find the right place."}
	finder := &stubFinder{matches: []domain.PropertyMatch{
		{ID: "l1", Address: "12 Oak St", Price: 540000, Bedrooms: 4, Bathrooms: 2.5, Score: 0.91},
		{ID: "l2", Address: "48 Elm Ave", Price: 575000, Bedrooms: 4, Bathrooms: 3, Score: 0.84},
	}}
	gate := newMemGate()
	crm := newRecordingCRM()
	bus := &recordingBus{}
	tickets := &memTicketStore{}
	scheduler := &recordingScheduler{}

	objections, err := objection.NewHandler()
	if err != nil {
		t.Fatalf("objection handler: %v", err)
	}

	escalator := resilience.NewEscalator(crm, bus, tickets, noopQueue{}, log)
	compliance := resilience.NewComplianceEscalator(crm, bus, tickets, noopNotifier{}, gate, log)

	engine := NewEngine(
		cfg,
		intent.NewScorer(cfg.Scoring),
		finance.NewAssessor(cfg.Finance),
		objections,
		matching.NewAdapter(finder, bus, cfg.Retry, log),
		response.NewGenerator(gen, nil, cfg.Retry, cfg.Messaging, log),
		escalator,
		compliance,
		gate,
		scheduler,
		crm,
		bus,
		log,
	)

	return &testHarness{
		engine: engine, gen: gen, finder: finder, gate: gate,
		crm: crm, bus: bus, tickets: tickets, scheduler: scheduler,
	}
}

func assertChannelSafe(t *testing.T, text string) {
	t.Helper()
	if text == "" {
		t.Fatal("response text must not be empty")
	}
	if n := len([]rune(text)); n > 320 {
		t.Errorf("response is %d runes, hard limit is 320", n)
	}
	if strings.ContainsAny(text, "-–—") {
		t.Errorf("response contains a hyphen: %q", text)
	}
}

// ---- tests ----

func TestProcessQualifiedBuyerEndToEnd(t *testing.T) {
	h := newTestHarness(t)

	result := h.engine.Process(context.Background(), ProcessRequest{
		ConversationID: "conv-1",
		Message:        "I'm pre-approved for $625k and ready to tour homes this weekend",
		Name:           "Dana",
	})

	if result.Error != "" {
		t.Fatalf("unexpected error: %s", result.Error)
	}
	if !result.IsQualified {
		t.Error("pre-approved buyer with a budget should qualify")
	}
	if result.FinancialReadinessScore < 70 {
		t.Errorf("readiness = %.0f, want >= 70", result.FinancialReadinessScore)
	}
	if len(result.MatchedCandidates) != 2 {
		t.Errorf("matched candidates = %d, want 2", len(result.MatchedCandidates))
	}
	if result.NextAction != domain.NextActionScheduleTour {
		t.Errorf("next action = %q, want %q", result.NextAction, domain.NextActionScheduleTour)
	}
	assertChannelSafe(t, result.ResponseText)
	if !strings.Contains(strings.ToLower(result.ResponseText), "tour") {
		t.Errorf("hot path reply should mention a tour: %q", result.ResponseText)
	}
	if h.gen.calls != 0 {
		t.Errorf("hot path must not invoke the text generator, got %d calls", h.gen.calls)
	}
	if !h.bus.has("conversation.qualification.completed") {
		t.Errorf("missing qualification event, got %v", h.bus.names())
	}
	if !h.bus.has("conversation.intent.analyzed") {
		t.Error("missing intent event")
	}
	if h.scheduler.count() != 1 {
		t.Errorf("follow ups scheduled = %d, want 1", h.scheduler.count())
	}
	if result.State.Step != domain.StepAppointment {
		t.Errorf("step = %q, want appointment", result.State.Step)
	}
	if h.crm.hasNoteContaining("conv-1", "Buyer brief") {
		t.Error("motivation below the brief threshold must not sync a brief")
	}
}

func TestProcessHighMotivationSyncsBuyerBrief(t *testing.T) {
	h := newTestHarness(t)

	result := h.engine.Process(context.Background(), ProcessRequest{
		ConversationID: "conv-12",
		Message:        "I'm a pre-approved cash buyer with proof of funds, ready to buy this weekend, asap",
		Name:           "Lee",
	})

	if result.Error != "" {
		t.Fatalf("unexpected error: %s", result.Error)
	}
	if result.MotivationScore <= 80 {
		t.Fatalf("motivation = %.0f, expected above the brief threshold", result.MotivationScore)
	}
	if !h.crm.hasNoteContaining("conv-12", "Buyer brief: Lee") {
		t.Fatal("high motivation buyer should sync an executive brief to the CRM")
	}
	if !h.crm.hasNoteContaining("conv-12", domain.NextActionScheduleTour) {
		t.Error("brief should carry the recommended action")
	}
}

func TestProcessOptOutShortCircuits(t *testing.T) {
	h := newTestHarness(t)

	result := h.engine.Process(context.Background(), ProcessRequest{
		ConversationID: "conv-2",
		Message:        "Please STOP texting me",
	})

	if !result.OptOutDetected {
		t.Fatal("opt out was not detected")
	}
	if result.ResponseText != optout.ConfirmationReply {
		t.Errorf("response = %q, want the opt out confirmation", result.ResponseText)
	}
	if h.gen.calls != 0 || h.finder.calls != 0 {
		t.Error("opt out must short-circuit before any pipeline stage")
	}
	if !h.crm.hasTag("conv-2", optout.OptOutTag) {
		t.Errorf("expected CRM tag %q", optout.OptOutTag)
	}
	if opted, _ := h.gate.IsOptedOut(context.Background(), "conv-2"); !opted {
		t.Error("opt out registry not updated")
	}
	if !h.bus.has("conversation.lead.opted_out") || !h.bus.has("conversation.bot_status.updated") {
		t.Errorf("missing opt out events, got %v", h.bus.names())
	}

	// A later turn from the same contact produces no automated reply.
	later := h.engine.Process(context.Background(), ProcessRequest{
		ConversationID: "conv-2",
		Message:        "actually, what homes are available?",
	})
	if later.ResponseText != "" || later.NextAction != "none" {
		t.Errorf("opted out contact got a reply: %+v", later)
	}
}

func TestProcessRejectsEmptyInput(t *testing.T) {
	h := newTestHarness(t)

	for _, req := range []ProcessRequest{
		{ConversationID: "conv-3", Message: "   "},
		{ConversationID: "", Message: "hello"},
	} {
		result := h.engine.Process(context.Background(), req)
		if result.Error == "" {
			t.Errorf("Process(%+v) should fail validation", req)
		}
	}
	if h.gen.calls != 0 {
		t.Error("invalid input must not reach the generator")
	}
}

func TestProcessTruncatesOversizedInbound(t *testing.T) {
	h := newTestHarness(t)

	result := h.engine.Process(context.Background(), ProcessRequest{
		ConversationID: "conv-4",
		Message:        strings.Repeat("zühause ", 300),
	})

	if result.Error != "" {
		t.Fatalf("unexpected error: %s", result.Error)
	}
	last := result.State.History[len(result.State.History)-1]
	if n := len([]rune(last.Text)); n > 2000 {
		t.Errorf("inbound stored at %d runes, cap is 2000", n)
	}
	if !utf8.ValidString(last.Text) {
		t.Error("truncation split a multi byte character")
	}
}

func TestProcessPausedContactSkipsAutomation(t *testing.T) {
	h := newTestHarness(t)
	_ = h.gate.Pause(context.Background(), "conv-5", "compliance hold")

	result := h.engine.Process(context.Background(), ProcessRequest{
		ConversationID: "conv-5",
		Message:        "any updates on those listings?",
	})

	if result.NextAction != "paused" {
		t.Errorf("next action = %q, want paused", result.NextAction)
	}
	if result.ResponseText != "" {
		t.Errorf("paused contact got a reply: %q", result.ResponseText)
	}
	if h.gen.calls != 0 {
		t.Error("paused contact must not reach the generator")
	}
}

func TestProcessMatcherFailureEscalates(t *testing.T) {
	h := newTestHarness(t)
	h.finder.err = apperr.TransientNetwork("property search: request failed", context.DeadlineExceeded)

	result := h.engine.Process(context.Background(), ProcessRequest{
		ConversationID: "conv-6",
		Message:        "I'm pre-approved for $500k, what do you have?",
	})

	if result.Error == "" {
		t.Fatal("exhausted matcher should surface a terminal error")
	}
	assertChannelSafe(t, result.ResponseText)
	if h.finder.calls != 3 {
		t.Errorf("finder calls = %d, want 3 (initial + 2 retries)", h.finder.calls)
	}
	if len(h.tickets.tickets) == 0 {
		t.Fatal("escalation ticket was not persisted")
	}
	if h.tickets.tickets[0].SubjectID != "conv-6" {
		t.Errorf("ticket subject = %q", h.tickets.tickets[0].SubjectID)
	}
	if result.State.Step != domain.StepError {
		t.Errorf("step = %q, want error", result.State.Step)
	}
	if h.scheduler.count() != 0 {
		t.Error("error turns must not schedule follow ups")
	}
}

func TestProcessComplianceViolationPausesAutomation(t *testing.T) {
	h := newTestHarness(t)

	result := h.engine.Process(context.Background(), ProcessRequest{
		ConversationID: "conv-7",
		Message:        "Can you find me a place with no section 8 nearby?",
	})

	if result.NextAction != "compliance_escalation" {
		t.Errorf("next action = %q, want compliance_escalation", result.NextAction)
	}
	assertChannelSafe(t, result.ResponseText)
	if h.gen.calls != 0 {
		t.Error("violations must bypass generation")
	}
	if paused, _, _ := h.gate.IsPaused(context.Background(), "conv-7"); !paused {
		t.Error("critical violation should pause the contact")
	}
	if !h.crm.hasTag("conv-7", "Compliance Review") {
		t.Error("missing compliance CRM flag")
	}
	if !h.bus.has("escalation.compliance.raised") {
		t.Errorf("missing compliance event, got %v", h.bus.names())
	}

	// Automation stays off for the next turn.
	later := h.engine.Process(context.Background(), ProcessRequest{
		ConversationID: "conv-7",
		Message:        "ok, what about downtown?",
	})
	if later.NextAction != "paused" {
		t.Errorf("post-violation turn next action = %q, want paused", later.NextAction)
	}
}

func TestProcessHumanRequestHandsOff(t *testing.T) {
	h := newTestHarness(t)

	result := h.engine.Process(context.Background(), ProcessRequest{
		ConversationID: "conv-8",
		Message:        "I'd rather speak to a human about this",
	})

	if result.NextAction != "human_handoff" {
		t.Errorf("next action = %q, want human_handoff", result.NextAction)
	}
	if !result.HandoffSignals["human_requested"] {
		t.Error("human_requested signal not set")
	}
	assertChannelSafe(t, result.ResponseText)
	if len(h.tickets.tickets) == 0 {
		t.Fatal("handoff must raise an escalation ticket")
	}
	if h.gen.calls != 0 {
		t.Error("handoff must not invoke the generator")
	}
}

func TestProcessBrowsingBuyerGetsGeneratedReply(t *testing.T) {
	h := newTestHarness(t)
	h.gen.reply = "No problem at all! Tell me a bit about the areas you like - I'll keep an eye out for you."

	result := h.engine.Process(context.Background(), ProcessRequest{
		ConversationID: "conv-9",
		Message:        "We are starting to look at homes in the area, nothing urgent",
	})

	if result.Error != "" {
		t.Fatalf("unexpected error: %s", result.Error)
	}
	if result.IsQualified {
		t.Error("browsing buyer without financing should not qualify")
	}
	if h.gen.calls != 1 {
		t.Fatalf("generator calls = %d, want 1", h.gen.calls)
	}
	if h.finder.calls != 0 {
		t.Error("unqualified buyer must not trigger a property search")
	}
	assertChannelSafe(t, result.ResponseText)
	if result.NextAction != domain.NextActionRespond {
		t.Errorf("next action = %q, want respond", result.NextAction)
	}
	if result.MatchedCandidates == nil {
		t.Error("candidates must be an empty array when no search ran, not null")
	}
	if h.scheduler.count() != 1 {
		t.Errorf("follow ups scheduled = %d, want 1", h.scheduler.count())
	}
}

func TestProcessObjectionRoutesThroughPlaybook(t *testing.T) {
	h := newTestHarness(t)

	result := h.engine.Process(context.Background(), ProcessRequest{
		ConversationID: "conv-10",
		Message:        "Honestly that's too expensive, homes around here are like $450k",
	})

	if result.Error != "" {
		t.Fatalf("unexpected error: %s", result.Error)
	}
	history := result.State.ObjectionHistory
	if len(history) != 1 {
		t.Fatalf("objection history = %d records, want 1", len(history))
	}
	if history[0].Type != domain.ObjectionPriceShock {
		t.Errorf("objection type = %q, want price_shock", history[0].Type)
	}
	if result.State.Step != domain.StepObjectionHandling {
		t.Errorf("step = %q, want objection_handling", result.State.Step)
	}
	if h.gen.calls != 1 {
		t.Fatalf("generator calls = %d, want 1", h.gen.calls)
	}
	if !strings.Contains(h.gen.prompts[0], "objection") {
		t.Error("prompt should carry the objection strategy")
	}
	assertChannelSafe(t, result.ResponseText)
}

func TestProcessRejectsOverlappingTurns(t *testing.T) {
	h := newTestHarness(t)

	if !h.engine.markRunning("conv-11") {
		t.Fatal("first mark should succeed")
	}
	result := h.engine.Process(context.Background(), ProcessRequest{
		ConversationID: "conv-11",
		Message:        "hello?",
	})
	if result.Error == "" {
		t.Error("overlapping turn should be rejected")
	}
	h.engine.markDone("conv-11")

	result = h.engine.Process(context.Background(), ProcessRequest{
		ConversationID: "conv-11",
		Message:        "hello again",
	})
	if result.Error != "" {
		t.Errorf("turn after release failed: %s", result.Error)
	}
}
