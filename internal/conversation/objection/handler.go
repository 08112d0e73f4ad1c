// Package objection maps detected buyer objections to response strategies.
// Strategies live in an embedded YAML playbook so copy changes don't require
// touching code.
package objection

import (
	_ "embed"
	"fmt"
	"strings"
	"time"

	"buyerbot_backend/internal/conversation/domain"
	"buyerbot_backend/internal/conversation/finance"

	"gopkg.in/yaml.v3"
)

//go:embed playbook.yaml
var playbookYAML []byte

type strategy struct {
	Approach      string   `yaml:"approach"`
	TalkingPoints []string `yaml:"talking_points"`
}

type playbook struct {
	Objections map[string]strategy `yaml:"objections"`
	Default    strategy            `yaml:"default"`
}

// Result is the partial state update from handling one objection.
type Result struct {
	Record domain.ObjectionRecord
	Step   domain.Step
}

// Handler resolves objection categories against the playbook.
type Handler struct {
	playbook playbook
}

func NewHandler() (*Handler, error) {
	var pb playbook
	if err := yaml.Unmarshal(playbookYAML, &pb); err != nil {
		return nil, fmt.Errorf("objection playbook: %w", err)
	}
	if len(pb.Objections) == 0 || pb.Default.Approach == "" {
		return nil, fmt.Errorf("objection playbook: missing strategies")
	}
	return &Handler{playbook: pb}, nil
}

// Handle resolves the pending objection on the state into a strategy record.
// Returns ok=false when no objection was flagged upstream; the stage is then
// a no-op. For price related objections with a known budget, one extra
// talking point carries the computed monthly payment.
func (h *Handler) Handle(state *domain.ConversationState, affordability *finance.Affordability) (Result, bool) {
	if state.PendingObjection == domain.ObjectionNone {
		return Result{}, false
	}

	strat, recognized := h.playbook.Objections[string(state.PendingObjection)]
	if !recognized {
		strat = h.playbook.Default
	}

	points := make([]string, len(strat.TalkingPoints))
	copy(points, strat.TalkingPoints)

	if state.PendingObjection.PriceRelated() && affordability != nil {
		points = append(points, fmt.Sprintf(
			"At $%s, you'd be looking at roughly $%s per month all in.",
			formatAmount(affordability.Price), formatAmount(affordability.TotalMonthly)))
	}

	return Result{
		Record: domain.ObjectionRecord{
			Type:          state.PendingObjection,
			Approach:      strat.Approach,
			TalkingPoints: points,
			HandledAt:     time.Now().UTC(),
		},
		Step: domain.StepObjectionHandling,
	}, true
}

// Detect flags the objection category, if any, expressed by one inbound
// message. Categories are checked in a fixed order so a message tripping
// several patterns resolves deterministically.
func Detect(message string) domain.ObjectionType {
	lower := strings.ToLower(message)

	checks := []struct {
		objType domain.ObjectionType
		phrases []string
	}{
		{domain.ObjectionPriceShock, []string{
			"too expensive", "can't afford that", "over our budget", "over my budget",
			"out of our price range", "out of my price range", "prices are crazy",
		}},
		{domain.ObjectionSharedDecision, []string{
			"ask my wife", "ask my husband", "talk to my wife", "talk to my husband",
			"check with my partner", "talk to my partner", "we need to discuss",
		}},
		{domain.ObjectionTiming, []string{
			"not the right time", "bad timing", "maybe next year", "wait until",
			"not ready yet",
		}},
		{domain.ObjectionAnalysisParalysis, []string{
			"so many options", "overwhelmed", "can't decide", "need more time to think",
			"still comparing",
		}},
		{domain.ObjectionLowCommitment, []string{
			"just curious", "just looking around", "not serious", "only browsing",
		}},
	}

	for _, c := range checks {
		for _, phrase := range c.phrases {
			if strings.Contains(lower, phrase) {
				return c.objType
			}
		}
	}
	return domain.ObjectionNone
}

func formatAmount(v float64) string {
	n := int64(v)
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	var parts []string
	for n > 0 {
		if n >= 1000 {
			parts = append([]string{fmt.Sprintf("%03d", n%1000)}, parts...)
		} else {
			parts = append([]string{fmt.Sprintf("%d", n%1000)}, parts...)
		}
		n /= 1000
	}
	return strings.Join(parts, ",")
}
