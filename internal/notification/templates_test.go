package notification

import (
	"strings"
	"testing"
)

func TestRenderComplianceAlert(t *testing.T) {
	html, err := renderTemplate("compliance_alert.html", complianceAlertData{
		baseData:   baseData{Title: "Compliance violation detected", Heading: "Compliance violation detected"},
		TicketID:   "a6a2f8f0-0000-0000-0000-000000000001",
		ContactID:  "contact-9",
		Category:   "fair_housing",
		Severity:   "critical",
		Detail:     "no section 8 nearby",
		DetectedAt: "2026-08-28T10:00:00Z",
		BotPaused:  true,
	})
	if err != nil {
		t.Fatalf("renderTemplate: %v", err)
	}

	for _, want := range []string{"fair_housing", "critical", "contact-9", "no section 8 nearby", "paused"} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered alert missing %q", want)
		}
	}
}

func TestRenderEscapesDetail(t *testing.T) {
	html, err := renderTemplate("compliance_alert.html", complianceAlertData{
		baseData: baseData{Title: "t", Heading: "h"},
		Detail:   `<script>alert("x")</script>`,
	})
	if err != nil {
		t.Fatalf("renderTemplate: %v", err)
	}
	if strings.Contains(html, "<script>") {
		t.Error("detail was not HTML-escaped")
	}
}
