package optout

import (
	"strings"
	"testing"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		message string
		want    bool
	}{
		{"stop", true},
		{"STOP", true},
		{"Please stop texting me", true},
		{"unsubscribe", true},
		{"UNSUBSCRIBE ME NOW", true},
		{"not interested", true},
		{"I'm Not Interested, thanks", true},
		{"remove me from your list", true},
		{"what homes are available?", false},
		{"", false},
		{"   ", false},
	}

	for _, tt := range tests {
		_, got := Detect(tt.message)
		if got != tt.want {
			t.Errorf("Detect(%q) = %v, want %v", tt.message, got, tt.want)
		}
	}
}

func TestDetectReturnsMatchedPhrase(t *testing.T) {
	phrase, ok := Detect("please UNSUBSCRIBE me")
	if !ok || phrase != "unsubscribe" {
		t.Errorf("Detect() = (%q, %v), want (unsubscribe, true)", phrase, ok)
	}
}

func TestConfirmationReplyInvariants(t *testing.T) {
	if !strings.Contains(strings.ToLower(ConfirmationReply), "unsubscribed") {
		t.Error("confirmation must contain the word unsubscribed")
	}
	if len(ConfirmationReply) > 160 {
		t.Errorf("confirmation is %d chars, must be <= 160", len(ConfirmationReply))
	}
	if strings.ContainsAny(ConfirmationReply, "-–—") {
		t.Error("confirmation must not contain hyphens")
	}
}
