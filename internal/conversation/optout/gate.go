// Package optout implements the TCPA gate. The check runs before any other
// stage and before any state mutation: a matched phrase stops scoring,
// generation and every downstream side effect for the turn.
package optout

import "strings"

// OptOutTag is the CRM tag applied when a contact opts out.
const OptOutTag = "AI-Off"

// ConfirmationReply is the fixed reply sent on opt out. It must contain the
// word "unsubscribed", stay under 160 characters, and carry no hyphens.
const ConfirmationReply = "You've been unsubscribed and won't receive any more automated messages from us. Reply START anytime if you change your mind."

// phrases is the fixed opt out vocabulary, matched case insensitively as
// substrings of the inbound message.
var phrases = []string{
	"stop",
	"unsubscribe",
	"opt out",
	"not interested",
	"remove me",
	"don't text me",
	"do not text me",
	"leave me alone",
}

// Detect reports whether the message requests an opt out and which phrase
// matched. The gate is absolute: no retries, no scoring, no generation.
func Detect(message string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(message))
	if lower == "" {
		return "", false
	}
	for _, phrase := range phrases {
		if strings.Contains(lower, phrase) {
			return phrase, true
		}
	}
	return "", false
}
