package response

import (
	"strings"

	"github.com/tidwall/gjson"
)

// replyFields are the structured-reply locations checked in order when the
// generation service returns JSON instead of plain text.
var replyFields = []string{
	"content",
	"text",
	"message.content",
	"choices.0.message.content",
}

// Normalize flattens the generation service's possible return shapes into
// plain text. JSON objects are probed for the known content fields; anything
// else passes through as-is.
func Normalize(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	if strings.HasPrefix(trimmed, "{") && gjson.Valid(trimmed) {
		for _, field := range replyFields {
			if value := gjson.Get(trimmed, field); value.Type == gjson.String && value.Str != "" {
				return strings.TrimSpace(value.Str)
			}
		}
	}
	return trimmed
}

// LooksStructured reports whether text still resembles markdown output: a
// leading heading marker, or a sub-heading within the first stretch of the
// message.
func LooksStructured(text string) bool {
	if strings.HasPrefix(text, "#") {
		return true
	}
	window := text
	if len(window) > 120 {
		window = window[:120]
	}
	return strings.Contains(window, "\n## ") || strings.Contains(window, "\n### ")
}

// StripStructure drops heading lines, unwraps bullet markers, and returns
// the first remaining substantive line. Empty when nothing usable remains.
func StripStructure(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimLeft(line, "*•> ")
		line = strings.TrimPrefix(line, "- ")
		line = strings.TrimSpace(line)
		if len(line) >= 10 {
			return line
		}
	}
	return ""
}

// StripHyphens removes every hyphen character. Hyphens are replaced with a
// space and runs of spaces are collapsed so "pre-approved" reads naturally.
func StripHyphens(text string) string {
	replacer := strings.NewReplacer("-", " ", "–", " ", "—", " ")
	out := replacer.Replace(text)
	for strings.Contains(out, "  ") {
		out = strings.ReplaceAll(out, "  ", " ")
	}
	return strings.TrimSpace(out)
}

// Truncate enforces the channel length budget: trim to the soft limit at a
// word boundary, and hard-cap at the wrapper ceiling regardless.
func Truncate(text string, soft, hard int) string {
	runes := []rune(text)
	if len(runes) <= soft {
		return text
	}

	cut := string(runes[:soft])
	if idx := strings.LastIndex(cut, " "); idx > soft/2 {
		cut = cut[:idx]
	}
	cut = strings.TrimSpace(cut)

	hardRunes := []rune(cut)
	if len(hardRunes) > hard {
		cut = string(hardRunes[:hard])
	}
	return cut
}
