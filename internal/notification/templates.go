package notification

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseData struct {
	Title   string
	Heading string
}

type complianceAlertData struct {
	baseData
	TicketID   string
	ContactID  string
	Category   string
	Severity   string
	Detail     string
	DetectedAt string
	BotPaused  bool
}

func renderTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse notification template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute notification template %s: %w", name, err)
	}
	return buf.String(), nil
}
