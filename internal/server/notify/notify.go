// Package notify renders and delivers the transactional emails: signup
// verification and password reset.
package notify

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
)

const (
	TemplateSignupVerification = "signup-verification"
	TemplateForgotPassword     = "forgot-password"
)

var subjects = map[string]string{
	TemplateSignupVerification: "Verify your email",
	TemplateForgotPassword:     "Password reset request received",
}

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("").Option("missingkey=zero").ParseFS(templateFS, "templates/*.html"))

// Notifier sends templated messages. accepted=false means the relay refused
// the message; err is reserved for faults such as an unreachable relay.
type Notifier interface {
	Send(ctx context.Context, recipient, templateID string, vars map[string]string) (accepted bool, err error)
}

// Render returns the subject and HTML body for templateID.
func Render(templateID string, vars map[string]string) (subject, body string, err error) {
	subject, ok := subjects[templateID]
	if !ok {
		return "", "", fmt.Errorf("notify: unknown template %q", templateID)
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, templateID+".html", vars); err != nil {
		return "", "", fmt.Errorf("notify: render %s: %w", templateID, err)
	}
	return subject, buf.String(), nil
}
