// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"fmt"
	"text/template"
)

// MessageData is what program message templates may reference, e.g.
// "Congratulations {{.Name}}, {{.Organization}} was accepted into {{.Program}}."
type MessageData struct {
	Name         string
	Program      string
	Organization string
	URL          string
}

// Render expands a program message template. A template that fails to
// parse or execute is returned as-is so a typo in admin-entered text never
// blocks the mail.
func Render(tmpl string, data MessageData) string {
	t, err := template.New("msg").Option("missingkey=zero").Parse(tmpl)
	if err != nil {
		return tmpl
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return tmpl
	}
	return buf.String()
}

// Program message templates fall back to these when the program leaves a
// message empty.
const (
	DefaultMentorWelcome    = "Welcome {{.Name}}! You are now a mentor for {{.Organization}} in {{.Program}}."
	DefaultAcceptedOrg      = "Congratulations! {{.Organization}} has been accepted into {{.Program}}."
	DefaultRejectedOrg      = "We are sorry, {{.Organization}} was not accepted into {{.Program}}."
	DefaultAcceptedStudent  = "Congratulations {{.Name}}! Your proposal to {{.Organization}} has been accepted."
	DefaultStudentWelcome   = "Welcome to {{.Program}}, {{.Name}}. Your mentors at {{.Organization}} will be in touch."
	DefaultRejectedStudent  = "Thank you for applying to {{.Program}}, {{.Name}}. Your proposal to {{.Organization}} was not accepted."
	anonymousInviteTemplate = "You have been invited to join {{.Organization}} in {{.Program}}.\n\nTo accept, sign in and open:\n{{.URL}}\n\nThis invitation expires in one week."
)

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// BuildMentorWelcome builds the mail sent when a profile first becomes a mentor.
func BuildMentorWelcome(msgTemplate string, data MessageData) Email {
	return Email{
		Subject:  fmt.Sprintf("Welcome as a mentor in %s", data.Program),
		TextBody: Render(orDefault(msgTemplate, DefaultMentorWelcome), data),
	}
}

// BuildOrgDecision builds the admission decision mail for an organization.
func BuildOrgDecision(accepted bool, msgTemplate string, data MessageData) Email {
	if accepted {
		return Email{
			Subject:  fmt.Sprintf("%s: %s accepted", data.Program, data.Organization),
			TextBody: Render(orDefault(msgTemplate, DefaultAcceptedOrg), data),
		}
	}
	return Email{
		Subject:  fmt.Sprintf("%s: organization application result", data.Program),
		TextBody: Render(orDefault(msgTemplate, DefaultRejectedOrg), data),
	}
}

// BuildStudentDecision builds the accepted or rejected mail for a student.
func BuildStudentDecision(accepted bool, msgTemplate string, data MessageData) Email {
	if accepted {
		return Email{
			Subject:  fmt.Sprintf("%s: proposal accepted", data.Program),
			TextBody: Render(orDefault(msgTemplate, DefaultAcceptedStudent), data),
		}
	}
	return Email{
		Subject:  fmt.Sprintf("%s: proposal result", data.Program),
		TextBody: Render(orDefault(msgTemplate, DefaultRejectedStudent), data),
	}
}

// BuildStudentWelcome builds the welcome mail for an accepted student.
func BuildStudentWelcome(msgTemplate string, data MessageData) Email {
	return Email{
		Subject:  fmt.Sprintf("Welcome to %s", data.Program),
		TextBody: Render(orDefault(msgTemplate, DefaultStudentWelcome), data),
	}
}

// BuildAnonymousInvite builds the invitation for an email-only connection.
func BuildAnonymousInvite(data MessageData) Email {
	return Email{
		Subject:  fmt.Sprintf("Invitation to join %s", data.Organization),
		TextBody: Render(anonymousInviteTemplate, data),
	}
}

// BuildConversationNotice notifies a participant of a new message.
func BuildConversationNotice(subject, author, content, url string) Email {
	return Email{
		Subject:  "New message: " + subject,
		TextBody: fmt.Sprintf("%s wrote:\n\n%s\n\nView the conversation: %s\n", author, content, url),
	}
}
