package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/CorrelAid/application_uploader/config"
	"github.com/CorrelAid/application_uploader/models"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	DefaultHost    = "https://api.sendgrid.com"
	sendEndpoint   = "/v3/mail/send"
	reviewSubject  = "Your application is under review"
	reviewCategory = "application_received"
)

var reviewTemplate = template.Must(template.New("application_received").Parse(`<p>Hello {{.Name}},</p>
<p>Thank you for your application. It is now under review and we will update you soon.</p>
{{- if .ResumeAttached}}
<p>We received your résumé.</p>
{{- end}}
<p>Best regards</p>
`))

type reviewBody struct {
	Name           string
	ResumeAttached bool
}

// Mailer sends the applicant a confirmation through SendGrid.
type Mailer struct {
	apiKey string
	from   *sgmail.Email
	host   string
}

func NewMailer(cfg config.SendGridConfig) *Mailer {
	return &Mailer{
		apiKey: cfg.APIKey,
		from:   sgmail.NewEmail(cfg.FromName, cfg.From),
		host:   DefaultHost,
	}
}

func (m *Mailer) Notify(ctx context.Context, sub models.FormSubmission) error {
	var tpl bytes.Buffer
	if err := reviewTemplate.Execute(&tpl, reviewBody{Name: sub.Name, ResumeAttached: sub.File != nil}); err != nil {
		return fmt.Errorf("template execute err: %w", err)
	}

	msg := sgmail.NewV3Mail()
	msg.SetFrom(m.from)
	msg.AddContent(sgmail.NewContent("text/html", tpl.String()))

	personalization := sgmail.NewPersonalization()
	personalization.AddTos(sgmail.NewEmail(sub.Name, sub.Email))
	personalization.Subject = reviewSubject
	msg.AddPersonalizations(personalization)
	msg.AddCategories(reviewCategory)

	request := sendgrid.GetRequest(m.apiKey, sendEndpoint, m.host)
	request.Method = "POST"
	request.Body = sgmail.GetRequestBody(msg)

	resp, err := sendgrid.MakeRequestWithContext(ctx, request)
	if err != nil {
		return fmt.Errorf("sendgrid request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("sendgrid request: unexpected status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
