package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"ticketdesk-backoffice/internal/domain"
)

// Placeholders left in rendered bodies for the Gateway to resolve per send.
const (
	PlaceholderTrackingPixel  = "[[TRACKING_PIXEL_URL]]"
	PlaceholderRecipientEmail = "[[RECIPIENT_EMAIL]]"
)

// UnsubscribePath is appended to SiteURL for the footer link.
const UnsubscribePath = "/unsubscribe"

// NotificationData is the renderer input. Only Kind is required.
type NotificationData struct {
	Kind          domain.TemplateKind
	RecipientName string
	SiteName      string
	SiteURL       string    // public base URL, used for the unsubscribe link
	ActionURL     string    // call-to-action link, e.g. the login page
	RequestedAt   time.Time // when the registration was submitted
	Reason        string    // optional rejection reason
	Heading       string    // generic only
	Body          string    // generic only; blank lines separate paragraphs
}

// Rendered is a complete HTML document and its default subject.
type Rendered struct {
	Subject string
	HTML    string
}

// Renderer turns NotificationData into HTML email bodies. It is safe for
// concurrent use.
type Renderer struct {
	tmpl *template.Template
}

var subjects = map[domain.TemplateKind]string{
	domain.TemplateApproval:  "Your %s access request has been approved",
	domain.TemplateRejection: "Update on your %s access request",
	domain.TemplateWelcome:   "We received your %s access request",
	domain.TemplateGeneric:   "A message from %s",
}

func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("shell").Parse(shellTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse email shell: %w", err)
	}
	for kind, body := range bodyTemplates {
		if _, err := tmpl.New(string(kind)).Parse(body); err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", kind, err)
		}
	}
	return &Renderer{tmpl: tmpl}, nil
}

// MustRenderer is NewRenderer for package-level wiring and tests.
func MustRenderer() *Renderer {
	r, err := NewRenderer()
	if err != nil {
		panic(err)
	}
	return r
}

type view struct {
	NotificationData
	Greeting       string
	Subject        string
	BodyTemplate   string
	Paragraphs     []string
	RequestedOn    string
	TrackingPixel  template.URL
	UnsubscribeURL template.URL
	RecipientEmail string
	Year           int
}

// Render produces the HTML document for data. An unknown kind renders as generic.
func (r *Renderer) Render(data NotificationData) (Rendered, error) {
	if !data.Kind.Valid() {
		data.Kind = domain.TemplateGeneric
	}
	if data.SiteName == "" {
		data.SiteName = "TicketDesk"
	}

	v := view{
		NotificationData: data,
		Greeting:         greeting(data.RecipientName),
		Subject:          fmt.Sprintf(subjects[data.Kind], data.SiteName),
		BodyTemplate:     string(data.Kind),
		Paragraphs:       paragraphs(data.Body),
		TrackingPixel:    template.URL(PlaceholderTrackingPixel),
		UnsubscribeURL:   template.URL(strings.TrimRight(data.SiteURL, "/") + UnsubscribePath + "?email=" + PlaceholderRecipientEmail),
		RecipientEmail:   PlaceholderRecipientEmail,
		Year:             time.Now().UTC().Year(),
	}
	if data.Kind == domain.TemplateGeneric && data.Heading != "" {
		v.Subject = data.Heading
	}
	if !data.RequestedAt.IsZero() {
		v.RequestedOn = data.RequestedAt.UTC().Format("January 2, 2006")
	}

	var body bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&body, string(data.Kind), v); err != nil {
		return Rendered{}, fmt.Errorf("failed to render %s body: %w", data.Kind, err)
	}
	var doc bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&doc, "shell", struct {
		view
		Content template.HTML
	}{v, template.HTML(body.String())}); err != nil {
		return Rendered{}, fmt.Errorf("failed to render email shell: %w", err)
	}
	return Rendered{Subject: v.Subject, HTML: doc.String()}, nil
}

func greeting(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Hello there,"
	}
	if first, _, ok := strings.Cut(name, " "); ok {
		name = first
	}
	return "Hi " + name + ","
}

func paragraphs(body string) []string {
	var out []string
	for _, p := range strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

const shellTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Subject}}</title>
<style>
  body { margin: 0; padding: 0; background: #f4f4f7; font-family: Helvetica, Arial, sans-serif; color: #1f2933; }
  .container { max-width: 600px; margin: 0 auto; padding: 24px; }
  .card { background: #ffffff; border-radius: 8px; padding: 32px; }
  .header { font-size: 22px; font-weight: bold; color: #7c3aed; padding-bottom: 16px; }
  .button { display: inline-block; padding: 12px 24px; background: #7c3aed; color: #ffffff !important; border-radius: 6px; text-decoration: none; }
  .footer { font-size: 12px; color: #7b8794; text-align: center; padding-top: 16px; }
</style>
</head>
<body>
<div class="container">
  <div class="card">
    <div class="header">{{.SiteName}}</div>
    <p>{{.Greeting}}</p>
    {{.Content}}
  </div>
  <div class="footer">
    <p>&copy; {{.Year}} {{.SiteName}}. This message was sent to {{.RecipientEmail}}.</p>
    <p><a href="{{.UnsubscribeURL}}">Unsubscribe</a></p>
  </div>
</div>
<img src="{{.TrackingPixel}}" width="1" height="1" alt="" style="display:none">
</body>
</html>
`

var bodyTemplates = map[domain.TemplateKind]string{
	domain.TemplateApproval: `<p>Good news: your request for access to {{.SiteName}}{{if .RequestedOn}} submitted on {{.RequestedOn}}{{end}} has been approved.</p>
<p>You can now sign in and start browsing upcoming events and tickets.</p>
{{if .ActionURL}}<p><a class="button" href="{{.ActionURL}}">Sign in</a></p>{{end}}`,

	domain.TemplateRejection: `<p>Thank you for your interest in {{.SiteName}}. After reviewing your access request{{if .RequestedOn}} from {{.RequestedOn}}{{end}}, we are unable to approve it at this time.</p>
{{if .Reason}}<p>Reason: {{.Reason}}</p>{{end}}
<p>You are welcome to apply again in the future.</p>`,

	domain.TemplateWelcome: `<p>Thanks for requesting access to {{.SiteName}}. Our team reviews every request and you will hear from us by email once a decision has been made.</p>
{{if .ActionURL}}<p>In the meantime you can learn more at <a href="{{.ActionURL}}">{{.ActionURL}}</a>.</p>{{end}}`,

	domain.TemplateGeneric: `{{range .Paragraphs}}<p>{{.}}</p>
{{end}}{{if .ActionURL}}<p><a class="button" href="{{.ActionURL}}">Open {{.SiteName}}</a></p>{{end}}`,
}
