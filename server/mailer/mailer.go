package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/Tushar2604/SafePath/shared"
)

const (
	EMERGENCY_ALERT_TEMPLATE = "emergency_alert"
	STATUS_UPDATE_TEMPLATE   = "status_update"
	TEST_TEMPLATE            = "test"
)

const emergencyAlertHTML = `<html><body>
<h2 style="color:#c0392b">Emergency Alert</h2>
<p><strong>{{.UserName}}</strong> has triggered a <strong>{{.EmergencyType}}</strong> emergency
and listed you as an emergency contact.</p>
{{if .Address}}<p>Last known location: {{.Address}}</p>{{end}}
<p><a href="{{.MapLink}}">Open location in maps</a></p>
{{if .Description}}<p>Details: {{.Description}}</p>{{end}}
<p>Please try to reach them as soon as possible.</p>
</body></html>`

const statusUpdateHTML = `<html><body>
<h2>Emergency Update</h2>
<p>The {{.EmergencyType}} emergency triggered by <strong>{{.UserName}}</strong>
is now marked <strong>{{.Status}}</strong>.</p>
</body></html>`

const testHTML = `<html><body>
<h2>SafePath Test</h2>
<p>This is a test notification from SafePath. <strong>{{.UserName}}</strong> added you
as an emergency contact. No action is needed.</p>
</body></html>`

// Client sends transactional emails via an HTTP email API
// (Brevo-compatible /v3/smtp/email endpoint)
type Client struct {
	config    shared.MailerConfig
	client    *http.Client
	templates map[string]*template.Template
	testMode  bool
}

type sendEmailReq struct {
	Sender      map[string]string   `json:"sender"`
	To          []map[string]string `json:"to"`
	Subject     string              `json:"subject"`
	HtmlContent string              `json:"htmlContent"`
}

func NewClient(config shared.MailerConfig, testMode bool) *Client {
	templates := map[string]*template.Template{
		EMERGENCY_ALERT_TEMPLATE: template.Must(template.New(EMERGENCY_ALERT_TEMPLATE).Parse(emergencyAlertHTML)),
		STATUS_UPDATE_TEMPLATE:   template.Must(template.New(STATUS_UPDATE_TEMPLATE).Parse(statusUpdateHTML)),
		TEST_TEMPLATE:            template.Must(template.New(TEST_TEMPLATE).Parse(testHTML)),
	}

	return &Client{
		config:    config,
		client:    &http.Client{Timeout: 10 * time.Second},
		templates: templates,
		testMode:  testMode,
	}
}

// SendEmail renders the named template with 'data' & delivers it to
// 'toEmail'
func (c *Client) SendEmail(ctx context.Context, toEmail, subject, templateName string, data interface{}) error {
	tmpl, ok := c.templates[templateName]
	if !ok {
		return fmt.Errorf("email template %q not found", templateName)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return err
	}

	if c.testMode {
		return nil
	}

	body, err := json.Marshal(sendEmailReq{
		Sender:      map[string]string{"email": c.config.SenderEmail, "name": c.config.SenderName},
		To:          []map[string]string{{"email": toEmail}},
		Subject:     subject,
		HtmlContent: buf.String(),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.config.ApiUrl, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("api-key", c.config.ApiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("email API error: status %d", resp.StatusCode)
	}

	return nil
}
