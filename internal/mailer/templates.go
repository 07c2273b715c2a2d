package mailer

import (
	"bytes"
	"fmt"
	"html/template"
)

var readyTmpl = template.Must(template.New("ready").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <div style="background: linear-gradient(135deg, #8B5CF6, #A855F7); padding: 20px; text-align: center;">
    <h1 style="color: white; margin: 0;">Your Walkthrough is Ready!</h1>
  </div>
  <div style="padding: 30px; background: #f9fafb;">
    <h2 style="color: #1f2937;">Hello!</h2>
    <p style="color: #4b5563; line-height: 1.6;">
      Your requested walkthrough for "<strong>{{.Prompt}}</strong>" has been successfully recorded and processed.
    </p>
    <div style="background: white; border-radius: 8px; padding: 20px; margin: 20px 0; border-left: 4px solid #8B5CF6;">
      <h3 style="margin: 0 0 10px 0; color: #1f2937;">Video Walkthrough</h3>
      <p style="margin: 0 0 15px 0; color: #6b7280;">Watch the complete step-by-step tutorial:</p>
      <a href="{{.VideoURL}}" style="display: inline-block; background: #8B5CF6; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; font-weight: 500;">Watch Video Tutorial</a>
    </div>
    {{- if .Script}}
    <div style="background: white; border-radius: 8px; padding: 20px; margin: 20px 0; border-left: 4px solid #10b981;">
      <h3 style="margin: 0 0 10px 0; color: #1f2937;">Tutorial Script</h3>
      <p style="margin: 0 0 15px 0; color: #6b7280;">Read the step-by-step instructions:</p>
      <div style="background: #f3f4f6; padding: 15px; border-radius: 4px; font-family: monospace; white-space: pre-wrap; color: #374151;">{{.Script}}</div>
    </div>
    {{- end}}
    <div style="margin-top: 30px; padding-top: 20px; border-top: 1px solid #e5e7eb;">
      <p style="color: #6b7280; font-size: 14px;">This walkthrough was generated automatically. If you have any questions, just reply to this email.</p>
    </div>
  </div>
</div>`))

var testTmpl = template.Must(template.New("test").Parse(`<h2>Email Configuration Test</h2>
<p>This is a test email to verify that your email configuration is working correctly.</p>
<p>If you received this email, your SMTP settings are properly configured!</p>
<p><strong>Configuration Details:</strong></p>
<ul>
  <li>SMTP Host: {{.Host}}</li>
  <li>Port: {{.Port}}</li>
  <li>Sender: {{.From}}</li>
</ul>`))

// ReadyData fills the walkthrough-ready email.
type ReadyData struct {
	Prompt   string
	VideoURL string
	Script   string
}

// WalkthroughReady renders the notification sent when a recording completes.
func WalkthroughReady(to string, data ReadyData) (Message, error) {
	var buf bytes.Buffer
	if err := readyTmpl.Execute(&buf, data); err != nil {
		return Message{}, fmt.Errorf("render ready email: %w", err)
	}
	return Message{
		To:      to,
		Subject: fmt.Sprintf("Your %q walkthrough is ready!", data.Prompt),
		HTML:    buf.String(),
	}, nil
}

// ConfigTest renders the message sent by the email configuration check.
func ConfigTest(to string, settings Config) (Message, error) {
	var buf bytes.Buffer
	if err := testTmpl.Execute(&buf, settings); err != nil {
		return Message{}, fmt.Errorf("render test email: %w", err)
	}
	return Message{To: to, Subject: "Walkthroughs Email Test", HTML: buf.String()}, nil
}
