package events

// MailEvent is the payload queued on mail_events. The HTTP handlers publish
// these and return immediately; cmd/mailworker performs the SMTP delivery.
type MailEvent struct {
	Recipients []string          `json:"recipients"`
	Subject    string            `json:"subject"`
	Template   string            `json:"template"`
	Context    map[string]string `json:"context,omitempty"`
}

// Template names understood by the mail worker.
const (
	TemplateVerifyEmail   = "verify_email"
	TemplateResetPassword = "reset_password"
	TemplateWelcome       = "welcome_email"
)
