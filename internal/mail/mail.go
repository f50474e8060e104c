package mail

import (
	"bytes"
	"fmt"
	"html/template"

	"gopkg.in/gomail.v2"

	"github.com/booklyapp/bookly/internal/events"
)

// Sender delivers queued mail events over SMTP. It lives in the mail worker
// process only; HTTP handlers never touch it.
type Sender struct {
	dialer   *gomail.Dialer
	from     string
	fromName string
}

func NewSender(server string, port int, username, password, from, fromName string) *Sender {
	return &Sender{
		dialer:   gomail.NewDialer(server, port, username, password),
		from:     from,
		fromName: fromName,
	}
}

func (s *Sender) Send(ev events.MailEvent) error {
	body, err := renderBody(ev.Template, ev.Context)
	if err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.from, s.fromName)
	m.SetHeader("To", ev.Recipients...)
	m.SetHeader("Subject", ev.Subject)
	m.SetBody("text/html", body)

	return s.dialer.DialAndSend(m)
}

var templates = map[string]*template.Template{
	events.TemplateVerifyEmail: template.Must(template.New(events.TemplateVerifyEmail).Parse(
		`<h1>Verify your Email</h1><p>Please click this <a href="{{.link}}">link</a> to verify your email.</p>`)),
	events.TemplateResetPassword: template.Must(template.New(events.TemplateResetPassword).Parse(
		`<h1>Reset Your Password</h1><p>Please click this <a href="{{.link}}">link</a> to reset your password.</p>`)),
	events.TemplateWelcome: template.Must(template.New(events.TemplateWelcome).Parse(
		`<h1>Welcome to {{.app_name}}</h1><p>Thanks for joining us. Happy reading!</p>`)),
}

func renderBody(name string, ctx map[string]string) (string, error) {
	tpl, ok := templates[name]
	if !ok {
		return "", fmt.Errorf("mail: unknown template %q", name)
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, ctx); err != nil {
		return "", err
	}
	return buf.String(), nil
}
