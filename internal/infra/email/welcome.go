// Package email delivers the owner welcome mail over SMTP.
package email

import (
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"

	"pos-provisioning/internal/config"
	"pos-provisioning/internal/domain/ports/adapter"
	"pos-provisioning/internal/infra/i18n"
	"pos-provisioning/internal/infra/logging"
)

var _ adapter.WelcomeNotifier = (*SMTPNotifier)(nil)
var _ adapter.WelcomeNotifier = (*LogNotifier)(nil)

var welcomeTemplate = template.Must(template.New("welcome").Parse(`<p>{{.Greeting}}</p>
<p>{{.Active}}</p>
<p>{{.SignInWith}}</p>
<ul>
  <li>{{.EmailLabel}}: {{.Email}}</li>
  <li>{{.PasswordLabel}}: <code>{{.TemporaryPassword}}</code></li>
</ul>
{{if .LoginURL}}<p><a href="{{.LoginURL}}">{{.SignIn}}</a> {{.ChangePassword}}</p>{{end}}
`))

type welcomeData struct {
	Greeting          string
	Active            string
	SignInWith        string
	EmailLabel        string
	Email             string
	PasswordLabel     string
	TemporaryPassword string
	SignIn            string
	ChangePassword    string
	LoginURL          string
}

// dialer is the part of *gomail.Dialer the notifier uses.
type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type SMTPNotifier struct {
	from     string
	loginURL string
	tr       *i18n.Translator
	d        dialer
	log      *zerolog.Logger
}

// NewSMTPNotifier fails only when no message catalog can be loaded.
func NewSMTPNotifier(cfg config.MailConfig, logger *zerolog.Logger) (*SMTPNotifier, error) {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	return newSMTPNotifier(cfg, d, logger)
}

func newSMTPNotifier(cfg config.MailConfig, d dialer, logger *zerolog.Logger) (*SMTPNotifier, error) {
	tr, err := i18n.ForLanguage(cfg.Language)
	if err != nil {
		return nil, fmt.Errorf("mail catalog: %w", err)
	}
	if tr.Lang() != cfg.Language && cfg.Language != "" {
		logger.Warn().Str("language", cfg.Language).Str("using", tr.Lang()).Msg("no mail catalog for language")
	}
	return &SMTPNotifier{from: cfg.From, loginURL: cfg.LoginURL, tr: tr, d: d, log: logger}, nil
}

func renderWelcome(tr *i18n.Translator, msg adapter.WelcomeMessage, loginURL string) (string, error) {
	data := welcomeData{
		Greeting:          tr.T("welcome.greeting", msg.Name),
		Active:            tr.T("welcome.active", msg.PlanName, msg.TenantName),
		SignInWith:        tr.T("welcome.sign_in_with"),
		EmailLabel:        tr.T("welcome.email"),
		Email:             msg.Email,
		PasswordLabel:     tr.T("welcome.temp_password"),
		TemporaryPassword: msg.TemporaryPassword,
		SignIn:            tr.T("welcome.sign_in"),
		ChangePassword:    tr.T("welcome.change_password"),
		LoginURL:          loginURL,
	}
	var buf strings.Builder
	if err := welcomeTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render welcome: %w", err)
	}
	return buf.String(), nil
}

func (n *SMTPNotifier) SendWelcome(ctx context.Context, msg adapter.WelcomeMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := renderWelcome(n.tr, msg, n.loginURL)
	if err != nil {
		return err
	}
	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", msg.Email)
	m.SetHeader("Subject", n.tr.T("welcome.subject"))
	m.SetBody("text/html", body)

	if err := n.d.DialAndSend(m); err != nil {
		return fmt.Errorf("send welcome to %s: %w", logging.Redact(msg.Email, false), err)
	}
	logging.With(ctx, n.log).Debug().Str("to", logging.Redact(msg.Email, false)).Msg("welcome mail sent")
	return nil
}

// LogNotifier is used when mail delivery is disabled. It never logs the
// temporary password.
type LogNotifier struct {
	log *zerolog.Logger
}

func NewLogNotifier(logger *zerolog.Logger) *LogNotifier { return &LogNotifier{log: logger} }

func (n *LogNotifier) SendWelcome(ctx context.Context, msg adapter.WelcomeMessage) error {
	logging.With(ctx, n.log).Info().
		Str("to", logging.Redact(msg.Email, false)).
		Str("tenant", msg.TenantName).
		Str("plan", msg.PlanName).
		Msg("mail disabled, welcome not delivered")
	return nil
}
