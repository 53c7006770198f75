// Package services delivers notification emails consumed from the queue.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"strings"
	"text/template"

	"github.com/solvix/solvix-devis/internal/lib/sl"
	"github.com/solvix/solvix-devis/internal/lib/smtp"
	"github.com/solvix/solvix-devis/internal/metrics"
	"github.com/solvix/solvix-devis/internal/models"
	"github.com/solvix/solvix-devis/internal/storage/repository"
)

// Errors for messages that can never be delivered. The consumer drops them
// instead of requeueing.
var (
	ErrUnknownType      = errors.New("unknown notification type")
	ErrMalformedEvent   = errors.New("malformed notification event")
	ErrUnknownRecipient = errors.New("notification recipient does not exist")
)

type UserRepository interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

type PreferencesProvider interface {
	Get(ctx context.Context, userID string) (*models.NotificationPreferences, error)
}

type mailTemplate struct {
	subject *template.Template
	body    *template.Template
}

func mustTemplate(name, subject, body string) mailTemplate {
	return mailTemplate{
		subject: template.Must(template.New(name + "_subject").Option("missingkey=zero").Parse(subject)),
		body:    template.Must(template.New(name + "_body").Option("missingkey=zero").Parse(body)),
	}
}

var templates = map[models.NotificationType]mailTemplate{
	models.NotificationNewQuote: mustTemplate("new_quote",
		`Nouveau devis {{.quote_number}} créé`,
		`Bonjour,

Votre devis {{.quote_number}}{{if .client_name}} pour {{.client_name}}{{end}} a bien été créé.
Montant TTC : {{.total_ttc}} {{.currency}}.

L'équipe Solvix
`),
	models.NotificationQuoteAccepted: mustTemplate("quote_accepted",
		`Devis {{.quote_number}} accepté`,
		`Bonjour,

Bonne nouvelle : le devis {{.quote_number}} a été accepté.

L'équipe Solvix
`),
	models.NotificationQuoteStatusChanged: mustTemplate("quote_status_changed",
		`Devis {{.quote_number}} : statut {{.new_status}}`,
		`Bonjour,

Le statut du devis {{.quote_number}} est passé de « {{.old_status}} » à « {{.new_status}} ».

L'équipe Solvix
`),
	models.NotificationPasswordReset: mustTemplate("password_reset",
		`Réinitialisation de votre mot de passe Solvix`,
		`Bonjour,

Pour choisir un nouveau mot de passe, ouvrez le lien suivant dans l'heure :
{{.reset_url}}

Si vous n'êtes pas à l'origine de cette demande, ignorez cet email.

L'équipe Solvix
`),
}

type SenderService struct {
	users     UserRepository
	prefs     PreferencesProvider
	transport smtp.TransportInterface
	log       *slog.Logger
}

func NewSenderService(users UserRepository, prefs PreferencesProvider, transport smtp.TransportInterface, log *slog.Logger) *SenderService {
	return &SenderService{
		users:     users,
		prefs:     prefs,
		transport: transport,
		log:       log,
	}
}

// Handle processes one queued event: it resolves the recipient, honours the
// recipient's preferences and sends the rendered email.
func (s *SenderService) Handle(ctx context.Context, body []byte) error {
	const op = "services.sender.Handle"

	var event models.NotificationEvent
	if err := json.Unmarshal(body, &event); err != nil {
		s.log.Error("failed to unmarshal notification", sl.Op(op), sl.Err(err))
		return fmt.Errorf("%s: %w: error unmarshalling message: %w", op, ErrMalformedEvent, err)
	}
	log := s.log.With(sl.Op(op), slog.String("type", string(event.Type)), slog.String("user_id", event.UserID))

	tmpl, ok := templates[event.Type]
	if !ok {
		log.Warn("no template for notification type")
		return fmt.Errorf("%s: %w: %q", op, ErrUnknownType, event.Type)
	}

	user, err := s.users.GetUser(ctx, event.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		log.Warn("recipient not found, dropping notification")
		return fmt.Errorf("%s: %w: %w", op, ErrUnknownRecipient, err)
	}
	if err != nil {
		return fmt.Errorf("%s: failed to get recipient: %w", op, err)
	}

	prefs, err := s.prefs.Get(ctx, event.UserID)
	if err != nil {
		return fmt.Errorf("%s: failed to get preferences: %w", op, err)
	}
	if !prefs.Allows(event.Type) {
		metrics.Notifications.WithLabelValues(string(event.Type), "skipped").Inc()
		log.Info("notification disabled by user preferences")
		return nil
	}

	subject, text, err := render(tmpl, event.Data)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.sendEmail([]string{user.Email}, subject, text); err != nil {
		metrics.Notifications.WithLabelValues(string(event.Type), "failed").Inc()
		return fmt.Errorf("%s: %w", op, err)
	}
	metrics.Notifications.WithLabelValues(string(event.Type), "sent").Inc()
	return nil
}

func render(t mailTemplate, data map[string]string) (string, string, error) {
	if data == nil {
		data = map[string]string{}
	}
	var subject, body bytes.Buffer
	if err := t.subject.Execute(&subject, data); err != nil {
		return "", "", err
	}
	if err := t.body.Execute(&body, data); err != nil {
		return "", "", err
	}
	return strings.TrimSpace(subject.String()), body.String(), nil
}

func (s *SenderService) sendEmail(to []string, subject, bodyText string) error {
	from := s.transport.Sender()
	msg := strings.Join([]string{
		"From: " + from,
		"To: " + strings.Join(to, ", "),
		"Subject: " + mime.QEncoding.Encode("utf-8", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		strings.ReplaceAll(bodyText, "\n", "\r\n"),
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Mail(from); err != nil {
		s.log.Error("failed to set MAIL FROM", slog.String("from", from), sl.Err(err))
		return err
	}
	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("failed to set RCPT TO", slog.String("recipient", addr), sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to get data writer", sl.Err(err))
		return err
	}
	if _, err := wc.Write([]byte(msg)); err != nil {
		s.log.Error("failed to write email body", sl.Err(err))
		return err
	}
	if err := wc.Close(); err != nil {
		s.log.Error("failed to close data writer", sl.Err(err))
		return err
	}
	if err := client.Quit(); err != nil {
		s.log.Error("failed to quit SMTP session", sl.Err(err))
		return err
	}

	s.log.Info("email sent", slog.Any("to", to))
	return nil
}
