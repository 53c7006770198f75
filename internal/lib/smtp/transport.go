package smtp

import (
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/smtp"
	"time"

	"github.com/solvix/solvix-devis/internal/config"
	"github.com/solvix/solvix-devis/internal/lib/sl"
)

const dialTimeout = 10 * time.Second

// Transport dials the configured SMTP server, upgrades with STARTTLS and
// authenticates with PLAIN.
type Transport struct {
	cfg config.SMTP
	log *slog.Logger
}

type clientWrapper struct {
	client *smtp.Client
}

func (w *clientWrapper) Mail(from string) error        { return w.client.Mail(from) }
func (w *clientWrapper) Rcpt(to string) error          { return w.client.Rcpt(to) }
func (w *clientWrapper) Data() (io.WriteCloser, error) { return w.client.Data() }
func (w *clientWrapper) Quit() error                   { return w.client.Quit() }
func (w *clientWrapper) Close() error                  { return w.client.Close() }

// NewTransport creates a Transport for cfg.
func NewTransport(cfg config.SMTP, log *slog.Logger) *Transport {
	return &Transport{cfg: cfg, log: log}
}

// Connect opens a new authenticated session. The caller owns the returned client.
func (t *Transport) Connect() (Client, error) {
	const op = "smtp.Connect"
	log := t.log.With(sl.Op(op), slog.String("host", t.cfg.Host))

	conn, err := net.DialTimeout("tcp", net.JoinHostPort(t.cfg.Host, t.cfg.Port), dialTimeout)
	if err != nil {
		log.Error("failed to dial SMTP server", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	client, err := smtp.NewClient(conn, t.cfg.Host)
	if err != nil {
		log.Error("failed to create SMTP client", sl.Err(err))
		if closeErr := conn.Close(); closeErr != nil {
			log.Error("failed to close connection", sl.Err(closeErr))
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	fail := func(err error) (Client, error) {
		if closeErr := client.Close(); closeErr != nil {
			log.Error("failed to close client", sl.Err(closeErr))
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if ok, _ := client.Extension("STARTTLS"); !ok {
		log.Error("SMTP server does not support STARTTLS")
		return fail(fmt.Errorf("smtp server does not support STARTTLS"))
	}
	if err := client.StartTLS(&tls.Config{ServerName: t.cfg.Host, MinVersion: tls.VersionTLS12}); err != nil {
		log.Error("failed to start TLS", sl.Err(err))
		return fail(err)
	}
	if t.cfg.User != "" {
		if err := client.Auth(smtp.PlainAuth("", t.cfg.User, t.cfg.Password, t.cfg.Host)); err != nil {
			log.Error("smtp auth failed", sl.Err(err))
			return fail(err)
		}
	}

	return &clientWrapper{client: client}, nil
}

// Sender returns the envelope sender address.
func (t *Transport) Sender() string {
	if t.cfg.From != "" {
		return t.cfg.From
	}
	return t.cfg.User
}
