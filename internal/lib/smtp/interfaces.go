// Package smtp wraps net/smtp behind small interfaces so the notification
// sender can be tested without a mail server.
package smtp

import "io"

// Client is the subset of *smtp.Client used to deliver one message.
type Client interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// TransportInterface opens authenticated SMTP sessions.
type TransportInterface interface {
	Connect() (Client, error)
	Sender() string
}
