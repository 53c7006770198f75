// Package sl holds small helpers for structured slog attributes.
package sl

import "log/slog"

// Err returns an "error" attribute carrying err's text. A nil error is
// rendered as an empty string so call sites never have to guard.
//
//	log.Error("failed to load quote", sl.Err(err))
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

// Op returns the "op" attribute used to tag every log line with its operation.
func Op(op string) slog.Attr {
	return slog.String("op", op)
}
