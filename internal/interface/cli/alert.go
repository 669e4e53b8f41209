package cli

import (
	"errors"
	"strings"

	"github.com/classtrack/classtrack/internal/domain/shared"
)

// Alert turns a command error into the single line shown to the user.
func Alert(err error) string {
	if err == nil {
		return ""
	}

	var (
		usage   *UsageError
		partial *shared.PartialDeleteError
		network *shared.NetworkError
	)
	var msg string
	switch {
	case errors.As(err, &usage):
		msg = usage.Error()
	case errors.As(err, &partial):
		msg = partial.Error() + "; run the delete again to retry"
	case errors.As(err, &network):
		msg = "cannot reach the content server: " + network.Error()
	case errors.Is(err, shared.ErrUnauthorized):
		msg = "not authorized, run login with a valid token: " + err.Error()
	default:
		msg = err.Error()
	}
	return "Alert: " + oneLine(msg)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
