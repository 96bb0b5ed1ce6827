package cli

import (
	"fmt"
	"io"

	"github.com/grovetools/claudelogs/errors"
)

// ErrorHandler turns errors into user-facing messages.
type ErrorHandler struct {
	Verbose bool
	Out     io.Writer
}

// NewErrorHandler creates a handler writing to out.
func NewErrorHandler(verbose bool, out io.Writer) *ErrorHandler {
	return &ErrorHandler{Verbose: verbose, Out: out}
}

// Handle prints a message for err and returns it unchanged.
func (h *ErrorHandler) Handle(err error) error {
	if err == nil {
		return nil
	}
	bad := DefaultTheme.Error.Render("✗")
	hint := DefaultTheme.Muted

	var detailed *errors.Error
	if e, ok := err.(*errors.Error); ok {
		detailed = e
	}
	detail := func(key string) interface{} {
		if detailed == nil {
			return ""
		}
		return detailed.Details[key]
	}

	switch errors.GetCode(err) {
	case errors.ErrCodeConfigNotFound:
		fmt.Fprintf(h.Out, "%s Configuration file %v not found\n", bad, detail("path"))
		fmt.Fprintln(h.Out, hint.Render("Omit --config to use the defaults."))

	case errors.ErrCodeConfigInvalid:
		fmt.Fprintf(h.Out, "%s Invalid configuration: %v\n", bad, err)
		fmt.Fprintln(h.Out, hint.Render("Run 'claudelogs schema config' to see the accepted keys."))

	case errors.ErrCodeProjectNotFound:
		fmt.Fprintf(h.Out, "%s No Claude Code project matches %v\n", bad, detail("projectPath"))
		fmt.Fprintln(h.Out, hint.Render("Run 'claudelogs projects' to list known projects."))

	case errors.ErrCodeSessionNotFound:
		fmt.Fprintf(h.Out, "%s Session %v not found in %v\n", bad, detail("sessionId"), detail("projectPath"))

	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidCursor:
		fmt.Fprintf(h.Out, "%s %v\n", bad, err)

	case errors.ErrCodePermissionDenied:
		fmt.Fprintf(h.Out, "%s Permission denied reading %v\n", bad, detail("path"))

	case errors.ErrCodeWatchFailed:
		fmt.Fprintf(h.Out, "%s Cannot watch for changes: %v\n", bad, err)
		fmt.Fprintln(h.Out, hint.Render("The system may be out of inotify watches."))

	default:
		fmt.Fprintf(h.Out, "%s Error: %v\n", bad, err)
	}

	if h.Verbose && detailed != nil {
		fmt.Fprintf(h.Out, "\nError details:\n%s\n", detailed.ToJSON())
	}
	return err
}
