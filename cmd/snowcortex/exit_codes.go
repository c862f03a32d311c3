package main

import (
	"errors"
	"fmt"

	"github.com/dshills/snowcortex/internal/convfile"
	"github.com/dshills/snowcortex/pkg/cortex"
)

// Exit codes returned by the snowcortex CLI
const (
	ExitCodeSuccess       = 0 // Success
	ExitCodeGeneralError  = 1 // General error (invalid arguments, unexpected failures)
	ExitCodeConfigError   = 2 // Missing or invalid configuration
	ExitCodeInputError    = 3 // Conversation input could not be read or parsed
	ExitCodeQueryError    = 4 // Snowflake rejected or failed the Cortex call
	ExitCodeResponseError = 5 // Cortex reply could not be interpreted
	ExitCodeOutputError   = 6 // Results could not be written
)

// ExitError wraps an error with an exit code
type ExitError struct {
	Code int
	Err  error
}

func (e ExitError) Error() string {
	return e.Err.Error()
}

func (e ExitError) Unwrap() error {
	return e.Err
}

// classify wraps err in an ExitError whose code reflects the adapter error type
func classify(err error) error {
	if err == nil {
		return nil
	}

	var exitErr ExitError
	if errors.As(err, &exitErr) {
		return err
	}

	var (
		cfgErr   *cortex.ConfigError
		queryErr *cortex.QueryError
		respErr  *cortex.ResponseError
		roleErr  *cortex.UnknownRoleError
		parseErr *convfile.ParseError
	)

	switch {
	case errors.As(err, &cfgErr):
		return ExitError{Code: ExitCodeConfigError, Err: err}
	case errors.As(err, &parseErr), errors.As(err, &roleErr):
		return ExitError{Code: ExitCodeInputError, Err: err}
	case errors.As(err, &queryErr):
		return ExitError{Code: ExitCodeQueryError, Err: err}
	case errors.As(err, &respErr):
		return ExitError{Code: ExitCodeResponseError, Err: err}
	default:
		return ExitError{Code: ExitCodeGeneralError, Err: err}
	}
}

// FormatError formats an error message for display
func FormatError(err error, command string) string {
	var exitErr ExitError
	if !errors.As(err, &exitErr) {
		exitErr = ExitError{Code: ExitCodeGeneralError, Err: err}
	}

	errorType := getErrorType(exitErr.Code)

	msg := fmt.Sprintf("Error: %s\n\n", errorType)
	msg += fmt.Sprintf("%s\n\n", exitErr.Error())
	if command == "" {
		msg += "For help, run: snowcortex --help\n"
	} else {
		msg += fmt.Sprintf("For help, run: snowcortex %s --help\n", command)
	}

	return msg
}

func getErrorType(code int) string {
	switch code {
	case ExitCodeConfigError:
		return "Configuration Error"
	case ExitCodeInputError:
		return "Invalid Conversation Input"
	case ExitCodeQueryError:
		return "Cortex Query Failed"
	case ExitCodeResponseError:
		return "Invalid Cortex Response"
	case ExitCodeOutputError:
		return "Output Error"
	default:
		return "Error"
	}
}
