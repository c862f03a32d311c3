package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dshills/snowcortex/internal/convfile"
	"github.com/dshills/snowcortex/pkg/cortex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"config", cortex.NewConfigError("missing", nil, "account (SNOWFLAKE_ACCOUNT)"), ExitCodeConfigError},
		{"wrapped config", fmt.Errorf("create: %w", cortex.NewConfigError("bad", nil)), ExitCodeConfigError},
		{"query", &cortex.QueryError{Model: "m", Function: "complete", Err: errors.New("denied")}, ExitCodeQueryError},
		{"response", &cortex.ResponseError{Message: "no choices"}, ExitCodeResponseError},
		{"unknown role", fmt.Errorf("message 0: %w", &cortex.UnknownRoleError{Role: "tool"}), ExitCodeInputError},
		{"parse", &convfile.ParseError{Line: 3, Message: "bad"}, ExitCodeInputError},
		{"generic", errors.New("boom"), ExitCodeGeneralError},
		{"already classified", ExitError{Code: ExitCodeOutputError, Err: errors.New("disk")}, ExitCodeOutputError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify(tt.err)

			var exitErr ExitError
			require.True(t, errors.As(err, &exitErr))
			assert.Equal(t, tt.code, exitErr.Code)
			assert.ErrorIs(t, err, tt.err)
		})
	}

	assert.NoError(t, classify(nil))
}

func TestFormatError(t *testing.T) {
	msg := FormatError(ExitError{Code: ExitCodeQueryError, Err: errors.New("warehouse suspended")}, "chat")

	assert.Contains(t, msg, "Error: Cortex Query Failed")
	assert.Contains(t, msg, "warehouse suspended")
	assert.Contains(t, msg, "snowcortex chat --help")

	plain := FormatError(errors.New("plain"), "generate")
	assert.Contains(t, plain, "Error: Error")
}

func TestParseLogLevel(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		_, err := parseLogLevel(level)
		assert.NoError(t, err, level)
	}

	_, err := parseLogLevel("trace")
	assert.Error(t, err)
}

func TestFormatError_RootCommand(t *testing.T) {
	msg := FormatError(errors.New("unknown flag"), "")
	assert.Contains(t, msg, "For help, run: snowcortex --help")
}
