package cortex

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

const (
	// DefaultModel is the Cortex model used when none is configured
	DefaultModel = "mistral-large"

	// DefaultFunction is the Cortex function used for chat completions
	DefaultFunction = "complete"

	defaultTopP      = 1.0
	defaultMaxTokens = 2048
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateFunction checks that a Cortex function name is safe to splice into SQL
func ValidateFunction(name string) error {
	if !identifierPattern.MatchString(name) {
		return NewConfigError(fmt.Sprintf("invalid cortex function name %q", name), nil, "cortex_function")
	}
	return nil
}

// completionOptions is the options object passed to the Cortex function
type completionOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	MaxTokens   int     `json:"max_tokens"`
}

// statement is a bound Cortex call
type statement struct {
	SQL  string
	Args []any
}

// buildStatement renders the SQL for one Cortex call. The model, messages and
// options travel as bind parameters; only the validated function name is
// spliced into the text.
func buildStatement(function, model string, messages []MessageDict, opts completionOptions) (statement, error) {
	if err := ValidateFunction(function); err != nil {
		return statement{}, err
	}

	messagesJSON, err := json.Marshal(messages)
	if err != nil {
		return statement{}, fmt.Errorf("failed to marshal messages: %w", err)
	}
	optionsJSON, err := json.Marshal(opts)
	if err != nil {
		return statement{}, fmt.Errorf("failed to marshal options: %w", err)
	}

	sql := fmt.Sprintf(
		"SELECT SNOWFLAKE.CORTEX.%s(?, PARSE_JSON(?), PARSE_JSON(?)) AS LLM_RESPONSE",
		strings.ToUpper(function),
	)

	return statement{
		SQL:  sql,
		Args: []any{model, string(messagesJSON), string(optionsJSON)},
	}, nil
}

// truncateAtStop cuts text at the earliest occurrence of any stop sequence
func truncateAtStop(text string, stop []string) string {
	cut := len(text)
	for _, s := range stop {
		if s == "" {
			continue
		}
		if i := strings.Index(text, s); i >= 0 && i < cut {
			cut = i
		}
	}
	return text[:cut]
}
