// Package convfile loads chat conversations from YAML or JSON files with
// line-accurate error messages.
package convfile

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dshills/snowcortex/pkg/cortex"
	"gopkg.in/yaml.v3"
)

// Conversation is one named sequence of messages
type Conversation struct {
	Name     string           `yaml:"name"`
	Messages []cortex.Message `yaml:"messages"`
}

// ParseError represents a conversation file error with location information
type ParseError struct {
	Line    int    // Line number where error occurred (1-indexed, 0 if unknown)
	Message string // Error message
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("conversation file error at line %d: %s", e.Line, e.Message)
	}
	return "conversation file error: " + e.Message
}

type rawMessage struct {
	Role    string `yaml:"role"`
	Content string `yaml:"content"`
}

type rawConversation struct {
	Name     string      `yaml:"name"`
	Messages []yaml.Node `yaml:"messages"`
}

// Load reads conversations from path
func Load(path string) ([]Conversation, error) {
	//nolint:gosec // Path is supplied by the CLI user
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read conversation file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a list of conversations. JSON input is accepted as YAML.
//
//	- name: greeting
//	  messages:
//	    - role: system
//	      content: You are terse.
//	    - role: user
//	      content: Hello
func Parse(data []byte) ([]Conversation, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, yamlError(err)
	}
	if len(doc.Content) == 0 {
		return nil, &ParseError{Message: "file is empty"}
	}

	root := doc.Content[0]
	if root.Kind != yaml.SequenceNode {
		return nil, &ParseError{Line: root.Line, Message: "expected a list of conversations"}
	}

	conversations := make([]Conversation, 0, len(root.Content))
	for i, node := range root.Content {
		var raw rawConversation
		if err := node.Decode(&raw); err != nil {
			return nil, &ParseError{Line: node.Line, Message: fmt.Sprintf("conversation %d: %v", i, err)}
		}
		if len(raw.Messages) == 0 {
			return nil, &ParseError{Line: node.Line, Message: fmt.Sprintf("conversation %d has no messages", i)}
		}

		conv := Conversation{Name: raw.Name}
		if conv.Name == "" {
			conv.Name = fmt.Sprintf("conversation-%d", i+1)
		}

		for j := range raw.Messages {
			msgNode := &raw.Messages[j]
			var rm rawMessage
			if err := msgNode.Decode(&rm); err != nil {
				return nil, &ParseError{Line: msgNode.Line, Message: fmt.Sprintf("message %d: %v", j, err)}
			}

			role := normalizeRole(rm.Role)
			if !role.Valid() {
				return nil, &ParseError{
					Line:    msgNode.Line,
					Message: fmt.Sprintf("message %d: unknown role %q (use system, user or assistant)", j, rm.Role),
				}
			}
			conv.Messages = append(conv.Messages, cortex.Message{Role: role, Content: rm.Content})
		}

		conversations = append(conversations, conv)
	}

	return conversations, nil
}

// normalizeRole accepts the common aliases for the three roles
func normalizeRole(s string) cortex.Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "system":
		return cortex.RoleSystem
	case "user", "human":
		return cortex.RoleUser
	case "assistant", "ai":
		return cortex.RoleAssistant
	default:
		return cortex.Role(s)
	}
}

// yamlError extracts the line number from a yaml.v3 error when present
func yamlError(err error) error {
	var typeErr *yaml.TypeError
	msg := err.Error()
	if errors.As(err, &typeErr) && len(typeErr.Errors) > 0 {
		msg = typeErr.Errors[0]
	}

	var line int
	if idx := strings.Index(msg, "line "); idx >= 0 {
		if _, scanErr := fmt.Sscanf(msg[idx:], "line %d", &line); scanErr != nil {
			line = 0
		}
	}

	return &ParseError{Line: line, Message: strings.TrimPrefix(msg, "yaml: ")}
}
