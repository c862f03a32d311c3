// Package cortex provides a chat-model adapter for Snowflake Cortex LLM functions.
package cortex

import "fmt"

// Role identifies the author of a chat message
type Role string

// Role constants. The set is closed; ConvertMessage rejects anything else.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

// Message is a single chat message
type Message struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`

	// Usage is populated on assistant replies returned by ChatModel
	Usage *Usage `json:"usage,omitempty" yaml:"usage,omitempty"`
}

// SystemMessage creates a system message
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// HumanMessage creates a user message
func HumanMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AIMessage creates an assistant message
func AIMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// MessageDict is the role/content record sent to Cortex
type MessageDict struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// UnknownRoleError is returned when a message carries a role outside the known set
type UnknownRoleError struct {
	Role Role
}

// Error implements the error interface
func (e *UnknownRoleError) Error() string {
	return fmt.Sprintf("unknown message role: %q", string(e.Role))
}

// ConvertMessage maps a message to its role/content record
func ConvertMessage(m Message) (MessageDict, error) {
	var role string
	switch m.Role {
	case RoleSystem:
		role = "system"
	case RoleUser:
		role = "user"
	case RoleAssistant:
		role = "assistant"
	default:
		return MessageDict{}, &UnknownRoleError{Role: m.Role}
	}

	return MessageDict{Role: role, Content: m.Content}, nil
}

// ConvertMessages maps messages to role/content records, preserving order
func ConvertMessages(messages []Message) ([]MessageDict, error) {
	dicts := make([]MessageDict, 0, len(messages))
	for i, m := range messages {
		d, err := ConvertMessage(m)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		dicts = append(dicts, d)
	}
	return dicts, nil
}
