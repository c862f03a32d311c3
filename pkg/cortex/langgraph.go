package cortex

import (
	"context"
	"fmt"

	"github.com/dshills/langgraph-go/graph/model"
)

// ChatModel satisfies the langgraph-go chat model contract so it can back graph nodes
var _ model.ChatModel = (*ChatModel)(nil)

// Chat implements model.ChatModel. Cortex COMPLETE has no tool calling over
// SQL, so a non-empty tool list is rejected.
func (c *ChatModel) Chat(ctx context.Context, messages []model.Message, tools []model.ToolSpec) (model.ChatOut, error) {
	if len(tools) > 0 {
		return model.ChatOut{}, fmt.Errorf("%s does not support tool calls (%d tools given)", LLMType, len(tools))
	}

	converted := make([]Message, 0, len(messages))
	for _, m := range messages {
		var role Role
		switch m.Role {
		case model.RoleSystem:
			role = RoleSystem
		case model.RoleUser:
			role = RoleUser
		case model.RoleAssistant:
			role = RoleAssistant
		default:
			return model.ChatOut{}, &UnknownRoleError{Role: Role(m.Role)}
		}
		converted = append(converted, Message{Role: role, Content: m.Content})
	}

	reply, err := c.Invoke(ctx, converted)
	if err != nil {
		return model.ChatOut{}, err
	}

	return model.ChatOut{Text: reply.Content}, nil
}
