package cortex

// ChatGeneration is one model reply together with its text
type ChatGeneration struct {
	Text    string            `json:"text" yaml:"text"`
	Message Message           `json:"message" yaml:"message"`
	Info    map[string]string `json:"info,omitempty" yaml:"info,omitempty"`
}

// newChatGeneration keeps Text and Message.Content identical
func newChatGeneration(msg Message, info map[string]string) ChatGeneration {
	return ChatGeneration{
		Text:    msg.Content,
		Message: msg,
		Info:    info,
	}
}

// ChatResult is the outcome of a single chat call
type ChatResult struct {
	Generations []ChatGeneration `json:"generations" yaml:"generations"`
	Model       string           `json:"model" yaml:"model"`
	Usage       *Usage           `json:"usage,omitempty" yaml:"usage,omitempty"`
	RunID       string           `json:"run_id" yaml:"run_id"`
	Cached      bool             `json:"cached" yaml:"cached"`
}

// LLMResult holds one group of generations per input conversation, in input order
type LLMResult struct {
	Generations [][]ChatGeneration `json:"generations" yaml:"generations"`
	RunIDs      []string           `json:"run_ids" yaml:"run_ids"`
	Usage       Usage              `json:"usage" yaml:"usage"`
}
