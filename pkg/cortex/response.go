package cortex

import (
	"github.com/tidwall/gjson"
)

// Usage reports token consumption for a single Cortex call
type Usage struct {
	PromptTokens     int `json:"prompt_tokens" yaml:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens" yaml:"completion_tokens"`
	TotalTokens      int `json:"total_tokens" yaml:"total_tokens"`
}

// completion is the decoded part of a Cortex reply
type completion struct {
	Content string
	Model   string
	Usage   *Usage
}

// parseCompletion reads a Cortex COMPLETE reply:
//
//	{"choices":[{"messages":"..."}],"model":"...","usage":{...}}
func parseCompletion(raw string) (completion, error) {
	if !gjson.Valid(raw) {
		return completion{}, &ResponseError{Message: "reply is not valid JSON", Raw: raw}
	}

	content := gjson.Get(raw, "choices.0.messages")
	if !content.Exists() {
		return completion{}, &ResponseError{Message: "reply has no choices[0].messages", Raw: raw}
	}
	if content.Type != gjson.String {
		return completion{}, &ResponseError{Message: "choices[0].messages is not a string", Raw: raw}
	}

	out := completion{
		Content: content.String(),
		Model:   gjson.Get(raw, "model").String(),
	}

	if u := gjson.Get(raw, "usage"); u.IsObject() {
		out.Usage = &Usage{
			PromptTokens:     int(u.Get("prompt_tokens").Int()),
			CompletionTokens: int(u.Get("completion_tokens").Int()),
			TotalTokens:      int(u.Get("total_tokens").Int()),
		}
	}

	return out, nil
}
