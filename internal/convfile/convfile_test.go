package convfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dshills/snowcortex/pkg/cortex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_YAML(t *testing.T) {
	data := []byte(`
- name: greeting
  messages:
    - role: system
      content: You are to chat with the user.
    - role: user
      content: Hello
- messages:
    - role: human
      content: Hi
    - role: ai
      content: Hello!
    - role: user
      content: Bye
`)

	convs, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, convs, 2)

	assert.Equal(t, "greeting", convs[0].Name)
	assert.Equal(t, []cortex.Message{
		cortex.SystemMessage("You are to chat with the user."),
		cortex.HumanMessage("Hello"),
	}, convs[0].Messages)

	assert.Equal(t, "conversation-2", convs[1].Name)
	assert.Equal(t, []cortex.Message{
		cortex.HumanMessage("Hi"),
		cortex.AIMessage("Hello!"),
		cortex.HumanMessage("Bye"),
	}, convs[1].Messages)
}

func TestParse_JSON(t *testing.T) {
	data := []byte(`[{"name":"j","messages":[{"role":"user","content":"Hello"}]}]`)

	convs, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, cortex.HumanMessage("Hello"), convs[0].Messages[0])
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		errMsg   string
		wantLine int
	}{
		{
			name:   "empty",
			data:   "",
			errMsg: "file is empty",
		},
		{
			name:     "not a list",
			data:     "name: x\n",
			errMsg:   "expected a list",
			wantLine: 1,
		},
		{
			name:     "no messages",
			data:     "- name: x\n",
			errMsg:   "has no messages",
			wantLine: 1,
		},
		{
			name:     "unknown role",
			data:     "- messages:\n    - role: user\n      content: a\n    - role: tool\n      content: b\n",
			errMsg:   `unknown role "tool"`,
			wantLine: 4,
		},
		{
			name:     "syntax error",
			data:     "- messages:\n  - role: user\n   content: [\n",
			errMsg:   "line",
			wantLine: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			require.Error(t, err)

			var pe *ParseError
			require.True(t, errors.As(err, &pe))
			assert.Contains(t, pe.Error(), tt.errMsg)
			if tt.wantLine > 0 {
				assert.Equal(t, tt.wantLine, pe.Line)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "convs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- messages:\n    - role: user\n      content: Hello\n"), 0o600))

	convs, err := Load(path)
	require.NoError(t, err)
	require.Len(t, convs, 1)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
