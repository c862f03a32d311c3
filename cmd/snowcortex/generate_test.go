package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/dshills/snowcortex/internal/convfile"
	"github.com/dshills/snowcortex/pkg/cortex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func testBatchOutput(t *testing.T) generateOutput {
	t.Helper()

	convs, err := convfile.Parse([]byte(`
- name: a
  messages:
    - role: user
      content: Hello
- name: b
  messages:
    - role: user
      content: Hi
`))
	require.NoError(t, err)

	chat := newScriptedModel(t, &scriptedSession{replies: []string{"reply"}})
	result, err := chat.Generate(context.Background(), [][]cortex.Message{convs[0].Messages, convs[1].Messages})
	require.NoError(t, err)

	return buildGenerateOutput(convs, result, 1500*time.Millisecond)
}

func TestBuildGenerateOutput(t *testing.T) {
	out := testBatchOutput(t)

	require.Len(t, out.Replies, 2)
	assert.Equal(t, "a", out.Replies[0].Name)
	assert.Equal(t, "b", out.Replies[1].Name)
	for _, r := range out.Replies {
		assert.Equal(t, "reply", r.Reply)
		assert.Equal(t, "mistral-large", r.Model)
		assert.NotEmpty(t, r.RunID)
	}
	assert.NotEqual(t, out.Replies[0].RunID, out.Replies[1].RunID)
	assert.Equal(t, 12, out.Usage.TotalTokens)
	assert.Equal(t, "1.5s", out.Duration)
}

func TestWriteGenerateOutput(t *testing.T) {
	out := testBatchOutput(t)

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeGenerateOutput(&buf, out, "json"))

		var decoded generateOutput
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, out, decoded)
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeGenerateOutput(&buf, out, "yaml"))

		var decoded generateOutput
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, out, decoded)
		assert.Contains(t, buf.String(), "replies:")
	})
}

// closeRecorder is an in-memory WriteCloser whose Close can fail
type closeRecorder struct {
	bytes.Buffer
	closeErr error
	closed   int
}

func (c *closeRecorder) Close() error {
	c.closed++
	return c.closeErr
}

func TestWriteAndClose(t *testing.T) {
	out := testBatchOutput(t)

	t.Run("success", func(t *testing.T) {
		w := &closeRecorder{}
		require.NoError(t, writeAndClose(w, out, "json"))
		assert.Equal(t, 1, w.closed)
		assert.Contains(t, w.String(), `"replies"`)
	})

	t.Run("close failure is an output error", func(t *testing.T) {
		diskFull := errors.New("no space left on device")
		w := &closeRecorder{closeErr: diskFull}

		err := writeAndClose(w, out, "yaml")
		require.Error(t, err)

		var exitErr ExitError
		require.True(t, errors.As(err, &exitErr))
		assert.Equal(t, ExitCodeOutputError, exitErr.Code)
		assert.ErrorIs(t, err, diskFull)
		assert.Equal(t, 1, w.closed)
	})
}
