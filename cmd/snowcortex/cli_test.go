package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/dshills/snowcortex/internal/cli"
	"github.com/dshills/snowcortex/pkg/cortex"
	"github.com/stretchr/testify/require"
)

// scriptedSession replies with canned Cortex documents and records the
// messages argument of every statement.
type scriptedSession struct {
	mu       sync.Mutex
	replies  []string
	failOn   int
	messages []string
}

func (s *scriptedSession) QueryString(_ context.Context, _ string, args ...any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages, args[1].(string))
	n := len(s.messages)
	if n == s.failOn {
		return "", errors.New("warehouse suspended")
	}
	reply := s.replies[(n-1)%len(s.replies)]
	return `{"choices":[{"messages":"` + reply + `"}],"model":"mistral-large",` +
		`"usage":{"prompt_tokens":4,"completion_tokens":2,"total_tokens":6}}`, nil
}

func (s *scriptedSession) Close() error { return nil }

func newScriptedModel(t *testing.T, session *scriptedSession) *cortex.ChatModel {
	t.Helper()

	env := map[string]string{
		cortex.EnvAccount:   "acct",
		cortex.EnvUsername:  "user",
		cortex.EnvPassword:  "pw",
		cortex.EnvDatabase:  "db",
		cortex.EnvSchema:    "public",
		cortex.EnvWarehouse: "wh",
		cortex.EnvRole:      "analyst",
	}

	chat, err := cortex.New(context.Background(),
		cortex.WithEnvLookup(func(key string) (string, bool) {
			v, ok := env[key]
			return v, ok
		}),
		cortex.WithSessionBuilder(cortex.SessionBuilderFunc(
			func(context.Context, cortex.ConnectionParams) (cortex.Session, error) {
				return session, nil
			},
		)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = chat.Close() })
	return chat
}

func newTestChatSession(t *testing.T, session *scriptedSession, stream bool) (*chatSession, *bytes.Buffer) {
	t.Helper()

	var buf bytes.Buffer
	s := &chatSession{
		chat:    newScriptedModel(t, session),
		printer: cli.NewPrinter(cli.PrinterConfig{Writer: &buf, NoColor: true}),
		stream:  stream,
		system:  "Be brief.",
	}
	s.reset()
	return s, &buf
}

func countMessages(doc string) int {
	return strings.Count(doc, `"role"`)
}
