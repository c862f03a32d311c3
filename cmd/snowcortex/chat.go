package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dshills/snowcortex/internal/cli"
	"github.com/dshills/snowcortex/pkg/cortex"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	chatSystem    string
	chatStream    bool
	chatShowUsage bool
	chatQuiet     bool
	chatNoColor   bool
)

var chatCmd = &cobra.Command{
	Use:   "chat [prompt]",
	Short: "Chat with a Cortex model",
	Long: `Send a single prompt to Snowflake Cortex, or start an interactive session
when no prompt is given. In interactive mode each line is sent together with
the conversation so far. Type /reset to start over and /exit to quit.

Examples:
  snowcortex chat "Summarize the benefits of columnar storage"
  snowcortex chat --model llama3.1-70b --system "Answer in one sentence" "What is a warehouse?"
  snowcortex chat --authenticator username_password_mfa`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChat,
}

func setupChatFlags() {
	chatCmd.Flags().StringVarP(&chatSystem, "system", "s", "", "system prompt prepended to the conversation")
	chatCmd.Flags().BoolVar(&chatStream, "stream", false, "print the reply in chunks as they are produced")
	chatCmd.Flags().BoolVar(&chatShowUsage, "usage", false, "print token usage after each reply")
	chatCmd.Flags().BoolVarP(&chatQuiet, "quiet", "q", false, "print reply text only")
	chatCmd.Flags().BoolVar(&chatNoColor, "no-color", false, "disable colored output")
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	chat, cleanup, err := newChatModel(ctx, cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	printer := cli.NewPrinter(cli.PrinterConfig{
		Writer:    cmd.OutOrStdout(),
		ShowUsage: chatShowUsage,
		NoColor:   chatNoColor,
		Quiet:     chatQuiet,
	})

	session := &chatSession{
		chat:    chat,
		printer: printer,
		stop:    flagsByCommand[cmd].stopSequences(),
		stream:  chatStream,
		system:  chatSystem,
	}
	session.reset()

	log.Info().
		Str("model", chat.Model()).
		Bool("interactive", len(args) == 0).
		Msg("Starting chat")

	if len(args) == 1 {
		if err := session.send(ctx, args[0]); err != nil {
			return classify(err)
		}
		printer.PrintSummary()
		return nil
	}

	if err := session.repl(ctx, cmd.InOrStdin()); err != nil {
		return classify(err)
	}
	printer.PrintSummary()
	return nil
}

// chatSession holds the running conversation for one chat command
type chatSession struct {
	chat    *cortex.ChatModel
	printer *cli.Printer
	stop    []string
	stream  bool
	system  string

	history []cortex.Message
}

func (s *chatSession) reset() {
	s.history = s.history[:0]
	if s.system != "" {
		s.history = append(s.history, cortex.SystemMessage(s.system))
	}
}

// send appends the prompt, calls Cortex and records the reply in the history.
// A failed call leaves the history unchanged.
func (s *chatSession) send(ctx context.Context, prompt string) error {
	messages := append(append([]cortex.Message(nil), s.history...), cortex.HumanMessage(prompt))

	var opts []cortex.CallOption
	if len(s.stop) > 0 {
		opts = append(opts, cortex.WithStop(s.stop...))
	}

	reply, err := s.call(ctx, messages, opts)
	if err != nil {
		return err
	}

	s.history = append(messages, reply)
	return nil
}

func (s *chatSession) call(ctx context.Context, messages []cortex.Message, opts []cortex.CallOption) (cortex.Message, error) {
	if s.stream {
		return s.callStreaming(ctx, messages, opts)
	}

	s.printer.StartSpinner("Waiting for Cortex")
	result, err := s.chat.InvokeResult(ctx, messages, opts...)
	s.printer.StopSpinner()
	if err != nil {
		return cortex.Message{}, err
	}

	reply := result.Generations[0].Message
	s.printer.PrintMessage(reply)
	s.printer.RecordResult(result)
	return cortex.AIMessage(reply.Content), nil
}

// callStreaming prints the reply chunk by chunk and still records its usage
func (s *chatSession) callStreaming(ctx context.Context, messages []cortex.Message, opts []cortex.CallOption) (cortex.Message, error) {
	result, err := s.chat.InvokeResult(ctx, messages, opts...)
	if err != nil {
		return cortex.Message{}, err
	}

	reply := result.Generations[0].Message
	s.printer.PrintReplyStart()
	for _, chunk := range cortex.SplitChunks(reply.Content) {
		s.printer.PrintChunk(chunk)
	}
	s.printer.PrintReplyEnd()
	s.printer.RecordResult(result)

	return cortex.AIMessage(reply.Content), nil
}

// repl reads prompts line by line until EOF or /exit. Query failures are
// printed and the session continues; context cancellation ends it.
func (s *chatSession) repl(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		case "/reset":
			s.reset()
			log.Debug().Msg("Conversation reset")
			continue
		}

		if err := s.send(ctx, line); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.printer.PrintError(err)
			log.Warn().Err(err).Msg("Chat turn failed")
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	return nil
}
