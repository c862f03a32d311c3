package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dshills/snowcortex/internal/convfile"
	"github.com/dshills/snowcortex/pkg/cortex"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	generateOutputFormat string
	generateOutputFile   string
	generateParallel     int
)

var generateCmd = &cobra.Command{
	Use:   "generate <conversations-file>",
	Short: "Generate replies for a batch of conversations",
	Long: `Read a YAML or JSON list of conversations and ask Cortex for one reply per
conversation. Replies are written in input order.

File format:
  - name: greeting
    messages:
      - role: system
        content: You are terse.
      - role: user
        content: Hello

Examples:
  snowcortex generate conversations.yaml
  snowcortex generate conversations.yaml --parallel 4 --output-format json --output replies.json`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func setupGenerateFlags() {
	generateCmd.Flags().StringVar(&generateOutputFormat, "output-format", "yaml", "output format (yaml, json)")
	generateCmd.Flags().StringVarP(&generateOutputFile, "output", "o", "", "write results to this file instead of stdout")
	generateCmd.Flags().IntVarP(&generateParallel, "parallel", "p", 0, "maximum concurrent Cortex calls (default from config)")
}

// generateReply is one conversation's entry in the output document
type generateReply struct {
	Name  string `json:"name" yaml:"name"`
	Reply string `json:"reply" yaml:"reply"`
	Model string `json:"model,omitempty" yaml:"model,omitempty"`
	RunID string `json:"run_id" yaml:"run_id"`
}

// generateOutput is the document written by the generate command
type generateOutput struct {
	Replies  []generateReply `json:"replies" yaml:"replies"`
	Usage    cortex.Usage    `json:"usage" yaml:"usage"`
	Duration string          `json:"duration" yaml:"duration"`
}

func runGenerate(cmd *cobra.Command, args []string) error {
	inputPath := args[0]

	if generateOutputFormat != "yaml" && generateOutputFormat != "json" {
		return ExitError{
			Code: ExitCodeGeneralError,
			Err:  fmt.Errorf("invalid output format: %s (must be yaml or json)", generateOutputFormat),
		}
	}
	if cmd.Flags().Changed("parallel") && generateParallel <= 0 {
		return ExitError{Code: ExitCodeGeneralError, Err: fmt.Errorf("--parallel must be positive")}
	}

	log.Info().
		Str("input", inputPath).
		Str("format", generateOutputFormat).
		Msg("Starting batch generation")

	conversations, err := convfile.Load(inputPath)
	if err != nil {
		return ExitError{Code: ExitCodeInputError, Err: err}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if cmd.Flags().Changed("parallel") {
		cfg.Generate.MaxParallel = generateParallel
	}

	chat, cleanup, err := newChatModel(ctx, cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	var opts []cortex.CallOption
	if stop := flagsByCommand[cmd].stopSequences(); len(stop) > 0 {
		opts = append(opts, cortex.WithStop(stop...))
	}

	batch := make([][]cortex.Message, len(conversations))
	for i, conv := range conversations {
		batch[i] = conv.Messages
	}

	start := time.Now()
	result, err := chat.Generate(ctx, batch, opts...)
	if err != nil {
		log.Error().Err(err).Msg("Batch generation failed")
		return classify(err)
	}

	output := buildGenerateOutput(conversations, result, time.Since(start))

	log.Info().
		Int("conversations", len(conversations)).
		Int("total_tokens", result.Usage.TotalTokens).
		Str("duration", output.Duration).
		Msg("Batch generation completed")

	if generateOutputFile == "" {
		return writeGenerateOutput(cmd.OutOrStdout(), output, generateOutputFormat)
	}

	//nolint:gosec // Output path is supplied by the CLI user
	f, err := os.Create(generateOutputFile)
	if err != nil {
		return ExitError{Code: ExitCodeOutputError, Err: fmt.Errorf("failed to create output file: %w", err)}
	}
	return writeAndClose(f, output, generateOutputFormat)
}

// writeAndClose writes the output document and closes w. A failed close is
// an output error.
func writeAndClose(w io.WriteCloser, output generateOutput, format string) error {
	if err := writeGenerateOutput(w, output, format); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return ExitError{Code: ExitCodeOutputError, Err: fmt.Errorf("failed to close output file: %w", err)}
	}
	return nil
}

func buildGenerateOutput(conversations []convfile.Conversation, result *cortex.LLMResult, elapsed time.Duration) generateOutput {
	output := generateOutput{
		Replies:  make([]generateReply, 0, len(conversations)),
		Usage:    result.Usage,
		Duration: elapsed.Round(time.Millisecond).String(),
	}

	for i, conv := range conversations {
		entry := generateReply{Name: conv.Name}
		if i < len(result.Generations) && len(result.Generations[i]) > 0 {
			gen := result.Generations[i][0]
			entry.Reply = gen.Text
			entry.Model = gen.Info["model"]
			entry.RunID = gen.Info["run_id"]
		}
		output.Replies = append(output.Replies, entry)
	}

	return output
}

func writeGenerateOutput(w io.Writer, output generateOutput, format string) error {
	var err error
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(output)
	default:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		err = enc.Encode(output)
		if err == nil {
			err = enc.Close()
		}
	}

	if err != nil {
		return ExitError{Code: ExitCodeOutputError, Err: fmt.Errorf("failed to write output: %w", err)}
	}
	return nil
}
