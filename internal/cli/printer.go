// Package cli provides terminal output helpers for snowcortex, including
// transcript rendering and a wait spinner.
package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dshills/snowcortex/pkg/cortex"
	"github.com/fatih/color"
)

// PrinterConfig configures transcript output
type PrinterConfig struct {
	// Writer is where output is written
	Writer io.Writer

	// ShowUsage prints token usage after each reply
	ShowUsage bool

	// NoColor disables ANSI colors
	NoColor bool

	// Quiet suppresses everything except reply text
	Quiet bool
}

// Printer renders chat transcripts
type Printer struct {
	config PrinterConfig
	mu     sync.Mutex

	// Totals
	replies     int
	cachedCount int
	usage       cortex.Usage
	startTime   time.Time

	// Colors
	green  *color.Color
	yellow *color.Color
	red    *color.Color
	cyan   *color.Color
	gray   *color.Color
	bold   *color.Color

	// Spinner
	spinnerChars []string
	stopSpinner  chan struct{}
	spinnerDone  chan struct{}
}

// NewPrinter creates a new transcript printer
func NewPrinter(config PrinterConfig) *Printer {
	p := &Printer{
		config:       config,
		startTime:    time.Now(),
		green:        color.New(color.FgGreen),
		yellow:       color.New(color.FgYellow),
		red:          color.New(color.FgRed),
		cyan:         color.New(color.FgCyan),
		gray:         color.New(color.FgHiBlack),
		bold:         color.New(color.Bold),
		spinnerChars: []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
	}

	if config.NoColor {
		for _, c := range []*color.Color{p.green, p.yellow, p.red, p.cyan, p.gray, p.bold} {
			c.DisableColor()
		}
	}

	return p
}

// roleLabel returns the colored prefix for a role
func (p *Printer) roleLabel(role cortex.Role) string {
	switch role {
	case cortex.RoleSystem:
		return p.yellow.Sprint("system")
	case cortex.RoleUser:
		return p.cyan.Sprint("user")
	case cortex.RoleAssistant:
		return p.green.Sprint("assistant")
	default:
		return p.red.Sprint(string(role))
	}
}

// PrintMessage prints one transcript line
func (p *Printer) PrintMessage(msg cortex.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.config.Quiet {
		if msg.Role == cortex.RoleAssistant {
			fmt.Fprintln(p.config.Writer, msg.Content)
		}
		return
	}

	fmt.Fprintf(p.config.Writer, "%s: %s\n", p.roleLabel(msg.Role), msg.Content)
}

// PrintReplyStart prints the assistant label before streamed chunks
func (p *Printer) PrintReplyStart() {
	if p.config.Quiet {
		return
	}
	fmt.Fprintf(p.config.Writer, "%s: ", p.roleLabel(cortex.RoleAssistant))
}

// PrintChunk writes one streamed chunk without a newline
func (p *Printer) PrintChunk(chunk string) {
	fmt.Fprint(p.config.Writer, chunk)
}

// PrintReplyEnd terminates a streamed reply
func (p *Printer) PrintReplyEnd() {
	fmt.Fprintln(p.config.Writer)
}

// RecordResult adds a result to the running totals and prints its usage line
func (p *Printer) RecordResult(result *cortex.ChatResult) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.replies++
	if result.Cached {
		p.cachedCount++
	}
	if result.Usage != nil {
		p.usage.PromptTokens += result.Usage.PromptTokens
		p.usage.CompletionTokens += result.Usage.CompletionTokens
		p.usage.TotalTokens += result.Usage.TotalTokens
	}

	if !p.config.ShowUsage || p.config.Quiet {
		return
	}

	line := fmt.Sprintf("  [%s", result.Model)
	if result.Usage != nil {
		line += fmt.Sprintf(", %s prompt + %s completion tokens",
			formatNumber(int64(result.Usage.PromptTokens)),
			formatNumber(int64(result.Usage.CompletionTokens)))
	}
	if result.Cached {
		line += ", cached"
	}
	line += "]"
	p.gray.Fprintln(p.config.Writer, line)
}

// PrintError prints an error without aborting the session
func (p *Printer) PrintError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.red.Fprintf(p.config.Writer, "✗ %s\n", err)
}

// PrintSummary prints the totals collected by RecordResult
func (p *Printer) PrintSummary() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.config.Quiet || p.replies == 0 {
		return
	}

	fmt.Fprintln(p.config.Writer)
	fmt.Fprintln(p.config.Writer, strings.Repeat("=", 50))
	p.bold.Fprintln(p.config.Writer, "Session Summary")
	fmt.Fprintf(p.config.Writer, "  Replies: %d", p.replies)
	if p.cachedCount > 0 {
		p.green.Fprintf(p.config.Writer, " (%d cached)", p.cachedCount)
	}
	fmt.Fprintln(p.config.Writer)
	fmt.Fprintf(p.config.Writer, "  Tokens: %s prompt, %s completion, %s total\n",
		formatNumber(int64(p.usage.PromptTokens)),
		formatNumber(int64(p.usage.CompletionTokens)),
		formatNumber(int64(p.usage.TotalTokens)))
	fmt.Fprintf(p.config.Writer, "  Duration: %s\n", formatDuration(time.Since(p.startTime)))
}

// StartSpinner shows a spinner until StopSpinner is called. Calling it while
// a spinner is running is a no-op.
func (p *Printer) StartSpinner(label string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.config.Quiet || p.stopSpinner != nil {
		return
	}

	p.stopSpinner = make(chan struct{})
	p.spinnerDone = make(chan struct{})
	go p.runSpinner(label, p.stopSpinner, p.spinnerDone)
}

// StopSpinner stops the running spinner and clears its line
func (p *Printer) StopSpinner() {
	p.mu.Lock()
	stop, done := p.stopSpinner, p.spinnerDone
	p.stopSpinner, p.spinnerDone = nil, nil
	p.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done

	fmt.Fprintf(p.config.Writer, "\r%s\r", strings.Repeat(" ", 60))
}

func (p *Printer) runSpinner(label string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	start := time.Now()
	for i := 0; ; i++ {
		select {
		case <-stop:
			return
		case <-ticker.C:
			fmt.Fprintf(p.config.Writer, "\r%s %s (%s)",
				p.cyan.Sprint(p.spinnerChars[i%len(p.spinnerChars)]),
				label,
				p.gray.Sprint(formatDuration(time.Since(start))))
		}
	}
}

// formatDuration formats a duration for display
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%.0fms", float64(d.Milliseconds()))
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm%ds", minutes, seconds)
}

// formatNumber formats a number with thousand separators
func formatNumber(n int64) string {
	str := fmt.Sprintf("%d", n)
	if len(str) <= 3 {
		return str
	}

	var result strings.Builder
	for i, c := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result.WriteRune(',')
		}
		result.WriteRune(c)
	}
	return result.String()
}
