package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/sproutai/sprout/internal/chat"
	apierrors "github.com/sproutai/sprout/internal/errors"
	"github.com/sproutai/sprout/internal/models"
	"github.com/sproutai/sprout/internal/render"
)

// Gradient colors for animation
var gradientColors = []lipgloss.Color{
	lipgloss.Color("#66bb6a"), // Green
	lipgloss.Color("#81c784"),
	lipgloss.Color("#a5d6a7"),
	lipgloss.Color("#ffc0cb"), // Pink
	lipgloss.Color("#f8bbd0"),
	lipgloss.Color("#a5d6a7"),
}

var (
	colorText     = lipgloss.Color("#e8f5e9")
	colorTextDim  = lipgloss.Color("#b9e4c9")
	colorTextMute = lipgloss.Color("#2d6a4f")
	colorSuccess  = lipgloss.Color("#66bb6a")
	colorPrimary  = lipgloss.Color("#66bb6a")
	colorError    = lipgloss.Color("#ef5350")
)

// Styles matching the chat TUI
var (
	assistantLabelStyle = lipgloss.NewStyle().
				Foreground(colorPrimary).
				Bold(true)

	assistantBubbleStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(colorPrimary).
				Foreground(colorText).
				Padding(0, 1).
				MarginBottom(1)

	liveStyle = lipgloss.NewStyle().Foreground(colorTextDim)
)

// spinner handles the animated loading indicator
type spinner struct {
	w       io.Writer
	message string
	stop    chan struct{}
	done    chan struct{}
	mu      sync.Mutex
	frame   int
	stopped bool // Flag to prevent double-close
}

// newSpinner creates a new animated spinner writing to w
func newSpinner(w io.Writer, message string) *spinner {
	return &spinner{
		w:       w,
		message: message,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// start begins the animation
func (s *spinner) start() {
	go func() {
		defer close(s.done)

		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		// Hide cursor
		fmt.Fprint(s.w, "\033[?25l")

		for {
			select {
			case <-s.stop:
				// Clear line and show cursor
				fmt.Fprint(s.w, "\r\033[K\033[?25h")
				return
			case <-ticker.C:
				s.mu.Lock()
				s.render()
				s.frame++
				s.mu.Unlock()
			}
		}
	}()
}

// render draws the current animation frame
func (s *spinner) render() {
	chars := []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

	spinColor := gradientColors[s.frame%len(gradientColors)]
	spinnerChar := lipgloss.NewStyle().Foreground(spinColor).Bold(true).Render(chars[s.frame%len(chars)])

	var dots strings.Builder
	numDots := (s.frame / 3) % 4
	for i := 0; i < 3; i++ {
		if i < numDots {
			dotColor := gradientColors[(s.frame+i)%len(gradientColors)]
			dots.WriteString(lipgloss.NewStyle().Foreground(dotColor).Render("●"))
		} else {
			dots.WriteString(lipgloss.NewStyle().Foreground(colorTextMute).Render("○"))
		}
	}

	msg := lipgloss.NewStyle().Foreground(colorText).Render(s.message)
	fmt.Fprintf(s.w, "\r\033[K%s %s %s", spinnerChar, msg, dots.String())
}

// stopOnce safely closes the stop channel only once
func (s *spinner) stopOnce() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stopped {
		close(s.stop)
		s.stopped = true
	}
}

// stopSilently stops the spinner without a message
func (s *spinner) stopSilently() {
	s.stopOnce()
	<-s.done
}

// liveLine is the terminal Display for one-shot queries. It shows a spinner
// until the first fragment, then republishes the tail of the partial reply
// on a single line. The final reply is printed separately as a bubble.
type liveLine struct {
	w     io.Writer
	width int
	spin  *spinner
}

func newLiveLine(w io.Writer, width int) *liveLine {
	l := &liveLine{w: w, width: width, spin: newSpinner(w, "Sprout is thinking")}
	l.spin.start()
	return l
}

// Publish implements chat.Display
func (l *liveLine) Publish(text string) {
	l.stopSpinner()
	if !strings.HasSuffix(text, models.CursorMarker) {
		fmt.Fprint(l.w, "\r\033[K")
		return
	}
	fmt.Fprintf(l.w, "\r\033[K%s", liveStyle.Render(tail(render.StripCursor(text), l.width-4))+models.CursorMarker)
}

func (l *liveLine) finish() {
	l.stopSpinner()
	fmt.Fprint(l.w, "\r\033[K")
}

func (l *liveLine) stopSpinner() {
	if l.spin != nil {
		l.spin.stopSilently()
		l.spin = nil
	}
}

// tail flattens text to one line and keeps its last n runes
func tail(text string, n int) string {
	flat := []rune(strings.Join(strings.Fields(text), " "))
	if n < 1 {
		n = 1
	}
	if len(flat) <= n {
		return string(flat)
	}
	return "…" + string(flat[len(flat)-n+1:])
}

// rawDisplay writes only the newly streamed text, for pipes and files
type rawDisplay struct {
	w       io.Writer
	written string
}

// Publish implements chat.Display. Streaming frames are written as deltas.
// The final frame is only written when it extends streamed text, so a
// diagnostic never reaches stdout; the error goes to stderr instead.
func (d *rawDisplay) Publish(text string) {
	if !strings.HasSuffix(text, models.CursorMarker) && d.written == "" {
		return
	}
	text = render.StripCursor(text)
	if !strings.HasPrefix(text, d.written) {
		return
	}
	fmt.Fprint(d.w, text[len(d.written):])
	d.written = text
}

// runQuery executes a single turn and outputs the response.
// When stdout is not a terminal only the raw response text is printed.
func runQuery(ctx context.Context, deps *Dependencies, opts *rootOptions, prompt string) error {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return fmt.Errorf("prompt cannot be empty")
	}

	sess, err := newChatSession(ctx, deps, opts)
	if err != nil {
		return err
	}
	defer sess.close()

	cfg := sess.cfg
	tty := deps.IsTTY()

	if cfg.Verbose && tty {
		fmt.Fprintf(deps.Stderr, "[verbose] Model: %s\n", sess.controller.Model())
		fmt.Fprintf(deps.Stderr, "[verbose] Backend: %s\n", cfg.Backend)
	}

	ctx, cancel := withTimeout(ctx, opts.timeout)
	defer cancel()

	var display chat.Display
	var live *liveLine
	switch {
	case tty:
		live = newLiveLine(deps.Stderr, deps.TerminalWidth())
		display = live
	case opts.output != "":
		display = chat.DisplayFunc(func(string) {})
	default:
		display = &rawDisplay{w: deps.Stdout}
	}

	startTime := time.Now()
	_, err = sess.controller.Submit(ctx, prompt, display)
	requestDuration := time.Since(startTime)
	if live != nil {
		live.finish()
	}
	if err != nil {
		return err
	}

	if streamErr := sess.recorder.Err(); streamErr != nil {
		fmt.Fprintln(deps.Stderr, formatErrorMessage(streamErr, "Generation failed"))
		return fmt.Errorf("generation failed: %w", streamErr)
	}

	text, _ := sess.controller.LastReply()

	if cfg.Verbose && tty {
		fmt.Fprintf(deps.Stderr, "[verbose] Request took %s\n", requestDuration.Round(time.Millisecond))
	}

	// Raw output mode: the text was already streamed unless saving to a file
	if !tty {
		if opts.output != "" {
			if err := os.WriteFile(opts.output, []byte(text), 0o644); err != nil {
				return fmt.Errorf("failed to write output file: %w", err)
			}
		}
		return nil
	}

	if cfg.CopyToClipboard {
		if err := deps.Clipboard(text); err != nil {
			warnMsg := lipgloss.NewStyle().Foreground(colorError).Render(
				fmt.Sprintf("⚠ Failed to copy to clipboard: %v", err),
			)
			fmt.Fprintln(deps.Stderr, warnMsg)
		} else {
			fmt.Fprintln(deps.Stderr, lipgloss.NewStyle().Foreground(colorSuccess).Render("✓ Copied to clipboard"))
		}
	}

	if opts.output != "" {
		if err := os.WriteFile(opts.output, []byte(text), 0o644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		successMsg := lipgloss.NewStyle().Foreground(colorSuccess).Render(
			fmt.Sprintf("✓ Response saved to %s", opts.output),
		)
		fmt.Fprintln(deps.Stderr, successMsg)
		return nil
	}

	bubbleWidth := deps.TerminalWidth() - 4
	if bubbleWidth < 40 {
		bubbleWidth = 40
	}
	if bubbleWidth > 120 {
		bubbleWidth = 120
	}

	fmt.Fprintln(deps.Stdout, assistantLabelStyle.Render("🌱 "+models.RoleAssistant.Label()))
	rendered := render.Reply(text, render.OptionsFromConfig(cfg, bubbleWidth-4))
	fmt.Fprintln(deps.Stdout, assistantBubbleStyle.Width(bubbleWidth).Render(rendered))

	return nil
}

// getTerminalWidth returns the terminal width or a default value
func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80 // default width
	}
	return width
}

// isStdoutTTY returns true if stdout is connected to a terminal
func isStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// formatErrorMessage formats an error with additional context from structured errors
func formatErrorMessage(err error, action string) string {
	if err == nil {
		return ""
	}

	errorStyle := lipgloss.NewStyle().Foreground(colorError)
	dimStyle := lipgloss.NewStyle().Foreground(colorTextDim)

	var sb strings.Builder
	sb.WriteString(errorStyle.Render(fmt.Sprintf("✗ %s: %v", action, err)))

	if status := apierrors.GetHTTPStatus(err); status > 0 {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("\n  HTTP Status: %d", status)))
	}

	var apiErr *apierrors.APIError
	if errors.As(err, &apiErr) && apiErr.Endpoint != "" {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("\n  Endpoint: %s", apiErr.Endpoint)))
	}

	var modelErr *apierrors.ModelError
	switch {
	case apierrors.IsAuthError(err):
		sb.WriteString(dimStyle.Render("\n  Hint: Set GENAI_API_KEY in your environment or in a .env file"))
	case apierrors.IsRateLimitError(err):
		sb.WriteString(dimStyle.Render("\n  Hint: Quota exhausted. Try again later or use a different model"))
	case apierrors.IsTimeoutError(err):
		sb.WriteString(dimStyle.Render("\n  Hint: Request timed out. Try again or raise --timeout"))
	case apierrors.IsBlockedError(err):
		sb.WriteString(dimStyle.Render("\n  Hint: The prompt was blocked by safety filters. Try rephrasing it"))
	case errors.As(err, &modelErr):
		sb.WriteString(dimStyle.Render("\n  Hint: Run 'sprout models' to list the configured models"))
	}

	return sb.String()
}
