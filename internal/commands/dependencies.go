package commands

import (
	"context"
	"io"
	"os"

	"github.com/atotto/clipboard"

	"github.com/sproutai/sprout/internal/chat"
	"github.com/sproutai/sprout/internal/completion"
	"github.com/sproutai/sprout/internal/config"
	"github.com/sproutai/sprout/internal/tui"
)

// TUIInterface defines the methods required from the TUI package.
type TUIInterface interface {
	RunChat(ctx context.Context, controller *chat.Controller, opts tui.Options) error
}

// Dependencies holds the external dependencies for the commands.
// This allows for dependency injection and easier testing.
type Dependencies struct {
	// NewClient builds the completion client for the resolved config.
	NewClient func(ctx context.Context, cfg config.Config) (completion.Client, error)

	// TUI is the terminal user interface.
	TUI TUIInterface

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// IsTTY reports whether stdout is a terminal.
	IsTTY func() bool
	// StdinPiped reports whether a prompt may be read from stdin.
	StdinPiped func() bool
	// TerminalWidth returns the width used for rendered replies.
	TerminalWidth func() int
	// Clipboard copies text to the system clipboard.
	Clipboard func(text string) error
}

// DefaultTUI is the production implementation of TUIInterface.
type DefaultTUI struct{}

func (d *DefaultTUI) RunChat(ctx context.Context, controller *chat.Controller, opts tui.Options) error {
	return tui.RunChat(ctx, controller, opts)
}

// NewDependencies creates a new Dependencies struct with default implementations.
func NewDependencies() *Dependencies {
	return &Dependencies{
		NewClient:     completion.New,
		TUI:           &DefaultTUI{},
		Stdin:         os.Stdin,
		Stdout:        os.Stdout,
		Stderr:        os.Stderr,
		IsTTY:         isStdoutTTY,
		StdinPiped:    stdinPiped,
		TerminalWidth: getTerminalWidth,
		Clipboard:     clipboard.WriteAll,
	}
}

func stdinPiped() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}
