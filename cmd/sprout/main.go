// Command sprout is a terminal chat client for Gemini models.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sproutai/sprout/internal/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	commands.Execute(ctx)
}
