package commands

import (
	"github.com/spf13/cobra"

	"github.com/sproutai/sprout/internal/render"
	"github.com/sproutai/sprout/internal/tui"
)

func newChatCmd(deps *Dependencies, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Long: `Start an interactive chat session with Sprout.

Replies stream into the transcript as they are generated. Tab cycles
the configured models and Ctrl+R (or /reset) clears the conversation.
Type /exit or /quit, or press Esc or Ctrl+C to end the session.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, deps, opts)
		},
	}
}

func runChat(cmd *cobra.Command, deps *Dependencies, opts *rootOptions) error {
	ctx := commandContext(cmd)

	sess, err := newChatSession(ctx, deps, opts)
	if err != nil {
		return err
	}
	defer sess.close()

	return deps.TUI.RunChat(ctx, sess.controller, tui.Options{
		Models:   sess.cfg.SelectableModels(),
		Theme:    sess.cfg.TUITheme,
		Markdown: render.OptionsFromConfig(sess.cfg, 80),
	})
}
