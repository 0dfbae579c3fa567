package commands

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sproutai/sprout/internal/chat"
	"github.com/sproutai/sprout/internal/completion"
	"github.com/sproutai/sprout/internal/config"
	"github.com/sproutai/sprout/internal/models"
)

func TestChatCommand_RunsTUI(t *testing.T) {
	client := &completion.Scripted{Fragments: []string{"Hel", "lo"}}
	env := newTestEnv(t, client)

	var reply string
	env.tui.run = func(ctx context.Context, controller *chat.Controller) error {
		submitted, err := controller.Submit(ctx, "hi", nil)
		require.True(t, submitted)
		require.NoError(t, err)
		reply, _ = controller.LastReply()
		return nil
	}

	require.NoError(t, env.run("chat"))

	require.True(t, env.tui.called)
	assert.Equal(t, "Hello", reply)
	assert.Equal(t, models.DefaultModel, env.tui.controller.Model())
	assert.Equal(t, models.AllModels(), env.tui.opts.Models)
	assert.Equal(t, "sprout", env.tui.opts.Theme)
	assert.Equal(t, "notty", env.tui.opts.Markdown.Style)
	assert.True(t, env.tui.controller.Session().Closed(), "the session ends with the command")
}

func TestChatCommand_ConfiguredModelsAndTheme(t *testing.T) {
	env := newTestEnv(t, &completion.Scripted{})
	env.writeConfig(t, `{"models": ["a", "b"], "tui_theme": "nord", "default_model": "b"}`)

	require.NoError(t, env.run("chat"))

	assert.Equal(t, []string{"a", "b"}, env.tui.opts.Models)
	assert.Equal(t, "nord", env.tui.opts.Theme)
	assert.Equal(t, "b", env.tui.controller.Model())
}

func TestChatCommand_DryRun(t *testing.T) {
	env := newTestEnv(t, &completion.Scripted{})

	require.NoError(t, env.run("--dry-run", "chat"))
	require.Len(t, env.cfgs, 1)
	assert.Equal(t, config.BackendEcho, env.cfgs[0].Backend)
}

func TestChatCommand_RejectsArgs(t *testing.T) {
	env := newTestEnv(t, &completion.Scripted{})

	assert.Error(t, env.run("chat", "extra"))
	assert.False(t, env.tui.called)
}

func TestChatCommand_TUIError(t *testing.T) {
	env := newTestEnv(t, &completion.Scripted{})
	env.tui.run = func(context.Context, *chat.Controller) error {
		return errors.New("no terminal")
	}

	err := env.run("chat")
	assert.EqualError(t, err, "no terminal")
}

func TestChatCommand_ClientError(t *testing.T) {
	env := newTestEnv(t, nil)
	env.deps.NewClient = completion.New

	err := env.run("chat", "--backend", "rest")
	require.Error(t, err)
	assert.False(t, env.tui.called)
	assert.Contains(t, env.stderr.String(), "GENAI_API_KEY")
}
