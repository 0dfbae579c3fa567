package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sproutai/sprout/internal/chat"
	"github.com/sproutai/sprout/internal/completion"
	"github.com/sproutai/sprout/internal/config"
	"github.com/sproutai/sprout/internal/tui"
)

// fakeTUI records RunChat calls instead of starting bubbletea
type fakeTUI struct {
	called     bool
	controller *chat.Controller
	opts       tui.Options
	run        func(ctx context.Context, controller *chat.Controller) error
}

func (f *fakeTUI) RunChat(ctx context.Context, controller *chat.Controller, opts tui.Options) error {
	f.called = true
	f.controller = controller
	f.opts = opts
	if f.run != nil {
		return f.run(ctx, controller)
	}
	return nil
}

type testEnv struct {
	home   string
	stdout bytes.Buffer
	stderr bytes.Buffer
	stdin  string
	tty    bool
	copied []string
	cfgs   []config.Config
	tui    *fakeTUI
	deps   *Dependencies
}

// newTestEnv isolates config and credentials and wires deps to client
func newTestEnv(t *testing.T, client completion.Client) *testEnv {
	t.Helper()

	env := &testEnv{home: t.TempDir(), tui: &fakeTUI{}}
	t.Setenv(config.EnvHome, env.home)
	t.Setenv(config.EnvModel, "")
	for _, name := range []string{"GENAI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"} {
		t.Setenv(name, "")
	}
	t.Setenv("GLAMOUR_STYLE", "notty")

	env.deps = &Dependencies{
		NewClient: func(ctx context.Context, cfg config.Config) (completion.Client, error) {
			env.cfgs = append(env.cfgs, cfg)
			return client, nil
		},
		TUI:           env.tui,
		Stdout:        &env.stdout,
		Stderr:        &env.stderr,
		IsTTY:         func() bool { return env.tty },
		StdinPiped:    func() bool { return env.stdin != "" },
		TerminalWidth: func() int { return 80 },
		Clipboard: func(text string) error {
			env.copied = append(env.copied, text)
			return nil
		},
	}
	return env
}

// writeConfig stores a config.json in the isolated home
func (e *testEnv) writeConfig(t *testing.T, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(e.home, "config.json"), []byte(body), 0o600))
}

func (e *testEnv) run(args ...string) error {
	e.deps.Stdin = strings.NewReader(e.stdin)
	cmd := NewRootCmd(e.deps)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(context.Background())
}
