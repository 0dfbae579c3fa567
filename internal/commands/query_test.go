package commands

import (
	"bytes"
	"context"
	"errors"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sproutai/sprout/internal/chat"
	"github.com/sproutai/sprout/internal/completion"
	apierrors "github.com/sproutai/sprout/internal/errors"
	"github.com/sproutai/sprout/internal/models"
)

func TestQuery_RawStreamsFragments(t *testing.T) {
	client := &completion.Scripted{Fragments: []string{"Hel", "lo"}}
	env := newTestEnv(t, client)

	require.NoError(t, env.run("hi"))

	assert.Equal(t, "Hello", env.stdout.String())
	require.Len(t, client.Calls(), 1)
	assert.Equal(t, completion.Call{Prompt: "hi", Model: models.DefaultModel}, client.Calls()[0])
}

func TestQuery_ModelFlag(t *testing.T) {
	client := &completion.Scripted{Fragments: []string{"ok"}}
	env := newTestEnv(t, client)

	require.NoError(t, env.run("-m", "gemini-1.5-pro", "hi"))
	assert.Equal(t, "gemini-1.5-pro", client.Calls()[0].Model)
}

func TestQuery_ModelFromEnv(t *testing.T) {
	client := &completion.Scripted{Fragments: []string{"ok"}}
	env := newTestEnv(t, client)
	t.Setenv("SPROUT_MODEL", "gemini-1.5-flash")

	require.NoError(t, env.run("hi"))
	assert.Equal(t, "gemini-1.5-flash", client.Calls()[0].Model)
}

func TestQuery_Stdin(t *testing.T) {
	client := &completion.Scripted{Fragments: []string{"ok"}}
	env := newTestEnv(t, client)
	env.stdin = "  from stdin\n"

	require.NoError(t, env.run())
	assert.Equal(t, "from stdin", client.Calls()[0].Prompt)
}

func TestQuery_BlankPrompt(t *testing.T) {
	client := &completion.Scripted{Fragments: []string{"ok"}}
	env := newTestEnv(t, client)

	err := env.run("   ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prompt cannot be empty")
	assert.Empty(t, client.Calls())
}

func TestQuery_OutputFileRaw(t *testing.T) {
	env := newTestEnv(t, &completion.Scripted{Fragments: []string{"Hel", "lo"}})
	out := filepath.Join(t.TempDir(), "reply.md")

	require.NoError(t, env.run("hi", "-o", out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "Hello", string(data))
	assert.Empty(t, env.stdout.String())
}

func TestQuery_FailureReturnsTypedError(t *testing.T) {
	client := &completion.Scripted{Err: apierrors.NewUsageLimitError("")}
	env := newTestEnv(t, client)

	err := env.run("hi")
	require.Error(t, err)
	assert.True(t, apierrors.IsRateLimitError(err))
	assert.Empty(t, env.stdout.String(), "the diagnostic is not written to stdout")
	assert.Contains(t, env.stderr.String(), "quota exceeded")
	assert.Contains(t, env.stderr.String(), "Hint: Quota exhausted")
}

func TestQuery_PartialThenFailure(t *testing.T) {
	client := &completion.Scripted{Fragments: []string{"par"}, Err: errors.New("stream broke")}
	env := newTestEnv(t, client)

	err := env.run("hi")
	require.Error(t, err)
	assert.Equal(t, "par", env.stdout.String())
	assert.Contains(t, env.stderr.String(), "stream broke")
}

func TestQuery_Timeout(t *testing.T) {
	env := newTestEnv(t, &completion.Scripted{Hold: true})

	err := env.run("--timeout", "50ms", "hi")
	require.Error(t, err)
	assert.True(t, apierrors.IsTimeoutError(err))
	assert.Contains(t, env.stderr.String(), "Hint: Request timed out")
}

func TestQuery_TTYRendersBubble(t *testing.T) {
	env := newTestEnv(t, &completion.Scripted{Fragments: []string{"Hel", "lo"}})
	env.tty = true

	require.NoError(t, env.run("hi"))

	assert.Contains(t, env.stdout.String(), "Sprout")
	assert.Contains(t, env.stdout.String(), "Hello")
	assert.Contains(t, env.stderr.String(), models.CursorMarker, "partials are republished on the live line")
	assert.Empty(t, env.copied)
}

func TestQuery_TTYVerbose(t *testing.T) {
	env := newTestEnv(t, &completion.Scripted{Fragments: []string{"ok"}})
	env.tty = true

	require.NoError(t, env.run("--verbose", "hi"))

	assert.Contains(t, env.stderr.String(), "[verbose] Model: "+models.DefaultModel)
	assert.Contains(t, env.stderr.String(), "[verbose] Request took")
	assert.True(t, env.cfgs[0].Verbose)
}

func TestQuery_TTYClipboard(t *testing.T) {
	env := newTestEnv(t, &completion.Scripted{Fragments: []string{"Hello"}})
	env.tty = true
	env.writeConfig(t, `{"copy_to_clipboard": true, "stream_delay_ms": 0}`)

	require.NoError(t, env.run("hi"))

	assert.Equal(t, []string{"Hello"}, env.copied)
	assert.Contains(t, env.stderr.String(), "Copied to clipboard")
}

func TestQuery_TTYClipboardFailure(t *testing.T) {
	env := newTestEnv(t, &completion.Scripted{Fragments: []string{"Hello"}})
	env.tty = true
	env.writeConfig(t, `{"copy_to_clipboard": true}`)
	env.deps.Clipboard = func(string) error { return errors.New("no display") }

	require.NoError(t, env.run("hi"))
	assert.Contains(t, env.stderr.String(), "Failed to copy to clipboard: no display")
}

func TestQuery_TTYOutputFile(t *testing.T) {
	env := newTestEnv(t, &completion.Scripted{Fragments: []string{"Hello"}})
	env.tty = true
	out := filepath.Join(t.TempDir(), "reply.md")

	require.NoError(t, env.run("hi", "--output", out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "Hello", string(data))
	assert.Contains(t, env.stderr.String(), "Response saved to")
	assert.Empty(t, env.stdout.String())
}

func TestQuery_MissingAPIKey(t *testing.T) {
	env := newTestEnv(t, nil)
	env.deps.NewClient = completion.New

	err := env.run("hi")
	require.Error(t, err)
	assert.ErrorIs(t, err, apierrors.ErrMissingAPIKey)
	assert.Contains(t, env.stderr.String(), "Hint: Set GENAI_API_KEY")
}

func TestQuery_DryRunUsesEcho(t *testing.T) {
	env := newTestEnv(t, nil)
	env.deps.NewClient = completion.New

	require.NoError(t, env.run("--dry-run", "hello world"))
	assert.Contains(t, env.stdout.String(), "You said: hello world")
	assert.Contains(t, env.stdout.String(), "offline")
}

func TestRawDisplay(t *testing.T) {
	var buf bytes.Buffer
	d := &rawDisplay{w: &buf}

	d.Publish("Hel" + models.CursorMarker)
	d.Publish("Hello" + models.CursorMarker)
	d.Publish("Hello")
	assert.Equal(t, "Hello", buf.String())

	d.Publish(chat.Diagnostic(errors.New("boom")))
	assert.Equal(t, "Hello", buf.String(), "diagnostics do not extend the streamed text")
}

func TestRawDisplay_DiagnosticBeforeFirstFragment(t *testing.T) {
	var buf bytes.Buffer
	d := &rawDisplay{w: &buf}

	d.Publish(chat.Diagnostic(apierrors.NewUsageLimitError("")))
	assert.Empty(t, buf.String())
}

func TestLiveLine(t *testing.T) {
	var buf bytes.Buffer
	l := newLiveLine(&buf, 40)

	l.Publish("first line\nsecond" + models.CursorMarker)
	assert.Contains(t, buf.String(), "first line second"+models.CursorMarker)

	l.Publish("done")
	l.finish()
	assert.True(t, strings.HasSuffix(buf.String(), "\r\033[K"))
}

func TestTail(t *testing.T) {
	assert.Equal(t, "a b", tail("a\n  b", 10))
	assert.Equal(t, "…fgh", tail("abcdefgh", 4))
	assert.Equal(t, "…", tail("abc", 0))
}

func TestSpinnerStop(t *testing.T) {
	var buf bytes.Buffer
	s := newSpinner(&buf, "Working")
	s.start()
	s.stopSilently()
	s.stopSilently() // second stop is a no-op

	assert.Contains(t, buf.String(), "\033[?25h")
}

func TestErrRecorder(t *testing.T) {
	fail := true
	r := &errRecorder{client: completion.Func(func(ctx context.Context, prompt, model string) iter.Seq2[string, error] {
		return func(yield func(string, error) bool) {
			if fail {
				yield("", errors.New("boom"))
				return
			}
			yield("ok", nil)
		}
	})}

	_, err := completion.Collect(r.Generate(context.Background(), "p", "m"))
	require.Error(t, err)
	assert.EqualError(t, r.Err(), "boom")

	fail = false
	text, err := completion.Collect(r.Generate(context.Background(), "p", "m"))
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.NoError(t, r.Err(), "each turn starts clean")
}

func TestFormatErrorMessage(t *testing.T) {
	assert.Empty(t, formatErrorMessage(nil, "ctx"))

	testCases := []struct {
		name     string
		err      error
		contains []string
	}{
		{"api error", apierrors.NewAPIError(500, "/v1beta/models", "failure"), []string{"HTTP Status: 500", "Endpoint: /v1beta/models"}},
		{"auth", apierrors.NewAuthError("denied"), []string{"Hint: Set GENAI_API_KEY"}},
		{"missing key", apierrors.ErrMissingAPIKey, []string{"Hint: Set GENAI_API_KEY"}},
		{"quota", apierrors.NewUsageLimitError("slow down"), []string{"Hint: Quota exhausted"}},
		{"timeout", apierrors.NewTimeoutError("late"), []string{"Hint: Request timed out"}},
		{"blocked", apierrors.NewBlockedError("SAFETY"), []string{"safety filters"}},
		{"model", apierrors.NewModelError("gemini-x", "not found"), []string{"sprout models"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out := formatErrorMessage(tc.err, "Failed")
			assert.Contains(t, out, "Failed: ")
			for _, want := range tc.contains {
				assert.Contains(t, out, want)
			}
		})
	}
}
