package completion

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"google.golang.org/genai"

	"github.com/sproutai/sprout/internal/config"
	apierrors "github.com/sproutai/sprout/internal/errors"
)

func TestCollect(t *testing.T) {
	s := &Scripted{Fragments: []string{"Hel", "lo"}}
	text, err := Collect(s.Generate(context.Background(), "p", "m"))
	require.NoError(t, err)
	assert.Equal(t, "Hello", text)
}

func TestCollectReturnsPartialOnError(t *testing.T) {
	s := &Scripted{Fragments: []string{"par", "tial"}, Err: errors.New("quota exceeded")}
	text, err := Collect(s.Generate(context.Background(), "p", "m"))
	assert.Equal(t, "partial", text)
	assert.EqualError(t, err, "quota exceeded")
}

func TestFuncAdapter(t *testing.T) {
	var gotPrompt, gotModel string
	client := Func(func(ctx context.Context, prompt, model string) iter.Seq2[string, error] {
		gotPrompt, gotModel = prompt, model
		return func(yield func(string, error) bool) {
			yield("x", nil)
		}
	})

	text, err := Collect(client.Generate(context.Background(), "hello", "gemini-1.5-pro"))
	require.NoError(t, err)
	assert.Equal(t, "x", text)
	assert.Equal(t, "hello", gotPrompt)
	assert.Equal(t, "gemini-1.5-pro", gotModel)
}

func TestScriptedRecordsCalls(t *testing.T) {
	s := &Scripted{Fragments: []string{"a"}}
	_, _ = Collect(s.Generate(context.Background(), "one", "m1"))
	_, _ = Collect(s.Generate(context.Background(), "two", "m2"))

	assert.Equal(t, []Call{{Prompt: "one", Model: "m1"}, {Prompt: "two", Model: "m2"}}, s.Calls())
}

func TestScriptedErrorBeforeFirstFragment(t *testing.T) {
	s := &Scripted{Err: errors.New("boom")}

	count := 0
	var gotErr error
	for fragment, err := range s.Generate(context.Background(), "p", "m") {
		count++
		assert.Empty(t, fragment)
		gotErr = err
	}
	assert.Equal(t, 1, count)
	assert.EqualError(t, gotErr, "boom")
}

func TestScriptedHoldUntilCanceled(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))

	s := &Scripted{Fragments: []string{"a"}, Hold: true, Started: make(chan struct{}, 1)}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := Collect(s.Generate(ctx, "p", "m"))
		done <- err
	}()

	<-s.Started
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("held stream did not observe cancellation")
	}
}

func TestScriptedDelayHonoursContext(t *testing.T) {
	s := &Scripted{Fragments: []string{"a", "b"}, Delay: time.Hour}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := Collect(s.Generate(ctx, "p", "m"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestEcho(t *testing.T) {
	e := &Echo{}
	text, err := Collect(e.Generate(context.Background(), "hello   there", "gemini-2.5-flash"))
	require.NoError(t, err)
	assert.Equal(t, "*(gemini-2.5-flash, offline)* You said: hello there", text)
}

func TestNewSelectsBackend(t *testing.T) {
	t.Run("echo needs no key", func(t *testing.T) {
		client, err := New(context.Background(), config.Config{Backend: config.BackendEcho})
		require.NoError(t, err)
		assert.IsType(t, &Echo{}, client)
	})

	t.Run("rest", func(t *testing.T) {
		client, err := New(context.Background(), config.Config{Backend: config.BackendREST, APIKey: "k", BaseURL: "https://x.test"})
		require.NoError(t, err)
		rest, ok := client.(*RESTClient)
		require.True(t, ok)
		assert.Equal(t, "https://x.test", rest.baseURL)
	})

	t.Run("missing key", func(t *testing.T) {
		for _, backend := range []string{config.BackendSDK, config.BackendREST, ""} {
			_, err := New(context.Background(), config.Config{Backend: backend})
			assert.ErrorIs(t, err, apierrors.ErrMissingAPIKey, "backend %q", backend)
		}
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := New(context.Background(), config.Config{Backend: "carrier-pigeon", APIKey: "k"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "carrier-pigeon")
	})
}

func TestFromGenAIError(t *testing.T) {
	ctx := context.Background()

	quota := fromGenAIError(ctx, genai.APIError{Code: 429, Message: "quota exceeded for metric", Status: "RESOURCE_EXHAUSTED"})
	assert.True(t, apierrors.IsRateLimitError(quota))
	assert.Contains(t, quota.Error(), "quota exceeded")

	auth := fromGenAIError(ctx, fmt.Errorf("stream: %w", genai.APIError{Code: 400, Message: "API key not valid", Status: "INVALID_ARGUMENT"}))
	assert.Equal(t, 400, apierrors.GetHTTPStatus(auth))

	timeout := fromGenAIError(ctx, context.DeadlineExceeded)
	assert.True(t, apierrors.IsTimeoutError(timeout))

	plain := errors.New("dns failure")
	assert.Same(t, plain, fromGenAIError(ctx, plain))
}
