package completion

import (
	"context"
	"iter"
	"strings"
	"sync"
	"time"
)

// Call records one Generate invocation
type Call struct {
	Prompt string
	Model  string
}

// Scripted is a deterministic Client that replays fixed fragments.
// It is used by tests and by the offline echo backend.
type Scripted struct {
	// Fragments are yielded in order.
	Fragments []string
	// Err, when set, is yielded after all Fragments.
	Err error
	// Delay is slept before each fragment.
	Delay time.Duration
	// Hold keeps the stream open after the last fragment until the
	// context is done, then yields the context error.
	Hold bool
	// Started, when non-nil, receives a value once the stream begins.
	Started chan struct{}

	mu    sync.Mutex
	calls []Call
}

// Generate implements Client
func (s *Scripted) Generate(ctx context.Context, prompt, model string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		s.mu.Lock()
		s.calls = append(s.calls, Call{Prompt: prompt, Model: model})
		s.mu.Unlock()

		if s.Started != nil {
			select {
			case s.Started <- struct{}{}:
			default:
			}
		}

		for _, fragment := range s.Fragments {
			if s.Delay > 0 {
				select {
				case <-ctx.Done():
					yield("", ctx.Err())
					return
				case <-time.After(s.Delay):
				}
			}
			if !yield(fragment, nil) {
				return
			}
		}

		if s.Hold {
			<-ctx.Done()
			yield("", ctx.Err())
			return
		}

		if s.Err != nil {
			yield("", s.Err)
		}
	}
}

// Calls returns the recorded invocations
func (s *Scripted) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// Echo replies by repeating the prompt word by word, without network access
type Echo struct {
	Delay time.Duration
}

// NewEcho creates an Echo client
func NewEcho() *Echo {
	return &Echo{Delay: 30 * time.Millisecond}
}

// Generate implements Client
func (e *Echo) Generate(ctx context.Context, prompt, model string) iter.Seq2[string, error] {
	fragments := []string{"*(" + model + ", offline)* You said:"}
	for _, word := range strings.Fields(prompt) {
		fragments = append(fragments, " "+word)
	}
	s := &Scripted{Fragments: fragments, Delay: e.Delay}
	return s.Generate(ctx, prompt, model)
}
