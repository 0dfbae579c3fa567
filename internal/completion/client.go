// Package completion provides streaming clients for the Gemini completion API.
package completion

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/sproutai/sprout/internal/config"
	apierrors "github.com/sproutai/sprout/internal/errors"
)

// Client streams a model's reply to a prompt.
//
// Generate is lazy: no request is made until the sequence is ranged over.
// Each element is either a text fragment or an error; after an error the
// sequence ends. An error may be the first element.
type Client interface {
	Generate(ctx context.Context, prompt, model string) iter.Seq2[string, error]
}

// Func adapts an ordinary function to Client
type Func func(ctx context.Context, prompt, model string) iter.Seq2[string, error]

// Generate calls f
func (f Func) Generate(ctx context.Context, prompt, model string) iter.Seq2[string, error] {
	return f(ctx, prompt, model)
}

// Collect drains a stream and returns the concatenated text.
// On error the text received so far is returned alongside it.
func Collect(seq iter.Seq2[string, error]) (string, error) {
	var sb strings.Builder
	for fragment, err := range seq {
		if err != nil {
			return sb.String(), err
		}
		sb.WriteString(fragment)
	}
	return sb.String(), nil
}

// New creates the client selected by cfg.Backend
func New(ctx context.Context, cfg config.Config) (Client, error) {
	switch cfg.Backend {
	case config.BackendEcho:
		return NewEcho(), nil
	case config.BackendREST:
		if cfg.APIKey == "" {
			return nil, apierrors.ErrMissingAPIKey
		}
		var opts []RESTOption
		if cfg.BaseURL != "" {
			opts = append(opts, WithBaseURL(cfg.BaseURL))
		}
		return NewRESTClient(cfg.APIKey, opts...)
	case config.BackendSDK, "":
		if cfg.APIKey == "" {
			return nil, apierrors.ErrMissingAPIKey
		}
		return NewGenAIClient(ctx, cfg.APIKey)
	default:
		return nil, fmt.Errorf("unknown backend %q (available: %s)",
			cfg.Backend, strings.Join(config.AvailableBackends(), ", "))
	}
}
