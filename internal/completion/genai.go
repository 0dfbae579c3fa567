package completion

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"google.golang.org/genai"

	apierrors "github.com/sproutai/sprout/internal/errors"
)

// GenAIClient streams completions through the official Gemini SDK
type GenAIClient struct {
	client *genai.Client
}

// NewGenAIClient creates a client authorized with apiKey
func NewGenAIClient(ctx context.Context, apiKey string) (*GenAIClient, error) {
	if apiKey == "" {
		return nil, apierrors.ErrMissingAPIKey
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GenAIClient{client: client}, nil
}

// Generate implements Client
func (c *GenAIClient) Generate(ctx context.Context, prompt, model string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		stream := c.client.Models.GenerateContentStream(ctx, model, genai.Text(prompt), nil)
		for resp, err := range stream {
			if err != nil {
				yield("", fromGenAIError(ctx, err))
				return
			}
			if resp == nil {
				continue
			}
			if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
				yield("", apierrors.NewBlockedError(string(fb.BlockReason)))
				return
			}

			text := resp.Text()
			if text == "" {
				continue
			}
			if !yield(text, nil) {
				return
			}
		}
	}
}

// fromGenAIError maps SDK errors onto the typed errors
func fromGenAIError(ctx context.Context, err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apierrors.FromStatus(apiErr.Code, apiErr.Status, "generateContent", apiErr.Message)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apierrors.FromStatus(apiErrPtr.Code, apiErrPtr.Status, "generateContent", apiErrPtr.Message)
	}
	if timeout := apierrors.FromContext(err); timeout != nil {
		return timeout
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}
