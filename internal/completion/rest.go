package completion

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"net/url"
	"strings"

	fhttp "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
	"github.com/tidwall/gjson"

	apierrors "github.com/sproutai/sprout/internal/errors"
	"github.com/sproutai/sprout/internal/models"
)

const (
	// maxErrorBody bounds how much of a failed response is read
	maxErrorBody = 64 * 1024
	// maxEventSize bounds a single SSE data line
	maxEventSize = 4 * 1024 * 1024
)

// httpDoer is the subset of tls_client.HttpClient used by RESTClient
type httpDoer interface {
	Do(req *fhttp.Request) (*fhttp.Response, error)
}

// RESTClient streams completions from the streamGenerateContent
// endpoint using server-sent events.
type RESTClient struct {
	httpClient httpDoer
	apiKey     string
	baseURL    string
}

// RESTOption configures a RESTClient
type RESTOption func(*RESTClient)

// WithBaseURL overrides the API endpoint
func WithBaseURL(baseURL string) RESTOption {
	return func(c *RESTClient) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient replaces the transport
func WithHTTPClient(client httpDoer) RESTOption {
	return func(c *RESTClient) {
		c.httpClient = client
	}
}

// NewRESTClient creates a RESTClient authorized with apiKey
func NewRESTClient(apiKey string, opts ...RESTOption) (*RESTClient, error) {
	if apiKey == "" {
		return nil, apierrors.ErrMissingAPIKey
	}

	client := &RESTClient{
		apiKey:  apiKey,
		baseURL: models.EndpointGenerativeLanguage,
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.httpClient == nil {
		options := []tls_client.HttpClientOption{
			tls_client.WithTimeoutSeconds(300),
			tls_client.WithClientProfile(profiles.Chrome_120),
		}
		httpClient, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), options...)
		if err != nil {
			return nil, fmt.Errorf("failed to create HTTP client: %w", err)
		}
		client.httpClient = httpClient
	}

	return client, nil
}

type restPart struct {
	Text string `json:"text"`
}

type restContent struct {
	Role  string     `json:"role"`
	Parts []restPart `json:"parts"`
}

type restRequest struct {
	Contents []restContent `json:"contents"`
}

// buildPayload returns the request body for a single-prompt turn
func buildPayload(prompt string) ([]byte, error) {
	return json.Marshal(restRequest{
		Contents: []restContent{{
			Role:  "user",
			Parts: []restPart{{Text: prompt}},
		}},
	})
}

// endpoint returns the stream URL for model
func (c *RESTClient) endpoint(model string) string {
	return c.baseURL + fmt.Sprintf(models.StreamGeneratePath, url.PathEscape(model))
}

// Generate implements Client
func (c *RESTClient) Generate(ctx context.Context, prompt, model string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		body, err := buildPayload(prompt)
		if err != nil {
			yield("", fmt.Errorf("failed to build request: %w", err))
			return
		}

		endpoint := c.endpoint(model)
		req, err := fhttp.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(body))
		if err != nil {
			yield("", fmt.Errorf("failed to create request: %w", err))
			return
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "text/event-stream")
		req.Header.Set("x-goog-api-key", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			yield("", transportError(ctx, err))
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			yield("", parseErrorBody(resp.StatusCode, endpointName(model), data))
			return
		}

		for fragment, err := range readEvents(resp.Body) {
			if err != nil {
				if ctx.Err() != nil {
					err = transportError(ctx, err)
				}
				yield("", err)
				return
			}
			if !yield(fragment, nil) {
				return
			}
		}
	}
}

// readEvents parses an SSE body into text fragments.
// Empty fragments are skipped.
func readEvents(r io.Reader) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)

		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if payload == "" || payload == "[DONE]" {
				continue
			}

			text, err := parseChunk(payload)
			if err != nil {
				yield("", err)
				return
			}
			if text == "" {
				continue
			}
			if !yield(text, nil) {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			yield("", err)
		}
	}
}

// parseChunk extracts the text of one streamed GenerateContentResponse
func parseChunk(payload string) (string, error) {
	if !gjson.Valid(payload) {
		return "", apierrors.NewParseError("invalid JSON in stream event", payload)
	}

	parsed := gjson.Parse(payload)

	if msg := parsed.Get(PathErrorMessage); msg.Exists() {
		return "", apierrors.FromStatus(
			int(parsed.Get(PathErrorCode).Int()),
			parsed.Get(PathErrorStatus).String(),
			"streamGenerateContent",
			msg.String(),
		)
	}

	if reason := parsed.Get(PathBlockReason); reason.Exists() && reason.String() != "" {
		return "", apierrors.NewBlockedError(reason.String())
	}

	var sb strings.Builder
	parsed.Get(PathPartsText).ForEach(func(_, value gjson.Result) bool {
		sb.WriteString(value.String())
		return true
	})

	if sb.Len() == 0 && blockedFinishReasons[parsed.Get(PathFinishReason).String()] {
		return "", apierrors.NewBlockedError(parsed.Get(PathFinishReason).String())
	}

	return sb.String(), nil
}

// parseErrorBody maps a non-2xx response to a typed error
func parseErrorBody(statusCode int, endpoint string, body []byte) error {
	message := strings.TrimSpace(string(body))
	status := ""

	if gjson.ValidBytes(body) {
		parsed := gjson.ParseBytes(body)
		switch {
		case parsed.Get(PathErrorMessage).Exists():
			message = parsed.Get(PathErrorMessage).String()
			status = parsed.Get(PathErrorStatus).String()
		case parsed.Get(PathErrorArrayMsg).Exists():
			message = parsed.Get(PathErrorArrayMsg).String()
			status = parsed.Get("0.error.status").String()
		}
	}

	if message == "" {
		message = fhttp.StatusText(statusCode)
	}

	return apierrors.FromStatus(statusCode, status, endpoint, message)
}

// transportError maps a failed round trip, preferring the context's cause
func transportError(ctx context.Context, err error) error {
	if timeout := apierrors.FromContext(ctx.Err()); timeout != nil {
		return timeout
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if timeout := apierrors.FromContext(err); timeout != nil {
		return timeout
	}
	return fmt.Errorf("request failed: %w", err)
}

func endpointName(model string) string {
	return model + ":streamGenerateContent"
}
