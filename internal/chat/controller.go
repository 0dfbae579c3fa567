package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sproutai/sprout/internal/completion"
	"github.com/sproutai/sprout/internal/models"
)

// DiagnosticPrefix starts every assistant message that replaces a failed reply
const DiagnosticPrefix = "⚠️ Error: "

var (
	// ErrTurnInProgress is returned when input arrives while a reply is streaming
	ErrTurnInProgress = errors.New("a reply is still streaming")
	// ErrTurnAborted is returned by Submit when Reset discarded the turn
	ErrTurnAborted = errors.New("turn discarded by reset")
	// ErrSessionClosed is returned after Close
	ErrSessionClosed = errors.New("session is closed")
)

// Display receives the assistant's reply as it grows.
// While streaming, text ends with models.CursorMarker; the last call of a
// turn carries the final text without it.
type Display interface {
	Publish(text string)
}

// DisplayFunc adapts a function to Display
type DisplayFunc func(text string)

// Publish calls f
func (f DisplayFunc) Publish(text string) { f(text) }

// Diagnostic converts a completion failure into assistant content
func Diagnostic(err error) string {
	if err == nil {
		return ""
	}
	return DiagnosticPrefix + err.Error()
}

// Option configures a Controller
type Option func(*Controller)

// WithModel sets the initial model identifier
func WithModel(model string) Option {
	return func(c *Controller) {
		c.session.setModel(model)
	}
}

// WithLogger sets the logger for turn lifecycle events
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithPacing inserts a cosmetic pause after each published fragment
func WithPacing(delay time.Duration) Option {
	return func(c *Controller) {
		c.pacing = delay
	}
}

// WithStateObserver registers fn at construction; see OnStateChange
func WithStateObserver(fn func(models.TurnState)) Option {
	return func(c *Controller) {
		c.observers = append(c.observers, fn)
	}
}

// Controller runs request/response turns for a single Session.
//
// Only one turn may be in flight. Reset cancels an in-flight turn; the
// canceled turn then neither publishes nor appends anything.
type Controller struct {
	client    completion.Client
	session   *Session
	logger    *zap.Logger
	pacing    time.Duration
	observers []func(models.TurnState)

	// pubMu serializes publishing against Reset so that nothing from a
	// discarded turn reaches the display once Reset returns.
	pubMu sync.Mutex

	mu         sync.Mutex
	inFlight   bool
	generation uint64
	cancel     context.CancelFunc
}

// NewController creates a controller with a fresh session
func NewController(client completion.Client, opts ...Option) *Controller {
	c := &Controller{
		client:  client,
		session: NewSession(""),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns the controller's session
func (c *Controller) Session() *Session {
	return c.session
}

// State returns the current turn state
func (c *Controller) State() models.TurnState {
	return c.session.State()
}

// Transcript returns the session's messages in order
func (c *Controller) Transcript() []models.Message {
	return c.session.Messages()
}

// LastReply returns the most recent assistant message content
func (c *Controller) LastReply() (string, bool) {
	msg, ok := c.session.transcript.Last(models.RoleAssistant)
	return msg.Content, ok
}

// Model returns the model used by the next turn
func (c *Controller) Model() string {
	return c.session.Model()
}

// SetModel selects the model for subsequent turns.
// An in-flight turn keeps the model it started with.
func (c *Controller) SetModel(model string) {
	model = strings.TrimSpace(model)
	if model == "" {
		return
	}
	c.session.setModel(model)
	c.logger.Debug("model selected", zap.String("session", c.session.ID), zap.String("model", model))
}

// Busy reports whether a turn is in flight
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// Submit runs one turn for input, publishing the reply to display as it
// streams. It blocks until the reply is finalized.
//
// Blank input is ignored and reports submitted=false with a nil error.
// Completion failures do not surface as errors: they become a diagnostic
// assistant message. The returned error is only ErrTurnInProgress,
// ErrSessionClosed, or ErrTurnAborted when Reset discarded the turn.
func (c *Controller) Submit(ctx context.Context, input string, display Display) (bool, error) {
	if strings.TrimSpace(input) == "" {
		return false, nil
	}
	if display == nil {
		display = DisplayFunc(func(string) {})
	}

	c.pubMu.Lock()
	c.mu.Lock()
	if c.session.Closed() {
		c.mu.Unlock()
		c.pubMu.Unlock()
		return false, ErrSessionClosed
	}
	if c.inFlight {
		c.mu.Unlock()
		c.pubMu.Unlock()
		return false, ErrTurnInProgress
	}
	c.inFlight = true
	gen := c.generation
	turnCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	model := c.session.Model()

	_ = c.session.transcript.Append(models.UserMessage(input))
	c.mu.Unlock()
	c.setState(models.TurnState{Indicator: models.IndicatorActive})
	c.setState(models.TurnState{Indicator: models.IndicatorActive, Streaming: true})
	c.pubMu.Unlock()
	defer cancel()

	log := c.logger.With(zap.String("session", c.session.ID), zap.String("model", model))
	log.Info("turn started", zap.Int("prompt_chars", len(input)))
	started := time.Now()

	var buf strings.Builder
	var streamErr error
	fragments := 0

	for fragment, err := range c.client.Generate(turnCtx, input, model) {
		if err != nil {
			streamErr = err
			break
		}
		buf.WriteString(fragment)
		fragments++

		if !c.publishIfCurrent(gen, display, buf.String()+models.CursorMarker) {
			break
		}
		c.pace(turnCtx)
	}

	content := buf.String()
	if streamErr != nil {
		content = Diagnostic(streamErr)
	}

	c.pubMu.Lock()
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		c.pubMu.Unlock()
		log.Info("turn aborted", zap.Int("fragments", fragments), zap.Duration("elapsed", time.Since(started)))
		return true, ErrTurnAborted
	}
	c.mu.Unlock()

	display.Publish(content)

	c.mu.Lock()
	_ = c.session.transcript.Append(models.AssistantMessage(content))
	c.inFlight = false
	c.cancel = nil
	c.mu.Unlock()
	c.setState(models.IdleState())
	c.pubMu.Unlock()

	if streamErr != nil {
		log.Warn("turn failed", zap.Error(streamErr), zap.Int("fragments", fragments),
			zap.Duration("elapsed", time.Since(started)))
	} else {
		log.Info("turn finished", zap.Int("fragments", fragments), zap.Int("reply_chars", len(content)),
			zap.Duration("elapsed", time.Since(started)))
	}

	return true, nil
}

// publishIfCurrent publishes text unless the turn was reset
func (c *Controller) publishIfCurrent(gen uint64, display Display, text string) bool {
	c.pubMu.Lock()
	defer c.pubMu.Unlock()

	c.mu.Lock()
	current := gen == c.generation
	c.mu.Unlock()

	if current {
		display.Publish(text)
	}
	return current
}

// pace sleeps for the cosmetic delay, returning early if ctx is done
func (c *Controller) pace(ctx context.Context) {
	if c.pacing <= 0 {
		return
	}
	timer := time.NewTimer(c.pacing)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// Reset clears the transcript and returns the indicators to idle.
// An in-flight turn is canceled and its reply discarded.
func (c *Controller) Reset() {
	c.pubMu.Lock()
	c.mu.Lock()
	aborted := c.inFlight
	c.generation++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.inFlight = false
	c.session.transcript.Reset()
	c.mu.Unlock()
	c.setState(models.IdleState())
	c.pubMu.Unlock()

	c.logger.Info("session reset", zap.String("session", c.session.ID), zap.Bool("canceled_turn", aborted))
}

// Close ends the session. Subsequent submissions fail with ErrSessionClosed.
func (c *Controller) Close() {
	c.Reset()
	c.session.close()
	c.logger.Info("session closed", zap.String("session", c.session.ID),
		zap.Duration("duration", time.Since(c.session.StartedAt)))
}

// OnStateChange registers fn to be called after every state change, with
// the state the session now holds. fn runs on the goroutine that changed
// the state and must not block or call back into the controller.
func (c *Controller) OnStateChange(fn func(models.TurnState)) {
	c.pubMu.Lock()
	c.observers = append(c.observers, fn)
	c.pubMu.Unlock()
}

// setState records state on the session and notifies observers.
// The caller holds pubMu.
func (c *Controller) setState(state models.TurnState) {
	c.session.setState(state)
	for _, fn := range c.observers {
		fn(state)
	}
}
