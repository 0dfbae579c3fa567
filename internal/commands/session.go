package commands

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/sproutai/sprout/internal/chat"
	"github.com/sproutai/sprout/internal/completion"
	"github.com/sproutai/sprout/internal/config"
	"github.com/sproutai/sprout/internal/logging"
)

// resolveConfig loads .env and the config file, then applies flag overrides
func resolveConfig(deps *Dependencies, opts *rootOptions) (config.Config, error) {
	if err := config.LoadEnv(); err != nil {
		fmt.Fprintf(deps.Stderr, "Warning: %v\n", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		// Defaults are still usable
		fmt.Fprintf(deps.Stderr, "Warning: %v, using defaults\n", err)
	}

	if m := strings.TrimSpace(opts.model); m != "" {
		cfg.DefaultModel = m
	}
	if opts.backend != "" {
		if !config.ValidBackend(opts.backend) {
			return cfg, fmt.Errorf("unknown backend %q (available: %s)",
				opts.backend, strings.Join(config.AvailableBackends(), ", "))
		}
		cfg.Backend = opts.backend
	}
	if opts.dryRun {
		cfg.Backend = config.BackendEcho
	}
	if opts.verbose {
		cfg.Verbose = true
	}
	return cfg, nil
}

// chatSession bundles what a command needs to run turns
type chatSession struct {
	cfg        config.Config
	logger     *zap.Logger
	controller *chat.Controller
	recorder   *errRecorder
}

// newChatSession resolves configuration and wires the logger, completion
// client and controller together
func newChatSession(ctx context.Context, deps *Dependencies, opts *rootOptions) (*chatSession, error) {
	cfg, err := resolveConfig(deps, opts)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Options{File: cfg.LogFile, Verbose: cfg.Verbose})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "Warning: logging disabled: %v\n", err)
		logger = zap.NewNop()
	}

	client, err := deps.NewClient(ctx, cfg)
	if err != nil {
		logger.Error("failed to create client", zap.String("backend", cfg.Backend), zap.Error(err))
		_ = logger.Sync()
		fmt.Fprintln(deps.Stderr, formatErrorMessage(err, "Failed to create client"))
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	recorder := &errRecorder{client: client}
	controller := chat.NewController(recorder,
		chat.WithModel(cfg.DefaultModel),
		chat.WithLogger(logger),
		chat.WithPacing(cfg.StreamDelay()),
	)

	logger.Debug("session ready",
		zap.String("session", controller.Session().ID),
		zap.String("backend", cfg.Backend),
		zap.String("model", cfg.DefaultModel),
		zap.Bool("api_key_set", cfg.APIKey != ""),
	)

	return &chatSession{
		cfg:        cfg,
		logger:     logger,
		controller: controller,
		recorder:   recorder,
	}, nil
}

func (s *chatSession) close() {
	if !s.controller.Session().Closed() {
		s.controller.Close()
	}
	_ = s.logger.Sync()
}

// errRecorder passes a stream through, remembering the last error of the
// most recent turn. The controller turns failures into a diagnostic reply;
// the one-shot command still needs the typed error for hints and exit status.
type errRecorder struct {
	client completion.Client

	mu  sync.Mutex
	err error
}

func (r *errRecorder) Generate(ctx context.Context, prompt, model string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		r.setErr(nil)
		for fragment, err := range r.client.Generate(ctx, prompt, model) {
			if err != nil {
				r.setErr(err)
			}
			if !yield(fragment, err) {
				return
			}
		}
	}
}

func (r *errRecorder) setErr(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

// Err returns the error that ended the last stream, if any
func (r *errRecorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}
