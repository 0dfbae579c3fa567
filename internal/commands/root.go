// Package commands provides CLI commands for sprout.
package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// Version info (set at build time)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
)

// rootOptions holds the values of the global flags
type rootOptions struct {
	model   string
	backend string
	verbose bool
	dryRun  bool
	timeout time.Duration

	output string
	file   string
}

// NewRootCmd creates the sprout command tree
func NewRootCmd(deps *Dependencies) *cobra.Command {
	if deps == nil {
		deps = NewDependencies()
	}
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "sprout [prompt]",
		Short: "Calm terminal chat with Gemini",
		Long: `sprout is a terminal chat client for Google's Gemini models.
Replies stream in as they are generated. Authentication uses the
GENAI_API_KEY environment variable (a .env file is also read).

Examples:
  sprout chat                        Start interactive chat
  sprout "What is Go?"               Send a single query
  sprout -f prompt.md                Read prompt from file
  cat prompt.md | sprout             Read prompt from stdin
  sprout "Hello" -o response.md      Save response to file
  sprout --dry-run chat              Chat with the offline echo backend`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			if v, _ := cmd.Flags().GetBool("version"); v {
				fmt.Fprintf(deps.Stdout, "sprout %s (built %s)\n", Version, BuildTime)
				return nil
			}

			prompt, ok, err := readPrompt(deps, opts, args)
			if err != nil {
				return err
			}
			if !ok {
				return cmd.Help()
			}
			return runQuery(commandContext(cmd), deps, opts, prompt)
		},
	}

	cmd.SetIn(deps.Stdin)
	cmd.SetOut(deps.Stdout)
	cmd.SetErr(deps.Stderr)

	// Global flags
	cmd.PersistentFlags().StringVarP(&opts.model, "model", "m", "", "Model to use (e.g., gemini-2.5-flash)")
	cmd.PersistentFlags().StringVar(&opts.backend, "backend", "", "Completion backend (sdk, rest, echo)")
	cmd.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "Verbose output and debug logging")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 0, "Abort a reply after this long (0 = no limit)")
	cmd.PersistentFlags().BoolVar(&opts.dryRun, "dry-run", false, "Use the offline echo backend (no network)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Save response to file")
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "Read prompt from file")
	cmd.Flags().BoolP("version", "v", false, "Show version and exit")

	// Add subcommands
	cmd.AddCommand(newChatCmd(deps, opts))
	cmd.AddCommand(newConfigCmd(deps, opts))
	cmd.AddCommand(newModelsCmd(deps, opts))

	return cmd
}

var rootCmd = NewRootCmd(nil)

// Execute runs the root command
func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// readPrompt resolves the one-shot prompt: --file, then the argument,
// then piped stdin. ok is false when there is no input at all.
func readPrompt(deps *Dependencies, opts *rootOptions, args []string) (string, bool, error) {
	if opts.file != "" {
		data, err := os.ReadFile(opts.file)
		if err != nil {
			return "", false, fmt.Errorf("failed to read file: %w", err)
		}
		return string(data), true, nil
	}

	if len(args) > 0 {
		return args[0], true, nil
	}

	if deps.StdinPiped != nil && deps.StdinPiped() {
		data, err := io.ReadAll(deps.Stdin)
		if err != nil {
			return "", false, fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), true, nil
	}

	return "", false, nil
}

// commandContext returns the command's context, or Background when unset
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
