package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/sproutai/sprout/internal/config"
	"github.com/sproutai/sprout/internal/render"
)

var (
	configKeyStyle   = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true).Width(18)
	configValueStyle = lipgloss.NewStyle().Foreground(colorText)
	configPathStyle  = lipgloss.NewStyle().Foreground(colorTextDim).Italic(true)
)

func newConfigCmd(deps *Dependencies, opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the resolved configuration",
		Long: `Show the configuration sprout will use after applying the config file,
environment variables and flags. The API key is always masked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(deps, opts)
			if err != nil {
				return err
			}
			path, _ := config.GetConfigPath()
			printConfig(deps, cfg, path)
			return nil
		},
	}

	cmd.AddCommand(newConfigInitCmd(deps))
	return cmd
}

func newConfigInitCmd(deps *Dependencies) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.GetConfigPath()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
			}
			if err := config.SaveConfig(config.DefaultConfig()); err != nil {
				return err
			}
			fmt.Fprintf(deps.Stdout, "✓ Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")
	return cmd
}

func printConfig(deps *Dependencies, cfg config.Config, path string) {
	source := path
	if _, err := os.Stat(path); err != nil {
		source = path + " (not found, using defaults)"
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "(default)"
	}
	theme := cfg.TUITheme
	if _, ok := render.GetTUIThemeByName(theme); !ok {
		theme = fmt.Sprintf("%s (unknown, available: %s)", theme, strings.Join(render.TUIThemeNames(), ", "))
	}
	logFile := cfg.LogFile
	if logFile == "" {
		logFile = "(disabled)"
	}

	rows := []struct {
		key   string
		value string
	}{
		{"Backend", cfg.Backend},
		{"Model", cfg.DefaultModel},
		{"Models", strings.Join(cfg.SelectableModels(), ", ")},
		{"API key", cfg.RedactedKey()},
		{"Base URL", baseURL},
		{"Stream delay", cfg.StreamDelay().String()},
		{"TUI theme", theme},
		{"Markdown style", cfg.Markdown.Style},
		{"Copy to clipboard", onOff(cfg.CopyToClipboard)},
		{"Verbose", onOff(cfg.Verbose)},
		{"Log file", logFile},
	}

	fmt.Fprintln(deps.Stdout, configPathStyle.Render(source))
	for _, r := range rows {
		fmt.Fprintln(deps.Stdout, configKeyStyle.Render(r.key)+" "+configValueStyle.Render(r.value))
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
