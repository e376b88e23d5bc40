package config

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// Config captures all command-line options required to render a bundle.
type Config struct {
	BundlePath     string
	OutputPath     string
	Title          string
	MaxBundleBytes int64
	LogLevel       string
	LogDir         string
	IncludeAuthor  []string
	IncludeContent []string
	ExcludeAuthor  []string
	ExcludeContent []string
}

// DefaultMaxBundleBytes bounds the extracted size of a ZIP bundle. Oversized
// inputs are rejected before the pipeline sees them.
const DefaultMaxBundleBytes = 256 << 20

// RegisterFlags attaches all CLI flags to the provided command.
func RegisterFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()
	flags.String("bundle", "", "Path to the export bundle: a directory or a .zip file")
	flags.StringP("output", "o", "chat.html", "Path of the rendered HTML file")
	flags.String("title", "Chat Export", "Page title of the rendered document")
	flags.Int64("max-bundle-size", DefaultMaxBundleBytes, "Ceiling on extracted bundle size in bytes (0 = unlimited)")
	flags.String("log-level", "info", "Logging level: debug, info, warn, error")
	flags.String("log-dir", "", "Directory for log files (logs to stdout only when empty)")
	flags.StringArray("include-author", nil, "Regex allow-list applied to message authors (mutually exclusive with exclude flags)")
	flags.StringArray("include-content", nil, "Regex allow-list applied to message content (mutually exclusive with exclude flags)")
	flags.StringArray("exclude-author", nil, "Regex block-list applied to message authors (mutually exclusive with include flags)")
	flags.StringArray("exclude-content", nil, "Regex block-list applied to message content (mutually exclusive with include flags)")

	if err := cmd.MarkFlagRequired("bundle"); err != nil {
		return err
	}

	return nil
}

// LoadConfig converts the parsed Cobra flags into a Config struct with validation.
func LoadConfig(cmd *cobra.Command) (Config, error) {
	flags := cmd.Flags()

	bundlePath, err := flags.GetString("bundle")
	if err != nil {
		return Config{}, err
	}
	outputPath, err := flags.GetString("output")
	if err != nil {
		return Config{}, err
	}
	title, err := flags.GetString("title")
	if err != nil {
		return Config{}, err
	}
	maxBundleBytes, err := flags.GetInt64("max-bundle-size")
	if err != nil {
		return Config{}, err
	}
	logLevel, err := flags.GetString("log-level")
	if err != nil {
		return Config{}, err
	}
	logDir, err := flags.GetString("log-dir")
	if err != nil {
		return Config{}, err
	}
	includeAuthor, err := flags.GetStringArray("include-author")
	if err != nil {
		return Config{}, err
	}
	includeContent, err := flags.GetStringArray("include-content")
	if err != nil {
		return Config{}, err
	}
	excludeAuthor, err := flags.GetStringArray("exclude-author")
	if err != nil {
		return Config{}, err
	}
	excludeContent, err := flags.GetStringArray("exclude-content")
	if err != nil {
		return Config{}, err
	}

	logLevel = strings.ToLower(logLevel)
	if logLevel == "warning" {
		logLevel = "warn"
	}

	cfg := Config{
		BundlePath:     bundlePath,
		OutputPath:     outputPath,
		Title:          title,
		MaxBundleBytes: maxBundleBytes,
		LogLevel:       logLevel,
		LogDir:         logDir,
		IncludeAuthor:  includeAuthor,
		IncludeContent: includeContent,
		ExcludeAuthor:  excludeAuthor,
		ExcludeContent: excludeContent,
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func validateConfig(cfg Config) error {
	if cfg.BundlePath == "" {
		return fmt.Errorf("--bundle is required")
	}
	if cfg.OutputPath == "" {
		return fmt.Errorf("--output must not be empty")
	}
	if cfg.MaxBundleBytes < 0 {
		return fmt.Errorf("--max-bundle-size must not be negative")
	}

	includeActive := len(cfg.IncludeAuthor) > 0 || len(cfg.IncludeContent) > 0
	excludeActive := len(cfg.ExcludeAuthor) > 0 || len(cfg.ExcludeContent) > 0
	if includeActive && excludeActive {
		return fmt.Errorf("include and exclude flags are mutually exclusive")
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid --log-level: %s", cfg.LogLevel)
	}

	return nil
}
