package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/exportkit/chatview/attachment"
	"github.com/exportkit/chatview/bundle"
	"github.com/exportkit/chatview/config"
	"github.com/exportkit/chatview/filter"
	"github.com/exportkit/chatview/pipeline"
	"github.com/exportkit/chatview/progress"
	"github.com/exportkit/chatview/render"
	"github.com/exportkit/chatview/session"
	"github.com/exportkit/chatview/stats"
)

var rootCmd = &cobra.Command{
	Use:   "chatview",
	Short: "Render chat export bundles into a styled HTML conversation view",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(cmd)
		if err != nil {
			return err
		}

		logger, cleanup, err := setupLogger(cfg.LogLevel, cfg.LogDir)
		if err != nil {
			return err
		}
		defer func() {
			_ = cleanup()
		}()

		slog.SetDefault(logger)
		logger.Info("starting chatview", "bundle", cfg.BundlePath, "output", cfg.OutputPath)

		return run(cfg, logger)
	},
}

// Execute registers flags on the root command and runs it.
func Execute() {
	if err := config.RegisterFlags(rootCmd); err != nil {
		fmt.Fprintf(os.Stderr, "failed to register CLI flags: %v\n", err)
		os.Exit(1)
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	sess, err := openSession(cfg.BundlePath, cfg.MaxBundleBytes, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := sess.Close(); err != nil {
			logger.Warn("session cleanup failed", "err", err)
		}
	}()

	b, err := bundle.Load(sess.Dir(), logger)
	if err != nil {
		return err
	}

	messageFilter, err := filter.New(filter.Options{
		IncludeAuthor:  cfg.IncludeAuthor,
		IncludeContent: cfg.IncludeContent,
		ExcludeAuthor:  cfg.ExcludeAuthor,
		ExcludeContent: cfg.ExcludeContent,
	})
	if err != nil {
		return fmt.Errorf("filter: %w", err)
	}
	if !messageFilter.Active() {
		messageFilter = nil
	}

	reporter := stats.NewReporter(logger)
	bar := progress.New(len(b.Messages), cfg.LogLevel)
	sink := stats.Sinks{reporter, bar}

	store := attachment.NewStore(b.AttachmentsDir)
	renderer := render.New(store, sink, logger)

	fragments := pipeline.New(renderer, messageFilter, sink, logger).Run(b)
	bar.Stop()

	data := render.NewPageData(cfg.Title, b.Metadata, fragments)

	out, err := os.Create(cfg.OutputPath)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	if err := renderer.Page(out, data); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close output file: %w", err)
	}

	reporter.Report()
	logger.Info("wrote conversation view", "output", cfg.OutputPath, "messages", data.MessageCount)
	return nil
}

// openSession wraps a bundle directory directly or extracts a .zip bundle
// into a temporary working directory owned by the session.
func openSession(path string, maxBytes int64, logger *slog.Logger) (*session.Session, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat bundle: %w", err)
	}
	if info.IsDir() {
		return session.FromDir(path), nil
	}
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		return session.FromZip(path, maxBytes, logger)
	}
	return nil, fmt.Errorf("bundle must be a directory or a .zip file: %s", path)
}

func setupLogger(logLevel, logDir string) (*slog.Logger, func() error, error) {
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)

	switch logLevel {
	case "debug":
		level.Set(slog.LevelDebug)
	case "info":
		level.Set(slog.LevelInfo)
	case "warn":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	}

	opts := &slog.HandlerOptions{Level: level}
	cleanup := func() error { return nil }

	if logDir != "" {
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return nil, cleanup, err
		}

		logFilePath := filepath.Join(logDir, fmt.Sprintf("chatview-%s.log", time.Now().Format("20060102T150405")))
		file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, cleanup, err
		}

		handler := slog.NewTextHandler(io.MultiWriter(os.Stdout, file), opts)
		cleanup = func() error {
			return file.Close()
		}
		return slog.New(handler), cleanup, nil
	}

	handler := slog.NewTextHandler(os.Stdout, opts)
	return slog.New(handler), cleanup, nil
}
