package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/exportkit/chatview/attachment"
	"github.com/exportkit/chatview/bundle"
	"github.com/exportkit/chatview/config"
	"github.com/exportkit/chatview/pipeline"
	"github.com/exportkit/chatview/render"
	"github.com/exportkit/chatview/session"
	"github.com/exportkit/chatview/stats"
)

var (
	serveAddr     string
	serveMaxBytes int64
	serveLogLevel string
)

const uploadPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Chat Export Viewer</title>
<style>
body { background-color: #2f3136; color: #dcddde; font-family: system-ui, sans-serif; max-width: 640px; margin: 4rem auto; padding: 0 1rem; }
h1 { color: #ffffff; }
form { margin: 1.5rem 0; }
input[type=submit] { background-color: #5865f2; color: #ffffff; border: none; border-radius: 3px; padding: 0.5rem 1rem; cursor: pointer; }
code { background-color: #202225; padding: 0.1rem 0.25rem; border-radius: 3px; }
ul { color: #b9bbbe; }
</style>
</head>
<body>
<h1>Chat Export Viewer</h1>
<p>Upload an export ZIP and view it as a chat-style conversation.</p>
<form action="/view" method="post" enctype="multipart/form-data">
    <input type="file" name="bundle" accept=".zip" required>
    <input type="submit" value="View">
</form>
<p>Expected ZIP structure:</p>
<ul>
    <li><code>messages.json</code></li>
    <li><code>metadata.json</code> (optional)</li>
    <li><code>attachments/</code> (optional, files named by <code>saved_as</code>)</li>
</ul>
</body>
</html>
`

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve an upload form and render uploaded bundles on the fly",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, cleanup, err := setupLogger(serveLogLevel, "")
		if err != nil {
			return err
		}
		defer func() {
			_ = cleanup()
		}()

		mux := http.NewServeMux()
		mux.HandleFunc("/", handleIndex)
		mux.HandleFunc("/view", handleView(logger))

		logger.Info("listening", "addr", serveAddr)
		return http.ListenAndServe(serveAddr, mux)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "listen", ":8080", "Address to listen on")
	serveCmd.Flags().Int64Var(&serveMaxBytes, "max-bundle-size", config.DefaultMaxBundleBytes, "Ceiling on uploaded and extracted bundle size in bytes (0 = unlimited)")
	serveCmd.Flags().StringVar(&serveLogLevel, "log-level", "warn", "Logging level: debug, info, warn, error")
	rootCmd.AddCommand(serveCmd)
}

func handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, uploadPage)
}

// handleView ingests one uploaded ZIP bundle and writes the rendered page as
// the response. The upload size ceiling is enforced here, before the bundle
// reaches the pipeline; the working directory is released once the response
// is written.
func handleView(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		if serveMaxBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, serveMaxBytes)
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			http.Error(w, "upload too large or malformed", http.StatusRequestEntityTooLarge)
			return
		}

		file, _, err := r.FormFile("bundle")
		if err != nil {
			http.Error(w, "missing bundle file", http.StatusBadRequest)
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			http.Error(w, "reading upload failed", http.StatusBadRequest)
			return
		}

		sess, err := session.FromZipReader(bytes.NewReader(data), int64(len(data)), serveMaxBytes, logger)
		if err != nil {
			status := http.StatusUnprocessableEntity
			if errors.Is(err, session.ErrBundleTooLarge) {
				status = http.StatusRequestEntityTooLarge
			}
			http.Error(w, fmt.Sprintf("could not extract bundle: %v", err), status)
			return
		}
		defer func() {
			if err := sess.Close(); err != nil {
				logger.Warn("session cleanup failed", "err", err)
			}
		}()

		b, err := bundle.Load(sess.Dir(), logger)
		if err != nil {
			if errors.Is(err, bundle.ErrNoBundle) {
				http.Error(w, "no messages.json found in the uploaded ZIP", http.StatusUnprocessableEntity)
				return
			}
			http.Error(w, fmt.Sprintf("could not load bundle: %v", err), http.StatusUnprocessableEntity)
			return
		}

		reporter := stats.NewReporter(logger)
		store := attachment.NewStore(b.AttachmentsDir)
		renderer := render.New(store, reporter, logger)
		fragments := pipeline.New(renderer, nil, reporter, logger).Run(b)

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := renderer.Page(w, render.NewPageData("Chat Export", b.Metadata, fragments)); err != nil {
			logger.Error("writing page failed", "err", err)
		}
		reporter.Report()
	}
}
