// Package session scopes the working directory of one ingestion. A session
// either wraps a caller-supplied directory (never deleted) or owns a
// temporary directory extracted from a ZIP bundle, which Close removes.
// The size ceiling on extracted bytes is enforced here, before the bundle
// ever reaches the rendering pipeline.
package session

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrBundleTooLarge reports a ZIP whose extracted contents exceed the
// configured ceiling.
var ErrBundleTooLarge = errors.New("bundle exceeds the configured size ceiling")

// Session is one ingestion's working area.
type Session struct {
	dir    string
	owned  bool
	logger *slog.Logger
}

// FromDir wraps an existing bundle directory without taking ownership;
// Close is a no-op for such sessions.
func FromDir(dir string) *Session {
	return &Session{dir: dir}
}

// FromZip extracts a ZIP bundle into a fresh temporary directory.
// maxBytes bounds the total extracted size; zero means no limit.
func FromZip(path string, maxBytes int64, logger *slog.Logger) (*Session, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open zip %s: %w", path, err)
	}
	defer reader.Close()

	return extract(&reader.Reader, maxBytes, logger)
}

// FromZipReader extracts a ZIP bundle from an in-memory or request-backed
// reader, as produced by an upload handler.
func FromZipReader(r io.ReaderAt, size int64, maxBytes int64, logger *slog.Logger) (*Session, error) {
	reader, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("read zip: %w", err)
	}
	return extract(reader, maxBytes, logger)
}

func extract(reader *zip.Reader, maxBytes int64, logger *slog.Logger) (*Session, error) {
	dir := filepath.Join(os.TempDir(), "discord-export-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create working directory: %w", err)
	}

	s := &Session{dir: dir, owned: true, logger: logger}

	remaining := maxBytes
	if remaining <= 0 {
		remaining = math.MaxInt64
	}

	for _, file := range reader.File {
		dest, err := s.destPath(file.Name)
		if err != nil {
			_ = s.Close()
			return nil, err
		}

		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(dest, 0o700); err != nil {
				_ = s.Close()
				return nil, fmt.Errorf("create %s: %w", file.Name, err)
			}
			continue
		}

		written, err := s.extractFile(file, dest, remaining)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		remaining -= written
		if remaining < 0 {
			_ = s.Close()
			return nil, ErrBundleTooLarge
		}
	}

	if logger != nil {
		logger.Debug("bundle extracted", "dir", dir, "files", len(reader.File))
	}

	return s, nil
}

// destPath maps an archive entry name into the working directory and rejects
// names that would escape it.
func (s *Session) destPath(name string) (string, error) {
	dest := filepath.Join(s.dir, filepath.FromSlash(name))
	if dest != s.dir && !strings.HasPrefix(dest, s.dir+string(os.PathSeparator)) {
		return "", fmt.Errorf("zip entry %q escapes the working directory", name)
	}
	return dest, nil
}

// extractFile writes one entry, counting actual decompressed bytes rather
// than trusting the declared size.
func (s *Session) extractFile(file *zip.File, dest string, remaining int64) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o700); err != nil {
		return 0, fmt.Errorf("create directory for %s: %w", file.Name, err)
	}

	in, err := file.Open()
	if err != nil {
		return 0, fmt.Errorf("open zip entry %s: %w", file.Name, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", file.Name, err)
	}

	limit := remaining
	if limit < math.MaxInt64 {
		limit++ // one extra byte detects overshoot without trusting declared sizes
	}
	written, err := io.Copy(out, io.LimitReader(in, limit))
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return written, fmt.Errorf("extract %s: %w", file.Name, err)
	}
	if written > remaining {
		return written, ErrBundleTooLarge
	}
	return written, nil
}

// Dir is the directory holding the bundle for this session.
func (s *Session) Dir() string {
	return s.dir
}

// Close releases the working directory if this session created it.
func (s *Session) Close() error {
	if !s.owned {
		return nil
	}
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("remove working directory: %w", err)
	}
	if s.logger != nil {
		s.logger.Debug("working directory removed", "dir", s.dir)
	}
	return nil
}
