// Package bundle loads an export bundle from a directory: the required
// messages document, the optional metadata document and the optional
// attachments directory. Document-level problems are hard failures with
// distinct causes; everything below that degrades to defaults.
package bundle

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/exportkit/chatview/model"
)

const (
	messagesFile   = "messages.json"
	metadataFile   = "metadata.json"
	attachmentsDir = "attachments"
)

var (
	// ErrNoBundle reports that the directory holds no messages document at
	// all. Callers distinguish this "nothing to show" case from malformed
	// input.
	ErrNoBundle = errors.New("no messages.json found in bundle")

	// ErrUnrecognizedShape reports valid JSON that is neither an array of
	// messages nor an object with a "messages" key.
	ErrUnrecognizedShape = errors.New(`messages document is neither a list nor an object with a "messages" key`)
)

// Load reads the bundle rooted at dir. The logger may be nil.
func Load(dir string, logger *slog.Logger) (*model.Bundle, error) {
	data, err := os.ReadFile(filepath.Join(dir, messagesFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoBundle, dir)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", messagesFile, err)
	}

	messages, err := decodeMessages(data)
	if err != nil {
		return nil, err
	}

	b := &model.Bundle{
		Messages: messages,
		Metadata: loadMetadata(dir, logger),
	}

	if info, err := os.Stat(filepath.Join(dir, attachmentsDir)); err == nil && info.IsDir() {
		b.AttachmentsDir = filepath.Join(dir, attachmentsDir)
	}

	return b, nil
}

// decodeMessages resolves the "bare list or enveloped object" shape once, so
// downstream components always see one canonical message slice.
func decodeMessages(data []byte) ([]model.Message, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("parse %s: document is empty", messagesFile)
	}

	switch trimmed[0] {
	case '[':
		var messages []model.Message
		if err := json.Unmarshal(trimmed, &messages); err != nil {
			return nil, fmt.Errorf("parse %s: %w", messagesFile, err)
		}
		return normalize(messages), nil
	case '{':
		var envelope struct {
			Messages json.RawMessage `json:"messages"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, fmt.Errorf("parse %s: %w", messagesFile, err)
		}
		// The key must be present and hold a list; anything else is a shape
		// problem, not a syntax problem.
		value := bytes.TrimSpace(envelope.Messages)
		if len(value) == 0 || value[0] != '[' {
			return nil, ErrUnrecognizedShape
		}
		var messages []model.Message
		if err := json.Unmarshal(value, &messages); err != nil {
			return nil, fmt.Errorf("parse %s: %w", messagesFile, err)
		}
		return normalize(messages), nil
	default:
		// Scalars are valid JSON but not a message document.
		if !json.Valid(trimmed) {
			return nil, fmt.Errorf("parse %s: invalid JSON", messagesFile)
		}
		return nil, ErrUnrecognizedShape
	}
}

// normalize applies the documented field defaults at the boundary:
// author falls back to a placeholder name, attachment filenames to a generic
// label, and saved_as to the filename.
func normalize(messages []model.Message) []model.Message {
	for i := range messages {
		if messages[i].Author == "" {
			messages[i].Author = "Unknown"
		}
		for j := range messages[i].Attachments {
			att := &messages[i].Attachments[j]
			if att.Filename == "" {
				att.Filename = "attachment"
			}
			if att.SavedAs == "" {
				att.SavedAs = att.Filename
			}
		}
	}
	return messages
}

// loadMetadata parses metadata.json best-effort: any failure yields nil
// metadata rather than aborting the load.
func loadMetadata(dir string, logger *slog.Logger) map[string]any {
	data, err := os.ReadFile(filepath.Join(dir, metadataFile))
	if err != nil {
		return nil
	}

	var metadata map[string]any
	if err := json.Unmarshal(data, &metadata); err != nil {
		if logger != nil {
			logger.Warn("ignoring malformed metadata", "file", metadataFile, "err", err)
		}
		return nil
	}
	return metadata
}
