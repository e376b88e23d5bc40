package cmd

import (
	"archive/zip"
	"bytes"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func buildBundleZip(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range entries {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("create zip entry %s: %v", name, err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatalf("write zip entry %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close zip writer: %v", err)
	}
	return buf.Bytes()
}

func uploadRequest(t *testing.T, payload []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("bundle", "bundle.zip")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(payload); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/view", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func withServeMaxBytes(t *testing.T, maxBytes int64) {
	t.Helper()
	old := serveMaxBytes
	serveMaxBytes = maxBytes
	t.Cleanup(func() { serveMaxBytes = old })
}

func TestHandleViewRejectsOversizedRequest(t *testing.T) {
	withServeMaxBytes(t, 64)

	payload := buildBundleZip(t, map[string]string{"messages.json": `[]`})
	rec := httptest.NewRecorder()
	handleView(discardLogger())(rec, uploadRequest(t, payload))

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusRequestEntityTooLarge)
	}
}

func TestHandleViewRejectsOversizedExtraction(t *testing.T) {
	// Highly compressible payload: the upload stays small, but the extracted
	// bytes blow past the ceiling.
	withServeMaxBytes(t, 8<<10)

	payload := buildBundleZip(t, map[string]string{
		"messages.json": `[]`,
		"huge.bin":      strings.Repeat("x", 1<<20),
	})
	if int64(len(payload)) >= 8<<10 {
		t.Fatalf("compressed payload is %d bytes, expected it under the ceiling", len(payload))
	}

	rec := httptest.NewRecorder()
	handleView(discardLogger())(rec, uploadRequest(t, payload))

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusRequestEntityTooLarge)
	}
}

func TestHandleViewZeroCeilingIsUnlimited(t *testing.T) {
	withServeMaxBytes(t, 0)

	payload := buildBundleZip(t, map[string]string{
		"messages.json": `[{"author": "alice", "content": "hi", "created_at": "2024-09-17T06:52:11Z"}]`,
	})

	rec := httptest.NewRecorder()
	handleView(discardLogger())(rec, uploadRequest(t, payload))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `<span class="author-name">alice</span>`) {
		t.Errorf("rendered page missing message markup:\n%s", rec.Body.String())
	}
}

func TestHandleViewMethodNotAllowed(t *testing.T) {
	withServeMaxBytes(t, 0)

	rec := httptest.NewRecorder()
	handleView(discardLogger())(rec, httptest.NewRequest(http.MethodGet, "/view", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}

func TestHandleViewZipWithoutMessages(t *testing.T) {
	withServeMaxBytes(t, 0)

	payload := buildBundleZip(t, map[string]string{"readme.txt": "nothing here"})
	rec := httptest.NewRecorder()
	handleView(discardLogger())(rec, uploadRequest(t, payload))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
}
