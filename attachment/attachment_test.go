package attachment

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/exportkit/chatview/model"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		contentType string
		want        Category
	}{
		{"image/png", CategoryImage},
		{"IMAGE/PNG", CategoryImage},
		{"Image/JPEG", CategoryImage},
		{"video/mp4", CategoryVideo},
		{"application/pdf", CategoryOther},
		{"text/plain", CategoryOther},
		{"", CategoryOther},
		{"garbage", CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			if got := Categorize(tt.contentType); got != tt.want {
				t.Errorf("Categorize(%q) = %q, want %q", tt.contentType, got, tt.want)
			}
		})
	}
}

func newTestStore(t *testing.T, files map[string][]byte) *Store {
	t.Helper()
	dir := t.TempDir()
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o600); err != nil {
			t.Fatalf("write test file %s: %v", name, err)
		}
	}
	return NewStore(dir)
}

func TestResolveInlineImageFromStore(t *testing.T) {
	data := []byte{0x89, 0x50, 0x4e, 0x47}
	store := newTestStore(t, map[string][]byte{"pic.png": data})

	att := model.Attachment{
		Filename:    "pic.png",
		SavedAs:     "pic.png",
		URL:         "https://cdn.example.com/pic.png",
		ContentType: "image/png",
	}

	res := Resolve(att, store)
	if res.Kind != KindInlineImage {
		t.Fatalf("Kind = %q, want %q", res.Kind, KindInlineImage)
	}

	wantPrefix := "data:image/png;base64,"
	if !strings.HasPrefix(string(res.Source), wantPrefix) {
		t.Errorf("Source = %q, want prefix %q", res.Source, wantPrefix)
	}
	wantB64 := base64.StdEncoding.EncodeToString(data)
	if !strings.HasSuffix(string(res.Source), wantB64) {
		t.Errorf("Source does not embed the file bytes: %q", res.Source)
	}

	// The link target is the original URL when one is present.
	if string(res.Href) != att.URL {
		t.Errorf("Href = %q, want %q", res.Href, att.URL)
	}
}

func TestResolveInlineImageFallsBackToURL(t *testing.T) {
	att := model.Attachment{
		Filename:    "pic.png",
		SavedAs:     "pic.png",
		URL:         "https://cdn.example.com/pic.png",
		ContentType: "image/png",
	}

	res := Resolve(att, nil)
	if res.Kind != KindInlineImage {
		t.Fatalf("Kind = %q, want %q", res.Kind, KindInlineImage)
	}
	if string(res.Source) != att.URL {
		t.Errorf("Source = %q, want remote URL", res.Source)
	}
	if string(res.Href) != att.URL {
		t.Errorf("Href = %q, want remote URL", res.Href)
	}
}

func TestResolveInlineImageMissingFileFallsBackToURL(t *testing.T) {
	store := newTestStore(t, nil)

	att := model.Attachment{
		Filename:    "pic.png",
		SavedAs:     "gone.png",
		URL:         "https://cdn.example.com/pic.png",
		ContentType: "image/png",
	}

	res := Resolve(att, store)
	if res.Kind != KindInlineImage {
		t.Fatalf("Kind = %q, want %q", res.Kind, KindInlineImage)
	}
	if string(res.Source) != att.URL {
		t.Errorf("Source = %q, want remote URL", res.Source)
	}
}

func TestResolveImageWithoutAnySourceDegradesToLabel(t *testing.T) {
	att := model.Attachment{
		Filename:    "pic.png",
		SavedAs:     "pic.png",
		ContentType: "image/png",
	}

	res := Resolve(att, nil)
	if res.Kind != KindLabel {
		t.Fatalf("Kind = %q, want %q", res.Kind, KindLabel)
	}
	if res.Filename != "pic.png" {
		t.Errorf("Filename = %q, want pic.png", res.Filename)
	}
}

func TestResolveInlineVideo(t *testing.T) {
	store := newTestStore(t, map[string][]byte{"clip.mp4": []byte("video-bytes")})

	att := model.Attachment{
		Filename:    "clip.mp4",
		SavedAs:     "clip.mp4",
		ContentType: "video/mp4",
	}

	res := Resolve(att, store)
	if res.Kind != KindInlineVideo {
		t.Fatalf("Kind = %q, want %q", res.Kind, KindInlineVideo)
	}
	if !strings.HasPrefix(string(res.Source), "data:video/mp4;base64,") {
		t.Errorf("Source = %q, want data URI", res.Source)
	}
	// No remote URL, so the link target is the inline source itself.
	if res.Href != res.Source {
		t.Errorf("Href = %q, want inline source", res.Href)
	}
}

func TestResolveOtherCategoryLinks(t *testing.T) {
	store := newTestStore(t, map[string][]byte{"notes.pdf": []byte("pdf")})

	att := model.Attachment{
		Filename:    "notes.pdf",
		SavedAs:     "notes.pdf",
		URL:         "https://cdn.example.com/notes.pdf",
		ContentType: "application/pdf",
	}

	res := Resolve(att, store)
	if res.Kind != KindLink {
		t.Fatalf("Kind = %q, want %q", res.Kind, KindLink)
	}
	if string(res.Href) != att.URL {
		t.Errorf("Href = %q, want %q", res.Href, att.URL)
	}
}

func TestResolveRejectsUnsafeScheme(t *testing.T) {
	att := model.Attachment{
		Filename:    "pic.png",
		SavedAs:     "pic.png",
		URL:         "javascript:alert(1)",
		ContentType: "image/png",
	}

	res := Resolve(att, nil)
	if res.Kind != KindLabel {
		t.Fatalf("Kind = %q, want %q (unsafe URL must not be used)", res.Kind, KindLabel)
	}
}

func TestResolveOddContentTypeGetsGenericMIME(t *testing.T) {
	store := newTestStore(t, map[string][]byte{"x.bin": []byte{1}})

	att := model.Attachment{
		Filename:    "x.bin",
		SavedAs:     "x.bin",
		ContentType: `image/png" onerror="alert(1)`,
	}

	res := Resolve(att, store)
	if res.Kind != KindInlineImage {
		t.Fatalf("Kind = %q, want %q", res.Kind, KindInlineImage)
	}
	if !strings.HasPrefix(string(res.Source), "data:application/octet-stream;base64,") {
		t.Errorf("Source = %q, want generic MIME for malformed content type", res.Source)
	}
}

func TestStoreNilAndPathEscape(t *testing.T) {
	var nilStore *Store
	if _, err := nilStore.ReadFile("anything"); err == nil {
		t.Error("nil store ReadFile succeeded, expected error")
	}
	if nilStore.Exists("anything") {
		t.Error("nil store Exists returned true")
	}

	store := newTestStore(t, map[string][]byte{"inside.txt": []byte("ok")})
	if !store.Exists("inside.txt") {
		t.Error("Exists returned false for present file")
	}
	// Path components are stripped; only the base name is looked up.
	if _, err := store.ReadFile("../../etc/passwd"); err == nil {
		t.Error("ReadFile with traversal succeeded, expected error")
	}
}
