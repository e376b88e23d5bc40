// Package attachment resolves export attachment records into displayable
// resources. Resolution walks an ordered strategy chain (inline embed,
// remote link, plain label) and never fails outright, it only degrades to a
// plainer representation. The resolver reads local files; it never touches
// the network.
package attachment

import (
	"encoding/base64"
	"html/template"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/exportkit/chatview/model"
)

// Category is the coarse media kind derived from a content type.
type Category string

const (
	CategoryImage Category = "image"
	CategoryVideo Category = "video"
	CategoryOther Category = "other"
)

// Kind tells the renderer which fragment shape a resolved attachment needs.
type Kind string

const (
	KindInlineImage Kind = "inline-image"
	KindInlineVideo Kind = "inline-video"
	KindLink        Kind = "link"
	KindLabel       Kind = "label"
)

// Resolved is a displayable attachment. Source and Href are pre-vetted:
// either data URIs built here from local bytes or http(s) URLs, so they are
// safe to mark as URLs for templating (the autoescaper would otherwise
// reject data: sources).
type Resolved struct {
	Kind     Kind
	Source   template.URL
	Href     template.URL
	Filename string
}

// Store looks up locally saved attachment files by their saved-as name.
// A nil *Store means the bundle carried no attachments directory and every
// attachment falls back to remote or plain rendering.
type Store struct {
	dir string
}

// NewStore wraps an attachments directory. An empty dir yields nil.
func NewStore(dir string) *Store {
	if dir == "" {
		return nil
	}
	return &Store{dir: dir}
}

// ReadFile reads the file saved under the given name. The name is reduced to
// its base so a crafted saved_as cannot escape the directory.
func (s *Store) ReadFile(savedAs string) ([]byte, error) {
	if s == nil || savedAs == "" {
		return nil, os.ErrNotExist
	}
	return os.ReadFile(filepath.Join(s.dir, filepath.Base(savedAs)))
}

// Exists reports whether a file is saved under the given name.
func (s *Store) Exists(savedAs string) bool {
	if s == nil || savedAs == "" {
		return false
	}
	info, err := os.Stat(filepath.Join(s.dir, filepath.Base(savedAs)))
	return err == nil && !info.IsDir()
}

// Categorize derives the media category from a declared content type:
// the first /-separated segment, case-insensitively. Missing or unrecognized
// types map to CategoryOther.
func Categorize(contentType string) Category {
	primary, _, _ := strings.Cut(contentType, "/")
	switch strings.ToLower(strings.TrimSpace(primary)) {
	case "image":
		return CategoryImage
	case "video":
		return CategoryVideo
	default:
		return CategoryOther
	}
}

type strategy func(att model.Attachment, store *Store) (Resolved, bool)

// Strategies are tried in order; each either produces a result or signals
// "try next". resolveLabel always resolves, so the chain is total.
var chain = []strategy{resolveInline, resolveLink, resolveLabel}

// Resolve turns an attachment record into its richest displayable form.
func Resolve(att model.Attachment, store *Store) Resolved {
	for _, next := range chain {
		if resolved, ok := next(att, store); ok {
			return resolved
		}
	}
	return Resolved{Kind: KindLabel, Filename: att.Filename}
}

func resolveInline(att model.Attachment, store *Store) (Resolved, bool) {
	category := Categorize(att.ContentType)
	if category != CategoryImage && category != CategoryVideo {
		return Resolved{}, false
	}

	remote := remoteURL(att.URL)
	src := dataURI(att, store)
	if src == "" {
		src = remote
	}
	if src == "" {
		return Resolved{}, false
	}

	// The link target is the original URL when present, otherwise the
	// inline source itself.
	href := remote
	if href == "" {
		href = src
	}

	kind := KindInlineImage
	if category == CategoryVideo {
		kind = KindInlineVideo
	}

	return Resolved{
		Kind:     kind,
		Source:   template.URL(src),
		Href:     template.URL(href),
		Filename: att.Filename,
	}, true
}

func resolveLink(att model.Attachment, _ *Store) (Resolved, bool) {
	remote := remoteURL(att.URL)
	if remote == "" {
		return Resolved{}, false
	}
	return Resolved{Kind: KindLink, Href: template.URL(remote), Filename: att.Filename}, true
}

func resolveLabel(att model.Attachment, _ *Store) (Resolved, bool) {
	return Resolved{Kind: KindLabel, Filename: att.Filename}, true
}

var mimePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9!#$&^_.+-]*/[A-Za-z0-9][A-Za-z0-9!#$&^_.+-]*$`)

// dataURI embeds the locally saved file as a base64 data URI tagged with the
// declared content type. Any read failure yields "" so the caller falls back
// to the remote URL.
func dataURI(att model.Attachment, store *Store) string {
	data, err := store.ReadFile(att.SavedAs)
	if err != nil {
		return ""
	}
	mime := strings.TrimSpace(att.ContentType)
	if !mimePattern.MatchString(mime) {
		mime = "application/octet-stream"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// remoteURL vets a remote reference. Only http and https schemes are
// trusted; anything else is treated as absent.
func remoteURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return raw
	}
	return ""
}
