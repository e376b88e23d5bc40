// Package render composes sanitized text, normalized timestamps and resolved
// attachments into one HTML fragment per message, with day separators at
// calendar-date boundaries, plus the standalone page shell around them.
// Fragment markup lives in embedded templates.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"unicode"

	"github.com/exportkit/chatview/attachment"
	"github.com/exportkit/chatview/model"
	"github.com/exportkit/chatview/sanitize"
	"github.com/exportkit/chatview/stats"
	"github.com/exportkit/chatview/timestamp"
)

//go:embed templates/*.html
var content embed.FS

type FragmentKind string

const (
	FragmentMessage   FragmentKind = "message"
	FragmentSeparator FragmentKind = "separator"
)

// Fragment is one unit of rendered output: a message or a day separator.
type Fragment struct {
	Kind FragmentKind
	Day  string // calendar date, separators only
	HTML template.HTML
}

// Renderer renders messages against an attachment store. The stats sink and
// logger may be nil.
type Renderer struct {
	tmpl   *template.Template
	store  *attachment.Store
	sink   stats.Sink
	logger *slog.Logger
}

func New(store *attachment.Store, sink stats.Sink, logger *slog.Logger) *Renderer {
	tmpl := template.Must(template.New("page.html").ParseFS(content, "templates/*.html"))
	return &Renderer{tmpl: tmpl, store: store, sink: sink, logger: logger}
}

// messageData is the per-message template data.
type messageData struct {
	Avatar      string
	Author      string
	Timestamp   string
	Body        template.HTML
	Attachments []attachment.Resolved
}

// Message renders one message fragment: avatar, author, timestamp, body,
// then attachments in their original order.
func (r *Renderer) Message(msg model.Message) (template.HTML, error) {
	if msg.CreatedAt != "" {
		if _, ok := timestamp.Parse(msg.CreatedAt); !ok {
			r.emit(stats.Event{Stage: stats.StageRender, Type: stats.EventTypeDegradedTimestamp, Author: msg.Author, Detail: msg.CreatedAt})
		}
	}

	body := sanitize.HighlightMentions(sanitize.Escape(msg.Content))

	resolved := make([]attachment.Resolved, 0, len(msg.Attachments))
	for _, att := range msg.Attachments {
		res := attachment.Resolve(att, r.store)
		resolved = append(resolved, res)
		r.emit(stats.Event{Stage: stats.StageRender, Type: attachmentEventType(res.Kind), Author: msg.Author, Detail: res.Filename})
	}

	data := messageData{
		Avatar:      avatarGlyph(msg.Author),
		Author:      msg.Author,
		Timestamp:   timestamp.Format(msg.CreatedAt),
		Body:        template.HTML(body),
		Attachments: resolved,
	}

	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, "message.html", data); err != nil {
		return "", fmt.Errorf("render message: %w", err)
	}
	return template.HTML(buf.String()), nil
}

// Separator renders the day-boundary marker for a calendar date.
func (r *Renderer) Separator(day string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, "separator.html", struct{ Day string }{Day: day}); err != nil {
		return "", fmt.Errorf("render separator: %w", err)
	}
	return template.HTML(buf.String()), nil
}

// Sequence renders an already-sorted message slice, inserting a separator
// whenever the calendar date of a parseable timestamp differs from the
// previous one. Per-message failures are contained: they are logged and
// counted, never abort the batch.
func (r *Renderer) Sequence(messages []model.Message) []Fragment {
	fragments := make([]Fragment, 0, len(messages))
	lastDay := ""

	for _, msg := range messages {
		if day, ok := timestamp.Day(msg.CreatedAt); ok && day != lastDay {
			markup, err := r.Separator(day)
			if err != nil {
				r.fail(msg.Author, err)
			} else {
				fragments = append(fragments, Fragment{Kind: FragmentSeparator, Day: day, HTML: markup})
				r.emit(stats.Event{Stage: stats.StageRender, Type: stats.EventTypeSeparator, Detail: day})
				lastDay = day
			}
		}

		markup, err := r.Message(msg)
		if err != nil {
			r.fail(msg.Author, err)
			continue
		}
		fragments = append(fragments, Fragment{Kind: FragmentMessage, HTML: markup})
		r.emit(stats.Event{Stage: stats.StageRender, Type: stats.EventTypeRendered, Author: msg.Author})
	}

	return fragments
}

// PageData is the template data for the standalone page shell.
type PageData struct {
	Title        string
	GuildName    string
	ChannelName  string
	MessageCount int
	Fragments    []Fragment
}

// NewPageData assembles page data from rendered fragments and the bundle's
// opaque metadata, surfacing the common server/channel name keys.
func NewPageData(title string, metadata map[string]any, fragments []Fragment) PageData {
	data := PageData{Title: title, Fragments: fragments}
	for _, frag := range fragments {
		if frag.Kind == FragmentMessage {
			data.MessageCount++
		}
	}
	data.GuildName = metadataString(metadata, "guild_name", "server_name")
	data.ChannelName = metadataString(metadata, "channel_name")
	return data
}

// Page writes the complete HTML document wrapping the fragments.
func (r *Renderer) Page(w io.Writer, data PageData) error {
	if err := r.tmpl.ExecuteTemplate(w, "page.html", data); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	return nil
}

func metadataString(metadata map[string]any, keys ...string) string {
	for _, key := range keys {
		if value, ok := metadata[key].(string); ok && value != "" {
			return value
		}
	}
	return ""
}

// avatarGlyph is the upper-cased first character of the author name, or a
// placeholder when there is none.
func avatarGlyph(author string) string {
	for _, r := range author {
		return string(unicode.ToUpper(r))
	}
	return "?"
}

func attachmentEventType(kind attachment.Kind) stats.EventType {
	switch kind {
	case attachment.KindInlineImage, attachment.KindInlineVideo:
		return stats.EventTypeAttachmentInline
	case attachment.KindLink:
		return stats.EventTypeAttachmentLinked
	default:
		return stats.EventTypeAttachmentLabeled
	}
}

func (r *Renderer) emit(evt stats.Event) {
	if r.sink != nil {
		r.sink.Emit(evt)
	}
}

func (r *Renderer) fail(author string, err error) {
	if r.logger != nil {
		r.logger.Error("message render failed", "author", author, "err", err)
	}
	r.emit(stats.Event{Stage: stats.StageRender, Type: stats.EventTypeError, Author: author, Err: err})
}
