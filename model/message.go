package model

// Message is a single chat message from an export bundle. All fields are
// optional on the wire; the bundle loader applies defaults so downstream
// components never re-check absence.
type Message struct {
	Author      string       `json:"author"`
	Content     string       `json:"content"`
	CreatedAt   string       `json:"created_at"`
	Attachments []Attachment `json:"attachments"`
}

// Attachment references a file that accompanied a message. SavedAs names the
// file inside the bundle's attachments directory and defaults to Filename.
type Attachment struct {
	Filename    string `json:"filename"`
	SavedAs     string `json:"saved_as"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
}

// Bundle is one parsed export: the message sequence, the optional free-form
// metadata document, and the optional attachments directory. Bundles are
// created once by the loader and read-only afterwards.
type Bundle struct {
	Messages       []Message
	Metadata       map[string]any
	AttachmentsDir string
}
