// Package types contains shared types used across multiple packages.
// This helps avoid import cycles between packages like llm and gateway.
package types

import "strings"

// Speaker identifies who produced a turn.
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// Valid reports whether s is a known speaker.
func (s Speaker) Valid() bool {
	return s == SpeakerUser || s == SpeakerAssistant
}

// ImageAttachment is a decoded image ready to be sent to a provider.
type ImageAttachment struct {
	Data     string `json:"data"`     // Base64-encoded image data
	MimeType string `json:"mimeType"` // MIME type (e.g., "image/jpeg")
}

// DataURI renders the attachment as a data: URI.
func (a *ImageAttachment) DataURI() string {
	if a == nil {
		return ""
	}
	return "data:" + a.MimeType + ";base64," + a.Data
}

// Turn is one entry of conversation history. Turns are caller-owned and
// never mutated once built.
type Turn struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
	Image   string  `json:"image,omitempty"` // data URI or URL, optional
}

// ChatRequest is one inbound chat request. History is ordered oldest first.
type ChatRequest struct {
	History      []Turn `json:"history"`
	Message      string `json:"message"`
	Image        string `json:"image,omitempty"`        // base64 data URI
	ProviderHint string `json:"providerHint,omitempty"` // preferred provider ID
}

// HasImage returns true if an image is attached to the request
func (r *ChatRequest) HasImage() bool {
	return strings.TrimSpace(r.Image) != ""
}

// DrawRequest is one inbound image generation request.
type DrawRequest struct {
	Prompt       string `json:"prompt"`
	ProviderHint string `json:"providerHint,omitempty"`
}
