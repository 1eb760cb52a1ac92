// Package models contains shared data models used across the scenegen codebase.
package models

import (
	"context"
	"strings"
)

// Message roles understood by every ChatModel implementation.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// ChatModel is the core interface that all generative model integrations implement.
// Text and image models share it; an image model simply returns image parts.
// Never call a concrete model client directly, always inject this interface.
type ChatModel interface {
	// Invoke sends the conversation and returns the model reply.
	Invoke(ctx context.Context, messages []Message) (*Response, error)
	// Name returns the model identifier (e.g. "gemini-2.5-flash").
	Name() string
}

// Message is one turn of a conversation sent to a ChatModel.
type Message struct {
	Role  string
	Parts []Part
}

// Part is either a text fragment or an image. Exactly one of Text or Image is set.
type Part struct {
	Text  string
	Image *Image
}

// Image is an image payload. Data is set for inline images; URL is set for
// remote references (including data: URLs returned by some providers).
type Image struct {
	URL      string
	Data     []byte
	MIMEType string
}

// Response is a model reply, kept as an ordered list of parts.
type Response struct {
	Model string
	Parts []Part
}

// UserMessage builds a user turn from the given parts.
func UserMessage(parts ...Part) Message {
	return Message{Role: RoleUser, Parts: parts}
}

// TextPart wraps a string as a Part.
func TextPart(s string) Part {
	return Part{Text: s}
}

// ImagePart wraps inline image bytes as a Part.
func ImagePart(data []byte, mimeType string) Part {
	return Part{Image: &Image{Data: data, MIMEType: mimeType}}
}

// ImageURLPart wraps a remote image reference as a Part.
func ImageURLPart(url, mimeType string) Part {
	return Part{Image: &Image{URL: url, MIMEType: mimeType}}
}

// Text concatenates all text parts of the reply.
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range r.Parts {
		if p.Image == nil {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// Images returns the image parts of the reply in order.
func (r *Response) Images() []Image {
	if r == nil {
		return nil
	}
	var out []Image
	for _, p := range r.Parts {
		if p.Image != nil {
			out = append(out, *p.Image)
		}
	}
	return out
}
