package models

import (
	"errors"
	"strings"
)

// ErrEmptyResponse is returned by providers when the endpoint answered with
// no candidates at all.
var ErrEmptyResponse = errors.New("model returned no content")

// Model_Response is either a single string (one part) or a sequence of typed
// chunks (several parts). Both shapes are valid replies.
type Model_Response struct {
	Parts []Model_Part `json:"parts"`
}

type Model_Part struct {
	Type string `json:"type,omitempty"` // "text" when set by the provider
	Text string `json:"text"`
}

// TextResponse wraps a plain string reply.
func TextResponse(text string) Model_Response {
	return Model_Response{Parts: []Model_Part{{Type: "text", Text: text}}}
}

// ChunkResponse wraps a chunked reply.
func ChunkResponse(chunks ...string) Model_Response {
	parts := make([]Model_Part, len(chunks))
	for i, c := range chunks {
		parts[i] = Model_Part{Type: "text", Text: c}
	}
	return Model_Response{Parts: parts}
}

// Text joins the parts in order with newline separators.
func (r Model_Response) Text() string {
	switch len(r.Parts) {
	case 0:
		return ""
	case 1:
		return r.Parts[0].Text
	}
	texts := make([]string, len(r.Parts))
	for i, p := range r.Parts {
		texts[i] = p.Text
	}
	return strings.Join(texts, "\n")
}
