package ai

import (
	"bytes"
	"encoding/json"
	"strings"
)

// ResponseKind tags the shape an agent answered with
type ResponseKind int

const (
	KindStructured ResponseKind = iota + 1
	KindText
)

// Response is the normalized result of an agent call: either a JSON document or free text.
type Response struct {
	Kind ResponseKind
	Data json.RawMessage
	Text string
}

// Structured wraps a JSON document
func Structured(data []byte) Response {
	return Response{Kind: KindStructured, Data: json.RawMessage(data)}
}

// Text wraps a free-text answer
func Text(s string) Response {
	return Response{Kind: KindText, Text: s}
}

// NewResponse classifies raw model output
func NewResponse(raw string) Response {
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" && json.Valid([]byte(trimmed)) {
		return Structured([]byte(trimmed))
	}
	return Text(raw)
}

// Payload returns the JSON document carried by the response. Text answers are
// searched for a JSON document, with markdown code fences stripped.
func (r Response) Payload() ([]byte, error) {
	switch r.Kind {
	case KindStructured:
		if len(bytes.TrimSpace(r.Data)) == 0 {
			return nil, ErrEmptyResponse
		}
		return r.Data, nil
	case KindText:
		return ExtractJSON(r.Text)
	default:
		return nil, ErrEmptyResponse
	}
}

// ExtractJSON pulls a JSON object or array out of free text
func ExtractJSON(s string) ([]byte, error) {
	clean := strings.TrimSpace(s)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)
	if clean == "" {
		return nil, ErrEmptyResponse
	}
	if json.Valid([]byte(clean)) {
		return []byte(clean), nil
	}

	start := strings.IndexAny(clean, "{[")
	if start < 0 {
		return nil, ErrUnstructured
	}
	closer := byte('}')
	if clean[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(clean, closer)
	if end <= start {
		return nil, ErrUnstructured
	}
	candidate := clean[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return nil, ErrUnstructured
	}
	return []byte(candidate), nil
}
