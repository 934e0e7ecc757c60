package ai

import "errors"

// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("ai quota exceeded")

// ErrEmptyResponse indicates the provider answered without any content.
var ErrEmptyResponse = errors.New("ai empty response")

// ErrUnstructured is returned when a text response holds no JSON document.
var ErrUnstructured = errors.New("ai response is not structured")
