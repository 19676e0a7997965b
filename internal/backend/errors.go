package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrAnalysisTimeout marks an analysis fetch that exceeded the client-side
// ceiling. Distinct from generic transport failures so the operator sees a
// timeout message instead of a network error.
var ErrAnalysisTimeout = errors.New("gap analysis timed out")

// maxErrorBodyLen bounds how much of a raw error body ends up in messages.
const maxErrorBodyLen = 200

// APIError is a non-2xx response from the fleet-data backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
}

// errorBody is the structured shape the backend uses when it manages to
// produce JSON for a failure.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// newAPIError builds an APIError from a response body. The backend emits JSON
// with an error/message field on good days and bare text ("Internal Server
// Error") on bad ones, so the body is parsed opportunistically and truncated
// raw text is the fallback. Never panics on malformed input.
func newAPIError(statusCode int, body []byte) *APIError {
	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Error != "" {
			return &APIError{StatusCode: statusCode, Message: parsed.Error}
		}
		if parsed.Message != "" {
			return &APIError{StatusCode: statusCode, Message: parsed.Message}
		}
	}

	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBodyLen {
		msg = msg[:maxErrorBodyLen]
	}
	if msg == "" {
		msg = "no response body"
	}
	return &APIError{StatusCode: statusCode, Message: msg}
}
