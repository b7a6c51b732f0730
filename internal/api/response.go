package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

// Response is the normalized result of a call that reached the backend.
type Response struct {
	// Data is the parsed body, or the synthetic error payload.
	Data   json.RawMessage
	Status int
	// OK mirrors the 2xx status range.
	OK bool
}

func newResponse(status int, body []byte) *Response {
	r := &Response{
		OK:     status >= 200 && status < 300,
		Status: status,
	}
	if len(body) > 0 && gjson.ValidBytes(body) {
		r.Data = json.RawMessage(body)
		return r
	}
	r.Data = fallbackPayload(status)
	return r
}

func fallbackPayload(status int) json.RawMessage {
	text := http.StatusText(status)
	if text == "" {
		text = "Unknown Status"
	}
	payload, _ := json.Marshal(map[string]any{ //nolint:errcheck // map of primitives
		"error":   true,
		"message": fmt.Sprintf("Request failed with status %d (%s)", status, text),
	})
	return payload
}

// Get looks up a gjson path in Data.
func (r *Response) Get(path string) gjson.Result {
	return gjson.GetBytes(r.Data, path)
}

// Message returns the backend's human-readable message: "message", or a
// string "error" field. Empty when neither is present.
func (r *Response) Message() string {
	if m := r.Get("message"); m.Type == gjson.String && m.String() != "" {
		return m.String()
	}
	if e := r.Get("error"); e.Type == gjson.String {
		return e.String()
	}
	return ""
}

// Err converts a failed response into an *Error carrying the backend message,
// or fallback when the backend sent none. It returns nil for OK responses.
func (r *Response) Err(fallback string) error {
	if r.OK {
		return nil
	}
	msg := r.Message()
	if msg == "" {
		msg = fallback
	}
	return &Error{Status: r.Status, Message: msg}
}

// Error is an HTTP-level failure reported by the backend.
type Error struct {
	Message string
	Status  int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}
