// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP response helpers shared by the upload client.
package httputil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// MaxErrorBody caps how much of an error response body is read.
const MaxErrorBody = 64 * 1024

// errorEnvelope covers the error body shapes the conversion service returns:
// {"message": "..."}, FastAPI's {"detail": "..."} or {"detail": [{"msg": "..."}]},
// and the generic {"error": "..."}.
type errorEnvelope struct {
	Message string          `json:"message"`
	Detail  json.RawMessage `json:"detail"`
	Error   string          `json:"error"`
}

type validationDetail struct {
	Msg string `json:"msg"`
}

// ErrorMessage extracts a human-readable message from a JSON error body.
// It returns "" when the body is empty, not JSON, or carries no message.
func ErrorMessage(body []byte) string {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}
	if m := strings.TrimSpace(env.Message); m != "" {
		return m
	}
	if m := detailMessage(env.Detail); m != "" {
		return m
	}
	return strings.TrimSpace(env.Error)
}

func detailMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var list []validationDetail
	if err := json.Unmarshal(raw, &list); err != nil {
		return ""
	}
	msgs := make([]string, 0, len(list))
	for _, d := range list {
		if m := strings.TrimSpace(d.Msg); m != "" {
			msgs = append(msgs, m)
		}
	}
	return strings.Join(msgs, "; ")
}

// StatusLine renders a response status as "500 Internal Server Error".
// Unknown codes render as the bare number.
func StatusLine(code int) string {
	text := http.StatusText(code)
	if text == "" {
		return fmt.Sprintf("%d", code)
	}
	return fmt.Sprintf("%d %s", code, text)
}

// ReadBody reads at most limit bytes of resp.Body. The body is not closed.
func ReadBody(resp *http.Response, limit int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(resp.Body, limit))
}

// Drain discards the remainder of resp.Body and closes it so the
// underlying connection can be reused.
func Drain(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, MaxErrorBody))
	resp.Body.Close()
}
