package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
)

var statusText = map[int]string{
	200: "OK",
	400: "Bad Request",
	401: "Unauthorized",
	404: "Not Found",
	500: "Internal Server Error",
}

// writeResponse emits one complete response. Every response closes the
// connection: one request, one response, no keep-alive.
func writeResponse(w io.Writer, status int, contentType string, body []byte) error {
	text := statusText[status]
	if text == "" {
		text = "OK"
	}
	_, err := fmt.Fprintf(w,
		"HTTP/1.1 %d %s\r\nContent-Type: %s\r\nContent-Length: %d\r\nAccess-Control-Allow-Origin: *\r\nConnection: close\r\n\r\n",
		status, text, contentType, len(body))
	if err != nil {
		return err
	}
	_, err = w.Write(body)
	return err
}

// writeJSON serializes v and writes it with the JSON content type.
func writeJSON(w io.Writer, status int, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		body = []byte(`{"success":false,"error":"response serialization failed"}`)
		status = 500
	}
	return writeResponse(w, status, "application/json", body)
}

// writeBinary writes raw bytes (screenshots) with their MIME type.
func writeBinary(w io.Writer, mime string, data []byte) error {
	if mime == "" {
		mime = "application/octet-stream"
	}
	return writeResponse(w, 200, mime, data)
}

// failure is the embedded application-level error body. Application errors
// ride on a 200; only protocol failures (bad request line, auth) use
// non-200 statuses.
func failure(message string) map[string]any {
	return map[string]any{"success": false, "error": message}
}
