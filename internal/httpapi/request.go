package httpapi

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/agentix/droidportal/internal/dispatch"
)

// maxBodyBytes bounds request bodies; callers sending trees of JSON have no
// business here.
const maxBodyBytes = 1 << 20

// request is one parsed wire request.
type request struct {
	Method  string
	Path    string
	Query   url.Values
	Headers map[string]string
	Params  dispatch.Params
}

// readRequest parses the request line, headers, and body from r.
// Only the Authorization header is meaningful to the portal, but all
// headers are retained for Content-Length framing.
func readRequest(br *bufio.Reader) (*request, error) {
	line, err := br.ReadString('\n')
	if err != nil {
		return nil, err
	}
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) < 2 {
		return nil, fmt.Errorf("malformed request line %q", strings.TrimSpace(line))
	}
	req := &request{
		Method:  strings.ToUpper(fields[0]),
		Headers: make(map[string]string),
	}

	rawPath := fields[1]
	if i := strings.IndexByte(rawPath, '?'); i >= 0 {
		req.Query, _ = url.ParseQuery(rawPath[i+1:])
		rawPath = rawPath[:i]
	} else {
		req.Query = url.Values{}
	}
	req.Path = rawPath

	for {
		line, err := br.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			break
		}
		if name, value, ok := strings.Cut(line, ":"); ok {
			req.Headers[strings.ToLower(strings.TrimSpace(name))] = strings.TrimSpace(value)
		}
	}

	body, err := readBody(br, req.Headers)
	if err != nil {
		return nil, err
	}
	params, err := parseBody(body)
	if err != nil {
		return nil, err
	}

	// Query params layer under body params so either spelling works.
	for key, vals := range req.Query {
		if _, exists := params[key]; !exists && len(vals) > 0 {
			params[key] = autoType(vals[0])
		}
	}
	req.Params = params
	return req, nil
}

func readBody(br *bufio.Reader, headers map[string]string) ([]byte, error) {
	cl := headers["content-length"]
	if cl == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(cl)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("bad content-length %q", cl)
	}
	if n > maxBodyBytes {
		return nil, fmt.Errorf("body too large: %d bytes", n)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(br, body); err != nil {
		return nil, fmt.Errorf("short body: %w", err)
	}
	return body, nil
}

// parseBody decodes a JSON object or a url-encoded form into a parameter
// bag. Form values are auto-typed: numeric strings become numbers and
// "true"/"false" become booleans, matching what a JSON caller would send.
func parseBody(body []byte) (dispatch.Params, error) {
	params := dispatch.Params{}
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return params, nil
	}
	if strings.HasPrefix(trimmed, "{") {
		if err := json.Unmarshal([]byte(trimmed), &params); err != nil {
			return nil, fmt.Errorf("malformed JSON body: %w", err)
		}
		return params, nil
	}
	values, err := url.ParseQuery(trimmed)
	if err != nil {
		return nil, fmt.Errorf("malformed form body: %w", err)
	}
	for key, vals := range values {
		if len(vals) > 0 {
			params[key] = autoType(vals[0])
		}
	}
	return params, nil
}

// autoType converts a form/query string into the value a JSON body would
// have carried.
func autoType(s string) any {
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
