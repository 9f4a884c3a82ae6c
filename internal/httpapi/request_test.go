package httpapi

import (
	"bufio"
	"strconv"
	"strings"
	"testing"
)

func parse(t *testing.T, raw string) *request {
	t.Helper()
	req, err := readRequest(bufio.NewReader(strings.NewReader(raw)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return req
}

func TestReadRequest_GetWithQuery(t *testing.T) {
	req := parse(t, "GET /a11y_tree?filter=false HTTP/1.1\r\nHost: x\r\n\r\n")
	if req.Method != "GET" || req.Path != "/a11y_tree" {
		t.Errorf("unexpected request: %+v", req)
	}
	if req.Params["filter"] != false {
		t.Errorf("expected query param auto-typed to bool, got %#v", req.Params["filter"])
	}
}

func TestReadRequest_JSONBody(t *testing.T) {
	body := `{"x":100,"y":200,"clear":true}`
	raw := "POST /action/tap HTTP/1.1\r\nContent-Length: " +
		strconv.Itoa(len(body)) + "\r\n\r\n" + body
	req := parse(t, raw)
	if req.Params["x"] != float64(100) {
		t.Errorf("expected x=100, got %#v", req.Params["x"])
	}
	if req.Params["clear"] != true {
		t.Errorf("expected clear=true, got %#v", req.Params["clear"])
	}
}

func TestReadRequest_FormBodyAutoTyped(t *testing.T) {
	body := "x=100&y=200&clear=false&name=ok"
	raw := "POST /action/tap HTTP/1.1\r\nContent-Length: " +
		strconv.Itoa(len(body)) + "\r\n\r\n" + body
	req := parse(t, raw)
	if req.Params["x"] != float64(100) {
		t.Errorf("expected numeric string to become number, got %#v", req.Params["x"])
	}
	if req.Params["clear"] != false {
		t.Errorf("expected boolean string to become bool, got %#v", req.Params["clear"])
	}
	if req.Params["name"] != "ok" {
		t.Errorf("expected plain string preserved, got %#v", req.Params["name"])
	}
}

func TestReadRequest_MalformedRequestLine(t *testing.T) {
	_, err := readRequest(bufio.NewReader(strings.NewReader("GARBAGE\r\n\r\n")))
	if err == nil {
		t.Error("expected error for malformed request line")
	}
}

func TestReadRequest_MalformedJSON(t *testing.T) {
	body := `{"x":`
	raw := "POST /x HTTP/1.1\r\nContent-Length: " + strconv.Itoa(len(body)) + "\r\n\r\n" + body
	if _, err := readRequest(bufio.NewReader(strings.NewReader(raw))); err == nil {
		t.Error("expected error for malformed JSON body")
	}
}

func TestReadRequest_HeaderCaseInsensitive(t *testing.T) {
	req := parse(t, "GET /ping HTTP/1.1\r\nAUTHORIZATION: Bearer abc\r\n\r\n")
	if req.Headers["authorization"] != "Bearer abc" {
		t.Errorf("unexpected headers: %v", req.Headers)
	}
}
