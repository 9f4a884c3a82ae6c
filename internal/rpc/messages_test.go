package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func TestRequest_IsNotification(t *testing.T) {
	var req Request
	if err := json.Unmarshal([]byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}`), &req); err != nil {
		t.Fatal(err)
	}
	if !req.IsNotification() {
		t.Error("request without id not treated as notification")
	}

	if err := json.Unmarshal([]byte(`{"jsonrpc":"2.0","id":0,"method":"ping"}`), &req); err != nil {
		t.Fatal(err)
	}
	if req.IsNotification() {
		t.Error("id 0 treated as notification")
	}
}

func TestErrorResponse_Shape(t *testing.T) {
	resp := NewErrorResponse("abc", ErrQueueFull, "request queue full, retry later", nil)
	b, err := json.Marshal(resp)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatal(err)
	}
	errObj, ok := decoded["error"].(map[string]any)
	if !ok {
		t.Fatalf("missing error object in %s", b)
	}
	if errObj["code"] != float64(-32001) {
		t.Errorf("code = %v, want -32001", errObj["code"])
	}
	if _, present := decoded["result"]; present {
		t.Error("error response carries a result field")
	}
}

func TestCodeOf(t *testing.T) {
	err := NewError(ErrMethodNotFound, "nope", nil)
	if CodeOf(err) != ErrMethodNotFound {
		t.Errorf("CodeOf = %d", CodeOf(err))
	}
	wrapped := fmt.Errorf("handling: %w", err)
	if CodeOf(wrapped) != ErrMethodNotFound {
		t.Errorf("CodeOf wrapped = %d", CodeOf(wrapped))
	}
	if CodeOf(errors.New("plain")) != ErrInternalError {
		t.Error("plain error should map to internal error")
	}
	if !IsCode(wrapped, ErrMethodNotFound) {
		t.Error("IsCode failed on wrapped error")
	}
}
