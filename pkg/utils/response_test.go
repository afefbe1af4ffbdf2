package utils

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRespondError(t *testing.T) {
	resp := httptest.NewRecorder()
	RespondError(resp, http.StatusNotFound, "session not found")

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	if got := strings.TrimSpace(resp.Body.String()); got != `{"error":"session not found"}` {
		t.Fatalf("unexpected body %s", got)
	}
	if ct := resp.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}
}

func TestDecodeJSON(t *testing.T) {
	var payload struct {
		Message string `json:"message"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"message":"oi"}`))
	if err := DecodeJSON(req, &payload); err != nil || payload.Message != "oi" {
		t.Fatalf("decode failed: %v %+v", err, payload)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	if err := DecodeJSON(req, &payload); !errors.Is(err, ErrEmptyBody) {
		t.Fatalf("expected ErrEmptyBody, got %v", err)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{bad"))
	if err := DecodeJSON(req, &payload); err == nil {
		t.Fatal("expected error for malformed body")
	}
}

func TestSendSSEChunk(t *testing.T) {
	resp := httptest.NewRecorder()
	SetupSSEHeaders(resp)
	if err := SendSSEChunk(resp, resp, map[string]string{"event": "delta"}); err != nil {
		t.Fatalf("send chunk: %v", err)
	}
	if got := resp.Body.String(); got != "data: {\"event\":\"delta\"}\n\n" {
		t.Fatalf("unexpected sse frame %q", got)
	}
	if !resp.Flushed {
		t.Fatal("expected flush")
	}
}
