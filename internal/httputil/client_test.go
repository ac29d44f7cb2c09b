package httputil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestClientRetriesOnServerError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, MaxRetries: 3, RetryWait: time.Millisecond})
	resp, err := client.Get(context.Background(), "/status")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	var out struct {
		OK bool `json:"ok"`
	}
	if err := DecodeResponse(resp, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.OK {
		t.Fatal("expected ok=true")
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestClientGivesUpAfterRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, MaxRetries: 1, RetryWait: time.Millisecond})
	if _, err := client.Get(context.Background(), "/"); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
}

func TestDecodeResponseSurfacesClientErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such place", http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, RetryWait: time.Millisecond})
	resp, err := client.Get(context.Background(), "/missing")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if err := DecodeResponse(resp, nil); err == nil {
		t.Fatal("expected error for 404 response")
	}
}

func TestPostFormSetsContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("content type = %s", ct)
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, RetryWait: time.Millisecond})
	resp, err := client.PostForm(context.Background(), "/token", "grant_type=authorization_code&code=abc")
	if err != nil {
		t.Fatalf("post form: %v", err)
	}
	resp.Body.Close()
}
