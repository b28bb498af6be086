package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	xerr "github.com/Dev72112/xlamaexchange/internal/errors"
)

func TestDoJSONRetriesServerError(t *testing.T) {
	var count int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&count, 1)
		if n == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"x"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client := New(2*time.Second, 1)
	var out map[string]any
	if _, err := client.GetJSON(context.Background(), srv.URL, &out); err != nil {
		t.Fatalf("GetJSON failed: %v", err)
	}
	if out["ok"] != true {
		t.Fatalf("unexpected response: %#v", out)
	}
}

func TestDoJSONRateLimitCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := New(time.Second, 0)
	_, err := client.GetJSON(context.Background(), srv.URL, nil)
	if xerr.CodeOf(err) != xerr.CodeRateLimited {
		t.Fatalf("expected rate-limited code, got %v", err)
	}
}

func TestDoJSONAuthFailureIsNotRetried(t *testing.T) {
	var count int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&count, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := New(time.Second, 3)
	_, err := client.GetJSON(context.Background(), srv.URL, nil)
	if xerr.CodeOf(err) != xerr.CodeAuth {
		t.Fatalf("expected auth code, got %v", err)
	}
	if atomic.LoadInt32(&count) != 1 {
		t.Fatalf("auth failures must not retry, got %d attempts", count)
	}
}

func TestDoJSONEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	client := New(time.Second, 0)
	var out map[string]any
	_, err := client.GetJSON(context.Background(), srv.URL, &out)
	if xerr.CodeOf(err) != xerr.CodeTransient {
		t.Fatalf("expected transient code for empty body, got %v", err)
	}
}
