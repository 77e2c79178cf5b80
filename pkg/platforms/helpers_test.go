package platforms

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestFetchJSON_RetriesServerErrors(t *testing.T) {
	t.Helper()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "flaky", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	var dest struct {
		OK bool `json:"ok"`
	}
	err := fetchJSON(context.Background(), newHTTPClient(), server.URL, &dest)
	if err != nil {
		t.Fatalf("fetchJSON() error = %v", err)
	}
	if !dest.OK {
		t.Error("response not decoded")
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("upstream called %d times, want 3", got)
	}
}

func TestFetchJSON_NoRetryOnClientError(t *testing.T) {
	t.Helper()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer server.Close()

	var dest struct{}
	err := fetchJSON(context.Background(), newHTTPClient(), server.URL, &dest)
	if err == nil {
		t.Fatal("fetchJSON() expected error")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("upstream called %d times, want 1 (4xx must not retry)", got)
	}
}

func TestFetchJSON_NotFound(t *testing.T) {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(http.NotFound))
	defer server.Close()

	var dest struct{}
	err := fetchJSON(context.Background(), newHTTPClient(), server.URL, &dest)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("fetchJSON() error = %v, want ErrNotFound", err)
	}
}

func TestFetchJSON_ExhaustsRetries(t *testing.T) {
	t.Helper()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer server.Close()

	var dest struct{}
	err := fetchJSON(context.Background(), newHTTPClient(), server.URL, &dest)
	if err == nil {
		t.Fatal("fetchJSON() expected error")
	}
	if got := calls.Load(); got != maxFetchAttempts {
		t.Errorf("upstream called %d times, want %d", got, maxFetchAttempts)
	}
}
