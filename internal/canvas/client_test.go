package canvas

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, opts Options) *Client {
	t.Helper()
	client, err := NewClient(opts)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

func TestClientFetch(t *testing.T) {
	const payload = "artifact body"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret-token" {
			t.Errorf("Authorization header = %q, want %q", got, "Bearer secret-token")
		}
		if got := r.Header.Get("User-Agent"); got != "Canvas-Downloader/1.0.0" {
			t.Errorf("User-Agent header = %q, want %q", got, "Canvas-Downloader/1.0.0")
		}
		w.Write([]byte(payload))
	}))
	defer server.Close()

	opts := DefaultOptions()
	opts.Token = "secret-token"
	client := newTestClient(t, opts)

	body, size, err := client.Fetch(context.Background(), server.URL+"/files/1")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	defer body.Close()

	if size != int64(len(payload)) {
		t.Errorf("Fetch() size = %d, want %d", size, len(payload))
	}
	data, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(data) != payload {
		t.Errorf("body = %q, want %q", data, payload)
	}
}

func TestClientFetchNoToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "" {
			t.Errorf("Authorization header = %q, want empty", got)
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := newTestClient(t, DefaultOptions())
	body, _, err := client.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	body.Close()
}

func TestClientStatusClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantErr   error
		permanent bool
	}{
		{"not found", http.StatusNotFound, ErrNotFound, true},
		{"unauthorized", http.StatusUnauthorized, ErrUnauthorized, true},
		{"forbidden", http.StatusForbidden, ErrForbidden, true},
		{"rate limited", http.StatusTooManyRequests, ErrRateLimited, false},
		{"server error", http.StatusInternalServerError, ErrServerError, false},
		{"bad gateway", http.StatusBadGateway, ErrServerError, false},
		{"teapot", http.StatusTeapot, ErrUnexpectedStatus, true},
		{"not modified", http.StatusNotModified, ErrUnexpectedStatus, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client := newTestClient(t, DefaultOptions())
			_, _, err := client.Fetch(context.Background(), server.URL)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Fetch() error = %v, want %v", err, tt.wantErr)
			}
			if got := IsPermanent(err); got != tt.permanent {
				t.Errorf("IsPermanent(%v) = %v, want %v", err, got, tt.permanent)
			}
		})
	}
}

func TestClientResolvesRelativeRefs(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	opts := DefaultOptions()
	opts.BaseURL = server.URL
	client := newTestClient(t, opts)

	body, _, err := client.Fetch(context.Background(), "/api/v1/files/42")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	body.Close()

	if gotPath != "/api/v1/files/42" {
		t.Errorf("request path = %q, want %q", gotPath, "/api/v1/files/42")
	}
}

func TestClientMalformedRefs(t *testing.T) {
	tests := []struct {
		name string
		ref  string
	}{
		{"empty", ""},
		{"relative without base", "/files/1"},
		{"control characters", "http://host/\x00path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, DefaultOptions())
			_, _, err := client.Fetch(context.Background(), tt.ref)
			if !errors.Is(err, ErrMalformedRef) {
				t.Fatalf("Fetch(%q) error = %v, want %v", tt.ref, err, ErrMalformedRef)
			}
			if !IsPermanent(err) {
				t.Errorf("IsPermanent(%v) = false, want true", err)
			}
		})
	}
}

func TestClientRejectsRelativeBaseURL(t *testing.T) {
	opts := DefaultOptions()
	opts.BaseURL = "canvas.example.edu/api"
	if _, err := NewClient(opts); err == nil {
		t.Fatal("NewClient() with relative base url should fail")
	}
}

func TestClientConcurrencyBound(t *testing.T) {
	const maxParallel = 2

	var active atomic.Int32
	var peak atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := active.Add(1)
		defer active.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	opts := DefaultOptions()
	opts.MaxParallel = maxParallel
	opts.MinInterval = 0
	client := newTestClient(t, opts)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			body, _, err := client.Fetch(context.Background(), server.URL)
			if err != nil {
				t.Errorf("Fetch() error = %v", err)
				return
			}
			io.Copy(io.Discard, body)
			body.Close()
		}()
	}
	wg.Wait()

	if p := peak.Load(); p > maxParallel {
		t.Errorf("peak in-flight fetches = %d, want <= %d", p, maxParallel)
	}
}

func TestClientReleasesSlotOnClose(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer server.Close()

	opts := DefaultOptions()
	opts.MaxParallel = 1
	opts.MinInterval = 0
	client := newTestClient(t, opts)

	// With a single slot, sequential fetches only work if Close releases it.
	for i := 0; i < 3; i++ {
		body, _, err := client.Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("Fetch() #%d error = %v", i, err)
		}
		io.Copy(io.Discard, body)
		body.Close()
		body.Close() // double close must not release twice
	}

	if got := client.Budget().Active(); got != 0 {
		t.Errorf("Active() after closes = %d, want 0", got)
	}
}

func TestClientReleasesSlotOnStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	opts := DefaultOptions()
	opts.MaxParallel = 1
	opts.MinInterval = 0
	client := newTestClient(t, opts)

	for i := 0; i < 3; i++ {
		if _, _, err := client.Fetch(context.Background(), server.URL); !errors.Is(err, ErrNotFound) {
			t.Fatalf("Fetch() #%d error = %v, want %v", i, err, ErrNotFound)
		}
	}
	if got := client.Budget().Active(); got != 0 {
		t.Errorf("Active() after failed fetches = %d, want 0", got)
	}
}

func TestClientUnknownSize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		w.Write([]byte("chunk"))
		flusher.Flush()
		w.Write([]byte("ed"))
	}))
	defer server.Close()

	client := newTestClient(t, DefaultOptions())
	body, size, err := client.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	defer body.Close()

	if size != -1 {
		t.Errorf("Fetch() size = %d, want -1 for chunked response", size)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(data) != "chunked" {
		t.Errorf("body = %q, want %q", data, "chunked")
	}
}
