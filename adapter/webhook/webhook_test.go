package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/justapithecus/datablast/adapter"
	"github.com/justapithecus/datablast/iox"
	"github.com/justapithecus/datablast/types"
)

func sampleEvent() *adapter.TransferCompletedEvent {
	return &adapter.TransferCompletedEvent{
		ContractVersion: adapter.ContractVersion,
		EventType:       adapter.EventTypeTransferCompleted,
		SessionID:       "sess-7f",
		SequenceID:      200,
		FileName:        "firmware.bin",
		FileLength:      65536,
		ChunkCount:      128,
		SHA3:            strings.Repeat("0f", 32),
		StoragePath:     "datablast-data/transfers/seq=200/firmware.bin",
		Timestamp:       "2026-10-18T09:30:00Z",
		SymbolsReceived: 151,
		DurationMs:      8200,
	}
}

// endpoint answers every request with the next status from codes,
// repeating the last one, and records what it saw.
type endpoint struct {
	*httptest.Server

	mu      sync.Mutex
	codes   []int
	hits    atomic.Int32
	headers http.Header
	body    []byte
}

func newEndpoint(t *testing.T, codes ...int) *endpoint {
	t.Helper()
	e := &endpoint{codes: codes}
	e.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(e.hits.Add(1))
		body, _ := io.ReadAll(r.Body)

		e.mu.Lock()
		e.headers = r.Header.Clone()
		e.body = body
		code := e.codes[min(n, len(e.codes))-1]
		e.mu.Unlock()

		w.WriteHeader(code)
	}))
	t.Cleanup(e.Close)
	return e
}

func (e *endpoint) last() (http.Header, []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.headers, e.body
}

func publish(t *testing.T, cfg Config, event *adapter.TransferCompletedEvent) error {
	t.Helper()
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer iox.DiscardClose(a)
	return a.Publish(t.Context(), event)
}

func TestPublish_StatusHandling(t *testing.T) {
	tests := []struct {
		name      string
		codes     []int
		retries   int
		wantErr   bool
		wantHits  int32
		permanent bool
	}{
		{"ok", []int{200}, 3, false, 1, false},
		{"created", []int{201}, 3, false, 1, false},
		{"accepted", []int{202}, 3, false, 1, false},
		{"no content", []int{204}, 3, false, 1, false},
		{"recovers after 5xx", []int{500, 503, 200}, 3, false, 3, false},
		{"bad gateway exhausts retries", []int{502}, 2, true, 3, false},
		{"too many requests retried", []int{429, 204}, 1, false, 2, false},
		{"request timeout retried", []int{408, 200}, 1, false, 2, false},
		{"bad request", []int{400}, 3, true, 1, true},
		{"unauthorized", []int{401}, 3, true, 1, true},
		{"not found", []int{404}, 3, true, 1, true},
		{"unprocessable", []int{422}, 3, true, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ep := newEndpoint(t, tt.codes...)
			err := publish(t, Config{URL: ep.URL, Retries: tt.retries, Backoff: time.Millisecond}, sampleEvent())

			if (err != nil) != tt.wantErr {
				t.Fatalf("Publish error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := ep.hits.Load(); got != tt.wantHits {
				t.Errorf("requests = %d, want %d", got, tt.wantHits)
			}
			if err == nil {
				return
			}
			var statusErr *StatusError
			if !errors.As(err, &statusErr) {
				t.Fatalf("error %v does not wrap *StatusError", err)
			}
			if got := strings.Contains(err.Error(), "non-retriable"); got != tt.permanent {
				t.Errorf("error %q: non-retriable = %v, want %v", err, got, tt.permanent)
			}
		})
	}
}

func TestPublish_Request(t *testing.T) {
	ep := newEndpoint(t, http.StatusNoContent)
	cfg := Config{
		URL:     ep.URL,
		Headers: map[string]string{"Authorization": "Bearer uplink", "X-Station": "north"},
	}
	if err := publish(t, cfg, sampleEvent()); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	headers, body := ep.last()
	wantHeaders := map[string]string{
		"Content-Type":  "application/json",
		"User-Agent":    "datablast/" + types.Version,
		"Authorization": "Bearer uplink",
		"X-Station":     "north",
	}
	for k, want := range wantHeaders {
		if got := headers.Get(k); got != want {
			t.Errorf("header %s = %q, want %q", k, got, want)
		}
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	keys := []string{
		"contract_version", "event_type", "session_id", "sequence_id", "file_name",
		"file_length", "chunk_count", "sha3", "storage_path", "timestamp",
		"symbols_received", "duration_ms",
	}
	for _, k := range keys {
		if _, ok := raw[k]; !ok {
			t.Errorf("payload missing %q", k)
		}
	}
	if len(raw) != len(keys) {
		t.Errorf("payload has %d keys, want %d", len(raw), len(keys))
	}

	var got adapter.TransferCompletedEvent
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if got != *sampleEvent() {
		t.Errorf("event = %+v, want %+v", got, *sampleEvent())
	}
}

func TestPublish_ContextDeadline(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()
	defer close(release)

	a, err := New(Config{URL: ts.URL, Timeout: 10 * time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer iox.DiscardClose(a)

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()
	if err := a.Publish(ctx, sampleEvent()); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want deadline exceeded", err)
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		cfg         Config
		wantErr     string
		wantTimeout time.Duration
	}{
		{"missing url", Config{}, "requires a URL", 0},
		{"negative retries", Config{URL: "http://hooks.local", Retries: -1}, "retries must be >= 0", 0},
		{"default timeout", Config{URL: "http://hooks.local"}, "", DefaultTimeout},
		{"explicit timeout", Config{URL: "http://hooks.local", Timeout: time.Second, Retries: 5}, "", time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := New(tt.cfg)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("New error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if a.config.Timeout != tt.wantTimeout {
				t.Errorf("timeout = %v, want %v", a.config.Timeout, tt.wantTimeout)
			}
			if a.config.Retries != tt.cfg.Retries {
				t.Errorf("retries = %d, want %d", a.config.Retries, tt.cfg.Retries)
			}
		})
	}
}
