package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/justapithecus/datablast/adapter"
)

func completedEvent() *adapter.TransferCompletedEvent {
	return &adapter.TransferCompletedEvent{
		ContractVersion: "0.3.0",
		EventType:       "transfer_completed",
		SessionID:       "sess-42",
		SequenceID:      9,
		FileName:        "report.pdf",
		FileLength:      2048,
		ChunkCount:      32,
		SHA3:            strings.Repeat("ab", 32),
		StoragePath:     "datablast-data/transfers/seq=9/report.pdf",
		Timestamp:       "2026-10-18T08:00:00Z",
		SymbolsReceived: 40,
		DurationMs:      1250,
	}
}

// received collects the first message delivered to sub, or fails after 2s.
func received(t *testing.T, sub *miniredis.Subscriber) miniredis.PubsubMessage {
	t.Helper()
	select {
	case msg := <-sub.Messages():
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message delivered")
		return miniredis.PubsubMessage{}
	}
}

func newAdapter(t *testing.T, cfg Config) *Adapter {
	t.Helper()
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"missing url", Config{}, "requires a URL"},
		{"bad scheme", Config{URL: "ftp://somewhere"}, "invalid URL"},
		{"negative retries", Config{URL: "redis://localhost:6379", Retries: -2}, "retries must be >= 0"},
		{"both problems", Config{Retries: -1}, "requires a URL"},
		{"valid", Config{URL: "redis://localhost:6379/2"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := New(tt.cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("New: %v", err)
				}
				_ = a.Close()
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("New error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	a := newAdapter(t, Config{URL: "redis://localhost:6379"})
	if a.Channel() != DefaultChannel {
		t.Errorf("channel = %q, want %q", a.Channel(), DefaultChannel)
	}
	if a.config.Timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", a.config.Timeout, DefaultTimeout)
	}
}

func TestPublish_DeliversEventJSON(t *testing.T) {
	mr := miniredis.RunT(t)

	for _, channel := range []string{"", "uplink:files"} {
		want := channel
		if want == "" {
			want = DefaultChannel
		}
		t.Run(want, func(t *testing.T) {
			sub := mr.NewSubscriber()
			defer sub.Close()
			sub.Subscribe(want)

			a := newAdapter(t, Config{URL: "redis://" + mr.Addr(), Channel: channel})
			if err := a.Publish(t.Context(), completedEvent()); err != nil {
				t.Fatalf("Publish: %v", err)
			}

			msg := received(t, sub)
			if msg.Channel != want {
				t.Errorf("channel = %q, want %q", msg.Channel, want)
			}
			var got adapter.TransferCompletedEvent
			if err := json.Unmarshal([]byte(msg.Message), &got); err != nil {
				t.Fatalf("decode message: %v", err)
			}
			if got != *completedEvent() {
				t.Errorf("event = %+v\nwant %+v", got, *completedEvent())
			}
		})
	}
}

func TestPublish_RequireSubscriber(t *testing.T) {
	mr := miniredis.RunT(t)

	lenient := newAdapter(t, Config{URL: "redis://" + mr.Addr()})
	if err := lenient.Publish(t.Context(), completedEvent()); err != nil {
		t.Errorf("publish without subscribers: %v", err)
	}

	strict := newAdapter(t, Config{
		URL:               "redis://" + mr.Addr(),
		RequireSubscriber: true,
		Retries:           1,
		Backoff:           time.Millisecond,
	})
	err := strict.Publish(t.Context(), completedEvent())
	if !errors.Is(err, ErrNoSubscribers) {
		t.Fatalf("error = %v, want ErrNoSubscribers", err)
	}

	sub := mr.NewSubscriber()
	defer sub.Close()
	sub.Subscribe(DefaultChannel)
	if err := strict.Publish(t.Context(), completedEvent()); err != nil {
		t.Errorf("publish with subscriber: %v", err)
	}
	received(t, sub)
}

func TestPublish_RecoversAfterOutage(t *testing.T) {
	mr := miniredis.RunT(t)
	a := newAdapter(t, Config{
		URL:     "redis://" + mr.Addr(),
		Retries: 4,
		Backoff: 20 * time.Millisecond,
	})

	mr.SetError("LOADING dataset in memory")
	go func() {
		time.Sleep(30 * time.Millisecond)
		mr.SetError("")
	}()

	if err := a.Publish(t.Context(), completedEvent()); err != nil {
		t.Fatalf("Publish should succeed once the server recovers: %v", err)
	}
}

func TestPublish_Failures(t *testing.T) {
	t.Run("unreachable", func(t *testing.T) {
		a := newAdapter(t, Config{
			URL:     "redis://127.0.0.1:1",
			Retries: 1,
			Backoff: time.Millisecond,
			Timeout: 200 * time.Millisecond,
		})
		err := a.Publish(t.Context(), completedEvent())
		if err == nil || !strings.Contains(err.Error(), "failed after 2 attempts") {
			t.Fatalf("error = %v, want exhausted retries", err)
		}
	})

	t.Run("canceled", func(t *testing.T) {
		mr := miniredis.RunT(t)
		a := newAdapter(t, Config{URL: "redis://" + mr.Addr()})
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		if err := a.Publish(ctx, completedEvent()); !errors.Is(err, context.Canceled) {
			t.Fatalf("error = %v, want context.Canceled", err)
		}
	})
}

func TestClose(t *testing.T) {
	mr := miniredis.RunT(t)
	a, err := New(Config{URL: "redis://" + mr.Addr()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := a.Publish(t.Context(), completedEvent()); err == nil {
		t.Error("Publish after Close should fail")
	}
}
