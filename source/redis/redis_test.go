package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/justapithecus/datablast/iox"
)

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("expected error for empty URL")
	}
	if _, err := New(Config{URL: "not-a-url"}); err == nil {
		t.Error("expected error for invalid URL")
	}
	q, err := New(Config{URL: "redis://localhost:6379"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(iox.CloseFunc(q))
	if q.Key() != DefaultKey {
		t.Errorf("Key = %q, want %q", q.Key(), DefaultKey)
	}
}

func TestQueue_PushNext(t *testing.T) {
	mr := miniredis.RunT(t)

	q, err := New(Config{URL: "redis://" + mr.Addr(), Key: "test:symbols", PollTimeout: 100 * time.Millisecond})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(iox.CloseFunc(q))

	if err := q.Push(t.Context(), "a", "b", "c"); err != nil {
		t.Fatalf("push: %v", err)
	}
	n, err := q.Len(t.Context())
	if err != nil || n != 3 {
		t.Fatalf("Len = %d, %v; want 3", n, err)
	}

	for _, want := range []string{"a", "b", "c"} {
		got, err := q.Next(t.Context())
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if got != want {
			t.Errorf("next = %q, want %q", got, want)
		}
	}
}

func TestQueue_NextRespectsCancel(t *testing.T) {
	mr := miniredis.RunT(t)

	q, err := New(Config{URL: "redis://" + mr.Addr(), PollTimeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(iox.CloseFunc(q))

	ctx, cancel := context.WithTimeout(t.Context(), 200*time.Millisecond)
	defer cancel()

	_, err = q.Next(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("next error = %v, want deadline exceeded", err)
	}
}
