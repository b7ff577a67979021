package lode

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"syscall"
	"testing"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind error
	}{
		{"context deadline", context.DeadlineExceeded, ErrTimeout},
		{"wrapped deadline", fmt.Errorf("put: %w", context.DeadlineExceeded), ErrTimeout},
		{"timed out message", errors.New("operation timed out"), ErrTimeout},
		{"fs permission", fs.ErrPermission, ErrPermissionDenied},
		{"fs not exist", &fs.PathError{Op: "open", Path: "/x", Err: fs.ErrNotExist}, ErrNotFound},
		{"AccessDenied response", errors.New("AccessDenied: you do not have access"), ErrAccessDenied},
		{"HTTP 403", errors.New("received status 403"), ErrAccessDenied},
		{"permission denied", errors.New("permission denied for /data/output"), ErrPermissionDenied},
		{"no space left", errors.New("write /data/output: no space left on device"), ErrDiskFull},
		{"quota exceeded", errors.New("quota exceeded for user"), ErrDiskFull},
		{"NoSuchKey", errors.New("NoSuchKey: The specified key does not exist"), ErrNotFound},
		{"SlowDown", errors.New("SlowDown: please reduce request rate"), ErrThrottled},
		{"HTTP 429", errors.New("received status 429"), ErrThrottled},
		{"ExpiredToken", errors.New("ExpiredToken: the security token has expired"), ErrAuth},
		{"connection refused", errors.New("dial tcp 127.0.0.1:9000: connection refused"), ErrNetwork},
		{"DNS failure", errors.New("DNS lookup failed for bucket.s3.amazonaws.com"), ErrNetwork},
		{"ENOSPC errno", &fs.PathError{Op: "write", Path: "/d", Err: syscall.ENOSPC}, ErrDiskFull},
		{"ECONNREFUSED errno", fmt.Errorf("put: %w", syscall.ECONNREFUSED), ErrNetwork},
		{"unrecognized", errors.New("something completely unexpected happened"), ErrUnclassified},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyError(tt.err); !errors.Is(got, tt.wantKind) {
				t.Errorf("classifyError(%v) = %v, want %v", tt.err, got, tt.wantKind)
			}
		})
	}
}

func TestClassifyError_Nil(t *testing.T) {
	if got := classifyError(nil); got != nil {
		t.Errorf("classifyError(nil) = %v, want nil", got)
	}
}

func TestWrapErrors(t *testing.T) {
	base := errors.New("no space left on device")

	err := WrapWriteError(base, "datasets/x/files/a.bin")
	var se *StorageError
	if !errors.As(err, &se) {
		t.Fatalf("WrapWriteError returned %T", err)
	}
	if se.Op != "write" || se.Path != "datasets/x/files/a.bin" {
		t.Errorf("StorageError = %+v", se)
	}
	if !errors.Is(err, ErrDiskFull) {
		t.Error("errors.Is(err, ErrDiskFull) = false")
	}
	if !errors.Is(err, base) {
		t.Error("underlying error lost from chain")
	}

	// Already classified errors pass through unchanged.
	if again := WrapReadError(err, "other"); again != err {
		t.Errorf("WrapReadError re-wrapped a StorageError: %v", again)
	}
	if WrapInitError(nil, "ds") != nil {
		t.Error("WrapInitError(nil) != nil")
	}
}

func TestTransient(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{WrapWriteError(context.DeadlineExceeded, "f"), true},
		{WrapWriteError(errors.New("SlowDown"), "f"), true},
		{WrapInitError(errors.New("dial tcp: connection refused"), "ds"), true},
		{WrapWriteError(fs.ErrPermission, "f"), false},
		{WrapReadError(errors.New("NoSuchKey"), "f"), false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := Transient(tt.err); got != tt.want {
			t.Errorf("Transient(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
