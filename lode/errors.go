// Package lode stores reassembled files and transfer records with Lode.
//
// Storage failures are returned as *StorageError values whose Kind is one
// of the sentinels below, so callers can branch with errors.Is.
package lode

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"syscall"
)

// Storage failure kinds.
var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotFound         = errors.New("not found")
	ErrDiskFull         = errors.New("no space left on device")
	ErrTimeout          = errors.New("operation timed out")
	ErrThrottled        = errors.New("rate limited")
	// ErrAuth means no usable credentials; ErrAccessDenied means the
	// credentials lack permission.
	ErrAuth         = errors.New("authentication failed")
	ErrAccessDenied = errors.New("access denied")
	ErrNetwork      = errors.New("network error")
	ErrUnclassified = errors.New("storage error")
)

// StorageError is a classified storage failure.
type StorageError struct {
	Kind error  // one of the Err* kinds
	Op   string // write, read or init
	Path string // object path or dataset, may be empty
	Err  error
}

func (e *StorageError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %v: %v", e.Op, e.Path, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is matches the failure kind.
func (e *StorageError) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

func wrap(op string, err error, path string) error {
	if err == nil {
		return nil
	}
	var existing *StorageError
	if errors.As(err, &existing) {
		return err
	}
	return &StorageError{Kind: classifyError(err), Op: op, Path: path, Err: err}
}

// WrapWriteError classifies a failed write. A nil err stays nil.
func WrapWriteError(err error, path string) error { return wrap("write", err, path) }

// WrapReadError classifies a failed read. A nil err stays nil.
func WrapReadError(err error, path string) error { return wrap("read", err, path) }

// WrapInitError classifies a failed client setup. A nil err stays nil.
func WrapInitError(err error, dataset string) error { return wrap("init", err, dataset) }

// Transient reports whether a retry of the same operation may succeed.
func Transient(err error) bool {
	for _, kind := range []error{ErrTimeout, ErrThrottled, ErrNetwork} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// First matching row wins.
var errorPatterns = []struct {
	kind  error
	parts []string
}{
	{ErrAccessDenied, []string{"accessdenied", "forbidden", "403"}},
	{ErrPermissionDenied, []string{"permission denied", "eacces"}},
	{ErrNotFound, []string{"no such file", "does not exist", "not found", "enoent", "404", "nosuchkey", "nosuchbucket"}},
	{ErrDiskFull, []string{"no space left", "disk full", "enospc", "quota exceeded"}},
	{ErrTimeout, []string{"timeout", "timed out", "deadline exceeded"}},
	{ErrThrottled, []string{"slowdown", "rate exceeded", "throttl", "429", "toomanyrequests"}},
	{ErrAuth, []string{"nocredentialproviders", "credentials", "invalidaccesskeyid", "signaturedoesnotmatch", "expiredtoken", "401", "unauthorized"}},
	{ErrNetwork, []string{"connection refused", "no route to host", "network unreachable", "dns", "dial tcp"}},
}

// classifyError maps err to a kind, trying typed errors before message text.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	var timeout interface{ Timeout() bool }
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &timeout) && timeout.Timeout():
		return ErrTimeout
	case errors.Is(err, fs.ErrPermission):
		return ErrPermissionDenied
	case errors.Is(err, fs.ErrNotExist):
		return ErrNotFound
	case errors.Is(err, syscall.ENOSPC):
		return ErrDiskFull
	case errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, syscall.EHOSTUNREACH):
		return ErrNetwork
	}

	msg := strings.ToLower(err.Error())
	for _, row := range errorPatterns {
		for _, part := range row.parts {
			if strings.Contains(msg, part) {
				return row.kind
			}
		}
	}
	return ErrUnclassified
}
