// Package storage is the durable key-value layer behind the catalog.
//
// A Store holds opaque values under string keys. Put only reports success
// once the value is committed; Get reports a missing key with ErrNotFound.
package storage

import (
	"context"
	"errors"
	"syscall"
)

var (
	// ErrNotFound is returned by Get for a key that was never written.
	ErrNotFound = errors.New("key not found")
	// ErrQuotaExceeded is returned by Put when the value does not fit in the
	// storage budget or the disk is full.
	ErrQuotaExceeded = errors.New("storage full")
	// ErrUnavailable wraps every other open, read or write failure.
	ErrUnavailable = errors.New("storage unavailable")
)

// Store is an asynchronous-safe key-value store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Close() error
}

// IsQuotaError reports whether err is a storage-limit failure, either our
// own budget or the filesystem running out of space.
func IsQuotaError(err error) bool {
	return errors.Is(err, ErrQuotaExceeded) ||
		errors.Is(err, syscall.ENOSPC) ||
		errors.Is(err, syscall.EDQUOT)
}
