package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/boltdb/bolt"
)

const (
	// DatabaseName is the base name of the database file.
	DatabaseName = "Class9AppDB"
	// SchemaVersion is bumped whenever the stored layout changes.
	SchemaVersion = 1
)

var (
	dataBucket = []byte("appData")
	metaBucket = []byte("meta")
	versionKey = []byte("version")
)

// Options tunes OpenBolt.
type Options struct {
	// MaxBytes caps the total size of stored values. Zero means no cap.
	MaxBytes int64
	// Timeout bounds how long Open waits for the file lock.
	Timeout time.Duration
}

// Bolt is a Store backed by a single bolt database file.
type Bolt struct {
	db       *bolt.DB
	maxBytes int64
}

// DefaultPath returns the database file path inside dataDir.
func DefaultPath(dataDir string) string {
	return filepath.Join(dataDir, DatabaseName+".db")
}

// OpenBolt opens (creating if needed) the database at path.
func OpenBolt(path string, opts Options) (*Bolt, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = time.Second
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("%w: failed to create data directory: %v", ErrUnavailable, err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: opts.Timeout})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %s: %v", ErrUnavailable, path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(dataBucket); err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
		meta, err := tx.CreateBucketIfNotExists(metaBucket)
		if err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}

		raw := meta.Get(versionKey)
		if raw == nil {
			return meta.Put(versionKey, []byte(strconv.Itoa(SchemaVersion)))
		}
		version, err := strconv.Atoi(string(raw))
		if err != nil {
			return fmt.Errorf("invalid schema version %q: %w", raw, err)
		}
		if version > SchemaVersion {
			return fmt.Errorf("database schema version %d is newer than supported version %d", version, SchemaVersion)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	slog.Debug("Opened database", "path", path, "version", SchemaVersion)
	return &Bolt{db: db, maxBytes: opts.MaxBytes}, nil
}

func (b *Bolt) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var value []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(dataBucket).Get([]byte(key))
		if data == nil {
			return ErrNotFound
		}
		// Bolt memory is only valid for the life of the transaction.
		value = append([]byte(nil), data...)
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %v", ErrUnavailable, key, err)
	}
	return value, nil
}

// Put writes value under key. It returns once the transaction has
// committed and been synced to disk.
func (b *Bolt) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(dataBucket)
		if b.maxBytes > 0 {
			total := int64(len(value))
			err := bucket.ForEach(func(k, v []byte) error {
				if string(k) != key {
					total += int64(len(v))
				}
				return nil
			})
			if err != nil {
				return err
			}
			if total > b.maxBytes {
				return fmt.Errorf("%w: %d bytes needed, budget is %d", ErrQuotaExceeded, total, b.maxBytes)
			}
		}
		return bucket.Put([]byte(key), value)
	})

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrQuotaExceeded):
		return err
	case IsQuotaError(err):
		return fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
	default:
		return fmt.Errorf("%w: failed to write %s: %v", ErrUnavailable, key, err)
	}
}

// Path returns the database file path.
func (b *Bolt) Path() string {
	return b.db.Path()
}

func (b *Bolt) Close() error {
	return b.db.Close()
}
