package repository

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/m-mizutani/goerr/v2"
	bolt "go.etcd.io/bbolt"
)

const boltBucket = "kairos"

// Bolt is a single-file KV backed by bbolt. It is the default backend of the
// CLI: no server, and the file survives across sessions.
type Bolt struct {
	db   *bolt.DB
	path string
}

// NewBolt opens (or creates) the bbolt file at path
func NewBolt(path string) (*Bolt, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, goerr.Wrap(err, "failed to create data directory", goerr.V("path", path))
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open bolt db", goerr.V("path", path))
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(boltBucket))
		return err
	}); err != nil {
		_ = db.Close()
		return nil, goerr.Wrap(err, "failed to create bolt bucket", goerr.V("path", path))
	}

	return &Bolt{db: db, path: path}, nil
}

func (b *Bolt) Get(ctx context.Context, key string) ([]byte, error) {
	var out []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(boltBucket))
		if bucket == nil {
			return nil
		}
		// bolt values are only valid inside the transaction
		if v := bucket.Get([]byte(key)); v != nil {
			out = make([]byte, len(v))
			copy(out, v)
		}
		return nil
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read bolt db", goerr.V("key", key))
	}
	if out == nil {
		return nil, goerr.Wrap(ErrNotFound, "bolt kv", goerr.V("key", key))
	}
	return out, nil
}

func (b *Bolt) Set(ctx context.Context, key string, value []byte) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(boltBucket))
		if err != nil {
			return err
		}
		if value == nil {
			value = []byte{}
		}
		return bucket.Put([]byte(key), value)
	})
	if err != nil {
		return goerr.Wrap(err, "failed to write bolt db", goerr.V("key", key))
	}
	return nil
}

// Path returns the database file path
func (b *Bolt) Path() string {
	return b.path
}

func (b *Bolt) Close() error {
	return b.db.Close()
}
