package repository

import (
	"context"
	"errors"
	"io"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kairos/pkg/adapter"
)

// CloudStorage keeps each key as an object under a prefix of a bucket
type CloudStorage struct {
	storage adapter.Storage
	prefix  string
}

func NewCloudStorage(storage adapter.Storage, prefix string) *CloudStorage {
	return &CloudStorage{storage: storage, prefix: prefix}
}

func (c *CloudStorage) objectName(key string) string {
	return c.prefix + key + ".json"
}

func (c *CloudStorage) Get(ctx context.Context, key string) ([]byte, error) {
	reader, err := c.storage.Get(ctx, c.objectName(key))
	if err != nil {
		if errors.Is(err, adapter.ErrObjectNotFound) {
			return nil, goerr.Wrap(ErrNotFound, "cloud storage kv", goerr.V("key", key))
		}
		return nil, goerr.Wrap(err, "failed to open object", goerr.V("key", key))
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read object", goerr.V("key", key))
	}
	return data, nil
}

func (c *CloudStorage) Set(ctx context.Context, key string, value []byte) error {
	writer, err := c.storage.Put(ctx, c.objectName(key))
	if err != nil {
		return goerr.Wrap(err, "failed to create object writer", goerr.V("key", key))
	}

	if _, err := writer.Write(value); err != nil {
		_ = writer.Close()
		return goerr.Wrap(err, "failed to write object", goerr.V("key", key))
	}

	// the upload is only committed on Close
	if err := writer.Close(); err != nil {
		return goerr.Wrap(err, "failed to commit object", goerr.V("key", key))
	}
	return nil
}

// Close releases the storage client
func (c *CloudStorage) Close() error {
	return c.storage.Close()
}
