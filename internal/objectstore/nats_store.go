// Package objectstore хранит картинки и аудио страниц в NATS JetStream object store.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"storybook-server/internal/interfaces"
	"storybook-server/internal/models"
)

const headerContentType = "Content-Type"

// NatsObjectStore implements interfaces.ObjectStore on a JetStream bucket.
type NatsObjectStore struct {
	bucket string
	store  nats.ObjectStore
	logger *zap.Logger
}

var _ interfaces.ObjectStore = (*NatsObjectStore)(nil)

// New создает бакет или подключается к существующему.
func New(js nats.JetStreamContext, bucket string, logger *zap.Logger) (*NatsObjectStore, error) {
	store, err := js.CreateObjectStore(&nats.ObjectStoreConfig{
		Bucket:      bucket,
		Description: fmt.Sprintf("Story media for the %s bucket.", bucket),
		Storage:     nats.FileStorage,
		Replicas:    1,
	})
	if err != nil {
		if !errors.Is(err, jetstream.ErrBucketExists) && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
			return nil, fmt.Errorf("failed to create object store bucket '%s': %w", bucket, err)
		}
		store, err = js.ObjectStore(bucket)
		if err != nil {
			return nil, fmt.Errorf("failed to bind to existing object store bucket '%s': %w", bucket, err)
		}
	}
	return &NatsObjectStore{
		bucket: bucket,
		store:  store,
		logger: logger.Named("NatsObjectStore"),
	}, nil
}

func (n *NatsObjectStore) Put(ctx context.Context, key, contentType string, data []byte) error {
	meta := &nats.ObjectMeta{Name: key}
	if contentType != "" {
		meta.Headers = nats.Header{headerContentType: []string{contentType}}
	}
	if _, err := n.store.Put(meta, bytes.NewReader(data), nats.Context(ctx)); err != nil {
		return fmt.Errorf("failed to put object '%s' to bucket '%s': %w", key, n.bucket, err)
	}
	n.logger.Debug("Object stored", zap.String("key", key), zap.Int("bytes", len(data)))
	return nil
}

func (n *NatsObjectStore) Get(ctx context.Context, key string) (*models.Object, error) {
	result, err := n.store.Get(key, nats.Context(ctx))
	if err != nil {
		if errors.Is(err, nats.ErrObjectNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get object '%s' from bucket '%s': %w", key, n.bucket, err)
	}
	defer result.Close()

	data, err := io.ReadAll(result)
	if err != nil {
		return nil, fmt.Errorf("failed to read object '%s': %w", key, err)
	}

	obj := &models.Object{Key: key, Data: data}
	if info, err := result.Info(); err == nil && info.Headers != nil {
		obj.ContentType = info.Headers.Get(headerContentType)
	}
	if obj.ContentType == "" {
		obj.ContentType = ContentTypeForKey(key)
	}
	return obj, nil
}

func (n *NatsObjectStore) Delete(_ context.Context, key string) error {
	if err := n.store.Delete(key); err != nil {
		if errors.Is(err, nats.ErrObjectNotFound) {
			return models.ErrNotFound
		}
		return fmt.Errorf("failed to delete object '%s': %w", key, err)
	}
	return nil
}

// DeletePrefix удаляет все объекты с префиксом; возвращает число удаленных.
func (n *NatsObjectStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	infos, err := n.store.List()
	if err != nil {
		if errors.Is(err, nats.ErrNoObjectsFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to list bucket '%s': %w", n.bucket, err)
	}
	deleted := 0
	for _, info := range infos {
		if !strings.HasPrefix(info.Name, prefix) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
		if err := n.store.Delete(info.Name); err != nil && !errors.Is(err, nats.ErrObjectNotFound) {
			return deleted, fmt.Errorf("failed to delete object '%s': %w", info.Name, err)
		}
		deleted++
	}
	return deleted, nil
}
