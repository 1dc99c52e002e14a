package interfaces

import (
	"context"

	"storybook-server/internal/models"
)

// ObjectStore - хранилище картинок и аудио страниц.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	// Get возвращает models.ErrNotFound, если объекта нет.
	Get(ctx context.Context, key string) (*models.Object, error)
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// NarrationPublisher отправляет задачи озвучки в очередь.
type NarrationPublisher interface {
	PublishNarrationTask(ctx context.Context, task models.NarrationTask) error
}
