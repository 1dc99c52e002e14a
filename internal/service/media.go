package service

import (
	"context"
	"fmt"
	"path"
	"strings"

	"storybook-server/internal/interfaces"
	"storybook-server/internal/models"
	"storybook-server/internal/objectstore"
)

// Media отдает сохраненные объекты по ключу.
type Media struct {
	store interfaces.ObjectStore
}

func NewMedia(store interfaces.ObjectStore) *Media {
	return &Media{store: store}
}

// Open отдает только ключи под story-images/ и story-audio/.
func (m *Media) Open(ctx context.Context, key string) (*models.Object, error) {
	key = strings.TrimPrefix(key, "/")
	if key == "" || strings.Contains(key, "..") || path.Clean(key) != key {
		return nil, fmt.Errorf("%w: invalid media key", models.ErrInvalidInput)
	}
	if !strings.HasPrefix(key, objectstore.ImagePrefix+"/") && !strings.HasPrefix(key, objectstore.AudioPrefix+"/") {
		return nil, models.ErrNotFound
	}
	return m.store.Get(ctx, key)
}
