package interfaces

import (
	"context"
	"time"

	"github.com/google/uuid"

	"storybook-server/internal/models"
)

// StoryRepository - таблица stories.
type StoryRepository interface {
	// Create вставляет историю; пустые ID и даты заполняются.
	Create(ctx context.Context, querier DBTX, story *models.Story) error

	// GetByID возвращает models.ErrNotFound, если истории нет.
	GetByID(ctx context.Context, querier DBTX, id uuid.UUID) (*models.Story, error)

	// ListByUser - истории пользователя от новых к старым, курсорная пагинация.
	// Возвращает следующий курсор или "" если больше нет.
	ListByUser(ctx context.Context, querier DBTX, userID string, cursor string, limit int) ([]models.Story, string, error)

	// Delete удаляет историю владельца (страницы каскадом).
	// ErrNotFound если истории нет или она чужая.
	Delete(ctx context.Context, querier DBTX, id uuid.UUID, userID string) error
}

// PageRepository - таблица story_pages.
type PageRepository interface {
	CreateBatch(ctx context.Context, querier DBTX, pages []models.StoryPage) error

	// ListByStory - страницы по возрастанию page_number.
	ListByStory(ctx context.Context, querier DBTX, storyID uuid.UUID) ([]models.StoryPage, error)

	// ListCovers возвращает обложки (страница 0) и число страниц для набора историй.
	ListCovers(ctx context.Context, querier DBTX, storyIDs []uuid.UUID) (map[uuid.UUID]PageCover, error)

	UpdateAudioURL(ctx context.Context, querier DBTX, pageID uuid.UUID, audioURL string) error

	// PagesWithoutAudio - страницы истории без озвучки.
	PagesWithoutAudio(ctx context.Context, querier DBTX, storyID uuid.UUID) ([]models.StoryPage, error)
}

// PageCover первая страница истории и общее количество страниц.
type PageCover struct {
	Content   string
	ImageURL  *string
	PageCount int
	UpdatedAt time.Time
}
