package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"storybook-server/internal/interfaces"
	"storybook-server/internal/models"
)

// StoryRepository mock.
type StoryRepository struct {
	mock.Mock
}

func (m *StoryRepository) Create(ctx context.Context, querier interfaces.DBTX, story *models.Story) error {
	args := m.Called(ctx, querier, story)
	return args.Error(0)
}

func (m *StoryRepository) GetByID(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) (*models.Story, error) {
	args := m.Called(ctx, querier, id)
	story, _ := args.Get(0).(*models.Story)
	return story, args.Error(1)
}

func (m *StoryRepository) ListByUser(ctx context.Context, querier interfaces.DBTX, userID string, cursor string, limit int) ([]models.Story, string, error) {
	args := m.Called(ctx, querier, userID, cursor, limit)
	stories, _ := args.Get(0).([]models.Story)
	return stories, args.String(1), args.Error(2)
}

func (m *StoryRepository) Delete(ctx context.Context, querier interfaces.DBTX, id uuid.UUID, userID string) error {
	args := m.Called(ctx, querier, id, userID)
	return args.Error(0)
}

// PageRepository mock.
type PageRepository struct {
	mock.Mock
}

func (m *PageRepository) CreateBatch(ctx context.Context, querier interfaces.DBTX, pages []models.StoryPage) error {
	args := m.Called(ctx, querier, pages)
	return args.Error(0)
}

func (m *PageRepository) ListByStory(ctx context.Context, querier interfaces.DBTX, storyID uuid.UUID) ([]models.StoryPage, error) {
	args := m.Called(ctx, querier, storyID)
	pages, _ := args.Get(0).([]models.StoryPage)
	return pages, args.Error(1)
}

func (m *PageRepository) ListCovers(ctx context.Context, querier interfaces.DBTX, storyIDs []uuid.UUID) (map[uuid.UUID]interfaces.PageCover, error) {
	args := m.Called(ctx, querier, storyIDs)
	covers, _ := args.Get(0).(map[uuid.UUID]interfaces.PageCover)
	return covers, args.Error(1)
}

func (m *PageRepository) UpdateAudioURL(ctx context.Context, querier interfaces.DBTX, pageID uuid.UUID, audioURL string) error {
	args := m.Called(ctx, querier, pageID, audioURL)
	return args.Error(0)
}

func (m *PageRepository) PagesWithoutAudio(ctx context.Context, querier interfaces.DBTX, storyID uuid.UUID) ([]models.StoryPage, error) {
	args := m.Called(ctx, querier, storyID)
	pages, _ := args.Get(0).([]models.StoryPage)
	return pages, args.Error(1)
}

// TxRunner выполняет fn сразу, без базы; tx внутри fn равен nil.
type TxRunner struct {
	mock.Mock
}

func (m *TxRunner) WithTx(ctx context.Context, fn func(tx interfaces.DBTX) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(nil)
}
