package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"storybook-server/internal/models"
)

// StoryGenerator mock.
type StoryGenerator struct {
	mock.Mock
}

func (m *StoryGenerator) GenerateStory(ctx context.Context, gen *models.Generation) (*models.Generation, error) {
	args := m.Called(ctx, gen)
	result, _ := args.Get(0).(*models.Generation)
	return result, args.Error(1)
}

// StoryLibrary mock.
type StoryLibrary struct {
	mock.Mock
}

func (m *StoryLibrary) SaveStory(ctx context.Context, userID string, req models.SaveStoryRequest) (uuid.UUID, error) {
	args := m.Called(ctx, userID, req)
	id, _ := args.Get(0).(uuid.UUID)
	return id, args.Error(1)
}

func (m *StoryLibrary) GetStory(ctx context.Context, id uuid.UUID) (*models.StoryWithPages, error) {
	args := m.Called(ctx, id)
	story, _ := args.Get(0).(*models.StoryWithPages)
	return story, args.Error(1)
}

func (m *StoryLibrary) ListUserStories(ctx context.Context, userID, cursor string, limit int) (*models.StoryListResponse, error) {
	args := m.Called(ctx, userID, cursor, limit)
	resp, _ := args.Get(0).(*models.StoryListResponse)
	return resp, args.Error(1)
}

func (m *StoryLibrary) DeleteStory(ctx context.Context, userID string, id uuid.UUID) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

// Narration mock.
type Narration struct {
	mock.Mock
}

func (m *Narration) Speak(ctx context.Context, text, language string) ([]byte, error) {
	args := m.Called(ctx, text, language)
	audio, _ := args.Get(0).([]byte)
	return audio, args.Error(1)
}

func (m *Narration) EnqueueStoryNarration(ctx context.Context, userID string, storyID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID, storyID)
	return args.Int(0), args.Error(1)
}

// MediaReader mock.
type MediaReader struct {
	mock.Mock
}

func (m *MediaReader) Open(ctx context.Context, key string) (*models.Object, error) {
	args := m.Called(ctx, key)
	obj, _ := args.Get(0).(*models.Object)
	return obj, args.Error(1)
}
