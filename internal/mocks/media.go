package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"storybook-server/internal/ai"
	"storybook-server/internal/models"
)

// ObjectStore mock.
type ObjectStore struct {
	mock.Mock
}

func (m *ObjectStore) Put(ctx context.Context, key, contentType string, data []byte) error {
	args := m.Called(ctx, key, contentType, data)
	return args.Error(0)
}

func (m *ObjectStore) Get(ctx context.Context, key string) (*models.Object, error) {
	args := m.Called(ctx, key)
	obj, _ := args.Get(0).(*models.Object)
	return obj, args.Error(1)
}

func (m *ObjectStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *ObjectStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	args := m.Called(ctx, prefix)
	return args.Int(0), args.Error(1)
}

// NarrationPublisher mock.
type NarrationPublisher struct {
	mock.Mock
}

func (m *NarrationPublisher) PublishNarrationTask(ctx context.Context, task models.NarrationTask) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

// Synthesizer mock.
type Synthesizer struct {
	mock.Mock
}

func (m *Synthesizer) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	args := m.Called(ctx, text, language)
	audio, _ := args.Get(0).([]byte)
	return audio, args.Error(1)
}

func (m *Synthesizer) Name() string { return "mock" }

// IllustrationService mock.
type IllustrationService struct {
	mock.Mock
}

func (m *IllustrationService) Illustrate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func (m *IllustrationService) GenerateImage(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

// AIClient mock.
type AIClient struct {
	mock.Mock
}

func (m *AIClient) GenerateText(ctx context.Context, userID string, systemPrompt string, userInput string, params ai.GenerationParams) (string, ai.UsageInfo, error) {
	args := m.Called(ctx, userID, systemPrompt, userInput, params)
	usage, _ := args.Get(1).(ai.UsageInfo)
	return args.String(0), usage, args.Error(2)
}

func (m *AIClient) Model() string { return "mock-model" }
