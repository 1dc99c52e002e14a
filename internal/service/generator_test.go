package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storybook-server/internal/ai"
	"storybook-server/internal/mocks"
	"storybook-server/internal/models"
	"storybook-server/internal/normalizer"
	"storybook-server/internal/prompts"
)

func newGenerator(t *testing.T, client ai.Client, profile string) *StoryGenerator {
	t.Helper()
	catalog, err := prompts.Load("")
	require.NoError(t, err)
	gen, err := NewStoryGenerator(client, catalog, profile, zap.NewNop())
	require.NoError(t, err)
	return gen
}

func validParams() models.StoryParams {
	return models.StoryParams{StoryAbout: "a shy dragon", Settings: "a misty valley", AgeRange: "4-6"}
}

func TestGenerateStory_Success(t *testing.T) {
	client := new(mocks.AIClient)
	raw := "Sure! Here it is:\n{\"title\": \"The Shy Dragon\", \"content\": \"Once upon a time.\n\nThe end.\", " +
		"\"moralLesson\": \"Be brave\", \"suggestedIllustrations\": [\"a dragon\", \"a valley\"]}\nEnjoy!"
	client.On("GenerateText", mock.Anything, "user-1", mock.AnythingOfType("string"),
		mock.MatchedBy(func(p string) bool { return strings.Contains(p, "a shy dragon") && strings.Contains(p, "English") }),
		mock.MatchedBy(func(p ai.GenerationParams) bool {
			return p.MaxTokens != nil && *p.MaxTokens == 4096 && p.Temperature != nil && *p.Temperature == 0.7
		}),
	).Return(raw, ai.UsageInfo{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30}, nil).Once()

	g := newGenerator(t, client, "")
	gen, err := g.GenerateStory(context.Background(), models.NewGeneration("user-1", validParams()))
	require.NoError(t, err)

	assert.Equal(t, models.GenerationStatusSucceeded, gen.Status)
	assert.False(t, gen.Loading())
	require.NotNil(t, gen.Story)
	assert.Equal(t, "The Shy Dragon", gen.Story.Title)
	assert.Equal(t, "Once upon a time.\n\nThe end.", gen.Story.Content)
	assert.Equal(t, "English", gen.Story.Language)
	assert.Len(t, gen.Story.SuggestedIllustrations, 2)
	assert.Equal(t, 30, gen.Usage.TotalTokens)
	assert.Equal(t, raw, gen.RawResponse)
	assert.False(t, gen.CompletedAt.Before(gen.StartedAt))
	client.AssertExpectations(t)
}

func TestGenerateStory_InvalidParams(t *testing.T) {
	client := new(mocks.AIClient)
	g := newGenerator(t, client, "")

	gen, err := g.GenerateStory(context.Background(), models.NewGeneration("", models.StoryParams{StoryAbout: "x"}))
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	assert.Equal(t, models.GenerationStatusFailed, gen.Status)
	client.AssertNotCalled(t, "GenerateText", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGenerateStory_ProviderError(t *testing.T) {
	client := new(mocks.AIClient)
	client.On("GenerateText", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", ai.UsageInfo{}, errors.New("connection reset")).Once()

	g := newGenerator(t, client, "")
	gen, err := g.GenerateStory(context.Background(), models.NewGeneration("", validParams()))
	require.Error(t, err)
	assert.ErrorIs(t, err, ai.ErrAIGenerationFailed)
	assert.Equal(t, models.GenerationStatusFailed, gen.Status)
	assert.Nil(t, gen.Story)
}

func TestGenerateStory_NormalizeFailure(t *testing.T) {
	client := new(mocks.AIClient)
	client.On("GenerateText", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("I cannot write that story.", ai.UsageInfo{}, nil).Once()

	g := newGenerator(t, client, "")
	gen, err := g.GenerateStory(context.Background(), models.NewGeneration("", validParams()))
	require.Error(t, err)
	assert.ErrorIs(t, err, normalizer.ErrNormalize)
	assert.Equal(t, normalizer.KindMalformedResponse, normalizer.Kind(err))
	assert.Equal(t, "I cannot write that story.", gen.RawResponse)
	assert.Equal(t, gen.Err, err)
}

func TestGenerateStory_SectionsProfile(t *testing.T) {
	client := new(mocks.AIClient)
	raw := "Title: The Moon Cat\n\nThe cat looked up.\n\nIt smiled.\n\nMoral lesson: Dream big.\n\nSuggested illustrations:\n1. A cat on a roof\n2. The moon"
	client.On("GenerateText", mock.Anything, mock.Anything, mock.Anything,
		mock.MatchedBy(func(p string) bool { return strings.Contains(p, "Moral lesson:") }), mock.Anything,
	).Return(raw, ai.UsageInfo{}, nil).Once()

	g := newGenerator(t, client, "story-sections")
	gen, err := g.GenerateStory(context.Background(), models.NewGeneration("", validParams()))
	require.NoError(t, err)
	assert.Equal(t, "The Moon Cat", gen.Story.Title)
	assert.Equal(t, "Dream big.", gen.Story.MoralLesson)
	assert.Len(t, gen.Story.SuggestedIllustrations, 2)
}

func TestNewStoryGenerator_UnknownProfile(t *testing.T) {
	catalog, err := prompts.Load("")
	require.NoError(t, err)
	_, err = NewStoryGenerator(new(mocks.AIClient), catalog, "nope", zap.NewNop())
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestGenerateStory_NilGeneration(t *testing.T) {
	g := newGenerator(t, new(mocks.AIClient), "")
	_, err := g.GenerateStory(context.Background(), nil)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}
