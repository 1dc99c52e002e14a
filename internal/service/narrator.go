package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storybook-server/internal/interfaces"
	"storybook-server/internal/models"
	"storybook-server/internal/objectstore"
	"storybook-server/internal/speech"
)

// Narrator озвучивает текст сразу или ставит страницы истории в очередь.
type Narrator struct {
	synth     speech.Synthesizer
	publisher interfaces.NarrationPublisher
	db        interfaces.DBTX
	stories   interfaces.StoryRepository
	pages     interfaces.PageRepository
	store     interfaces.ObjectStore
	baseURL   string
	logger    *zap.Logger
}

func NewNarrator(
	synth speech.Synthesizer,
	publisher interfaces.NarrationPublisher,
	db interfaces.DBTX,
	stories interfaces.StoryRepository,
	pages interfaces.PageRepository,
	store interfaces.ObjectStore,
	publicMediaBaseURL string,
	logger *zap.Logger,
) *Narrator {
	return &Narrator{
		synth:     synth,
		publisher: publisher,
		db:        db,
		stories:   stories,
		pages:     pages,
		store:     store,
		baseURL:   publicMediaBaseURL,
		logger:    logger.Named("Narrator"),
	}
}

// Speak returns mp3 audio for the text.
func (n *Narrator) Speak(ctx context.Context, text, language string) ([]byte, error) {
	return n.synth.Synthesize(ctx, text, language)
}

// EnqueueStoryNarration publishes a task per page that has no audio yet and
// returns how many were queued.
func (n *Narrator) EnqueueStoryNarration(ctx context.Context, userID string, storyID uuid.UUID) (int, error) {
	if userID == "" {
		return 0, models.ErrUnauthorized
	}
	if n.publisher == nil {
		return 0, fmt.Errorf("%w: narration queue is not configured", models.ErrProviderUnavailable)
	}

	story, err := n.stories.GetByID(ctx, n.db, storyID)
	if err != nil {
		return 0, err
	}
	if story.UserID != userID {
		return 0, models.ErrForbidden
	}

	pages, err := n.pages.PagesWithoutAudio(ctx, n.db, storyID)
	if err != nil {
		return 0, err
	}

	queued := 0
	for _, p := range pages {
		task := models.NarrationTask{
			TaskID:     uuid.NewString(),
			StoryID:    story.ID,
			PageID:     p.ID,
			PageNumber: p.PageNumber,
			Text:       p.Content,
			Language:   story.Language,
			UserID:     userID,
		}
		if err := n.publisher.PublishNarrationTask(ctx, task); err != nil {
			n.logger.Error("Failed to publish narration task",
				zap.String("story_id", storyID.String()), zap.Int("page", p.PageNumber), zap.Error(err))
			return queued, fmt.Errorf("failed to queue page %d: %w", p.PageNumber, err)
		}
		queued++
	}
	n.logger.Info("Story narration queued", zap.String("story_id", storyID.String()), zap.Int("pages", queued))
	return queued, nil
}

// NarratePage synthesizes one page, uploads the mp3 and stores its URL.
// Returns models.ErrNotFound when the page disappeared meanwhile.
func (n *Narrator) NarratePage(ctx context.Context, task models.NarrationTask) error {
	log := n.logger.With(zap.String("task_id", task.TaskID), zap.String("story_id", task.StoryID.String()), zap.Int("page", task.PageNumber))

	if task.StoryID == uuid.Nil || task.PageID == uuid.Nil {
		return fmt.Errorf("%w: task without story or page id", models.ErrInvalidInput)
	}

	audio, err := n.synth.Synthesize(ctx, task.Text, task.Language)
	if err != nil {
		return err
	}

	key := objectstore.AudioKey(task.StoryID.String(), task.PageNumber)
	if err := n.store.Put(ctx, key, "audio/mpeg", audio); err != nil {
		return err
	}

	url := objectstore.PublicURL(n.baseURL, key)
	if err := n.pages.UpdateAudioURL(ctx, n.db, task.PageID, url); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			log.Warn("Page removed before narration finished, dropping audio")
			if delErr := n.store.Delete(context.WithoutCancel(ctx), key); delErr != nil && !errors.Is(delErr, models.ErrNotFound) {
				log.Warn("Failed to remove orphaned audio", zap.Error(delErr))
			}
		}
		return err
	}
	log.Info("Page narrated", zap.Int("audio_bytes", len(audio)))
	return nil
}
