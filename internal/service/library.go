package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"storybook-server/internal/interfaces"
	"storybook-server/internal/models"
	"storybook-server/internal/objectstore"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100

	defaultUploadConcurrency = 4
)

// LibraryConfig настройки сохранения историй.
type LibraryConfig struct {
	PublicMediaBaseURL string
	UploadConcurrency  int
}

// Library сохраняет истории книжками из страниц и отдает их обратно.
type Library struct {
	db      interfaces.DBTX
	tx      interfaces.TxRunner
	stories interfaces.StoryRepository
	pages   interfaces.PageRepository
	store   interfaces.ObjectStore
	cfg     LibraryConfig
	logger  *zap.Logger
}

func NewLibrary(
	db interfaces.DBTX,
	tx interfaces.TxRunner,
	stories interfaces.StoryRepository,
	pages interfaces.PageRepository,
	store interfaces.ObjectStore,
	cfg LibraryConfig,
	logger *zap.Logger,
) *Library {
	if cfg.UploadConcurrency <= 0 {
		cfg.UploadConcurrency = defaultUploadConcurrency
	}
	return &Library{
		db:      db,
		tx:      tx,
		stories: stories,
		pages:   pages,
		store:   store,
		cfg:     cfg,
		logger:  logger.Named("Library"),
	}
}

// SaveStory uploads page media and stores the story with its pages in one
// transaction. Uploaded objects are removed again when the save fails.
func (l *Library) SaveStory(ctx context.Context, userID string, req models.SaveStoryRequest) (uuid.UUID, error) {
	if userID == "" {
		return uuid.Nil, models.ErrUnauthorized
	}

	story, drafts, err := buildStory(userID, req)
	if err != nil {
		return uuid.Nil, err
	}
	log := l.logger.With(zap.String("story_id", story.ID.String()), zap.String("user_id", userID))

	pages := make([]models.StoryPage, len(drafts))
	for i, d := range drafts {
		pages[i] = models.StoryPage{StoryID: story.ID, PageNumber: i, Content: strings.TrimSpace(d.Content)}
	}

	var (
		mu       sync.Mutex
		uploaded []string
	)
	track := func(key string) {
		mu.Lock()
		uploaded = append(uploaded, key)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.cfg.UploadConcurrency)
	for i := range drafts {
		if drafts[i].Image != "" {
			g.Go(func() error {
				url, key, err := l.storeMedia(gctx, drafts[i].Image, "image/png", func(ct string) string {
					return objectstore.ImageKey(story.ID.String(), i, ct)
				})
				if err != nil {
					return fmt.Errorf("page %d image: %w", i, err)
				}
				if key != "" {
					track(key)
				}
				pages[i].ImageURL = &url
				return nil
			})
		}
		if drafts[i].Audio != "" {
			g.Go(func() error {
				url, key, err := l.storeMedia(gctx, drafts[i].Audio, "audio/mpeg", func(string) string {
					return objectstore.AudioKey(story.ID.String(), i)
				})
				if err != nil {
					return fmt.Errorf("page %d audio: %w", i, err)
				}
				if key != "" {
					track(key)
				}
				pages[i].AudioURL = &url
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		log.Error("Failed to upload page media", zap.Error(err))
		l.cleanup(ctx, uploaded)
		return uuid.Nil, err
	}

	err = l.tx.WithTx(ctx, func(tx interfaces.DBTX) error {
		if err := l.stories.Create(ctx, tx, story); err != nil {
			return err
		}
		return l.pages.CreateBatch(ctx, tx, pages)
	})
	if err != nil {
		log.Error("Failed to save story", zap.Error(err))
		l.cleanup(ctx, uploaded)
		return uuid.Nil, err
	}

	log.Info("Story saved", zap.Int("pages", len(pages)), zap.Int("uploaded_objects", len(uploaded)))
	return story.ID, nil
}

func buildStory(userID string, req models.SaveStoryRequest) (*models.Story, []models.PageDraft, error) {
	story := &models.Story{
		ID:          uuid.New(),
		UserID:      userID,
		Title:       strings.TrimSpace(req.Title),
		MoralLesson: strings.TrimSpace(req.MoralLesson),
		Language:    strings.TrimSpace(req.Language),
	}
	drafts := req.Pages
	if rec := req.Story; rec != nil {
		if story.Title == "" {
			story.Title = strings.TrimSpace(rec.Title)
		}
		if story.MoralLesson == "" {
			story.MoralLesson = strings.TrimSpace(rec.MoralLesson)
		}
		if story.Language == "" {
			story.Language = rec.Language
		}
		if len(drafts) == 0 {
			drafts = Paginate(rec)
		}
	}
	if story.Language == "" {
		story.Language = models.DefaultLanguage
	}

	if story.Title == "" {
		return nil, nil, fmt.Errorf("%w: title is required", models.ErrInvalidInput)
	}
	if len(drafts) == 0 {
		return nil, nil, fmt.Errorf("%w: story has no pages", models.ErrInvalidInput)
	}
	for i, d := range drafts {
		if strings.TrimSpace(d.Content) == "" {
			return nil, nil, fmt.Errorf("%w: page %d has no content", models.ErrInvalidInput, i)
		}
	}
	return story, drafts, nil
}

// storeMedia returns the URL to persist and the uploaded key ("" for remote URLs).
func (l *Library) storeMedia(ctx context.Context, payload, defaultType string, keyFor func(contentType string) string) (string, string, error) {
	if objectstore.IsRemoteURL(payload) {
		return payload, "", nil
	}
	data, contentType, err := objectstore.DecodeDataURL(payload, defaultType)
	if err != nil {
		return "", "", err
	}
	key := keyFor(contentType)
	if err := l.store.Put(ctx, key, contentType, data); err != nil {
		return "", "", err
	}
	return objectstore.PublicURL(l.cfg.PublicMediaBaseURL, key), key, nil
}

func (l *Library) cleanup(ctx context.Context, keys []string) {
	ctx = context.WithoutCancel(ctx)
	for _, key := range keys {
		if err := l.store.Delete(ctx, key); err != nil && !errors.Is(err, models.ErrNotFound) {
			l.logger.Warn("Failed to remove uploaded object", zap.String("key", key), zap.Error(err))
		}
	}
}

// GetStory возвращает историю со страницами по порядку.
func (l *Library) GetStory(ctx context.Context, id uuid.UUID) (*models.StoryWithPages, error) {
	story, err := l.stories.GetByID(ctx, l.db, id)
	if err != nil {
		return nil, err
	}
	pages, err := l.pages.ListByStory(ctx, l.db, id)
	if err != nil {
		return nil, err
	}
	return &models.StoryWithPages{Story: *story, Pages: pages}, nil
}

// ListUserStories - истории пользователя от новых к старым с обложками.
func (l *Library) ListUserStories(ctx context.Context, userID, cursor string, limit int) (*models.StoryListResponse, error) {
	if userID == "" {
		return nil, models.ErrUnauthorized
	}
	SanitizeLimit(&limit, DefaultListLimit, MaxListLimit)

	stories, next, err := l.stories.ListByUser(ctx, l.db, userID, cursor, limit)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(stories))
	for i, s := range stories {
		ids[i] = s.ID
	}
	covers, err := l.pages.ListCovers(ctx, l.db, ids)
	if err != nil {
		return nil, err
	}

	resp := &models.StoryListResponse{Data: make([]models.StorySummary, 0, len(stories)), NextCursor: next}
	for _, s := range stories {
		summary := models.StorySummary{Story: s}
		if c, ok := covers[s.ID]; ok {
			summary.CoverText = c.Content
			summary.CoverImageURL = c.ImageURL
			summary.PageCount = c.PageCount
		}
		resp.Data = append(resp.Data, summary)
	}
	return resp, nil
}

// DeleteStory удаляет историю владельца и ее медиа (медиа best effort).
func (l *Library) DeleteStory(ctx context.Context, userID string, id uuid.UUID) error {
	if userID == "" {
		return models.ErrUnauthorized
	}
	story, err := l.stories.GetByID(ctx, l.db, id)
	if err != nil {
		return err
	}
	if story.UserID != userID {
		return models.ErrForbidden
	}
	if err := l.stories.Delete(ctx, l.db, id, userID); err != nil {
		return err
	}

	for _, prefix := range objectstore.StoryPrefixes(id.String()) {
		if n, err := l.store.DeletePrefix(ctx, prefix); err != nil {
			l.logger.Warn("Failed to remove story media", zap.String("prefix", prefix), zap.Error(err))
		} else if n > 0 {
			l.logger.Debug("Story media removed", zap.String("prefix", prefix), zap.Int("objects", n))
		}
	}
	return nil
}

// SanitizeLimit устанавливает defaultVal, если limit вне [1, max].
func SanitizeLimit(limit *int, defaultVal, max int) {
	if *limit <= 0 || *limit > max {
		*limit = defaultVal
	}
}
