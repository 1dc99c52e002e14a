package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"storybook-server/internal/interfaces"
	"storybook-server/internal/models"
)

var _ interfaces.StoryRepository = (*pgStoryRepository)(nil)

type pgStoryRepository struct {
	logger *zap.Logger
}

func NewPgStoryRepository(logger *zap.Logger) interfaces.StoryRepository {
	return &pgStoryRepository{logger: logger.Named("PgStoryRepo")}
}

const storyFields = `id, title, user_id, moral_lesson, language, created_at, updated_at`

const (
	createStoryQuery = `
INSERT INTO stories (` + storyFields + `)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	getStoryByIDQuery = `SELECT ` + storyFields + ` FROM stories WHERE id = $1`

	listStoriesByUserQuery = `
SELECT ` + storyFields + `
FROM stories
WHERE user_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2`

	listStoriesByUserAfterQuery = `
SELECT ` + storyFields + `
FROM stories
WHERE user_id = $1 AND (created_at, id) < ($2, $3)
ORDER BY created_at DESC, id DESC
LIMIT $4`

	deleteStoryQuery = `DELETE FROM stories WHERE id = $1 AND user_id = $2`
)

func (r *pgStoryRepository) Create(ctx context.Context, querier interfaces.DBTX, story *models.Story) error {
	if story.ID == uuid.Nil {
		story.ID = uuid.New()
	}
	now := time.Now().UTC()
	if story.CreatedAt.IsZero() {
		story.CreatedAt = now
	}
	if story.UpdatedAt.IsZero() {
		story.UpdatedAt = story.CreatedAt
	}

	_, err := querier.Exec(ctx, createStoryQuery,
		story.ID, story.Title, story.UserID, story.MoralLesson, story.Language,
		story.CreatedAt, story.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create story", zap.Error(err), zap.String("userID", story.UserID))
		return fmt.Errorf("failed to create story: %w", err)
	}
	r.logger.Info("Story created", zap.String("storyID", story.ID.String()))
	return nil
}

func (r *pgStoryRepository) GetByID(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) (*models.Story, error) {
	var story models.Story
	if err := pgxscan.Get(ctx, querier, &story, getStoryByIDQuery, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get story", zap.Error(err), zap.String("storyID", id.String()))
		return nil, fmt.Errorf("failed to get story %s: %w", id, err)
	}
	return &story, nil
}

func (r *pgStoryRepository) ListByUser(ctx context.Context, querier interfaces.DBTX, userID string, cursor string, limit int) ([]models.Story, string, error) {
	cursorTime, cursorID, err := DecodeCursor(cursor)
	if err != nil {
		return nil, "", err
	}

	// берем на одну больше, чтобы понять, есть ли следующая страница
	fetch := limit + 1
	var stories []models.Story
	if cursorID == uuid.Nil {
		err = pgxscan.Select(ctx, querier, &stories, listStoriesByUserQuery, userID, fetch)
	} else {
		err = pgxscan.Select(ctx, querier, &stories, listStoriesByUserAfterQuery, userID, cursorTime, cursorID, fetch)
	}
	if err != nil {
		r.logger.Error("Failed to list stories", zap.Error(err), zap.String("userID", userID))
		return nil, "", fmt.Errorf("failed to list stories: %w", err)
	}

	var next string
	if len(stories) > limit {
		stories = stories[:limit]
		last := stories[len(stories)-1]
		next = EncodeCursor(last.CreatedAt, last.ID)
	}
	return stories, next, nil
}

func (r *pgStoryRepository) Delete(ctx context.Context, querier interfaces.DBTX, id uuid.UUID, userID string) error {
	tag, err := querier.Exec(ctx, deleteStoryQuery, id, userID)
	if err != nil {
		r.logger.Error("Failed to delete story", zap.Error(err), zap.String("storyID", id.String()))
		return fmt.Errorf("failed to delete story %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	r.logger.Info("Story deleted", zap.String("storyID", id.String()))
	return nil
}
