package database

import (
	"context"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"storybook-server/internal/interfaces"
	"storybook-server/internal/models"
)

var _ interfaces.PageRepository = (*pgPageRepository)(nil)

type pgPageRepository struct {
	logger *zap.Logger
}

func NewPgPageRepository(logger *zap.Logger) interfaces.PageRepository {
	return &pgPageRepository{logger: logger.Named("PgPageRepo")}
}

const pageFields = `id, story_id, page_number, content, image_url, audio_url, created_at, updated_at`

const (
	insertPageQuery = `
INSERT INTO story_pages (` + pageFields + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	listPagesByStoryQuery = `
SELECT ` + pageFields + ` FROM story_pages WHERE story_id = $1 ORDER BY page_number ASC`

	listPagesWithoutAudioQuery = `
SELECT ` + pageFields + ` FROM story_pages
WHERE story_id = $1 AND (audio_url IS NULL OR audio_url = '')
ORDER BY page_number ASC`

	listCoversQuery = `
SELECT p.story_id, p.content, p.image_url, p.updated_at, c.cnt AS page_count
FROM story_pages p
JOIN (
    SELECT story_id, COUNT(*) AS cnt, MIN(page_number) AS first_page
    FROM story_pages
    WHERE story_id = ANY($1::uuid[])
    GROUP BY story_id
) c ON c.story_id = p.story_id AND c.first_page = p.page_number`

	updateAudioURLQuery = `UPDATE story_pages SET audio_url = $2, updated_at = $3 WHERE id = $1`
)

func (r *pgPageRepository) CreateBatch(ctx context.Context, querier interfaces.DBTX, pages []models.StoryPage) error {
	now := time.Now().UTC()
	for i := range pages {
		p := &pages[i]
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		if p.UpdatedAt.IsZero() {
			p.UpdatedAt = p.CreatedAt
		}
		_, err := querier.Exec(ctx, insertPageQuery,
			p.ID, p.StoryID, p.PageNumber, p.Content, p.ImageURL, p.AudioURL, p.CreatedAt, p.UpdatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to insert page", zap.Error(err),
				zap.String("storyID", p.StoryID.String()), zap.Int("page", p.PageNumber))
			return fmt.Errorf("failed to insert page %d: %w", p.PageNumber, err)
		}
	}
	return nil
}

func (r *pgPageRepository) ListByStory(ctx context.Context, querier interfaces.DBTX, storyID uuid.UUID) ([]models.StoryPage, error) {
	pages := make([]models.StoryPage, 0)
	if err := pgxscan.Select(ctx, querier, &pages, listPagesByStoryQuery, storyID); err != nil {
		return nil, fmt.Errorf("failed to list pages of story %s: %w", storyID, err)
	}
	return pages, nil
}

func (r *pgPageRepository) PagesWithoutAudio(ctx context.Context, querier interfaces.DBTX, storyID uuid.UUID) ([]models.StoryPage, error) {
	pages := make([]models.StoryPage, 0)
	if err := pgxscan.Select(ctx, querier, &pages, listPagesWithoutAudioQuery, storyID); err != nil {
		return nil, fmt.Errorf("failed to list pages without audio of story %s: %w", storyID, err)
	}
	return pages, nil
}

type coverRow struct {
	StoryID   uuid.UUID `db:"story_id"`
	Content   string    `db:"content"`
	ImageURL  *string   `db:"image_url"`
	UpdatedAt time.Time `db:"updated_at"`
	PageCount int       `db:"page_count"`
}

func (r *pgPageRepository) ListCovers(ctx context.Context, querier interfaces.DBTX, storyIDs []uuid.UUID) (map[uuid.UUID]interfaces.PageCover, error) {
	covers := make(map[uuid.UUID]interfaces.PageCover, len(storyIDs))
	if len(storyIDs) == 0 {
		return covers, nil
	}
	ids := make([]string, len(storyIDs))
	for i, id := range storyIDs {
		ids[i] = id.String()
	}

	var rows []coverRow
	if err := pgxscan.Select(ctx, querier, &rows, listCoversQuery, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("failed to list covers: %w", err)
	}
	for _, row := range rows {
		covers[row.StoryID] = interfaces.PageCover{
			Content:   row.Content,
			ImageURL:  row.ImageURL,
			PageCount: row.PageCount,
			UpdatedAt: row.UpdatedAt,
		}
	}
	return covers, nil
}

func (r *pgPageRepository) UpdateAudioURL(ctx context.Context, querier interfaces.DBTX, pageID uuid.UUID, audioURL string) error {
	tag, err := querier.Exec(ctx, updateAudioURLQuery, pageID, audioURL, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update audio url of page %s: %w", pageID, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	r.logger.Debug("Page audio updated", zap.String("pageID", pageID.String()))
	return nil
}
