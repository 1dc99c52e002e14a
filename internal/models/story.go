package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// StoryRecord нормализованный результат генерации.
type StoryRecord struct {
	Title                  string         `json:"title"`
	Content                string         `json:"content"`
	MoralLesson            string         `json:"moralLesson"`
	SuggestedIllustrations []Illustration `json:"suggestedIllustrations"`
	Language               string         `json:"language,omitempty"`
}

// Illustration is a suggested scene. Models return either a bare string or
// an object; both shapes decode into this struct.
type Illustration struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description"`
}

// Prompt returns the text to send to an image provider.
func (i Illustration) Prompt() string {
	switch {
	case i.Title == "":
		return i.Description
	case i.Description == "":
		return i.Title
	default:
		return i.Title + ": " + i.Description
	}
}

// UnmarshalJSON accepts "text" or {"title"|"scene": ..., "description"|"prompt": ...}.
func (i *Illustration) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if strings.TrimSpace(s) == "" {
			return errors.New("illustration is empty")
		}
		*i = Illustration{Description: strings.TrimSpace(s)}
		return nil
	}

	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("illustration must be a string or an object: %w", err)
	}
	pick := func(keys ...string) string {
		for _, k := range keys {
			if v, ok := obj[k].(string); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
		return ""
	}
	ill := Illustration{
		Title:       pick("title", "Title", "scene", "Scene"),
		Description: pick("description", "Description", "prompt", "Prompt"),
	}
	if ill.Prompt() == "" {
		return errors.New("illustration has no title or description")
	}
	*i = ill
	return nil
}

// StoryParams параметры генерации, приходящие от клиента.
type StoryParams struct {
	StoryAbout  string `json:"storyAbout" binding:"required"`
	Settings    string `json:"settings" binding:"required"`
	AgeRange    string `json:"ageRange" binding:"required"`
	Language    string `json:"language,omitempty"`
	Genre       string `json:"genre,omitempty"`
	Tone        string `json:"tone,omitempty"`
	Length      string `json:"length,omitempty"`
	MoralLesson string `json:"moralLesson,omitempty"`
	Characters  string `json:"characters,omitempty"`
	PlotTwist   string `json:"plotTwist,omitempty"`
}

// Defaults used when the client leaves a field empty.
const (
	DefaultLanguage = "English"
	DefaultGenre    = "Fantasy"
	DefaultTone     = "Heartwarming"
	DefaultLength   = "medium"
)

// WithDefaults returns a copy with the default language, genre, tone and length applied.
func (p StoryParams) WithDefaults() StoryParams {
	if strings.TrimSpace(p.Language) == "" {
		p.Language = DefaultLanguage
	}
	if strings.TrimSpace(p.Genre) == "" {
		p.Genre = DefaultGenre
	}
	if strings.TrimSpace(p.Tone) == "" {
		p.Tone = DefaultTone
	}
	if strings.TrimSpace(p.Length) == "" {
		p.Length = DefaultLength
	}
	return p
}

// Validate checks the fields the prompt cannot do without.
func (p StoryParams) Validate() error {
	var missing []string
	if strings.TrimSpace(p.StoryAbout) == "" {
		missing = append(missing, "storyAbout")
	}
	if strings.TrimSpace(p.Settings) == "" {
		missing = append(missing, "settings")
	}
	if strings.TrimSpace(p.AgeRange) == "" {
		missing = append(missing, "ageRange")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidInput, strings.Join(missing, ", "))
	}
	return nil
}

// Story строка таблицы stories.
type Story struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	UserID      string    `json:"userId" db:"user_id"`
	MoralLesson string    `json:"moralLesson" db:"moral_lesson"`
	Language    string    `json:"language" db:"language"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// StoryPage строка таблицы story_pages.
type StoryPage struct {
	ID         uuid.UUID `json:"id" db:"id"`
	StoryID    uuid.UUID `json:"storyId" db:"story_id"`
	PageNumber int       `json:"pageNumber" db:"page_number"`
	Content    string    `json:"content" db:"content"`
	ImageURL   *string   `json:"imageUrl,omitempty" db:"image_url"`
	AudioURL   *string   `json:"audioUrl,omitempty" db:"audio_url"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" db:"updated_at"`
}

// StoryWithPages история вместе со страницами, упорядоченными по page_number.
type StoryWithPages struct {
	Story
	Pages []StoryPage `json:"pages"`
}

// StorySummary элемент списка историй пользователя.
type StorySummary struct {
	Story
	CoverText     string  `json:"coverText,omitempty"`
	CoverImageURL *string `json:"coverImageUrl,omitempty"`
	PageCount     int     `json:"pageCount"`
}

// PageDraft страница до сохранения. Image может быть data URL или удалённым URL,
// Audio может быть base64 (как возвращает /api/speech) или URL.
type PageDraft struct {
	Content          string  `json:"content"`
	Image            string  `json:"image,omitempty"`
	Audio            string  `json:"audio,omitempty"`
	IllustrationHint *string `json:"illustrationHint,omitempty"`
}
