package models

import "github.com/google/uuid"

// SaveStoryRequest тело POST /api/stories. Если Pages пуст, страницы
// строятся из Story.
type SaveStoryRequest struct {
	Title       string       `json:"title"`
	MoralLesson string       `json:"moralLesson,omitempty"`
	Language    string       `json:"language,omitempty"`
	Pages       []PageDraft  `json:"pages,omitempty"`
	Story       *StoryRecord `json:"story,omitempty"`
}

// SaveStoryResponse ответ на сохранение.
type SaveStoryResponse struct {
	Success bool      `json:"success"`
	StoryID uuid.UUID `json:"storyId"`
}

// PromptRequest тело запросов на иллюстрации.
type PromptRequest struct {
	Prompt string `json:"prompt"`
}

// SpeechRequest тело POST /api/speech.
type SpeechRequest struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
}

// StoryListResponse страница списка историй.
type StoryListResponse struct {
	Data       []StorySummary `json:"data"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// NarrationTask задача на озвучку одной страницы.
type NarrationTask struct {
	TaskID     string    `json:"task_id"`
	StoryID    uuid.UUID `json:"story_id"`
	PageID     uuid.UUID `json:"page_id"`
	PageNumber int       `json:"page_number"`
	Text       string    `json:"text"`
	Language   string    `json:"language,omitempty"`
	UserID     string    `json:"user_id"`
}

// Object - содержимое объекта из хранилища медиа.
type Object struct {
	Key         string
	ContentType string
	Data        []byte
}
