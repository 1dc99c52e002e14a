package service

import (
	"regexp"
	"strings"

	"storybook-server/internal/models"
)

var paragraphBreak = regexp.MustCompile(`\n\s*\n`)

// Paragraphs splits story content on blank lines, dropping empty pieces.
func Paragraphs(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	parts := paragraphBreak.Split(content, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Paginate - одна страница на абзац, подсказки иллюстраций по порядку.
func Paginate(record *models.StoryRecord) []models.PageDraft {
	if record == nil {
		return nil
	}
	paragraphs := Paragraphs(record.Content)
	pages := make([]models.PageDraft, len(paragraphs))
	for i, p := range paragraphs {
		pages[i].Content = p
		if i < len(record.SuggestedIllustrations) {
			hint := record.SuggestedIllustrations[i].Prompt()
			pages[i].IllustrationHint = &hint
		}
	}
	return pages
}
