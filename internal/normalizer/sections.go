package normalizer

import (
	"regexp"
	"strings"

	"storybook-server/internal/models"
)

var (
	moralRe         = regexp.MustCompile(`(?is)moral lesson:\s*(.*?)(?:\n\s*\n|\n\s*suggested illustrations:|$)`)
	illustrationsRe = regexp.MustCompile(`(?is)suggested illustrations:(.*)$`)
	sectionStartRe  = regexp.MustCompile(`(?i)moral lesson:|suggested illustrations:`)
	titlePrefixRe   = regexp.MustCompile(`(?i)^(?:\d+\.\s*)?(?:title:\s*)?`)
	listItemRe      = regexp.MustCompile(`^(?:\d+[.)]|[-*•])\s*`)
)

// ParseSections reads the plain-text layout: the first paragraph is the title,
// the following paragraphs are the story, then optional "Moral lesson:" and
// "Suggested illustrations:" sections with one numbered item per line.
func (n *Normalizer) ParseSections(raw string) (*models.StoryRecord, error) {
	text := strings.TrimSpace(strings.ReplaceAll(raw, "\r\n", "\n"))
	if text == "" {
		return nil, &MalformedResponseError{Raw: raw}
	}

	title, rest, _ := strings.Cut(text, "\n\n")
	title = strings.Trim(titlePrefixRe.ReplaceAllString(strings.TrimSpace(title), ""), "*# ")

	body := rest
	if loc := sectionStartRe.FindStringIndex(rest); loc != nil {
		body = rest[:loc[0]]
	}

	record := &models.StoryRecord{
		Title:                  title,
		Content:                strings.TrimSpace(body),
		SuggestedIllustrations: []models.Illustration{},
	}
	if m := moralRe.FindStringSubmatch(rest); m != nil {
		record.MoralLesson = strings.TrimSpace(m[1])
	}
	if m := illustrationsRe.FindStringSubmatch(rest); m != nil {
		for _, line := range strings.Split(m[1], "\n") {
			line = strings.TrimSpace(listItemRe.ReplaceAllString(strings.TrimSpace(line), ""))
			if line != "" {
				record.SuggestedIllustrations = append(record.SuggestedIllustrations, models.Illustration{Description: line})
			}
		}
	}

	present := map[Field]bool{
		FieldTitle:                  record.Title != "",
		FieldContent:                record.Content != "",
		FieldMoralLesson:            record.MoralLesson != "",
		FieldSuggestedIllustrations: true,
	}
	mismatch := &SchemaMismatchError{}
	n.checkRequired(record, present, mismatch)
	if len(mismatch.Missing) > 0 {
		return nil, mismatch
	}
	return record, nil
}
