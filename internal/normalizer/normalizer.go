// Package normalizer turns near-JSON text returned by a language model into a
// models.StoryRecord.
//
// Models asked to put free prose inside a JSON string often emit raw newlines
// and doubled quotes in it. The normalizer cuts the object out of the
// surrounding commentary, repairs the one risky field and maps the keys the
// call site asked for onto the record. It is pure and safe for concurrent use.
package normalizer

import (
	"bytes"
	"encoding/json"

	"storybook-server/internal/models"
)

// Format is the response layout a prompt asks the model for.
type Format string

const (
	// FormatJSON - один JSON объект, возможно окружённый текстом.
	FormatJSON Format = "json"
	// FormatSections - заголовок, абзацы, "Moral lesson:", "Suggested illustrations:".
	FormatSections Format = "sections"
)

// Field identifies a StoryRecord field independently of its wire key.
type Field string

const (
	FieldTitle                  Field = "title"
	FieldContent                Field = "content"
	FieldMoralLesson            Field = "moralLesson"
	FieldSuggestedIllustrations Field = "suggestedIllustrations"
)

// AllFields is the default set of required fields.
var AllFields = []Field{FieldTitle, FieldContent, FieldMoralLesson, FieldSuggestedIllustrations}

// FieldMapping holds the keys a call site asked the model to use.
// Keys are matched case-sensitively.
type FieldMapping struct {
	Title                  string `toml:"title"`
	Content                string `toml:"content"`
	MoralLesson            string `toml:"moral_lesson"`
	SuggestedIllustrations string `toml:"suggested_illustrations"`
}

var (
	// CanonicalFields is the schema new prompts use.
	CanonicalFields = FieldMapping{
		Title:                  "title",
		Content:                "content",
		MoralLesson:            "moralLesson",
		SuggestedIllustrations: "suggestedIllustrations",
	}
	// LegacyFields is the capitalised schema older prompts asked for.
	LegacyFields = FieldMapping{
		Title:                  "Title",
		Content:                "Content",
		MoralLesson:            "MoralLesson",
		SuggestedIllustrations: "SuggestedIllustrations",
	}
)

// key returns the wire key for f, falling back to the canonical one.
func (m FieldMapping) key(f Field) string {
	var k string
	switch f {
	case FieldTitle:
		k = m.Title
	case FieldContent:
		k = m.Content
	case FieldMoralLesson:
		k = m.MoralLesson
	case FieldSuggestedIllustrations:
		k = m.SuggestedIllustrations
	}
	if k == "" {
		return string(f)
	}
	return k
}

// Profile configures normalization for one call site.
type Profile struct {
	Name                    string
	Format                  Format
	Fields                  FieldMapping
	Required                []Field
	AllowEmptyIllustrations bool
}

// DefaultProfile is the canonical JSON call site with every field required.
func DefaultProfile() Profile {
	return Profile{
		Name:     "story",
		Format:   FormatJSON,
		Fields:   CanonicalFields,
		Required: AllFields,
	}
}

// Normalizer applies one Profile. The zero value is not usable, use New.
type Normalizer struct {
	profile Profile
}

// New creates a Normalizer for the profile.
func New(profile Profile) *Normalizer {
	if profile.Format == "" {
		profile.Format = FormatJSON
	}
	if profile.Fields == (FieldMapping{}) {
		profile.Fields = CanonicalFields
	}
	return &Normalizer{profile: profile}
}

// Profile returns the profile the normalizer was built with.
func (n *Normalizer) Profile() Profile {
	return n.profile
}

// Parse dispatches on the profile format.
func (n *Normalizer) Parse(raw string) (*models.StoryRecord, error) {
	if n.profile.Format == FormatSections {
		return n.ParseSections(raw)
	}
	return n.Normalize(raw)
}

// Normalize extracts the JSON object from raw, repairs the body field, parses
// it and maps it onto a StoryRecord.
func (n *Normalizer) Normalize(raw string) (*models.StoryRecord, error) {
	object, err := ExtractObject(raw)
	if err != nil {
		return nil, err
	}

	cleaned := Repair(object, n.profile.Fields.key(FieldContent))

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &fields); err != nil {
		return nil, &JSONSyntaxError{Cleaned: cleaned, Err: err}
	}

	return n.mapFields(fields)
}

func (n *Normalizer) mapFields(fields map[string]json.RawMessage) (*models.StoryRecord, error) {
	record := &models.StoryRecord{}
	mismatch := &SchemaMismatchError{}
	present := make(map[Field]bool, 4)

	text := func(f Field, dst *string) {
		key := n.profile.Fields.key(f)
		raw, ok := fields[key]
		if !ok || isNull(raw) {
			return
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			mismatch.Mistyped = append(mismatch.Mistyped, key)
			return
		}
		present[f] = true
	}
	text(FieldTitle, &record.Title)
	text(FieldContent, &record.Content)
	text(FieldMoralLesson, &record.MoralLesson)

	illustrationsKey := n.profile.Fields.key(FieldSuggestedIllustrations)
	if raw, ok := fields[illustrationsKey]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &record.SuggestedIllustrations); err != nil {
			mismatch.Mistyped = append(mismatch.Mistyped, illustrationsKey)
		} else {
			present[FieldSuggestedIllustrations] = true
		}
	}

	n.checkRequired(record, present, mismatch)
	if len(mismatch.Missing) > 0 || len(mismatch.Mistyped) > 0 {
		return nil, mismatch
	}
	if record.SuggestedIllustrations == nil {
		record.SuggestedIllustrations = []models.Illustration{}
	}
	return record, nil
}

func (n *Normalizer) checkRequired(record *models.StoryRecord, present map[Field]bool, mismatch *SchemaMismatchError) {
	mistyped := make(map[string]bool, len(mismatch.Mistyped))
	for _, k := range mismatch.Mistyped {
		mistyped[k] = true
	}
	for _, f := range n.profile.Required {
		key := n.profile.Fields.key(f)
		if mistyped[key] {
			continue
		}
		if !present[f] {
			mismatch.Missing = append(mismatch.Missing, key)
			continue
		}
		if f == FieldSuggestedIllustrations && len(record.SuggestedIllustrations) == 0 && !n.profile.AllowEmptyIllustrations {
			mismatch.Missing = append(mismatch.Missing, key)
		}
	}
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
