package normalizer_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storybook-server/internal/models"
	"storybook-server/internal/normalizer"
)

const wellFormed = `{"title": "The Brave Fox", "content": "Once upon a time.\n\nThe end.", "moralLesson": "Be brave.", "suggestedIllustrations": ["A fox in the snow", "A fox at home", "A party"]}`

func newDefault() *normalizer.Normalizer {
	return normalizer.New(normalizer.DefaultProfile())
}

func TestNormalize_WellFormedIsNoOp(t *testing.T) {
	assert.Equal(t, wellFormed, normalizer.Repair(wellFormed, "content"), "repair must not touch valid JSON")

	got, err := newDefault().Normalize(wellFormed)
	require.NoError(t, err)

	var want models.StoryRecord
	require.NoError(t, json.Unmarshal([]byte(wellFormed), &want))
	assert.Equal(t, &want, got)
	assert.Equal(t, "Once upon a time.\n\nThe end.", got.Content)
}

func TestNormalize_RawNewlineInBody(t *testing.T) {
	raw := "{\"title\": \"T\", \"content\": \"Line one\nLine two\", \"moralLesson\": \"M\", \"suggestedIllustrations\": [\"a\"]}"

	got, err := newDefault().Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, "Line one\nLine two", got.Content)
}

func TestNormalize_CRLFAndTabInBody(t *testing.T) {
	raw := "{\"title\": \"T\", \"content\": \"One\r\n\tTwo\", \"moralLesson\": \"M\", \"suggestedIllustrations\": [\"a\"]}"

	got, err := newDefault().Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, "One\r\n\tTwo", got.Content)
}

func TestNormalize_IgnoresCommentary(t *testing.T) {
	raw := "Here is your story: " + wellFormed + " Hope you like it!"

	got, err := newDefault().Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, "The Brave Fox", got.Title)
	assert.Len(t, got.SuggestedIllustrations, 3)
}

func TestNormalize_CodeFence(t *testing.T) {
	raw := "```json\n" + wellFormed + "\n```"

	got, err := newDefault().Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, "Be brave.", got.MoralLesson)
}

func TestNormalize_MissingBraces(t *testing.T) {
	cases := map[string]string{
		"no braces":        "Once upon a time there was no JSON at all.",
		"only closing":     `title: "x" }`,
		"closing first":    `} nothing here {`,
		"only opening":     `{"title": "x"`,
		"empty":            "",
		"closing at start": "}{",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := newDefault().Normalize(raw)
			require.Error(t, err)

			var malformed *normalizer.MalformedResponseError
			require.ErrorAs(t, err, &malformed)
			assert.Equal(t, raw, malformed.Raw)
			assert.ErrorIs(t, err, normalizer.ErrNormalize)
			assert.Equal(t, normalizer.KindMalformedResponse, normalizer.Kind(err))
			assert.Contains(t, err.Error(), "missing opening or closing braces")
		})
	}
}

func TestNormalize_DoubledQuotesInBody(t *testing.T) {
	raw := `{"title": "T", "content": "She said ""hello"" to the fox.", "moralLesson": "M", "suggestedIllustrations": ["a"]}`

	got, err := newDefault().Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, `She said "hello" to the fox.`, got.Content)
}

func TestNormalize_EmptyBodyStringIsNotCollapsed(t *testing.T) {
	raw := `{"title": "T", "content": "", "moralLesson": "M", "suggestedIllustrations": ["a"]}`
	assert.Equal(t, raw, normalizer.Repair(raw, "content"))

	// пустая строка - поле есть, отсутствием не считается
	got, err := newDefault().Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, "", got.Content)
	assert.Equal(t, "T", got.Title)
}

func TestNormalize_BlankTitlePresent(t *testing.T) {
	raw := `{"title": "  ", "content": "A fox.", "moralLesson": "", "suggestedIllustrations": ["a"]}`

	got, err := newDefault().Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, "  ", got.Title)
	assert.Equal(t, "A fox.", got.Content)
}

func TestNormalize_ExistingEscapesKept(t *testing.T) {
	raw := `{"title": "T", "content": "He said \"hi\".\nAnd a backslash \\ too.", "moralLesson": "M", "suggestedIllustrations": ["a"]}`
	assert.Equal(t, raw, normalizer.Repair(raw, "content"))

	got, err := newDefault().Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, "He said \"hi\".\nAnd a backslash \\ too.", got.Content)
}

func TestRepair_MarkerOnlyMatchedOutsideStrings(t *testing.T) {
	// Маркер внутри значения title не должен открывать тело.
	raw := "{\"title\": \"see \\\"content\\\": \\\"x\", \"content\": \"a\nb\"}"
	want := "{\"title\": \"see \\\"content\\\": \\\"x\", \"content\": \"a\\nb\"}"
	assert.Equal(t, want, normalizer.Repair(raw, "content"))
}

func TestRepair_NewlineOutsideBodyUntouched(t *testing.T) {
	raw := "{\n  \"title\": \"T\",\n  \"content\": \"x\ny\"\n}"
	want := "{\n  \"title\": \"T\",\n  \"content\": \"x\\ny\"\n}"
	assert.Equal(t, want, normalizer.Repair(raw, "content"))
}

func TestRepair_CompactMarker(t *testing.T) {
	raw := "{\"content\":\"a\nb\"}"
	assert.Equal(t, "{\"content\":\"a\\nb\"}", normalizer.Repair(raw, "content"))
}

func TestRepair_CustomBodyField(t *testing.T) {
	raw := "{\"Content\": \"a\nb\", \"content\": \"c\nd\"}"
	assert.Equal(t, "{\"Content\": \"a\\nb\", \"content\": \"c\nd\"}", normalizer.Repair(raw, "Content"))
}

func TestRepair_Idempotent(t *testing.T) {
	inputs := []string{
		wellFormed,
		"{\"title\": \"T\", \"content\": \"Line one\nLine two\"}",
		`{"title": "T", "content": "She said ""hello"" to the fox."}`,
		"{\"content\": \"tab\there \\\"quoted\\\" \r\n end\", \"x\": [1, 2]}",
		`{"content": "unicode: сказка, 童话 é"}`,
	}
	for _, in := range inputs {
		once := normalizer.Repair(in, "content")
		require.True(t, json.Valid([]byte(once)), "first pass must yield valid JSON: %q", once)
		twice := normalizer.Repair(once, "content")
		assert.Equal(t, once, twice)
	}
}

func TestNormalize_JSONSyntaxError(t *testing.T) {
	raw := `Sure! {"title": "T", "content": "ok", "moralLesson": "M", "suggestedIllustrations": ["a"],} bye`

	_, err := newDefault().Normalize(raw)
	require.Error(t, err)

	var syntaxErr *normalizer.JSONSyntaxError
	require.ErrorAs(t, err, &syntaxErr)
	assert.Equal(t, `{"title": "T", "content": "ok", "moralLesson": "M", "suggestedIllustrations": ["a"],}`, syntaxErr.Cleaned)

	var jsonErr *json.SyntaxError
	assert.True(t, errors.As(err, &jsonErr), "underlying encoding/json error must be reachable")
	assert.ErrorIs(t, err, normalizer.ErrNormalize)
	assert.Equal(t, normalizer.KindJSONSyntax, normalizer.Kind(err))
	assert.Equal(t, syntaxErr.Cleaned, normalizer.Diagnostic(err))
}

func TestNormalize_LegacyFieldMapping(t *testing.T) {
	raw := "{\"Title\": \"T\", \"Content\": \"a\nb\", \"MoralLesson\": \"M\", \"SuggestedIllustrations\": [\"x\"]}"

	legacy := normalizer.New(normalizer.Profile{
		Fields:   normalizer.LegacyFields,
		Required: normalizer.AllFields,
	})
	got, err := legacy.Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, "T", got.Title)
	assert.Equal(t, "a\nb", got.Content)
	assert.Equal(t, "M", got.MoralLesson)

	// Ключи чувствительны к регистру.
	_, err = newDefault().Normalize(escapeLegacyBody(raw))
	var schema *normalizer.SchemaMismatchError
	require.ErrorAs(t, err, &schema)
	assert.ElementsMatch(t, []string{"title", "content", "moralLesson", "suggestedIllustrations"}, schema.Missing)
}

func TestNormalize_SchemaMismatch(t *testing.T) {
	t.Run("illustrations not an array", func(t *testing.T) {
		raw := `{"title": "T", "content": "c", "moralLesson": "M", "suggestedIllustrations": "a scene"}`
		_, err := newDefault().Normalize(raw)

		var schema *normalizer.SchemaMismatchError
		require.ErrorAs(t, err, &schema)
		assert.Equal(t, []string{"suggestedIllustrations"}, schema.Mistyped)
		assert.Empty(t, schema.Missing)
		assert.Equal(t, normalizer.KindSchemaMismatch, normalizer.Kind(err))
	})

	t.Run("illustration without text", func(t *testing.T) {
		for _, ills := range []string{`["a", null]`, `[{"x": 1}]`, `[""]`} {
			raw := `{"title": "T", "content": "c", "moralLesson": "M", "suggestedIllustrations": ` + ills + `}`
			_, err := newDefault().Normalize(raw)

			var schema *normalizer.SchemaMismatchError
			require.ErrorAs(t, err, &schema, ills)
			assert.Equal(t, []string{"suggestedIllustrations"}, schema.Mistyped, ills)
		}
	})

	t.Run("title is a number", func(t *testing.T) {
		raw := `{"title": 7, "content": "c", "moralLesson": "M", "suggestedIllustrations": []}`
		_, err := normalizer.New(normalizer.Profile{Required: normalizer.AllFields, AllowEmptyIllustrations: true}).Normalize(raw)

		var schema *normalizer.SchemaMismatchError
		require.ErrorAs(t, err, &schema)
		assert.Equal(t, []string{"title"}, schema.Mistyped)
	})

	t.Run("empty illustrations rejected by default", func(t *testing.T) {
		raw := `{"title": "T", "content": "c", "moralLesson": "M", "suggestedIllustrations": []}`
		_, err := newDefault().Normalize(raw)

		var schema *normalizer.SchemaMismatchError
		require.ErrorAs(t, err, &schema)
		assert.Equal(t, []string{"suggestedIllustrations"}, schema.Missing)
	})

	t.Run("empty illustrations tolerated when configured", func(t *testing.T) {
		raw := `{"title": "T", "content": "c", "moralLesson": "M", "suggestedIllustrations": []}`
		p := normalizer.DefaultProfile()
		p.AllowEmptyIllustrations = true

		got, err := normalizer.New(p).Normalize(raw)
		require.NoError(t, err)
		assert.Empty(t, got.SuggestedIllustrations)
		assert.NotNil(t, got.SuggestedIllustrations)
	})

	t.Run("optional fields may be absent", func(t *testing.T) {
		raw := "{\"content\": \"Line one\nLine two\"}"
		got, err := normalizer.New(normalizer.Profile{Required: []normalizer.Field{normalizer.FieldContent}}).Normalize(raw)
		require.NoError(t, err)
		assert.Equal(t, "Line one\nLine two", got.Content)
		assert.Empty(t, got.Title)
	})
}

func TestNormalize_StructuredIllustrations(t *testing.T) {
	raw := `{"title": "T", "content": "c", "moralLesson": "M", "suggestedIllustrations": [
		{"scene": "Forest", "description": "A fox among pines"},
		{"title": "Home", "prompt": "A cosy den"},
		"A plain string scene"
	]}`

	got, err := newDefault().Normalize(raw)
	require.NoError(t, err)
	require.Len(t, got.SuggestedIllustrations, 3)
	assert.Equal(t, models.Illustration{Title: "Forest", Description: "A fox among pines"}, got.SuggestedIllustrations[0])
	assert.Equal(t, "Home: A cosy den", got.SuggestedIllustrations[1].Prompt())
	assert.Equal(t, "A plain string scene", got.SuggestedIllustrations[2].Prompt())
}

func TestNormalize_ConcurrentUse(t *testing.T) {
	n := newDefault()
	raw := "{\"title\": \"T\", \"content\": \"a\nb\", \"moralLesson\": \"M\", \"suggestedIllustrations\": [\"x\"]}"

	done := make(chan error, 16)
	for i := 0; i < 16; i++ {
		go func() {
			_, err := n.Normalize(raw)
			done <- err
		}()
	}
	for i := 0; i < 16; i++ {
		assert.NoError(t, <-done)
	}
}

// escapeLegacyBody escapes the raw newline so only key casing differs.
func escapeLegacyBody(s string) string {
	return normalizer.Repair(s, "Content")
}
