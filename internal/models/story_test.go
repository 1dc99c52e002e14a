package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIllustrationUnmarshal(t *testing.T) {
	var ills []Illustration
	raw := `["  a fox in the snow ", {"title":"Dawn","description":"sun rises"}, {"scene":"Night","prompt":"stars"}, {"Description":"only desc"}]`
	require.NoError(t, json.Unmarshal([]byte(raw), &ills))
	require.Len(t, ills, 4)

	assert.Equal(t, Illustration{Description: "a fox in the snow"}, ills[0])
	assert.Equal(t, "Dawn: sun rises", ills[1].Prompt())
	assert.Equal(t, Illustration{Title: "Night", Description: "stars"}, ills[2])
	assert.Equal(t, "only desc", ills[3].Prompt())
	assert.Equal(t, "T", Illustration{Title: "T"}.Prompt())

	var bad Illustration
	assert.Error(t, json.Unmarshal([]byte(`42`), &bad))
	assert.Error(t, json.Unmarshal([]byte(`null`), &bad))
	assert.Error(t, json.Unmarshal([]byte(`{"x":1}`), &bad))
	assert.Error(t, json.Unmarshal([]byte(`"  "`), &bad))
	assert.Error(t, json.Unmarshal([]byte(`["a", null]`), &ills))
}

func TestStoryParamsDefaultsAndValidate(t *testing.T) {
	p := StoryParams{StoryAbout: "fox", Settings: "forest", AgeRange: "3-5", Tone: "Silly"}.WithDefaults()
	assert.Equal(t, DefaultLanguage, p.Language)
	assert.Equal(t, DefaultGenre, p.Genre)
	assert.Equal(t, "Silly", p.Tone)
	assert.Equal(t, DefaultLength, p.Length)
	assert.NoError(t, p.Validate())

	err := StoryParams{StoryAbout: " "}.Validate()
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "storyAbout, settings, ageRange")
}

func TestGenerationLifecycle(t *testing.T) {
	g := NewGeneration("u1", StoryParams{StoryAbout: "fox"})
	assert.True(t, g.Loading())

	g.Succeed(&StoryRecord{Title: "Fox"}, g.StartedAt)
	assert.False(t, g.Loading())
	assert.Equal(t, GenerationStatusSucceeded, g.Status)

	g.Fail(ErrInvalidInput, g.StartedAt)
	assert.Equal(t, GenerationStatusFailed, g.Status)
	assert.Nil(t, g.Story)
	assert.ErrorIs(t, g.Err, ErrInvalidInput)
}
