// Package prompts loads the prompt catalogue: the system prompt, the user
// prompt templates and the call-site profiles that tell the normalizer which
// keys each prompt asked for.
package prompts

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/template"

	"github.com/pelletier/go-toml/v2"

	"storybook-server/internal/models"
	"storybook-server/internal/normalizer"
)

//go:embed default.toml
var defaultCatalog []byte

// ProfileConfig is one [profiles.<name>] table.
type ProfileConfig struct {
	Template                string                  `toml:"template"`
	Format                  string                  `toml:"format"`
	Fields                  normalizer.FieldMapping `toml:"fields"`
	Required                []string                `toml:"required"`
	AllowEmptyIllustrations bool                    `toml:"allow_empty_illustrations"`
}

// Catalog is a parsed prompt catalogue. Safe for concurrent use once loaded.
type Catalog struct {
	System         string                   `toml:"system"`
	DefaultProfile string                   `toml:"default_profile"`
	Templates      map[string]string        `toml:"templates"`
	Profiles       map[string]ProfileConfig `toml:"profiles"`

	tmpl *template.Template
}

// Load reads the catalogue at path, or the embedded default when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Parse(defaultCatalog)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a TOML catalogue.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("failed to decode prompts catalogue: %w", err)
	}

	if strings.TrimSpace(c.System) == "" {
		return nil, fmt.Errorf("prompts catalogue: system prompt is empty")
	}
	if len(c.Profiles) == 0 {
		return nil, fmt.Errorf("prompts catalogue: no profiles defined")
	}

	root := template.New("prompts").Option("missingkey=error")
	for _, name := range sortedKeys(c.Templates) {
		if _, err := root.New(name).Parse(c.Templates[name]); err != nil {
			return nil, fmt.Errorf("prompts catalogue: template %q: %w", name, err)
		}
	}
	c.tmpl = root

	for name, p := range c.Profiles {
		if root.Lookup(p.Template) == nil {
			return nil, fmt.Errorf("prompts catalogue: profile %q references unknown template %q", name, p.Template)
		}
		switch normalizer.Format(p.Format) {
		case normalizer.FormatJSON, normalizer.FormatSections, "":
		default:
			return nil, fmt.Errorf("prompts catalogue: profile %q has unknown format %q", name, p.Format)
		}
		for _, f := range p.Required {
			if !knownField(normalizer.Field(f)) {
				return nil, fmt.Errorf("prompts catalogue: profile %q requires unknown field %q", name, f)
			}
		}
	}
	if c.DefaultProfile == "" {
		c.DefaultProfile = "story"
	}
	if _, ok := c.Profiles[c.DefaultProfile]; !ok {
		return nil, fmt.Errorf("prompts catalogue: default profile %q is not defined", c.DefaultProfile)
	}

	return &c, nil
}

// Profile returns the normalizer profile for a call site.
func (c *Catalog) Profile(name string) (normalizer.Profile, error) {
	if name == "" {
		name = c.DefaultProfile
	}
	p, ok := c.Profiles[name]
	if !ok {
		return normalizer.Profile{}, fmt.Errorf("%w: unknown prompt profile %q", models.ErrInvalidInput, name)
	}

	fields := p.Fields
	if fields == (normalizer.FieldMapping{}) {
		fields = normalizer.CanonicalFields
	}
	required := make([]normalizer.Field, 0, len(p.Required))
	for _, f := range p.Required {
		required = append(required, normalizer.Field(f))
	}
	format := normalizer.Format(p.Format)
	if format == "" {
		format = normalizer.FormatJSON
	}

	return normalizer.Profile{
		Name:                    name,
		Format:                  format,
		Fields:                  fields,
		Required:                required,
		AllowEmptyIllustrations: p.AllowEmptyIllustrations,
	}, nil
}

// RenderUser renders the user prompt of a profile. Default params are applied.
func (c *Catalog) RenderUser(profileName string, params models.StoryParams) (string, error) {
	profile, err := c.Profile(profileName)
	if err != nil {
		return "", err
	}

	data := struct {
		Params models.StoryParams
		Fields normalizer.FieldMapping
	}{
		Params: params.WithDefaults(),
		Fields: profile.Fields,
	}

	var buf bytes.Buffer
	if err := c.tmpl.ExecuteTemplate(&buf, c.Profiles[profile.Name].Template, data); err != nil {
		return "", fmt.Errorf("failed to render prompt %q: %w", profile.Name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func knownField(f normalizer.Field) bool {
	for _, k := range normalizer.AllFields {
		if k == f {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
