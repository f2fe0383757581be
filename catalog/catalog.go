package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"livescore-client/models"
)

// Catalog is the read-only list of matches the viewer can follow.
type Catalog struct {
	Matches []models.Match `yaml:"matches"`
}

// Default returns the built-in fixtures.
func Default() *Catalog {
	return &Catalog{Matches: []models.Match{
		{ID: "1", HomeTeam: "Argentina", AwayTeam: "Brasil", HomeFlag: "🇦🇷", AwayFlag: "🇧🇷", Stadium: "Estadio Azteca", Status: "scheduled"},
		{ID: "2", HomeTeam: "Perú", AwayTeam: "Argentina", HomeFlag: "🇵🇪", AwayFlag: "🇦🇷", Stadium: "MetLife Stadium", Status: "live"},
		{ID: "3", HomeTeam: "Brasil", AwayTeam: "Francia", HomeFlag: "🇧🇷", AwayFlag: "🇫🇷", Stadium: "SoFi Stadium", Status: "scheduled"},
		{ID: "4", HomeTeam: "España", AwayTeam: "Alemania", HomeFlag: "🇪🇸", AwayFlag: "🇩🇪", Stadium: "AT&T Stadium", Status: "scheduled"},
		{ID: "5", HomeTeam: "Inglaterra", AwayTeam: "México", HomeFlag: "🏴󠁧󠁢󠁥󠁮󠁧󠁿", AwayFlag: "🇲🇽", Stadium: "Mercedes-Benz Stadium", Status: "scheduled"},
	}}
}

// Load reads a YAML catalog. An empty path yields the default catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog document.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	seen := make(map[string]bool, len(c.Matches))
	for i, m := range c.Matches {
		if m.ID == "" {
			return nil, fmt.Errorf("catalog entry %d has no id", i)
		}
		if seen[m.ID] {
			return nil, fmt.Errorf("duplicate catalog id %q", m.ID)
		}
		seen[m.ID] = true
	}
	return &c, nil
}

// Find returns the match with the given id.
func (c *Catalog) Find(id string) (models.Match, bool) {
	for _, m := range c.Matches {
		if m.ID == id {
			return m, true
		}
	}
	return models.Match{}, false
}
