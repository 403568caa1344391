// Package themes normalizes free-form theme tags from the extraction
// collaborator onto the fixed analytic category set.
package themes

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/jinzhu/inflection"
	"gopkg.in/yaml.v3"

	"github.com/venezuelawatch/entity-engine/pkg/matching"
	"github.com/venezuelawatch/entity-engine/pkg/models"
)

//go:embed taxonomy.yaml
var taxonomyYAML []byte

type taxonomyFile struct {
	Categories map[string][]string `yaml:"categories"`
}

// Normalizer maps free-form tags to theme categories via the keyword
// taxonomy. Lookup order: whole tag, singularized whole tag, then token by
// token. Anything unmapped becomes ThemeOther.
type Normalizer struct {
	keywords map[string]models.ThemeCategory
}

// NewNormalizer builds a Normalizer from the embedded taxonomy.
func NewNormalizer() (*Normalizer, error) {
	return newNormalizerFromYAML(taxonomyYAML)
}

func newNormalizerFromYAML(raw []byte) (*Normalizer, error) {
	var file taxonomyFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse theme taxonomy: %w", err)
	}

	keywords := make(map[string]models.ThemeCategory)
	for name, words := range file.Categories {
		category, ok := models.ParseThemeCategory(name)
		if !ok {
			return nil, fmt.Errorf("theme taxonomy names unknown category %q", name)
		}
		for _, word := range words {
			folded := matching.Normalize(word)
			if folded == "" {
				continue
			}
			keywords[folded] = category
			keywords[singularize(folded)] = category
		}
	}

	if len(keywords) == 0 {
		return nil, fmt.Errorf("theme taxonomy is empty")
	}

	return &Normalizer{keywords: keywords}, nil
}

// Normalize maps one free-form tag onto a category.
func (n *Normalizer) Normalize(tag string) models.ThemeCategory {
	folded := matching.Normalize(tag)
	if folded == "" {
		return models.ThemeOther
	}

	// Tags that already name a category pass straight through.
	if category, ok := models.ParseThemeCategory(folded); ok {
		return category
	}

	if category, ok := n.keywords[folded]; ok {
		return category
	}
	if category, ok := n.keywords[singularize(folded)]; ok {
		return category
	}

	for _, token := range matching.Tokens(folded) {
		if category, ok := n.keywords[token]; ok {
			return category
		}
		if category, ok := n.keywords[singularize(token)]; ok {
			return category
		}
	}

	return models.ThemeOther
}

// NormalizeAll maps a tag list onto categories, deduplicating while keeping
// first-seen order. An empty input yields an empty slice.
func (n *Normalizer) NormalizeAll(tags []string) []models.ThemeCategory {
	if len(tags) == 0 {
		return nil
	}

	seen := make(map[models.ThemeCategory]bool, len(models.ValidThemeCategories))
	out := make([]models.ThemeCategory, 0, len(tags))
	for _, tag := range tags {
		category := n.Normalize(tag)
		if !seen[category] {
			seen[category] = true
			out = append(out, category)
		}
	}
	return out
}

// singularize applies inflection per token so multi-word keywords like
// "asset freezes" fold to "asset freeze".
func singularize(folded string) string {
	tokens := matching.Tokens(folded)
	for i, tok := range tokens {
		tokens[i] = inflection.Singular(tok)
	}
	return strings.Join(tokens, " ")
}
