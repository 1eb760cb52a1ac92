// Package classify turns image-analysis hints into a ClassificationResult
// using fixed, priority-ordered keyword rules. The first matching rule wins.
package classify

import (
	"strings"

	"github.com/kiranshivaraju/scenegen/pkg/models"
)

const (
	DefaultFurnitureType = "furniture piece"
	DefaultStyle         = "traditional"
	DefaultMaterial      = "wood"
	DefaultColor         = "medium wood"
)

// Hints is the ordered, lower-cased token list fed to the rules. Rules use two
// kinds of checks: Has for exact membership and Any for a substring match
// within a single hint.
type Hints []string

// BuildHints assembles hints from analysis output and an optional product page URL.
// Labels, object names and web entities are lower-cased as-is; the URL is
// lower-cased, '-' and '/' become spaces, and the result is split on whitespace.
func BuildHints(labels, objects, webEntities []string, contextURL string) Hints {
	hints := make(Hints, 0, len(labels)+len(objects)+len(webEntities))
	for _, group := range [][]string{labels, objects, webEntities} {
		for _, s := range group {
			if s == "" {
				continue
			}
			hints = append(hints, strings.ToLower(s))
		}
	}
	if contextURL != "" {
		u := strings.ToLower(contextURL)
		u = strings.NewReplacer("-", " ", "/", " ").Replace(u)
		hints = append(hints, strings.Fields(u)...)
	}
	return hints
}

// Has reports whether any of words is an exact member of the hints.
func (h Hints) Has(words ...string) bool {
	for _, hint := range h {
		for _, w := range words {
			if hint == w {
				return true
			}
		}
	}
	return false
}

// Any reports whether some single hint satisfies match.
func (h Hints) Any(match func(hint string) bool) bool {
	for _, hint := range h {
		if match(hint) {
			return true
		}
	}
	return false
}

func contains(sub string) func(string) bool {
	return func(hint string) bool { return strings.Contains(hint, sub) }
}

// Classify derives type, style and material from hints. ColorDesc is set to
// DefaultColor; callers with a dominant colour overwrite it via ColorDescription.
// Never fails: an empty hint set yields the defaults.
func Classify(hints Hints) models.ClassificationResult {
	furnitureType, subType := DetectFurnitureType(hints)
	labels := make([]string, len(hints))
	copy(labels, hints)
	return models.ClassificationResult{
		FurnitureType: furnitureType,
		SubType:       subType,
		Style:         DetectStyle(hints),
		Material:      DetectMaterial(hints),
		ColorDesc:     DefaultColor,
		Labels:        labels,
	}
}

// DetectFurnitureType returns the furniture type and an optional sub-type.
func DetectFurnitureType(hints Hints) (string, string) {
	switch {
	case hints.Any(contains("clock")):
		switch {
		case hints.Has("grandfather", "floor"):
			return "grandfather clock", "floor clock"
		case hints.Has("wall"):
			return "wall clock", ""
		case hints.Has("mantel", "mantle"):
			return "mantel clock", ""
		case hints.Has("table"):
			return "table clock", ""
		default:
			return "clock", ""
		}

	case hints.Has("curio"):
		return "curio cabinet", "display cabinet"

	case hints.Any(func(h string) bool {
		return strings.Contains(h, "wine") &&
			(strings.Contains(h, "bar") || strings.Contains(h, "cabinet") || strings.Contains(h, "rack"))
	}):
		return "wine cabinet", "wine bar"

	case hints.Any(func(h string) bool {
		return strings.Contains(h, "bar") && (strings.Contains(h, "cabinet") || strings.Contains(h, "cart"))
	}):
		if hints.Has("cart") {
			return "bar cabinet", "bar cart"
		}
		return "bar cabinet", ""

	case hints.Has("console"):
		return "console cabinet", ""

	case hints.Any(func(h string) bool {
		return strings.Contains(h, "display") && strings.Contains(h, "cabinet")
	}):
		return "display cabinet", ""

	case hints.Has("cabinet"):
		return "cabinet", ""

	case hints.Has("bookcase", "bookshelf"):
		return "bookcase", ""

	case hints.Has("chest"):
		return "chest", ""
	}

	return DefaultFurnitureType, ""
}

var styleRules = []struct {
	words []string
	style string
}{
	{[]string{"modern", "contemporary"}, "modern"},
	{[]string{"rustic", "farmhouse"}, "rustic"},
	{[]string{"industrial"}, "industrial"},
	{[]string{"transitional"}, "transitional"},
	{[]string{"vintage", "antique"}, "vintage"},
	{[]string{"elegant", "formal"}, "elegant traditional"},
	{[]string{"traditional", "classic"}, "traditional"},
}

// DetectStyle returns the first style whose synonym group appears in hints.
func DetectStyle(hints Hints) string {
	for _, r := range styleRules {
		if hints.Has(r.words...) {
			return r.style
		}
	}
	return DefaultStyle
}

var materialRules = []struct {
	words    []string
	material string
}{
	{[]string{"cherry"}, "cherry wood"},
	{[]string{"oak"}, "oak wood"},
	{[]string{"mahogany"}, "mahogany wood"},
	{[]string{"walnut"}, "walnut wood"},
	{[]string{"wood", "wooden"}, "wood"},
	{[]string{"metal"}, "metal and wood"},
	{[]string{"glass"}, "wood with glass"},
}

// DetectMaterial checks wood species before generic wood, then metal, then glass.
func DetectMaterial(hints Hints) string {
	for _, r := range materialRules {
		if hints.Has(r.words...) {
			return r.material
		}
	}
	return DefaultMaterial
}

// ColorDescription maps a dominant RGB colour to a description.
// Thresholds and their order are fixed.
func ColorDescription(r, g, b float64) string {
	switch {
	case r < 50 && g < 50 && b < 50:
		return "dark"
	case r > 200 && g > 200 && b > 200:
		return "light"
	case r > 150 && g < 100 && b < 100:
		return "warm wood"
	case r > 100 && g > 80 && b < 70:
		return "rich wood"
	default:
		return DefaultColor
	}
}
