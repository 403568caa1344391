package models

// ThemeCategory is one of the fixed analytic categories events are tagged
// with. Free-form tags from the extraction collaborator are normalized into
// this set; anything unmappable lands in ThemeOther.
type ThemeCategory string

const (
	ThemeSanctions   ThemeCategory = "sanctions"
	ThemeTrade       ThemeCategory = "trade"
	ThemePolitical   ThemeCategory = "political"
	ThemeAdversarial ThemeCategory = "adversarial"
	ThemeEnergy      ThemeCategory = "energy"
	ThemeOther       ThemeCategory = "other"
)

// ValidThemeCategories contains all valid theme category values.
var ValidThemeCategories = []ThemeCategory{
	ThemeSanctions,
	ThemeTrade,
	ThemePolitical,
	ThemeAdversarial,
	ThemeEnergy,
	ThemeOther,
}

// IsValidThemeCategory checks if the given category is valid.
func IsValidThemeCategory(c ThemeCategory) bool {
	for _, v := range ValidThemeCategories {
		if v == c {
			return true
		}
	}
	return false
}

// ParseThemeCategory converts a string into a ThemeCategory. It returns
// false when the string names no known category.
func ParseThemeCategory(s string) (ThemeCategory, bool) {
	c := ThemeCategory(s)
	if IsValidThemeCategory(c) {
		return c, true
	}
	return "", false
}
