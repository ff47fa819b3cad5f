package preview

import (
	"fmt"
	"sort"
	"strings"

	theme "github.com/goliatone/go-theme"
)

// Theme carries the resolved styling for a rendered preview: design
// tokens flattened into CSS custom properties plus an asset resolver.
type Theme struct {
	Name     string
	Variant  string
	Tokens   map[string]string
	CSSVars  map[string]string
	AssetURL func(key string) string
}

// ThemeFromSelection flattens a go-theme selection into renderer
// configuration. Variant tokens and asset files override the base
// manifest; every token becomes a --token CSS variable.
func ThemeFromSelection(selection *theme.Selection) *Theme {
	if selection == nil || selection.Manifest == nil {
		return nil
	}
	manifest := selection.Manifest

	tokens := make(map[string]string, len(manifest.Tokens))
	for key, value := range manifest.Tokens {
		tokens[key] = value
	}
	assets := make(map[string]string, len(manifest.Assets.Files))
	for key, file := range manifest.Assets.Files {
		assets[key] = file
	}
	if variant, ok := manifest.Variants[selection.Variant]; ok {
		for key, value := range variant.Tokens {
			tokens[key] = value
		}
		for key, file := range variant.Assets.Files {
			assets[key] = file
		}
	}

	vars := make(map[string]string, len(tokens))
	for key, value := range tokens {
		vars["--"+key] = value
	}

	prefix := strings.TrimRight(manifest.Assets.Prefix, "/")
	return &Theme{
		Name:    selection.Theme,
		Variant: selection.Variant,
		Tokens:  tokens,
		CSSVars: vars,
		AssetURL: func(key string) string {
			file, ok := assets[key]
			if !ok {
				return ""
			}
			if prefix == "" {
				return file
			}
			return prefix + "/" + file
		},
	}
}

// StyleAttr renders the CSS variables as an inline style attribute
// value, sorted for stable output.
func (t *Theme) StyleAttr() string {
	if t == nil || len(t.CSSVars) == 0 {
		return ""
	}
	keys := make([]string, 0, len(t.CSSVars))
	for key := range t.CSSVars {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, key := range keys {
		fmt.Fprintf(&b, "%s: %s; ", key, t.CSSVars[key])
	}
	return strings.TrimSpace(b.String())
}

// Stylesheet returns the resolved stylesheet URL, or "" when the theme
// does not ship one.
func (t *Theme) Stylesheet() string {
	if t == nil || t.AssetURL == nil {
		return ""
	}
	return t.AssetURL("preview.stylesheet")
}
