package theme

import (
	"sort"
	"strings"

	gotheme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-formflow/pkg/model"
)

// LogoAsset is the asset key resolving to the theme logo.
const LogoAsset = "logo"

// Tokens projects cfg into a go-theme renderer configuration. Tokens are
// keyed by name ("color-primary") and CSS variables by custom property
// ("--color-primary").
func Tokens(name string, cfg model.ThemeConfig) *gotheme.RendererConfig {
	list := fields(&cfg)
	tokens := make(map[string]string, len(list))
	vars := make(map[string]string, len(list))
	for _, f := range list {
		value := strings.TrimSpace(*f.value)
		if value == "" {
			continue
		}
		tokens[f.token] = value
		vars["--"+f.token] = value
	}

	logo := cfg.LogoURL
	return &gotheme.RendererConfig{
		Theme:   name,
		Variant: "default",
		Tokens:  tokens,
		CSSVars: vars,
		AssetURL: func(key string) string {
			if key == LogoAsset {
				return logo
			}
			return ""
		},
	}
}

// Stylesheet renders the CSS custom properties as a :root block followed by
// the theme's custom CSS. Declarations whose value could escape the block are
// dropped.
func Stylesheet(rc *gotheme.RendererConfig, customCSS string) string {
	var b strings.Builder
	if rc != nil && len(rc.CSSVars) > 0 {
		keys := make([]string, 0, len(rc.CSSVars))
		for key := range rc.CSSVars {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		b.WriteString(":root {\n")
		for _, key := range keys {
			value := rc.CSSVars[key]
			if strings.ContainsAny(value, "{};<>") {
				continue
			}
			b.WriteString("  ")
			b.WriteString(key)
			b.WriteString(": ")
			b.WriteString(value)
			b.WriteString(";\n")
		}
		b.WriteString("}\n")
	}
	if css := strings.TrimSpace(customCSS); css != "" {
		b.WriteString(css)
		b.WriteString("\n")
	}
	return b.String()
}
