package theme

import (
	"strings"

	"github.com/goliatone/go-formflow/pkg/model"
)

// Default returns the built-in theme. Every field is populated except the
// optional logo and custom CSS.
func Default() model.ThemeConfig {
	return model.ThemeConfig{
		Colors: model.ThemeColors{
			Primary:    "#2563eb",
			Secondary:  "#7c3aed",
			Background: "#ffffff",
			Surface:    "#f8fafc",
			Text:       "#0f172a",
			TextMuted:  "#64748b",
			Border:     "#e2e8f0",
			Error:      "#dc2626",
			Success:    "#16a34a",
		},
		Typography: model.ThemeTypography{
			FontFamily:    "Inter, system-ui, sans-serif",
			HeadingFamily: "Inter, system-ui, sans-serif",
			BaseSize:      "16px",
			HeadingSize:   "28px",
			LineHeight:    "1.5",
			NormalWeight:  "400",
			BoldWeight:    "600",
		},
		Spacing: model.ThemeSpacing{
			XS: "4px",
			SM: "8px",
			MD: "16px",
			LG: "24px",
			XL: "40px",
		},
		BorderRadius: model.ThemeRadius{
			SM:   "4px",
			MD:   "8px",
			LG:   "12px",
			Full: "9999px",
		},
		Shadows: model.ThemeShadows{
			SM: "0 1px 2px rgba(0, 0, 0, 0.05)",
			MD: "0 4px 6px rgba(0, 0, 0, 0.1)",
			LG: "0 10px 15px rgba(0, 0, 0, 0.1)",
		},
	}
}

// Merge overlays partial on base field by field. A field in partial wins only
// when it is non-blank, so a partial payload never clears a base value.
func Merge(base, partial model.ThemeConfig) model.ThemeConfig {
	out := base
	dst := fields(&out)
	src := fields(&partial)
	for i := range dst {
		if value := strings.TrimSpace(*src[i].value); value != "" {
			*dst[i].value = value
		}
	}
	if logo := strings.TrimSpace(partial.LogoURL); logo != "" {
		out.LogoURL = logo
	}
	if css := strings.TrimSpace(partial.CustomCSS); css != "" {
		out.CustomCSS = css
	}
	return out
}

// field names one style value of a ThemeConfig by its token name.
type field struct {
	token string
	value *string
}

// fields lists every required style value in a stable order.
func fields(cfg *model.ThemeConfig) []field {
	return []field{
		{"color-primary", &cfg.Colors.Primary},
		{"color-secondary", &cfg.Colors.Secondary},
		{"color-background", &cfg.Colors.Background},
		{"color-surface", &cfg.Colors.Surface},
		{"color-text", &cfg.Colors.Text},
		{"color-text-muted", &cfg.Colors.TextMuted},
		{"color-border", &cfg.Colors.Border},
		{"color-error", &cfg.Colors.Error},
		{"color-success", &cfg.Colors.Success},
		{"font-family", &cfg.Typography.FontFamily},
		{"font-family-heading", &cfg.Typography.HeadingFamily},
		{"font-size-base", &cfg.Typography.BaseSize},
		{"font-size-heading", &cfg.Typography.HeadingSize},
		{"line-height", &cfg.Typography.LineHeight},
		{"font-weight-normal", &cfg.Typography.NormalWeight},
		{"font-weight-bold", &cfg.Typography.BoldWeight},
		{"spacing-xs", &cfg.Spacing.XS},
		{"spacing-sm", &cfg.Spacing.SM},
		{"spacing-md", &cfg.Spacing.MD},
		{"spacing-lg", &cfg.Spacing.LG},
		{"spacing-xl", &cfg.Spacing.XL},
		{"radius-sm", &cfg.BorderRadius.SM},
		{"radius-md", &cfg.BorderRadius.MD},
		{"radius-lg", &cfg.BorderRadius.LG},
		{"radius-full", &cfg.BorderRadius.Full},
		{"shadow-sm", &cfg.Shadows.SM},
		{"shadow-md", &cfg.Shadows.MD},
		{"shadow-lg", &cfg.Shadows.LG},
	}
}

// MissingFields returns the token names of blank required values.
func MissingFields(cfg model.ThemeConfig) []string {
	var missing []string
	for _, f := range fields(&cfg) {
		if strings.TrimSpace(*f.value) == "" {
			missing = append(missing, f.token)
		}
	}
	return missing
}
