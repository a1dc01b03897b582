package model

// ThemeColors is the named colour palette.
type ThemeColors struct {
	Primary    string `json:"primary,omitempty" yaml:"primary,omitempty"`
	Secondary  string `json:"secondary,omitempty" yaml:"secondary,omitempty"`
	Background string `json:"background,omitempty" yaml:"background,omitempty"`
	Surface    string `json:"surface,omitempty" yaml:"surface,omitempty"`
	Text       string `json:"text,omitempty" yaml:"text,omitempty"`
	TextMuted  string `json:"textMuted,omitempty" yaml:"textMuted,omitempty"`
	Border     string `json:"border,omitempty" yaml:"border,omitempty"`
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`
	Success    string `json:"success,omitempty" yaml:"success,omitempty"`
}

// ThemeTypography names the font roles.
type ThemeTypography struct {
	FontFamily    string `json:"fontFamily,omitempty" yaml:"fontFamily,omitempty"`
	HeadingFamily string `json:"headingFamily,omitempty" yaml:"headingFamily,omitempty"`
	BaseSize      string `json:"baseSize,omitempty" yaml:"baseSize,omitempty"`
	HeadingSize   string `json:"headingSize,omitempty" yaml:"headingSize,omitempty"`
	LineHeight    string `json:"lineHeight,omitempty" yaml:"lineHeight,omitempty"`
	NormalWeight  string `json:"normalWeight,omitempty" yaml:"normalWeight,omitempty"`
	BoldWeight    string `json:"boldWeight,omitempty" yaml:"boldWeight,omitempty"`
}

// ThemeSpacing is the spacing scale.
type ThemeSpacing struct {
	XS string `json:"xs,omitempty" yaml:"xs,omitempty"`
	SM string `json:"sm,omitempty" yaml:"sm,omitempty"`
	MD string `json:"md,omitempty" yaml:"md,omitempty"`
	LG string `json:"lg,omitempty" yaml:"lg,omitempty"`
	XL string `json:"xl,omitempty" yaml:"xl,omitempty"`
}

// ThemeRadius lists border radius variants.
type ThemeRadius struct {
	SM   string `json:"sm,omitempty" yaml:"sm,omitempty"`
	MD   string `json:"md,omitempty" yaml:"md,omitempty"`
	LG   string `json:"lg,omitempty" yaml:"lg,omitempty"`
	Full string `json:"full,omitempty" yaml:"full,omitempty"`
}

// ThemeShadows lists shadow variants.
type ThemeShadows struct {
	SM string `json:"sm,omitempty" yaml:"sm,omitempty"`
	MD string `json:"md,omitempty" yaml:"md,omitempty"`
	LG string `json:"lg,omitempty" yaml:"lg,omitempty"`
}

// ThemeConfig is a named bundle of presentation values for a form. Payloads
// from the API may be partial; empty strings mean "not supplied".
type ThemeConfig struct {
	Colors       ThemeColors     `json:"colors" yaml:"colors"`
	Typography   ThemeTypography `json:"typography" yaml:"typography"`
	Spacing      ThemeSpacing    `json:"spacing" yaml:"spacing"`
	BorderRadius ThemeRadius     `json:"borderRadius" yaml:"borderRadius"`
	Shadows      ThemeShadows    `json:"shadows" yaml:"shadows"`
	LogoURL      string          `json:"logoUrl,omitempty" yaml:"logoUrl,omitempty"`
	CustomCSS    string          `json:"customCss,omitempty" yaml:"customCss,omitempty"`
}
