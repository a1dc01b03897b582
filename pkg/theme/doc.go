// Package theme resolves the presentation settings of a form. Remote themes
// are partial and are merged field by field over a complete default, cached
// with a TTL and projected into go-theme renderer tokens and a CSS custom
// property stylesheet.
package theme
