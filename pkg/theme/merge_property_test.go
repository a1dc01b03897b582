package theme_test

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/theme"
)

func genPartialTheme() gopter.Gen {
	value := gen.OneGenOf(gen.Const(""), gen.Const("  "), gen.AlphaString())
	return gopter.CombineGens(
		value, value, value, value, value, value,
	).Map(func(values []any) model.ThemeConfig {
		return model.ThemeConfig{
			Colors: model.ThemeColors{
				Primary: values[0].(string),
				Text:    values[1].(string),
			},
			Typography: model.ThemeTypography{FontFamily: values[2].(string)},
			Spacing:    model.ThemeSpacing{MD: values[3].(string)},
			BorderRadius: model.ThemeRadius{
				Full: values[4].(string),
			},
			Shadows: model.ThemeShadows{LG: values[5].(string)},
		}
	})
}

func TestMergedThemeHasNoEmptyField(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200
	properties := gopter.NewProperties(params)

	properties.Property("merge over default never yields blank fields", prop.ForAll(
		func(partial model.ThemeConfig) bool {
			return len(theme.MissingFields(theme.Merge(theme.Default(), partial))) == 0
		},
		genPartialTheme(),
	))

	properties.Property("supplied values win", prop.ForAll(
		func(partial model.ThemeConfig) bool {
			merged := theme.Merge(theme.Default(), partial)
			if partial.Colors.Primary != "" && partial.Colors.Primary != "  " {
				return merged.Colors.Primary == partial.Colors.Primary
			}
			return merged.Colors.Primary == theme.Default().Colors.Primary
		},
		genPartialTheme(),
	))

	properties.TestingRun(t)
}
