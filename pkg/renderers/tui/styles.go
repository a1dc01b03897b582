package tui

import (
	"strconv"
	"strings"
	"sync"

	"github.com/goliatone/go-formflow/pkg/theme"
)

const (
	defaultQuestionFormat = "cyan+b"
	defaultErrorFormat    = "red"
)

// Styles projects the active form theme onto terminal colours. It implements
// theme.Sink, so an Applicator can push themes to it as they load.
type Styles struct {
	mu       sync.RWMutex
	question string
	err      string
	prefix   string
}

// NewStyles returns styles using the terminal defaults.
func NewStyles() *Styles {
	return &Styles{question: defaultQuestionFormat, err: defaultErrorFormat}
}

// ApplyTheme maps the theme's primary and error colours to the nearest ANSI
// colour names understood by survey.
func (s *Styles) ApplyTheme(active theme.Active) {
	question := ansiFormat(active.Config.Colors.Primary, defaultQuestionFormat)
	errColor := ansiFormat(active.Config.Colors.Error, defaultErrorFormat)

	s.mu.Lock()
	defer s.mu.Unlock()
	if question != defaultQuestionFormat {
		question += "+b"
	}
	s.question = question
	s.err = errColor
}

// SetInfoPrefix sets a prefix printed before informational messages.
func (s *Styles) SetInfoPrefix(prefix string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefix = prefix
}

func (s *Styles) current() (question, errColor string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.question, s.err
}

func (s *Styles) infoPrefix() string {
	if s == nil {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefix
}

var ansiPalette = []struct {
	name    string
	r, g, b int
}{
	{"red", 205, 49, 49},
	{"green", 13, 188, 121},
	{"yellow", 229, 229, 16},
	{"blue", 36, 114, 200},
	{"magenta", 188, 63, 188},
	{"cyan", 17, 168, 205},
}

// ansiFormat returns the palette colour closest to a #rgb or #rrggbb value,
// or fallback when the value does not parse.
func ansiFormat(hex, fallback string) string {
	r, g, b, ok := parseHex(hex)
	if !ok {
		return fallback
	}
	best, bestDist := fallback, -1
	for _, c := range ansiPalette {
		dr, dg, db := r-c.r, g-c.g, b-c.b
		dist := dr*dr + dg*dg + db*db
		if bestDist < 0 || dist < bestDist {
			best, bestDist = c.name, dist
		}
	}
	return best
}

func parseHex(raw string) (int, int, int, bool) {
	value := strings.TrimPrefix(strings.TrimSpace(raw), "#")
	if len(value) == 3 {
		value = string([]byte{value[0], value[0], value[1], value[1], value[2], value[2]})
	}
	if len(value) != 6 {
		return 0, 0, 0, false
	}
	n, err := strconv.ParseUint(value, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return int(n >> 16 & 0xff), int(n >> 8 & 0xff), int(n & 0xff), true
}
