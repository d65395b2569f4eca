// Package theme holds the cosmetic theme cycled by the user.
package theme

import (
	"fmt"
	"strings"
)

// Theme is one of the fixed connector themes.
type Theme string

const (
	Light Theme = "light"
	Dark  Theme = "dark"
	Venom Theme = "venom"
)

// All lists the themes in toggle order.
var All = []Theme{Light, Dark, Venom}

// Default is the theme a fresh connector starts with.
const Default = Light

// Next returns the theme that follows t. Unknown themes restart the cycle.
func (t Theme) Next() Theme {
	for i, candidate := range All {
		if candidate == t {
			return All[(i+1)%len(All)]
		}
	}
	return Light
}

// Valid reports whether t is one of All.
func (t Theme) Valid() bool {
	for _, candidate := range All {
		if candidate == t {
			return true
		}
	}
	return false
}

func (t Theme) String() string { return string(t) }

// Parse reads a theme name case-insensitively. An empty name yields Default.
func Parse(s string) (Theme, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Default, nil
	}
	t := Theme(s)
	if !t.Valid() {
		return Default, fmt.Errorf("unknown theme %q", s)
	}
	return t, nil
}
