package themecard

import (
	"strings"

	"venom-connect-tui/session"
	"venom-connect-tui/styles"
	"venom-connect-tui/theme"
)

// Render renders the theme control card. The switch hint only appears once
// a connector exists.
func Render(st styles.Styles, snap session.Snapshot, width int) string {
	icon := "☀"
	if snap.Theme == theme.Dark {
		icon = "☾"
	}

	lines := []string{
		st.Title.Render(icon + " Theme Control"),
		"",
		st.Badge.Render(strings.ToUpper(snap.Theme.String())),
	}
	if snap.CanToggleTheme() {
		lines = append(lines, "", st.Hotkey.Render("SWITCH THEME ")+st.Key("t"))
	}

	return st.Panel.Width(width).Render(strings.Join(lines, "\n"))
}
