package picker

import (
	"strings"

	"github.com/charmbracelet/huh"

	"venom-connect-tui/registry"
	"venom-connect-tui/styles"
	"venom-connect-tui/theme"
)

// TempSelection stores the provider picked in the form
var TempSelection string

// FormTheme maps a connector theme to a huh theme
func FormTheme(t theme.Theme) *huh.Theme {
	switch t {
	case theme.Dark:
		return huh.ThemeDracula()
	case theme.Venom:
		return huh.ThemeCatppuccin()
	default:
		return huh.ThemeCharm()
	}
}

// OptionLabel renders a provider with its channels
func OptionLabel(d registry.Descriptor) string {
	channels := make([]string, 0, len(d.Channels))
	for _, c := range d.Channels {
		channels = append(channels, string(c))
	}
	return d.DisplayName + "  (" + strings.Join(channels, ", ") + ")"
}

// CreateForm creates the provider selection form
func CreateForm(providers []registry.Descriptor, t theme.Theme, preferred string) *huh.Form {
	TempSelection = preferred

	options := make([]huh.Option[string], 0, len(providers))
	for _, d := range providers {
		options = append(options, huh.NewOption(OptionLabel(d), d.ID))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Options(options...).
				Title("Connect Wallet").
				Description("Choose your preferred connection method").
				Value(&TempSelection),
		),
	).WithTheme(FormTheme(t))

	form.Init()
	return form
}

// Render renders the picker view
func Render(form *huh.Form) string {
	if form != nil {
		return form.View()
	}
	return "Loading providers..."
}

// Nav returns the navigation bar for the picker
func Nav(st styles.Styles, width int) string {
	left := strings.Join([]string{
		st.Key("↑/↓") + " select",
		st.Key("Enter") + " connect",
		st.Key("Esc") + " cancel",
	}, "   ")

	return st.Nav.Width(width).Render(left)
}
