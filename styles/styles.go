package styles

import (
	"github.com/charmbracelet/lipgloss"

	"venom-connect-tui/theme"
)

// Palette is the set of colors one theme renders with
type Palette struct {
	Bg      lipgloss.Color
	Panel   lipgloss.Color
	Border  lipgloss.Color
	Muted   lipgloss.Color
	Text    lipgloss.Color
	Accent  lipgloss.Color
	Accent2 lipgloss.Color
	Warn    lipgloss.Color
	Error   lipgloss.Color
	// FadeFrom and FadeTo bound the title gradient
	FadeFrom string
	FadeTo   string
}

var palettes = map[theme.Theme]Palette{
	theme.Light: {
		Bg:       lipgloss.Color("#F6F8FA"),
		Panel:    lipgloss.Color("#FFFFFF"),
		Border:   lipgloss.Color("#11A97D"),
		Muted:    lipgloss.Color("#57606A"),
		Text:     lipgloss.Color("#1F2328"),
		Accent:   lipgloss.Color("#11A97D"),
		Accent2:  lipgloss.Color("#0969DA"),
		Warn:     lipgloss.Color("#BC4C00"),
		Error:    lipgloss.Color("#CF222E"),
		FadeFrom: "#11A97D",
		FadeTo:   "#0969DA",
	},
	theme.Dark: {
		Bg:       lipgloss.Color("#0B0F14"), // near-black
		Panel:    lipgloss.Color("#0F1720"),
		Border:   lipgloss.Color("#874BFD"),
		Muted:    lipgloss.Color("#8AA0B6"),
		Text:     lipgloss.Color("#D6E2F0"),
		Accent:   lipgloss.Color("#7EE787"),
		Accent2:  lipgloss.Color("#79C0FF"),
		Warn:     lipgloss.Color("#FFA657"),
		Error:    lipgloss.Color("#FF7B72"),
		FadeFrom: "#874BFD",
		FadeTo:   "#79C0FF",
	},
	theme.Venom: {
		Bg:       lipgloss.Color("#050B2E"),
		Panel:    lipgloss.Color("#0B1140"),
		Border:   lipgloss.Color("#11A97D"),
		Muted:    lipgloss.Color("#8E97C8"),
		Text:     lipgloss.Color("#C5E4F3"),
		Accent:   lipgloss.Color("#11A97D"),
		Accent2:  lipgloss.Color("#C5E4F3"),
		Warn:     lipgloss.Color("#F5C06F"),
		Error:    lipgloss.Color("#FF6B81"),
		FadeFrom: "#11A97D",
		FadeTo:   "#C5E4F3",
	},
}

// For returns the palette of t, falling back to the default theme
func For(t theme.Theme) Palette {
	if p, ok := palettes[t]; ok {
		return p
	}
	return palettes[theme.Default]
}

// Styles are the shared lipgloss styles built from a palette
type Styles struct {
	Palette Palette

	App        lipgloss.Style
	Title      lipgloss.Style
	Panel      lipgloss.Style
	Nav        lipgloss.Style
	Hotkey     lipgloss.Style
	HotkeyKey  lipgloss.Style
	HelpRight  lipgloss.Style
	Label      lipgloss.Style
	Value      lipgloss.Style
	Muted      lipgloss.Style
	Warn       lipgloss.Style
	Error      lipgloss.Style
	Badge      lipgloss.Style
	BusyButton lipgloss.Style
}

// New builds the style set for t
func New(t theme.Theme) Styles {
	p := For(t)
	return Styles{
		Palette: p,

		App: lipgloss.NewStyle().
			Background(p.Bg).
			Foreground(p.Text),

		Title: lipgloss.NewStyle().
			Foreground(p.Accent2).
			Bold(true),

		Panel: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(p.Border).
			Padding(1, 2),

		Nav: lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(p.Border).
			Padding(0, 1),

		Hotkey:    lipgloss.NewStyle().Foreground(p.Muted),
		HotkeyKey: lipgloss.NewStyle().Foreground(p.Accent).Bold(true),
		HelpRight: lipgloss.NewStyle().Foreground(p.Muted),
		Label:     lipgloss.NewStyle().Foreground(p.Muted),
		Value:     lipgloss.NewStyle().Foreground(p.Text).Bold(true),
		Muted:     lipgloss.NewStyle().Foreground(p.Muted),
		Warn:      lipgloss.NewStyle().Foreground(p.Warn),
		Error:     lipgloss.NewStyle().Foreground(p.Error).Bold(true),

		Badge: lipgloss.NewStyle().
			Foreground(p.Bg).
			Background(p.Accent).
			Bold(true).
			Padding(0, 1),

		BusyButton: lipgloss.NewStyle().
			Foreground(p.Muted).
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(p.Muted).
			Padding(0, 2),
	}
}

// Key renders a key with accent styling
func (s Styles) Key(k string) string {
	return s.HotkeyKey.Render(k)
}
