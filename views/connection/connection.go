package connection

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"venom-connect-tui/session"
	"venom-connect-tui/styles"
)

// Card holds the text of the connection card for one session phase
type Card struct {
	Title       string
	Description string
	Button      string
	Busy        bool
}

// CardFor picks the card text for a snapshot
func CardFor(snap session.Snapshot) Card {
	switch snap.Phase() {
	case session.PhaseUninitialized:
		return Card{
			Title:       "Initialize Connection",
			Description: "Start your journey into the Venom ecosystem",
			Button:      "INITIALIZE VENOM",
		}
	case session.PhaseInitializing:
		return Card{
			Title:       "Initialize Connection",
			Description: "Start your journey into the Venom ecosystem",
			Button:      "INITIALIZING...",
			Busy:        true,
		}
	case session.PhaseIdle:
		return Card{
			Title:       "Ready to Connect",
			Description: "Choose your preferred connection method",
			Button:      "CONNECT WALLET",
		}
	case session.PhaseConnecting:
		return Card{
			Title:       "Ready to Connect",
			Description: "Choose your preferred connection method",
			Button:      "CONNECTING...",
			Busy:        true,
		}
	case session.PhaseDisconnecting:
		return Card{
			Title:       "Connected",
			Description: "Your wallet is successfully connected",
			Button:      "DISCONNECTING...",
			Busy:        true,
		}
	default:
		return Card{
			Title:       "Connected",
			Description: "Your wallet is successfully connected",
			Button:      "DISCONNECT",
		}
	}
}

// Hotkey returns the key that triggers the card button, or "" while busy
func Hotkey(snap session.Snapshot) string {
	switch snap.Phase() {
	case session.PhaseUninitialized:
		return "i"
	case session.PhaseIdle:
		return "c"
	case session.PhaseConnected:
		return "d"
	}
	return ""
}

// Render renders the connection card
func Render(st styles.Styles, snap session.Snapshot, spinnerView string, width int) string {
	card := CardFor(snap)

	title := st.Title.Render(card.Title)
	desc := st.Muted.Render(card.Description)

	var button string
	if card.Busy {
		button = st.BusyButton.Render(spinnerView + " " + card.Button)
	} else {
		button = lipgloss.NewStyle().
			Foreground(st.Palette.Bg).
			Background(st.Palette.Accent).
			Bold(true).
			Padding(0, 3).
			Render(card.Button)
		if k := Hotkey(snap); k != "" {
			button += "  " + st.Hotkey.Render("press ") + st.Key(k)
		}
	}

	lines := []string{title, desc, "", button}
	if snap.Err != nil {
		lines = append(lines, "", st.Error.Render("⚠ "+snap.Err.Error()))
	}

	return st.Panel.Width(width).Render(strings.Join(lines, "\n"))
}
