package wallet

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"venom-connect-tui/helpers"
	"venom-connect-tui/session"
	"venom-connect-tui/styles"
)

// Render renders the wallet information panel. It renders nothing unless the
// session is connected.
func Render(st styles.Styles, snap session.Snapshot, showQR bool, copiedMsg string, width int) string {
	acct := snap.Account()
	if acct == nil {
		return ""
	}
	cur := snap.State.(session.Connected)

	addrLine := lipgloss.NewStyle().Foreground(st.Palette.Text).Render(acct.Address)
	if copiedMsg != "" {
		addrLine += "  " + lipgloss.NewStyle().Foreground(st.Palette.Accent).Render(copiedMsg)
	}

	lines := []string{
		st.Title.Render("Wallet Information"),
		"",
		st.Label.Render("ADDRESS"),
		addrLine,
		"",
		st.Label.Render("BALANCE"),
		st.Value.Render(snap.BalanceText()),
		"",
		st.Muted.Render("via " + cur.Handle.ProviderID + " (" + cur.Handle.Origin.String() + ")" +
			" · connected " + Since(snap, time.Now()) +
			" · updated " + helpers.LoadedAt(snap.UpdatedAt, false) +
			" · session " + shortID(cur.SessionID)),
	}
	if !snap.Polling {
		lines = append(lines, st.Warn.Render("refresh paused"))
	}

	body := strings.Join(lines, "\n")
	if showQR {
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, "   ", helpers.QRCode(acct.Address))
	}

	return st.Panel.Width(width).Render(body)
}

// Since renders how long the session has been connected
func Since(snap session.Snapshot, now time.Time) string {
	cur, ok := snap.State.(session.Connected)
	if !ok || cur.Since.IsZero() {
		return ""
	}
	return now.Sub(cur.Since).Truncate(time.Second).String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
