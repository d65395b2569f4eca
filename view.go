package main

import (
	"net/url"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"venom-connect-tui/helpers"
	"venom-connect-tui/session"
	"venom-connect-tui/views/connection"
	logview "venom-connect-tui/views/log"
	"venom-connect-tui/views/picker"
	"venom-connect-tui/views/themecard"
	walletview "venom-connect-tui/views/wallet"
)

// -------------------- VIEW --------------------

func (m *model) globalHeader() string {
	availableWidth := helpers.Max(0, m.w-8) // Account for panel padding
	p := m.st.Palette

	// Session status
	var statusIcon, statusText string
	statusColor := p.Muted
	switch m.snap.Phase() {
	case session.PhaseConnected:
		statusIcon = "●"
		statusColor = p.Accent
		statusText = helpers.ShortenAddr(m.snap.Account().Address)
	case session.PhaseIdle:
		statusIcon = "○"
		statusText = "Not connected"
	case session.PhaseUninitialized:
		statusIcon = "○"
		statusColor = p.Error
		statusText = "Not initialized"
	default:
		statusIcon = "◌"
		statusColor = p.Warn
		statusText = phaseLabel(m.snap.Phase())
	}
	statusDisplay := lipgloss.NewStyle().
		Foreground(statusColor).
		Bold(true).
		Render(statusIcon + " " + statusText)

	// Center title
	titleText := lipgloss.NewStyle().Bold(true).Render(helpers.FadeString("venom connect", p.FadeFrom, p.FadeTo))

	// Network
	networkDisplay := m.st.Muted.Render(m.cfg.Network.Group + " @ " + endpointHost(m.cfg.Network.Endpoint))

	statusWidth := lipgloss.Width(statusDisplay)
	networkWidth := lipgloss.Width(networkDisplay)
	titleWidth := lipgloss.Width(titleText)
	totalOtherWidth := statusWidth + networkWidth + titleWidth

	var headerLine string
	if totalOtherWidth+4 > availableWidth {
		// Not enough space, stack vertically
		headerLine = statusDisplay + "\n" + titleText + "\n" + networkDisplay
	} else {
		// Three-column layout: Status | Title (centered) | Network
		remainingSpace := availableWidth - totalOtherWidth
		leftPadding := remainingSpace / 2
		rightPadding := remainingSpace - leftPadding

		leftSpacer := strings.Repeat(" ", helpers.Max(1, leftPadding))
		rightSpacer := strings.Repeat(" ", helpers.Max(1, rightPadding))

		headerLine = statusDisplay + leftSpacer + titleText + rightSpacer + networkDisplay
	}

	separator := lipgloss.NewStyle().
		Foreground(p.Border).
		Render(strings.Repeat("─", availableWidth))

	return headerLine + "\n" + separator
}

func (m *model) nav(width int) string {
	keys := []string{}
	switch connection.Hotkey(m.snap) {
	case "i":
		keys = append(keys, m.st.Key("i")+" init")
	case "c":
		keys = append(keys, m.st.Key("c")+" connect")
	case "d":
		keys = append(keys, m.st.Key("d")+" disconnect")
	}
	if m.snap.CanToggleTheme() {
		keys = append(keys, m.st.Key("t")+" theme")
	}
	if m.snap.Account() != nil {
		keys = append(keys, m.st.Key("y")+" copy address", m.st.Key("q")+" qr")
	}
	keys = append(keys, m.st.Key("l")+" logger", m.st.Key("Esc")+" quit")

	return m.st.Nav.Width(width).Render(strings.Join(keys, "   "))
}

func (m *model) View() string {
	width := helpers.Max(0, m.w-2)

	headerPanel := m.st.Panel.Width(width).Render(m.globalHeader())

	var pageContent, nav string
	if m.picker != nil {
		pageContent = m.st.Panel.Width(width).Render(picker.Render(m.picker))
		nav = picker.Nav(m.st, width)
	} else {
		// Connection card takes two thirds, theme card the rest
		cardWidth := helpers.Max(20, width*2/3-2)
		themeWidth := helpers.Max(16, width-cardWidth-4)
		cards := lipgloss.JoinHorizontal(lipgloss.Top,
			connection.Render(m.st, m.snap, m.spin.View(), cardWidth),
			themecard.Render(m.st, m.snap, themeWidth),
		)
		sections := []string{cards}
		if w := walletview.Render(m.st, m.snap, m.showQR, m.copiedMsg, width); w != "" {
			sections = append(sections, w)
		}
		pageContent = lipgloss.JoinVertical(lipgloss.Left, sections...)
		nav = m.nav(width)
	}

	sections := []string{headerPanel, pageContent, nav}
	if m.logEnabled {
		sections = append(sections, logview.Render(m.st, m.w, m.h, m.logReady, m.logSpinner.View(), m.logViewport))
	}
	sections = append(sections, m.st.Muted.Render("POWERED BY VENOM NETWORK"))

	return m.st.App.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

// endpointHost trims an endpoint URL to its host for the header
func endpointHost(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return endpoint
	}
	return u.Host
}

func phaseLabel(p session.Phase) string {
	switch p {
	case session.PhaseInitializing:
		return "Initializing..."
	case session.PhaseConnecting:
		return "Connecting..."
	case session.PhaseDisconnecting:
		return "Disconnecting..."
	}
	return p.String()
}
