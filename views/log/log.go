package log

import (
	"fmt"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"venom-connect-tui/helpers"
	"venom-connect-tui/styles"
)

// PanelHeight returns the viewport height for a terminal of the given height
func PanelHeight(height int) int {
	// header, nav, title, borders and margins
	reservedHeight := 10
	availableHeight := helpers.Max(5, height-reservedHeight)

	// at most a third of the screen or 15 lines
	maxLogHeight := helpers.Min(height/3, 15)
	return helpers.Max(1, helpers.Min(availableHeight, maxLogHeight))
}

// Render renders the log panel with dynamic height calculation
func Render(st styles.Styles, width, height int, logReady bool, logSpinnerView string, vp viewport.Model) string {
	title := st.Title.Render("Log")

	logPanelHeight := PanelHeight(height)
	vp.Height = logPanelHeight

	border := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(st.Palette.Border).
		Padding(0, 1).
		Width(helpers.Max(0, width-2)).
		Height(logPanelHeight + 2) // +2 for title and spacing

	if !logReady {
		initMsg := "initializing...\n" + logSpinnerView
		return border.Render(title + "\n\n" + initMsg)
	}

	// Show scroll position if content is larger than viewport
	scrollInfo := ""
	if vp.TotalLineCount() > vp.Height {
		scrollInfo = st.Muted.Render(fmt.Sprintf(" [%d%%]", int(vp.ScrollPercent()*100)))
	}

	return border.Render(title + scrollInfo + "\n\n" + vp.View())
}
