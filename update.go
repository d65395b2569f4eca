package main

import (
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"venom-connect-tui/config"
	"venom-connect-tui/connector"
	"venom-connect-tui/helpers"
	"venom-connect-tui/session"
	"venom-connect-tui/styles"
	logview "venom-connect-tui/views/log"
	"venom-connect-tui/views/picker"
)

// -------------------- UPDATE --------------------

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case sessionChangedMsg:
		// snapshots can arrive out of order from different goroutines
		if msg.snap.Version < m.snap.Version {
			return m, nil
		}
		prev := m.snap
		m.snap = msg.snap
		if prev.Theme != m.snap.Theme {
			m.applyTheme()
		}
		if m.snap.Phase() != session.PhaseConnected {
			m.showQR = false
			m.copiedMsg = ""
		}
		m.updateLogViewport()
		return m, nil

	case commandDoneMsg:
		if msg.err != nil {
			if msg.op == "connect" && m.picker != nil {
				m.closePicker(pickResult{err: msg.err})
			}
			if errors.Is(msg.err, connector.ErrSelectionCancelled) {
				m.addLog("info", "Connect cancelled")
			} else {
				m.addLog(commandLogType(msg.err), msg.op+" failed", "err", msg.err)
			}
			return m, nil
		}
		m.addLog("debug", msg.op+" finished")
		return m, nil

	case pickProviderMsg:
		if m.picker != nil {
			msg.reply <- pickResult{err: errors.New("provider picker already open")}
			return m, nil
		}
		m.picker = picker.CreateForm(msg.providers, msg.theme, m.cfg.Preferred)
		m.pickReply = msg.reply
		m.addLog("debug", "Provider picker opened", "providers", len(msg.providers))
		return m, nil

	case clipboardCopiedMsg:
		if msg.err != nil {
			m.addLog("error", "Clipboard copy failed", "err", msg.err)
			return m, nil
		}
		m.copiedMsg = "copied!"
		m.addLog("info", "Copied address to clipboard")
		return m, clearCopiedAfter(2 * time.Second)

	case clearCopiedMsg:
		m.copiedMsg = ""
		return m, nil

	case logInitMsg:
		if !m.logEnabled {
			return m, nil
		}
		m.logger.SetStyles(logStyles(m.st.Palette))
		m.logReady = true
		m.addLog("info", "Logger enabled")
		return m, nil

	case tea.WindowSizeMsg:
		m.w, m.h = msg.Width, msg.Height

		// Width accounts for border and padding
		m.logViewport.Width = helpers.Max(0, msg.Width-6)
		m.logViewport.Height = logview.PanelHeight(msg.Height)
		m.updateLogViewport()

		if m.picker != nil {
			form, cmd := m.picker.Update(msg)
			if f, ok := form.(*huh.Form); ok {
				m.picker = f
			}
			return m, cmd
		}
		return m, nil

	case spinner.TickMsg:
		var cmds []tea.Cmd
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		cmds = append(cmds, cmd)
		if m.logEnabled && !m.logReady {
			m.logSpinner, cmd = m.logSpinner.Update(msg)
			cmds = append(cmds, cmd)
		}
		m.updateLogViewport()
		return m, tea.Batch(cmds...)
	}

	if m.picker != nil {
		return m.updatePicker(msg)
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		return m.handleKey(keyMsg)
	}
	return m, nil
}

// updatePicker routes input to the provider picker and answers the waiting
// selector once the form completes
func (m *model) updatePicker(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Intercept ESC key to cancel selection
	if keyMsg, ok := msg.(tea.KeyMsg); ok && (keyMsg.String() == "esc" || keyMsg.String() == "ctrl+c") {
		m.closePicker(pickResult{err: connector.ErrSelectionCancelled})
		return m, nil
	}

	form, cmd := m.picker.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.picker = f

		if m.picker.State == huh.StateCompleted {
			m.addLog("info", "Provider selected", "provider", picker.TempSelection)
			m.closePicker(pickResult{id: picker.TempSelection})
			return m, nil
		}
		if m.picker.State == huh.StateAborted {
			m.closePicker(pickResult{err: connector.ErrSelectionCancelled})
			return m, nil
		}
	}
	return m, cmd
}

func (m *model) closePicker(r pickResult) {
	if m.pickReply != nil {
		select {
		case m.pickReply <- r:
		default:
		}
	}
	m.picker = nil
	m.pickReply = nil
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	phase := m.snap.Phase()

	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit

	case "enter":
		switch phase {
		case session.PhaseUninitialized:
			return m.startInit()
		case session.PhaseIdle:
			return m.startConnect()
		}

	case "i":
		if phase == session.PhaseUninitialized {
			return m.startInit()
		}

	case "c":
		if phase == session.PhaseIdle {
			return m.startConnect()
		}

	case "d":
		if phase == session.PhaseConnected {
			m.addLog("info", "Disconnecting", "session", m.snap.State.(session.Connected).SessionID)
			return m, disconnectSession(m.ctrl)
		}

	case "t":
		if m.snap.CanToggleTheme() {
			return m, toggleTheme(m.ctrl)
		}

	case "y":
		if acct := m.snap.Account(); acct != nil {
			return m, copyToClipboard(acct.Address)
		}

	case "q":
		if m.snap.Account() != nil {
			m.showQR = !m.showQR
		}

	case "l":
		// Toggle logger
		m.logEnabled = !m.logEnabled
		m.cfg.Logger = m.logEnabled
		m.saveConfig()
		if m.logEnabled {
			m.logReady = false
			return m, tea.Batch(initLogViewport(), m.logSpinner.Tick)
		}
		// Clear logs and de-initialize when disabling
		m.logSink.Reset()
		m.logReady = false

	case "pageup", "pagedown", "up", "down":
		if m.logEnabled && m.logReady {
			var cmd tea.Cmd
			m.logViewport, cmd = m.logViewport.Update(msg)
			return m, cmd
		}
	}

	return m, nil
}

func (m *model) startInit() (tea.Model, tea.Cmd) {
	m.addLog("info", "Initializing connector", "network", m.cfg.Network.Group, "endpoint", m.cfg.Network.Endpoint)
	return m, initSession(m.ctrl)
}

func (m *model) startConnect() (tea.Model, tea.Cmd) {
	m.addLog("info", "Connecting wallet")
	return m, connectSession(m.ctrl)
}

// applyTheme rebuilds styles after the connector theme changed and keeps the
// config in step
func (m *model) applyTheme() {
	m.st = styles.New(m.snap.Theme)
	m.spin.Style = lipgloss.NewStyle().Foreground(m.st.Palette.Accent2)
	m.logSpinner.Style = m.spin.Style
	m.logger.SetStyles(logStyles(m.st.Palette))

	m.cfg.Theme = m.snap.Theme.String()
	m.saveConfig()
	m.addLog("info", "Theme switched", "theme", m.snap.Theme)
}

func (m *model) saveConfig() {
	if m.configPath == "" {
		return
	}
	// only UI preferences are written back; env overrides stay out of the file
	onDisk := config.LoadOrCreate(m.configPath)
	onDisk.Theme = m.cfg.Theme
	onDisk.Logger = m.cfg.Logger
	if err := config.Save(m.configPath, onDisk); err != nil {
		m.addLog("warning", "Could not save config", "err", err)
	}
}
