package main

import (
	"context"
	"errors"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"venom-connect-tui/session"
	"venom-connect-tui/wallet"
)

// -------------------- COMMAND FUNCTIONS --------------------
// Functions that return tea.Cmd for async operations. Controller calls always
// run here, off the update loop, because the controller publishes through
// Program.Send.

const (
	initTimeout    = 30 * time.Second
	connectTimeout = 3 * time.Minute
	actionTimeout  = 15 * time.Second
)

// initSession constructs the connector and restores any existing authorization
func initSession(ctrl *session.Controller) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
		defer cancel()
		return commandDoneMsg{op: "init", err: ctrl.Init(ctx)}
	}
}

// connectSession runs provider selection and waits for the wallet
func connectSession(ctrl *session.Controller) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		return commandDoneMsg{op: "connect", err: ctrl.Connect(ctx)}
	}
}

// disconnectSession ends the active session
func disconnectSession(ctrl *session.Controller) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return commandDoneMsg{op: "disconnect", err: ctrl.Disconnect(ctx)}
	}
}

// toggleTheme advances the connector theme
func toggleTheme(ctrl *session.Controller) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		_, err := ctrl.ToggleTheme(ctx)
		return commandDoneMsg{op: "theme", err: err}
	}
}

// copyToClipboard copies text to the system clipboard
func copyToClipboard(text string) tea.Cmd {
	return func() tea.Msg {
		return clipboardCopiedMsg{err: clipboard.WriteAll(text)}
	}
}

// clearCopiedAfter hides clipboard feedback after d
func clearCopiedAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return clearCopiedMsg{} })
}

// initLogViewport initializes the log viewport
func initLogViewport() tea.Cmd {
	return func() tea.Msg {
		return logInitMsg{}
	}
}

// addLog writes a line to the TUI log
func (m *model) addLog(logType, message string, keyvals ...interface{}) {
	if m.logger == nil {
		return
	}

	switch logType {
	case "info":
		m.logger.Info(message, keyvals...)
	case "success":
		m.logger.Info("✓ "+message, keyvals...)
	case "error":
		m.logger.Error(message, keyvals...)
	case "warning":
		m.logger.Warn(message, keyvals...)
	case "debug":
		m.logger.Debug(message, keyvals...)
	default:
		m.logger.Print(message, keyvals...)
	}

	m.updateLogViewport()
}

// updateLogViewport refreshes the log panel from the sink
func (m *model) updateLogViewport() {
	if !m.logEnabled || !m.logReady {
		return
	}
	atBottom := m.logViewport.AtBottom()
	m.logViewport.SetContent(m.logSink.String())
	if atBottom {
		m.logViewport.GotoBottom()
	}
}

// commandLogType picks the log level for a finished command
func commandLogType(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, wallet.ErrInvalidState):
		return "debug"
	default:
		return "error"
	}
}
