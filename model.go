package main

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"venom-connect-tui/config"
	"venom-connect-tui/session"
	"venom-connect-tui/styles"
)

// -------------------- MODEL --------------------

// model represents the application state following The Elm Architecture
type model struct {
	w, h int

	cfg        config.Config
	configPath string

	// session state, as last published by the controller
	ctrl *session.Controller
	snap session.Snapshot
	st   styles.Styles

	spin spinner.Model

	// provider picker, open while a connect waits for the user
	picker    *huh.Form
	pickReply chan<- pickResult

	// wallet panel
	showQR    bool
	copiedMsg string

	// logger panel
	logEnabled  bool
	logger      *log.Logger
	logSink     *logSink
	logViewport viewport.Model
	logReady    bool
	logSpinner  spinner.Model
}

// -------------------- INIT --------------------

// newModel creates a model bound to ctrl
func newModel(cfg config.Config, configPath string, ctrl *session.Controller, logger *log.Logger, sink *logSink) model {
	snap := ctrl.Snapshot()
	st := styles.New(snap.Theme)

	// spinner
	sp := spinner.New()
	sp.Spinner = spinner.Line
	sp.Style = lipgloss.NewStyle().Foreground(st.Palette.Accent2)

	// Initialize log viewport
	vp := viewport.New(0, 20) // Will be resized in Update on first WindowSizeMsg

	// Initialize log spinner
	logSpin := spinner.New()
	logSpin.Spinner = spinner.Dot
	logSpin.Style = lipgloss.NewStyle().Foreground(st.Palette.Accent2)

	return model{
		cfg:         cfg,
		configPath:  configPath,
		ctrl:        ctrl,
		snap:        snap,
		st:          st,
		spin:        sp,
		logEnabled:  cfg.Logger,
		logger:      logger,
		logSink:     sink,
		logViewport: vp,
		logSpinner:  logSpin,
	}
}

// Init implements tea.Model interface and returns initial commands
func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spin.Tick}
	if m.logEnabled {
		cmds = append(cmds, initLogViewport(), m.logSpinner.Tick)
	}
	return tea.Batch(cmds...)
}
