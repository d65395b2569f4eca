package main

import (
	"venom-connect-tui/registry"
	"venom-connect-tui/session"
	"venom-connect-tui/theme"
)

// -------------------- TEA MESSAGES --------------------
// All custom message types for The Elm Architecture

// sessionChangedMsg carries a snapshot published by the session controller
type sessionChangedMsg struct {
	snap session.Snapshot
}

// commandDoneMsg reports the outcome of a controller command
type commandDoneMsg struct {
	op  string
	err error
}

// pickResult is the answer to a pickProviderMsg
type pickResult struct {
	id  string
	err error
}

// pickProviderMsg asks the model to show the provider picker. The selector
// goroutine waits on reply.
type pickProviderMsg struct {
	providers []registry.Descriptor
	theme     theme.Theme
	reply     chan<- pickResult
}

// clipboardCopiedMsg indicates clipboard copy completed
type clipboardCopiedMsg struct {
	err error
}

// clearCopiedMsg hides the clipboard feedback
type clearCopiedMsg struct{}

// logInitMsg signals that log viewport should be initialized
type logInitMsg struct{}
