package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"venom-connect-tui/connector"
	"venom-connect-tui/registry"
	"venom-connect-tui/theme"
)

// -------------------- PROVIDER SELECTION --------------------

// formSelector shows the huh picker inside the running program and waits for
// the user's answer. It is called from a command goroutine.
type formSelector struct {
	mu   sync.Mutex
	send func(tea.Msg)
}

func (s *formSelector) attach(p *tea.Program) {
	s.mu.Lock()
	s.send = p.Send
	s.mu.Unlock()
}

func (s *formSelector) Select(ctx context.Context, providers []registry.Descriptor, t theme.Theme) (string, error) {
	s.mu.Lock()
	send := s.send
	s.mu.Unlock()
	if send == nil {
		return "", errors.New("provider picker is not attached to a program")
	}

	reply := make(chan pickResult, 1)
	send(pickProviderMsg{providers: providers, theme: t, reply: reply})

	select {
	case r := <-reply:
		return r.id, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// staticSelector picks a fixed provider, for headless use
type staticSelector string

func (s staticSelector) Select(_ context.Context, providers []registry.Descriptor, _ theme.Theme) (string, error) {
	if s == "" {
		if len(providers) == 0 {
			return "", connector.ErrSelectionCancelled
		}
		return providers[0].ID, nil
	}
	for _, d := range providers {
		if d.ID == string(s) {
			return d.ID, nil
		}
	}
	return "", fmt.Errorf("provider %q is not registered", string(s))
}
