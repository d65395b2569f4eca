// Package registry holds the ordered list of wallet integrations a connector
// can offer, and how each one obtains a provider handle.
package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"venom-connect-tui/wallet"
)

// ChannelKind is a way a wallet can be reached.
type ChannelKind string

const (
	ChannelExtension ChannelKind = "extension"
	ChannelMobile    ChannelKind = "mobile"
	ChannelIOS       ChannelKind = "ios"
	ChannelAndroid   ChannelKind = "android"
)

// DefaultChannels are advertised by every wallet in addition to its extension.
var DefaultChannels = []ChannelKind{ChannelMobile, ChannelIOS, ChannelAndroid}

// Probe reports whether an injected provider for id is present right now.
// A missing provider is not an error.
type Probe interface {
	Injected(ctx context.Context, id string) (wallet.Provider, bool)
}

// ProbeFunc adapts a function to Probe.
type ProbeFunc func(ctx context.Context, id string) (wallet.Provider, bool)

func (f ProbeFunc) Injected(ctx context.Context, id string) (wallet.Provider, bool) {
	return f(ctx, id)
}

// Fallback constructs a standalone provider bound to the configured endpoint.
type Fallback func(ctx context.Context) (wallet.Provider, error)

// Descriptor describes one wallet integration. Descriptors are immutable once
// a Registry is built.
type Descriptor struct {
	ID          string
	DisplayName string
	Channels    []ChannelKind

	probe    Probe
	fallback Fallback
	wait     time.Duration
}

// HasChannel reports whether the descriptor advertises k.
func (d Descriptor) HasChannel(k ChannelKind) bool {
	for _, c := range d.Channels {
		if c == k {
			return true
		}
	}
	return false
}

// Injected asks the probe for an injected handle without waiting.
func (d Descriptor) Injected(ctx context.Context) (*wallet.Handle, bool) {
	if d.probe == nil || !d.HasChannel(ChannelExtension) {
		return nil, false
	}
	p, ok := d.probe.Injected(ctx, d.ID)
	if !ok {
		return nil, false
	}
	return &wallet.Handle{ProviderID: d.ID, Origin: wallet.OriginInjected, Provider: p}, true
}

// Acquire obtains a provider handle. An injected provider is preferred; when it
// is absent, or does not appear within the extension wait, the standalone
// fallback is used.
func (d Descriptor) Acquire(ctx context.Context) (*wallet.Handle, error) {
	if d.probe != nil && d.HasChannel(ChannelExtension) {
		if p, ok := WaitForInjected(ctx, d.probe, d.ID, d.wait); ok {
			return &wallet.Handle{ProviderID: d.ID, Origin: wallet.OriginInjected, Provider: p}, nil
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.fallback == nil {
		return nil, fmt.Errorf("%s: no injected provider and no fallback configured", d.ID)
	}
	p, err := d.fallback(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: standalone provider: %w", d.ID, err)
	}
	return &wallet.Handle{ProviderID: d.ID, Origin: wallet.OriginStandalone, Provider: p}, nil
}

// ErrDuplicateID is returned when two descriptors share an id.
var ErrDuplicateID = errors.New("duplicate provider id")

// Registry is an ordered, immutable set of descriptors.
type Registry struct {
	descriptors []Descriptor
	byID        map[string]int
}

// New builds a registry from descriptors in the given order.
func New(descriptors ...Descriptor) (*Registry, error) {
	r := &Registry{byID: make(map[string]int, len(descriptors))}
	for _, d := range descriptors {
		if d.ID == "" {
			return nil, errors.New("provider id must not be empty")
		}
		if _, dup := r.byID[d.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, d.ID)
		}
		r.byID[d.ID] = len(r.descriptors)
		r.descriptors = append(r.descriptors, d)
	}
	return r, nil
}

// List returns the descriptors in registry order. The slice is a copy.
func (r *Registry) List() []Descriptor {
	out := make([]Descriptor, len(r.descriptors))
	copy(out, r.descriptors)
	return out
}

// Lookup finds a descriptor by id.
func (r *Registry) Lookup(id string) (Descriptor, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Descriptor{}, false
	}
	return r.descriptors[i], true
}

func (r *Registry) Len() int { return len(r.descriptors) }
