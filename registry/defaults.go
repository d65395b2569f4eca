package registry

import (
	"context"
	"time"

	"venom-connect-tui/wallet"
)

// DefaultExtensionWait is how long Acquire waits for an extension to appear.
const DefaultExtensionWait = 5 * time.Second

const probeInterval = 100 * time.Millisecond

// Entry is the static part of a descriptor.
type Entry struct {
	ID          string
	DisplayName string
	Channels    []ChannelKind
}

// DefaultEntries returns the built-in wallet list in display order.
func DefaultEntries() []Entry {
	channels := append([]ChannelKind{ChannelExtension}, DefaultChannels...)
	return []Entry{
		{ID: "venomwallet", DisplayName: "Venom Wallet", Channels: channels},
		{ID: "oneartwallet", DisplayName: "OneArt Wallet", Channels: channels},
		{ID: "oxychatwallet", DisplayName: "OxyChat Wallet", Channels: channels},
	}
}

// Options supplies the collaborators shared by every descriptor.
type Options struct {
	Probe         Probe
	Fallback      Fallback
	ExtensionWait time.Duration
}

// Build turns entries into a Registry wired to opts.
func Build(entries []Entry, opts Options) (*Registry, error) {
	descriptors := make([]Descriptor, 0, len(entries))
	for _, e := range entries {
		descriptors = append(descriptors, Descriptor{
			ID:          e.ID,
			DisplayName: e.DisplayName,
			Channels:    append([]ChannelKind(nil), e.Channels...),
			probe:       opts.Probe,
			fallback:    opts.Fallback,
			wait:        opts.ExtensionWait,
		})
	}
	return New(descriptors...)
}

// WaitForInjected polls probe until it reports a provider for id, the timeout
// elapses, or ctx is done. A zero timeout checks exactly once.
func WaitForInjected(ctx context.Context, probe Probe, id string, timeout time.Duration) (wallet.Provider, bool) {
	if p, ok := probe.Injected(ctx, id); ok {
		return p, true
	}
	if timeout <= 0 {
		return nil, false
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(probeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, false
		case <-deadline.C:
			return nil, false
		case <-ticker.C:
			if p, ok := probe.Injected(ctx, id); ok {
				return p, true
			}
		}
	}
}
