package main

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"venom-connect-tui/config"
	"venom-connect-tui/connector"
	"venom-connect-tui/registry"
	"venom-connect-tui/rpc"
	"venom-connect-tui/session"
	"venom-connect-tui/wallet"
)

// -------------------- WIRING --------------------

const standaloneTimeout = 10 * time.Second

// entriesFromConfig turns configured providers into registry entries. An empty
// list means the built-in wallets.
func entriesFromConfig(cfg config.Config) []registry.Entry {
	if len(cfg.Providers) == 0 {
		return registry.DefaultEntries()
	}
	entries := make([]registry.Entry, 0, len(cfg.Providers))
	for _, p := range cfg.Providers {
		e := registry.Entry{ID: p.ID, DisplayName: p.Name}
		if e.DisplayName == "" {
			e.DisplayName = p.ID
		}
		for _, c := range p.Channels {
			e.Channels = append(e.Channels, registry.ChannelKind(c))
		}
		if len(e.Channels) == 0 {
			e.Channels = append([]registry.ChannelKind{registry.ChannelExtension}, registry.DefaultChannels...)
		}
		entries = append(entries, e)
	}
	return entries
}

// buildRegistry wires config entries to the extension probe and the
// standalone fallback.
func buildRegistry(cfg config.Config, logger *log.Logger) (*registry.Registry, *rpc.StandaloneClient, error) {
	standalone := rpc.NewStandaloneClient(cfg.Network.Endpoint, standaloneTimeout)
	reg, err := registry.Build(entriesFromConfig(cfg), registry.Options{
		Probe: &registry.EndpointProbe{
			Endpoints: cfg.Extensions(),
			Logger:    logger,
		},
		Fallback: func(ctx context.Context) (wallet.Provider, error) {
			return rpc.NewStandaloneProvider(standalone, cfg.WatchAddress), nil
		},
		ExtensionWait: cfg.ExtensionWaitDuration(),
	})
	if err != nil {
		return nil, nil, err
	}
	return reg, standalone, nil
}

// newInitializer returns the controller's connector factory
func newInitializer(cfg config.Config, selector connector.Selector, logger *log.Logger) session.Initializer {
	return func(ctx context.Context) (session.Connector, error) {
		reg, standalone, err := buildRegistry(cfg, logger)
		if err != nil {
			return nil, &wallet.InitializationError{Err: err}
		}
		c, err := connector.Initialize(ctx, connector.Options{
			Registry:     reg,
			Selector:     selector,
			Theme:        cfg.ThemeOrDefault(),
			NetworkID:    cfg.Network.ID,
			Reachability: standalone.Status,
			Logger:       logger,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// newController builds the session controller for cfg
func newController(cfg config.Config, selector connector.Selector, logger *log.Logger) *session.Controller {
	return session.New(session.Options{
		Initializer:  newInitializer(cfg, selector, logger),
		PollInterval: cfg.PollEvery(),
		Theme:        cfg.ThemeOrDefault(),
		Logger:       logger,
	})
}
