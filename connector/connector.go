// Package connector coordinates provider selection and session establishment
// across the wallets in a registry.
package connector

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"go.uber.org/atomic"

	"venom-connect-tui/registry"
	"venom-connect-tui/theme"
	"venom-connect-tui/wallet"
)

var (
	// ErrSelectionCancelled is returned by a Selector when the user backs out.
	ErrSelectionCancelled = errors.New("provider selection cancelled")
	// ErrNoHandler is returned by Connect when nobody is subscribed to take the
	// new session. The acquired handle is released.
	ErrNoHandler = errors.New("no connect handler registered")
)

// Selector presents the provider choice to the user and returns the chosen id.
type Selector interface {
	Select(ctx context.Context, providers []registry.Descriptor, t theme.Theme) (string, error)
}

// SelectorFunc adapts a function to Selector.
type SelectorFunc func(ctx context.Context, providers []registry.Descriptor, t theme.Theme) (string, error)

func (f SelectorFunc) Select(ctx context.Context, providers []registry.Descriptor, t theme.Theme) (string, error) {
	return f(ctx, providers, t)
}

// ConnectHandler receives the handle and account of a new connection.
type ConnectHandler func(h *wallet.Handle, acct *wallet.AccountState)

type Options struct {
	Registry *registry.Registry
	Selector Selector
	Theme    theme.Theme
	// NetworkID is the network the session expects; zero disables the check.
	NetworkID uint32
	// Reachability, when set, is run once by Initialize.
	Reachability func(ctx context.Context) error
	Logger       *log.Logger
}

type subscription struct {
	id int
	fn ConnectHandler
}

// Connector is the facade the session controller drives.
type Connector struct {
	registry  *registry.Registry
	selector  Selector
	networkID uint32
	logger    *log.Logger

	connecting atomic.Bool

	mu       sync.Mutex
	theme    theme.Theme
	handlers []subscription
	nextID   int
}

// Initialize constructs a Connector. Construction failures are reported as
// *wallet.InitializationError.
func Initialize(ctx context.Context, opts Options) (*Connector, error) {
	if opts.Registry == nil || opts.Registry.Len() == 0 {
		return nil, &wallet.InitializationError{Err: errors.New("no wallet providers registered")}
	}
	if opts.Selector == nil {
		return nil, &wallet.InitializationError{Err: errors.New("no provider selector configured")}
	}
	if opts.Reachability != nil {
		if err := opts.Reachability(ctx); err != nil {
			return nil, &wallet.InitializationError{Err: fmt.Errorf("standalone endpoint unreachable: %w", err)}
		}
	}

	t := opts.Theme
	if !t.Valid() {
		t = theme.Default
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Connector{
		registry:  opts.Registry,
		selector:  opts.Selector,
		networkID: opts.NetworkID,
		logger:    logger,
		theme:     t,
	}, nil
}

// Providers returns the registry's descriptors in order.
func (c *Connector) Providers() []registry.Descriptor {
	return c.registry.List()
}

// CheckAuth looks for an injected provider that already holds account permission.
// It never prompts. A nil handle means no prior authorization exists.
func (c *Connector) CheckAuth(ctx context.Context) (*wallet.Handle, *wallet.AccountState, error) {
	for _, d := range c.registry.List() {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		h, ok := d.Injected(ctx)
		if !ok {
			continue
		}
		acct, err := h.Provider.GetState(ctx)
		if err != nil {
			c.logger.Debug("existing auth check failed", "provider", d.ID, "err", err)
			wallet.Release(h.Provider)
			continue
		}
		if acct == nil || acct.Address == "" {
			wallet.Release(h.Provider)
			continue
		}
		c.logger.Info("found existing authorization", "provider", d.ID, "address", acct.Address)
		return h, acct, nil
	}
	return nil, nil, nil
}

// Connect runs provider selection and establishes a session. Success is
// signalled to OnConnect handlers, exactly once; the return value only reports
// failure. A second Connect while one is running fails with wallet.ErrInvalidState.
func (c *Connector) Connect(ctx context.Context) error {
	if !c.connecting.CAS(false, true) {
		return fmt.Errorf("%w: connect already in progress", wallet.ErrInvalidState)
	}
	defer c.connecting.Store(false)

	id, err := c.selector.Select(ctx, c.registry.List(), c.Theme())
	if err != nil {
		return err
	}
	d, ok := c.registry.Lookup(id)
	if !ok {
		return fmt.Errorf("unknown provider %q", id)
	}

	h, err := d.Acquire(ctx)
	if err != nil {
		return err
	}
	c.logger.Info("provider acquired", "provider", h.ProviderID, "origin", h.Origin)

	var acct *wallet.AccountState
	if pr, ok := h.Provider.(wallet.PermissionRequester); ok {
		acct, err = pr.RequestPermissions(ctx)
	} else {
		acct, err = h.Provider.GetState(ctx)
	}
	if err != nil {
		wallet.Release(h.Provider)
		return fmt.Errorf("%s: %w", h.ProviderID, err)
	}
	if acct == nil {
		wallet.Release(h.Provider)
		return fmt.Errorf("%s: %w", h.ProviderID, wallet.ErrPermissionDenied)
	}

	c.checkNetwork(ctx, h)

	// the caller gave up while the wallet was answering
	if err := ctx.Err(); err != nil {
		wallet.Release(h.Provider)
		return err
	}
	return c.emit(h, acct)
}

func (c *Connector) checkNetwork(ctx context.Context, h *wallet.Handle) {
	if c.networkID == 0 {
		return
	}
	nr, ok := h.Provider.(wallet.NetworkReporter)
	if !ok {
		return
	}
	id, err := nr.NetworkID(ctx)
	if err != nil {
		c.logger.Debug("network id unavailable", "provider", h.ProviderID, "err", err)
		return
	}
	if id != c.networkID {
		c.logger.Warn("provider is on a different network", "provider", h.ProviderID, "want", c.networkID, "got", id)
	}
}

// emit hands h to every subscriber. With none, h is released here.
func (c *Connector) emit(h *wallet.Handle, acct *wallet.AccountState) error {
	c.mu.Lock()
	handlers := make([]ConnectHandler, 0, len(c.handlers))
	for _, s := range c.handlers {
		handlers = append(handlers, s.fn)
	}
	c.mu.Unlock()

	if len(handlers) == 0 {
		wallet.Release(h.Provider)
		return fmt.Errorf("%s: %w", h.ProviderID, ErrNoHandler)
	}
	for _, fn := range handlers {
		fn(h, acct)
	}
	return nil
}

// Disconnect ends the session held by h and releases its transport.
func (c *Connector) Disconnect(ctx context.Context, h *wallet.Handle) error {
	if h == nil || h.Provider == nil {
		return fmt.Errorf("%w: no provider to disconnect", wallet.ErrInvalidState)
	}
	defer wallet.Release(h.Provider)
	if err := h.Provider.Disconnect(ctx); err != nil {
		return fmt.Errorf("%s: disconnect: %w", h.ProviderID, err)
	}
	return nil
}

// SetTheme updates the theme used by the selection UI.
func (c *Connector) SetTheme(ctx context.Context, t theme.Theme) error {
	if !t.Valid() {
		return fmt.Errorf("unknown theme %q", t)
	}
	c.mu.Lock()
	c.theme = t
	c.mu.Unlock()
	return nil
}

func (c *Connector) Theme() theme.Theme {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.theme
}

// OnConnect registers fn for connect events. The returned function removes it
// and may be called any number of times.
func (c *Connector) OnConnect(fn ConnectHandler) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.handlers = append(c.handlers, subscription{id: id, fn: fn})
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			for i, s := range c.handlers {
				if s.id == id {
					c.handlers = append(c.handlers[:i], c.handlers[i+1:]...)
					return
				}
			}
		})
	}
}
