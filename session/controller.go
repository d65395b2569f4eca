// Package session implements the wallet-session lifecycle: initialization,
// connection, periodic account refresh, disconnection and theme switching.
package session

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"venom-connect-tui/connector"
	"venom-connect-tui/theme"
	"venom-connect-tui/wallet"
)

const (
	DefaultPollInterval = 7 * time.Second
	DefaultFetchTimeout = 10 * time.Second
)

// Connector is the facade the controller drives. *connector.Connector
// implements it.
type Connector interface {
	CheckAuth(ctx context.Context) (*wallet.Handle, *wallet.AccountState, error)
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context, h *wallet.Handle) error
	SetTheme(ctx context.Context, t theme.Theme) error
	OnConnect(fn connector.ConnectHandler) func()
}

// Initializer constructs the connector when the user requests init.
type Initializer func(ctx context.Context) (Connector, error)

type Options struct {
	Initializer  Initializer
	Scheduler    Scheduler
	PollInterval time.Duration
	FetchTimeout time.Duration
	Theme        theme.Theme
	Logger       *log.Logger
}

type observer struct {
	id int
	fn func(Snapshot)
}

// Controller owns the session state. All methods are safe for concurrent use;
// provider calls are never made while the state lock is held.
type Controller struct {
	initializer  Initializer
	sched        Scheduler
	interval     time.Duration
	fetchTimeout time.Duration
	logger       *log.Logger

	mu        sync.Mutex
	state     State
	theme     theme.Theme
	err       error
	version   uint64
	updatedAt time.Time

	conn        Connector
	unsubscribe func()

	// epoch changes on teardown; async completions from an older epoch are dropped.
	epoch uint64
	// gen changes whenever polling stops; ticks from an older gen are no-ops.
	gen        uint64
	timer      Timer
	pollCancel context.CancelFunc
	polling    bool

	observers []observer
	nextObs   int

	// inflight holds the cancel funcs of running Init and Connect calls.
	inflight map[int]context.CancelFunc
	nextOp   int
}

// New returns a controller in Uninitialized.
func New(opts Options) *Controller {
	c := &Controller{
		initializer:  opts.Initializer,
		sched:        opts.Scheduler,
		interval:     opts.PollInterval,
		fetchTimeout: opts.FetchTimeout,
		logger:       opts.Logger,
		state:        Uninitialized{},
		theme:        opts.Theme,
		updatedAt:    time.Now(),
	}
	if c.sched == nil {
		c.sched = SystemScheduler
	}
	if c.interval <= 0 {
		c.interval = DefaultPollInterval
	}
	if c.fetchTimeout <= 0 {
		c.fetchTimeout = DefaultFetchTimeout
	}
	if c.logger == nil {
		c.logger = log.Default()
	}
	if !c.theme.Valid() {
		c.theme = theme.Default
	}
	return c
}

// -------------------- OBSERVERS --------------------

// Subscribe registers fn to receive every published snapshot. fn runs on the
// goroutine that caused the change and must not block.
func (c *Controller) Subscribe(fn func(Snapshot)) func() {
	c.mu.Lock()
	id := c.nextObs
	c.nextObs++
	c.observers = append(c.observers, observer{id: id, fn: fn})
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			for i, o := range c.observers {
				if o.id == id {
					c.observers = append(c.observers[:i], c.observers[i+1:]...)
					return
				}
			}
		})
	}
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		Version:   c.version,
		State:     c.state,
		Theme:     c.theme,
		Polling:   c.polling,
		Err:       c.err,
		UpdatedAt: c.updatedAt,
	}
}

// setLocked moves to s and returns the snapshot to publish once unlocked.
func (c *Controller) setLocked(s State, err error) (Snapshot, []func(Snapshot)) {
	c.state = s
	c.err = err
	return c.bumpLocked()
}

func (c *Controller) bumpLocked() (Snapshot, []func(Snapshot)) {
	c.version++
	c.updatedAt = time.Now()
	fns := make([]func(Snapshot), 0, len(c.observers))
	for _, o := range c.observers {
		fns = append(fns, o.fn)
	}
	return c.snapshotLocked(), fns
}

func publish(s Snapshot, fns []func(Snapshot)) {
	for _, fn := range fns {
		fn(s)
	}
}

// -------------------- COMMANDS --------------------

// Init constructs the connector and looks for an existing authorization.
// It is only valid in Uninitialized.
func (c *Controller) Init(ctx context.Context) error {
	c.mu.Lock()
	if _, ok := c.state.(Uninitialized); !ok {
		phase := c.state.Phase()
		c.mu.Unlock()
		return fmt.Errorf("%w: init while %s", wallet.ErrInvalidState, phase)
	}
	if c.initializer == nil {
		c.mu.Unlock()
		return &wallet.InitializationError{Err: errors.New("no connector initializer configured")}
	}
	epoch := c.epoch
	t := c.theme
	ctx, done := c.trackLocked(ctx)
	defer done()
	snap, fns := c.setLocked(Initializing{}, nil)
	c.mu.Unlock()
	publish(snap, fns)

	conn, err := c.initializer(ctx)
	if err != nil {
		var initErr *wallet.InitializationError
		if !errors.As(err, &initErr) {
			err = &wallet.InitializationError{Err: err}
		}
		c.logger.Error("connector initialization failed", "err", err)
		c.mu.Lock()
		if c.epoch != epoch {
			c.mu.Unlock()
			return err
		}
		snap, fns = c.setLocked(Uninitialized{}, err)
		c.mu.Unlock()
		publish(snap, fns)
		return err
	}

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return fmt.Errorf("%w: torn down during init", wallet.ErrInvalidState)
	}
	c.conn = conn
	c.unsubscribe = conn.OnConnect(c.handleConnect)
	c.mu.Unlock()

	if err := conn.SetTheme(ctx, t); err != nil {
		c.logger.Warn("could not apply theme", "theme", t, "err", err)
	}

	h, acct, err := conn.CheckAuth(ctx)
	if err != nil {
		c.logger.Warn("existing auth check failed", "err", err)
		h, acct = nil, nil
	}

	if h == nil || acct == nil || acct.Address == "" {
		c.mu.Lock()
		if c.epoch != epoch {
			c.mu.Unlock()
			return nil
		}
		snap, fns = c.setLocked(Idle{}, nil)
		c.mu.Unlock()
		c.logger.Info("connector ready")
		publish(snap, fns)
		return nil
	}

	balance := c.readBalance(ctx, h, acct.Address)

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		wallet.Release(h.Provider)
		return nil
	}
	snap, fns = c.enterConnectedLocked(h, *acct, balance)
	c.mu.Unlock()
	c.logConnected(snap, "restored")
	publish(snap, fns)
	return nil
}

// Connect starts provider selection. It is only valid in Idle. Success is
// reported through the connector's connect event; the return value reports
// failures, after which the session is back in Idle.
func (c *Controller) Connect(ctx context.Context) error {
	c.mu.Lock()
	if _, ok := c.state.(Idle); !ok {
		phase := c.state.Phase()
		c.mu.Unlock()
		return fmt.Errorf("%w: connect while %s", wallet.ErrInvalidState, phase)
	}
	conn := c.conn
	epoch := c.epoch
	ctx, done := c.trackLocked(ctx)
	defer done()
	snap, fns := c.setLocked(Connecting{}, nil)
	c.mu.Unlock()
	publish(snap, fns)

	err := conn.Connect(ctx)
	if err == nil {
		return nil
	}

	if errors.Is(err, connector.ErrSelectionCancelled) {
		c.logger.Info("connect cancelled")
	} else {
		c.logger.Error("connect failed", "err", err)
	}

	c.mu.Lock()
	if _, still := c.state.(Connecting); !still || c.epoch != epoch {
		c.mu.Unlock()
		return err
	}
	if errors.Is(err, connector.ErrSelectionCancelled) {
		snap, fns = c.setLocked(Idle{}, nil)
	} else {
		snap, fns = c.setLocked(Idle{}, err)
	}
	c.mu.Unlock()
	publish(snap, fns)
	return err
}

// handleConnect receives the connector's connect event. Events are accepted
// only while Connecting; anything else is released and ignored.
func (c *Controller) handleConnect(h *wallet.Handle, hint *wallet.AccountState) {
	c.mu.Lock()
	_, ok := c.state.(Connecting)
	epoch := c.epoch
	c.mu.Unlock()
	if !ok || h == nil || h.Provider == nil {
		c.logger.Warn("ignoring connect event outside of connecting")
		if h != nil && h.Provider != nil {
			wallet.Release(h.Provider)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.fetchTimeout)
	defer cancel()

	acct, err := h.Provider.GetState(ctx)
	if err != nil {
		c.logger.Debug("state read after connect failed", "err", &wallet.TransientFetchError{Op: "get state", Err: err})
		acct = hint
	}

	c.mu.Lock()
	if _, still := c.state.(Connecting); !still || c.epoch != epoch {
		c.mu.Unlock()
		wallet.Release(h.Provider)
		return
	}
	if acct == nil || acct.Address == "" {
		snap, fns := c.setLocked(Idle{}, fmt.Errorf("%s: %w", h.ProviderID, wallet.ErrPermissionDenied))
		c.mu.Unlock()
		c.logger.Warn("connected wallet exposes no address", "provider", h.ProviderID)
		wallet.Release(h.Provider)
		publish(snap, fns)
		return
	}
	c.mu.Unlock()

	balance := c.readBalance(ctx, h, acct.Address)

	c.mu.Lock()
	if _, still := c.state.(Connecting); !still || c.epoch != epoch {
		c.mu.Unlock()
		wallet.Release(h.Provider)
		return
	}
	snap, fns := c.enterConnectedLocked(h, *acct, balance)
	c.mu.Unlock()
	c.logConnected(snap, "connected")
	publish(snap, fns)
}

// Disconnect ends the session. Polling stops before the provider is asked to
// disconnect, and the session ends in Idle whether or not that call succeeds.
func (c *Controller) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	cur, ok := c.state.(Connected)
	if !ok {
		phase := c.state.Phase()
		c.mu.Unlock()
		return fmt.Errorf("%w: disconnect while %s", wallet.ErrInvalidState, phase)
	}
	c.stopPollingLocked()
	conn := c.conn
	epoch := c.epoch
	snap, fns := c.setLocked(Disconnecting{Handle: cur.Handle}, nil)
	c.mu.Unlock()
	publish(snap, fns)

	err := conn.Disconnect(ctx, cur.Handle)
	if err != nil {
		c.logger.Warn("disconnect reported an error", "session", cur.SessionID, "err", err)
	}

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return err
	}
	snap, fns = c.setLocked(Idle{}, err)
	c.mu.Unlock()
	c.logger.Info("disconnected", "session", cur.SessionID)
	publish(snap, fns)
	return err
}

// ToggleTheme advances to the next theme. It requires a connector.
func (c *Controller) ToggleTheme(ctx context.Context) (theme.Theme, error) {
	c.mu.Lock()
	switch c.state.(type) {
	case Uninitialized, Initializing:
		t := c.theme
		c.mu.Unlock()
		return t, fmt.Errorf("%w: no connector to theme", wallet.ErrInvalidState)
	}
	conn := c.conn
	c.theme = c.theme.Next()
	next := c.theme
	snap, fns := c.bumpLocked()
	c.mu.Unlock()
	publish(snap, fns)

	if err := conn.SetTheme(ctx, next); err != nil {
		c.logger.Warn("could not apply theme", "theme", next, "err", err)
		return next, err
	}
	return next, nil
}

// Teardown returns the controller to Uninitialized. Connect events are
// unsubscribed and any pending poll is cancelled before it returns; nothing
// started before Teardown mutates state afterwards.
func (c *Controller) Teardown() {
	c.mu.Lock()
	c.epoch++
	c.stopPollingLocked()
	for id, cancel := range c.inflight {
		cancel()
		delete(c.inflight, id)
	}
	unsub := c.unsubscribe
	c.unsubscribe = nil
	var held *wallet.Handle
	if cur, ok := c.state.(Connected); ok {
		held = cur.Handle
	}
	c.conn = nil
	snap, fns := c.setLocked(Uninitialized{}, nil)
	c.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	if held != nil {
		wallet.Release(held.Provider)
	}
	publish(snap, fns)
}

// trackLocked derives a context for a long-running command that Teardown
// cancels. done must be called without c.mu held.
func (c *Controller) trackLocked(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	if c.inflight == nil {
		c.inflight = make(map[int]context.CancelFunc)
	}
	id := c.nextOp
	c.nextOp++
	c.inflight[id] = cancel
	return ctx, func() {
		c.mu.Lock()
		delete(c.inflight, id)
		c.mu.Unlock()
		cancel()
	}
}

// -------------------- POLLING --------------------

func (c *Controller) enterConnectedLocked(h *wallet.Handle, acct wallet.AccountState, balance *big.Int) (Snapshot, []func(Snapshot)) {
	snap, fns := c.setLocked(Connected{
		Handle:    h,
		Account:   acct,
		Balance:   balance,
		SessionID: uuid.NewString(),
		Since:     time.Now(),
	}, nil)
	c.startPollingLocked()
	snap.Polling = true
	return snap, fns
}

func (c *Controller) startPollingLocked() {
	c.stopPollingLocked()
	ctx, cancel := context.WithCancel(context.Background())
	c.pollCancel = cancel
	c.polling = true
	c.scheduleLocked(ctx, c.gen)
}

func (c *Controller) scheduleLocked(ctx context.Context, gen uint64) {
	c.timer = c.sched.AfterFunc(c.interval, func() { c.tick(ctx, gen) })
}

func (c *Controller) stopPollingLocked() {
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.pollCancel != nil {
		c.pollCancel()
		c.pollCancel = nil
	}
	c.polling = false
}

// tick refreshes the account and balance, then schedules the next tick. The
// next tick is only scheduled after this fetch settles.
func (c *Controller) tick(ctx context.Context, gen uint64) {
	c.mu.Lock()
	cur, ok := c.state.(Connected)
	if gen != c.gen || !ok {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	h := cur.Handle
	c.mu.Unlock()

	fctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	acct, err := h.Provider.GetState(fctx)
	if err != nil {
		c.logger.Debug("poll failed", "err", &wallet.TransientFetchError{Op: "get state", Err: err})
		c.mu.Lock()
		if gen == c.gen {
			c.scheduleLocked(ctx, gen)
		}
		c.mu.Unlock()
		return
	}

	if acct == nil || acct.Address == "" {
		c.mu.Lock()
		if gen != c.gen {
			c.mu.Unlock()
			return
		}
		c.stopPollingLocked()
		snap, fns := c.setLocked(Idle{}, nil)
		c.mu.Unlock()
		c.logger.Info("wallet permission revoked", "session", cur.SessionID)
		wallet.Release(h.Provider)
		publish(snap, fns)
		return
	}

	balance, err := h.Provider.GetBalance(fctx, acct.Address)
	if err != nil {
		c.logger.Debug("poll failed", "err", &wallet.TransientFetchError{Op: "get balance", Err: err})
	}

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	cur, ok = c.state.(Connected)
	if !ok {
		c.mu.Unlock()
		return
	}
	next := cur
	next.Account = *acct
	if err == nil {
		next.Balance = balance
	}
	var (
		snap    Snapshot
		fns     []func(Snapshot)
		changed = next.Account != cur.Account || !sameAmount(next.Balance, cur.Balance)
	)
	if changed {
		snap, fns = c.setLocked(next, nil)
	}
	c.scheduleLocked(ctx, gen)
	c.mu.Unlock()

	if changed {
		publish(snap, fns)
	}
}

func (c *Controller) readBalance(ctx context.Context, h *wallet.Handle, address string) *big.Int {
	ctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()
	balance, err := h.Provider.GetBalance(ctx, address)
	if err != nil {
		c.logger.Debug("balance read failed", "err", &wallet.TransientFetchError{Op: "get balance", Err: err})
		return nil
	}
	return balance
}

func (c *Controller) logConnected(s Snapshot, msg string) {
	cur, ok := s.State.(Connected)
	if !ok {
		return
	}
	c.logger.Info(msg,
		"provider", cur.Handle.ProviderID,
		"origin", cur.Handle.Origin,
		"address", cur.Account.Address,
		"session", cur.SessionID,
	)
}

func sameAmount(a, b *big.Int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Cmp(b) == 0
}
