package session

import (
	"context"
	"errors"
	"io"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"venom-connect-tui/connector"
	"venom-connect-tui/registry"
	"venom-connect-tui/theme"
	"venom-connect-tui/wallet"
)

const (
	testAddress = "0:abc0000000000000000000000000000000000000000000000000000000000123"
	interval    = 7 * time.Second
)

type harness struct {
	t     *testing.T
	ctrl  *Controller
	conn  *fakeConnector
	sched *manualScheduler

	mu    sync.Mutex
	snaps []Snapshot
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{t: t, conn: newConnector(), sched: &manualScheduler{}}
	h.ctrl = New(Options{
		Initializer:  initializerFor(h.conn),
		Scheduler:    h.sched,
		PollInterval: interval,
		Logger:       log.New(io.Discard),
	})
	h.ctrl.Subscribe(func(s Snapshot) {
		h.mu.Lock()
		h.snaps = append(h.snaps, s)
		h.mu.Unlock()
	})
	return h
}

func (h *harness) phases() []Phase {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Phase, 0, len(h.snaps))
	for _, s := range h.snaps {
		out = append(out, s.Phase())
	}
	return out
}

func (h *harness) published() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.snaps)
}

func (h *harness) connectWith(p *fakeProvider) {
	h.t.Helper()
	h.conn.onConnect = &wallet.Handle{ProviderID: "venomwallet", Origin: wallet.OriginInjected, Provider: p}
	require.NoError(h.t, h.ctrl.Connect(context.Background()))
	require.Equal(h.t, PhaseConnected, h.ctrl.Snapshot().Phase())
}

func TestEndToEndConnect(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.ctrl.Init(ctx))
	assert.Equal(t, PhaseIdle, h.ctrl.Snapshot().Phase())
	assert.Equal(t, 1, h.conn.subscribers())

	require.NoError(t, h.ctrl.Connect(ctx))
	assert.Equal(t, PhaseConnecting, h.ctrl.Snapshot().Phase())

	p := newProvider(testAddress, 5_000_000_000)
	h.conn.fire(&wallet.Handle{ProviderID: "venomwallet", Provider: p})

	snap := h.ctrl.Snapshot()
	require.Equal(t, PhaseConnected, snap.Phase())
	assert.Equal(t, testAddress, snap.Account().Address)
	assert.Equal(t, "5.0000 VENOM", snap.BalanceText())
	assert.True(t, snap.Polling)
	assert.NotEmpty(t, snap.State.(Connected).SessionID)
	assert.Equal(t, 1, h.sched.Pending())

	assert.Equal(t, []Phase{PhaseInitializing, PhaseIdle, PhaseConnecting, PhaseConnected}, h.phases())
}

func TestInitConnectDisconnectEndsIdle(t *testing.T) {
	for _, advance := range []time.Duration{0, interval, 3 * interval, interval / 2} {
		h := newHarness(t)
		ctx := context.Background()
		p := newProvider(testAddress, 1)

		require.NoError(t, h.ctrl.Init(ctx))
		h.connectWith(p)
		h.sched.Advance(advance)
		require.NoError(t, h.ctrl.Disconnect(ctx))

		snap := h.ctrl.Snapshot()
		assert.Equal(t, PhaseIdle, snap.Phase())
		assert.False(t, snap.Polling)
		assert.Nil(t, snap.Account())
		assert.Zero(t, h.sched.Pending(), "no tick may remain scheduled")
		require.Len(t, h.conn.disconnected, 1)
		assert.Same(t, p, h.conn.disconnected[0].Provider)

		before := p.stateCalls
		h.sched.Advance(10 * interval)
		assert.Equal(t, before, p.stateCalls)
	}
}

func TestDisconnectErrorStillEndsIdle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.ctrl.Init(ctx))
	h.connectWith(newProvider(testAddress, 1))

	h.conn.disconnectErr = errors.New("bridge closed")
	err := h.ctrl.Disconnect(ctx)
	assert.Error(t, err)

	snap := h.ctrl.Snapshot()
	assert.Equal(t, PhaseIdle, snap.Phase())
	assert.ErrorIs(t, snap.Err, h.conn.disconnectErr)
	assert.Contains(t, h.phases(), PhaseDisconnecting)
}

func TestExistingAuthSkipsConnect(t *testing.T) {
	h := newHarness(t)
	p := newProvider(testAddress, 2_500_000_000)
	h.conn.authHandle = &wallet.Handle{ProviderID: "venomwallet", Origin: wallet.OriginInjected, Provider: p}

	require.NoError(t, h.ctrl.Init(context.Background()))

	snap := h.ctrl.Snapshot()
	require.Equal(t, PhaseConnected, snap.Phase())
	assert.Equal(t, "2.5000 VENOM", snap.BalanceText())
	assert.Zero(t, h.conn.connects)
	assert.Equal(t, 1, h.sched.Pending())
	assert.Equal(t, []Phase{PhaseInitializing, PhaseConnected}, h.phases())
}

func TestInitFailure(t *testing.T) {
	h := newHarness(t)
	h.ctrl = New(Options{Initializer: failingInitializer(errNetwork), Scheduler: h.sched, Logger: log.New(io.Discard)})

	err := h.ctrl.Init(context.Background())
	var initErr *wallet.InitializationError
	require.ErrorAs(t, err, &initErr)
	assert.ErrorIs(t, err, errNetwork)

	snap := h.ctrl.Snapshot()
	assert.Equal(t, PhaseUninitialized, snap.Phase())
	assert.ErrorAs(t, snap.Err, &initErr)

	// retrying init is the recovery path
	h.ctrl.initializer = initializerFor(h.conn)
	require.NoError(t, h.ctrl.Init(context.Background()))
	assert.Equal(t, PhaseIdle, h.ctrl.Snapshot().Phase())
	assert.NoError(t, h.ctrl.Snapshot().Err)
}

func TestCheckAuthErrorLeavesIdle(t *testing.T) {
	h := newHarness(t)
	h.conn.authErr = errors.New("extension timeout")
	require.NoError(t, h.ctrl.Init(context.Background()))
	assert.Equal(t, PhaseIdle, h.ctrl.Snapshot().Phase())
}

func TestInvalidStateCommands(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	assert.ErrorIs(t, h.ctrl.Connect(ctx), wallet.ErrInvalidState)
	assert.ErrorIs(t, h.ctrl.Disconnect(ctx), wallet.ErrInvalidState)
	_, err := h.ctrl.ToggleTheme(ctx)
	assert.ErrorIs(t, err, wallet.ErrInvalidState)

	require.NoError(t, h.ctrl.Init(ctx))
	assert.ErrorIs(t, h.ctrl.Init(ctx), wallet.ErrInvalidState)
	assert.ErrorIs(t, h.ctrl.Disconnect(ctx), wallet.ErrInvalidState)

	h.connectWith(newProvider(testAddress, 1))
	assert.ErrorIs(t, h.ctrl.Connect(ctx), wallet.ErrInvalidState)
	assert.Equal(t, 1, h.conn.connects)
}

func TestConnectFailureReturnsIdle(t *testing.T) {
	ctx := context.Background()

	t.Run("error", func(t *testing.T) {
		h := newHarness(t)
		require.NoError(t, h.ctrl.Init(ctx))
		h.conn.connectErr = wallet.ErrPermissionDenied

		assert.ErrorIs(t, h.ctrl.Connect(ctx), wallet.ErrPermissionDenied)
		snap := h.ctrl.Snapshot()
		assert.Equal(t, PhaseIdle, snap.Phase())
		assert.ErrorIs(t, snap.Err, wallet.ErrPermissionDenied)
	})

	t.Run("cancelled", func(t *testing.T) {
		h := newHarness(t)
		require.NoError(t, h.ctrl.Init(ctx))
		h.conn.connectErr = connector.ErrSelectionCancelled

		assert.ErrorIs(t, h.ctrl.Connect(ctx), connector.ErrSelectionCancelled)
		snap := h.ctrl.Snapshot()
		assert.Equal(t, PhaseIdle, snap.Phase())
		assert.NoError(t, snap.Err)
	})

	t.Run("handle without address", func(t *testing.T) {
		h := newHarness(t)
		require.NoError(t, h.ctrl.Init(ctx))
		require.NoError(t, h.ctrl.Connect(ctx))

		p := &fakeProvider{balance: big.NewInt(0)}
		h.conn.fire(&wallet.Handle{ProviderID: "venomwallet", Provider: p})

		snap := h.ctrl.Snapshot()
		assert.Equal(t, PhaseIdle, snap.Phase())
		assert.ErrorIs(t, snap.Err, wallet.ErrPermissionDenied)
		assert.True(t, p.closed)
		assert.Zero(t, h.sched.Pending())
	})
}

func TestConnectEventOutsideConnectingIgnored(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.ctrl.Init(context.Background()))

	p := newProvider(testAddress, 1)
	h.conn.fire(&wallet.Handle{ProviderID: "venomwallet", Provider: p})

	assert.Equal(t, PhaseIdle, h.ctrl.Snapshot().Phase())
	assert.True(t, p.closed)
	assert.Zero(t, h.sched.Pending())
}

func TestPollingRefreshesBalance(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.ctrl.Init(context.Background()))
	p := newProvider(testAddress, 1_000_000_000)
	h.connectWith(p)

	h.sched.Advance(interval - time.Millisecond)
	assert.Equal(t, "1.0000 VENOM", h.ctrl.Snapshot().BalanceText())

	p.set(func(p *fakeProvider) { p.balance = big.NewInt(1_000_050_000) })
	h.sched.Advance(time.Millisecond)
	assert.Equal(t, "1.0001 VENOM", h.ctrl.Snapshot().BalanceText())
	assert.Equal(t, 1, h.sched.Pending())

	published := h.published()
	h.sched.Advance(interval)
	assert.Equal(t, published, h.published(), "unchanged tick publishes nothing")
	assert.Equal(t, 1, h.sched.Pending())
}

func TestBalanceFailureKeepsPreviousAmount(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.ctrl.Init(context.Background()))
	p := newProvider(testAddress, 5_000_000_000)
	h.connectWith(p)

	p.set(func(p *fakeProvider) {
		p.balance = big.NewInt(1)
		p.balanceErr = errors.New("timeout")
	})
	for i := 0; i < 3; i++ {
		calls := p.balCalls
		h.sched.Advance(interval)
		assert.Equal(t, calls+1, p.balCalls)

		snap := h.ctrl.Snapshot()
		assert.Equal(t, PhaseConnected, snap.Phase())
		assert.Equal(t, "5.0000 VENOM", snap.BalanceText())
		assert.NoError(t, snap.Err)
		assert.Equal(t, 1, h.sched.Pending(), "a new tick must still be scheduled")
	}

	p.set(func(p *fakeProvider) { p.balanceErr = nil })
	h.sched.Advance(interval)
	assert.Equal(t, "0.0000 VENOM", h.ctrl.Snapshot().BalanceText())
}

func TestStateFailureIsTransient(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.ctrl.Init(context.Background()))
	p := newProvider(testAddress, 5_000_000_000)
	h.connectWith(p)

	p.set(func(p *fakeProvider) { p.stateErr = errors.New("bridge hiccup") })
	h.sched.Advance(interval)

	snap := h.ctrl.Snapshot()
	assert.Equal(t, PhaseConnected, snap.Phase())
	assert.Equal(t, testAddress, snap.Account().Address)
	assert.Equal(t, 1, h.sched.Pending())
}

func TestRevokedPermissionStopsPolling(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.ctrl.Init(context.Background()))
	p := newProvider(testAddress, 5_000_000_000)
	h.connectWith(p)

	p.set(func(p *fakeProvider) { p.account = nil })
	h.sched.Advance(interval)

	snap := h.ctrl.Snapshot()
	assert.Equal(t, PhaseIdle, snap.Phase())
	assert.Nil(t, snap.Account())
	assert.Nil(t, snap.Balance())
	assert.False(t, snap.Polling)
	assert.NoError(t, snap.Err)
	assert.Zero(t, h.sched.Pending())
	assert.True(t, p.closed)

	calls := p.stateCalls
	h.sched.Advance(10 * interval)
	assert.Equal(t, calls, p.stateCalls)

	// a new connection can follow
	h.connectWith(newProvider(testAddress, 7))
}

func TestTeardownWithPendingTimer(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.ctrl.Init(context.Background()))
	p := newProvider(testAddress, 5_000_000_000)
	h.connectWith(p)
	require.Equal(t, 1, h.sched.Pending())

	h.ctrl.Teardown()
	assert.Equal(t, PhaseUninitialized, h.ctrl.Snapshot().Phase())
	assert.Zero(t, h.conn.subscribers())
	assert.Zero(t, h.sched.Pending())
	assert.True(t, p.closed)

	published := h.published()
	version := h.ctrl.Snapshot().Version
	calls := p.stateCalls

	h.sched.Advance(10 * interval)
	assert.Equal(t, 1, h.sched.fireStopped(), "stale timer runs anyway")

	assert.Equal(t, published, h.published())
	assert.Equal(t, version, h.ctrl.Snapshot().Version)
	assert.Equal(t, calls, p.stateCalls)

	// events after teardown reach nobody
	h.conn.fire(&wallet.Handle{ProviderID: "venomwallet", Provider: newProvider(testAddress, 1)})
	assert.Equal(t, version, h.ctrl.Snapshot().Version)
}

func TestTeardownThenReinit(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.ctrl.Init(ctx))
	h.ctrl.Teardown()

	require.NoError(t, h.ctrl.Init(ctx))
	assert.Equal(t, PhaseIdle, h.ctrl.Snapshot().Phase())
	assert.Equal(t, 1, h.conn.subscribers(), "handlers must not leak across re-initializations")
}

// realConnector builds a controller over connector.Connector with a selector
// that blocks until release is closed.
func realConnector(t *testing.T, injected wallet.Provider, release <-chan struct{}) (*Controller, <-chan struct{}) {
	t.Helper()
	reg, err := registry.Build(registry.DefaultEntries(), registry.Options{
		Probe: registry.ProbeFunc(func(_ context.Context, id string) (wallet.Provider, bool) {
			return injected, injected != nil && id == "venomwallet"
		}),
		Fallback: func(context.Context) (wallet.Provider, error) {
			return nil, errors.New("no fallback")
		},
	})
	require.NoError(t, err)

	entered := make(chan struct{})
	sel := connector.SelectorFunc(func(context.Context, []registry.Descriptor, theme.Theme) (string, error) {
		close(entered)
		<-release
		return "venomwallet", nil
	})
	ctrl := New(Options{
		Initializer: func(ctx context.Context) (Connector, error) {
			return connector.Initialize(ctx, connector.Options{Registry: reg, Selector: sel})
		},
		Scheduler: &manualScheduler{},
		Logger:    log.New(io.Discard),
	})
	return ctrl, entered
}

// grantingProvider has no account until permissions are requested.
type grantingProvider struct {
	*fakeProvider
}

func (g grantingProvider) RequestPermissions(context.Context) (*wallet.AccountState, error) {
	g.set(func(p *fakeProvider) { p.account = &wallet.AccountState{Address: testAddress} })
	return &wallet.AccountState{Address: testAddress}, nil
}

func TestTeardownDuringSelectionCancelsConnect(t *testing.T) {
	release := make(chan struct{})
	ctrl, entered := realConnector(t, nil, release)
	require.NoError(t, ctrl.Init(context.Background()))
	require.Equal(t, PhaseIdle, ctrl.Snapshot().Phase())

	done := make(chan error, 1)
	go func() { done <- ctrl.Connect(context.Background()) }()
	<-entered

	ctrl.Teardown()
	close(release)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("connect did not return after teardown")
	}
	assert.Equal(t, PhaseUninitialized, ctrl.Snapshot().Phase())
	ctrl.mu.Lock()
	assert.Empty(t, ctrl.inflight)
	ctrl.mu.Unlock()
}

func TestTeardownDuringSelectionReleasesHandle(t *testing.T) {
	p := &fakeProvider{balance: big.NewInt(5_000_000_000)}
	release := make(chan struct{})
	ctrl, entered := realConnector(t, grantingProvider{p}, release)
	require.NoError(t, ctrl.Init(context.Background()))
	require.Equal(t, PhaseIdle, ctrl.Snapshot().Phase())
	// CheckAuth released the unauthorized handle
	p.set(func(p *fakeProvider) { p.closed = false })

	done := make(chan error, 1)
	go func() { done <- ctrl.Connect(context.Background()) }()
	<-entered

	ctrl.Teardown()
	close(release)

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("connect did not return after teardown")
	}
	assert.Equal(t, PhaseUninitialized, ctrl.Snapshot().Phase())
	p.mu.Lock()
	assert.True(t, p.closed, "handle acquired after teardown must be released")
	p.mu.Unlock()
}

func TestToggleTheme(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.ctrl.Init(ctx))
	assert.Equal(t, theme.Light, h.ctrl.Snapshot().Theme)

	var got []theme.Theme
	for i := 0; i < 6; i++ {
		next, err := h.ctrl.ToggleTheme(ctx)
		require.NoError(t, err)
		got = append(got, next)
	}
	assert.Equal(t, []theme.Theme{theme.Dark, theme.Venom, theme.Light, theme.Dark, theme.Venom, theme.Light}, got)
	assert.Equal(t, append([]theme.Theme{theme.Light}, got...), h.conn.themes)

	// toggling does not touch the session
	assert.Equal(t, PhaseIdle, h.ctrl.Snapshot().Phase())
}

func TestToggleThemeWhileConnected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.ctrl.Init(ctx))
	h.connectWith(newProvider(testAddress, 1))
	id := h.ctrl.Snapshot().State.(Connected).SessionID

	_, err := h.ctrl.ToggleTheme(ctx)
	require.NoError(t, err)
	snap := h.ctrl.Snapshot()
	assert.Equal(t, theme.Dark, snap.Theme)
	assert.Equal(t, id, snap.State.(Connected).SessionID)
	assert.Equal(t, 1, h.sched.Pending())
}

func TestSnapshotVersionsIncrease(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.ctrl.Init(ctx))
	h.connectWith(newProvider(testAddress, 1))
	require.NoError(t, h.ctrl.Disconnect(ctx))

	h.mu.Lock()
	defer h.mu.Unlock()
	for i := 1; i < len(h.snaps); i++ {
		assert.Greater(t, h.snaps[i].Version, h.snaps[i-1].Version)
	}
}

// slowProvider tracks how many reads overlap.
type slowProvider struct {
	delay    time.Duration
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	calls    atomic.Int32
}

func (s *slowProvider) enter() func() {
	n := s.inFlight.Inc()
	for {
		m := s.maxSeen.Load()
		if n <= m || s.maxSeen.CAS(m, n) {
			break
		}
	}
	return func() { s.inFlight.Dec() }
}

func (s *slowProvider) GetState(context.Context) (*wallet.AccountState, error) {
	defer s.enter()()
	s.calls.Inc()
	time.Sleep(s.delay)
	return &wallet.AccountState{Address: testAddress}, nil
}

func (s *slowProvider) GetBalance(context.Context, string) (*big.Int, error) {
	defer s.enter()()
	time.Sleep(s.delay)
	return big.NewInt(1), nil
}

func (s *slowProvider) Disconnect(context.Context) error { return nil }

func TestPollingNeverOverlaps(t *testing.T) {
	for _, tc := range []struct{ interval, delay time.Duration }{
		{time.Millisecond, 15 * time.Millisecond},
		{5 * time.Millisecond, 5 * time.Millisecond},
		{10 * time.Millisecond, time.Millisecond},
	} {
		p := &slowProvider{delay: tc.delay}
		conn := newConnector()
		conn.authHandle = &wallet.Handle{ProviderID: "venomwallet", Provider: p}

		ctrl := New(Options{
			Initializer:  initializerFor(conn),
			PollInterval: tc.interval,
			Logger:       log.New(io.Discard),
		})
		require.NoError(t, ctrl.Init(context.Background()))
		time.Sleep(150 * time.Millisecond)
		ctrl.Teardown()

		assert.Equal(t, int32(1), p.maxSeen.Load(), "interval %s delay %s", tc.interval, tc.delay)
		assert.GreaterOrEqual(t, p.calls.Load(), int32(3))
	}
}
