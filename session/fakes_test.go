package session

import (
	"context"
	"errors"
	"math/big"
	"sort"
	"sync"
	"time"

	"venom-connect-tui/connector"
	"venom-connect-tui/theme"
	"venom-connect-tui/wallet"
)

// -------------------- MANUAL SCHEDULER --------------------

type manualTimer struct {
	s       *manualScheduler
	at      time.Duration
	seq     int
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// manualScheduler fires timers only when Advance moves its clock past them.
type manualScheduler struct {
	mu     sync.Mutex
	now    time.Duration
	seq    int
	timers []*manualTimer
	fired  int
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t := &manualTimer{s: s, at: s.now + d, seq: s.seq, f: f}
	s.timers = append(s.timers, t)
	return t
}

// Pending counts timers that have neither fired nor been stopped.
func (s *manualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// Fired counts timer callbacks that have run.
func (s *manualScheduler) Fired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fired
}

func (s *manualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()

	for {
		s.mu.Lock()
		var due []*manualTimer
		for _, t := range s.timers {
			if !t.stopped && !t.fired && t.at <= target {
				due = append(due, t)
			}
		}
		if len(due) == 0 {
			s.now = target
			s.mu.Unlock()
			return
		}
		sort.Slice(due, func(i, j int) bool {
			if due[i].at == due[j].at {
				return due[i].seq < due[j].seq
			}
			return due[i].at < due[j].at
		})
		next := due[0]
		next.fired = true
		s.fired++
		s.now = next.at
		s.mu.Unlock()

		next.f()
	}
}

// fireStopped runs a stopped timer's callback anyway, as a timer racing Stop would.
func (s *manualScheduler) fireStopped() int {
	s.mu.Lock()
	var stale []*manualTimer
	for _, t := range s.timers {
		if t.stopped {
			stale = append(stale, t)
		}
	}
	s.mu.Unlock()
	for _, t := range stale {
		t.f()
	}
	return len(stale)
}

// -------------------- FAKE PROVIDER --------------------

type fakeProvider struct {
	mu         sync.Mutex
	account    *wallet.AccountState
	balance    *big.Int
	stateErr   error
	balanceErr error
	stateCalls int
	balCalls   int
	closed     bool
}

func newProvider(address string, balance int64) *fakeProvider {
	return &fakeProvider{
		account: &wallet.AccountState{Address: address},
		balance: big.NewInt(balance),
	}
}

func (f *fakeProvider) GetState(context.Context) (*wallet.AccountState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stateCalls++
	if f.stateErr != nil {
		return nil, f.stateErr
	}
	if f.account == nil {
		return nil, nil
	}
	acct := *f.account
	return &acct, nil
}

func (f *fakeProvider) GetBalance(context.Context, string) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balCalls++
	if f.balanceErr != nil {
		return nil, f.balanceErr
	}
	return new(big.Int).Set(f.balance), nil
}

func (f *fakeProvider) Disconnect(context.Context) error { return nil }

func (f *fakeProvider) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func (f *fakeProvider) set(fn func(p *fakeProvider)) {
	f.mu.Lock()
	fn(f)
	f.mu.Unlock()
}

// -------------------- FAKE CONNECTOR --------------------

type fakeConnector struct {
	mu       sync.Mutex
	handlers map[int]connector.ConnectHandler
	next     int

	authHandle *wallet.Handle
	authErr    error
	connectErr error
	// onConnect, when set, is emitted synchronously from Connect.
	onConnect *wallet.Handle

	connects      int
	disconnected  []*wallet.Handle
	disconnectErr error
	themes        []theme.Theme
}

func newConnector() *fakeConnector {
	return &fakeConnector{handlers: map[int]connector.ConnectHandler{}}
}

func (f *fakeConnector) CheckAuth(ctx context.Context) (*wallet.Handle, *wallet.AccountState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.authErr != nil {
		return nil, nil, f.authErr
	}
	if f.authHandle == nil {
		return nil, nil, nil
	}
	acct, _ := f.authHandle.Provider.GetState(ctx)
	return f.authHandle, acct, nil
}

func (f *fakeConnector) Connect(ctx context.Context) error {
	f.mu.Lock()
	f.connects++
	err := f.connectErr
	h := f.onConnect
	f.mu.Unlock()
	if err != nil {
		return err
	}
	if h != nil {
		f.fire(h)
	}
	return nil
}

func (f *fakeConnector) Disconnect(_ context.Context, h *wallet.Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnected = append(f.disconnected, h)
	return f.disconnectErr
}

func (f *fakeConnector) SetTheme(_ context.Context, t theme.Theme) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.themes = append(f.themes, t)
	return nil
}

func (f *fakeConnector) OnConnect(fn connector.ConnectHandler) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.next
	f.next++
	f.handlers[id] = fn
	return func() {
		f.mu.Lock()
		delete(f.handlers, id)
		f.mu.Unlock()
	}
}

func (f *fakeConnector) subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handlers)
}

// fire emits a connect event to every subscriber, as the wallet library would.
func (f *fakeConnector) fire(h *wallet.Handle) {
	f.mu.Lock()
	handlers := make([]connector.ConnectHandler, 0, len(f.handlers))
	for _, fn := range f.handlers {
		handlers = append(handlers, fn)
	}
	f.mu.Unlock()

	acct, _ := h.Provider.GetState(context.Background())
	for _, fn := range handlers {
		fn(h, acct)
	}
}

func initializerFor(conn Connector) Initializer {
	return func(context.Context) (Connector, error) { return conn, nil }
}

func failingInitializer(err error) Initializer {
	return func(context.Context) (Connector, error) { return nil, err }
}

var errNetwork = errors.New("network unreachable")
