package session

import (
	"math/big"
	"time"

	"venom-connect-tui/theme"
	"venom-connect-tui/wallet"
)

// Phase names a session state without its payload.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseInitializing
	PhaseIdle
	PhaseConnecting
	PhaseConnected
	PhaseDisconnecting
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseInitializing:
		return "initializing"
	case PhaseIdle:
		return "idle"
	case PhaseConnecting:
		return "connecting"
	case PhaseConnected:
		return "connected"
	case PhaseDisconnecting:
		return "disconnecting"
	default:
		return "unknown"
	}
}

// State is the controller's session state. The set of implementations is closed.
type State interface {
	Phase() Phase
	isState()
}

type Uninitialized struct{}

type Initializing struct{}

// Idle means a connector exists but no session is held.
type Idle struct{}

type Connecting struct{}

// Connected holds the provider handle of the active session. Account is always
// set; Balance is nil until the first successful read.
type Connected struct {
	Handle    *wallet.Handle
	Account   wallet.AccountState
	Balance   *big.Int
	SessionID string
	Since     time.Time
}

type Disconnecting struct {
	Handle *wallet.Handle
}

func (Uninitialized) Phase() Phase { return PhaseUninitialized }
func (Initializing) Phase() Phase  { return PhaseInitializing }
func (Idle) Phase() Phase          { return PhaseIdle }
func (Connecting) Phase() Phase    { return PhaseConnecting }
func (Connected) Phase() Phase     { return PhaseConnected }
func (Disconnecting) Phase() Phase { return PhaseDisconnecting }

func (Uninitialized) isState() {}
func (Initializing) isState()  {}
func (Idle) isState()          {}
func (Connecting) isState()    {}
func (Connected) isState()     {}
func (Disconnecting) isState() {}

// Snapshot is an immutable view of the controller published to observers.
// Versions increase strictly; a consumer can drop any snapshot older than the
// last one it rendered.
type Snapshot struct {
	Version   uint64
	State     State
	Theme     theme.Theme
	Polling   bool
	Err       error
	UpdatedAt time.Time
}

func (s Snapshot) Phase() Phase {
	if s.State == nil {
		return PhaseUninitialized
	}
	return s.State.Phase()
}

// Account returns the connected account, or nil outside Connected.
func (s Snapshot) Account() *wallet.AccountState {
	if c, ok := s.State.(Connected); ok {
		acct := c.Account
		return &acct
	}
	return nil
}

// Balance returns a copy of the connected balance, or nil when unknown.
func (s Snapshot) Balance() *big.Int {
	if c, ok := s.State.(Connected); ok && c.Balance != nil {
		return new(big.Int).Set(c.Balance)
	}
	return nil
}

// BalanceText is the display form of Balance.
func (s Snapshot) BalanceText() string {
	return wallet.FormatAmount(s.Balance())
}

// Handle returns the held provider handle, if any.
func (s Snapshot) Handle() *wallet.Handle {
	switch st := s.State.(type) {
	case Connected:
		return st.Handle
	case Disconnecting:
		return st.Handle
	}
	return nil
}

// CanToggleTheme reports whether a connector exists to apply a theme to.
func (s Snapshot) CanToggleTheme() bool {
	switch s.Phase() {
	case PhaseUninitialized, PhaseInitializing:
		return false
	}
	return true
}

// Busy reports whether a command is in progress.
func (s Snapshot) Busy() bool {
	switch s.Phase() {
	case PhaseInitializing, PhaseConnecting, PhaseDisconnecting:
		return true
	}
	return false
}
