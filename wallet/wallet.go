package wallet

import (
	"context"
	"math/big"
)

// Provider is the capability set a connected wallet exposes to the session.
type Provider interface {
	// GetState returns the account the wallet granted interaction permission for,
	// or nil when no such permission exists.
	GetState(ctx context.Context) (*AccountState, error)
	// GetBalance returns the balance of address in nano units.
	GetBalance(ctx context.Context, address string) (*big.Int, error)
	Disconnect(ctx context.Context) error
}

// PermissionRequester is implemented by providers that must be asked for account
// access before GetState reports an account.
type PermissionRequester interface {
	RequestPermissions(ctx context.Context) (*AccountState, error)
}

// NetworkReporter is implemented by providers that know which network they serve.
type NetworkReporter interface {
	NetworkID(ctx context.Context) (uint32, error)
}

// AccountState holds the account a wallet granted interaction permission for.
type AccountState struct {
	Address   string
	PublicKey string
}

// Origin records how a provider handle was obtained.
type Origin int

const (
	OriginStandalone Origin = iota
	OriginInjected
)

func (o Origin) String() string {
	switch o {
	case OriginInjected:
		return "extension"
	case OriginStandalone:
		return "standalone"
	default:
		return "unknown"
	}
}

// Handle is a provider together with the registry entry it was acquired from.
type Handle struct {
	ProviderID string
	Origin     Origin
	Provider   Provider
}

// Release frees transport resources held by p, if it holds any.
func Release(p Provider) {
	if c, ok := p.(interface{ Close() }); ok {
		c.Close()
	}
}
