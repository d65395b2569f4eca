package registry

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"venom-connect-tui/rpc"
	"venom-connect-tui/wallet"
)

// EndpointProbe finds injected providers by dialing the JSON-RPC bridge an
// extension exposes. Bridge URLs come from configuration, or from
// VENOM_<ID>_EXTENSION_URL in the environment.
type EndpointProbe struct {
	Endpoints map[string]string
	Timeout   time.Duration
	Logger    *log.Logger
}

// EnvKey returns the environment variable consulted for id.
func EnvKey(id string) string {
	return "VENOM_" + strings.ToUpper(id) + "_EXTENSION_URL"
}

func (p *EndpointProbe) url(id string) string {
	if u := os.Getenv(EnvKey(id)); u != "" {
		return u
	}
	return p.Endpoints[id]
}

// Injected dials the bridge for id and confirms it answers getProviderState.
func (p *EndpointProbe) Injected(ctx context.Context, id string) (wallet.Provider, bool) {
	url := p.url(id)
	if url == "" {
		return nil, false
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	result := rpc.ConnectWithTimeout(url, timeout)
	if result.Error != nil {
		p.logger().Debug("extension bridge unavailable", "provider", id, "err", result.Error)
		return nil, false
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if _, err := result.Client.GetProviderState(pingCtx); err != nil {
		p.logger().Debug("extension bridge did not answer", "provider", id, "err", err)
		result.Client.Close()
		return nil, false
	}
	return result.Client, true
}

func (p *EndpointProbe) logger() *log.Logger {
	if p.Logger == nil {
		return log.Default()
	}
	return p.Logger
}
