package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/tidwall/gjson"

	"venom-connect-tui/wallet"
)

// InpageClient talks to the JSON-RPC bridge a wallet extension exposes.
// The method set mirrors the everscale inpage provider.
type InpageClient struct {
	*gethrpc.Client
	URL string
}

// ConnectResult holds the result of a bridge connection attempt
type ConnectResult struct {
	Client *InpageClient
	Error  error
}

// ConnectWithTimeout attempts to connect with a custom timeout
func ConnectWithTimeout(url string, timeout time.Duration) ConnectResult {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client, err := gethrpc.DialContext(ctx, url)
	if err != nil {
		return ConnectResult{Client: nil, Error: err}
	}

	return ConnectResult{
		Client: &InpageClient{
			Client: client,
			URL:    url,
		},
		Error: nil,
	}
}

// ProviderState is the decoded getProviderState response.
type ProviderState struct {
	NetworkID uint32
	Account   *wallet.AccountState
}

// GetProviderState queries network and permission state without prompting.
func (c *InpageClient) GetProviderState(ctx context.Context) (*ProviderState, error) {
	res, err := c.call(ctx, "getProviderState")
	if err != nil {
		return nil, err
	}
	return &ProviderState{
		NetworkID: uint32(res.Get("networkId").Uint()),
		Account:   parseAccount(res.Get("permissions.accountInteraction")),
	}, nil
}

// GetState implements wallet.Provider.
func (c *InpageClient) GetState(ctx context.Context) (*wallet.AccountState, error) {
	st, err := c.GetProviderState(ctx)
	if err != nil {
		return nil, err
	}
	return st.Account, nil
}

// NetworkID implements wallet.NetworkReporter.
func (c *InpageClient) NetworkID(ctx context.Context) (uint32, error) {
	st, err := c.GetProviderState(ctx)
	if err != nil {
		return 0, err
	}
	return st.NetworkID, nil
}

// RequestPermissions asks the extension for basic and account-interaction access.
// The extension may show its own approval prompt.
func (c *InpageClient) RequestPermissions(ctx context.Context) (*wallet.AccountState, error) {
	res, err := c.call(ctx, "requestPermissions", map[string]interface{}{
		"permissions": []string{"basic", "accountInteraction"},
	})
	if err != nil {
		var rpcErr gethrpc.Error
		if errors.As(err, &rpcErr) {
			return nil, fmt.Errorf("%w: %s", wallet.ErrPermissionDenied, rpcErr.Error())
		}
		return nil, err
	}
	acct := parseAccount(res.Get("accountInteraction"))
	if acct == nil {
		return nil, wallet.ErrPermissionDenied
	}
	return acct, nil
}

// GetBalance implements wallet.Provider via getFullContractState.
// A contract that does not exist yet has a zero balance.
func (c *InpageClient) GetBalance(ctx context.Context, address string) (*big.Int, error) {
	res, err := c.call(ctx, "getFullContractState", map[string]string{"address": address})
	if err != nil {
		return nil, err
	}
	state := res.Get("state")
	if !state.Exists() || state.Type == gjson.Null {
		return big.NewInt(0), nil
	}
	return wallet.ParseAmount(state.Get("balance").String())
}

// Disconnect revokes the permissions granted to this client.
func (c *InpageClient) Disconnect(ctx context.Context) error {
	return c.CallContext(ctx, nil, "disconnect")
}

func (c *InpageClient) call(ctx context.Context, method string, args ...interface{}) (gjson.Result, error) {
	var raw json.RawMessage
	if err := c.CallContext(ctx, &raw, method, args...); err != nil {
		return gjson.Result{}, fmt.Errorf("%s: %w", method, err)
	}
	return gjson.ParseBytes(raw), nil
}

func parseAccount(r gjson.Result) *wallet.AccountState {
	if !r.Exists() || r.Type == gjson.Null {
		return nil
	}
	addr := r.Get("address").String()
	if addr == "" {
		return nil
	}
	return &wallet.AccountState{
		Address:   addr,
		PublicKey: r.Get("publicKey").String(),
	}
}
