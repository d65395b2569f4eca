package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"
	"go.uber.org/atomic"

	"venom-connect-tui/wallet"
)

var (
	// ErrNotReady is returned when the endpoint reports it is not serving requests.
	ErrNotReady = errors.New("rpc endpoint not ready")
	// ErrBalanceUnavailable is returned when a contract state carries no decoded balance.
	ErrBalanceUnavailable = errors.New("balance not present in contract state")
	// ErrNoAccount is returned when a standalone provider has no account to offer.
	ErrNoAccount = errors.New("standalone provider has no account (set watch_address)")
)

// Error is a JSON-RPC error object returned by the endpoint.
type Error struct {
	Code    int64
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type jsonRPCRequest struct {
	ID      int64       `json:"id"`
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// StandaloneClient calls a public jrpc endpoint directly, without an extension.
// Transient HTTP failures are retried a bounded number of times.
type StandaloneClient struct {
	endpoint string
	http     *retryablehttp.Client
	ids      atomic.Int64
}

// NewStandaloneClient creates a client bound to endpoint.
func NewStandaloneClient(endpoint string, timeout time.Duration) *StandaloneClient {
	hc := retryablehttp.NewClient()
	hc.RetryMax = 2
	hc.RetryWaitMin = 200 * time.Millisecond
	hc.RetryWaitMax = time.Second
	hc.HTTPClient.Timeout = timeout
	hc.Logger = nil

	return &StandaloneClient{endpoint: endpoint, http: hc}
}

// Endpoint returns the URL the client posts to.
func (c *StandaloneClient) Endpoint() string { return c.endpoint }

// Call performs one JSON-RPC request and returns its result member.
func (c *StandaloneClient) Call(ctx context.Context, method string, params interface{}) (gjson.Result, error) {
	body, err := json.Marshal(jsonRPCRequest{
		ID:      c.ids.Inc(),
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return gjson.Result{}, fmt.Errorf("encode %s request: %w", method, err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return gjson.Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("read %s response: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return gjson.Result{}, fmt.Errorf("%s: unexpected status %s", method, resp.Status)
	}
	if !gjson.ValidBytes(data) {
		return gjson.Result{}, fmt.Errorf("%s: malformed response", method)
	}

	parsed := gjson.ParseBytes(data)
	if e := parsed.Get("error"); e.Exists() && e.Type != gjson.Null {
		return gjson.Result{}, &Error{Code: e.Get("code").Int(), Message: e.Get("message").String()}
	}
	return parsed.Get("result"), nil
}

// Status checks that the endpoint is reachable and ready.
func (c *StandaloneClient) Status(ctx context.Context) error {
	res, err := c.Call(ctx, "getStatus", nil)
	if err != nil {
		return err
	}
	if !res.Get("isReady").Bool() && !res.Get("ready").Bool() {
		return ErrNotReady
	}
	return nil
}

// Balance reads the balance of address from getContractState.
func (c *StandaloneClient) Balance(ctx context.Context, address string) (*big.Int, error) {
	res, err := c.Call(ctx, "getContractState", map[string]string{"address": address})
	if err != nil {
		return nil, err
	}
	if res.Get("type").String() == "notExists" {
		return big.NewInt(0), nil
	}
	for _, path := range []string{"balance", "account.balance"} {
		if v := res.Get(path); v.Exists() {
			return wallet.ParseAmount(v.String())
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrBalanceUnavailable, address)
}

// StandaloneProvider is the fallback wallet.Provider. It has no signing
// capability; the account it reports is the configured watch address.
type StandaloneProvider struct {
	client *StandaloneClient

	mu      sync.Mutex
	address string
}

// NewStandaloneProvider binds client to an optional watch address.
func NewStandaloneProvider(client *StandaloneClient, address string) *StandaloneProvider {
	return &StandaloneProvider{client: client, address: address}
}

func (p *StandaloneProvider) GetState(ctx context.Context) (*wallet.AccountState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.address == "" {
		return nil, nil
	}
	return &wallet.AccountState{Address: p.address}, nil
}

func (p *StandaloneProvider) GetBalance(ctx context.Context, address string) (*big.Int, error) {
	return p.client.Balance(ctx, address)
}

func (p *StandaloneProvider) RequestPermissions(ctx context.Context) (*wallet.AccountState, error) {
	st, _ := p.GetState(ctx)
	if st == nil {
		return nil, ErrNoAccount
	}
	return st, nil
}

// Disconnect drops the watch address; later GetState calls report no account.
func (p *StandaloneProvider) Disconnect(ctx context.Context) error {
	p.mu.Lock()
	p.address = ""
	p.mu.Unlock()
	return nil
}
