package auctionapi

import (
	"context"
	"encoding/json"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/mdlayher/vsock"

	"github.com/cloudx-io/escrowauction/core"
)

// Supported transports.
const (
	NetworkTCP   = "tcp"
	NetworkVsock = "vsock"
)

const defaultTimeout = 30 * time.Second

// Client sends one request per connection to auctiond.
type Client struct {
	network string
	address string
	timeout time.Duration
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithTimeout bounds each round trip when the context carries no deadline.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.timeout = d }
}

// NewClient creates a client for address on network. A vsock address is
// "<cid>:<port>".
func NewClient(network, address string, opts ...ClientOption) (*Client, error) {
	switch network {
	case NetworkTCP:
	case NetworkVsock:
		if _, _, err := parseVsockAddress(address); err != nil {
			return nil, err
		}
	default:
		return nil, errors.Errorf("unsupported network %q", network)
	}

	c := &Client{network: network, address: address, timeout: defaultTimeout}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func parseVsockAddress(address string) (cid, port uint32, err error) {
	cidStr, portStr, ok := strings.Cut(address, ":")
	if !ok {
		return 0, 0, errors.Errorf("vsock address %q must be <cid>:<port>", address)
	}
	c, err := strconv.ParseUint(cidStr, 10, 32)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "vsock cid %q", cidStr)
	}
	p, err := strconv.ParseUint(portStr, 10, 32)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "vsock port %q", portStr)
	}
	return uint32(c), uint32(p), nil
}

func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	if c.network == NetworkVsock {
		cid, port, err := parseVsockAddress(c.address)
		if err != nil {
			return nil, err
		}
		conn, err := vsock.Dial(cid, port, nil)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
	var d net.Dialer
	return d.DialContext(ctx, NetworkTCP, c.address)
}

type closeWriter interface {
	CloseWrite() error
}

// Do sends req and decodes the reply. A reply with Success false is
// returned together with the error it carries.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if _, ok := ctx.Deadline(); !ok && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	conn, err := c.dial(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s %s", c.network, c.address)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return nil, errors.Wrap(err, "send request")
	}
	// The server reads until EOF.
	if cw, ok := conn.(closeWriter); ok {
		if err := cw.CloseWrite(); err != nil {
			return nil, errors.Wrap(err, "close write")
		}
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return nil, errors.Wrap(err, "read response")
	}
	if !resp.Success {
		if resp.Error != nil {
			return &resp, resp.Error.Err()
		}
		return &resp, errors.Errorf("%s: %s", resp.Type, resp.Message)
	}
	return &resp, nil
}

// Ping checks that the server is reachable.
func (c *Client) Ping(ctx context.Context) (*Response, error) {
	return c.Do(ctx, Request{Type: TypePing})
}

// Instantiate creates an auction and returns its address.
func (c *Client) Instantiate(ctx context.Context, sender, label string, msg InstantiateMsg) (string, *Response, error) {
	resp, err := c.Do(ctx, Request{Type: TypeInstantiate, Sender: sender, Label: label, Instantiate: &msg})
	if err != nil {
		return "", resp, err
	}
	return resp.Contract, resp, nil
}

// Execute runs msg against contract with funds attached.
func (c *Client) Execute(ctx context.Context, contract, sender string, msg ExecMsg, funds []core.Coin) (*Response, error) {
	return c.Do(ctx, Request{Type: TypeExecute, Contract: contract, Sender: sender, Execute: &msg, Funds: funds})
}

// Bid places a bid with funds.
func (c *Client) Bid(ctx context.Context, contract, sender string, funds []core.Coin) (*Response, error) {
	return c.Execute(ctx, contract, sender, ExecMsg{Bid: &BidMsg{}}, funds)
}

// Close ends bidding.
func (c *Client) Close(ctx context.Context, contract, sender string) (*Response, error) {
	return c.Execute(ctx, contract, sender, ExecMsg{Close: &CloseMsg{}}, nil)
}

// Retract withdraws the sender's escrow to receiver, or to the sender when nil.
func (c *Client) Retract(ctx context.Context, contract, sender string, receiver *string) (*Response, error) {
	return c.Execute(ctx, contract, sender, ExecMsg{Retract: &RetractMsg{Receiver: receiver}}, nil)
}

// Value queries the current auction value.
func (c *Client) Value(ctx context.Context, contract string) (*ValueResponse, error) {
	resp, err := c.Do(ctx, Request{Type: TypeQuery, Contract: contract, Query: &QueryMsg{Value: &ValueQuery{}}})
	if err != nil {
		return nil, err
	}
	if resp.Value == nil {
		return nil, errors.New("response carries no value")
	}
	return resp.Value, nil
}

// Mint credits coins to address.
func (c *Client) Mint(ctx context.Context, address string, coins []core.Coin) error {
	_, err := c.Do(ctx, Request{Type: TypeMint, Address: address, Funds: coins})
	return err
}

// Balance returns every non-zero balance of address.
func (c *Client) Balance(ctx context.Context, address string) ([]core.Coin, error) {
	resp, err := c.Do(ctx, Request{Type: TypeBalance, Address: address})
	if err != nil {
		return nil, err
	}
	if resp.Balances == nil {
		return []core.Coin{}, nil
	}
	return resp.Balances, nil
}

// Contracts lists every registered auction.
func (c *Client) Contracts(ctx context.Context) ([]ContractInfo, error) {
	resp, err := c.Do(ctx, Request{Type: TypeContracts})
	if err != nil {
		return nil, err
	}
	if resp.Contracts == nil {
		return []ContractInfo{}, nil
	}
	return resp.Contracts, nil
}
