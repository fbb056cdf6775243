// Package auctionapi defines the JSON messages exchanged with auctiond and a
// client for sending them.
package auctionapi

import (
	"time"

	"github.com/go-faster/errors"

	"github.com/cloudx-io/escrowauction/core"
)

// Request types understood by auctiond.
const (
	TypePing        = "ping"
	TypeInstantiate = "instantiate"
	TypeExecute     = "execute"
	TypeQuery       = "query"
	TypeMint        = "mint"
	TypeBalance     = "balance"
	TypeContracts   = "contracts"
)

// Response types that are not an echo of the request type.
const (
	TypePong  = "pong"
	TypeError = "error"
)

// InstantiateMsg configures a new auction. Owner defaults to the sender.
type InstantiateMsg struct {
	Owner *string `json:"owner,omitempty"`
	// Part is the commission rate as a decimal string, e.g. "0.1".
	Part  string `json:"part"`
	Token string `json:"token"`
}

// Params converts the message into core parameters.
func (m InstantiateMsg) Params() (core.InstantiateParams, error) {
	part, err := ParseRate(m.Part)
	if err != nil {
		return core.InstantiateParams{}, err
	}
	return core.InstantiateParams{Owner: m.Owner, Part: part, Token: m.Token}, nil
}

// ExecMsg is an externally tagged union: exactly one field is set, and it
// serializes as {"bid":{}}, {"close":{}} or {"retract":{"receiver":...}}.
type ExecMsg struct {
	Bid     *BidMsg     `json:"bid,omitempty"`
	Close   *CloseMsg   `json:"close,omitempty"`
	Retract *RetractMsg `json:"retract,omitempty"`
}

type BidMsg struct{}

type CloseMsg struct{}

type RetractMsg struct {
	Receiver *string `json:"receiver,omitempty"`
}

// ErrInvalidMessage is returned for a message that selects no operation or
// more than one.
var ErrInvalidMessage = errors.New("invalid message")

// Operation names the selected variant.
func (m ExecMsg) Operation() (string, error) {
	var ops []string
	if m.Bid != nil {
		ops = append(ops, "bid")
	}
	if m.Close != nil {
		ops = append(ops, "close")
	}
	if m.Retract != nil {
		ops = append(ops, "retract")
	}
	if len(ops) != 1 {
		return "", errors.Wrapf(ErrInvalidMessage, "execute message must select exactly one operation, got %d", len(ops))
	}
	return ops[0], nil
}

// QueryMsg selects a query. Value is the only one.
type QueryMsg struct {
	Value *ValueQuery `json:"value,omitempty"`
}

type ValueQuery struct{}

// ValueResponse mirrors every auction record.
type ValueResponse struct {
	Open       bool            `json:"open"`
	Token      string          `json:"token"`
	Owner      string          `json:"owner"`
	Part       string          `json:"part"`
	Bids       []core.BidEntry `json:"bids"`
	HighestBid core.BidEntry   `json:"highest_bid"`
}

// NewValueResponse renders a core value for the wire.
func NewValueResponse(v *core.Value) *ValueResponse {
	bids := v.Bids
	if bids == nil {
		bids = []core.BidEntry{}
	}
	return &ValueResponse{
		Open:       v.Open,
		Token:      v.Token,
		Owner:      v.Owner.String(),
		Part:       v.Part.String(),
		Bids:       bids,
		HighestBid: v.HighestBid,
	}
}

// ContractInfo describes a registered auction instance.
type ContractInfo struct {
	Address string    `json:"address"`
	Creator string    `json:"creator"`
	Label   string    `json:"label"`
	Created time.Time `json:"created"`
	Name    string    `json:"name"`
	Version string    `json:"version"`
}

// Request is the envelope of every call to auctiond. Which fields are read
// depends on Type.
type Request struct {
	Type string `json:"type"`

	// Sender is trusted as given. Authentication happens outside auctiond.
	Sender   string `json:"sender,omitempty"`
	Contract string `json:"contract,omitempty"`
	Label    string `json:"label,omitempty"`

	Instantiate *InstantiateMsg `json:"instantiate,omitempty"`
	Execute     *ExecMsg        `json:"execute,omitempty"`
	Query       *QueryMsg       `json:"query,omitempty"`

	// Funds are attached to an execute call, or minted by a mint call.
	Funds []core.Coin `json:"funds,omitempty"`

	// Address is the account of a mint or balance call.
	Address string `json:"address,omitempty"`
}

// Response is the envelope of every auctiond reply.
type Response struct {
	Type    string     `json:"type"`
	Success bool       `json:"success"`
	Message string     `json:"message,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`

	Contract   string           `json:"contract,omitempty"`
	Attributes []core.Attribute `json:"attributes,omitempty"`
	Transfers  []core.Transfer  `json:"transfers,omitempty"`
	Value      *ValueResponse   `json:"value,omitempty"`
	Balances   []core.Coin      `json:"balances,omitempty"`
	Contracts  []ContractInfo   `json:"contracts,omitempty"`

	ProcessingTime int64 `json:"processing_time_ms"`
}
