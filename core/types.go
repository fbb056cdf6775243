package core

import (
	"github.com/shopspring/decimal"
)

// Addr is a validated account or instance address.
type Addr string

func (a Addr) String() string { return string(a) }

// Coin is an amount of a single denomination.
type Coin struct {
	Denom  string `json:"denom"`
	Amount uint64 `json:"amount,string"`
}

// State holds the auction parameters. Token and Part never change after
// instantiation; Open only ever goes from true to false.
type State struct {
	Open  bool
	Token string
	// Part is the commission rate skimmed from every contribution.
	Part decimal.Decimal
}

// BidEntry is a bidder address paired with an escrowed amount.
type BidEntry struct {
	Addr   Addr   `json:"addr"`
	Amount uint64 `json:"amount,string"`
}

// InstantiateParams configures a new auction.
type InstantiateParams struct {
	// Owner defaults to the instantiating sender when nil.
	Owner *string
	Part  decimal.Decimal
	Token string
}

// Value is a read-only projection of every auction record.
type Value struct {
	Open  bool
	Token string
	Owner Addr
	Part  decimal.Decimal
	// Bids are sorted by address ascending.
	Bids       []BidEntry
	HighestBid BidEntry
}

// Attribute is a key/value pair describing what a call did.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Transfer is a queued instruction for the host to move funds out of the
// auction's escrow after the call returns. To is not validated here.
type Transfer struct {
	To   string `json:"to"`
	Coin Coin   `json:"coin"`
}

// Response is the result of a state-changing call.
type Response struct {
	Attributes []Attribute `json:"attributes,omitempty"`
	Transfers  []Transfer  `json:"transfers,omitempty"`
}

// NewResponse creates an empty response.
func NewResponse() *Response {
	return &Response{}
}

// AddAttribute appends an attribute and returns r for chaining.
func (r *Response) AddAttribute(key, value string) *Response {
	r.Attributes = append(r.Attributes, Attribute{Key: key, Value: value})
	return r
}

// AddTransfer queues a transfer. Zero amounts are dropped.
func (r *Response) AddTransfer(to string, coin Coin) *Response {
	if coin.Amount == 0 {
		return r
	}
	r.Transfers = append(r.Transfers, Transfer{To: to, Coin: coin})
	return r
}

// Attribute returns the first attribute value for key.
func (r *Response) Attribute(key string) (string, bool) {
	for _, attr := range r.Attributes {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return "", false
}
