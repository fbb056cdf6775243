package core

import (
	"context"

	"github.com/cloudx-io/escrowauction/store"
)

// Name and version recorded with every instance the auction logic creates.
const (
	ContractName    = "escrowauction"
	ContractVersion = "0.1.0"
)

// Response attribute keys and the action labels they carry.
const (
	AttrAction      = "action"
	AttrSender      = "sender"
	AttrSenderTotal = "sender_total"
	AttrReceiver    = "receiver"

	ActionBid   = "bid"
	ActionClose = "close"
)

// Auction is the state-transition logic of a single auction instance.
// Every method is one complete call: it reads and writes the instance
// records in kv and returns the transfers the host must execute.
//
// Auction performs no locking and no rollback. The host runs each call
// against a transaction and discards it when a method returns an error.
type Auction struct {
	records records
	addrs   AddressCodec
}

// New binds an auction to the records stored in kv.
func New(kv store.KV, addrs AddressCodec) *Auction {
	return &Auction{
		records: records{kv: kv},
		addrs:   addrs,
	}
}

// Instantiate persists the initial records: an open state, the owner
// (explicit or the sender) and a zero highest bid held by the sender.
// No ledger entries are created and part/token are not validated.
func (a *Auction) Instantiate(ctx context.Context, sender Addr, params InstantiateParams) (*Response, error) {
	owner := sender
	if params.Owner != nil {
		validated, err := a.addrs.Validate(*params.Owner)
		if err != nil {
			return nil, err
		}
		owner = validated
	}

	state := State{
		Open:  true,
		Token: params.Token,
		Part:  params.Part,
	}
	if err := a.records.saveState(ctx, state); err != nil {
		return nil, err
	}
	if err := a.records.saveOwner(ctx, owner); err != nil {
		return nil, err
	}
	if err := a.records.saveHighestBid(ctx, BidEntry{Addr: sender, Amount: 0}); err != nil {
		return nil, err
	}

	return NewResponse(), nil
}
