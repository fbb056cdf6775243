package core

import (
	"context"

	"github.com/fxamacker/cbor/v2"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/cloudx-io/escrowauction/store"
)

// Record layout inside an instance namespace:
//
//	state           -> stateRecord
//	owner           -> address string
//	highest_bid     -> highestBidRecord
//	bids/<address>  -> uint64 escrow total
var (
	stateKey      = []byte("state")
	ownerKey      = []byte("owner")
	highestBidKey = []byte("highest_bid")
	bidsPrefix    = []byte("bids/")
)

type stateRecord struct {
	Open  bool   `cbor:"1,keyasint"`
	Token string `cbor:"2,keyasint"`
	Part  string `cbor:"3,keyasint"`
}

type highestBidRecord struct {
	_      struct{} `cbor:",toarray"`
	Addr   string
	Amount uint64
}

// records gives each persisted record its own load/save contract.
type records struct {
	kv store.KV
}

func bidKey(addr Addr) []byte {
	key := make([]byte, 0, len(bidsPrefix)+len(addr))
	key = append(key, bidsPrefix...)
	return append(key, addr...)
}

func (r records) load(ctx context.Context, key []byte, v any) error {
	raw, err := r.kv.Read(ctx, key)
	if err != nil {
		return errors.Wrapf(err, "load %s", key)
	}
	if err := cbor.Unmarshal(raw, v); err != nil {
		return errors.Wrapf(err, "decode %s", key)
	}
	return nil
}

func (r records) save(ctx context.Context, key []byte, v any) error {
	raw, err := encMode.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encode %s", key)
	}
	if err := r.kv.Write(ctx, key, raw); err != nil {
		return errors.Wrapf(err, "save %s", key)
	}
	return nil
}

func (r records) loadState(ctx context.Context) (State, error) {
	var rec stateRecord
	if err := r.load(ctx, stateKey, &rec); err != nil {
		return State{}, err
	}
	part, err := decimal.NewFromString(rec.Part)
	if err != nil {
		return State{}, errors.Wrap(err, "decode commission rate")
	}
	return State{Open: rec.Open, Token: rec.Token, Part: part}, nil
}

func (r records) saveState(ctx context.Context, state State) error {
	return r.save(ctx, stateKey, stateRecord{
		Open:  state.Open,
		Token: state.Token,
		Part:  state.Part.String(),
	})
}

func (r records) loadOwner(ctx context.Context) (Addr, error) {
	var owner string
	if err := r.load(ctx, ownerKey, &owner); err != nil {
		return "", err
	}
	return Addr(owner), nil
}

func (r records) saveOwner(ctx context.Context, owner Addr) error {
	return r.save(ctx, ownerKey, string(owner))
}

func (r records) loadHighestBid(ctx context.Context) (BidEntry, error) {
	var rec highestBidRecord
	if err := r.load(ctx, highestBidKey, &rec); err != nil {
		return BidEntry{}, err
	}
	return BidEntry{Addr: Addr(rec.Addr), Amount: rec.Amount}, nil
}

func (r records) saveHighestBid(ctx context.Context, bid BidEntry) error {
	return r.save(ctx, highestBidKey, highestBidRecord{Addr: string(bid.Addr), Amount: bid.Amount})
}

// mayLoadBid returns the escrow total for addr and whether an entry exists.
func (r records) mayLoadBid(ctx context.Context, addr Addr) (uint64, bool, error) {
	var amount uint64
	err := r.load(ctx, bidKey(addr), &amount)
	switch {
	case err == nil:
		return amount, true, nil
	case store.IsNotFound(err):
		return 0, false, nil
	default:
		return 0, false, err
	}
}

func (r records) saveBid(ctx context.Context, addr Addr, amount uint64) error {
	return r.save(ctx, bidKey(addr), amount)
}

func (r records) removeBid(ctx context.Context, addr Addr) error {
	if err := r.kv.Delete(ctx, bidKey(addr)); err != nil {
		return errors.Wrapf(err, "remove bid of %s", addr)
	}
	return nil
}

// rangeBids returns every ledger entry in ascending address order.
func (r records) rangeBids(ctx context.Context) ([]BidEntry, error) {
	iter, err := r.kv.Iterator(ctx, bidsPrefix, store.PrefixEnd(bidsPrefix))
	if err != nil {
		return nil, errors.Wrap(err, "range bids")
	}
	defer iter.Close()

	bids := make([]BidEntry, 0)
	for iter.Next() {
		var amount uint64
		if err := cbor.Unmarshal(iter.Value(), &amount); err != nil {
			return nil, errors.Wrapf(err, "decode bid %s", iter.Key())
		}
		addr := Addr(iter.Key()[len(bidsPrefix):])
		bids = append(bids, BidEntry{Addr: addr, Amount: amount})
	}
	if err := iter.Error(); err != nil {
		return nil, errors.Wrap(err, "range bids")
	}
	return bids, nil
}
