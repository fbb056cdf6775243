package core

import (
	"context"
)

// Value reads every record without modifying any of them.
func (a *Auction) Value(ctx context.Context) (*Value, error) {
	state, err := a.records.loadState(ctx)
	if err != nil {
		return nil, err
	}
	owner, err := a.records.loadOwner(ctx)
	if err != nil {
		return nil, err
	}
	highest, err := a.records.loadHighestBid(ctx)
	if err != nil {
		return nil, err
	}
	bids, err := a.records.rangeBids(ctx)
	if err != nil {
		return nil, err
	}

	return &Value{
		Open:       state.Open,
		Token:      state.Token,
		Owner:      owner,
		Part:       state.Part,
		Bids:       bids,
		HighestBid: highest,
	}, nil
}
