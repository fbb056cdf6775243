package core

import (
	"context"
)

// Close ends bidding. Only the owner may close, and only once. When any bid
// was placed the winner's escrow is consumed and paid to the owner; the
// highest bid record itself is left as it was.
func (a *Auction) Close(ctx context.Context, sender Addr) (*Response, error) {
	state, err := a.records.loadState(ctx)
	if err != nil {
		return nil, err
	}
	if !state.Open {
		return nil, ErrBiddingAlreadyClosed
	}

	owner, err := a.records.loadOwner(ctx)
	if err != nil {
		return nil, err
	}
	if sender != owner {
		return nil, &UnauthorizedError{Owner: owner}
	}

	state.Open = false
	if err := a.records.saveState(ctx, state); err != nil {
		return nil, err
	}

	resp := NewResponse().
		AddAttribute(AttrAction, ActionClose).
		AddAttribute(AttrSender, sender.String())

	highest, err := a.records.loadHighestBid(ctx)
	if err != nil {
		return nil, err
	}
	if highest.Amount == 0 {
		return resp, nil
	}

	if err := a.records.removeBid(ctx, highest.Addr); err != nil {
		return nil, err
	}
	return resp.AddTransfer(owner.String(), Coin{Denom: state.Token, Amount: highest.Amount}), nil
}
