package core

import (
	"context"
)

// Retract refunds the sender's whole escrow after bidding closed, to receiver
// when given and to the sender otherwise. The winner has no escrow left
// after Close and therefore cannot retract.
//
// receiver is passed through unvalidated; the transfer primitive rejects a
// malformed one.
func (a *Auction) Retract(ctx context.Context, sender Addr, receiver *string) (*Response, error) {
	state, err := a.records.loadState(ctx)
	if err != nil {
		return nil, err
	}
	if state.Open {
		return nil, ErrEarlyRetract
	}

	total, ok, err := a.records.mayLoadBid(ctx, sender)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoBidsToRetract
	}

	if err := a.records.removeBid(ctx, sender); err != nil {
		return nil, err
	}

	to := sender.String()
	if receiver != nil {
		to = *receiver
	}

	// Retraction reports the "close" action label.
	return NewResponse().
		AddAttribute(AttrAction, ActionClose).
		AddAttribute(AttrSender, sender.String()).
		AddAttribute(AttrReceiver, to).
		AddTransfer(to, Coin{Denom: state.Token, Amount: total}), nil
}
