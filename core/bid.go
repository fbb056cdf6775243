package core

import (
	"context"
	"strconv"
)

// Bid credits the sender's contribution in the auction token, net of
// commission, and makes the sender the highest bidder.
//
// Processing flow:
//  1. Reject when bidding is closed
//  2. Take the attached amount in the auction token (zero when absent)
//  3. Split off the commission
//  4. Require prior + net to strictly exceed the current highest bid
//  5. Save the new total and highest bid, queue the commission to the owner
func (a *Auction) Bid(ctx context.Context, sender Addr, funds []Coin) (*Response, error) {
	state, err := a.records.loadState(ctx)
	if err != nil {
		return nil, err
	}
	if !state.Open {
		return nil, ErrBiddingClosed
	}

	// Last matching coin wins; other denominations contribute nothing
	var amount uint64
	for _, coin := range funds {
		if coin.Denom == state.Token {
			amount = coin.Amount
		}
	}

	net, commission, err := SplitCommission(amount, state.Part)
	if err != nil {
		return nil, err
	}

	highest, err := a.records.loadHighestBid(ctx)
	if err != nil {
		return nil, err
	}
	prior, _, err := a.records.mayLoadBid(ctx, sender)
	if err != nil {
		return nil, err
	}

	senderTotal, err := addAmounts(prior, net)
	if err != nil {
		return nil, err
	}
	if senderTotal <= highest.Amount {
		return nil, &BidTooLowError{Highest: highest.Amount, SenderTotal: prior}
	}

	if err := a.records.saveBid(ctx, sender, senderTotal); err != nil {
		return nil, err
	}
	if err := a.records.saveHighestBid(ctx, BidEntry{Addr: sender, Amount: senderTotal}); err != nil {
		return nil, err
	}

	owner, err := a.records.loadOwner(ctx)
	if err != nil {
		return nil, err
	}

	return NewResponse().
		AddAttribute(AttrAction, ActionBid).
		AddAttribute(AttrSender, sender.String()).
		AddAttribute(AttrSenderTotal, strconv.FormatUint(senderTotal, 10)).
		AddTransfer(owner.String(), Coin{Denom: state.Token, Amount: commission}), nil
}
