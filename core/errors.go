package core

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Typed failures of the auction operations. Every one aborts the call.
var (
	ErrBiddingClosed        = errors.New("bidding is closed")
	ErrBiddingAlreadyClosed = errors.New("bidding is already closed")
	ErrEarlyRetract         = errors.New("can't retract until bidding is closed")
	ErrNoBidsToRetract      = errors.New("no bids to retract")
)

// Arithmetic failures. These are not part of the typed taxonomy callers
// react to; they abort the call like any storage failure.
var (
	ErrOverflow          = errors.New("amount overflow")
	ErrInvalidCommission = errors.New("commission exceeds contributed amount")
)

// InvalidAddressError reports a string that is not a valid address.
type InvalidAddressError struct {
	Address string
	Reason  string
}

func (e *InvalidAddressError) Error() string {
	return fmt.Sprintf("invalid address %q: %s", e.Address, e.Reason)
}

// BidTooLowError reports a bid whose new cumulative total would not strictly
// exceed the current highest bid.
type BidTooLowError struct {
	Highest     uint64
	SenderTotal uint64
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("bid too low: highest bid %d, sender total %d", e.Highest, e.SenderTotal)
}

// UnauthorizedError reports a close attempted by someone other than the owner.
type UnauthorizedError struct {
	Owner Addr
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("unauthorized: only %s can call it", e.Owner)
}

// IsAuctionError reports whether err is one of the typed auction failures,
// as opposed to a storage, codec or arithmetic failure.
func IsAuctionError(err error) bool {
	if err == nil {
		return false
	}
	for _, sentinel := range []error{ErrBiddingClosed, ErrBiddingAlreadyClosed, ErrEarlyRetract, ErrNoBidsToRetract} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	var (
		invalid      *InvalidAddressError
		tooLow       *BidTooLowError
		unauthorized *UnauthorizedError
	)
	return errors.As(err, &invalid) || errors.As(err, &tooLow) || errors.As(err, &unauthorized)
}
