package auctionapi

import (
	"github.com/go-faster/errors"

	"github.com/cloudx-io/escrowauction/bank"
	"github.com/cloudx-io/escrowauction/core"
	"github.com/cloudx-io/escrowauction/host"
)

// Error kinds carried by ErrorBody.
const (
	KindInvalidAddress       = "invalid_address"
	KindBiddingClosed        = "bidding_closed"
	KindBidTooLow            = "bid_too_low"
	KindBiddingAlreadyClosed = "bidding_already_closed"
	KindUnauthorized         = "unauthorized"
	KindEarlyRetract         = "early_retract"
	KindNoBidsToRetract      = "no_bids_to_retract"
	KindUnknownContract      = "unknown_contract"
	KindInsufficientFunds    = "insufficient_funds"
	KindInvalidFunds         = "invalid_funds"
	KindBadRequest           = "bad_request"
	KindRateLimited          = "rate_limited"
	KindInternal             = "internal"
)

// ErrorBody is the wire form of a failed call. The typed fields are set
// only for the kinds that carry them.
type ErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`

	Highest     uint64 `json:"highest,omitempty,string"`
	SenderTotal uint64 `json:"sender_total,omitempty,string"`
	Owner       string `json:"owner,omitempty"`
	Address     string `json:"address,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

var (
	// ErrBadRequest marks a request auctiond could not decode or route.
	ErrBadRequest = errors.New("bad request")
	// ErrRateLimited is returned when auctiond sheds load.
	ErrRateLimited = errors.New("rate limit exceeded")
)

// NewErrorBody classifies err for the wire.
func NewErrorBody(err error) *ErrorBody {
	body := &ErrorBody{Kind: KindInternal, Message: err.Error()}

	var (
		invalid      *core.InvalidAddressError
		tooLow       *core.BidTooLowError
		unauthorized *core.UnauthorizedError
	)
	switch {
	case errors.As(err, &invalid):
		body.Kind = KindInvalidAddress
		body.Address = invalid.Address
		body.Reason = invalid.Reason
	case errors.As(err, &tooLow):
		body.Kind = KindBidTooLow
		body.Highest = tooLow.Highest
		body.SenderTotal = tooLow.SenderTotal
	case errors.As(err, &unauthorized):
		body.Kind = KindUnauthorized
		body.Owner = unauthorized.Owner.String()
	case errors.Is(err, core.ErrBiddingClosed):
		body.Kind = KindBiddingClosed
	case errors.Is(err, core.ErrBiddingAlreadyClosed):
		body.Kind = KindBiddingAlreadyClosed
	case errors.Is(err, core.ErrEarlyRetract):
		body.Kind = KindEarlyRetract
	case errors.Is(err, core.ErrNoBidsToRetract):
		body.Kind = KindNoBidsToRetract
	case errors.Is(err, host.ErrUnknownContract):
		body.Kind = KindUnknownContract
	case errors.Is(err, bank.ErrInsufficientFunds):
		body.Kind = KindInsufficientFunds
	case errors.Is(err, host.ErrInvalidFunds):
		body.Kind = KindInvalidFunds
	case errors.Is(err, ErrBadRequest), errors.Is(err, ErrInvalidMessage), errors.Is(err, ErrInvalidRate):
		body.Kind = KindBadRequest
	case errors.Is(err, ErrRateLimited):
		body.Kind = KindRateLimited
	}
	return body
}

// RemoteError is a failure reported by auctiond. It unwraps to the matching
// local error value so callers can use errors.Is and errors.As as they would
// against an in-process host.
type RemoteError struct {
	Kind    string
	Message string
	cause   error
}

func (e *RemoteError) Error() string { return e.Message }

func (e *RemoteError) Unwrap() error { return e.cause }

// Err re-materializes the error described by b.
func (b *ErrorBody) Err() error {
	var cause error
	switch b.Kind {
	case KindInvalidAddress:
		cause = &core.InvalidAddressError{Address: b.Address, Reason: b.Reason}
	case KindBidTooLow:
		cause = &core.BidTooLowError{Highest: b.Highest, SenderTotal: b.SenderTotal}
	case KindUnauthorized:
		cause = &core.UnauthorizedError{Owner: core.Addr(b.Owner)}
	case KindBiddingClosed:
		cause = core.ErrBiddingClosed
	case KindBiddingAlreadyClosed:
		cause = core.ErrBiddingAlreadyClosed
	case KindEarlyRetract:
		cause = core.ErrEarlyRetract
	case KindNoBidsToRetract:
		cause = core.ErrNoBidsToRetract
	case KindUnknownContract:
		cause = host.ErrUnknownContract
	case KindInsufficientFunds:
		cause = bank.ErrInsufficientFunds
	case KindInvalidFunds:
		cause = host.ErrInvalidFunds
	case KindBadRequest:
		cause = ErrBadRequest
	case KindRateLimited:
		cause = ErrRateLimited
	}
	return &RemoteError{Kind: b.Kind, Message: b.Message, cause: cause}
}
