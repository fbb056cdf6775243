// Package bank moves fungible balances between addresses. Balances live in
// the same store as the auction records so a transfer commits or rolls back
// with the call that queued it.
package bank

import (
	"context"
	"sort"

	"github.com/fxamacker/cbor/v2"
	"github.com/go-faster/errors"

	"github.com/cloudx-io/escrowauction/core"
	"github.com/cloudx-io/escrowauction/store"
)

// ErrInsufficientFunds is returned when a sender's balance cannot cover a send.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Key layout: bank/<address>/<denom> -> uint64
var balancesPrefix = []byte("bank/")

// Bank reads and writes balances through whatever KV it is handed, which is
// normally the transaction of the current call.
type Bank struct {
	addrs core.AddressCodec
}

// New creates a bank that validates recipients with addrs.
func New(addrs core.AddressCodec) *Bank {
	return &Bank{addrs: addrs}
}

func accountPrefix(addr core.Addr) []byte {
	key := make([]byte, 0, len(balancesPrefix)+len(addr)+1)
	key = append(key, balancesPrefix...)
	key = append(key, addr...)
	return append(key, '/')
}

func balanceKey(addr core.Addr, denom string) []byte {
	return append(accountPrefix(addr), denom...)
}

// Balance returns addr's balance of denom, zero when none is recorded.
func (b *Bank) Balance(ctx context.Context, kv store.KV, addr core.Addr, denom string) (uint64, error) {
	raw, err := kv.Read(ctx, balanceKey(addr, denom))
	if err != nil {
		if store.IsNotFound(err) {
			return 0, nil
		}
		return 0, errors.Wrapf(err, "read balance %s/%s", addr, denom)
	}
	var amount uint64
	if err := cbor.Unmarshal(raw, &amount); err != nil {
		return 0, errors.Wrapf(err, "decode balance %s/%s", addr, denom)
	}
	return amount, nil
}

func (b *Bank) setBalance(ctx context.Context, kv store.KV, addr core.Addr, denom string, amount uint64) error {
	key := balanceKey(addr, denom)
	if amount == 0 {
		return kv.Delete(ctx, key)
	}
	raw, err := core.MarshalRecord(amount)
	if err != nil {
		return errors.Wrap(err, "encode balance")
	}
	return kv.Write(ctx, key, raw)
}

// AllBalances returns every non-zero balance of addr ordered by denom.
func (b *Bank) AllBalances(ctx context.Context, kv store.KV, addr core.Addr) ([]core.Coin, error) {
	prefix := accountPrefix(addr)
	iter, err := kv.Iterator(ctx, prefix, store.PrefixEnd(prefix))
	if err != nil {
		return nil, errors.Wrap(err, "iterate balances")
	}
	defer iter.Close()

	coins := make([]core.Coin, 0)
	for iter.Next() {
		denom := string(iter.Key()[len(prefix):])
		var amount uint64
		if err := cbor.Unmarshal(iter.Value(), &amount); err != nil {
			return nil, errors.Wrapf(err, "decode balance %s/%s", addr, denom)
		}
		if amount > 0 {
			coins = append(coins, core.Coin{Denom: denom, Amount: amount})
		}
	}
	if err := iter.Error(); err != nil {
		return nil, errors.Wrap(err, "iterate balances")
	}
	return coins, nil
}

// Mint credits coins to addr out of thin air. Used to fund accounts.
func (b *Bank) Mint(ctx context.Context, kv store.KV, to string, coins []core.Coin) error {
	recipient, err := b.addrs.Validate(to)
	if err != nil {
		return errors.Wrap(err, "mint")
	}
	for _, coin := range coins {
		if err := validateDenom(coin.Denom); err != nil {
			return err
		}
		balance, err := b.Balance(ctx, kv, recipient, coin.Denom)
		if err != nil {
			return err
		}
		if balance+coin.Amount < balance {
			return errors.Wrapf(core.ErrOverflow, "mint %d%s to %s", coin.Amount, coin.Denom, recipient)
		}
		if err := b.setBalance(ctx, kv, recipient, coin.Denom, balance+coin.Amount); err != nil {
			return err
		}
	}
	return nil
}

// Send moves coins from one address to another. The recipient must be a
// valid address; a malformed one fails the send with an
// *core.InvalidAddressError in the chain.
func (b *Bank) Send(ctx context.Context, kv store.KV, from core.Addr, to string, coins []core.Coin) error {
	recipient, err := b.addrs.Validate(to)
	if err != nil {
		return errors.Wrap(err, "send")
	}

	normalized, err := normalize(coins)
	if err != nil {
		return err
	}

	for _, coin := range normalized {
		if err := validateDenom(coin.Denom); err != nil {
			return err
		}

		fromBalance, err := b.Balance(ctx, kv, from, coin.Denom)
		if err != nil {
			return err
		}
		if fromBalance < coin.Amount {
			return errors.Wrapf(ErrInsufficientFunds, "%s has %d%s, needs %d%s",
				from, fromBalance, coin.Denom, coin.Amount, coin.Denom)
		}
		if err := b.setBalance(ctx, kv, from, coin.Denom, fromBalance-coin.Amount); err != nil {
			return err
		}

		toBalance, err := b.Balance(ctx, kv, recipient, coin.Denom)
		if err != nil {
			return err
		}
		if toBalance+coin.Amount < toBalance {
			return errors.Wrapf(core.ErrOverflow, "credit %d%s to %s", coin.Amount, coin.Denom, recipient)
		}
		if err := b.setBalance(ctx, kv, recipient, coin.Denom, toBalance+coin.Amount); err != nil {
			return err
		}
	}
	return nil
}

func validateDenom(denom string) error {
	if denom == "" {
		return errors.Errorf("invalid denom %q", denom)
	}
	return nil
}

// normalize drops zero amounts and merges duplicate denominations, ordered by denom.
func normalize(coins []core.Coin) ([]core.Coin, error) {
	totals := make(map[string]uint64)
	for _, coin := range coins {
		if coin.Amount == 0 {
			continue
		}
		if totals[coin.Denom]+coin.Amount < totals[coin.Denom] {
			return nil, errors.Wrapf(core.ErrOverflow, "sum of %s funds", coin.Denom)
		}
		totals[coin.Denom] += coin.Amount
	}
	out := make([]core.Coin, 0, len(totals))
	for denom, amount := range totals {
		out = append(out, core.Coin{Denom: denom, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Denom < out[j].Denom })
	return out, nil
}
