package host

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"

	"github.com/cloudx-io/escrowauction/bank"
	"github.com/cloudx-io/escrowauction/core"
	"github.com/cloudx-io/escrowauction/store"
)

const atom = "atom"

var tenPercent = decimal.RequireFromString("0.1")

type testHost struct {
	*Host
	db *store.Memory
}

func newTestHost(t *testing.T) *testHost {
	t.Helper()
	db := store.NewMemory()
	h, err := New(db, WithClock(func() time.Time { return time.Unix(1700000000, 0) }))
	assert.NoError(t, err)
	return &testHost{Host: h, db: db}
}

func (th *testHost) addr(t *testing.T, name string) string {
	t.Helper()
	addr, err := th.Addresses().AccountAddress(name)
	assert.NoError(t, err)
	return addr.String()
}

func (th *testHost) mint(t *testing.T, to string, amount uint64) {
	t.Helper()
	assert.NoError(t, th.Mint(context.Background(), to, atoms(amount)))
}

func (th *testHost) instantiate(t *testing.T, sender string, owner *string) string {
	t.Helper()
	contract, _, err := th.Instantiate(context.Background(), sender, "Bidding contract",
		core.InstantiateParams{Owner: owner, Part: tenPercent, Token: atom})
	assert.NoError(t, err)
	return contract.String()
}

func (th *testHost) balances(t *testing.T, addr string) []core.Coin {
	t.Helper()
	coins, err := th.Balances(context.Background(), addr)
	assert.NoError(t, err)
	return coins
}

func (th *testHost) value(t *testing.T, contract string) *core.Value {
	t.Helper()
	value, err := th.Query(context.Background(), contract)
	assert.NoError(t, err)
	return value
}

func atoms(amount uint64) []core.Coin {
	return []core.Coin{{Denom: atom, Amount: amount}}
}

func none() []core.Coin {
	return []core.Coin{}
}

func TestQueryValue(t *testing.T) {
	th := newTestHost(t)
	sender := th.addr(t, "sender")

	contract := th.instantiate(t, sender, nil)

	value := th.value(t, contract)
	check.True(t, value.Open)
	check.Equal(t, atom, value.Token)
	check.Equal(t, core.Addr(sender), value.Owner)
	check.True(t, value.Part.Equal(tenPercent))
	check.Equal(t, []core.BidEntry{}, value.Bids)
	check.Equal(t, core.BidEntry{Addr: core.Addr(sender), Amount: 0}, value.HighestBid)
}

func TestCreateContractWithOwner(t *testing.T) {
	th := newTestHost(t)
	sender := th.addr(t, "sender")
	owner := th.addr(t, "owner")

	contract := th.instantiate(t, sender, &owner)

	value := th.value(t, contract)
	check.Equal(t, core.Addr(owner), value.Owner)
	check.Equal(t, core.BidEntry{Addr: core.Addr(sender), Amount: 0}, value.HighestBid)
}

func TestInstantiate_InvalidOwner(t *testing.T) {
	th := newTestHost(t)
	sender := th.addr(t, "sender")
	owner := "Owner"

	_, _, err := th.Instantiate(context.Background(), sender, "Bidding contract",
		core.InstantiateParams{Owner: &owner, Part: tenPercent, Token: atom})

	var invalid *core.InvalidAddressError
	check.True(t, errors.As(err, &invalid))

	contracts, err := th.Contracts(context.Background())
	assert.NoError(t, err)
	check.Equal(t, 0, len(contracts))
}

func TestInstantiate_DistinctAddresses(t *testing.T) {
	th := newTestHost(t)
	sender := th.addr(t, "sender")

	first := th.instantiate(t, sender, nil)
	second := th.instantiate(t, sender, nil)
	check.NotEqual(t, first, second)

	info, err := th.Contract(context.Background(), first)
	assert.NoError(t, err)
	check.Equal(t, core.Addr(sender), info.Creator)
	check.Equal(t, "Bidding contract", info.Label)

	contracts, err := th.Contracts(context.Background())
	assert.NoError(t, err)
	check.Equal(t, 2, len(contracts))
}

func TestBidCloseRetract(t *testing.T) {
	ctx := context.Background()
	th := newTestHost(t)
	sender1 := th.addr(t, "sender1")
	sender2 := th.addr(t, "sender2")
	sender3 := th.addr(t, "sender3")
	owner := th.addr(t, "owner")
	th.mint(t, sender1, 20)
	th.mint(t, sender2, 10)
	th.mint(t, sender3, 5)

	contract := th.instantiate(t, sender1, &owner)

	_, err := th.Bid(ctx, contract, sender2, atoms(10))
	assert.NoError(t, err)

	value := th.value(t, contract)
	check.Equal(t, []core.BidEntry{{Addr: core.Addr(sender2), Amount: 9}}, value.Bids)
	check.Equal(t, core.BidEntry{Addr: core.Addr(sender2), Amount: 9}, value.HighestBid)
	check.Equal(t, atoms(1), th.balances(t, owner))
	check.Equal(t, atoms(20), th.balances(t, sender1))
	check.Equal(t, none(), th.balances(t, sender2))
	check.Equal(t, atoms(9), th.balances(t, contract))

	_, err = th.Bid(ctx, contract, sender3, atoms(5))
	var tooLow *core.BidTooLowError
	assert.True(t, errors.As(err, &tooLow))
	check.Equal(t, uint64(9), tooLow.Highest)
	check.Equal(t, uint64(0), tooLow.SenderTotal)
	check.Equal(t, atoms(5), th.balances(t, sender3))

	_, err = th.Bid(ctx, contract, sender1, atoms(20))
	assert.NoError(t, err)

	value = th.value(t, contract)
	check.Equal(t, sortedBids([]core.BidEntry{
		{Addr: core.Addr(sender1), Amount: 18},
		{Addr: core.Addr(sender2), Amount: 9},
	}), value.Bids)
	check.Equal(t, core.BidEntry{Addr: core.Addr(sender1), Amount: 18}, value.HighestBid)
	check.Equal(t, atoms(3), th.balances(t, owner))
	check.Equal(t, none(), th.balances(t, sender1))
	check.Equal(t, atoms(27), th.balances(t, contract))

	_, err = th.Close(ctx, contract, owner)
	assert.NoError(t, err)
	check.Equal(t, atoms(21), th.balances(t, owner))
	check.Equal(t, atoms(9), th.balances(t, contract))

	_, err = th.Retract(ctx, contract, sender2, &sender1)
	assert.NoError(t, err)

	value = th.value(t, contract)
	check.False(t, value.Open)
	check.Equal(t, []core.BidEntry{}, value.Bids)
	check.Equal(t, atoms(9), th.balances(t, sender1))
	check.Equal(t, none(), th.balances(t, sender2))
	check.Equal(t, none(), th.balances(t, contract))
}

func TestClose(t *testing.T) {
	ctx := context.Background()
	th := newTestHost(t)
	sender := th.addr(t, "sender")
	owner := th.addr(t, "owner")

	contract := th.instantiate(t, sender, &owner)

	_, err := th.Close(ctx, contract, sender)
	var unauthorized *core.UnauthorizedError
	assert.True(t, errors.As(err, &unauthorized))
	check.Equal(t, core.Addr(owner), unauthorized.Owner)

	_, err = th.Close(ctx, contract, owner)
	assert.NoError(t, err)
	check.False(t, th.value(t, contract).Open)

	_, err = th.Close(ctx, contract, owner)
	check.True(t, errors.Is(err, core.ErrBiddingAlreadyClosed))
}

func TestCloseWithBids(t *testing.T) {
	ctx := context.Background()
	th := newTestHost(t)
	sender := th.addr(t, "sender")
	owner := th.addr(t, "owner")
	th.mint(t, sender, 10)

	contract := th.instantiate(t, sender, &owner)

	_, err := th.Bid(ctx, contract, sender, atoms(10))
	assert.NoError(t, err)
	check.Equal(t, atoms(1), th.balances(t, owner))
	check.Equal(t, none(), th.balances(t, sender))
	check.Equal(t, atoms(9), th.balances(t, contract))

	_, err = th.Close(ctx, contract, owner)
	assert.NoError(t, err)

	value := th.value(t, contract)
	check.False(t, value.Open)
	check.Equal(t, []core.BidEntry{}, value.Bids)
	check.Equal(t, atoms(10), th.balances(t, owner))
	check.Equal(t, none(), th.balances(t, contract))

	_, err = th.Close(ctx, contract, owner)
	check.True(t, errors.Is(err, core.ErrBiddingAlreadyClosed))
}

func TestFailedCallLeavesStoreUnchanged(t *testing.T) {
	ctx := context.Background()
	th := newTestHost(t)
	sender := th.addr(t, "sender")
	bidder := th.addr(t, "bidder")
	owner := th.addr(t, "owner")
	th.mint(t, sender, 10)
	th.mint(t, bidder, 5)
	contract := th.instantiate(t, sender, &owner)

	_, err := th.Bid(ctx, contract, sender, atoms(10))
	assert.NoError(t, err)
	before := snapshot(t, th.db)

	// The bidder's funds are escrowed inside the call before the auction
	// rejects the bid.
	_, err = th.Bid(ctx, contract, bidder, atoms(5))
	var tooLow *core.BidTooLowError
	check.True(t, errors.As(err, &tooLow))
	check.Equal(t, before, snapshot(t, th.db))
	check.Equal(t, atoms(5), th.balances(t, bidder))

	_, err = th.Retract(ctx, contract, sender, nil)
	check.True(t, errors.Is(err, core.ErrEarlyRetract))
	check.Equal(t, before, snapshot(t, th.db))

	_, err = th.Bid(ctx, contract, bidder, atoms(50))
	check.True(t, errors.Is(err, bank.ErrInsufficientFunds))
	check.Equal(t, before, snapshot(t, th.db))
}

func TestRetract_InvalidReceiverKeepsEntry(t *testing.T) {
	ctx := context.Background()
	th := newTestHost(t)
	sender := th.addr(t, "sender")
	bidder := th.addr(t, "bidder")
	th.mint(t, sender, 10)
	th.mint(t, bidder, 20)
	contract := th.instantiate(t, sender, nil)

	_, err := th.Bid(ctx, contract, sender, atoms(10))
	assert.NoError(t, err)
	_, err = th.Bid(ctx, contract, bidder, atoms(20))
	assert.NoError(t, err)
	_, err = th.Close(ctx, contract, sender)
	assert.NoError(t, err)

	receiver := "not an address"
	_, err = th.Retract(ctx, contract, sender, &receiver)
	var invalid *core.InvalidAddressError
	check.True(t, errors.As(err, &invalid))

	value := th.value(t, contract)
	check.Equal(t, []core.BidEntry{{Addr: core.Addr(sender), Amount: 9}}, value.Bids)

	// Own commission 1, bidder commission 2, winning payout 18, refund 9.
	_, err = th.Retract(ctx, contract, sender, nil)
	assert.NoError(t, err)
	check.Equal(t, atoms(30), th.balances(t, sender))
	check.Equal(t, none(), th.balances(t, contract))

	_, err = th.Retract(ctx, contract, sender, nil)
	check.True(t, errors.Is(err, core.ErrNoBidsToRetract))
}

func TestUnknownContract(t *testing.T) {
	ctx := context.Background()
	th := newTestHost(t)
	sender := th.addr(t, "sender")
	stranger := th.addr(t, "stranger")

	_, err := th.Query(ctx, stranger)
	check.True(t, errors.Is(err, ErrUnknownContract))

	_, err = th.Close(ctx, stranger, sender)
	check.True(t, errors.Is(err, ErrUnknownContract))
}

func TestInvalidSender(t *testing.T) {
	th := newTestHost(t)
	contract := th.instantiate(t, th.addr(t, "sender"), nil)
	rejected := callsTotal.WithLabelValues("bid", outcomeRejected)
	before := testutil.ToFloat64(rejected)

	_, err := th.Bid(context.Background(), contract, "SENDER", atoms(1))
	var invalid *core.InvalidAddressError
	check.True(t, errors.As(err, &invalid))
	check.Equal(t, before+1, testutil.ToFloat64(rejected))
}

func TestInstantiate_InvalidSenderCounted(t *testing.T) {
	th := newTestHost(t)
	rejected := callsTotal.WithLabelValues("instantiate", outcomeRejected)
	before := testutil.ToFloat64(rejected)

	_, _, err := th.Instantiate(context.Background(), "not an address", "Bidding contract",
		core.InstantiateParams{Part: tenPercent, Token: atom})
	var invalid *core.InvalidAddressError
	check.True(t, errors.As(err, &invalid))
	check.Equal(t, before+1, testutil.ToFloat64(rejected))
}

func TestBid_InvalidFundsLeaveBalancesUnchanged(t *testing.T) {
	tests := []struct {
		name  string
		funds []core.Coin
	}{
		{name: "repeated denomination", funds: []core.Coin{{Denom: atom, Amount: 5}, {Denom: atom, Amount: 10}}},
		{name: "zero amount", funds: []core.Coin{{Denom: atom, Amount: 10}, {Denom: "uosmo", Amount: 0}}},
		{name: "empty denomination", funds: []core.Coin{{Denom: "", Amount: 10}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := newTestHost(t)
			sender := th.addr(t, "sender")
			bidder := th.addr(t, "bidder")
			th.mint(t, bidder, 15)
			contract := th.instantiate(t, sender, nil)
			before := snapshot(t, th.db)

			_, err := th.Bid(context.Background(), contract, bidder, tt.funds)
			check.True(t, errors.Is(err, ErrInvalidFunds))
			check.Equal(t, before, snapshot(t, th.db))
			check.Equal(t, atoms(15), th.balances(t, bidder))
			check.Equal(t, none(), th.balances(t, contract))
			check.Equal(t, []core.BidEntry{}, th.value(t, contract).Bids)
		})
	}
}

func TestContract_RegistryRecord(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 30, 45, 123456789, time.UTC)
	h, err := New(store.NewMemory(), WithClock(func() time.Time { return created }))
	assert.NoError(t, err)
	th := &testHost{Host: h}
	sender := th.addr(t, "sender")

	contract := th.instantiate(t, sender, nil)

	info, err := th.Contract(context.Background(), contract)
	assert.NoError(t, err)
	check.Equal(t, core.Addr(contract), info.Address)
	check.True(t, created.Equal(info.Created))
	check.Equal(t, core.ContractName, info.Name)
	check.Equal(t, core.ContractVersion, info.Version)
}

func TestQueryCache(t *testing.T) {
	ctx := context.Background()
	th := newTestHost(t)
	sender := th.addr(t, "sender")
	th.mint(t, sender, 10)
	contract := th.instantiate(t, sender, nil)

	first := th.value(t, contract)
	first.Bids = append(first.Bids, core.BidEntry{Addr: "tampered", Amount: 1})
	check.Equal(t, []core.BidEntry{}, th.value(t, contract).Bids)

	_, err := th.Bid(ctx, contract, sender, atoms(10))
	assert.NoError(t, err)
	check.Equal(t, []core.BidEntry{{Addr: core.Addr(sender), Amount: 9}}, th.value(t, contract).Bids)
}

func snapshot(t *testing.T, db store.KV) map[string]string {
	t.Helper()
	iter, err := db.Iterator(context.Background(), nil, nil)
	assert.NoError(t, err)
	defer iter.Close()

	out := map[string]string{}
	for iter.Next() {
		out[string(iter.Key())] = string(iter.Value())
	}
	assert.NoError(t, iter.Error())
	return out
}

func sortedBids(bids []core.BidEntry) []core.BidEntry {
	out := append([]core.BidEntry{}, bids...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Addr < out[j-1].Addr; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
