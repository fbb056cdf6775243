// Package host executes auction calls against a shared store. Each call runs
// inside one transaction: attached funds are escrowed, the auction logic
// runs, its queued transfers are paid out, and only then is anything
// committed. A failure anywhere discards every write of the call.
package host

import (
	"context"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/cloudx-io/escrowauction/bank"
	"github.com/cloudx-io/escrowauction/core"
	"github.com/cloudx-io/escrowauction/store"
)

var (
	// ErrUnknownContract is returned for calls against an address that no
	// Instantiate created.
	ErrUnknownContract = errors.New("unknown contract")
	// ErrInvalidFunds is returned when attached funds repeat a denomination,
	// carry a zero amount or have no denomination.
	ErrInvalidFunds = errors.New("invalid funds")
)

const defaultCacheSize = 256

var (
	registryPrefix  = []byte("registry/")
	contractsPrefix = []byte("contracts/")
)

// ContractInfo is the registry record of an auction instance.
type ContractInfo struct {
	Address core.Addr `cbor:"1,keyasint" json:"address"`
	Creator core.Addr `cbor:"2,keyasint" json:"creator"`
	Label   string    `cbor:"3,keyasint" json:"label"`
	Created time.Time `cbor:"4,keyasint" json:"created"`
	// Name and Version identify the auction logic that created the instance.
	Name    string `cbor:"5,keyasint" json:"name"`
	Version string `cbor:"6,keyasint" json:"version"`
}

// Host serializes calls and gives each one all-or-nothing semantics.
type Host struct {
	db     store.KV
	addrs  core.AddressCodec
	bank   *bank.Bank
	logger *zap.Logger
	now    func() time.Time

	// values caches committed query results per instance.
	values *lru.Cache[core.Addr, *core.Value]

	mu sync.Mutex
}

// Option customizes a Host.
type Option func(*hostOptions)

type hostOptions struct {
	logger    *zap.Logger
	addrs     core.AddressCodec
	cacheSize int
	now       func() time.Time
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *hostOptions) { o.logger = logger }
}

// WithAddressCodec sets the address format. Defaults to DefaultAddressPrefix.
func WithAddressCodec(addrs core.AddressCodec) Option {
	return func(o *hostOptions) { o.addrs = addrs }
}

// WithCacheSize sets how many instance query results are cached.
func WithCacheSize(size int) Option {
	return func(o *hostOptions) { o.cacheSize = size }
}

// WithClock overrides the time source used for registry timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *hostOptions) { o.now = now }
}

// New creates a host over db.
func New(db store.KV, opts ...Option) (*Host, error) {
	o := hostOptions{
		logger:    zap.NewNop(),
		addrs:     core.NewAddressCodec(""),
		cacheSize: defaultCacheSize,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	values, err := lru.New[core.Addr, *core.Value](o.cacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "create value cache")
	}

	return &Host{
		db:     db,
		addrs:  o.addrs,
		bank:   bank.New(o.addrs),
		logger: o.logger,
		now:    o.now,
		values: values,
	}, nil
}

// Addresses returns the codec the host validates addresses with.
func (h *Host) Addresses() core.AddressCodec {
	return h.addrs
}

func registryKey(contract core.Addr) []byte {
	return append(append([]byte{}, registryPrefix...), contract...)
}

func instancePrefix(contract core.Addr) []byte {
	prefix := append(append([]byte{}, contractsPrefix...), contract...)
	return append(prefix, '/')
}

func (h *Host) auction(kv store.KV, contract core.Addr) *core.Auction {
	return core.New(store.NewPrefixed(kv, instancePrefix(contract)), h.addrs)
}

func (h *Host) contractInfo(ctx context.Context, kv store.KV, contract string) (*ContractInfo, error) {
	raw, err := kv.Read(ctx, registryKey(core.Addr(contract)))
	if err != nil {
		if store.IsNotFound(err) {
			return nil, errors.Wrapf(ErrUnknownContract, "%s", contract)
		}
		return nil, errors.Wrap(err, "read registry")
	}
	var info ContractInfo
	if err := cbor.Unmarshal(raw, &info); err != nil {
		return nil, errors.Wrap(err, "decode registry")
	}
	return &info, nil
}

// run executes fn inside a fresh transaction and commits when fn succeeds.
func (h *Host) run(ctx context.Context, operation string, contract core.Addr, fn func(tx *store.Tx) (*core.Response, error)) (resp *core.Response, err error) {
	started := time.Now()

	h.mu.Lock()
	defer h.mu.Unlock()

	defer func() {
		observeCall(operation, started, err)
		fields := []zap.Field{
			zap.String("operation", operation),
			zap.String("contract", contract.String()),
			zap.Duration("elapsed", time.Since(started)),
		}
		switch outcomeOf(err) {
		case outcomeCommitted:
			h.logger.Info("call committed", append(fields, zap.Int("transfers", len(resp.Transfers)))...)
		case outcomeRejected:
			h.logger.Info("call rejected", append(fields, zap.Error(err))...)
		default:
			h.logger.Error("call failed", append(fields, zap.Error(err))...)
		}
	}()

	tx := store.Begin(h.db)
	defer tx.Discard()

	resp, err = fn(tx)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit call")
	}

	if contract != "" {
		h.values.Remove(contract)
	}
	observeTransfers(resp.Transfers)
	return resp, nil
}

// payOut executes the transfers an auction call queued, out of the
// instance's escrow account.
func (h *Host) payOut(ctx context.Context, tx *store.Tx, contract core.Addr, resp *core.Response) error {
	for _, transfer := range resp.Transfers {
		if err := h.bank.Send(ctx, tx, contract, transfer.To, []core.Coin{transfer.Coin}); err != nil {
			return errors.Wrapf(err, "transfer %d%s to %s", transfer.Coin.Amount, transfer.Coin.Denom, transfer.To)
		}
	}
	return nil
}

// Instantiate creates a new auction instance and returns its address.
func (h *Host) Instantiate(ctx context.Context, sender, label string, params core.InstantiateParams) (core.Addr, *core.Response, error) {
	var contract core.Addr
	resp, err := h.run(ctx, "instantiate", "", func(tx *store.Tx) (*core.Response, error) {
		creator, err := h.addrs.Validate(sender)
		if err != nil {
			return nil, err
		}
		contract, err = h.addrs.Encode(core.ComputeInstanceHash(creator, label, uuid.NewString()))
		if err != nil {
			return nil, errors.Wrap(err, "derive contract address")
		}

		raw, err := core.MarshalRecord(ContractInfo{
			Address: contract,
			Creator: creator,
			Label:   label,
			Created: h.now().UTC(),
			Name:    core.ContractName,
			Version: core.ContractVersion,
		})
		if err != nil {
			return nil, errors.Wrap(err, "encode registry")
		}
		if err := tx.Write(ctx, registryKey(contract), raw); err != nil {
			return nil, errors.Wrap(err, "write registry")
		}
		return h.auction(tx, contract).Instantiate(ctx, creator, params)
	})
	if err != nil {
		return "", nil, err
	}
	return contract, resp, nil
}

// validateFunds rejects attachments the escrow could not account for: only
// one coin per denomination is credited to a bid, so a repeated denomination
// would leave the rest stranded in the instance account.
func validateFunds(funds []core.Coin) error {
	seen := make(map[string]struct{}, len(funds))
	for _, coin := range funds {
		if coin.Denom == "" {
			return errors.Wrap(ErrInvalidFunds, "empty denomination")
		}
		if coin.Amount == 0 {
			return errors.Wrapf(ErrInvalidFunds, "zero amount of %s", coin.Denom)
		}
		if _, ok := seen[coin.Denom]; ok {
			return errors.Wrapf(ErrInvalidFunds, "duplicate denomination %s", coin.Denom)
		}
		seen[coin.Denom] = struct{}{}
	}
	return nil
}

// execute escrows funds from sender into the instance, runs op and pays out
// the transfers it queued.
func (h *Host) execute(ctx context.Context, operation, contract, sender string, funds []core.Coin,
	op func(a *core.Auction, sender core.Addr) (*core.Response, error),
) (*core.Response, error) {
	return h.run(ctx, operation, core.Addr(contract), func(tx *store.Tx) (*core.Response, error) {
		caller, err := h.addrs.Validate(sender)
		if err != nil {
			return nil, err
		}
		if err := validateFunds(funds); err != nil {
			return nil, err
		}
		info, err := h.contractInfo(ctx, tx, contract)
		if err != nil {
			return nil, err
		}
		if len(funds) > 0 {
			if err := h.bank.Send(ctx, tx, caller, info.Address.String(), funds); err != nil {
				return nil, errors.Wrap(err, "escrow funds")
			}
		}

		resp, err := op(h.auction(tx, info.Address), caller)
		if err != nil {
			return nil, err
		}
		if err := h.payOut(ctx, tx, info.Address, resp); err != nil {
			return nil, err
		}
		return resp, nil
	})
}

// Bid places a bid with the attached funds.
func (h *Host) Bid(ctx context.Context, contract, sender string, funds []core.Coin) (*core.Response, error) {
	return h.execute(ctx, "bid", contract, sender, funds, func(a *core.Auction, caller core.Addr) (*core.Response, error) {
		return a.Bid(ctx, caller, funds)
	})
}

// Close ends bidding and pays the winning escrow to the owner.
func (h *Host) Close(ctx context.Context, contract, sender string) (*core.Response, error) {
	return h.execute(ctx, "close", contract, sender, nil, func(a *core.Auction, caller core.Addr) (*core.Response, error) {
		return a.Close(ctx, caller)
	})
}

// Retract refunds the sender's escrow to receiver, or to the sender when nil.
func (h *Host) Retract(ctx context.Context, contract, sender string, receiver *string) (*core.Response, error) {
	return h.execute(ctx, "retract", contract, sender, nil, func(a *core.Auction, caller core.Addr) (*core.Response, error) {
		return a.Retract(ctx, caller, receiver)
	})
}

// Query returns the current value of an instance.
func (h *Host) Query(ctx context.Context, contract string) (*core.Value, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if value, ok := h.values.Get(core.Addr(contract)); ok {
		return cloneValue(value), nil
	}

	info, err := h.contractInfo(ctx, h.db, contract)
	if err != nil {
		return nil, err
	}
	value, err := h.auction(h.db, info.Address).Value(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "query value")
	}

	h.values.Add(info.Address, value)
	return cloneValue(value), nil
}

// Contract returns the registry record of an instance.
func (h *Host) Contract(ctx context.Context, contract string) (*ContractInfo, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.contractInfo(ctx, h.db, contract)
}

// Contracts lists every registered instance ordered by address.
func (h *Host) Contracts(ctx context.Context) ([]ContractInfo, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	iter, err := h.db.Iterator(ctx, registryPrefix, store.PrefixEnd(registryPrefix))
	if err != nil {
		return nil, errors.Wrap(err, "iterate registry")
	}
	defer iter.Close()

	infos := make([]ContractInfo, 0)
	for iter.Next() {
		var info ContractInfo
		if err := cbor.Unmarshal(iter.Value(), &info); err != nil {
			return nil, errors.Wrap(err, "decode registry")
		}
		infos = append(infos, info)
	}
	if err := iter.Error(); err != nil {
		return nil, errors.Wrap(err, "iterate registry")
	}
	return infos, nil
}

// Mint funds an account. It is the only way balances enter the system.
func (h *Host) Mint(ctx context.Context, to string, coins []core.Coin) error {
	_, err := h.run(ctx, "mint", "", func(tx *store.Tx) (*core.Response, error) {
		if err := h.bank.Mint(ctx, tx, to, coins); err != nil {
			return nil, err
		}
		return core.NewResponse(), nil
	})
	return err
}

// Balances returns every non-zero balance of addr.
func (h *Host) Balances(ctx context.Context, addr string) ([]core.Coin, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.bank.AllBalances(ctx, h.db, core.Addr(addr))
}

func cloneValue(v *core.Value) *core.Value {
	out := *v
	out.Bids = append([]core.BidEntry{}, v.Bids...)
	return &out
}
