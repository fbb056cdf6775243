package core

import (
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

// DefaultAddressPrefix is the bech32 human-readable part used when none is configured.
const DefaultAddressPrefix = "auction"

// AddressCodec validates and encodes bech32 addresses with a fixed prefix.
type AddressCodec struct {
	prefix string
}

// NewAddressCodec returns a codec for prefix, or DefaultAddressPrefix when empty.
func NewAddressCodec(prefix string) AddressCodec {
	if prefix == "" {
		prefix = DefaultAddressPrefix
	}
	return AddressCodec{prefix: strings.ToLower(prefix)}
}

// Prefix returns the human-readable part addresses must carry.
func (c AddressCodec) Prefix() string {
	if c.prefix == "" {
		return DefaultAddressPrefix
	}
	return c.prefix
}

// Validate parses s as an address. Only lowercase (normalized) input is accepted.
func (c AddressCodec) Validate(s string) (Addr, error) {
	if s == "" {
		return "", &InvalidAddressError{Address: s, Reason: "empty address"}
	}
	if strings.ToLower(s) != s {
		return "", &InvalidAddressError{Address: s, Reason: "address not normalized"}
	}

	hrp, data, err := bech32.Decode(s)
	if err != nil {
		return "", &InvalidAddressError{Address: s, Reason: err.Error()}
	}
	if hrp != c.Prefix() {
		return "", &InvalidAddressError{Address: s, Reason: "wrong prefix " + hrp + ", expected " + c.Prefix()}
	}

	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return "", &InvalidAddressError{Address: s, Reason: err.Error()}
	}
	if len(raw) != 20 && len(raw) != 32 {
		return "", &InvalidAddressError{Address: s, Reason: "address must be 20 or 32 bytes"}
	}

	return Addr(s), nil
}

// Encode renders raw address bytes as a bech32 address.
func (c AddressCodec) Encode(raw []byte) (Addr, error) {
	data, err := bech32.ConvertBits(raw, 8, 5, true)
	if err != nil {
		return "", err
	}
	s, err := bech32.Encode(c.Prefix(), data)
	if err != nil {
		return "", err
	}
	return Addr(s), nil
}

// AccountAddress returns the deterministic account address for seed.
func (c AddressCodec) AccountAddress(seed string) (Addr, error) {
	return c.Encode(ComputeAccountHash(seed))
}
