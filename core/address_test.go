package core

import (
	"errors"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

func TestAddressCodec_RoundTrip(t *testing.T) {
	codec := NewAddressCodec("")
	check.Equal(t, DefaultAddressPrefix, codec.Prefix())

	addr, err := codec.AccountAddress("alice")
	assert.NoError(t, err)
	check.True(t, strings.HasPrefix(addr.String(), "auction1"))

	validated, err := codec.Validate(addr.String())
	assert.NoError(t, err)
	check.Equal(t, addr, validated)

	// 32-byte instance addresses are accepted too
	instance, err := codec.Encode(ComputeInstanceHash(addr, "label", "nonce"))
	assert.NoError(t, err)
	_, err = codec.Validate(instance.String())
	check.NoError(t, err)
}

func TestAddressCodec_Invalid(t *testing.T) {
	codec := NewAddressCodec("auction")
	other := NewAddressCodec("cosmos")

	valid, err := codec.AccountAddress("alice")
	assert.NoError(t, err)
	foreign, err := other.AccountAddress("alice")
	assert.NoError(t, err)

	// Valid checksum but only 4 bytes of payload
	shortData, err := bech32.ConvertBits([]byte{1, 2, 3, 4}, 8, 5, true)
	assert.NoError(t, err)
	short, err := bech32.Encode("auction", shortData)
	assert.NoError(t, err)

	// Flip the last checksum character
	last := valid.String()[len(valid)-1]
	replacement := "q"
	if last == 'q' {
		replacement = "p"
	}
	badChecksum := valid.String()[:len(valid)-1] + replacement

	tests := []struct {
		name    string
		address string
	}{
		{"empty", ""},
		{"plain word", "owner"},
		{"uppercase", strings.ToUpper(valid.String())},
		{"wrong prefix", foreign.String()},
		{"bad checksum", badChecksum},
		{"short payload", short},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Validate(tt.address)
			var invalid *InvalidAddressError
			check.True(t, errors.As(err, &invalid))
			check.Equal(t, tt.address, invalid.Address)
		})
	}
}
