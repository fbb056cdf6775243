package core

import (
	"github.com/fxamacker/cbor/v2"
)

// encMode produces deterministic encodings so identical records always
// serialize to identical bytes. Times keep nanosecond precision.
var encMode = func() cbor.EncMode {
	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	opts.TimeTag = cbor.EncTagRequired
	em, err := opts.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// MarshalRecord encodes v the way every persisted record is encoded.
func MarshalRecord(v any) ([]byte, error) {
	return encMode.Marshal(v)
}
