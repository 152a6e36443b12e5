// Package codec provides the CBOR encoding used for durable snapshots, such
// as the persisted sync queue. Encoding is deterministic (core deterministic
// encoding, RFC 3339 timestamps) so identical state produces identical bytes.
package codec

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	var err error
	if encMode, err = opts.EncMode(); err != nil {
		panic(fmt.Sprintf("codec: build encode mode: %v", err))
	}
	decOpts := cbor.DecOptions{}
	if decMode, err = decOpts.DecMode(); err != nil {
		panic(fmt.Sprintf("codec: build decode mode: %v", err))
	}
}

// Marshal encodes v as deterministic CBOR.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into dst.
func Unmarshal(data []byte, dst any) error {
	return decMode.Unmarshal(data, dst)
}

// NewEncoder returns an encoder writing deterministic CBOR to w.
func NewEncoder(w io.Writer) *cbor.Encoder {
	return encMode.NewEncoder(w)
}

// NewDecoder returns a decoder reading CBOR from r.
func NewDecoder(r io.Reader) *cbor.Decoder {
	return decMode.NewDecoder(r)
}
