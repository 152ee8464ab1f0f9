package room

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/freenet/river-sub001/internal/crypto"
)

// All room data is serialized with deterministic CBOR so that equal states
// produce equal bytes on every peer. Signatures are computed over the same
// encoding, which means a record signed once verifies everywhere.
var (
	encMode = func() cbor.EncMode {
		em, err := cbor.CoreDetEncOptions().EncMode()
		if err != nil {
			panic(err)
		}
		return em
	}()

	decMode = func() cbor.DecMode {
		dm, err := cbor.DecOptions{
			DupMapKey:   cbor.DupMapKeyEnforcedAPF,
			IndefLength: cbor.IndefLengthForbidden,
		}.DecMode()
		if err != nil {
			panic(err)
		}
		return dm
	}()
)

// marshalRecord serializes the signable portion of a record. Every signature
// in a room covers bytes produced here.
func marshalRecord(v any) ([]byte, error) {
	b, err := encMode.Marshal(v)
	if err != nil {
		return nil, ErrEncodeFailed.WithDetails(err.Error())
	}
	return b, nil
}

// recordID hashes a full authorized record, signature included, giving each
// stored record a stable content address.
func recordID(v any) crypto.RecordID {
	b, err := encMode.Marshal(v)
	if err != nil {
		// Our record types always encode; a zero id is still deterministic.
		return crypto.RecordID{}
	}
	return crypto.HashRecord(b)
}
