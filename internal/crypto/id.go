package crypto

import (
	"bytes"
	"encoding/hex"

	"github.com/cloudflare/circl/sign/ed25519"
	"lukechampine.com/blake3"
)

const (
	// MemberIDSize is the width of a derived member identifier.
	MemberIDSize = 8

	// RecordIDSize is the width of a content-derived record identifier.
	RecordIDSize = 32
)

// MemberID is the fixed-width identifier derived from a member's public key.
// The full 8 bytes are the identity everywhere in the state. Truncating to 8
// bytes can collide: two keys that hash to the same id contend for a single
// member slot, every replica keeps the same record (smallest content hash),
// and the losing key cannot join that room. The Short form exists only for
// display and must never be used for equality or lookups.
type MemberID [MemberIDSize]byte

// NewMemberID derives the identifier for a public key by truncating its
// BLAKE3 digest.
func NewMemberID(pub ed25519.PublicKey) MemberID {
	sum := blake3.Sum256(pub)
	var id MemberID
	copy(id[:], sum[:MemberIDSize])
	return id
}

// ParseMemberID decodes the full 16-hex-digit form produced by String.
func ParseMemberID(s string) (MemberID, error) {
	var id MemberID
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, ErrBadID.WithDetails(err.Error())
	}
	if len(b) != MemberIDSize {
		return id, ErrBadID.WithDetails("member id must be 8 bytes")
	}
	copy(id[:], b)
	return id, nil
}

func (id MemberID) String() string {
	return hex.EncodeToString(id[:])
}

// Short returns the truncated display form (first 4 bytes). Distinct members
// can share a Short form.
func (id MemberID) Short() string {
	return hex.EncodeToString(id[:4])
}

func (id MemberID) IsZero() bool {
	return id == MemberID{}
}

// Compare orders identifiers lexicographically, the ordering used for
// deterministic tie-breaks.
func (id MemberID) Compare(other MemberID) int {
	return bytes.Compare(id[:], other[:])
}

// MarshalBinary encodes the identifier as its raw bytes so CBOR carries it
// as a byte string rather than an integer array.
func (id MemberID) MarshalBinary() ([]byte, error) {
	return id[:], nil
}

func (id *MemberID) UnmarshalBinary(data []byte) error {
	if len(data) != MemberIDSize {
		return ErrBadID.WithDetails("member id must be 8 bytes")
	}
	copy(id[:], data)
	return nil
}

// RecordID is the content-derived identifier of a signed collection record
// (ban, message). It is the BLAKE3 digest of the record's deterministic
// serialization including the signature, so the same content signed by the
// same key hashes identically and merges idempotently.
type RecordID [RecordIDSize]byte

// HashRecord derives the identifier for serialized record bytes.
func HashRecord(record []byte) RecordID {
	return RecordID(blake3.Sum256(record))
}

func (id RecordID) String() string {
	return hex.EncodeToString(id[:])
}

// Short returns the truncated display form; see MemberID.Short.
func (id RecordID) Short() string {
	return hex.EncodeToString(id[:4])
}

func (id RecordID) Compare(other RecordID) int {
	return bytes.Compare(id[:], other[:])
}

func (id RecordID) MarshalBinary() ([]byte, error) {
	return id[:], nil
}

func (id *RecordID) UnmarshalBinary(data []byte) error {
	if len(data) != RecordIDSize {
		return ErrBadID.WithDetails("record id must be 32 bytes")
	}
	copy(id[:], data)
	return nil
}
