// Package contract exposes the room engine through the four byte-oriented
// entry points a hosting environment calls: validate, update, summarize, and
// delta extraction. All state crossing this boundary is serialized; malformed
// input is refused here, while individual bad records inside a well-formed
// delta are filtered by the engine.
package contract

import (
	"github.com/freenet/river-sub001/internal/room"
)

// ValidateState reports whether the serialized state is acceptable under the
// given parameters. Empty state is always valid: every room starts from it.
func ValidateState(paramBytes, stateBytes []byte) error {
	params, err := room.DecodeParameters(paramBytes)
	if err != nil {
		return err
	}
	if len(stateBytes) == 0 {
		return nil
	}
	state, err := room.DecodeState(stateBytes)
	if err != nil {
		return err
	}
	return state.Verify(params)
}

// UpdateState folds serialized deltas into the state in arrival order and
// returns the new serialized state. The base state must verify; a delta that
// cannot be decoded is refused outright.
func UpdateState(paramBytes, stateBytes []byte, deltas [][]byte) ([]byte, error) {
	params, err := room.DecodeParameters(paramBytes)
	if err != nil {
		return nil, err
	}
	state, err := room.DecodeState(stateBytes)
	if err != nil {
		return nil, err
	}
	if err := state.Verify(params); err != nil {
		return nil, err
	}
	for i, db := range deltas {
		delta, err := room.DecodeDelta(db)
		if err != nil {
			return nil, err
		}
		if err := state.ApplyDelta(params, delta); err != nil {
			return nil, err
		}
		log.Tracef("applied delta %d of %d", i+1, len(deltas))
	}
	return state.Encode()
}

// SummarizeState digests the serialized state for anti-entropy exchange.
func SummarizeState(paramBytes, stateBytes []byte) ([]byte, error) {
	params, err := room.DecodeParameters(paramBytes)
	if err != nil {
		return nil, err
	}
	state, err := room.DecodeState(stateBytes)
	if err != nil {
		return nil, err
	}
	return state.Summarize(params).Encode()
}

// GetStateDelta returns the serialized records the peer behind the summary
// lacks, or nil when it already has everything.
func GetStateDelta(paramBytes, stateBytes, summaryBytes []byte) ([]byte, error) {
	params, err := room.DecodeParameters(paramBytes)
	if err != nil {
		return nil, err
	}
	state, err := room.DecodeState(stateBytes)
	if err != nil {
		return nil, err
	}
	summary, err := room.DecodeSummary(summaryBytes)
	if err != nil {
		return nil, err
	}
	delta := state.Delta(params, summary)
	if delta == nil {
		return nil, nil
	}
	return delta.Encode()
}
