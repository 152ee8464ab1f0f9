// Package composable defines the contract every replicated field of the room
// state implements. A field never synchronizes in isolation: peers exchange
// compact summaries, compute the records the other side lacks, and merge the
// resulting deltas. Convergence comes entirely from the merge discipline:
// applying the same deltas in any order, any number of times, must land every
// peer on an identical value. There is no coordinator to referee conflicts.
package composable

// State is implemented by each field of a composed aggregate. Parent is the
// fully composed aggregate type, so a field's validation can consult sibling
// fields (bans consult the member list, messages consult both). Params is the
// immutable per-instance data shared by all fields.
//
// Implementations must keep Verify, Summarize and Delta free of mutation, and
// ApplyDelta monotonic under union: merging a delta twice, or a set of deltas
// in any order, yields the same final value. Records that fail authorization
// are dropped during the merge, not surfaced as errors; a hard error from
// ApplyDelta means the merge itself could not proceed, not that a record was
// discarded.
type State[Parent, Params, Summary, Delta any] interface {
	// Verify checks that the field's records are well formed, correctly
	// signed, and consistent with the rest of the already-composed parent.
	Verify(parent Parent, params Params) error

	// Summarize produces a compact digest of the field's current records,
	// sufficient for a peer to compute a delta without seeing full state.
	Summarize(parent Parent, params Params) Summary

	// Delta returns the records present locally but absent from the old
	// summary. The second result is false when the peer lacks nothing.
	Delta(parent Parent, params Params, old Summary) (Delta, bool)

	// ApplyDelta merges incoming records into the field, then revalidates
	// and prunes whatever became invalid or exceeds a retention bound.
	ApplyDelta(parent Parent, params Params, delta Delta) error
}
