// Package idempotency implements the durable dedup ledger every
// mutating endpoint consults before executing side effects.
package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// StatusReserved is the provisional status a key carries between Begin
// and Complete. A record observed with this status belongs to a request
// still in flight.
const StatusReserved = 202

// State classifies the outcome of Begin.
type State int

const (
	// Fresh: the key was reserved by this caller, who must eventually
	// call Complete.
	Fresh State = iota
	// Conflict: the key exists with a different request hash. The
	// request must fail without executing any side effect.
	Conflict
	// InFlight: the key exists with the same hash but no finalized
	// outcome yet. Exactly one concurrent caller observes Fresh; the
	// rest observe InFlight.
	InFlight
	// Replay: the key exists with the same hash and a finalized
	// outcome, returned verbatim.
	Replay
)

// BeginResult reports how a mutating request should proceed. Status and
// Body are only meaningful for Replay.
type BeginResult struct {
	State  State
	Status int
	Body   []byte
}

// RequestHash hashes the semantically relevant request fields. Two
// requests are "the same" exactly when their hashes match.
func RequestHash(fields ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(fields, "|")))
	return hex.EncodeToString(sum[:])
}

// LegKey derives the idempotency key for one remote leg of a saga from
// the client-supplied key. Deterministic, so a retried saga reuses the
// same leg keys and the receiving ledger dedups the calls.
func LegKey(key, leg string) string {
	return key + "/" + leg
}
