package idempotency

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestHash_SameFieldsSameHash(t *testing.T) {
	a := RequestHash("acc-1", "10.00", "C")
	b := RequestHash("acc-1", "10.00", "C")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64) // hex-encoded sha256
}

func TestRequestHash_AnyFieldChangesHash(t *testing.T) {
	base := RequestHash("acc-1", "10.00", "C")

	assert.NotEqual(t, base, RequestHash("acc-2", "10.00", "C"))
	assert.NotEqual(t, base, RequestHash("acc-1", "10.01", "C"))
	assert.NotEqual(t, base, RequestHash("acc-1", "10.00", "D"))
}

func TestRequestHash_FieldBoundariesMatter(t *testing.T) {
	// "ab"+"c" and "a"+"bc" must not collide through concatenation.
	assert.NotEqual(t, RequestHash("ab", "c"), RequestHash("a", "bc"))
}

func TestLegKey_DeterministicAndDistinctPerLeg(t *testing.T) {
	debit := LegKey("key-1", "debit")
	assert.Equal(t, debit, LegKey("key-1", "debit"))
	assert.NotEqual(t, debit, LegKey("key-1", "credit"))
	assert.NotEqual(t, debit, LegKey("key-1", "reversal"))
	assert.NotEqual(t, debit, LegKey("key-2", "debit"))
}
