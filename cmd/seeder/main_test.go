package main

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpeningAmount_ParsesToTypedNumeric(t *testing.T) {
	n, err := openingAmount("100.00")
	require.NoError(t, err)
	require.True(t, n.Valid)
	assert.Equal(t, big.NewInt(10000).String(), n.Int.String())
	assert.Equal(t, int32(-2), n.Exp)
}

func TestOpeningAmount_RejectsNonNumericInput(t *testing.T) {
	_, err := openingAmount("plenty")
	require.Error(t, err)
}
