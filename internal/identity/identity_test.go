package identity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mobility-finance-engine/internal/identity"
)

func TestNormalize_ChecksumsHexAddress(t *testing.T) {
	lower := "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"
	want := "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"

	assert.Equal(t, want, identity.Normalize(lower))
	assert.Equal(t, want, identity.Normalize(want))
}

func TestNormalize_KeepsNonHexIdentifier(t *testing.T) {
	assert.Equal(t, "city-treasury", identity.Normalize("city-treasury"))
}

func TestSame(t *testing.T) {
	addr := "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"

	assert.True(t, identity.Same(addr, "0x5AAEB6053F3E94C9B9A09F33669435E7EF1BEAED"))
	assert.True(t, identity.Same("city-treasury", "city-treasury"))
	assert.False(t, identity.Same(addr, "city-treasury"))
	assert.False(t, identity.Same("", ""))
	assert.False(t, identity.Same(addr, ""))
}
