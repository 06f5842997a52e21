package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress("0x00000000000000000000000000000000000000ab")
	assert.NoError(t, err)
	assert.Equal(t, "0x00000000000000000000000000000000000000ab", addr.String())

	// Uppercase input normalizes to lowercase.
	addr, err = ParseAddress("0x00000000000000000000000000000000000000AB")
	assert.NoError(t, err)
	assert.Equal(t, "0x00000000000000000000000000000000000000ab", addr.String())

	cases := []string{
		"",
		"0x",
		"00000000000000000000000000000000000000ab",
		"0x00000000000000000000000000000000000000",     // too short
		"0x00000000000000000000000000000000000000abcd", // too long
		"0x00000000000000000000000000000000000000zz",
	}
	for _, raw := range cases {
		_, err := ParseAddress(raw)
		assert.Error(t, err, "expected %q to be rejected", raw)
	}
}

func TestAddressIsZero(t *testing.T) {
	assert.True(t, Address("").IsZero())
	assert.True(t, ZeroAddress.IsZero())

	addr, err := ParseAddress("0x0000000000000000000000000000000000000001")
	assert.NoError(t, err)
	assert.False(t, addr.IsZero())
}
