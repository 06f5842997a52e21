package ledger

import (
	"fmt"
	"strings"
)

// Address identifies an account on the ledger. Stored lowercase as a
// 0x-prefixed 40-hex-digit string.
type Address string

// ZeroAddress is the null account. Mints come from it, burns go to it.
const ZeroAddress Address = "0x0000000000000000000000000000000000000000"

// ParseAddress validates and normalizes an address string.
func ParseAddress(s string) (Address, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if !strings.HasPrefix(s, "0x") || len(s) != 42 {
		return "", fmt.Errorf("invalid address %q", s)
	}
	for _, c := range s[2:] {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return "", fmt.Errorf("invalid address %q", s)
		}
	}
	return Address(s), nil
}

// IsZero reports whether the address is the null account.
func (a Address) IsZero() bool {
	return a == "" || a == ZeroAddress
}

func (a Address) String() string {
	return string(a)
}
