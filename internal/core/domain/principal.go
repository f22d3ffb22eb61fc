package domain

import (
	"encoding/hex"
	"strings"
)

// Principal is an opaque on-ledger identity: a 20-byte address, hex-encoded
// with a 0x prefix. Principals carry no mutable attributes and are only ever
// compared or used as map keys, so they are normalised to lowercase on parse.
type Principal string

const principalHexLen = 40 // 20 bytes

// ParsePrincipal validates and normalises an address-like principal string.
func ParsePrincipal(s string) (Principal, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return "", ErrInvalidPrincipal
	}
	body := s[2:]
	if len(body) != principalHexLen {
		return "", ErrInvalidPrincipal
	}
	if _, err := hex.DecodeString(body); err != nil {
		return "", ErrInvalidPrincipal
	}
	return Principal("0x" + strings.ToLower(body)), nil
}

func (p Principal) String() string { return string(p) }

// IsZero reports whether the principal is unset.
func (p Principal) IsZero() bool { return p == "" }
