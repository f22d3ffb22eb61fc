package domain

import (
	"errors"
	"testing"
)

func TestParsePrincipal(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  Principal
		fail  bool
	}{
		{"lowercase", "0xaabbccddeeff00112233445566778899aabbccdd", "0xaabbccddeeff00112233445566778899aabbccdd", false},
		{"uppercase normalised", "0xAABBCCDDEEFF00112233445566778899AABBCCDD", "0xaabbccddeeff00112233445566778899aabbccdd", false},
		{"surrounding whitespace", "  0xaabbccddeeff00112233445566778899aabbccdd ", "0xaabbccddeeff00112233445566778899aabbccdd", false},
		{"missing prefix", "aabbccddeeff00112233445566778899aabbccdd", "", true},
		{"too short", "0xaabb", "", true},
		{"too long", "0xaabbccddeeff00112233445566778899aabbccdd00", "", true},
		{"non-hex", "0xzzbbccddeeff00112233445566778899aabbccdd", "", true},
		{"empty", "", "", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParsePrincipal(tc.input)
			if tc.fail {
				if !errors.Is(err, ErrInvalidPrincipal) {
					t.Fatalf("expected ErrInvalidPrincipal, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePrincipal returned error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestPrincipal_IsZero(t *testing.T) {
	if !Principal("").IsZero() {
		t.Fatalf("empty principal should be zero")
	}
	if Principal("0xaabbccddeeff00112233445566778899aabbccdd").IsZero() {
		t.Fatalf("populated principal should not be zero")
	}
}
