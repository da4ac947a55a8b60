package internal

import (
	"strings"
	"testing"
)

func TestNewLinkTokenRejectsShortLength(t *testing.T) {
	if _, err := NewLinkToken(5); err == nil {
		t.Fatal("expected error for length below minimum")
	}
	if _, err := NewLinkToken(0); err == nil {
		t.Fatal("expected error for zero length")
	}
}

func TestNewLinkTokenLengthAndAlphabet(t *testing.T) {
	for _, length := range []int{6, 12, 32} {
		token, err := NewLinkToken(length)
		if err != nil {
			t.Fatalf("NewLinkToken(%d) failed: %v", length, err)
		}
		if len(token) != length {
			t.Fatalf("expected length %d, got %d", length, len(token))
		}
		for _, r := range token {
			if !strings.ContainsRune(linkTokenAlphabet, r) {
				t.Fatalf("unexpected character %q in token %q", r, token)
			}
		}
	}
}

func TestNewLinkTokenValuesDiffer(t *testing.T) {
	seen := make(map[string]struct{}, 100)
	for i := 0; i < 100; i++ {
		token, err := NewLinkToken(12)
		if err != nil {
			t.Fatalf("NewLinkToken failed: %v", err)
		}
		if _, dup := seen[token]; dup {
			t.Fatalf("duplicate token generated: %q", token)
		}
		seen[token] = struct{}{}
	}
}
