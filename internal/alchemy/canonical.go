package alchemy

import (
	"strings"

	"github.com/mesh-intelligence/cauldron/pkg/types"
)

// Canonicalize returns the order-independent key for the pair {a, b}: both
// names lowercased, sorted, and joined with types.PairSeparator.
func Canonicalize(a, b string) string {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if lb < la {
		la, lb = lb, la
	}
	return la + types.PairSeparator + lb
}
