package types

import "time"

// Recipe records the first resolution of an unordered element pair. Exactly
// one recipe exists per pair; it is immutable once created.
type Recipe struct {
	// RecipeID is a UUID v7, generated on creation.
	RecipeID string

	// ElementA and ElementB are the combined elements. Stores return them with
	// ElementA holding the lexically smaller element ID.
	ElementA Element
	ElementB Element

	// Result is the element the pair produces. It may equal ElementA or ElementB.
	Result Element

	// Discoverer identifies whoever first resolved the pair.
	Discoverer string

	// CreatedAt orders recipes for display, newest first.
	CreatedAt time.Time
}

// SortPair returns the two element IDs in ascending order. Stores key recipes
// by the sorted pair so lookups are order independent.
func SortPair(idA, idB string) (string, string) {
	if idB < idA {
		return idB, idA
	}
	return idA, idB
}
