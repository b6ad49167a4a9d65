// Package alchemy turns two element names into the element they combine into.
//
// Canonicalize reduces an unordered pair of names to a stable key. Generate
// maps that key to a name and emoji: a small table of curated combinations
// wins outright, and every other pair falls through to a 32-bit rolling hash
// that picks an adjective, a noun, and the noun's emoji from fixed tables.
// Both functions are pure; the same two names always give the same result,
// in either order, for as long as the tables below stay unchanged.
package alchemy
