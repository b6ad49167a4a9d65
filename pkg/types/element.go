package types

import (
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// PairSeparator joins the two name keys of a canonical pair key. Element
// names may not contain it, so distinct pairs never share a key.
const PairSeparator = "_"

// MaxElementNameLength bounds element names in runes.
const MaxElementNameLength = 64

// Element is a craftable item. Name is case-preserved for display; identity
// is the case-insensitive NameKey. Elements are never mutated or deleted.
type Element struct {
	ElementID string    // UUID v7, generated on creation.
	Name      string    // Display name (unique case-insensitively).
	Emoji     string    // One or more code points rendered with the name.
	CreatedAt time.Time // Timestamp of creation.
}

// Key returns the identity key of the element.
func (e *Element) Key() string {
	return NameKey(e.Name)
}

// StartingElements are seeded once when a store is first initialized.
var StartingElements = []Element{
	{Name: "Water", Emoji: "💧"},
	{Name: "Fire", Emoji: "🔥"},
	{Name: "Earth", Emoji: "🌍"},
	{Name: "Wind", Emoji: "💨"},
}

// NormalizeElementName trims surrounding whitespace and applies Unicode NFC
// normalization so visually identical names share one identity.
func NormalizeElementName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// NameKey returns the case-insensitive identity key for an element name.
func NameKey(name string) string {
	return strings.ToLower(NormalizeElementName(name))
}

// ValidateElementName reports ErrInvalidName for names that are blank, too
// long, not valid UTF-8, or contain the pair separator.
func ValidateElementName(name string) error {
	n := NormalizeElementName(name)
	if n == "" {
		return ErrInvalidName
	}
	if !utf8.ValidString(n) || utf8.RuneCountInString(n) > MaxElementNameLength {
		return ErrInvalidName
	}
	if strings.Contains(n, PairSeparator) {
		return ErrInvalidName
	}
	return nil
}
