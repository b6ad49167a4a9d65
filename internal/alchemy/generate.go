package alchemy

import "unicode/utf16"

// Generate returns the element produced by combining a and b. Curated
// combinations take precedence; every other pair is derived from Hash of the
// canonical key.
func Generate(a, b string) Result {
	key := Canonicalize(a, b)
	if r, ok := magic[key]; ok {
		return r
	}
	return fromHash(Hash(key))
}

// Magic reports the curated result for {a, b}, if there is one.
func Magic(a, b string) (Result, bool) {
	r, ok := magic[Canonicalize(a, b)]
	return r, ok
}

// Hash computes the 32-bit rolling hash h = h*31 + c over key, wrapping with
// two's-complement overflow at every step. c is the first UTF-16 code unit of
// each code point, so code points outside the BMP contribute their high
// surrogate.
func Hash(key string) int32 {
	var h int32
	for _, r := range key {
		c := r
		if r >= 0x10000 {
			c, _ = utf16.EncodeRune(r)
		}
		h = h*31 + int32(c)
	}
	return h
}

// magnitude returns |h| as an unsigned value. math.MinInt32 maps to 1<<31,
// which is representable in uint32, so no input needs special casing.
func magnitude(h int32) uint32 {
	if h < 0 {
		return uint32(-int64(h))
	}
	return uint32(h)
}

// indices selects the adjective and noun table positions for hash h.
func indices(h int32) (adj, noun int) {
	m := magnitude(h)
	return int(m % uint32(len(adjectives))), int((m >> 8) % uint32(len(nouns)))
}

func fromHash(h int32) Result {
	adj, n := indices(h)
	noun := nouns[n]
	return Result{
		Name:  adjectives[adj] + " " + noun,
		Emoji: emojiFor(noun),
	}
}

// emojiFor returns the semantic emoji for noun, or the default emoji.
func emojiFor(noun string) string {
	if e, ok := nounEmoji[noun]; ok {
		return e
	}
	return nounEmoji[defaultEmojiNoun]
}
