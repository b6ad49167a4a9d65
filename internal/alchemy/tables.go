package alchemy

// Result is a generated element.
type Result struct {
	Name  string
	Emoji string
}

// adjectives and nouns are indexed by hash; reordering or resizing either
// table changes the result of every non-magic pair.
var adjectives = [...]string{
	"Burning", "Frozen", "Bright", "Dark", "Soft", "Sharp", "Hot", "Cold",
	"Wet", "Dry", "Light", "Heavy", "Smooth", "Rough", "Sweet", "Bitter",
	"Shimmering", "Ancient", "New", "Wild", "Calm", "Fierce", "Gentle", "Mighty",
	"Tiny", "Giant", "Sparkling", "Dim", "Clear", "Murky", "Pure", "Mixed",
}

var nouns = [...]string{
	"Storm", "Mist", "Crystal", "Dust", "Powder", "Essence", "Force", "Wave",
	"Particle", "Cloud", "Spark", "Breeze", "Glow", "Surge", "Swirl", "Current",
	"Burst", "Bloom", "Garden", "Peak", "Canyon", "Meadow", "Forest", "Ocean",
	"River", "Mountain", "Valley", "Flame", "Frost", "Thunder", "Lightning",
	"Rainbow", "Prism", "Echo", "Pulse", "Tide", "Whirlwind", "Ember", "Ash",
}

// defaultEmojiNoun names the noun whose emoji stands in for nouns without a
// semantic entry.
const defaultEmojiNoun = "Crystal"

var nounEmoji = map[string]string{
	"Storm":     "⛈️",
	"Mist":      "💨",
	"Crystal":   "💎",
	"Dust":      "🌪️",
	"Powder":    "💫",
	"Essence":   "✨",
	"Force":     "⚡",
	"Wave":      "🌊",
	"Particle":  "💫",
	"Cloud":     "☁️",
	"Spark":     "✨",
	"Breeze":    "💨",
	"Glow":      "✨",
	"Surge":     "🌊",
	"Swirl":     "🌀",
	"Current":   "🌊",
	"Burst":     "✨",
	"Bloom":     "🌸",
	"Garden":    "🌳",
	"Peak":      "🏔️",
	"Canyon":    "⛰️",
	"Meadow":    "🌾",
	"Forest":    "🌲",
	"Ocean":     "🌊",
	"River":     "🌊",
	"Mountain":  "🏔️",
	"Valley":    "🏜️",
	"Flame":     "🔥",
	"Frost":     "❄️",
	"Thunder":   "⛈️",
	"Lightning": "⚡",
	"Rainbow":   "🌈",
	"Prism":     "🌈",
	"Echo":      "🔊",
	"Pulse":     "💫",
	"Tide":      "🌊",
	"Whirlwind": "🌀",
	"Ember":     "🔥",
	"Ash":       "🟫",
}

// magicPairs lists curated combinations by their two element names. They are
// indexed by canonical key in magic.
var magicPairs = []struct {
	a, b   string
	result Result
}{
	{"water", "fire", Result{Name: "Steam", Emoji: "💨"}},
	{"fire", "earth", Result{Name: "Lava", Emoji: "🌋"}},
	{"earth", "water", Result{Name: "Mud", Emoji: "🟫"}},
	{"wind", "fire", Result{Name: "Smoke", Emoji: "💨"}},
	{"earth", "wind", Result{Name: "Dust", Emoji: "🌪️"}},
	{"water", "wind", Result{Name: "Wave", Emoji: "🌊"}},
}

var magic = func() map[string]Result {
	m := make(map[string]Result, len(magicPairs))
	for _, p := range magicPairs {
		m[Canonicalize(p.a, p.b)] = p.result
	}
	return m
}()
