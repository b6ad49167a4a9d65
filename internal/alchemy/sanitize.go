package alchemy

// Sanitizer rewrites a generated element name before it is stored.
type Sanitizer interface {
	Sanitize(name string) string
}

// NopSanitizer returns names unchanged. No content moderation is applied to
// generated names.
type NopSanitizer struct{}

// Sanitize implements Sanitizer.
func (NopSanitizer) Sanitize(name string) string { return name }

// SanitizerFunc adapts a function to the Sanitizer interface.
type SanitizerFunc func(string) string

// Sanitize implements Sanitizer.
func (f SanitizerFunc) Sanitize(name string) string { return f(name) }
