// Package types defines the Store interface, the Element and Recipe entity
// types, backend configuration, and the standard error values shared by every
// cauldron storage backend and by the combination engine.
package types
