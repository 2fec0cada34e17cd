package cache

// ScopedKeyer wraps a Keyer with a prefix, so that several deployments can
// share one Redis, Mongo collection or bucket without seeing each other's
// documents.
//
// Example usage:
//
//	staging := NewScopedKeyer(NewDefaultKeyer(), "staging:")
//	staging.DocumentKey("1CRN", "A") // "staging:document:1crn_a"
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// DocumentKey generates a prefixed document key.
func (k *ScopedKeyer) DocumentKey(structureID, chain string) string {
	return k.prefix + k.inner.DocumentKey(structureID, chain)
}
