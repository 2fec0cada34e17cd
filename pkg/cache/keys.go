package cache

import "strings"

// Keyer generates cache keys.
type Keyer interface {
	// DocumentKey returns the key of the document for a structure and an
	// optional chain.
	DocumentKey(structureID, chain string) string
}

// DefaultKeyer generates keys of the form "document:<id>[_<chain>]".
// Structure ids and chains are lower-cased, so "1CRN"/"A" and "1crn"/"a"
// share an entry.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// DocumentKey implements Keyer.
func (DefaultKeyer) DocumentKey(structureID, chain string) string {
	name := strings.ToLower(structureID)
	if chain != "" {
		name += "_" + strings.ToLower(chain)
	}
	return "document:" + name
}
