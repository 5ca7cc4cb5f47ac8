package warehouse

import "unicode"

// =============================================================================
// STORE CREDENTIALS
// =============================================================================

// Store holds the credentials and search heuristics for one warehouse store.
type Store struct {
	// Name is the friendly store name (e.g. "Jeep Apparel").
	Name string

	// Prefix is the character that order ids of this store conventionally
	// start with. Used only to reorder the search sequence, never to filter.
	Prefix rune

	// Key and Secret form the HTTP Basic credential pair.
	Key    string
	Secret string

	// Disabled stores are skipped without error.
	Disabled bool
}

// HasCredentials reports whether the store can be queried at all. Stores
// without a usable key/secret pair are silently skipped.
func (s Store) HasCredentials() bool {
	return !s.Disabled && s.Key != "" && s.Secret != ""
}

// PrefixMatches reports whether the search term starts with this store's
// prefix character, compared upper-cased.
func (s Store) PrefixMatches(term string) bool {
	if s.Prefix == 0 || term == "" {
		return false
	}
	first := []rune(term)[0]
	return unicode.ToUpper(first) == unicode.ToUpper(s.Prefix)
}
