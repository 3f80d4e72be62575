package domain

import "strings"

// TranslationTable is a static source-term -> target-term dictionary.
// Keys are stored upper-cased; lookups are case-insensitive.
type TranslationTable map[string]string

// Lookup returns the translation for term, comparing case-insensitively.
func (t TranslationTable) Lookup(term string) (string, bool) {
	v, ok := t[strings.ToUpper(term)]
	return v, ok
}

// LookupOrSelf returns the translation for term, or term itself when the
// table has no entry (used for dose forms, where an untranslated form is
// still worth matching against product names).
func (t TranslationTable) LookupOrSelf(term string) string {
	if v, ok := t.Lookup(term); ok {
		return v
	}
	return term
}

// Merge copies every entry of other into t, upper-casing keys. Entries in
// other win on collision.
func (t TranslationTable) Merge(other map[string]string) {
	for k, v := range other {
		t[strings.ToUpper(k)] = v
	}
}
