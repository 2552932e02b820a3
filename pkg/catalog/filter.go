package catalog

import "strings"

// Filter narrows the holdings a source should return. All fields are
// optional; nil means no constraint. The filter is forwarded verbatim to
// every source, which applies it before pagination.
type Filter struct {
	Author   *string `json:"author,omitempty"`
	Language *string `json:"language,omitempty"`
	YearFrom *int    `json:"year_from,omitempty"`
	YearTo   *int    `json:"year_to,omitempty"`
}

// IsZero reports whether no constraint is set.
func (f Filter) IsZero() bool {
	return f.Author == nil && f.Language == nil && f.YearFrom == nil && f.YearTo == nil
}

// Matches reports whether h satisfies every set constraint. Author and
// Language match case-insensitively.
func (f Filter) Matches(h Holding) bool {
	if f.Author != nil && !strings.EqualFold(*f.Author, h.Author) {
		return false
	}
	if f.Language != nil && !strings.EqualFold(*f.Language, h.Language) {
		return false
	}
	if f.YearFrom != nil && h.Year < *f.YearFrom {
		return false
	}
	if f.YearTo != nil && h.Year > *f.YearTo {
		return false
	}
	return true
}
