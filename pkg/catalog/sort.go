package catalog

import (
	"fmt"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortField selects the holding attribute used for ordering.
type SortField string

const (
	// SortByTitle orders holdings by title using locale-aware collation.
	SortByTitle SortField = "title"

	// SortByYear orders holdings by publication year numerically.
	SortByYear SortField = "year"
)

// SortDirection selects ascending or descending order.
type SortDirection string

const (
	Ascending  SortDirection = "asc"
	Descending SortDirection = "desc"
)

// SortSpec combines field and direction. The same spec is forwarded to every
// source and drives the cross-source merge; the two must agree for the merge
// to be correct.
type SortSpec struct {
	Field     SortField
	Direction SortDirection
}

// Validate checks that field and direction carry known values.
func (s SortSpec) Validate() error {
	switch s.Field {
	case SortByTitle, SortByYear:
	default:
		return fmt.Errorf("unknown sort field: %q", s.Field)
	}
	switch s.Direction {
	case Ascending, Descending:
	default:
		return fmt.Errorf("unknown sort direction: %q", s.Direction)
	}
	return nil
}

// Compare reports the order of two holdings: negative when a sorts before b,
// zero when equal under the active sort key, positive otherwise.
type Compare func(a, b Holding) int

// Comparer builds holding comparators for one sort spec. Title comparison is
// locale-aware and case-insensitive via x/text collation. The underlying
// collator keeps internal buffers, so a Comparer must not be shared between
// goroutines.
type Comparer struct {
	spec     SortSpec
	collator *collate.Collator
}

// NewComparer returns a comparer for the given spec and locale tag.
// An empty tag falls back to English collation.
func NewComparer(spec SortSpec, locale string) (*Comparer, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	tag := language.English
	if locale != "" {
		parsed, err := language.Parse(locale)
		if err != nil {
			return nil, fmt.Errorf("parse locale %q: %w", locale, err)
		}
		tag = parsed
	}

	return &Comparer{
		spec:     spec,
		collator: collate.New(tag, collate.IgnoreCase),
	}, nil
}

// Compare orders a and b under the comparer's spec.
func (c *Comparer) Compare(a, b Holding) int {
	var result int
	switch c.spec.Field {
	case SortByYear:
		switch {
		case a.Year < b.Year:
			result = -1
		case a.Year > b.Year:
			result = 1
		}
	default:
		result = c.collator.CompareString(a.Title, b.Title)
	}

	if c.spec.Direction == Descending {
		result = -result
	}
	return result
}
