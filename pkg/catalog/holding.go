// Package catalog defines the holding record exchanged with catalog sources
// and the sort/filter vocabulary of the aggregation API.
package catalog

import (
	"fmt"
	"strings"
)

// Holding is a catalog record for one title as reported by a single source.
// The aggregator folds holdings with equal identity keys into one record,
// summing Copies. Author and Language are taken from the first source seen.
type Holding struct {
	Title    string `json:"title"`
	Author   string `json:"author,omitempty"`
	Language string `json:"language,omitempty"`
	Year     int    `json:"year"`
	Copies   int    `json:"copies"`
}

// Key returns the identity key that decides whether two holdings from
// different sources describe the same title. The key is the case-folded,
// whitespace-trimmed title combined with the publication year.
func (h Holding) Key() string {
	title := strings.ToLower(strings.TrimSpace(h.Title))
	return fmt.Sprintf("%s\x1f%d", title, h.Year)
}
