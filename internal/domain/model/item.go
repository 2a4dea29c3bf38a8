// Package model contains domain models passed between layers.
package model

import "path/filepath"

// Item is one ranked entity.
type Item struct {
	ID        string  // immutable short identifier, assigned once at bootstrap
	Reference string  // original source reference (file base name), round-tripped opaquely
	Rating    float64 // Elo rating
	Matchups  int     // completed votes this item took part in
	Locator   string  // current artifact name in the working area, derived from Rating and ID
}

// Extension returns the artifact extension, taken from the original reference.
func (i Item) Extension() string {
	return filepath.Ext(i.Reference)
}

// View returns the read-only projection handed to presentation adapters.
func (i Item) View() ItemView {
	return ItemView{
		ID:        i.ID,
		Reference: i.Reference,
		Rating:    i.Rating,
		Matchups:  i.Matchups,
		Locator:   i.Locator,
	}
}

// ItemView is what presentation adapters see of an item.
type ItemView struct {
	ID        string  `json:"id"`
	Reference string  `json:"reference"`
	Rating    float64 `json:"rating"`
	Matchups  int     `json:"matchups"`
	Locator   string  `json:"locator"`
}

// Pair holds the ids of two items shown together. The zero value means no pair.
type Pair [2]string

// Empty reports whether no pair has been selected.
func (p Pair) Empty() bool {
	return p[0] == "" && p[1] == ""
}

// Equal compares pairs as unordered sets of ids.
func (p Pair) Equal(o Pair) bool {
	return (p[0] == o[0] && p[1] == o[1]) || (p[0] == o[1] && p[1] == o[0])
}

// Overlaps reports whether the pairs share at least one id.
func (p Pair) Overlaps(o Pair) bool {
	if p.Empty() || o.Empty() {
		return false
	}
	for _, a := range p {
		for _, b := range o {
			if a == b {
				return true
			}
		}
	}
	return false
}

// Contains reports whether id is one side of the pair.
func (p Pair) Contains(id string) bool {
	return id != "" && (p[0] == id || p[1] == id)
}
