// Package types contains common types used across the application
package types

// Entry represents a standings row
type Entry struct {
	Rank      int     `json:"rank"`
	ID        string  `json:"id"`
	Reference string  `json:"reference"`
	Rating    float64 `json:"rating"`
	Matchups  int     `json:"matchups"`
}
