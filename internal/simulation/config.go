// Package simulation drives ranking sessions with synthetic voters whose
// preferences follow hidden item strengths, and measures how well the final
// ratings recover them.
package simulation

import "time"

// Driver names.
const (
	DriverSession = "session" // votes go straight to the session
	DriverHTTP    = "http"    // votes go through the HTTP API on a loopback listener
)

// Config holds configuration for a simulation run.
type Config struct {
	Items    int           // number of synthetic items
	Votes    int           // number of votes to cast
	Noise    float64       // voter noise; 0 means the stronger item always wins
	Spread   float64       // standard deviation of hidden strengths, in rating points
	Seed     int64         // seeds item strengths, voters and the scheduler; 0 uses the clock
	Dir      string        // source directory; a temporary one is used when empty
	Keep     bool          // keep a temporary directory after the run
	Driver   string        // DriverSession or DriverHTTP
	Timeout  time.Duration // HTTP request timeout
	Output   string        // optional JSON report path
	Verbose  bool          // log every vote
	TopN     int           // standings rows included in the report
	KFactor  float64       // Elo K factor; 0 keeps the default
	Policy   string        // repeat policy; empty keeps the default
	Retries  int           // scheduler repeat retries; negative keeps the default
	Exact    bool          // keep exact ratings next to the ledger
	Progress int           // log progress every N votes; 0 disables
}

// Item is a synthetic item with the strength voters judge it by.
type Item struct {
	Name     string  `json:"name"`
	Strength float64 `json:"strength"`
}

// Standing is one row of the final standings joined with the hidden strength.
type Standing struct {
	Rank      int     `json:"rank"`
	ID        string  `json:"id"`
	Reference string  `json:"reference"`
	Rating    float64 `json:"rating"`
	Matchups  int     `json:"matchups"`
	Strength  float64 `json:"strength"`
}

// Report summarizes a run.
type Report struct {
	Items        int           `json:"items"`
	Votes        int           `json:"votes"`
	Failures     int           `json:"failures"`
	Upsets       int           `json:"upsets"`
	Spearman     float64       `json:"spearman"`
	MinMatchups  int           `json:"min_matchups"`
	MaxMatchups  int           `json:"max_matchups"`
	MeanMatchups float64       `json:"mean_matchups"`
	Dir          string        `json:"dir"`
	Driver       string        `json:"driver"`
	Duration     time.Duration `json:"duration"`
	VotesPerSec  float64       `json:"votes_per_second"`
	Top          []Standing    `json:"top"`
}
