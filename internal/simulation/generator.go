package simulation

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/okian/elorank/pkg/logger"
)

const (
	itemExtension  = ".png"
	centerStrength = 1000.0
	filePermission = 0o600
	eloScale       = 400.0
)

// generateItems creates n items with unique names and normally distributed
// strengths around centerStrength.
func generateItems(rng *rand.Rand, n int, spread float64) []Item {
	items := make([]Item, n)
	for i := range items {
		id, err := uuid.NewRandomFromReader(rng)
		if err != nil {
			id = uuid.New()
		}
		items[i] = Item{
			Name:     id.String() + itemExtension,
			Strength: centerStrength + rng.NormFloat64()*spread,
		}
	}
	return items
}

// writeItems materializes items as files in dir. The payload is irrelevant to
// ranking; each file holds its own name.
func writeItems(ctx context.Context, dir string, items []Item) error {
	for _, it := range items {
		if err := os.WriteFile(filepath.Join(dir, it.Name), []byte(it.Name), filePermission); err != nil {
			return fmt.Errorf("write item %s: %w", it.Name, err)
		}
	}
	logger.Get().Debug(ctx, "items written", logger.String("dir", dir), logger.Int("items", len(items)))
	return nil
}

// decide picks the winner of a pair. With zero noise the stronger item always
// wins; otherwise the left item wins with the logistic probability of its
// strength advantage, flattened by noise. upset reports a weaker winner.
func decide(rng *rand.Rand, noise, left, right float64) (winner int, upset bool) {
	if noise <= 0 {
		if right > left {
			return 1, false
		}
		return 0, false
	}
	p := 1 / (1 + math.Pow(10, (right-left)/(eloScale*noise)))
	if rng.Float64() < p {
		return 0, left < right
	}
	return 1, right < left
}
