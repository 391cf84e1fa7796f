package generator

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/louisbranch/ontogenic.space/internal/random"
)

// NewSeededRNG creates a seeded random number generator.
// If seed is 0, draws one from crypto/rand and prints it for
// reproducibility; re-running with the printed seed replays the batch.
func NewSeededRNG(seed int64, verbose bool) *rand.Rand {
	if seed == 0 {
		fresh, err := random.NewSeed()
		if err != nil {
			fresh = time.Now().UnixNano()
		}
		seed = fresh
		if verbose {
			fmt.Fprintf(os.Stderr, "Using seed: %d\n", seed)
		}
	}
	return rand.New(rand.NewSource(seed))
}
