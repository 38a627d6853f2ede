package dice

import (
	"math/rand"
	"sync"
	"time"
)

// Sides of the die used for the team tie-break.
const Sides = 6

// Roller provides dice rolling functionality. Safe for concurrent use.
type Roller struct {
	mu     sync.Mutex
	random *rand.Rand
}

// Config for dice roller
type Config struct {
	// Optional seed for testing
	Seed int64
}

// New creates a new dice roller
func New(cfg *Config) *Roller {
	var seed int64
	if cfg != nil && cfg.Seed != 0 {
		seed = cfg.Seed
	} else {
		seed = time.Now().UnixNano()
	}
	return &Roller{
		random: rand.New(rand.NewSource(seed)),
	}
}

// Roll generates a random dice roll with the specified number of sides
func (r *Roller) Roll(sides int) int {
	if sides < 1 {
		sides = Sides
	}
	return r.Intn(sides) + 1
}

// Intn returns a uniform value in [0, n). It backs the other random picks a
// match needs, such as the team B leader.
func (r *Roller) Intn(n int) int {
	if n <= 1 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.random.Intn(n)
}

// Valid reports whether v is a face of a standard die.
func Valid(v int) bool {
	return v >= 1 && v <= Sides
}
