// Package armory issues weapons and armour from fixed catalogs while avoiding
// immediate repeats per user.
package armory

import (
	"log"
	"math/rand"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/party-realm/api/internal/catalog"
)

// Allocator hands out items from one catalog. Each user keeps a sliding
// window of recently issued items; Pick never returns an item still inside
// that window. The window is capped at catalog size minus one so a fresh item
// always exists once the catalog has been cycled.
type Allocator struct {
	mu      sync.Mutex
	items   catalog.Catalog
	window  int
	history map[string][]string
	rng     *rand.Rand
}

// New creates an allocator over the given catalog. window <= 0 selects the
// default of Size()-1.
func New(items catalog.Catalog, window int) *Allocator {
	max := items.Size() - 1
	if max < 1 {
		max = 1
	}
	if window <= 0 || window > max {
		window = max
	}
	return &Allocator{
		items:   items,
		window:  window,
		history: make(map[string][]string),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WindowFromEnv reads ARMORY_HISTORY_WINDOW; 0 means per-catalog default
func WindowFromEnv() int {
	valueStr := os.Getenv("ARMORY_HISTORY_WINDOW")
	if valueStr == "" {
		return 0
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil || value < 0 {
		log.Printf("[Armory] Invalid value for ARMORY_HISTORY_WINDOW: %s, using default", valueStr)
		return 0
	}
	return value
}

// Pick issues the next item for userID. It scans the catalog circularly from
// a random start and returns the first item outside the user's recent window,
// then records it. The scan and record run as one critical section so
// concurrent requests for the same user cannot double-issue.
func (a *Allocator) Pick(userID string) string {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := a.items.Size()
	index := a.rng.Intn(n)

	recent := a.history[userID]
	for i := 0; i < n; i++ {
		item := a.items.At(index)
		if !contains(recent, item) {
			a.record(userID, item)
			return item
		}
		index = (index + 1) % n
	}

	// Unreachable while window < catalog size; keep the user moving anyway.
	item := a.items.At(index)
	a.history[userID] = []string{item}
	return item
}

// Reset clears the issuance history for a user, e.g. when their party is
// removed.
func (a *Allocator) Reset(userID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.history, userID)
}

func (a *Allocator) record(userID, item string) {
	recent := append(a.history[userID], item)
	if len(recent) > a.window {
		recent = recent[len(recent)-a.window:]
	}
	a.history[userID] = recent
}

func contains(items []string, item string) bool {
	for _, it := range items {
		if it == item {
			return true
		}
	}
	return false
}
