package catalog

import (
	"math/rand"
	"sync"
	"time"
)

// Catalog is a fixed, ordered list of issuable items.
type Catalog []string

// Size returns the number of items in the catalog
func (c Catalog) Size() int {
	return len(c)
}

// At returns the item at index i
func (c Catalog) At(i int) string {
	return c[i]
}

// Weapons is the fixed weapon catalog
var Weapons = Catalog{
	"Sword of Justice",
	"Everburn Blade",
	"Shortbow of the Sylvan",
	"Staff of Crones",
	"Warhammer of Vengeance",
	"Twin Daggers",
	"Greataxe of the Tyrant",
	"Pike of the Watch",
}

// Armours is the fixed armour catalog
var Armours = Catalog{
	"Adamantine Splint Mail",
	"Leather of the Shade",
	"Chainmail of Protection",
	"Robe of the Weave",
	"Scale Mail of the Depths",
	"Breastplate of the Vigilant",
}

// Villains is the fixed villain catalog. Villain selection carries no
// anti-repeat constraint.
var Villains = Catalog{
	"Goblin Warband",
	"Mind Flayer",
	"Githyanki Raider",
	"Cult of the Absolute",
	"Bulette",
	"Spectator",
	"Hag of the Sunlit Wetlands",
	"Duergar Slavers",
	"Phase Spider Matriarch",
}

var (
	rngMu sync.Mutex
	rng   = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// RandIndex draws a uniformly random index into a catalog of size n
func RandIndex(n int) int {
	rngMu.Lock()
	defer rngMu.Unlock()
	return rng.Intn(n)
}

// RandomVillain returns a uniformly random villain name
func RandomVillain() string {
	return Villains.At(RandIndex(Villains.Size()))
}
