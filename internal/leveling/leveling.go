// Package leveling maps a party member's health to their level.
package leveling

const (
	// MinLevel is the starting level for new party members
	MinLevel = 1
	// MaxLevel is the level cap
	MaxLevel = 10
	// thresholdStep is the health gap between consecutive level thresholds
	thresholdStep = 50
)

// Threshold returns the health required to reach the given level: 100 for
// level 2, 150 for level 3, up to 500 for level 10.
func Threshold(level int) int64 {
	return int64(thresholdStep * level)
}

// NextLevel returns the level a member holds after a health change. Starting
// from the current level it advances one level at a time while the next
// threshold is met, so a single large health jump can cross several levels.
// The result never drops below the current level.
func NextLevel(current int, health int64) int {
	if current < MinLevel {
		current = MinLevel
	}
	level := current
	for level < MaxLevel && health >= Threshold(level+1) {
		level++
	}
	return level
}
