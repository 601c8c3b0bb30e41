package leveling

import "testing"

func TestNextLevel(t *testing.T) {
	tests := []struct {
		name    string
		current int
		health  int64
		want    int
	}{
		{"below first threshold", 1, 99, 1},
		{"exactly first threshold", 1, 100, 2},
		{"one threshold cleared", 1, 120, 2},
		{"two thresholds cleared", 1, 150, 3},
		{"large jump crosses many levels", 1, 500, 10},
		{"mid level advance", 4, 300, 6},
		{"health above cap threshold", 9, 10000, 10},
		{"at cap stays at cap", 10, 0, 10},
		{"never decreases", 5, 0, 5},
		{"negative health keeps level", 3, -40, 3},
		{"just under next threshold", 2, 149, 2},
		{"zero clamps to min", 0, 10, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextLevel(tt.current, tt.health); got != tt.want {
				t.Errorf("NextLevel(%d, %d) = %d, want %d", tt.current, tt.health, got, tt.want)
			}
		})
	}
}

func TestNextLevelMonotonic(t *testing.T) {
	// For every starting level the result is the highest level whose
	// thresholds are all met, and never below the start.
	for start := 1; start <= 9; start++ {
		for health := int64(0); health <= 600; health += 25 {
			got := NextLevel(start, health)
			if got < start {
				t.Fatalf("NextLevel(%d, %d) = %d decreased", start, health, got)
			}
			if got > MaxLevel {
				t.Fatalf("NextLevel(%d, %d) = %d above cap", start, health, got)
			}
			if got < MaxLevel && health >= Threshold(got+1) {
				t.Fatalf("NextLevel(%d, %d) = %d stopped below a met threshold", start, health, got)
			}
			if got > start && health < Threshold(got) {
				t.Fatalf("NextLevel(%d, %d) = %d passed an unmet threshold", start, health, got)
			}
		}
	}
}
