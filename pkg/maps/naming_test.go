package maps

import (
	"fmt"
	"testing"
)

// TestNamingUniqueness generates several worlds and verifies that every
// island on each world has a unique name.
func TestNamingUniqueness(t *testing.T) {
	for _, seed := range []int64{1, 3, 11, 99} {
		t.Run(fmt.Sprintf("seed_%d", seed), func(t *testing.T) {
			w := generate(t, testConfig(seed))

			seen := make(map[string]IslandID)
			for _, isl := range w.Islands {
				if isl.Name == "" {
					t.Errorf("island %d has no name", isl.ID)
				}
				if prev, dup := seen[isl.Name]; dup {
					t.Errorf("duplicate name %q: islands %d and %d", isl.Name, prev, isl.ID)
				}
				seen[isl.Name] = isl.ID
			}

			t.Logf("generated %d islands, all names unique", len(w.Islands))
		})
	}
}

// TestNamingDeterministic checks that names depend only on seed and id.
func TestNamingDeterministic(t *testing.T) {
	for id := IslandID(1); id <= 20; id++ {
		if genName(5, id) != genName(5, id) {
			t.Fatalf("name for island %d is not stable", id)
		}
	}

	differs := false
	for id := IslandID(1); id <= 20; id++ {
		if genName(5, id) != genName(6, id) {
			differs = true
			break
		}
	}
	if !differs {
		t.Error("expected seeds to change island names")
	}
}

func TestRoman(t *testing.T) {
	tests := map[int]string{2: "II", 4: "IV", 9: "IX", 14: "XIV"}
	for n, want := range tests {
		if got := roman(n); got != want {
			t.Errorf("roman(%d): expected %s, got %s", n, want, got)
		}
	}
}
