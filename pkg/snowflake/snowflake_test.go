package snowflake

import "testing"

func TestGenerateIDUniqueAndIncreasing(t *testing.T) {
	sf, err := NewSnowflake(1)
	if err != nil {
		t.Fatalf("NewSnowflake failed: %v", err)
	}

	const n = 10000
	seen := make(map[int64]bool, n)
	var prev int64
	for i := 0; i < n; i++ {
		id := sf.Generate()
		if id <= 0 {
			t.Fatalf("id = %d, want positive", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %d", id)
		}
		seen[id] = true
		if id <= prev {
			t.Fatalf("ids not increasing: %d after %d", id, prev)
		}
		prev = id
	}
}

func TestNewSnowflakeMachineIDBounds(t *testing.T) {
	if _, err := NewSnowflake(-1); err == nil {
		t.Error("negative machine id should be rejected")
	}
	if _, err := NewSnowflake(1 << 10); err == nil {
		t.Error("oversized machine id should be rejected")
	}
}
