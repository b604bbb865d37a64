package routes

import "testing"

func TestHashConstants(t *testing.T) {
	for _, e := range table {
		if got := Hash(e.name); got != e.hash {
			t.Errorf("Hash(%q) = 0x%04X, table has 0x%04X", e.name, got, e.hash)
		}
	}
}

func TestTableIsCollisionFree(t *testing.T) {
	seen := make(map[uint16]string, len(table))
	for _, e := range table {
		if other, ok := seen[e.hash]; ok {
			t.Fatalf("%q and %q both hash to 0x%04X", e.name, other, e.hash)
		}
		seen[e.hash] = e.name
	}
	if len(seen) != 16 {
		t.Errorf("table has %d routes, want 16", len(seen))
	}
}

func TestHashTruncates(t *testing.T) {
	if got := Hash(""); got != 5381 {
		t.Errorf("Hash(\"\") = %d, want 5381", got)
	}
	// 5381*33 + 'a' = 177670, which is 0xB606 after truncation.
	if got := Hash("a"); got != 0xB606 {
		t.Errorf("Hash(\"a\") = 0x%04X, want 0xB606", got)
	}
}

func TestLookup(t *testing.T) {
	tests := []struct {
		name  string
		want  Route
		found bool
	}{
		{"version", Version, true},
		{"dmx/status", DMXStatus, true},
		{"showfile/directory", ShowfileDirectory, true},
		{"network.txt", None, false},
		{"Version", None, false},
		{"", None, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Lookup(tt.name)
			if got != tt.want || ok != tt.found {
				t.Errorf("Lookup(%q) = %v, %v; want %v, %v", tt.name, got, ok, tt.want, tt.found)
			}
		})
	}
}

func TestRouteString(t *testing.T) {
	for _, r := range All() {
		got, ok := Lookup(r.String())
		if !ok || got != r {
			t.Errorf("Lookup(%q) = %v, %v; want %v", r.String(), got, ok, r)
		}
	}
	if None.String() != "none" {
		t.Errorf("None.String() = %q", None.String())
	}
}
