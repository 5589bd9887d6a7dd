package migrations

import "testing"

// Registration happens in init; bun derives each migration's name from the
// file it was registered in, so a misnamed file would panic before any test
// runs. This pins the registry contents.
func TestAllMigrationsRegistered(t *testing.T) {
	sorted := Migrations.Sorted()
	if len(sorted) != 8 {
		t.Fatalf("expected 8 migrations, got %d", len(sorted))
	}
	seen := make(map[string]bool)
	var prev string
	for _, m := range sorted {
		if m.Name == "" {
			t.Fatalf("migration with empty name: %+v", m)
		}
		if seen[m.Name] {
			t.Fatalf("duplicate migration name %q", m.Name)
		}
		seen[m.Name] = true
		if m.Name <= prev {
			t.Fatalf("migrations out of order: %q after %q", m.Name, prev)
		}
		prev = m.Name
		if m.Up == nil || m.Down == nil {
			t.Fatalf("migration %q missing up or down", m.Name)
		}
	}
}
