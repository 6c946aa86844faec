package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRentalsMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_rentals.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no rentals migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS rentals",
		"CHECK (status IN ('PENDING', 'ACTIVE', 'RETURNED', 'REJECTED', 'CANCELLED'))",
		"CREATE TABLE IF NOT EXISTS rental_items",
		"FOREIGN KEY (rental_id) REFERENCES rentals(id) ON DELETE CASCADE",
		"UNIQUE (rental_id, game_id)",
		"DROP TABLE IF EXISTS rental_items",
		"DROP TABLE IF EXISTS rentals",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestOutboxMigrationScopesUniquenessToOverdue(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_outbox_events.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no outbox migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"ux_outbox_events_event_aggregate",
		"WHERE event_type = 'rental_overdue'",
		"WHERE published_at IS NULL",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}
