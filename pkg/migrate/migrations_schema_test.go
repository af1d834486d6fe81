package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/allotments-backend/pkg/migrate"
)

func readMigration(t *testing.T, driver, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(migrate.DirFor("migrations", driver), "*_"+suffix))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no %s migration matching %s", driver, suffix)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestPostgresSchemaMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "postgres", "create_allotments_schema.sql")

	checks := []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_cities_name_country ON cities (name, country)",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_allotment_room_types_allotment_room_type ON allotment_room_types (allotment_id, room_type_id)",
		"FOREIGN KEY (reservation_id) REFERENCES reservations(id) ON DELETE CASCADE",
		"FOREIGN KEY (allotment_room_type_id) REFERENCES allotment_room_types(id) ON DELETE RESTRICT",
		"CHECK (quantity_cancelled <= quantity_total)",
		"CHECK (qty > 0)",
		"num_nonnulls(hotel_id, allotment_id, allotment_room_type_id, customer_id, reservation_id, allotment_payment_id, reservation_payment_id) <= 1",
		"FOREIGN KEY (customer_id) REFERENCES customers(id) ON DELETE SET NULL",
		"DROP TABLE IF EXISTS update_logs",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMySQLSchemaMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "mysql", "create_allotments_schema.sql")

	checks := []string{
		"UNIQUE KEY ux_cities_name_country (name, country)",
		"UNIQUE KEY ux_allotment_room_types_allotment_room_type (allotment_id, room_type_id)",
		"FOREIGN KEY (reservation_id) REFERENCES reservations(id) ON DELETE CASCADE",
		"FOREIGN KEY (allotment_room_type_id) REFERENCES allotment_room_types(id) ON DELETE RESTRICT",
		"ENGINE=InnoDB",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestOutboxMigrationsExistForEveryDialect(t *testing.T) {
	for _, driver := range []string{"postgres", "mysql"} {
		content := readMigration(t, driver, "create_outbox_events.sql")
		if !strings.Contains(content, "CREATE TABLE IF NOT EXISTS outbox_events") {
			t.Errorf("%s outbox migration missing table", driver)
		}
	}
}

func TestShippedDialectsStayInLockstep(t *testing.T) {
	if err := migrate.ValidateDialects("migrations"); err != nil {
		t.Fatalf("shipped migrations invalid: %v", err)
	}
}
