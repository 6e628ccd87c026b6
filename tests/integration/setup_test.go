//go:build integration

package integration

import (
	"fmt"
	"log"
	"os"
	"testing"

	"github.com/ElVatoEste/biblioteca-reservas/pkg/database"
	"gorm.io/gorm"
)

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
		getEnv("TEST_DB_HOST", "localhost"),
		getEnv("TEST_DB_PORT", "5434"),
		getEnv("TEST_DB_USER", "postgres"),
		getEnv("TEST_DB_PASSWORD", "postgres"),
		getEnv("TEST_DB_NAME", "reservas_test_db"),
	)

	var err error
	testDB, err = database.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("failed to connect to test database: %v", err)
	}

	code := m.Run()

	testDB.Exec("DROP TABLE IF EXISTS reservations")
	testDB.Exec("DROP TABLE IF EXISTS users")
	testDB.Exec("DROP TABLE IF EXISTS allowed_emails")

	os.Exit(code)
}

func cleanTables() {
	testDB.Exec("DELETE FROM reservations")
	testDB.Exec("DELETE FROM users")
	testDB.Exec("DELETE FROM allowed_emails")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
