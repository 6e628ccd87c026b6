package database

import (
	"testing"

	"github.com/ElVatoEste/biblioteca-reservas/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_SQLiteMigrates(t *testing.T) {
	db, err := Open("sqlite", "file::memory:")
	require.NoError(t, err)

	assert.True(t, db.Migrator().HasTable(&models.Reservation{}))
	assert.True(t, db.Migrator().HasTable(&models.User{}))
	assert.True(t, db.Migrator().HasIndex(&models.Reservation{}, "idx_reservations_start_key"))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open("oracle", "whatever")
	assert.ErrorContains(t, err, "unsupported database driver")
}
