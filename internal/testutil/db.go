// Package testutil provides shared fixtures for backend tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"tandem/internal/database"
	"tandem/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var userSeq atomic.Uint64

// NewTestDB returns a migrated in-memory SQLite database private to t.
// The pool holds a single connection, so code running inside a
// transaction must issue every query through the transaction handle.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	cfg := database.GormConfig()
	cfg.Logger = logger.Discard
	db, err := gorm.Open(sqlite.Open(":memory:"), cfg)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// CreateUser inserts a user with a unique username derived from prefix.
func CreateUser(t *testing.T, db *gorm.DB, prefix string) *models.User {
	t.Helper()

	n := userSeq.Add(1)
	u := &models.User{
		Username: fmt.Sprintf("%s_%d", prefix, n),
		Email:    fmt.Sprintf("%s_%d@example.com", prefix, n),
		Password: "not-a-real-hash",
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// CreateUsers inserts n users sharing prefix.
func CreateUsers(t *testing.T, db *gorm.DB, prefix string, n int) []*models.User {
	t.Helper()

	users := make([]*models.User, 0, n)
	for i := 0; i < n; i++ {
		users = append(users, CreateUser(t, db, prefix))
	}
	return users
}
