package repository_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/oggyb/muzz-matchmaker/internal/db"
	"github.com/oggyb/muzz-matchmaker/internal/repository"
)

// setup in-memory DB; a single connection keeps every caller on the same database
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := database.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.Migrate(database); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return database
}

// createUsers inserts users 1..n with predictable names and interests.
func createUsers(t *testing.T, gdb *gorm.DB, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		u := db.User{
			ID:           uint64(i),
			Name:         fmt.Sprintf("user%d", i),
			Email:        fmt.Sprintf("u%d@test.com", i),
			PasswordHash: "x",
			Age:          20 + i,
			Interests:    datatypes.NewJSONSlice([]string{"music"}),
			Personality:  datatypes.NewJSONType(db.Personality{"openness": 0.5}),
			Photos:       datatypes.NewJSONSlice([]string{}),
		}
		require.NoError(t, gdb.Create(&u).Error)
	}
}

func TestNormalize(t *testing.T) {
	a, b := repository.Normalize(7, 3)
	assert.Equal(t, uint64(3), a)
	assert.Equal(t, uint64(7), b)

	a, b = repository.Normalize(3, 7)
	assert.Equal(t, uint64(3), a)
	assert.Equal(t, uint64(7), b)
}

func TestIsConflict(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"mysql deadlock", &mysql.MySQLError{Number: 1213}, true},
		{"mysql lock wait", fmt.Errorf("commit: %w", &mysql.MySQLError{Number: 1205}), true},
		{"mysql duplicate", &mysql.MySQLError{Number: 1062}, false},
		{"sqlite busy", sqlite3.Error{Code: sqlite3.ErrBusy}, true},
		{"sqlite locked", fmt.Errorf("tx: %w", sqlite3.Error{Code: sqlite3.ErrLocked}), true},
		{"sqlite constraint", sqlite3.Error{Code: sqlite3.ErrConstraint}, false},
		{"plain", errors.New("boom"), false},
		{"nil", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, repository.IsConflict(tc.err))
		})
	}
}

func TestAtomic_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	store := repository.NewStore(dbase, 3)

	boom := errors.New("boom")
	err := store.Atomic(ctx, func(tx *repository.Store) error {
		created, err := tx.Likes.Insert(ctx, 1, 2)
		require.NoError(t, err)
		assert.True(t, created)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	liked, err := store.Likes.Exists(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, liked)
}

func TestAtomic_RetriesConflicts(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	store := repository.NewStore(dbase, 3)

	attempts := 0
	err := store.Atomic(ctx, func(tx *repository.Store) error {
		attempts++
		if _, err := tx.Likes.Insert(ctx, 1, 2); err != nil {
			return err
		}
		if attempts < 3 {
			return sqlite3.Error{Code: sqlite3.ErrBusy}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)

	// earlier attempts were rolled back, the last one committed exactly one row
	var count int64
	require.NoError(t, dbase.Model(&db.Like{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestAtomic_GivesUpAfterRetries(t *testing.T) {
	ctx := context.Background()
	store := repository.NewStore(setupTestDB(t), 1)

	attempts := 0
	err := store.Atomic(ctx, func(tx *repository.Store) error {
		attempts++
		return &mysql.MySQLError{Number: 1213}
	})
	assert.True(t, repository.IsConflict(err))
	assert.Equal(t, 2, attempts)
}

func TestAtomic_DomainErrorsAreNotRetried(t *testing.T) {
	ctx := context.Background()
	store := repository.NewStore(setupTestDB(t), 3)

	attempts := 0
	err := store.Atomic(ctx, func(tx *repository.Store) error {
		attempts++
		return gorm.ErrRecordNotFound
	})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.Equal(t, 1, attempts)
}
