package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

// MySQL error numbers that mean "the transaction lost a race, run it again".
const (
	mysqlDeadlock     = 1213
	mysqlLockWaitTime = 1205
)

// Store is the relationship store: one repository per record kind, all bound
// to the same connection (or the same transaction inside Atomic).
type Store struct {
	db      *gorm.DB
	retries int

	Users   *UserRepository
	Likes   *LikeRepository
	Matches *MatchRepository
	Chats   *ChatRepository
	Reveals *RevealRepository
}

// NewStore binds all repositories to database. retries is how many extra
// attempts Atomic makes when the store reports a serialization conflict.
func NewStore(database *gorm.DB, retries int) *Store {
	return &Store{
		db:      database,
		retries: retries,
		Users:   NewUserRepository(database),
		Likes:   NewLikeRepository(database),
		Matches: NewMatchRepository(database),
		Chats:   NewChatRepository(database),
		Reveals: NewRevealRepository(database),
	}
}

// DB exposes the underlying connection.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Atomic runs fn inside a single serializable transaction.
//
// Behavior:
//   - fn receives a Store whose repositories all use the transaction.
//   - Any error from fn (or from COMMIT) rolls everything back.
//   - When the store aborts the transaction because of a concurrent writer
//     (deadlock, lock wait timeout, SQLite busy/locked) the whole fn is re-run,
//     up to s.retries extra times. Domain errors are never retried.
//
// Example:
//
//	err := store.Atomic(ctx, func(tx *repository.Store) error {
//		_, err := tx.Likes.Insert(ctx, 1, 2)
//		return err
//	})
func (s *Store) Atomic(ctx context.Context, fn func(tx *Store) error) error {
	opts := &sql.TxOptions{Isolation: sql.LevelSerializable}

	for attempt := 0; ; attempt++ {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(NewStore(tx, 0))
		}, opts)
		if err == nil || attempt >= s.retries || !IsConflict(err) {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 15 * time.Millisecond):
		}
	}
}

// IsConflict reports whether err is a transient transaction conflict that is
// safe to resolve by re-running the transaction.
func IsConflict(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDeadlock || myErr.Number == mysqlLockWaitTime
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrBusy || liteErr.Code == sqlite3.ErrLocked
	}
	return false
}

// Normalize orders a user pair so the smaller id comes first.
func Normalize(x, y uint64) (a, b uint64) {
	if x > y {
		return y, x
	}
	return x, y
}
