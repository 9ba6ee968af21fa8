package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("duplicate record")
)

// Repositories groups the per-entity repositories that share a connection or transaction.
type Repositories struct {
	Users      UserRepository
	Tickets    TicketRepository
	Comments   CommentRepository
	Activities ActivityRepository
}

// Store is the persistence capability handed to services at construction.
type Store interface {
	// Repos returns repositories that run outside any transaction.
	Repos() Repositories
	// WithinTx runs fn in a single transaction; fn's error rolls everything back.
	WithinTx(ctx context.Context, fn func(Repositories) error) error
	Ping(ctx context.Context) error
	Close()
}

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type postgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore builds a Store over a pgx pool.
func NewPostgresStore(pool *pgxpool.Pool) Store {
	return &postgresStore{pool: pool}
}

func (s *postgresStore) Repos() Repositories {
	return newPostgresRepositories(s.pool)
}

func (s *postgresStore) WithinTx(ctx context.Context, fn func(Repositories) error) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return fn(newPostgresRepositories(tx))
	})
}

func (s *postgresStore) Ping(ctx context.Context) error {
	if s.pool == nil {
		return errors.New("postgres pool not configured")
	}
	return s.pool.Ping(ctx)
}

func (s *postgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func newPostgresRepositories(db DBTX) Repositories {
	return Repositories{
		Users:      NewUserRepository(db),
		Tickets:    NewTicketRepository(db),
		Comments:   NewCommentRepository(db),
		Activities: NewActivityRepository(db),
	}
}

// translateError maps driver errors onto the package sentinels.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}
