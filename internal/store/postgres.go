package store

import (
	"context"
	"fmt"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Store is the Postgres-backed persistence layer: point reads on accounts and
// transaction records, insert-if-absent account creation, and the atomic
// commit unit in commit.go that the transaction processor builds on.
type Store struct {
	pool       *pgxpool.Pool
	connString string
	log        *zap.Logger
}

// New connects a pooled Postgres store and verifies the connection.
func New(ctx context.Context, connString string, logger *zap.Logger) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}

	// Balances and amounts are NUMERIC columns; register the shopspring
	// codec so they scan and encode as decimal.Decimal.
	cfg.AfterConnect = func(_ context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{pool: pool, connString: connString, log: logger}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}
