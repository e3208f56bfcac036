// Package sqlite provides the embedded SQLite store for aclguard.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/aclguard/backend/internal/db"
)

// Compile-time interface check.
var _ db.Store = (*Store)(nil)

// Store provides database operations with connection pooling and
// prepared statements.
type Store struct {
	db        *sql.DB
	stmtCache map[string]*sql.Stmt
	stmtMu    sync.RWMutex
}

// StoreConfig holds configuration for the database store.
type StoreConfig struct {
	Path     string
	MaxConns int
}

// NewStore opens (and if necessary creates) the database and runs
// pending migrations.
func NewStore(cfg StoreConfig) (*Store, error) {
	connStr := cfg.Path + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = 4
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &Store{
		db:        db,
		stmtCache: make(map[string]*sql.Stmt),
	}

	mgr := NewMigrationManager(db)
	if err := mgr.RunMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return store, nil
}

// Close closes the database connection and all cached statements.
func (s *Store) Close() error {
	s.stmtMu.Lock()
	defer s.stmtMu.Unlock()

	for _, stmt := range s.stmtCache {
		_ = stmt.Close()
	}
	s.stmtCache = nil

	return s.db.Close()
}

// Ping verifies the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// getStmt returns a cached prepared statement, creating it if necessary.
func (s *Store) getStmt(query string) (*sql.Stmt, error) {
	s.stmtMu.RLock()
	stmt, ok := s.stmtCache[query]
	s.stmtMu.RUnlock()
	if ok {
		return stmt, nil
	}

	s.stmtMu.Lock()
	defer s.stmtMu.Unlock()
	if stmt, ok := s.stmtCache[query]; ok {
		return stmt, nil
	}
	stmt, err := s.db.Prepare(query)
	if err != nil {
		return nil, fmt.Errorf("prepare statement: %w", err)
	}
	s.stmtCache[query] = stmt
	return stmt, nil
}
