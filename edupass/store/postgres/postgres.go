// Package postgres provides the PostgreSQL ledger store. Ledger state
// lives in three tables (config, balances, allocations) created by
// embedded migrations; updates serialize on a transaction-scoped
// advisory lock.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/bxcodec/dbresolver/v2"
	constant "github.com/edupass/edupass-ledger/edupass/constants"
	"github.com/edupass/edupass-ledger/edupass/ledger"
	"github.com/edupass/edupass-ledger/edupass/log"
	"github.com/edupass/edupass-ledger/edupass/opentelemetry"
	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 10
	defaultConnMaxLifetime = 30 * time.Minute
	defaultConnMaxIdleTime = 5 * time.Minute

	configKeyAdmin       = "admin"
	configKeyTotalIssued = "total_issued"

	// advisoryLockKey spells "edupass1". Every Update takes this
	// transaction-scoped advisory lock, so concurrent updates across all
	// service instances sharing the database are serialized.
	advisoryLockKey int64 = 0x6564757061737331
)

var (
	connectionStringCredentialsPattern = regexp.MustCompile(`://[^@\s]+@`)
	connectionStringPasswordPattern    = regexp.MustCompile(`(?i)(password=)([^\s&]+)`)
	dbNamePattern                      = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]{0,62}$`)
)

// Config defines the PostgreSQL connection parameters. When the replica
// connection string is empty the primary serves both roles.
type Config struct {
	ConnectionStringPrimary string
	ConnectionStringReplica string
	DatabaseName            string
	MaxOpenConnections      int
	MaxIdleConnections      int
	Logger                  log.Logger
}

// Store implements ledger.Store on PostgreSQL through a primary/replica
// resolver. The connection is established lazily on first use or
// explicitly via Connect.
type Store struct {
	cfg     Config
	mu      sync.RWMutex
	db      dbresolver.DB
	primary *sql.DB
}

var _ ledger.Store = (*Store)(nil)

// New creates a Store without connecting. Connect (or the first
// operation) opens the pools and runs migrations.
func New(cfg Config) *Store {
	if cfg.Logger == nil {
		cfg.Logger = log.NewNop()
	}

	if cfg.ConnectionStringReplica == "" {
		cfg.ConnectionStringReplica = cfg.ConnectionStringPrimary
	}

	if cfg.MaxOpenConnections <= 0 {
		cfg.MaxOpenConnections = defaultMaxOpenConns
	}

	if cfg.MaxIdleConnections <= 0 {
		cfg.MaxIdleConnections = defaultMaxIdleConns
	}

	return &Store{cfg: cfg}
}

// Connect opens the primary and replica pools, runs migrations on the
// primary, and verifies connectivity.
func (s *Store) Connect(ctx context.Context) error {
	tracer := otel.Tracer("postgres")

	ctx, span := tracer.Start(ctx, "postgres.connect")
	defer span.End()

	span.SetAttributes(attribute.String(constant.AttrDBSystem, constant.DBSystemPostgreSQL))

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.connectLocked(ctx); err != nil {
		opentelemetry.HandleSpanError(&span, "Failed to connect to postgres", err)

		return err
	}

	return nil
}

func (s *Store) connectLocked(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context canceled before database connection: %w", err)
	}

	if s.db != nil {
		if err := s.closeLocked(); err != nil {
			s.cfg.Logger.Log(ctx, log.LevelWarn, "failed to close previous connection before reconnect", log.Err(err))
		}
	}

	s.cfg.Logger.Log(ctx, log.LevelInfo, "connecting to primary and replica databases")

	primary, err := sql.Open("pgx", s.cfg.ConnectionStringPrimary)
	if err != nil {
		sanitized := sanitizeSensitiveError(err)
		s.cfg.Logger.Log(ctx, log.LevelError, "failed to open primary database", log.String("error", sanitized))

		return fmt.Errorf("failed to open primary database: %s", sanitized)
	}

	// Primary must be cleaned up if anything downstream fails.
	var success bool

	defer func() {
		if !success {
			primary.Close()
		}
	}()

	configurePool(primary, s.cfg)

	replica, err := sql.Open("pgx", s.cfg.ConnectionStringReplica)
	if err != nil {
		sanitized := sanitizeSensitiveError(err)
		s.cfg.Logger.Log(ctx, log.LevelError, "failed to open replica database", log.String("error", sanitized))

		return fmt.Errorf("failed to open replica database: %s", sanitized)
	}

	defer func() {
		if !success {
			replica.Close()
		}
	}()

	configurePool(replica, s.cfg)

	db := dbresolver.New(
		dbresolver.WithPrimaryDBs(primary),
		dbresolver.WithReplicaDBs(replica),
		dbresolver.WithLoadBalancer(dbresolver.RoundRobinLB),
	)

	if err := s.runMigrations(ctx, primary); err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		s.cfg.Logger.Log(ctx, log.LevelError, "failed to ping database", log.Err(err))

		return fmt.Errorf("failed to ping database: %w", err)
	}

	s.db = db
	s.primary = primary

	s.cfg.Logger.Log(ctx, log.LevelInfo, "connected to postgres")

	success = true

	return nil
}

func configurePool(db *sql.DB, cfg Config) {
	db.SetMaxOpenConns(cfg.MaxOpenConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)
	db.SetConnMaxIdleTime(defaultConnMaxIdleTime)
}

func (s *Store) runMigrations(ctx context.Context, primary *sql.DB) error {
	if !dbNamePattern.MatchString(s.cfg.DatabaseName) {
		return fmt.Errorf("invalid database name: %q", s.cfg.DatabaseName)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	driver, err := migratepg.WithInstance(primary, &migratepg.Config{
		MultiStatementEnabled: true,
		DatabaseName:          s.cfg.DatabaseName,
		SchemaName:            "public",
	})
	if err != nil {
		return fmt.Errorf("failed to create postgres driver instance: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, s.cfg.DatabaseName, driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			s.cfg.Logger.Log(ctx, log.LevelInfo, "no new migrations found, skipping")

			return nil
		}

		var dirtyErr migrate.ErrDirty
		if errors.As(err, &dirtyErr) {
			s.cfg.Logger.Log(ctx, log.LevelError, "migration failed with dirty version", log.Int("version", dirtyErr.Version))

			return fmt.Errorf("migration failed: dirty database version %d", dirtyErr.Version)
		}

		s.cfg.Logger.Log(ctx, log.LevelError, "migration failed", log.Err(err))

		return fmt.Errorf("migration failed: %w", err)
	}

	return nil
}

// getDB returns the resolver, connecting lazily if necessary.
func (s *Store) getDB(ctx context.Context) (dbresolver.DB, error) {
	s.mu.RLock()

	if s.db != nil {
		db := s.db
		s.mu.RUnlock()

		return db, nil
	}

	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring the write lock.
	if s.db != nil {
		return s.db, nil
	}

	if err := s.connectLocked(ctx); err != nil {
		return nil, err
	}

	return s.db, nil
}

// View runs fn inside a read-only repeatable-read transaction, giving a
// consistent snapshot across reads.
func (s *Store) View(ctx context.Context, fn func(ledger.Tx) error) error {
	db, err := s.getDB(ctx)
	if err != nil {
		return err
	}

	sqlTx, err := db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true, Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return fmt.Errorf("begin view transaction: %w", err)
	}

	defer func() {
		_ = sqlTx.Rollback()
	}()

	return fn(&pgTx{ctx: ctx, tx: sqlTx})
}

// Update runs fn inside a read-write transaction holding the ledger
// advisory lock.
func (s *Store) Update(ctx context.Context, fn func(ledger.Tx) error) error {
	db, err := s.getDB(ctx)
	if err != nil {
		return err
	}

	sqlTx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update transaction: %w", err)
	}

	var committed bool

	defer func() {
		if !committed {
			_ = sqlTx.Rollback()
		}
	}()

	if _, err := sqlTx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", advisoryLockKey); err != nil {
		return fmt.Errorf("acquire ledger advisory lock: %w", err)
	}

	if err := fn(&pgTx{ctx: ctx, tx: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit update transaction: %w", err)
	}

	committed = true

	return nil
}

// Ping verifies database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	db, err := s.getDB(ctx)
	if err != nil {
		return err
	}

	return db.PingContext(ctx)
}

// Close releases both connection pools.
func (s *Store) Close(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closeLocked()
}

func (s *Store) closeLocked() error {
	if s.db == nil {
		return nil
	}

	err := s.db.Close()
	s.db = nil
	s.primary = nil

	return err
}

func sanitizeSensitiveError(err error) string {
	if err == nil {
		return ""
	}

	sanitized := connectionStringCredentialsPattern.ReplaceAllString(err.Error(), "://***@")
	sanitized = connectionStringPasswordPattern.ReplaceAllString(sanitized, "${1}***")

	return sanitized
}

// pgTx adapts one *sql.Tx to the ledger.Tx contract. Reads inside the
// transaction observe its own earlier writes.
type pgTx struct {
	ctx context.Context
	tx  dbresolver.Tx
}

var _ ledger.Tx = (*pgTx)(nil)

func (t *pgTx) Admin() (ledger.AccountID, bool, error) {
	var admin string

	err := t.tx.QueryRowContext(t.ctx,
		`SELECT value FROM ledger_config WHERE key = $1`, configKeyAdmin).Scan(&admin)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}

	if err != nil {
		return "", false, fmt.Errorf("read admin: %w", err)
	}

	return ledger.AccountID(admin), true, nil
}

func (t *pgTx) SetAdmin(admin ledger.AccountID) error {
	_, err := t.tx.ExecContext(t.ctx,
		`INSERT INTO ledger_config (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		configKeyAdmin, string(admin))
	if err != nil {
		return fmt.Errorf("write admin: %w", err)
	}

	return nil
}

func (t *pgTx) Balance(account ledger.AccountID) (decimal.Decimal, error) {
	var raw string

	err := t.tx.QueryRowContext(t.ctx,
		`SELECT balance::text FROM ledger_balances WHERE account_id = $1`, string(account)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, nil
	}

	if err != nil {
		return decimal.Zero, fmt.Errorf("read balance: %w", err)
	}

	balance, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse stored balance: %w", err)
	}

	return balance, nil
}

func (t *pgTx) SetBalance(account ledger.AccountID, balance decimal.Decimal) error {
	_, err := t.tx.ExecContext(t.ctx,
		`INSERT INTO ledger_balances (account_id, balance) VALUES ($1, $2::numeric)
		 ON CONFLICT (account_id) DO UPDATE SET balance = EXCLUDED.balance`,
		string(account), balance.String())
	if err != nil {
		return fmt.Errorf("write balance: %w", err)
	}

	return nil
}

func (t *pgTx) Allocation(beneficiary ledger.AccountID) (ledger.Allocation, bool, error) {
	var (
		issuer    string
		rawAmount string
		purpose   string
		expiresAt int64
	)

	err := t.tx.QueryRowContext(t.ctx,
		`SELECT issuer, amount::text, purpose, expires_at FROM ledger_allocations WHERE beneficiary = $1`,
		string(beneficiary)).Scan(&issuer, &rawAmount, &purpose, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Allocation{}, false, nil
	}

	if err != nil {
		return ledger.Allocation{}, false, fmt.Errorf("read allocation: %w", err)
	}

	amount, err := decimal.NewFromString(rawAmount)
	if err != nil {
		return ledger.Allocation{}, false, fmt.Errorf("parse stored allocation amount: %w", err)
	}

	return ledger.Allocation{
		Beneficiary: beneficiary,
		Issuer:      ledger.AccountID(issuer),
		Amount:      amount,
		Purpose:     purpose,
		ExpiresAt:   expiresAt,
	}, true, nil
}

func (t *pgTx) SetAllocation(allocation ledger.Allocation) error {
	_, err := t.tx.ExecContext(t.ctx,
		`INSERT INTO ledger_allocations (beneficiary, issuer, amount, purpose, expires_at)
		 VALUES ($1, $2, $3::numeric, $4, $5)
		 ON CONFLICT (beneficiary) DO UPDATE SET
		   issuer = EXCLUDED.issuer,
		   amount = EXCLUDED.amount,
		   purpose = EXCLUDED.purpose,
		   expires_at = EXCLUDED.expires_at`,
		string(allocation.Beneficiary), string(allocation.Issuer),
		allocation.Amount.String(), allocation.Purpose, allocation.ExpiresAt)
	if err != nil {
		return fmt.Errorf("write allocation: %w", err)
	}

	return nil
}

func (t *pgTx) TotalIssued() (decimal.Decimal, error) {
	var raw string

	err := t.tx.QueryRowContext(t.ctx,
		`SELECT value FROM ledger_config WHERE key = $1`, configKeyTotalIssued).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, nil
	}

	if err != nil {
		return decimal.Zero, fmt.Errorf("read total issued: %w", err)
	}

	total, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse stored total issued: %w", err)
	}

	return total, nil
}

func (t *pgTx) SetTotalIssued(total decimal.Decimal) error {
	_, err := t.tx.ExecContext(t.ctx,
		`INSERT INTO ledger_config (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		configKeyTotalIssued, total.String())
	if err != nil {
		return fmt.Errorf("write total issued: %w", err)
	}

	return nil
}
