// Package sqldb is the SQL implementation of the draft store, supporting
// SQLite for single-node deployments and PostgreSQL for shared ones.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/nmorel/lexidraft/internal/storage"
	"github.com/nmorel/lexidraft/internal/storage/dialect"
)

// Store is a dialect-aware SQL implementation of storage.DraftStore.
type Store struct {
	db      *sqlx.DB
	dialect dialect.Dialect
}

var _ storage.DraftStore = (*Store)(nil)

// Config holds database connection configuration.
type Config struct {
	Driver string // sqlite or postgres
	DSN    string
}

// New opens the database, runs dialect init statements and ensures the schema.
func New(cfg Config) (*Store, error) {
	d, err := dialect.FromDriverName(cfg.Driver)
	if err != nil {
		return nil, fmt.Errorf("unsupported database driver: %w", err)
	}

	db, err := sqlx.Open(d.DriverName(), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	for _, stmt := range d.InitStatements() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run init statement: %w", err)
		}
	}

	store := &Store{db: db, dialect: d}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// NewSQLite opens a SQLite-backed store at the given path.
func NewSQLite(dbPath string) (*Store, error) {
	return New(Config{Driver: "sqlite", DSN: dbPath})
}

func (s *Store) initSchema() error {
	schema := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS drafts (
		id %[1]s PRIMARY KEY,
		cabinet_id %[1]s NOT NULL,
		contract_type %[1]s NOT NULL,
		step %[1]s NOT NULL,
		state %[1]s NOT NULL,
		created_at %[2]s NOT NULL,
		updated_at %[2]s NOT NULL
	)`, s.dialect.TextType(), s.dialect.TimestampType())

	statements := []string{
		schema,
		`CREATE INDEX IF NOT EXISTS idx_drafts_cabinet ON drafts(cabinet_id)`,
		`CREATE INDEX IF NOT EXISTS idx_drafts_updated ON drafts(updated_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) SaveDraft(ctx context.Context, draft *storage.Draft) error {
	query := s.dialect.Rebind(fmt.Sprintf(`
		INSERT INTO drafts (id, cabinet_id, contract_type, step, state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		%s`,
		s.dialect.UpsertClause("id", []string{"contract_type", "step", "state", "updated_at"})))

	_, err := s.db.ExecContext(ctx, query,
		draft.ID, draft.CabinetID, draft.ContractType, draft.Step,
		string(draft.State), draft.CreatedAt, draft.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save draft %s: %w", draft.ID, err)
	}
	return nil
}

func (s *Store) GetDraft(ctx context.Context, id string) (*storage.Draft, error) {
	query := s.dialect.Rebind(`
		SELECT id, cabinet_id, contract_type, step, state, created_at, updated_at
		FROM drafts WHERE id = ?`)

	var row draftRow
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get draft %s: %w", id, err)
	}
	return row.toDraft(), nil
}

func (s *Store) ListDrafts(ctx context.Context, cabinetID string) ([]*storage.Draft, error) {
	query := s.dialect.Rebind(`
		SELECT id, cabinet_id, contract_type, step, state, created_at, updated_at
		FROM drafts WHERE cabinet_id = ? ORDER BY updated_at DESC`)

	var rows []draftRow
	if err := s.db.SelectContext(ctx, &rows, query, cabinetID); err != nil {
		return nil, fmt.Errorf("failed to list drafts for cabinet %s: %w", cabinetID, err)
	}
	drafts := make([]*storage.Draft, len(rows))
	for i := range rows {
		drafts[i] = rows[i].toDraft()
	}
	return drafts, nil
}

func (s *Store) DeleteDraft(ctx context.Context, id string) error {
	query := s.dialect.Rebind(`DELETE FROM drafts WHERE id = ?`)
	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete draft %s: %w", id, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// draftRow keeps the state column as a string so both drivers scan it
// uniformly.
type draftRow struct {
	ID           string         `db:"id"`
	CabinetID    string         `db:"cabinet_id"`
	ContractType string         `db:"contract_type"`
	Step         string         `db:"step"`
	State        string         `db:"state"`
	CreatedAt    sql.NullTime   `db:"created_at"`
	UpdatedAt    sql.NullTime   `db:"updated_at"`
}

func (r *draftRow) toDraft() *storage.Draft {
	return &storage.Draft{
		ID:           r.ID,
		CabinetID:    r.CabinetID,
		ContractType: r.ContractType,
		Step:         r.Step,
		State:        []byte(r.State),
		CreatedAt:    r.CreatedAt.Time,
		UpdatedAt:    r.UpdatedAt.Time,
	}
}
