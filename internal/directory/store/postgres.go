package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"plantpantry/internal/directory/models"
	"plantpantry/pkg/domain"
	"plantpantry/pkg/platform/sentinel"
)

// Schema creates the tables and uniqueness indexes. The partial unique index
// on place_id and the full one on dedup_key are what turn a concurrent
// duplicate submission into a recoverable conflict instead of a second row.
const Schema = `
CREATE TABLE IF NOT EXISTS chains (
	id         uuid PRIMARY KEY,
	name       text NOT NULL,
	type       text NOT NULL,
	created_at timestamptz NOT NULL,
	updated_at timestamptz NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS chains_name_key ON chains (lower(name));

CREATE TABLE IF NOT EXISTS stores (
	id          uuid PRIMARY KEY,
	name        text NOT NULL,
	type        text NOT NULL,
	address     text NOT NULL DEFAULT '',
	city        text NOT NULL DEFAULT '',
	state       text NOT NULL DEFAULT '',
	postal_code text NOT NULL DEFAULT '',
	latitude    double precision,
	longitude   double precision,
	place_id    text NOT NULL DEFAULT '',
	chain_id    uuid REFERENCES chains(id),
	region      text NOT NULL DEFAULT '',
	website     text NOT NULL DEFAULT '',
	dedup_key   text NOT NULL,
	created_at  timestamptz NOT NULL,
	updated_at  timestamptz NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS stores_place_id_key ON stores (place_id) WHERE place_id <> '';
CREATE UNIQUE INDEX IF NOT EXISTS stores_dedup_key_key ON stores (dedup_key);
CREATE INDEX IF NOT EXISTS stores_city_idx ON stores (lower(city));
CREATE INDEX IF NOT EXISTS stores_chain_idx ON stores (chain_id);
`

const uniqueViolation = "23505"

// PostgresStores persists stores in PostgreSQL.
type PostgresStores struct {
	db *sql.DB
}

// NewPostgresStores constructs a PostgreSQL-backed store store.
func NewPostgresStores(db *sql.DB) *PostgresStores {
	return &PostgresStores{db: db}
}

// EnsureSchema applies the schema. Idempotent.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

const storeColumns = `id, name, type, address, city, state, postal_code,
	latitude, longitude, place_id, chain_id, region, website, created_at, updated_at`

// Create inserts the store; a uniqueness violation on place_id or dedup_key
// surfaces as sentinel.ErrConflict.
func (s *PostgresStores) Create(ctx context.Context, st *models.Store) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stores (id, name, type, address, city, state, postal_code,
			latitude, longitude, place_id, chain_id, region, website, dedup_key,
			created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		st.ID.String(), st.Name, string(st.Type), st.Address, st.City, st.State,
		st.PostalCode, st.Latitude, st.Longitude, st.PlaceID, chainIDValue(st.ChainID),
		st.Region, st.Website, st.DedupKey(), st.CreatedAt, st.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("store insert: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("create store: %w", err)
	}
	return nil
}

// FindByID fetches a store by ID.
func (s *PostgresStores) FindByID(ctx context.Context, id domain.StoreID) (*models.Store, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+storeColumns+` FROM stores WHERE id = $1`, id.String())
	return scanStore(row)
}

// FindByPlaceID fetches a store by its external place identifier.
func (s *PostgresStores) FindByPlaceID(ctx context.Context, placeID string) (*models.Store, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+storeColumns+` FROM stores WHERE place_id = $1 AND place_id <> ''`, placeID)
	return scanStore(row)
}

// FindByDedupKey fetches a store by its derived uniqueness key.
func (s *PostgresStores) FindByDedupKey(ctx context.Context, key string) (*models.Store, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+storeColumns+` FROM stores WHERE dedup_key = $1`, key)
	return scanStore(row)
}

// List returns stores matching the filter, ordered by name then ID.
func (s *PostgresStores) List(ctx context.Context, f Filter) ([]*models.Store, error) {
	query := `SELECT ` + storeColumns + ` FROM stores WHERE 1=1`
	var args []any
	if f.ChainID != nil {
		args = append(args, f.ChainID.String())
		query += fmt.Sprintf(" AND chain_id = $%d", len(args))
	}
	if f.City != "" {
		args = append(args, strings.ToLower(f.City))
		query += fmt.Sprintf(" AND lower(city) = $%d", len(args))
	}
	if f.State != "" {
		args = append(args, strings.ToLower(f.State))
		query += fmt.Sprintf(" AND lower(state) = $%d", len(args))
	}
	query += " ORDER BY name, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	defer rows.Close()
	return scanStores(rows)
}

// Search returns candidate stores for duplicate classification: stores whose
// name contains any of the tokens, or in the same city.
func (s *PostgresStores) Search(ctx context.Context, nameTokens []string, city string) ([]*models.Store, error) {
	var clauses []string
	var args []any
	for _, t := range nameTokens {
		args = append(args, "%"+t+"%")
		clauses = append(clauses, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	if city != "" {
		args = append(args, strings.ToLower(city))
		clauses = append(clauses, fmt.Sprintf("lower(city) = $%d", len(args)))
	}
	if len(clauses) == 0 {
		return nil, nil
	}

	query := `SELECT ` + storeColumns + ` FROM stores WHERE ` +
		strings.Join(clauses, " OR ") + ` ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search stores: %w", err)
	}
	defer rows.Close()
	return scanStores(rows)
}

// PostgresChains persists chains in PostgreSQL.
type PostgresChains struct {
	db *sql.DB
}

// NewPostgresChains constructs a PostgreSQL-backed chain store.
func NewPostgresChains(db *sql.DB) *PostgresChains {
	return &PostgresChains{db: db}
}

// Create inserts the chain; a duplicate name surfaces as sentinel.ErrConflict.
func (s *PostgresChains) Create(ctx context.Context, chain *models.StoreChain) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chains (id, name, type, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5)`,
		chain.ID.String(), chain.Name, string(chain.Type), chain.CreatedAt, chain.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("chain insert: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("create chain: %w", err)
	}
	return nil
}

// Update rewrites the chain's mutable fields.
func (s *PostgresChains) Update(ctx context.Context, chain *models.StoreChain) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE chains SET name = $2, type = $3, updated_at = $4 WHERE id = $1`,
		chain.ID.String(), chain.Name, string(chain.Type), chain.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("chain update: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("update chain: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update chain: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// FindByID fetches a chain by ID.
func (s *PostgresChains) FindByID(ctx context.Context, id domain.ChainID) (*models.StoreChain, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, type, created_at, updated_at FROM chains WHERE id = $1`, id.String())
	return scanChain(row)
}

// List returns every chain ordered by name.
func (s *PostgresChains) List(ctx context.Context) ([]*models.StoreChain, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, type, created_at, updated_at FROM chains ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list chains: %w", err)
	}
	defer rows.Close()

	var out []*models.StoreChain
	for rows.Next() {
		chain, err := scanChain(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, chain)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStore(row rowScanner) (*models.Store, error) {
	var st models.Store
	var id string
	var chainID sql.NullString
	err := row.Scan(&id, &st.Name, &st.Type, &st.Address, &st.City, &st.State,
		&st.PostalCode, &st.Latitude, &st.Longitude, &st.PlaceID, &chainID,
		&st.Region, &st.Website, &st.CreatedAt, &st.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan store: %w", err)
	}
	parsed, err := domain.ParseStoreID(id)
	if err != nil {
		return nil, fmt.Errorf("scan store id: %w", err)
	}
	st.ID = parsed
	if chainID.Valid {
		cid, err := domain.ParseChainID(chainID.String)
		if err != nil {
			return nil, fmt.Errorf("scan chain id: %w", err)
		}
		st.ChainID = &cid
	}
	return &st, nil
}

func scanStores(rows *sql.Rows) ([]*models.Store, error) {
	var out []*models.Store
	for rows.Next() {
		st, err := scanStore(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func scanChain(row rowScanner) (*models.StoreChain, error) {
	var chain models.StoreChain
	var id string
	err := row.Scan(&id, &chain.Name, &chain.Type, &chain.CreatedAt, &chain.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan chain: %w", err)
	}
	parsed, err := domain.ParseChainID(id)
	if err != nil {
		return nil, fmt.Errorf("scan chain id: %w", err)
	}
	chain.ID = parsed
	return &chain, nil
}

func chainIDValue(id *domain.ChainID) any {
	if id == nil {
		return nil
	}
	return id.String()
}
