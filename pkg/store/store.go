// Package store persists amendments in a SQLite database. Each amendment is
// kept as its wire JSON next to the columns used for listing.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/coolbeans/emenda/pkg/emenda"
)

// DefaultPath is used when no database path is configured.
const DefaultPath = "emendas.db"

// ErrNotFound is returned for unknown amendment ids.
var ErrNotFound = errors.New("amendment not found")

// Registro is the listing view of a stored amendment.
type Registro struct {
	ID           string            `json:"id"`
	Urn          string            `json:"urn"`
	Modo         emenda.ModoEdicao `json:"modoEdicao"`
	AtualizadoEm time.Time         `json:"atualizadoEm"`
}

// Store keeps amendments in one SQLite table.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS emendas (
		id TEXT PRIMARY KEY,
		urn TEXT NOT NULL,
		modo TEXT NOT NULL,
		payload BLOB NOT NULL,
		atualizado_em TEXT NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create emendas table: %w", err)
	}
	return &Store{db: db, path: path, now: time.Now}, nil
}

// Close closes the database.
func (store *Store) Close() error {
	return store.db.Close()
}

// Path returns the database path.
func (store *Store) Path() string { return store.path }

// Save inserts or replaces an amendment and returns its id. An empty id gets
// a new UUID. Amendments that fail validation are not stored.
func (store *Store) Save(ctx context.Context, id string, amendment *emenda.Emenda) (retID string, retErr error) {
	if amendment == nil {
		return "", fmt.Errorf("amendment is nil")
	}
	if err := amendment.Validate(); err != nil {
		return "", err
	}
	payload, err := emenda.Marshal(amendment)
	if err != nil {
		return "", err
	}
	if id == "" {
		id = uuid.NewString()
	}

	tx, err := store.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, `INSERT INTO emendas(id,urn,modo,payload,atualizado_em) VALUES(?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET urn=excluded.urn, modo=excluded.modo, payload=excluded.payload, atualizado_em=excluded.atualizado_em`,
		id, amendment.Proposicao.Urn, string(amendment.ModoEdicao), payload, store.now().UTC().Format(time.RFC3339Nano)); err != nil {
		return "", fmt.Errorf("upsert %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

// Load returns a stored amendment.
func (store *Store) Load(ctx context.Context, id string) (*emenda.Emenda, error) {
	var payload []byte
	err := store.db.QueryRowContext(ctx, `SELECT payload FROM emendas WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", id, err)
	}
	amendment, err := emenda.Unmarshal(payload)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", id, err)
	}
	return amendment, nil
}

// List returns every stored amendment, most recently updated first. A non-empty
// urn restricts the listing to amendments of that norm.
func (store *Store) List(ctx context.Context, urn string) ([]Registro, error) {
	query := `SELECT id, urn, modo, atualizado_em FROM emendas`
	var args []any
	if urn != "" {
		query += ` WHERE urn = ?`
		args = append(args, urn)
	}
	query += ` ORDER BY atualizado_em DESC, id`

	rows, err := store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select emendas: %w", err)
	}
	defer func() { _ = rows.Close() }()

	registros := []Registro{}
	for rows.Next() {
		var registro Registro
		var modo, atualizadoEm string
		if err := rows.Scan(&registro.ID, &registro.Urn, &modo, &atualizadoEm); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		registro.Modo = emenda.ModoEdicao(modo)
		if registro.AtualizadoEm, err = time.Parse(time.RFC3339Nano, atualizadoEm); err != nil {
			return nil, fmt.Errorf("decode atualizado_em of %s: %w", registro.ID, err)
		}
		registros = append(registros, registro)
	}
	return registros, rows.Err()
}

// Delete removes a stored amendment.
func (store *Store) Delete(ctx context.Context, id string) error {
	result, err := store.db.ExecContext(ctx, `DELETE FROM emendas WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
