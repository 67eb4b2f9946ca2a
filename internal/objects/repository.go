package objects

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Repository defines the interface for object and state persistence.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// GetObject retrieves an object by id.
	// Returns ErrObjectNotFound if the object does not exist.
	GetObject(ctx context.Context, id string) (*Object, error)

	// ListObjects retrieves objects whose id starts with prefix, optionally
	// filtered by type (empty type matches all). Results are ordered by id.
	ListObjects(ctx context.Context, prefix string, objType Type) ([]Object, error)

	// PutObject inserts or replaces an object.
	PutObject(ctx context.Context, obj *Object) error

	// CreateObject inserts an object only if its id is unused.
	// Returns true when the object was created.
	CreateObject(ctx context.Context, obj *Object) (bool, error)

	// DeleteObject removes an object.
	// Returns ErrObjectNotFound if the object does not exist.
	DeleteObject(ctx context.Context, id string) error

	// GetState retrieves the current value of a state.
	// Returns ErrStateNotFound if the state has never been written.
	GetState(ctx context.Context, id string) (*State, error)

	// PutState inserts or replaces the current value of a state.
	PutState(ctx context.Context, id string, state *State) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection with migrations applied.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetObject retrieves an object by id.
func (r *SQLiteRepository) GetObject(ctx context.Context, id string) (*Object, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, type, common, native, updated_at FROM objects WHERE id = ?`, id)

	obj, err := scanObject(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("querying object by id: %w", err)
	}
	return obj, nil
}

// ListObjects retrieves objects by id prefix and type.
func (r *SQLiteRepository) ListObjects(ctx context.Context, prefix string, objType Type) ([]Object, error) {
	var (
		where []string
		args  []any
	)
	if prefix != "" {
		// substr keeps the match case-sensitive, unlike LIKE.
		where = append(where, "substr(id, 1, ?) = ?")
		args = append(args, utf8.RuneCountInString(prefix), prefix)
	}
	if objType != "" {
		where = append(where, "type = ?")
		args = append(args, string(objType))
	}

	query := `SELECT id, type, common, native, updated_at FROM objects`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying objects: %w", err)
	}
	defer rows.Close()

	var objs []Object
	for rows.Next() {
		obj, err := scanObject(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning object: %w", err)
		}
		objs = append(objs, *obj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating objects: %w", err)
	}
	return objs, nil
}

// PutObject inserts or replaces an object. created_at survives replacement.
func (r *SQLiteRepository) PutObject(ctx context.Context, obj *Object) error {
	common, native, err := marshalSections(obj)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO objects (id, type, common, native, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			type = excluded.type,
			common = excluded.common,
			native = excluded.native,
			updated_at = excluded.updated_at`,
		obj.ID, string(obj.Type), common, native, now, now,
	)
	if err != nil {
		return fmt.Errorf("upserting object: %w", err)
	}
	return nil
}

// CreateObject inserts an object only if its id is unused.
func (r *SQLiteRepository) CreateObject(ctx context.Context, obj *Object) (bool, error) {
	common, native, err := marshalSections(obj)
	if err != nil {
		return false, err
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO objects (id, type, common, native, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		obj.ID, string(obj.Type), common, native, now, now,
	)
	if err != nil {
		return false, fmt.Errorf("inserting object: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking rows affected: %w", err)
	}
	return n == 1, nil
}

// DeleteObject removes an object.
func (r *SQLiteRepository) DeleteObject(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM objects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting object: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrObjectNotFound
	}
	return nil
}

// GetState retrieves the current value of a state.
func (r *SQLiteRepository) GetState(ctx context.Context, id string) (*State, error) {
	var (
		val   sql.NullString
		state State
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT val, ack, ts, lc, source FROM states WHERE id = ?`, id,
	).Scan(&val, &state.Ack, &state.Ts, &state.Lc, &state.From)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStateNotFound
		}
		return nil, fmt.Errorf("querying state: %w", err)
	}

	if val.Valid {
		if err := json.Unmarshal([]byte(val.String), &state.Val); err != nil {
			return nil, fmt.Errorf("decoding state value: %w", err)
		}
	}
	return &state, nil
}

// PutState inserts or replaces the current value of a state.
func (r *SQLiteRepository) PutState(ctx context.Context, id string, state *State) error {
	val, err := json.Marshal(state.Val)
	if err != nil {
		return fmt.Errorf("encoding state value: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO states (id, val, ack, ts, lc, source)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			val = excluded.val,
			ack = excluded.ack,
			ts = excluded.ts,
			lc = excluded.lc,
			source = excluded.source`,
		id, string(val), state.Ack, state.Ts, state.Lc, state.From,
	)
	if err != nil {
		return fmt.Errorf("upserting state: %w", err)
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanObject(row rowScanner) (*Object, error) {
	var (
		obj            Object
		objType        string
		common, native string
		updatedAt      string
	)
	if err := row.Scan(&obj.ID, &objType, &common, &native, &updatedAt); err != nil {
		return nil, err
	}
	obj.Type = Type(objType)

	if err := json.Unmarshal([]byte(common), &obj.Common); err != nil {
		return nil, fmt.Errorf("decoding common: %w", err)
	}
	if err := json.Unmarshal([]byte(native), &obj.Native); err != nil {
		return nil, fmt.Errorf("decoding native: %w", err)
	}
	if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		obj.Ts = t.UnixMilli()
	}
	return &obj, nil
}

func marshalSections(obj *Object) (common, native string, err error) {
	c, err := json.Marshal(obj.Common)
	if err != nil {
		return "", "", fmt.Errorf("encoding common: %w", err)
	}
	n, err := json.Marshal(obj.Native)
	if err != nil {
		return "", "", fmt.Errorf("encoding native: %w", err)
	}
	return string(c), string(n), nil
}
