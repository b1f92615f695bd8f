// Package records is a generic content-record store: typed records with a
// title and free-form key/value metadata, kept in Postgres.
package records

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("record not found")

const StatusPublish = "publish"

type Record struct {
	ID        int64
	Type      string
	Title     string
	Status    string
	CreatedAt time.Time
	Meta      map[string]string
}

// NewRecord describes an insert. UniqueKey is unique per Type; Meta is
// called with the id assigned by storage.
type NewRecord struct {
	Type      string
	Title     string
	UniqueKey string
	Meta      func(id int64, createdAt time.Time) map[string]string
}

type Store struct{ DB *pgxpool.Pool }

// Insert creates the record and its metadata in one transaction. When a
// record with the same (Type, UniqueKey) exists nothing is written and
// created is false.
func (s *Store) Insert(ctx context.Context, nr NewRecord) (id int64, created bool, err error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var createdAt time.Time
	err = tx.QueryRow(ctx, `
		INSERT INTO records(record_type, title, status, unique_key)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (record_type, unique_key) DO NOTHING
		RETURNING id, created_at`,
		nr.Type, nr.Title, StatusPublish, nr.UniqueKey,
	).Scan(&id, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		err = tx.QueryRow(ctx, `SELECT id FROM records WHERE record_type=$1 AND unique_key=$2`,
			nr.Type, nr.UniqueKey).Scan(&id)
		if err != nil {
			return 0, false, fmt.Errorf("lookup existing %s/%s: %w", nr.Type, nr.UniqueKey, err)
		}
		return id, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("insert %s: %w", nr.Type, err)
	}

	if nr.Meta != nil {
		for k, v := range nr.Meta(id, createdAt) {
			if _, err := tx.Exec(ctx, `
				INSERT INTO record_meta(record_id, meta_key, meta_value)
				VALUES ($1, $2, $3)
				ON CONFLICT (record_id, meta_key) DO UPDATE SET meta_value = EXCLUDED.meta_value`,
				id, k, v); err != nil {
				return 0, false, fmt.Errorf("insert meta %s: %w", k, err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (s *Store) Get(ctx context.Context, id int64) (*Record, error) {
	rec := Record{Meta: map[string]string{}}
	err := s.DB.QueryRow(ctx, `
		SELECT id, record_type, title, status, created_at
		FROM records WHERE id=$1`, id).Scan(&rec.ID, &rec.Type, &rec.Title, &rec.Status, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get record %d: %w", id, err)
	}

	rows, err := s.DB.Query(ctx, `SELECT meta_key, meta_value FROM record_meta WHERE record_id=$1`, id)
	if err != nil {
		return nil, fmt.Errorf("get record meta %d: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		rec.Meta[k] = v
	}
	return &rec, rows.Err()
}

// FindByMeta returns ids of records of type typ whose metadata key equals
// value, oldest first. limit <= 0 means no limit.
func (s *Store) FindByMeta(ctx context.Context, typ, key, value string, limit int) ([]int64, error) {
	q := `
		SELECT r.id FROM records r
		JOIN record_meta m ON m.record_id = r.id
		WHERE r.record_type=$1 AND m.meta_key=$2 AND m.meta_value=$3
		ORDER BY r.id`
	args := []any{typ, key, value}
	if limit > 0 {
		q += ` LIMIT $4`
		args = append(args, limit)
	}

	rows, err := s.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("find %s by %s: %w", typ, key, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
