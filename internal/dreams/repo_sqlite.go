package dreams

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// sqliteTimeLayout is fixed width so that created_at sorts lexically.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteRepo implements Repo on a local SQLite journal.
type SQLiteRepo struct {
	DB *sql.DB
}

const sqliteSelectColumns = `id, owner_id, original_text, formatted_interpretation, mood, tags, archive_key, created_at`

func (r *SQLiteRepo) Create(ctx context.Context, d SavedDream) error {
	const query = `
INSERT INTO saved_dreams (id, owner_id, original_text, formatted_interpretation, mood, tags, archive_key, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	tags, err := encodeTags(d.Tags)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query,
		d.ID,
		d.OwnerID,
		d.OriginalText,
		d.FormattedInterpretation,
		d.Mood,
		tags,
		nullString(d.ArchiveKey),
		d.CreatedAt.UTC().Format(sqliteTimeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert saved dream: %w", err)
	}
	return nil
}

func (r *SQLiteRepo) GetByID(ctx context.Context, ownerID, id string) (SavedDream, error) {
	query := `SELECT ` + sqliteSelectColumns + ` FROM saved_dreams WHERE owner_id = ? AND id = ? LIMIT 1`
	d, err := scanSQLiteDream(r.DB.QueryRowContext(ctx, query, ownerID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SavedDream{}, ErrNotFound
		}
		return SavedDream{}, err
	}
	return d, nil
}

func (r *SQLiteRepo) List(ctx context.Context, ownerID string, limit, offset int) ([]SavedDream, error) {
	limit, offset = clampPage(limit, offset)
	query := `SELECT ` + sqliteSelectColumns + ` FROM saved_dreams WHERE owner_id = ? ORDER BY created_at DESC, id LIMIT ? OFFSET ?`

	rows, err := r.DB.QueryContext(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list saved dreams: %w", err)
	}
	defer rows.Close()

	out := []SavedDream{}
	for rows.Next() {
		d, err := scanSQLiteDream(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanSQLiteDream(row rowScanner) (SavedDream, error) {
	var d SavedDream
	var tags string
	var archiveKey sql.NullString
	var createdAt string
	if err := row.Scan(
		&d.ID,
		&d.OwnerID,
		&d.OriginalText,
		&d.FormattedInterpretation,
		&d.Mood,
		&tags,
		&archiveKey,
		&createdAt,
	); err != nil {
		return SavedDream{}, err
	}
	if err := decodeTags([]byte(tags), &d.Tags); err != nil {
		return SavedDream{}, err
	}
	if archiveKey.Valid {
		d.ArchiveKey = archiveKey.String
	}
	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return SavedDream{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	d.CreatedAt = ts.UTC()
	return d, nil
}

var _ Repo = (*SQLiteRepo)(nil)
