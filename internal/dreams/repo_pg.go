package dreams

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const pgSelectColumns = `id, owner_id, original_text, formatted_interpretation, mood, tags, archive_key, created_at`

// Create inserts a saved dream.
func (r *PGRepo) Create(ctx context.Context, d SavedDream) error {
	const query = `
INSERT INTO saved_dreams (
    id,
    owner_id,
    original_text,
    formatted_interpretation,
    mood,
    tags,
    archive_key,
    created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	tags, err := encodeTags(d.Tags)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(
		ctx,
		query,
		d.ID,
		d.OwnerID,
		d.OriginalText,
		d.FormattedInterpretation,
		d.Mood,
		tags,
		nullString(d.ArchiveKey),
		d.CreatedAt,
	)
	return err
}

// GetByID fetches a saved dream by ID for an owner.
func (r *PGRepo) GetByID(ctx context.Context, ownerID, id string) (SavedDream, error) {
	query := `
SELECT ` + pgSelectColumns + `
FROM saved_dreams
WHERE owner_id = $1 AND id = $2
LIMIT 1`
	d, err := scanPGDream(r.DB.QueryRowContext(ctx, query, ownerID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SavedDream{}, ErrNotFound
		}
		return SavedDream{}, err
	}
	return d, nil
}

// List lists saved dreams newest-first.
func (r *PGRepo) List(ctx context.Context, ownerID string, limit, offset int) ([]SavedDream, error) {
	limit, offset = clampPage(limit, offset)
	query := `
SELECT ` + pgSelectColumns + `
FROM saved_dreams
WHERE owner_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []SavedDream{}
	for rows.Next() {
		d, err := scanPGDream(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPGDream(row rowScanner) (SavedDream, error) {
	var d SavedDream
	var tags []byte
	var archiveKey sql.NullString
	if err := row.Scan(
		&d.ID,
		&d.OwnerID,
		&d.OriginalText,
		&d.FormattedInterpretation,
		&d.Mood,
		&tags,
		&archiveKey,
		&d.CreatedAt,
	); err != nil {
		return SavedDream{}, err
	}
	if err := decodeTags(tags, &d.Tags); err != nil {
		return SavedDream{}, err
	}
	if archiveKey.Valid {
		d.ArchiveKey = archiveKey.String
	}
	d.CreatedAt = d.CreatedAt.UTC()
	return d, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	return string(b), nil
}

func decodeTags(raw []byte, dst *[]string) error {
	if len(raw) == 0 {
		*dst = []string{}
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode tags: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

var _ Repo = (*PGRepo)(nil)
