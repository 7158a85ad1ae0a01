package dreams

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"dream-backend/internal/shared/storage/object"
	"dream-backend/internal/shared/telemetry"
	"dream-backend/internal/shared/util"
)

// DefaultOwner is used when no owner is configured.
const DefaultOwner = "local"

// Service saves and reads dream journal entries.
type Service struct {
	Repo Repo
	// Archive, when set, receives a JSON copy of every saved dream. Archive
	// failures are logged and do not fail the save.
	Archive object.ObjectStore
	Owner   string
	Lexicon *Lexicon
	Now     func() time.Time
}

func (s *Service) owner() string {
	if o := strings.TrimSpace(s.Owner); o != "" {
		return o
	}
	return DefaultOwner
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) lexicon() (*Lexicon, error) {
	if s.Lexicon != nil {
		return s.Lexicon, nil
	}
	return DefaultLexicon()
}

// Save records a completed interpretation with a derived mood and tags.
func (s *Service) Save(ctx context.Context, originalText, formatted string) (SavedDream, error) {
	originalText = strings.TrimSpace(originalText)
	if originalText == "" {
		return SavedDream{}, ErrEmptyDream
	}
	lex, err := s.lexicon()
	if err != nil {
		return SavedDream{}, err
	}
	mood, tags := lex.Derive(originalText, formatted)

	d := SavedDream{
		ID:                      uuid.NewString(),
		OwnerID:                 s.owner(),
		OriginalText:            originalText,
		FormattedInterpretation: formatted,
		CreatedAt:               s.now(),
		Tags:                    tags,
		Mood:                    mood,
	}

	if s.Archive != nil {
		if key, err := s.archive(ctx, d); err != nil {
			telemetry.Warn("dream.archive_failed", map[string]any{
				"dream_id": d.ID,
				"err":      err.Error(),
			})
		} else {
			d.ArchiveKey = key
		}
	}

	if err := s.Repo.Create(ctx, d); err != nil {
		return SavedDream{}, fmt.Errorf("save dream: %w", err)
	}
	telemetry.Info("dream.saved", map[string]any{
		"dream_id": d.ID,
		"mood":     d.Mood,
		"tags":     len(d.Tags),
		"archived": d.ArchiveKey != "",
	})
	return d, nil
}

func (s *Service) archive(ctx context.Context, d SavedDream) (string, error) {
	name, err := util.ObjectName(d.ID, ".json")
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("encode archive: %w", err)
	}
	key := path.Join(util.OwnerPrefix(d.OwnerID), d.CreatedAt.Format("2006/01/02"), name)
	if _, err := s.Archive.Put(ctx, key, "application/json", bytes.NewReader(payload)); err != nil {
		return "", err
	}
	return key, nil
}

// Get returns one saved dream of the configured owner.
func (s *Service) Get(ctx context.Context, id string) (SavedDream, error) {
	if strings.TrimSpace(id) == "" {
		return SavedDream{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, s.owner(), id)
}

// List returns saved dreams newest first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]SavedDream, error) {
	return s.Repo.List(ctx, s.owner(), limit, offset)
}
