package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"dream-backend/internal/dreams"
	"dream-backend/internal/shared/config"
	"dream-backend/internal/shared/storage/db"
	"dream-backend/internal/shared/storage/object"
	localstore "dream-backend/internal/shared/storage/object/local"
	s3store "dream-backend/internal/shared/storage/object/s3"
)

// Journal is the dream journal used by the client: the saved-dream service
// and the database behind it.
type Journal struct {
	Service *dreams.Service
	DB      *sql.DB
	Dialect string
}

// Close releases the journal database.
func (j *Journal) Close() error {
	if j == nil || j.DB == nil {
		return nil
	}
	return j.DB.Close()
}

// BuildJournal opens the journal store: Postgres when DATABASE_URL is set,
// otherwise the local SQLite file. Migrations are applied on open.
func BuildJournal(ctx context.Context, cfg config.Config) (*Journal, error) {
	sqlDB, dialect, err := openJournalDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(ctx, sqlDB, dialect); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	var repo dreams.Repo
	if dialect == db.DialectPostgres {
		repo = &dreams.PGRepo{DB: sqlDB}
	} else {
		repo = &dreams.SQLiteRepo{DB: sqlDB}
	}

	archive, err := buildArchive(ctx, cfg)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	lexicon, err := dreams.DefaultLexicon()
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	return &Journal{
		Service: &dreams.Service{
			Repo:    repo,
			Archive: archive,
			Owner:   cfg.DreamOwner,
			Lexicon: lexicon,
		},
		DB:      sqlDB,
		Dialect: dialect,
	}, nil
}

func openJournalDB(ctx context.Context, cfg config.Config) (*sql.DB, string, error) {
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultMigrateOptions()))
		if err == nil {
			return sqlDB, db.DialectPostgres, nil
		}
		if !isDevLike(cfg.Env) {
			return nil, "", err
		}
		log.Printf("bootstrap: database connect failed; using sqlite journal at %s: %v", cfg.SQLitePath, err)
	}
	sqlDB, err := db.OpenSQLite(ctx, cfg.SQLitePath)
	if err != nil {
		return nil, "", err
	}
	return sqlDB, db.DialectSQLite, nil
}

func buildArchive(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ArchiveStore {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("ARCHIVE_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	case "local":
		return localstore.New(cfg.LocalStoreDir), nil
	default:
		return nil, nil
	}
}
