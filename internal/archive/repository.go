package archive

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	"codeberg.org/mutker/threadstone/internal/errors"
	"codeberg.org/mutker/threadstone/internal/logger"
	"codeberg.org/mutker/threadstone/internal/result"
	_ "github.com/mattn/go-sqlite3"
)

type repository struct {
	db     *sql.DB
	logger logger.Logger
	cfg    Config
}

func NewRepository(cfg Config, log logger.Logger) (Repository, error) {
	errFactory := errors.New()

	if cfg.DBPath == "" {
		return nil, errFactory.New(ErrInvalidDBPath)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), defaultDirPerm); err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Path  string
			Error string
		}{
			Phase: "create_directory",
			Path:  cfg.DBPath,
			Error: err.Error(),
		})
	}

	dsn := cfg.DBPath + "?_journal=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "open_database",
			Error: err.Error(),
		})
	}

	backupDir := filepath.Join(filepath.Dir(cfg.DBPath), backupDirName)
	if err := ValidateAndUpdateSchema(db, backupDir, log); err != nil {
		db.Close()
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "schema_version",
			Error: err.Error(),
		})
	}

	log.Debug().
		Str("path", cfg.DBPath).
		Int("schema_version", SchemaVersion).
		Msg("Archive repository initialized")

	return &repository{
		db:     db,
		logger: log,
		cfg:    cfg,
	}, nil
}

func (r *repository) Store(ctx context.Context, rec result.Record) (Entry, error) {
	errFactory := errors.New()

	digest, err := Digest(rec)
	if err != nil {
		return Entry{}, errFactory.Wrap(ErrInvalidRecord, err)
	}

	document, err := result.Encode(rec, false)
	if err != nil {
		return Entry{}, errFactory.Wrap(ErrInvalidRecord, err)
	}

	values := []interface{}{
		digest,
		time.Now().UTC().Unix(),
		string(rec.Workload),
		int64(rec.Threads),
		int64(rec.Samples),
		int64(rec.IterationsPerSample),
		rec.Average,
		rec.Min,
		rec.Max,
		int64(boolToInt(rec.Signed())),
		string(document),
	}

	if _, err := r.db.ExecContext(ctx, upsertRunSQL, values...); err != nil {
		r.logger.Error().Err(err).Msg("Failed to store run")
		return Entry{}, errFactory.Wrap(ErrTransactionFailed, err)
	}

	r.logger.Debug().
		Str("digest", digest).
		Str("workload", string(rec.Workload)).
		Bool("signed", rec.Signed()).
		Msg("Stored run in archive")

	return r.Get(ctx, digest)
}

// Get returns the entry whose digest starts with digest. The history
// table shows shortened digests, so any unambiguous prefix is accepted.
func (r *repository) Get(ctx context.Context, digest string) (Entry, error) {
	errFactory := errors.New()

	prefix := strings.ToLower(digest)
	if prefix == "" || strings.Trim(prefix, "0123456789abcdef") != "" {
		return Entry{}, errFactory.WithData(ErrNotFound, digest)
	}

	rows, err := r.db.QueryContext(ctx, selectRunSQL+" WHERE digest LIKE ? ORDER BY id LIMIT 2", prefix+"%")
	if err != nil {
		return Entry{}, errFactory.Wrap(ErrStorageAccess, err)
	}
	defer rows.Close()

	var found []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return Entry{}, errFactory.Wrap(ErrStorageAccess, err)
		}
		found = append(found, entry)
	}
	if err := rows.Err(); err != nil {
		return Entry{}, errFactory.Wrap(ErrStorageAccess, err)
	}

	switch len(found) {
	case 0:
		return Entry{}, errFactory.WithData(ErrNotFound, digest)
	case 1:
		return found[0], nil
	default:
		return Entry{}, errFactory.WithData(ErrAmbiguousDigest, digest)
	}
}

func (r *repository) List(ctx context.Context, opts ListOptions) ([]Entry, error) {
	errFactory := errors.New()

	query := selectRunSQL
	var args []interface{}

	if opts.Workload != "" {
		query += " WHERE workload = ?"
		args = append(args, string(opts.Workload))
	}
	query += " ORDER BY id DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, errFactory.Wrap(ErrStorageAccess, err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}

	return entries, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		entry     Entry
		createdAt int64
		document  string
	)

	if err := row.Scan(&entry.ID, &entry.Digest, &createdAt, &document); err != nil {
		return Entry{}, err
	}

	rec, err := result.Decode([]byte(document))
	if err != nil {
		return Entry{}, err
	}

	entry.CreatedAt = time.Unix(createdAt, 0).UTC()
	entry.Record = rec

	return entry, nil
}

func (r *repository) Close() error {
	if _, err := r.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return errors.New().WithData(ErrStorageClose, struct {
			Phase string
			Error string
		}{
			Phase: "checkpoint_wal",
			Error: err.Error(),
		})
	}

	if err := r.db.Close(); err != nil {
		return errors.New().WithData(ErrStorageClose, struct {
			Phase string
			Error string
		}{
			Phase: "close_database",
			Error: err.Error(),
		})
	}

	r.logger.Debug().Msg("Archive repository closed")

	return nil
}
