// Package archive stores finished result records in a local SQLite
// database keyed by the digest of their canonical form. It is a record
// store for later comparison, not a time series.
package archive

import (
	"context"

	"codeberg.org/mutker/threadstone/internal/errors"
	"codeberg.org/mutker/threadstone/internal/logger"
	"codeberg.org/mutker/threadstone/internal/result"
)

type service struct {
	repo Repository
	cfg  Config
}

type noopArchive struct{}

// Open returns the archive described by cfg. A disabled archive accepts and
// discards records.
func Open(cfg Config, log logger.Logger) (Archive, error) {
	errFactory := errors.New()

	if log == nil {
		log = logger.Default()
	}

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	if !cfg.Enabled {
		log.Debug().Msg("Archive disabled, using no-op archive")
		return &noopArchive{}, nil
	}

	repo, err := NewRepository(cfg, log)
	if err != nil {
		return nil, err
	}

	return &service{
		repo: repo,
		cfg:  cfg,
	}, nil
}

func (s *service) Store(ctx context.Context, rec result.Record) (Entry, error) {
	errFactory := errors.New()

	if len(rec.Values) == 0 || int(rec.Samples) != len(rec.Values) {
		return Entry{}, errFactory.WithMessage(ErrInvalidRecord, "incomplete sample set")
	}

	if err := ctx.Err(); err != nil {
		return Entry{}, errFactory.Wrap(ErrOperationTimeout, err)
	}

	return s.repo.Store(ctx, rec)
}

func (s *service) Get(ctx context.Context, digest string) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, errors.New().Wrap(ErrOperationTimeout, err)
	}

	return s.repo.Get(ctx, digest)
}

func (s *service) List(ctx context.Context, opts ListOptions) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.New().Wrap(ErrOperationTimeout, err)
	}

	return s.repo.List(ctx, opts)
}

func (s *service) Close() error {
	if err := s.repo.Close(); err != nil {
		return errors.New().Wrap(ErrStorageClose, err)
	}
	return nil
}

func (*service) Enabled() bool { return true }

func (*noopArchive) Store(_ context.Context, _ result.Record) (Entry, error) {
	return Entry{}, nil
}

func (*noopArchive) Get(_ context.Context, digest string) (Entry, error) {
	return Entry{}, errors.New().WithData(ErrNotFound, digest)
}

func (*noopArchive) List(_ context.Context, _ ListOptions) ([]Entry, error) {
	return nil, nil
}

func (*noopArchive) Close() error { return nil }

func (*noopArchive) Enabled() bool { return false }
