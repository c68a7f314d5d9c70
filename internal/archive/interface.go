package archive

import (
	"context"
	"time"

	"codeberg.org/mutker/threadstone/internal/result"
	"codeberg.org/mutker/threadstone/internal/workload"
)

// Archive keeps finished result records on the local host.
type Archive interface {
	Store(ctx context.Context, rec result.Record) (Entry, error)
	Get(ctx context.Context, digest string) (Entry, error)
	List(ctx context.Context, opts ListOptions) ([]Entry, error)
	Close() error
	Enabled() bool
}

// Repository defines the interface for archive storage
type Repository interface {
	Store(ctx context.Context, rec result.Record) (Entry, error)
	Get(ctx context.Context, digest string) (Entry, error)
	List(ctx context.Context, opts ListOptions) ([]Entry, error)
	Close() error
}

// Entry is an archived record and its storage metadata.
type Entry struct {
	ID        int64
	Digest    string
	CreatedAt time.Time
	Record    result.Record
}

// ListOptions filters List. Zero values select everything.
type ListOptions struct {
	Workload workload.ID
	Limit    int
}
