// Package export stores generated export files somewhere an operator can
// fetch them: the local filesystem or an S3-compatible bucket.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"retailsync/internal/platform/config"
)

// Sink persists one named file and returns where it ended up.
type Sink interface {
	Put(ctx context.Context, name string, data []byte, contentType string) (string, error)
}

// NewSink builds the sink selected by cfg.Destination.
func NewSink(ctx context.Context, cfg config.ExportConfig) (Sink, error) {
	switch cfg.Destination {
	case "", "local":
		return NewLocalSink(cfg.Dir), nil
	case "s3":
		return NewS3Sink(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown export destination %q", cfg.Destination)
	}
}

type LocalSink struct {
	dir string
}

func NewLocalSink(dir string) *LocalSink {
	if dir == "" {
		dir = "."
	}
	return &LocalSink{dir: dir}
}

// Put writes to a temp file and renames it so readers never see a partial export.
func (s *LocalSink) Put(ctx context.Context, name string, data []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if name == "" || filepath.Base(name) != name {
		return "", fmt.Errorf("invalid export name %q", name)
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+name+".*")
	if err != nil {
		return "", fmt.Errorf("create temp export: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close export: %w", err)
	}

	dest := filepath.Join(s.dir, name)
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", fmt.Errorf("move export into place: %w", err)
	}
	return dest, nil
}
