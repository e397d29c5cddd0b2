package storage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Local stores buckets as subdirectories of a base directory.
type Local struct {
	baseDir string
}

func NewLocal(baseDir string) *Local {
	return &Local{baseDir: baseDir}
}

func (l *Local) bucketPath(bucket string) string {
	return filepath.Join(l.baseDir, bucket)
}

func (l *Local) List(_ context.Context, bucket string) ([]string, error) {
	root := l.bucketPath(bucket)
	var names []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list bucket %s: %w", bucket, err)
	}
	return names, nil
}

func (l *Local) Get(_ context.Context, bucket, name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(l.bucketPath(bucket), filepath.FromSlash(name)))
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", bucket, name, err)
	}
	return data, nil
}

func (l *Local) Upload(_ context.Context, bucket, name string, data []byte) error {
	dest := filepath.Join(l.bucketPath(bucket), filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create bucket dir: %w", err)
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return fmt.Errorf("upload %s/%s: %w", bucket, name, err)
	}
	return nil
}

func (l *Local) UploadDir(ctx context.Context, bucket, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return l.Upload(ctx, bucket, filepath.ToSlash(rel), data)
	})
}

func (l *Local) Download(ctx context.Context, bucket, prefix, dir string) error {
	names, err := l.List(ctx, bucket)
	if err != nil {
		return err
	}
	for _, name := range names {
		rel, ok := underPrefix(name, prefix)
		if !ok {
			continue
		}
		data, err := l.Get(ctx, bucket, name)
		if err != nil {
			return err
		}
		dest := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			return fmt.Errorf("download %s/%s: %w", bucket, name, err)
		}
	}
	return nil
}
