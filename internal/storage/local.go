package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const localURLPrefix = "/uploads/"

// Local writes invoices under baseDir, served by the HTTP layer at /uploads.
type Local struct {
	baseDir string
}

func NewLocal(baseDir string) (*Local, error) {
	if err := os.MkdirAll(filepath.Join(baseDir, "invoices"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", baseDir, err)
	}
	return &Local{baseDir: baseDir}, nil
}

func (l *Local) Mode() string { return "local" }

func (l *Local) BaseDir() string { return l.baseDir }

func (l *Local) Save(_ context.Context, originalName, _ string, data []byte) (string, error) {
	rel := filepath.ToSlash(filepath.Join("invoices", objectName(originalName, time.Now())))
	fullPath := filepath.Join(l.baseDir, filepath.FromSlash(rel))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	return localURLPrefix + rel, nil
}

func (l *Local) Delete(_ context.Context, url string) error {
	if !strings.HasPrefix(url, localURLPrefix) {
		return fmt.Errorf("not a local upload: %s", url)
	}
	rel := filepath.FromSlash(strings.TrimPrefix(url, localURLPrefix))

	baseAbs, err := filepath.Abs(l.baseDir)
	if err != nil {
		return fmt.Errorf("invalid base path: %w", err)
	}
	absPath, err := filepath.Abs(filepath.Join(l.baseDir, rel))
	if err != nil {
		return fmt.Errorf("invalid file path: %w", err)
	}
	if realPath, err := filepath.EvalSymlinks(absPath); err == nil {
		absPath = realPath
	}
	if realBase, err := filepath.EvalSymlinks(baseAbs); err == nil {
		baseAbs = realBase
	}
	if !strings.HasPrefix(absPath, baseAbs+string(filepath.Separator)) {
		return fmt.Errorf("file path outside uploads directory")
	}

	if err := os.Remove(absPath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file not found: %s", url)
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
