// Package storage keeps uploaded invoice files either on local disk or in S3.
package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Storage persists invoice files and returns the URL they are reachable at.
type Storage interface {
	Save(ctx context.Context, originalName, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, url string) error
	Mode() string
}

// objectName builds a collision-free name that keeps the original extension.
func objectName(originalName string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	return fmt.Sprintf("%s/%s%s", now.Format("2006/01"), uuid.New().String(), ext)
}
