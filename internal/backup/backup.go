// Package backup copies export bundles to and from object storage.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dvloznov/finance-dashboard/internal/profiles"
	"github.com/google/uuid"
)

// Prefix is the object name prefix of every backup.
const Prefix = "backups/"

// ErrNotFound is returned when a backup object does not exist.
var ErrNotFound = errors.New("backup not found")

// ObjectStore is the object storage a backup is written to.
type ObjectStore interface {
	Put(ctx context.Context, name string, data []byte) error
	Get(ctx context.Context, name string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
}

// BundleRepository exports and imports the full profile state.
type BundleRepository interface {
	Export(ctx context.Context) (*profiles.Bundle, error)
	Import(ctx context.Context, b *profiles.Bundle) error
}

type Service struct {
	repo  BundleRepository
	store ObjectStore
	now   func() time.Time
}

func NewService(repo BundleRepository, store ObjectStore) *Service {
	return &Service{repo: repo, store: store, now: time.Now}
}

// ObjectName names a backup taken at t. Names sort chronologically.
func ObjectName(t time.Time) string {
	return fmt.Sprintf("%s%s-%s.json", Prefix, t.UTC().Format("20060102T150405Z"), uuid.NewString()[:8])
}

// Backup exports every profile and uploads the bundle. It returns the
// object name.
func (s *Service) Backup(ctx context.Context) (string, error) {
	b, err := s.repo.Export(ctx)
	if err != nil {
		return "", fmt.Errorf("Backup: export: %w", err)
	}
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return "", fmt.Errorf("Backup: encode bundle: %w", err)
	}

	name := ObjectName(s.now())
	if err := s.store.Put(ctx, name, data); err != nil {
		return "", fmt.Errorf("Backup: %w", err)
	}
	return name, nil
}

// List returns backup names, newest first.
func (s *Service) List(ctx context.Context) ([]string, error) {
	names, err := s.store.List(ctx, Prefix)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		if strings.HasSuffix(n, ".json") {
			out = append(out, n)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out, nil
}

// Restore imports the named backup, or the newest one when name is empty.
// It returns the restored object name.
func (s *Service) Restore(ctx context.Context, name string) (string, error) {
	if name == "" {
		names, err := s.List(ctx)
		if err != nil {
			return "", fmt.Errorf("Restore: %w", err)
		}
		if len(names) == 0 {
			return "", fmt.Errorf("Restore: %w", ErrNotFound)
		}
		name = names[0]
	}

	data, err := s.store.Get(ctx, name)
	if err != nil {
		return "", fmt.Errorf("Restore: %w", err)
	}
	b, err := profiles.ParseBundle(ctx, data)
	if err != nil {
		return "", fmt.Errorf("Restore %s: %w", name, err)
	}
	if err := s.repo.Import(ctx, b); err != nil {
		return "", fmt.Errorf("Restore %s: %w", name, err)
	}
	return name, nil
}
