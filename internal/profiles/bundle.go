package profiles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/finance-dashboard/internal/domain"
)

// BundleVersion is written into every export.
const BundleVersion = 1

// ErrInvalidBundle is returned when an import is structurally unusable.
var ErrInvalidBundle = errors.New("invalid bundle")

// Bundle is the export/import document holding every profile.
type Bundle struct {
	Version       int                            `json:"version"`
	ExportedAt    time.Time                      `json:"exportedAt"`
	Profiles      []string                       `json:"profiles"`
	ActiveProfile string                         `json:"activeProfile"`
	Data          map[string]*domain.ProfileData `json:"data"`
	Settings      *domain.Settings               `json:"settings,omitempty"`
}

// ParseBundle decodes and validates an export document. Profile data is
// normalized; a profile without data gets an empty one. Transactions that
// cannot be decoded are dropped and logged through the context logger.
func ParseBundle(ctx context.Context, raw []byte) (*Bundle, error) {
	var b Bundle
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBundle, err)
	}
	if err := b.validate(ctx); err != nil {
		return nil, err
	}
	return &b, nil
}

func (b *Bundle) validate(ctx context.Context) error {
	if b.Profiles == nil {
		return fmt.Errorf("%w: missing profiles list", ErrInvalidBundle)
	}
	if !contains(b.Profiles, b.ActiveProfile) {
		return fmt.Errorf("%w: active profile %q is not in the profiles list", ErrInvalidBundle, b.ActiveProfile)
	}
	seen := make(map[string]bool, len(b.Profiles))
	for _, name := range b.Profiles {
		if name == "" || seen[name] {
			return fmt.Errorf("%w: bad profile name %q", ErrInvalidBundle, name)
		}
		seen[name] = true
	}

	if b.Data == nil {
		b.Data = make(map[string]*domain.ProfileData)
	}
	for _, name := range b.Profiles {
		data := b.Data[name]
		if data == nil {
			data = domain.NewProfileData()
			b.Data[name] = data
		}
		normalize(ctx, name, data)
	}
	return nil
}

// Export snapshots every profile, the active profile and the settings.
func (r *Repository) Export(ctx context.Context) (*Bundle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	names, err := r.names(ctx)
	if err != nil {
		return nil, err
	}
	active, err := r.active(ctx)
	if err != nil {
		return nil, err
	}
	settings, err := r.settings(ctx)
	if err != nil {
		return nil, err
	}

	b := &Bundle{
		Version:       BundleVersion,
		ExportedAt:    r.now().UTC(),
		Profiles:      names,
		ActiveProfile: active,
		Data:          make(map[string]*domain.ProfileData, len(names)),
		Settings:      &settings,
	}
	for _, name := range names {
		data, err := r.load(ctx, name)
		if err != nil {
			return nil, err
		}
		b.Data[name] = data
	}
	return b, nil
}

// Import replaces all stored profiles with the bundle's. The bundle is
// validated before anything is written; profiles missing from the bundle
// are removed.
func (r *Repository) Import(ctx context.Context, b *Bundle) error {
	if b == nil {
		return fmt.Errorf("%w: empty bundle", ErrInvalidBundle)
	}
	if err := b.validate(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	old, err := r.names(ctx)
	if err != nil {
		return err
	}

	for _, name := range b.Profiles {
		if err := r.putJSON(ctx, profileKey(name), b.Data[name]); err != nil {
			return err
		}
	}
	if err := r.putJSON(ctx, keyProfiles, b.Profiles); err != nil {
		return err
	}
	if err := r.store.Set(ctx, keyActiveProfile, []byte(b.ActiveProfile)); err != nil {
		return fmt.Errorf("set active profile: %w", err)
	}
	if b.Settings != nil {
		if err := r.putJSON(ctx, keySettings, b.Settings.WithDefaults()); err != nil {
			return err
		}
	}

	for _, name := range old {
		if contains(b.Profiles, name) {
			continue
		}
		if err := r.store.Delete(ctx, profileKey(name)); err != nil {
			return fmt.Errorf("delete profile %q: %w", name, err)
		}
	}
	return nil
}
