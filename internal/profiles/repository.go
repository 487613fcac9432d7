// Package profiles persists named profiles, the active profile and the
// application settings in a kv.Store.
package profiles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/dvloznov/finance-dashboard/internal/kv"
	"github.com/dvloznov/finance-dashboard/internal/logger"
)

const (
	keyProfiles      = "profiles"
	keyActiveProfile = "activeProfile"
	keySettings      = "settings"
	profileKeyPrefix = "profile:"
)

// ErrProfileExists is returned when creating a profile whose name is taken.
var ErrProfileExists = errors.New("profile already exists")

// Repository is the only writer of profile state in a process. Every
// load-mutate-save cycle runs under one mutex.
type Repository struct {
	store kv.Store
	mu    sync.Mutex
	now   func() time.Time
}

// NewRepository wraps store.
func NewRepository(store kv.Store) *Repository {
	return &Repository{store: store, now: time.Now}
}

func profileKey(name string) string {
	return profileKeyPrefix + name
}

// List returns the profile names in creation order.
func (r *Repository) List(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.names(ctx)
}

// Create adds an empty profile. The first profile becomes active.
func (r *Repository) Create(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: profile name is empty", domain.ErrInvalid)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	names, err := r.names(ctx)
	if err != nil {
		return err
	}
	if contains(names, name) {
		return fmt.Errorf("profile %q: %w", name, ErrProfileExists)
	}

	if err := r.putJSON(ctx, profileKey(name), domain.NewProfileData()); err != nil {
		return err
	}
	if err := r.putJSON(ctx, keyProfiles, append(names, name)); err != nil {
		return err
	}

	active, err := r.active(ctx)
	if err != nil {
		return err
	}
	if active == "" {
		return r.store.Set(ctx, keyActiveProfile, []byte(name))
	}
	return nil
}

// Delete removes a profile and its data. When it was active, the first
// remaining profile takes over.
func (r *Repository) Delete(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	names, err := r.names(ctx)
	if err != nil {
		return err
	}
	if !contains(names, name) {
		return fmt.Errorf("profile %q: %w", name, domain.ErrNotFound)
	}

	remaining := make([]string, 0, len(names)-1)
	for _, n := range names {
		if n != name {
			remaining = append(remaining, n)
		}
	}

	if err := r.store.Delete(ctx, profileKey(name)); err != nil {
		return fmt.Errorf("delete profile %q: %w", name, err)
	}
	if err := r.putJSON(ctx, keyProfiles, remaining); err != nil {
		return err
	}

	active, err := r.active(ctx)
	if err != nil {
		return err
	}
	if active != name {
		return nil
	}
	if len(remaining) == 0 {
		return r.store.Delete(ctx, keyActiveProfile)
	}
	return r.store.Set(ctx, keyActiveProfile, []byte(remaining[0]))
}

// Active returns the active profile name, or "" when none is set.
func (r *Repository) Active(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active(ctx)
}

// SetActive switches the active profile.
func (r *Repository) SetActive(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	names, err := r.names(ctx)
	if err != nil {
		return err
	}
	if !contains(names, name) {
		return fmt.Errorf("profile %q: %w", name, domain.ErrNotFound)
	}
	if err := r.store.Set(ctx, keyActiveProfile, []byte(name)); err != nil {
		return fmt.Errorf("set active profile: %w", err)
	}
	return nil
}

// Resolve maps an empty name to the active profile.
func (r *Repository) Resolve(ctx context.Context, name string) (string, error) {
	if name != "" {
		return name, nil
	}
	active, err := r.Active(ctx)
	if err != nil {
		return "", err
	}
	if active == "" {
		return "", fmt.Errorf("no active profile: %w", domain.ErrNotFound)
	}
	return active, nil
}

// Load reads and normalizes a profile.
func (r *Repository) Load(ctx context.Context, name string) (*domain.ProfileData, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(ctx, name)
}

// Save replaces the stored profile.
func (r *Repository) Save(ctx context.Context, name string, data *domain.ProfileData) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	names, err := r.names(ctx)
	if err != nil {
		return err
	}
	if !contains(names, name) {
		return fmt.Errorf("profile %q: %w", name, domain.ErrNotFound)
	}
	return r.putJSON(ctx, profileKey(name), data)
}

// Update loads a profile, applies fn and saves the result. Nothing is
// written when fn fails.
func (r *Repository) Update(ctx context.Context, name string, fn func(*domain.ProfileData) error) (*domain.ProfileData, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := r.load(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := fn(data); err != nil {
		return nil, err
	}
	if err := r.putJSON(ctx, profileKey(name), data); err != nil {
		return nil, err
	}
	return data, nil
}

// Settings returns the stored settings with defaults applied.
func (r *Repository) Settings(ctx context.Context) (domain.Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.settings(ctx)
}

// SaveSettings stores s.
func (r *Repository) SaveSettings(ctx context.Context, s domain.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.putJSON(ctx, keySettings, s.WithDefaults())
}

func (r *Repository) names(ctx context.Context) ([]string, error) {
	var names []string
	found, err := r.getJSON(ctx, keyProfiles, &names)
	if err != nil {
		return nil, err
	}
	if !found || names == nil {
		return []string{}, nil
	}
	return names, nil
}

func (r *Repository) active(ctx context.Context) (string, error) {
	v, err := r.store.Get(ctx, keyActiveProfile)
	if errors.Is(err, kv.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get active profile: %w", err)
	}
	return string(v), nil
}

func (r *Repository) load(ctx context.Context, name string) (*domain.ProfileData, error) {
	names, err := r.names(ctx)
	if err != nil {
		return nil, err
	}
	if !contains(names, name) {
		return nil, fmt.Errorf("profile %q: %w", name, domain.ErrNotFound)
	}

	data := domain.NewProfileData()
	if _, err := r.getJSON(ctx, profileKey(name), data); err != nil {
		return nil, err
	}
	normalize(ctx, name, data)
	return data, nil
}

// normalize repairs data and logs every transaction dropped while decoding it.
func normalize(ctx context.Context, name string, data *domain.ProfileData) {
	skipped := data.Skipped()
	if len(skipped) > 0 {
		log := logger.ForProfile(logger.FromContext(ctx), name)
		for _, err := range skipped {
			log.Warn().Err(err).Msg("Dropped unreadable transaction")
		}
	}
	data.Normalize()
}

func (r *Repository) settings(ctx context.Context) (domain.Settings, error) {
	var s domain.Settings
	if _, err := r.getJSON(ctx, keySettings, &s); err != nil {
		return domain.Settings{}, err
	}
	return s.WithDefaults(), nil
}

// getJSON decodes key into v and reports whether the key existed.
func (r *Repository) getJSON(ctx context.Context, key string, v any) (bool, error) {
	raw, err := r.store.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (r *Repository) putJSON(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := r.store.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
