package insights

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/dvloznov/finance-dashboard/internal/jobs"
)

// ErrNoAPIKey is returned when neither settings nor configuration hold a key.
var ErrNoAPIKey = errors.New("no AI API key configured")

// ProfileSource is the part of the profile repository summaries need.
type ProfileSource interface {
	Load(ctx context.Context, name string) (*domain.ProfileData, error)
	Settings(ctx context.Context) (domain.Settings, error)
}

// SummarizerFactory builds a Summarizer for an API key.
type SummarizerFactory func(ctx context.Context, apiKey string) (Summarizer, error)

// Service generates summaries for stored profiles.
type Service struct {
	profiles   ProfileSource
	newSummary SummarizerFactory
	defaultKey string
	today      func() civil.Date
}

// NewService creates a Service. defaultKey is used when the settings carry
// no API key of their own.
func NewService(profiles ProfileSource, factory SummarizerFactory, defaultKey string, today func() civil.Date) *Service {
	return &Service{profiles: profiles, newSummary: factory, defaultKey: defaultKey, today: today}
}

// Summarize builds the snapshot for profile and asks the AI service for a
// summary. asOf overrides today when non-zero; language overrides settings
// when non-empty.
func (s *Service) Summarize(ctx context.Context, profile string, asOf civil.Date, language string) (string, error) {
	settings, err := s.profiles.Settings(ctx)
	if err != nil {
		return "", fmt.Errorf("Summarize: load settings: %w", err)
	}
	data, err := s.profiles.Load(ctx, profile)
	if err != nil {
		return "", fmt.Errorf("Summarize: %w", err)
	}

	key := settings.APIKey
	if key == "" {
		key = s.defaultKey
	}
	if key == "" {
		return "", ErrNoAPIKey
	}
	if language == "" {
		language = settings.Language
	}
	if !asOf.IsValid() {
		asOf = s.today()
	}

	summarizer, err := s.newSummary(ctx, key)
	if err != nil {
		return "", fmt.Errorf("Summarize: %w", err)
	}
	return summarizer.GenerateSummary(ctx, BuildSnapshot(profile, data, settings, asOf), language)
}

// HandleJob is the jobs.JobHandler for JobTypeGenerateInsight.
func (s *Service) HandleJob(ctx context.Context, job *jobs.Job) (string, error) {
	var asOf civil.Date
	if v := job.Param("as_of"); v != "" {
		d, err := civil.ParseDate(v)
		if err != nil {
			return "", fmt.Errorf("HandleJob: as_of: %w", err)
		}
		asOf = d
	}
	return s.Summarize(ctx, job.Profile, asOf, job.Param("language"))
}
