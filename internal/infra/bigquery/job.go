package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/dvloznov/finance-dashboard/internal/jobs"
)

// Exporter is the warehouse write path used by the job handler.
type Exporter interface {
	Export(ctx context.Context, profile string, p *domain.ProfileData, today civil.Date) (string, error)
}

// ProfileLoader reads a stored profile.
type ProfileLoader interface {
	Load(ctx context.Context, name string) (*domain.ProfileData, error)
}

// NewJobHandler returns the jobs.JobHandler for JobTypeWarehouseExport.
// The result is the export ID.
func NewJobHandler(profiles ProfileLoader, exporter Exporter, today func() civil.Date) jobs.JobHandler {
	return func(ctx context.Context, job *jobs.Job) (string, error) {
		asOf := today()
		if v := job.Param("as_of"); v != "" {
			d, err := civil.ParseDate(v)
			if err != nil {
				return "", fmt.Errorf("warehouse export: as_of: %w", err)
			}
			asOf = d
		}

		data, err := profiles.Load(ctx, job.Profile)
		if err != nil {
			return "", fmt.Errorf("warehouse export: %w", err)
		}
		return exporter.Export(ctx, job.Profile, data, asOf)
	}
}
