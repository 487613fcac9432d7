package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/finance-dashboard/internal/domain"
)

const (
	exportsTable      = "exports"
	cashflowTable     = "cashflow_months"
	transactionsTable = "transactions"
)

// Repository writes profile exports into one BigQuery dataset.
type Repository struct {
	client    *bigquery.Client
	datasetID string
	now       func() time.Time
}

// NewRepository creates a client for projectID.
func NewRepository(ctx context.Context, projectID, datasetID string) (*Repository, error) {
	if projectID == "" {
		return nil, errors.New("NewRepository: BQ_PROJECT is not set")
	}
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewRepository: creating client: %w", err)
	}
	return NewRepositoryWithClient(client, datasetID), nil
}

// NewRepositoryWithClient wraps an existing client.
func NewRepositoryWithClient(client *bigquery.Client, datasetID string) *Repository {
	return &Repository{client: client, datasetID: datasetID, now: time.Now}
}

// Close closes the BigQuery client connection.
func (r *Repository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// EnsureTables creates the dataset and tables when missing.
func (r *Repository) EnsureTables(ctx context.Context) error {
	ds := r.client.Dataset(r.datasetID)
	if err := ds.Create(ctx, &bigquery.DatasetMetadata{Location: "US"}); err != nil && !isAlreadyExists(err) {
		return fmt.Errorf("EnsureTables: create dataset %s: %w", r.datasetID, err)
	}

	tables := []struct {
		name  string
		row   any
		field string
	}{
		{exportsTable, ExportRow{}, "as_of"},
		{cashflowTable, CashflowRow{}, "month_start"},
		{transactionsTable, TransactionRow{}, ""},
	}
	for _, t := range tables {
		schema, err := bigquery.InferSchema(t.row)
		if err != nil {
			return fmt.Errorf("EnsureTables: infer schema for %s: %w", t.name, err)
		}
		meta := &bigquery.TableMetadata{Schema: schema}
		if t.field != "" {
			meta.TimePartitioning = &bigquery.TimePartitioning{Type: bigquery.MonthPartitioningType, Field: t.field}
		}
		if err := ds.Table(t.name).Create(ctx, meta); err != nil && !isAlreadyExists(err) {
			return fmt.Errorf("EnsureTables: create table %s: %w", t.name, err)
		}
	}
	return nil
}

// Export writes a snapshot of the profile and returns the export ID.
func (r *Repository) Export(ctx context.Context, profile string, p *domain.ProfileData, today civil.Date) (string, error) {
	exportID := uuid.NewString()
	rows := BuildRows(exportID, profile, p, today, r.now())

	ds := r.client.Dataset(r.datasetID)
	if err := ds.Table(exportsTable).Inserter().Put(ctx, rows.Export); err != nil {
		return "", fmt.Errorf("Export: inserting export row: %w", err)
	}
	if len(rows.Cashflow) > 0 {
		if err := ds.Table(cashflowTable).Inserter().Put(ctx, rows.Cashflow); err != nil {
			return "", fmt.Errorf("Export: inserting cashflow rows: %w", err)
		}
	}
	if len(rows.Transactions) > 0 {
		if err := ds.Table(transactionsTable).Inserter().Put(ctx, rows.Transactions); err != nil {
			return "", fmt.Errorf("Export: inserting transaction rows: %w", err)
		}
	}
	return exportID, nil
}

// ListExports returns the most recent exports of a profile.
func (r *Repository) ListExports(ctx context.Context, profile string, limit int) ([]*ExportRow, error) {
	if limit <= 0 {
		limit = 20
	}
	q := r.client.Query(fmt.Sprintf(`
		SELECT export_id, profile, exported_at, as_of, current_balance, transaction_count, goal_count
		FROM `+"`%s.%s.%s`"+`
		WHERE profile = @profile
		ORDER BY exported_at DESC
		LIMIT @limit
	`, r.client.Project(), r.datasetID, exportsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "profile", Value: profile},
		{Name: "limit", Value: limit},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListExports: query read: %w", err)
	}

	var rows []*ExportRow
	for {
		var row ExportRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListExports: iter next: %w", err)
		}
		rows = append(rows, &row)
	}
	return rows, nil
}

func isAlreadyExists(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusConflict
}
