package inmemory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dvloznov/finance-dashboard/internal/jobs"
)

// waitForStatus polls the store until the job reaches want or the deadline passes.
func waitForStatus(t *testing.T, store *Store, id string, want jobs.JobStatus) *jobs.Job {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.GetJob(context.Background(), id)
		if err == nil && job.Status == want {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	job, _ := store.GetJob(context.Background(), id)
	t.Fatalf("job %s never reached %s, last state %+v", id, want, job)
	return nil
}

func TestQueue_CompletesJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewStore()
	q := NewQueue(4, store, Options{Workers: 1})
	defer q.Close()

	err := q.Start(ctx, func(ctx context.Context, job *jobs.Job) (string, error) {
		return "summary for " + job.Profile + " in " + job.Param("language"), nil
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	job := &jobs.Job{Type: jobs.JobTypeGenerateInsight, Profile: "Personal", Params: map[string]string{"language": "de"}}
	if err := q.Publish(ctx, job); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if job.JobID == "" || job.Status != jobs.JobStatusPending {
		t.Fatalf("Publish did not fill defaults: %+v", job)
	}

	done := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	if done.Result != "summary for Personal in de" {
		t.Errorf("Result = %q", done.Result)
	}
	if done.StartedAt == nil || done.CompletedAt == nil {
		t.Error("timestamps not recorded")
	}
}

func TestQueue_RetriesThenFails(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewStore()
	q := NewQueue(4, store, Options{Workers: 2, MaxRetries: 2, Backoff: time.Millisecond})
	defer q.Close()

	var attempts int32
	err := q.Start(ctx, func(ctx context.Context, job *jobs.Job) (string, error) {
		atomic.AddInt32(&attempts, 1)
		return "", errors.New("model unavailable")
	})
	if err != nil {
		t.Fatal(err)
	}

	job := &jobs.Job{Type: jobs.JobTypeGenerateInsight, Profile: "Personal"}
	if err := q.Publish(ctx, job); err != nil {
		t.Fatal(err)
	}

	failed := waitForStatus(t, store, job.JobID, jobs.JobStatusFailed)
	if failed.Error != "model unavailable" {
		t.Errorf("Error = %q", failed.Error)
	}
	if failed.RetryCount != 2 {
		t.Errorf("RetryCount = %d, want 2", failed.RetryCount)
	}
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
}

func TestQueue_PublishAfterStop(t *testing.T) {
	q := NewQueue(1, NewStore(), Options{})
	if err := q.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := q.Publish(context.Background(), &jobs.Job{Type: jobs.JobTypeNotionSync}); err == nil {
		t.Error("expected error publishing to a stopped queue")
	}
	if err := q.Publish(context.Background(), &jobs.Job{}); err == nil {
		t.Error("expected error for job without type")
	}
}

func TestRouter_Dispatch(t *testing.T) {
	r := jobs.NewRouter()
	r.Handle(jobs.JobTypeNotionSync, func(ctx context.Context, job *jobs.Job) (string, error) {
		return "synced", nil
	})

	got, err := r.Dispatch(context.Background(), &jobs.Job{Type: jobs.JobTypeNotionSync})
	if err != nil || got != "synced" {
		t.Errorf("Dispatch = %q, %v", got, err)
	}
	if _, err := r.Dispatch(context.Background(), &jobs.Job{Type: jobs.JobTypeWarehouseExport}); err == nil {
		t.Error("expected error for unregistered type")
	}
	if r.Handles(jobs.JobTypeWarehouseExport) {
		t.Error("Handles reported an unregistered type")
	}
}
