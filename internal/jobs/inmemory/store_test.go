package inmemory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dvloznov/finance-assistant/internal/jobs"
)

func TestSaveAndGetJob(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	job := &jobs.RegenerateJob{
		JobID:  "job-1",
		Year:   2026,
		Status: jobs.JobStatusPending,
	}

	if err := store.SaveJob(ctx, job); err != nil {
		t.Fatalf("SaveJob() error = %v", err)
	}

	got, err := store.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if got.Year != 2026 || got.Status != jobs.JobStatusPending {
		t.Errorf("GetJob() = %+v, want year 2026 pending", got)
	}

	// The stored job is a copy; mutating the original must not leak in.
	job.Status = jobs.JobStatusFailed
	got, _ = store.GetJob(ctx, "job-1")
	if got.Status != jobs.JobStatusPending {
		t.Errorf("stored job mutated externally, status = %s", got.Status)
	}
}

func TestSaveJob_RequiresID(t *testing.T) {
	store := NewStore()
	if err := store.SaveJob(context.Background(), &jobs.RegenerateJob{Year: 2026}); err == nil {
		t.Error("expected error for job without ID")
	}
}

func TestGetJob_NotFound(t *testing.T) {
	store := NewStore()
	if _, err := store.GetJob(context.Background(), "missing"); err == nil {
		t.Error("expected error for missing job")
	}
}

func TestListJobs_FilterAndOrder(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	seed := []*jobs.RegenerateJob{
		{JobID: "a", Year: 2025, Status: jobs.JobStatusCompleted, CreatedAt: base},
		{JobID: "b", Year: 2026, Status: jobs.JobStatusPending, CreatedAt: base.Add(time.Minute)},
		{JobID: "c", Year: 2026, Status: jobs.JobStatusCompleted, CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, j := range seed {
		if err := store.SaveJob(ctx, j); err != nil {
			t.Fatalf("SaveJob(%s) error = %v", j.JobID, err)
		}
	}

	got, err := store.ListJobs(ctx, jobs.JobFilter{Year: 2026})
	if err != nil {
		t.Fatalf("ListJobs() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListJobs(year=2026) returned %d jobs, want 2", len(got))
	}
	if got[0].JobID != "c" || got[1].JobID != "b" {
		t.Errorf("order = [%s %s], want newest first [c b]", got[0].JobID, got[1].JobID)
	}

	got, err = store.ListJobs(ctx, jobs.JobFilter{Status: jobs.JobStatusCompleted, Limit: 1})
	if err != nil {
		t.Fatalf("ListJobs() error = %v", err)
	}
	if len(got) != 1 || got[0].JobID != "c" {
		t.Errorf("ListJobs(completed, limit 1) = %v, want [c]", got)
	}
}

func TestQueueProcessesJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewStore()
	queue := NewQueue(1, store)
	defer queue.Close()

	done := make(chan string, 1)
	handler := func(ctx context.Context, job jobs.Job) error {
		done <- job.GetID()
		return nil
	}

	if err := queue.Start(ctx, handler); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	job := &jobs.RegenerateJob{Year: 2026}
	if err := queue.PublishRegenerate(ctx, job); err != nil {
		t.Fatalf("PublishRegenerate() error = %v", err)
	}
	if job.JobID == "" {
		t.Fatal("expected a job ID to be assigned")
	}

	select {
	case id := <-done:
		if id != job.JobID {
			t.Errorf("handled job %s, want %s", id, job.JobID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for job to be handled")
	}
}

func TestQueueRetriesFailedJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewStore()
	queue := NewQueue(1, store)
	defer queue.Close()

	attempts := make(chan int, 8)
	var calls int
	handler := func(ctx context.Context, job jobs.Job) error {
		calls++
		attempts <- calls
		if calls == 1 {
			return errors.New("embedding provider unavailable")
		}
		return nil
	}

	if err := queue.Start(ctx, handler); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	job := &jobs.RegenerateJob{Year: 2026}
	if err := queue.PublishRegenerate(ctx, job); err != nil {
		t.Fatalf("PublishRegenerate() error = %v", err)
	}
	if job.MaxRetries != jobs.DefaultMaxRetries {
		t.Fatalf("MaxRetries = %d, want default %d", job.MaxRetries, jobs.DefaultMaxRetries)
	}

	// First attempt fails, the backoff re-enqueue runs it again.
	for want := 1; want <= 2; want++ {
		select {
		case got := <-attempts:
			if got != want {
				t.Fatalf("attempt = %d, want %d", got, want)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for attempt %d", want)
		}
	}

	deadline := time.After(2 * time.Second)
	for {
		got, err := store.GetJob(ctx, job.JobID)
		if err != nil {
			t.Fatalf("GetJob() error = %v", err)
		}
		if got.Status == jobs.JobStatusCompleted {
			if got.RetryCount != 1 {
				t.Errorf("RetryCount = %d, want 1", got.RetryCount)
			}
			if got.Error != "" {
				t.Errorf("Error = %q, want cleared after success", got.Error)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatalf("job never completed, status = %s", got.Status)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestPublishAfterClose(t *testing.T) {
	store := NewStore()
	queue := NewQueue(1, store)

	if err := queue.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	err := queue.PublishRegenerate(context.Background(), &jobs.RegenerateJob{Year: 2026})
	if err == nil {
		t.Error("expected error publishing to closed queue")
	}
}
