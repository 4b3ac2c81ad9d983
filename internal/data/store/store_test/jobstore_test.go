package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/akolanti/PortfolioRAG/internal/config"
	"github.com/akolanti/PortfolioRAG/internal/data/redisStore"
	"github.com/akolanti/PortfolioRAG/internal/data/store"
	"github.com/akolanti/PortfolioRAG/internal/domain/jobModel"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newMiniredisStore(t *testing.T) (*miniredis.Miniredis, *redisStore.Store) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, redisStore.NewTestStore(client)
}

func traceCtx() context.Context {
	return context.WithValue(context.Background(), config.TRACE_ID_KEY, "test-trace")
}

func TestJobStores_Lifecycle(t *testing.T) {
	_, rs := newMiniredisStore(t)
	stores := map[string]jobModel.JobStore{
		"redis":    store.NewRedisJobStore(rs),
		"inMemory": store.InitInMemoryJobStore(),
	}

	for name, jobStore := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := traceCtx()
			testJob := jobModel.Job{
				Id:     "job_abc_123",
				Topic:  "career",
				Status: jobModel.JobStatusRunning,
				JobPayload: jobModel.JobPayload{
					IngestFileName: "career.md",
				},
			}

			if err := jobStore.SaveJob(ctx, testJob); err != nil {
				t.Fatalf("SaveJob failed: %v", err)
			}
			got, found := jobStore.GetJob(ctx, testJob.Id)
			if !found {
				t.Fatal("Job was saved but not found")
			}
			if got.Topic != "career" || got.JobPayload.IngestFileName != "career.md" || got.Status != jobModel.JobStatusRunning {
				t.Errorf("Data mismatch: %+v", got)
			}

			if _, found := jobStore.GetJob(ctx, "ghost-id"); found {
				t.Error("Expected found=false for non-existent job")
			}

			jobStore.DeleteJob(ctx, testJob.Id)
			if _, found := jobStore.GetJob(ctx, testJob.Id); found {
				t.Error("Job still present after DeleteJob")
			}
		})
	}
}

func TestRedisJobStore_ExpiresJobs(t *testing.T) {
	mr, rs := newMiniredisStore(t)
	jobStore := store.NewRedisJobStore(rs)
	ctx := traceCtx()

	if err := jobStore.SaveJob(ctx, jobModel.Job{Id: "old"}); err != nil {
		t.Fatal(err)
	}
	mr.FastForward(config.RedisJobStoreTTL + time.Second)
	if _, found := jobStore.GetJob(ctx, "old"); found {
		t.Error("job outlived its TTL")
	}
}

func TestRedisJobStore_CorruptValue(t *testing.T) {
	mr, rs := newMiniredisStore(t)
	jobStore := store.NewRedisJobStore(rs)
	if err := mr.Set("job:broken", "{not json"); err != nil {
		t.Fatal(err)
	}
	if _, found := jobStore.GetJob(traceCtx(), "broken"); found {
		t.Error("corrupt job reported as found")
	}
}

func TestRedisJobStore_Race(t *testing.T) {
	_, rs := newMiniredisStore(t)
	jobStore := store.NewRedisJobStore(rs)
	ctx := traceCtx()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = jobStore.SaveJob(ctx, jobModel.Job{Id: "race-job"})
			_, _ = jobStore.GetJob(ctx, "race-job")
		}()
	}
	wg.Wait()
	if _, found := jobStore.GetJob(ctx, "race-job"); !found {
		t.Error("race-job missing")
	}
}
