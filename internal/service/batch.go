package service

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/ladiaria/utopia-billing/internal/types"
)

// BatchResult aggregates the outcomes of one billing run
type BatchResult struct {
	BillingDate time.Time        `json:"billing_date"`
	Total       int              `json:"total"`
	Billed      int              `json:"billed"`
	Skipped     int              `json:"skipped"`
	Failed      int              `json:"failed"`
	Results     []*BillingResult `json:"results"`
}

// BatchService bills every due subscription for a given date. Subscriptions
// are independent of each other, so they are billed concurrently; a
// per-subscription lock guards against the same id appearing twice in one
// run.
type BatchService interface {
	RunBatch(ctx context.Context, billingDate time.Time) (*BatchResult, error)
}

// lockStripes bounds the lock table: ids hash onto a fixed set of
// mutexes instead of growing a map entry per subscription ever billed
const lockStripes = 256

type batchService struct {
	ServiceParams
	billing BillingService

	locks [lockStripes]sync.Mutex
}

func NewBatchService(params ServiceParams, billing BillingService) BatchService {
	return &batchService{
		ServiceParams: params,
		billing:       billing,
	}
}

func (s *batchService) RunBatch(ctx context.Context, billingDate time.Time) (*BatchResult, error) {
	billingDate = types.DateOnly(billingDate)

	ids, err := s.SubRepo.ListDueIDs(ctx, billingDate, s.Config.Billing.GraceDays)
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("starting billing run",
		"billing_date", billingDate,
		"due_subscriptions", len(ids),
		"workers", s.Config.Billing.BatchWorkers,
	)

	results := make([]*BillingResult, len(ids))
	p := pool.New().WithMaxGoroutines(s.Config.Billing.BatchWorkers)
	for i, id := range ids {
		p.Go(func() {
			if ctx.Err() != nil {
				results[i] = failed(id, types.FailReasonPersistenceError, ctx.Err().Error())
				return
			}
			lock := s.lockFor(id)
			lock.Lock()
			defer lock.Unlock()
			results[i] = s.billing.BillSubscription(ctx, id, billingDate)
		})
	}
	p.Wait()

	batch := &BatchResult{
		BillingDate: billingDate,
		Total:       len(ids),
		Results:     results,
	}
	for _, result := range results {
		switch result.Kind {
		case types.BillingOutcomeBilled:
			batch.Billed++
		case types.BillingOutcomeSkipped:
			batch.Skipped++
		case types.BillingOutcomeFailed:
			batch.Failed++
		}
	}

	s.Logger.Infow("billing run finished",
		"billing_date", billingDate,
		"total", batch.Total,
		"billed", batch.Billed,
		"skipped", batch.Skipped,
		"failed", batch.Failed,
	)
	return batch, nil
}

func (s *batchService) lockFor(id string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return &s.locks[h.Sum32()%lockStripes]
}
