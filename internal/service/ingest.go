package service

import (
	"context"
	"errors"
	"sync"

	"github.com/kshitij/safepay/backend/internal/domain"
	"github.com/kshitij/safepay/backend/internal/store"
)

// TaskError accumulates multiple errors produced during bulk ingestion.
type TaskError struct {
	Errors []error
}

func (e *TaskError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := "multiple errors:"
	for _, err := range e.Errors {
		msg += " " + err.Error() + ";"
	}
	return msg
}

func (e *TaskError) append(err error) {
	if err == nil {
		return
	}
	e.Errors = append(e.Errors, err)
}

func (e *TaskError) asError() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

// SeedIngestor loads large batches of scan outcomes and labelled feedback
// using worker pools. It backs the seed command.
type SeedIngestor struct {
	intel   IntelRepository
	store   *store.Store
	workers int
}

// NewSeedIngestor creates a SeedIngestor with the provided concurrency. Either
// destination may be nil; the corresponding ingest methods become no-ops.
func NewSeedIngestor(intel IntelRepository, st *store.Store, workers int) *SeedIngestor {
	if workers <= 0 {
		workers = 4
	}
	return &SeedIngestor{
		intel:   intel,
		store:   st,
		workers: workers,
	}
}

// IngestOutcomes records scan outcomes into the intel graph concurrently.
func (si *SeedIngestor) IngestOutcomes(ctx context.Context, outcomes []domain.ScanOutcome) error {
	if si.intel == nil {
		return nil
	}
	return si.run(ctx, len(outcomes), func(idx int) error {
		return si.intel.RecordScan(ctx, outcomes[idx])
	})
}

// IngestFeedback persists labelled scan payloads concurrently.
func (si *SeedIngestor) IngestFeedback(ctx context.Context, samples []domain.FeedbackSample) error {
	if si.store == nil {
		return nil
	}
	return si.run(ctx, len(samples), func(idx int) error {
		_, err := si.store.SaveFeedback(ctx, samples[idx])
		return err
	})
}

func (si *SeedIngestor) run(ctx context.Context, total int, workerFn func(idx int) error) error {
	if total == 0 {
		return nil
	}
	indexCh := make(chan int)
	errCh := make(chan error, total)
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for idx := range indexCh {
			if err := workerFn(idx); err != nil {
				select {
				case errCh <- err:
				case <-ctx.Done():
					return
				}
			}
		}
	}

	for i := 0; i < si.workers; i++ {
		wg.Add(1)
		go worker()
	}

Loop:
	for i := 0; i < total; i++ {
		select {
		case indexCh <- i:
		case <-ctx.Done():
			break Loop
		}
	}
	close(indexCh)
	wg.Wait()
	close(errCh)

	var taskErr TaskError
	for err := range errCh {
		if err == nil {
			continue
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		taskErr.append(err)
	}
	return taskErr.asError()
}
