package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/project-tktt/ms-job-crawler/internal/common/dedup"
	"github.com/project-tktt/ms-job-crawler/internal/common/fetcher"
	"github.com/project-tktt/ms-job-crawler/internal/domain"
	"github.com/project-tktt/ms-job-crawler/internal/metrics"
)

const (
	// MaxWorkers caps the derived pool size
	MaxWorkers      = 16
	fallbackWorkers = 6
)

// DetailFunc extracts one record from a session already showing url.
// A nil record with a nil error is a miss, not a failure.
type DetailFunc func(ctx context.Context, s fetcher.Session, url string) (*domain.JobRecord, error)

// Config holds worker pool configuration
type Config struct {
	Source domain.Source
	// Concurrency overrides the derived worker count when positive
	Concurrency   int
	PerURLTimeout time.Duration
	// Stop is polled between dispatches
	Stop func() bool
}

// Pool extracts detail pages concurrently. Each worker owns one session for
// its lifetime; sessions are never shared between workers.
type Pool struct {
	fetcher fetcher.Fetcher
	detail  DetailFunc
	cfg     Config
	log     zerolog.Logger

	progress atomic.Int64
}

// NewPool creates a new detail worker pool
func NewPool(f fetcher.Fetcher, detail DetailFunc, cfg Config, log zerolog.Logger) *Pool {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency()
	}
	if cfg.PerURLTimeout <= 0 {
		cfg.PerURLTimeout = 60 * time.Second
	}
	return &Pool{
		fetcher: f,
		detail:  detail,
		cfg:     cfg,
		log:     log.With().Str("source", string(cfg.Source)).Logger(),
	}
}

// DefaultConcurrency returns min(2 x cores, 2 x memory GB, MaxWorkers)
func DefaultConcurrency() int {
	byCPU := 2 * runtime.NumCPU()
	vm, err := mem.VirtualMemory()
	if err != nil {
		return min(fallbackWorkers, byCPU)
	}
	byMem := int(vm.Total>>30) * 2
	return max(1, min(byCPU, byMem, MaxWorkers))
}

// Progress returns the number of URLs processed so far
func (p *Pool) Progress() int64 {
	return p.progress.Load()
}

type workerStats struct {
	processed, success, failure, duplicate int
}

// Extract processes urls and returns the records found, in no particular
// order. Per-URL failures are logged and never abort the batch.
func (p *Pool) Extract(ctx context.Context, urls []string) []domain.JobRecord {
	if len(urls) == 0 {
		return nil
	}
	workers := min(p.cfg.Concurrency, len(urls))
	p.log.Info().Int("urls", len(urls)).Int("workers", workers).Msg("starting detail extraction")

	queue := make(chan string)
	seen := dedup.NewSet()
	results := make([][]domain.JobRecord, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			results[workerID] = p.runSingle(ctx, workerID, queue, seen, len(urls))
		}(i)
	}

	dispatched := 0
dispatch:
	for _, u := range urls {
		if ctx.Err() != nil || (p.cfg.Stop != nil && p.cfg.Stop()) {
			break
		}
		select {
		case <-ctx.Done():
			break dispatch
		case queue <- u:
			dispatched++
		}
	}
	close(queue)
	wg.Wait()

	var out []domain.JobRecord
	for _, r := range results {
		out = append(out, r...)
	}
	p.log.Info().
		Int("dispatched", dispatched).
		Int("records", len(out)).
		Msg("detail extraction finished")
	return out
}

func (p *Pool) runSingle(ctx context.Context, workerID int, queue <-chan string, seen *dedup.Set, total int) []domain.JobRecord {
	log := p.log.With().Int("worker", workerID).Logger()
	var (
		session fetcher.Session
		stats   workerStats
		out     []domain.JobRecord
	)
	defer func() {
		if session != nil {
			if err := session.Close(); err != nil {
				log.Debug().Err(err).Msg("close session")
			}
		}
		log.Info().
			Int("processed", stats.processed).
			Int("success", stats.success).
			Int("failure", stats.failure).
			Int("duplicate", stats.duplicate).
			Msg("worker finished")
	}()

	for u := range queue {
		rec, err := p.process(ctx, &session, u)
		stats.processed++
		done := p.progress.Add(1)

		outcome := "success"
		switch {
		case err != nil:
			outcome = "failure"
			stats.failure++
			log.Warn().Err(err).Str("url", u).Msg("detail extraction failed")
		case rec == nil:
			outcome = "empty"
			stats.failure++
		case !seen.Add(dedup.KeyTitleLocation(rec.Title, rec.FullLocationText)):
			outcome = "duplicate"
			stats.duplicate++
		default:
			stats.success++
			out = append(out, *rec)
		}
		metrics.URLsProcessed.WithLabelValues(string(p.cfg.Source), outcome).Inc()
		log.Debug().Int64("done", done).Int("total", total).Str("outcome", outcome).Msg("url processed")
	}
	return out
}

// process runs one URL under its own timeout. The timeout is detached from
// ctx so a stop request lets the in-flight URL finish.
func (p *Pool) process(ctx context.Context, session *fetcher.Session, u string) (rec *domain.JobRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			if *session != nil {
				_ = (*session).Close()
				*session = nil
			}
		}
	}()

	urlCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.PerURLTimeout)
	defer cancel()

	if err := p.open(urlCtx, session, u); err != nil {
		return nil, err
	}
	return p.detail(urlCtx, *session, u)
}

// open navigates the worker's session to u, opening one if needed. A session
// that cannot navigate in place is replaced.
func (p *Pool) open(ctx context.Context, session *fetcher.Session, u string) error {
	if *session != nil {
		err := (*session).Navigate(ctx, u)
		if err == nil {
			return nil
		}
		if !errors.Is(err, fetcher.ErrNotInteractive) {
			p.log.Debug().Err(err).Str("url", u).Msg("navigate failed, reopening session")
		}
		_ = (*session).Close()
		*session = nil
	}

	s, err := p.fetcher.Open(ctx, u)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	*session = s
	return nil
}
