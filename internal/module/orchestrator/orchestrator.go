// Package orchestrator runs the enabled sources in parallel and merges
// their records into one deduplicated set.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/project-tktt/ms-job-crawler/internal/common/dedup"
	"github.com/project-tktt/ms-job-crawler/internal/domain"
	"github.com/project-tktt/ms-job-crawler/internal/metrics"
	"github.com/project-tktt/ms-job-crawler/internal/module"
)

// ErrAlreadyRunning is returned when Run is called during another run
var ErrAlreadyRunning = errors.New("run already in progress")

// SourceResult reports what one source contributed
type SourceResult struct {
	Source  domain.Source `json:"source"`
	Records int           `json:"records"`
	Error   string        `json:"error,omitempty"`
	Err     error         `json:"-"`
}

// Result is the outcome of one run
type Result struct {
	RunID       string             `json:"run_id"`
	GeneratedAt time.Time          `json:"generated_at"`
	Jobs        []domain.JobRecord `json:"jobs"`
	Summary     domain.Summary     `json:"summary"`
	Sources     []SourceResult     `json:"sources"`
}

// Orchestrator runs sources and owns the run status
type Orchestrator struct {
	sources []module.Source
	log     zerolog.Logger
	now     func() time.Time
	status  statusBox
}

// New creates an orchestrator over sources
func New(sources []module.Source, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		sources: sources,
		log:     log,
		now:     time.Now,
	}
}

// Snapshot returns a copy of the run status
func (o *Orchestrator) Snapshot() Status {
	return o.status.snapshot()
}

// Run executes every source in parallel. A failing source is logged and
// keeps whatever records it returned; the run itself only fails when
// another run is active.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	runID := uuid.NewString()
	started := false
	o.status.update(func(s *Status) {
		if s.Running {
			return
		}
		started = true
		*s = Status{
			RunID:        runID,
			Running:      true,
			SourcesTotal: len(o.sources),
			StartedAt:    o.now(),
		}
	})
	if !started {
		return nil, ErrAlreadyRunning
	}
	log := o.log.With().Str("run_id", runID).Logger()
	log.Info().Int("sources", len(o.sources)).Msg("run started")

	perSource := make([][]domain.JobRecord, len(o.sources))
	results := make([]SourceResult, len(o.sources))

	var g errgroup.Group
	for i, src := range o.sources {
		i, src := i, src
		g.Go(func() error {
			perSource[i], results[i] = o.runSource(ctx, src, log)
			return nil
		})
	}
	_ = g.Wait()

	var all []domain.JobRecord
	for _, recs := range perSource {
		all = append(all, recs...)
	}
	jobs := Unify(all)
	res := &Result{
		RunID:       runID,
		GeneratedAt: o.now(),
		Jobs:        jobs,
		Summary:     Aggregate(jobs),
		Sources:     results,
	}

	o.status.update(func(s *Status) {
		s.Running = false
		s.CurrentSource = ""
		s.JobsFound = len(jobs)
		s.Progress = 100
		s.FinishedAt = res.GeneratedAt
	})
	log.Info().
		Int("collected", len(all)).
		Int("unique", len(jobs)).
		Int("remote", res.Summary.Remote).
		Msg("run finished")
	return res, nil
}

func (o *Orchestrator) runSource(ctx context.Context, src module.Source, log zerolog.Logger) ([]domain.JobRecord, SourceResult) {
	name := src.Name()
	log = log.With().Str("source", string(name)).Logger()
	o.status.update(func(s *Status) { s.CurrentSource = string(name) })

	started := o.now()
	recs, err := safeRun(ctx, src)
	if err != nil {
		log.Error().Err(err).Int("records", len(recs)).Msg("source failed")
	}

	seen := dedup.NewSet()
	out := recs[:0]
	for _, r := range recs {
		if seen.Add(dedup.Key(r)) {
			out = append(out, r)
		}
	}
	metrics.RecordsEmitted.WithLabelValues(string(name)).Add(float64(len(out)))
	log.Info().
		Int("records", len(out)).
		Dur("took", o.now().Sub(started)).
		Msg("source done")

	o.status.update(func(s *Status) {
		s.SourcesDone++
		s.JobsFound += len(out)
		if s.SourcesTotal > 0 {
			s.Progress = s.SourcesDone * 100 / s.SourcesTotal
		}
		if err != nil {
			s.LastError = string(name) + ": " + err.Error()
		}
	})
	sr := SourceResult{Source: name, Records: len(out), Err: err}
	if err != nil {
		sr.Error = err.Error()
	}
	return out, sr
}

// safeRun keeps a panicking source from taking the run down
func safeRun(ctx context.Context, src module.Source) (recs []domain.JobRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("source panicked: %v", r)
		}
	}()
	return src.Run(ctx)
}
