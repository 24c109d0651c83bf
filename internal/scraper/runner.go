package scraper

import (
	"context"
	"errors"
	"iter"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"palmer/pkg/models"
)

// RunRecorder persists run summaries. It is called outside the reconcile
// transaction so failed runs are recorded as well.
type RunRecorder interface {
	SaveRun(ctx context.Context, run models.IngestRun) error
}

// Runner drives fetch -> extract -> reconcile for one or more sources.
type Runner struct {
	Fetcher    Fetcher
	Reconciler *Reconciler
	Runs       RunRecorder // optional
	Log        *zap.Logger

	// SampleSize records of each batch are logged in full as they are extracted.
	SampleSize int
}

func NewRunner(f Fetcher, rec *Reconciler, runs RunRecorder, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{Fetcher: f, Reconciler: rec, Runs: runs, Log: log}
}

// Run ingests a single source. The returned run summary is populated even
// when err is non-nil.
func (r *Runner) Run(ctx context.Context, src Source) (models.IngestRun, error) {
	run := r.startRun(src)
	body, err := r.Fetcher.Fetch(ctx, src.URL)
	return r.finish(ctx, src, run, body, err)
}

// RunAll fetches every source concurrently, then extracts and reconciles
// each one in turn, each batch in its own transaction. A failing source does
// not stop the others; all failures are joined into the returned error.
func (r *Runner) RunAll(ctx context.Context, sources []Source) ([]models.IngestRun, error) {
	type fetched struct {
		run  models.IngestRun
		body []byte
		err  error
	}
	results := make([]fetched, len(sources))

	var g errgroup.Group
	for i, src := range sources {
		results[i].run = r.startRun(src)
		g.Go(func() error {
			results[i].body, results[i].err = r.Fetcher.Fetch(ctx, src.URL)
			return nil
		})
	}
	_ = g.Wait()

	runs := make([]models.IngestRun, 0, len(sources))
	var errs []error
	for i, src := range sources {
		run, err := r.finish(ctx, src, results[i].run, results[i].body, results[i].err)
		runs = append(runs, run)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return runs, errors.Join(errs...)
}

func (r *Runner) startRun(src Source) models.IngestRun {
	return models.IngestRun{
		ID:        uuid.NewString(),
		Source:    src.Name,
		URL:       src.URL,
		StartedAt: time.Now().UTC(),
	}
}

func (r *Runner) finish(ctx context.Context, src Source, run models.IngestRun, body []byte, fetchErr error) (models.IngestRun, error) {
	log := r.Log.With(zap.String("run_id", run.ID), zap.String("source", src.Name), zap.String("url", src.URL))

	err := fetchErr
	if err == nil {
		err = r.process(ctx, src, body, &run, log)
	}

	run.FinishedAt = time.Now().UTC()
	run.Status = models.RunStatusSuccess
	if err != nil {
		run.Status = models.RunStatusFailure
		run.Error = err.Error()
		log.Error("ingest: run failed", zap.Error(err))
	} else {
		log.Info("ingest: run complete",
			zap.Int("fetched", run.Fetched),
			zap.Int("extracted", run.Extracted),
			zap.Int("skipped", run.Skipped),
			zap.Int("created", run.Created),
			zap.Int("updated", run.Updated),
			zap.Duration("took", run.FinishedAt.Sub(run.StartedAt)))
	}

	if r.Runs != nil {
		if serr := r.Runs.SaveRun(context.WithoutCancel(ctx), run); serr != nil {
			log.Warn("ingest: could not save run record", zap.Error(serr))
		}
	}
	return run, err
}

func (r *Runner) process(ctx context.Context, src Source, body []byte, run *models.IngestRun, log *zap.Logger) error {
	raws, err := ParsePayload(src, body)
	if err != nil {
		return err
	}
	run.Fetched = len(raws)
	log.Info("ingest: payload parsed", zap.Int("listings", len(raws)))

	var stats ExtractStats
	records := r.sample(Extract(raws, log, &stats), log)

	res, err := r.Reconciler.Reconcile(ctx, records)
	run.Extracted = stats.Extracted
	run.Skipped = stats.Skipped
	if err != nil {
		return err
	}
	run.Created = res.Created
	run.Updated = res.Updated
	return nil
}

func (r *Runner) sample(seq iter.Seq[models.CanonicalRecord], log *zap.Logger) iter.Seq[models.CanonicalRecord] {
	if r.SampleSize <= 0 {
		return seq
	}
	return func(yield func(models.CanonicalRecord) bool) {
		n := 0
		for rec := range seq {
			if n < r.SampleSize {
				n++
				log.Info("ingest: sample record", zap.Int("n", n), zap.Any("record", rec))
			}
			if !yield(rec) {
				return
			}
		}
	}
}
