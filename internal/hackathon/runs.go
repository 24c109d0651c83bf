package hackathon

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"

	"palmer/internal/scraper"
	"palmer/pkg/models"
)

var _ scraper.RunRecorder = (*Repo)(nil)

func (r *Repo) SaveRun(ctx context.Context, run models.IngestRun) error {
	var errText any
	if run.Error != "" {
		errText = run.Error
	}
	_, err := r.DB.ExecContext(ctx, r.DB.Rebind(`
		INSERT INTO ingest_runs (id, source, url, status, error, fetched, extracted, skipped, created, updated, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), run.ID, run.Source, run.URL, run.Status, errText,
		run.Fetched, run.Extracted, run.Skipped, run.Created, run.Updated,
		run.StartedAt, run.FinishedAt)
	if err != nil {
		return eris.Wrapf(err, "save run %s", run.ID)
	}
	return nil
}

// ListRuns returns the most recent runs first.
func (r *Repo) ListRuns(ctx context.Context, limit int) ([]models.IngestRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.DB.QueryContext(ctx, r.DB.Rebind(`
		SELECT id, source, url, status, error, fetched, extracted, skipped, created, updated, started_at, finished_at
		FROM ingest_runs
		ORDER BY started_at DESC
		LIMIT ?
	`), limit)
	if err != nil {
		return nil, eris.Wrap(err, "list runs")
	}
	defer rows.Close()

	out := make([]models.IngestRun, 0, limit)
	for rows.Next() {
		var (
			run     models.IngestRun
			errText sql.NullString
		)
		if err := rows.Scan(&run.ID, &run.Source, &run.URL, &run.Status, &errText,
			&run.Fetched, &run.Extracted, &run.Skipped, &run.Created, &run.Updated,
			&run.StartedAt, &run.FinishedAt); err != nil {
			return nil, eris.Wrap(err, "list runs scan")
		}
		run.Error = errText.String
		run.StartedAt = run.StartedAt.UTC()
		run.FinishedAt = run.FinishedAt.UTC()
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "list runs rows")
	}
	return out, nil
}
