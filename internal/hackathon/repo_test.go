package hackathon

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"palmer/internal/scraper"
	"palmer/pkg/database"
	"palmer/pkg/models"
)

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	db, err := database.Open(database.Config{
		Driver: database.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "palmer.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db))
	return NewRepo(db)
}

func seed(t *testing.T, r *Repo, recs ...models.CanonicalRecord) {
	t.Helper()
	now := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	err := r.WithinTx(context.Background(), func(tx scraper.Tx) error {
		for _, rec := range recs {
			if _, err := tx.Create(context.Background(), rec, now); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func TestRepo_CreateAndRead(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	seed(t, r, models.CanonicalRecord{
		URL:               "https://devpost.com/a",
		Title:             models.Ptr("Alpha"),
		Status:            models.Ptr("open"),
		ParticipantsCount: models.Ptr(1234),
		Tags:              []string{"AI", "Web"},
		Prizes:            map[string]string{"total": "$10,000"},
		Extras:            map[string]any{"featured": true, "thumbnail_url": "//img/a.png"},
	})

	h, err := r.GetByURL(ctx, "https://devpost.com/a")
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.NotZero(t, h.ID)
	assert.Equal(t, "Alpha", *h.Title)
	assert.Equal(t, 1234, h.ParticipantsCount)
	assert.Equal(t, []string{"AI", "Web"}, h.Tags)
	assert.Equal(t, map[string]string{"total": "$10,000"}, h.Prizes)
	require.NotNil(t, h.Featured)
	assert.True(t, *h.Featured)
	assert.Equal(t, "//img/a.png", *h.ThumbnailURL)
	assert.Nil(t, h.Tagline)
	assert.Equal(t, time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC), h.ScrapedAt)

	byID, err := r.GetByID(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, h, byID)

	all, err := r.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRepo_NotFoundIsNil(t *testing.T) {
	r := newTestRepo(t)

	h, err := r.GetByID(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, h)

	h, err = r.GetByURL(context.Background(), "https://nowhere")
	require.NoError(t, err)
	assert.Nil(t, h)
}

func TestRepo_UpdateKeepsAbsentFields(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	seed(t, r, models.CanonicalRecord{
		URL:    "https://devpost.com/a",
		Title:  models.Ptr("Alpha"),
		Status: models.Ptr("upcoming"),
	})

	later := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	err := r.WithinTx(ctx, func(tx scraper.Tx) error {
		existing, err := tx.FindByURL(ctx, "https://devpost.com/a")
		if err != nil {
			return err
		}
		return tx.Update(ctx, existing, models.CanonicalRecord{URL: existing.URL, Status: models.Ptr("open")}, later)
	})
	require.NoError(t, err)

	h, err := r.GetByURL(ctx, "https://devpost.com/a")
	require.NoError(t, err)
	assert.Equal(t, "Alpha", *h.Title)
	assert.Equal(t, "open", *h.Status)
	assert.Equal(t, later, h.UpdatedAt)
	assert.Equal(t, time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC), h.ScrapedAt)
}

func TestRepo_WithinTxRollsBack(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := r.WithinTx(ctx, func(tx scraper.Tx) error {
		if _, err := tx.Create(ctx, models.CanonicalRecord{URL: "https://devpost.com/a"}, time.Now()); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	all, err := r.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRepo_CountByStatus(t *testing.T) {
	r := newTestRepo(t)
	seed(t, r,
		models.CanonicalRecord{URL: "https://devpost.com/a", Status: models.Ptr("open")},
		models.CanonicalRecord{URL: "https://devpost.com/b", Status: models.Ptr("open")},
		models.CanonicalRecord{URL: "https://devpost.com/c"},
	)

	st, err := r.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, st.Total)
	assert.Equal(t, map[string]int{"open": 2, "unknown": 1}, st.ByStatus)
}

func TestRepo_FingerprintChangesOnWrite(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	before, err := r.Fingerprint(ctx)
	require.NoError(t, err)

	seed(t, r, models.CanonicalRecord{URL: "https://devpost.com/a"})

	after, err := r.Fingerprint(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
}

func TestRepo_Runs(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	t0 := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, r.SaveRun(ctx, models.IngestRun{
		ID: "run-1", Source: "devpost.com/html", URL: "https://devpost.com/hackathons",
		Status: models.RunStatusSuccess, Fetched: 5, Extracted: 4, Skipped: 1, Created: 4,
		StartedAt: t0, FinishedAt: t0.Add(time.Second),
	}))
	require.NoError(t, r.SaveRun(ctx, models.IngestRun{
		ID: "run-2", Source: "devpost.com/json", URL: "https://devpost.com/api/hackathons",
		Status: models.RunStatusFailure, Error: "fetch: status 503",
		StartedAt: t0.Add(time.Hour), FinishedAt: t0.Add(time.Hour),
	}))

	runs, err := r.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].ID)
	assert.Equal(t, "fetch: status 503", runs[0].Error)
	assert.Equal(t, 4, runs[1].Created)
	assert.Empty(t, runs[1].Error)
	assert.Equal(t, t0, runs[1].StartedAt)
}
