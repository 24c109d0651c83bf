package scraper_test

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"palmer/internal/hackathon"
	"palmer/internal/scraper"
	"palmer/pkg/database"
	"palmer/pkg/models"
)

func newRepo(t *testing.T) *hackathon.Repo {
	t.Helper()
	db, err := database.Open(database.Config{
		Driver: database.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "palmer.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db))
	return hackathon.NewRepo(db)
}

func fixedClock(start time.Time) func() time.Time {
	now := start
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

func newReconciler(store scraper.Store) *scraper.Reconciler {
	r := scraper.NewReconciler(store, nil)
	r.Now = fixedClock(time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC))
	return r
}

func batch(n int) []models.CanonicalRecord {
	urls := []string{"a", "b", "c", "d", "e", "f", "g"}
	out := make([]models.CanonicalRecord, 0, n)
	for _, u := range urls[:n] {
		out = append(out, models.CanonicalRecord{
			URL:    "https://devpost.com/" + u,
			Title:  models.Ptr("Hackathon " + u),
			Status: models.Ptr("open"),
		})
	}
	return out
}

func TestReconcile_CreatesThenUpdates(t *testing.T) {
	repo := newRepo(t)
	rec := newReconciler(repo)
	ctx := context.Background()

	res, err := rec.Reconcile(ctx, slices.Values(batch(3)))
	require.NoError(t, err)
	assert.Equal(t, scraper.Result{Created: 3}, res)

	res, err = rec.Reconcile(ctx, slices.Values(batch(3)))
	require.NoError(t, err)
	assert.Equal(t, scraper.Result{Updated: 3}, res)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestReconcile_IsIdempotent(t *testing.T) {
	repo := newRepo(t)
	rec := newReconciler(repo)
	ctx := context.Background()

	_, err := rec.Reconcile(ctx, slices.Values(batch(4)))
	require.NoError(t, err)
	first, err := repo.List(ctx)
	require.NoError(t, err)

	_, err = rec.Reconcile(ctx, slices.Values(batch(4)))
	require.NoError(t, err)
	second, err := repo.List(ctx)
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		first[i].UpdatedAt, second[i].UpdatedAt = time.Time{}, time.Time{}
	}
	assert.Equal(t, first, second)
}

func TestReconcile_PartialUpdateKeepsStoredFields(t *testing.T) {
	repo := newRepo(t)
	rec := newReconciler(repo)
	ctx := context.Background()

	_, err := rec.Reconcile(ctx, slices.Values([]models.CanonicalRecord{{
		URL:       "https://devpost.com/a",
		Title:     models.Ptr("Alpha"),
		Status:    models.Ptr("upcoming"),
		Organizer: models.Ptr("Acme"),
	}}))
	require.NoError(t, err)

	res, err := rec.Reconcile(ctx, slices.Values([]models.CanonicalRecord{{
		URL:    "https://devpost.com/a",
		Status: models.Ptr("open"),
	}}))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)

	h, err := repo.GetByURL(ctx, "https://devpost.com/a")
	require.NoError(t, err)
	assert.Equal(t, "Alpha", *h.Title)
	assert.Equal(t, "open", *h.Status)
	assert.Equal(t, "Acme", *h.Organizer)
	assert.True(t, h.UpdatedAt.After(h.ScrapedAt))
}

func reconcileJSON(t *testing.T, rec *scraper.Reconciler, body string) scraper.Result {
	t.Helper()
	src := scraper.NewSource(scraper.KindJSON, "https://devpost.com/api/hackathons")
	raws, err := scraper.ParsePayload(src, []byte(body))
	require.NoError(t, err)
	res, err := rec.Reconcile(context.Background(), scraper.Extract(raws, nil, nil))
	require.NoError(t, err)
	return res
}

func TestReconcile_ReingestWithMissingKeysKeepsStoredValues(t *testing.T) {
	repo := newRepo(t)
	rec := newReconciler(repo)

	reconcileJSON(t, rec, `{"hackathons": [{
		"title": "Alpha", "url": "https://alpha.devpost.com/", "open_state": "upcoming",
		"themes": [{"id": 1, "name": "AI"}], "prize_amount": "$<span data-currency-value>5,000</span>",
		"organization_name": "Alpha Inc", "registrations_count": 40, "featured": true
	}]}`)

	res := reconcileJSON(t, rec, `{"hackathons": [{
		"title": "Alpha", "url": "https://alpha.devpost.com/", "open_state": "open"
	}]}`)
	assert.Equal(t, scraper.Result{Updated: 1}, res)

	h, err := repo.GetByURL(context.Background(), "https://alpha.devpost.com/")
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, "open", *h.Status)
	assert.Equal(t, []string{"AI"}, h.Tags)
	assert.Equal(t, map[string]string{"total": "$5,000"}, h.Prizes)
	assert.Equal(t, "Alpha Inc", *h.Organizer)
	assert.Equal(t, 40, h.ParticipantsCount)
	require.NotNil(t, h.Featured)
	assert.True(t, *h.Featured)
}

func TestReconcile_DuplicateURLLastWins(t *testing.T) {
	repo := newRepo(t)
	rec := newReconciler(repo)
	ctx := context.Background()

	res, err := rec.Reconcile(ctx, slices.Values([]models.CanonicalRecord{
		{URL: "https://devpost.com/a", Title: models.Ptr("First")},
		{URL: "https://devpost.com/a", Title: models.Ptr("Second")},
	}))
	require.NoError(t, err)
	assert.Equal(t, scraper.Result{Created: 1, Updated: 1}, res)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Second", *all[0].Title)
}

func TestReconcile_FailureRollsBackWholeBatch(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	_, err := newReconciler(repo).Reconcile(ctx, slices.Values(batch(2)))
	require.NoError(t, err)
	before, err := repo.List(ctx)
	require.NoError(t, err)

	failing := &failingStore{inner: repo, failOn: 3}
	changed := batch(5)
	for i := range changed {
		changed[i].Status = models.Ptr("ended")
	}

	res, err := newReconciler(failing).Reconcile(ctx, slices.Values(changed))
	require.Error(t, err)
	assert.Equal(t, scraper.Result{}, res)

	var pe *scraper.PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "https://devpost.com/c", pe.URL)
	assert.ErrorIs(t, err, errInjected)

	after, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestReconcile_RejectsEmptyURL(t *testing.T) {
	repo := newRepo(t)
	_, err := newReconciler(repo).Reconcile(context.Background(), slices.Values([]models.CanonicalRecord{
		{URL: "https://devpost.com/a"},
		{Title: models.Ptr("no url")},
	}))
	var pe *scraper.PersistenceError
	require.ErrorAs(t, err, &pe)

	all, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestReconcile_IgnoresCancellationOnceStarted(t *testing.T) {
	repo := newRepo(t)
	ctx, cancel := context.WithCancel(context.Background())

	recs := func(yield func(models.CanonicalRecord) bool) {
		for i, r := range batch(3) {
			if i == 1 {
				cancel()
			}
			if !yield(r) {
				return
			}
		}
	}
	res, err := newReconciler(repo).Reconcile(ctx, recs)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Created)
}

var errInjected = errors.New("injected failure")

// failingStore fails the failOn-th FindByURL of a transaction.
type failingStore struct {
	inner  scraper.Store
	failOn int
}

func (s *failingStore) WithinTx(ctx context.Context, fn func(tx scraper.Tx) error) error {
	return s.inner.WithinTx(ctx, func(tx scraper.Tx) error {
		return fn(&failingTx{Tx: tx, failOn: s.failOn})
	})
}

type failingTx struct {
	scraper.Tx
	failOn int
	calls  int
}

func (t *failingTx) FindByURL(ctx context.Context, url string) (*models.Hackathon, error) {
	t.calls++
	if t.calls == t.failOn {
		return nil, errInjected
	}
	return t.Tx.FindByURL(ctx, url)
}
