package scraper_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"palmer/internal/scraper"
	"palmer/pkg/models"
)

type stubFetcher struct {
	mu     sync.Mutex
	bodies map[string]string
	errs   map[string]error
	calls  []string
}

func (f *stubFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	return []byte(f.bodies[url]), nil
}

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) SaveRun(ctx context.Context, run models.IngestRun) error {
	return m.Called(ctx, run).Error(0)
}

const fiveObjects = `{"hackathons": [
  {"title": "A", "url": "https://a.devpost.com/", "open_state": "open"},
  {"title": "B", "url": "https://b.devpost.com/", "open_state": "open"},
  {"title": "No URL"},
  {"title": "C", "url": "https://c.devpost.com/"},
  {"title": "D", "url": "https://d.devpost.com/", "registrations_count": "1,234 registered"}
]}`

func TestRunner_RunRecordsSuccess(t *testing.T) {
	repo := newRepo(t)
	const url = "https://devpost.com/api/hackathons"
	fetcher := &stubFetcher{bodies: map[string]string{url: fiveObjects}}

	rec := &mockRecorder{}
	rec.On("SaveRun", mock.Anything, mock.MatchedBy(func(r models.IngestRun) bool {
		return r.Status == models.RunStatusSuccess && r.Created == 4 && r.Skipped == 1
	})).Return(nil).Once()

	runner := scraper.NewRunner(fetcher, newReconciler(repo), rec, nil)
	run, err := runner.Run(context.Background(), scraper.NewSource(scraper.KindJSON, url))
	require.NoError(t, err)

	assert.NotEmpty(t, run.ID)
	assert.Equal(t, "devpost.com/json", run.Source)
	assert.Equal(t, 5, run.Fetched)
	assert.Equal(t, 4, run.Extracted)
	assert.Equal(t, 1, run.Skipped)
	assert.Equal(t, 4, run.Created)
	assert.Equal(t, 0, run.Updated)
	rec.AssertExpectations(t)

	h, err := repo.GetByURL(context.Background(), "https://d.devpost.com/")
	require.NoError(t, err)
	assert.Equal(t, 1234, h.ParticipantsCount)

	st, err := repo.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"open": 2, "unknown": 2}, st.ByStatus)
}

func TestRunner_FetchFailureIsRecorded(t *testing.T) {
	repo := newRepo(t)
	const url = "https://devpost.com/hackathons"
	fetcher := &stubFetcher{errs: map[string]error{
		url: &scraper.FetchError{Kind: scraper.FetchStatus, URL: url, StatusCode: 503},
	}}

	runner := scraper.NewRunner(fetcher, newReconciler(repo), repo, nil)
	run, err := runner.Run(context.Background(), scraper.NewSource(scraper.KindHTML, url))

	var fe *scraper.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, models.RunStatusFailure, run.Status)
	assert.Contains(t, run.Error, "503")

	runs, err := repo.ListRuns(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
	assert.Equal(t, models.RunStatusFailure, runs[0].Status)
}

func TestRunner_DecodeFailure(t *testing.T) {
	repo := newRepo(t)
	const url = "https://devpost.com/api/hackathons"
	fetcher := &stubFetcher{bodies: map[string]string{url: `{"items": []}`}}

	_, err := scraper.NewRunner(fetcher, newReconciler(repo), nil, nil).
		Run(context.Background(), scraper.NewSource(scraper.KindJSON, url))

	var fe *scraper.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, scraper.FetchDecode, fe.Kind)
}

func TestRunner_RunAllIsolatesSources(t *testing.T) {
	repo := newRepo(t)
	good := "https://devpost.com/api/hackathons"
	bad := "https://other.example/api/hackathons"
	fetcher := &stubFetcher{
		bodies: map[string]string{good: fiveObjects},
		errs:   map[string]error{bad: &scraper.FetchError{Kind: scraper.FetchNetwork, URL: bad}},
	}

	runner := scraper.NewRunner(fetcher, newReconciler(repo), repo, nil)
	runs, err := runner.RunAll(context.Background(), []scraper.Source{
		scraper.NewSource(scraper.KindJSON, bad),
		scraper.NewSource(scraper.KindJSON, good),
	})
	require.Error(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, models.RunStatusFailure, runs[0].Status)
	assert.Equal(t, models.RunStatusSuccess, runs[1].Status)
	assert.Equal(t, 4, runs[1].Created)
	assert.ElementsMatch(t, []string{good, bad}, fetcher.calls)

	saved, err := repo.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, saved, 2)
}

func TestRunner_LogsSampleRecords(t *testing.T) {
	repo := newRepo(t)
	const url = "https://devpost.com/api/hackathons"
	fetcher := &stubFetcher{bodies: map[string]string{url: fiveObjects}}

	core, logs := observer.New(zap.InfoLevel)
	runner := scraper.NewRunner(fetcher, newReconciler(repo), nil, zap.New(core))
	runner.SampleSize = 3

	_, err := runner.Run(context.Background(), scraper.NewSource(scraper.KindJSON, url))
	require.NoError(t, err)
	assert.Equal(t, 3, logs.FilterMessage("ingest: sample record").Len())
}
