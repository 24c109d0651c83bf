package transfer

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"palmer/internal/scraper"
	"palmer/pkg/models"
)

func stored() []models.Hackathon {
	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	full := models.NewHackathon(models.CanonicalRecord{
		URL:               "https://alpha.devpost.com/",
		Title:             models.Ptr("Alpha, the \"first\""),
		Status:            models.Ptr("open"),
		Location:          models.Ptr("Online"),
		StartDate:         models.Ptr("Jan 01"),
		EndDate:           models.Ptr("Feb 01, 2026"),
		Visibility:        models.Ptr(scraper.VisibilityInviteOnly),
		ParticipantsCount: models.Ptr(1234),
		Organizer:         models.Ptr("Alpha Inc"),
		Tags:              []string{"AI", "Web"},
		Prizes:            map[string]string{"total": "$50,000"},
		Extras:            map[string]any{"featured": true, "thumbnail_url": "//cdn/a.png"},
	}, now)
	full.ID = 1

	bare := models.NewHackathon(models.CanonicalRecord{URL: "https://bare.devpost.com/", Title: models.Ptr("Bare")}, now)
	bare.ID = 2

	untitled := models.NewHackathon(models.CanonicalRecord{URL: "https://untitled.devpost.com/"}, now)
	untitled.ID = 3

	return []models.Hackathon{*full, *bare, *untitled}
}

func TestCSV_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, stored()))

	recs, skipped, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	require.Len(t, recs, 2)

	a := recs[0]
	assert.Equal(t, "https://alpha.devpost.com/", a.URL)
	assert.Equal(t, "Alpha, the \"first\"", *a.Title)
	assert.Equal(t, "open", *a.Status)
	assert.Equal(t, 1234, *a.ParticipantsCount)
	assert.Equal(t, []string{"AI", "Web"}, a.Tags)
	assert.Equal(t, map[string]string{"total": "$50,000"}, a.Prizes)
	assert.Equal(t, map[string]any{"featured": true, "thumbnail_url": "//cdn/a.png"}, a.Extras)

	b := recs[1]
	assert.Nil(t, b.Status)
	assert.Nil(t, b.Tags)
	assert.Nil(t, b.Prizes)
	assert.Nil(t, b.Extras)
	assert.Equal(t, 0, *b.ParticipantsCount)
}

func TestReadCSV_HeaderByName(t *testing.T) {
	in := "\ufeffTitle,URL,participants_count\nX,https://x,\"1,234 registered\"\n,https://y,1\n"
	recs, skipped, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	require.Len(t, recs, 1)
	assert.Equal(t, 1234, *recs[0].ParticipantsCount)
}

func TestReadCSV_RequiresURLColumn(t *testing.T) {
	_, _, err := ReadCSV(strings.NewReader("title\nx\n"))
	require.Error(t, err)
}

func TestBuildMirror_IngestsBackToSameRecords(t *testing.T) {
	doc := BuildMirror(stored())
	require.Len(t, doc.Hackathons, 2)

	b, err := json.Marshal(doc)
	require.NoError(t, err)

	src := scraper.NewSource(scraper.KindJSON, "http://localhost:9000/api/hackathons")
	raws, err := scraper.ParsePayload(src, b)
	require.NoError(t, err)
	recs := slices.Collect(scraper.Extract(raws, nil, nil))
	require.Len(t, recs, 2)

	a := recs[0]
	assert.Equal(t, "https://alpha.devpost.com/", a.URL)
	assert.Equal(t, "open", *a.Status)
	assert.Equal(t, "Online", *a.Location)
	assert.Equal(t, scraper.VisibilityInviteOnly, *a.Visibility)
	assert.Equal(t, 1234, *a.ParticipantsCount)
	assert.Equal(t, []string{"AI", "Web"}, a.Tags)
	assert.Equal(t, map[string]string{"total": "$50,000"}, a.Prizes)
	assert.Equal(t, "Jan 01", *a.StartDate)
	assert.Equal(t, "Feb 01, 2026", *a.EndDate)
	assert.Equal(t, true, a.Extras["featured"])

	assert.Equal(t, scraper.DefaultStatus, *recs[1].Status)
	assert.Equal(t, scraper.VisibilityPublic, *recs[1].Visibility)
}

func TestMirrorHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	good := filepath.Join(dir, "mirror.json")
	require.NoError(t, WriteMirror(good, BuildMirror(stored())))
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"items": []}`), 0o644))

	r := gin.New()
	r.GET("/api/hackathons", MirrorHandler(good))
	r.GET("/bad", MirrorHandler(bad))
	r.GET("/missing", MirrorHandler(filepath.Join(dir, "nope.json")))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/hackathons", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-Mirror-Count"))

	for _, path := range []string{"/bad", "/missing"} {
		w = httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusInternalServerError, w.Code, path)
	}
}
