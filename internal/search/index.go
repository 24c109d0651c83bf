package search

import (
	"strconv"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/rotisserie/eris"

	"palmer/pkg/models"
)

// Index is an in-memory full-text index over hackathons. Rebuild replaces
// the whole index atomically; searches running concurrently see either the
// old or the new one.
type Index struct {
	mu      sync.RWMutex
	index   bleve.Index
	version string
}

// Document is what gets indexed for one hackathon.
type Document struct {
	Title     string
	Tagline   string
	Organizer string
	Location  string
	Status    string
	Tags      []string
}

// Hit is one search result. ID is the hackathon id.
type Hit struct {
	ID    int64   `json:"id"`
	Score float64 `json:"score"`
}

func New() *Index {
	return &Index{}
}

func buildIndexMapping() mapping.IndexMapping {
	keyword := bleve.NewKeywordFieldMapping()

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("Title", bleve.NewTextFieldMapping())
	doc.AddFieldMappingsAt("Tagline", bleve.NewTextFieldMapping())
	doc.AddFieldMappingsAt("Organizer", bleve.NewTextFieldMapping())
	doc.AddFieldMappingsAt("Location", bleve.NewTextFieldMapping())
	doc.AddFieldMappingsAt("Status", keyword)
	doc.AddFieldMappingsAt("Tags", bleve.NewTextFieldMapping())

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	m.DefaultAnalyzer = en.AnalyzerName
	return m
}

// Version is the value passed to the last successful Rebuild.
func (i *Index) Version() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.version
}

// Rebuild indexes hs into a fresh index and swaps it in.
func (i *Index) Rebuild(hs []models.Hackathon, version string) error {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return eris.Wrap(err, "create index")
	}

	batch := idx.NewBatch()
	for _, h := range hs {
		if err := batch.Index(strconv.FormatInt(h.ID, 10), toDocument(h)); err != nil {
			_ = idx.Close()
			return eris.Wrapf(err, "batch index %d", h.ID)
		}
	}
	if err := idx.Batch(batch); err != nil {
		_ = idx.Close()
		return eris.Wrap(err, "commit batch")
	}

	i.mu.Lock()
	old := i.index
	i.index, i.version = idx, version
	i.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	return nil
}

// Search runs a query-string query (quotes, +/-, field:value, fuzzy ~).
func (i *Index) Search(q string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 20
	}

	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.index == nil {
		return []Hit{}, nil
	}

	req := bleve.NewSearchRequestOptions(bleve.NewQueryStringQuery(q), limit, 0, false)
	res, err := i.index.Search(req)
	if err != nil {
		return nil, eris.Wrapf(err, "search %q", q)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		id, err := strconv.ParseInt(h.ID, 10, 64)
		if err != nil {
			continue
		}
		hits = append(hits, Hit{ID: id, Score: h.Score})
	}
	return hits, nil
}

func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.index == nil {
		return nil
	}
	err := i.index.Close()
	i.index = nil
	return err
}

func toDocument(h models.Hackathon) Document {
	return Document{
		Title:     deref(h.Title),
		Tagline:   deref(h.Tagline),
		Organizer: deref(h.Organizer),
		Location:  deref(h.Location),
		Status:    deref(h.Status),
		Tags:      h.Tags,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
