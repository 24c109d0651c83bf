package hackathon

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"palmer/internal/search"
	"palmer/pkg/models"
)

const ServiceName = "palmer-api"

type Handler struct {
	Repo        *Repo
	Index       *search.Index
	Log         *zap.Logger
	SearchLimit int
}

func NewHandler(repo *Repo, index *search.Index, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Repo: repo, Index: index, Log: log, SearchLimit: 20}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/", h.root)
	r.GET("/health", h.health)
	r.GET("/ready", h.ready)

	r.GET("/hackathons", h.list)        // GET /hackathons
	r.GET("/hackathons/:id", h.getByID) // GET /hackathons/:id
	r.GET("/stats", h.stats)
	r.GET("/search", h.search) // GET /search?q=...&limit=...
	r.GET("/runs", h.runs)
}

func (h *Handler) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": ServiceName,
		"endpoints": []string{
			"/health", "/ready", "/hackathons", "/hackathons/:id", "/stats", "/search", "/runs",
		},
	})
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": ServiceName})
}

func (h *Handler) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.Repo.DB.PingContext(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "db_error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "db": h.Repo.DB.Driver})
}

func (h *Handler) list(c *gin.Context) {
	items, err := h.Repo.List(c.Request.Context())
	if err != nil {
		h.Log.Error("list hackathons", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(items), "hackathons": items})
}

func (h *Handler) getByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	m, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		h.Log.Error("get hackathon", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if m == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "hackathon not found"})
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *Handler) stats(c *gin.Context) {
	st, err := h.Repo.CountByStatus(c.Request.Context())
	if err != nil {
		h.Log.Error("stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stats failed"})
		return
	}
	c.JSON(http.StatusOK, st)
}

type searchResult struct {
	Score     float64           `json:"score"`
	Hackathon *models.Hackathon `json:"hackathon"`
}

func (h *Handler) search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query parameter q"})
		return
	}
	limit := parseInt(c.Query("limit"), h.SearchLimit)
	ctx := c.Request.Context()

	if err := h.refreshIndex(ctx); err != nil {
		h.Log.Error("search: refresh index", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}

	hits, err := h.Index.Search(q, limit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query"})
		return
	}

	results := make([]searchResult, 0, len(hits))
	for _, hit := range hits {
		m, err := h.Repo.GetByID(ctx, hit.ID)
		if err != nil {
			h.Log.Error("search: load hit", zap.Int64("id", hit.ID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
			return
		}
		if m == nil {
			continue
		}
		results = append(results, searchResult{Score: hit.Score, Hackathon: m})
	}
	c.JSON(http.StatusOK, gin.H{"query": q, "count": len(results), "results": results})
}

// refreshIndex rebuilds the search index when the store has changed since
// the last build.
func (h *Handler) refreshIndex(ctx context.Context) error {
	fp, err := h.Repo.Fingerprint(ctx)
	if err != nil {
		return err
	}
	if fp == h.Index.Version() {
		return nil
	}
	items, err := h.Repo.List(ctx)
	if err != nil {
		return err
	}
	h.Log.Info("search: rebuilding index", zap.Int("docs", len(items)))
	return h.Index.Rebuild(items, fp)
}

func (h *Handler) runs(c *gin.Context) {
	runs, err := h.Repo.ListRuns(c.Request.Context(), parseInt(c.Query("limit"), 20))
	if err != nil {
		h.Log.Error("list runs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list runs failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(runs), "runs": runs})
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
