package transfer

import (
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rotisserie/eris"

	"palmer/internal/scraper"
	"palmer/pkg/models"
)

// MirrorDocument has the same shape as the listing API, so a mirror file
// can be ingested by a json source pointed at the mirror server.
type MirrorDocument struct {
	Hackathons []MirrorListing `json:"hackathons"`
}

type MirrorListing struct {
	Title                 string        `json:"title"`
	URL                   string        `json:"url"`
	OpenState             string        `json:"open_state,omitempty"`
	DisplayedLocation     *MirrorPlace  `json:"displayed_location,omitempty"`
	PrizeAmount           string        `json:"prize_amount,omitempty"`
	Themes                []MirrorTheme `json:"themes"`
	InviteOnly            bool          `json:"invite_only"`
	OrganizationName      string        `json:"organization_name,omitempty"`
	RegistrationsCount    int           `json:"registrations_count"`
	SubmissionPeriodDates string        `json:"submission_period_dates,omitempty"`
	Featured              *bool         `json:"featured,omitempty"`
	ThumbnailURL          string        `json:"thumbnail_url,omitempty"`
}

type MirrorPlace struct {
	Location string `json:"location"`
}

type MirrorTheme struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// BuildMirror converts stored hackathons into the listing API shape.
// Untitled rows are left out since they would be skipped on ingest anyway.
func BuildMirror(hs []models.Hackathon) MirrorDocument {
	doc := MirrorDocument{Hackathons: make([]MirrorListing, 0, len(hs))}
	for _, h := range hs {
		if h.Title == nil || *h.Title == "" {
			continue
		}
		l := MirrorListing{
			Title:              *h.Title,
			URL:                h.URL,
			OpenState:          str(h.Status),
			PrizeAmount:        h.Prizes[scraper.PrizeTotalKey],
			Themes:             make([]MirrorTheme, 0, len(h.Tags)),
			InviteOnly:         str(h.Visibility) == scraper.VisibilityInviteOnly,
			OrganizationName:   str(h.Organizer),
			RegistrationsCount: h.ParticipantsCount,
			Featured:           h.Featured,
			ThumbnailURL:       str(h.ThumbnailURL),
		}
		if loc := str(h.Location); loc != "" {
			l.DisplayedLocation = &MirrorPlace{Location: loc}
		}
		for i, t := range h.Tags {
			l.Themes = append(l.Themes, MirrorTheme{ID: i + 1, Name: t})
		}
		l.SubmissionPeriodDates = dateRange(h.StartDate, h.EndDate)
		doc.Hackathons = append(doc.Hackathons, l)
	}
	return doc
}

func dateRange(start, end *string) string {
	parts := make([]string, 0, 2)
	if s := str(start); s != "" {
		parts = append(parts, s)
	}
	if e := str(end); e != "" {
		parts = append(parts, e)
	}
	return strings.Join(parts, " - ")
}

// WriteMirror writes doc as indented JSON to path.
func WriteMirror(path string, doc MirrorDocument) error {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return eris.Wrap(err, "marshal mirror")
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return eris.Wrapf(err, "write %s", path)
	}
	return nil
}

// MirrorHandler serves the mirror file, re-read on every request. A file
// that is not a valid mirror document is a 500, not a silent empty list.
func MirrorHandler(path string) gin.HandlerFunc {
	return func(c *gin.Context) {
		b, err := os.ReadFile(path)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot read mirror: " + err.Error()})
			return
		}
		var doc MirrorDocument
		if err := json.Unmarshal(b, &doc); err != nil || doc.Hackathons == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "mirror is not a hackathons document"})
			return
		}
		c.Header("X-Mirror-Count", strconv.Itoa(len(doc.Hackathons)))
		c.Data(http.StatusOK, "application/json", b)
	}
}
