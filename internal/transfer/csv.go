package transfer

import (
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"palmer/internal/scraper"
	"palmer/pkg/models"
)

// CSVHeader is the column order written by WriteCSV. ReadCSV matches
// columns by name, so extra or reordered columns are fine.
var CSVHeader = []string{
	"url", "title", "tagline", "status", "location", "start_date", "end_date",
	"submission_deadline", "visibility", "participants_count", "organizer",
	"tags", "prize_total", "description", "requirements", "featured", "thumbnail_url",
}

// tagSep joins tags inside a single cell.
const tagSep = "|"

func WriteCSV(w io.Writer, hs []models.Hackathon) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return eris.Wrap(err, "write header")
	}

	for _, h := range hs {
		featured := ""
		if h.Featured != nil {
			featured = strconv.FormatBool(*h.Featured)
		}
		if err := cw.Write([]string{
			h.URL,
			str(h.Title),
			str(h.Tagline),
			str(h.Status),
			str(h.Location),
			str(h.StartDate),
			str(h.EndDate),
			str(h.SubmissionDeadline),
			str(h.Visibility),
			strconv.Itoa(h.ParticipantsCount),
			str(h.Organizer),
			strings.Join(h.Tags, tagSep),
			h.Prizes[scraper.PrizeTotalKey],
			str(h.Description),
			str(h.Requirements),
			featured,
			str(h.ThumbnailURL),
		}); err != nil {
			return eris.Wrapf(err, "write row %s", h.URL)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadCSV turns rows into canonical records. Rows without url or title are
// skipped and counted; empty cells are treated as absent.
func ReadCSV(r io.Reader) ([]models.CanonicalRecord, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := readHeader(cr)
	if err != nil {
		return nil, 0, err
	}

	var (
		out     []models.CanonicalRecord
		skipped int
	)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, eris.Wrap(err, "read row")
		}

		get := func(name string) string { return valueAt(header, row, name) }

		url, title := get("url"), get("title")
		if url == "" || title == "" {
			skipped++
			continue
		}

		rec := models.CanonicalRecord{
			URL:                url,
			Title:              &title,
			Tagline:            optional(get("tagline")),
			Status:             optional(strings.ToLower(get("status"))),
			Location:           optional(get("location")),
			StartDate:          optional(get("start_date")),
			EndDate:            optional(get("end_date")),
			SubmissionDeadline: optional(get("submission_deadline")),
			Visibility:         optional(get("visibility")),
			Organizer:          optional(get("organizer")),
			Description:        optional(get("description")),
			Requirements:       optional(get("requirements")),
		}
		if s := get("participants_count"); s != "" {
			n := scraper.ParseCount(s)
			rec.ParticipantsCount = &n
		}
		if s := get("tags"); s != "" {
			for _, t := range strings.Split(s, tagSep) {
				if t = strings.TrimSpace(t); t != "" {
					rec.Tags = append(rec.Tags, t)
				}
			}
		}
		if s := get("prize_total"); s != "" {
			rec.Prizes = map[string]string{scraper.PrizeTotalKey: s}
		}

		extras := map[string]any{}
		if b, err := strconv.ParseBool(get("featured")); err == nil {
			extras["featured"] = b
		}
		if s := get("thumbnail_url"); s != "" {
			extras["thumbnail_url"] = s
		}
		if len(extras) > 0 {
			rec.Extras = extras
		}

		out = append(out, rec)
	}
	return out, skipped, nil
}

func readHeader(r *csv.Reader) (map[string]int, error) {
	row, err := r.Read()
	if err != nil {
		return nil, eris.Wrap(err, "read header")
	}
	header := make(map[string]int, len(row))
	for i, name := range row {
		header[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	if _, ok := header["url"]; !ok {
		return nil, eris.New("csv header has no url column")
	}
	return header, nil
}

func valueAt(header map[string]int, row []string, name string) string {
	i, ok := header[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
