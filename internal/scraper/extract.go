package scraper

import (
	"errors"
	"iter"
	"strconv"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"palmer/pkg/models"
)

// Defaults shared by every extractor when a source does not say.
const (
	DefaultStatus   = "unknown"
	DefaultLocation = "Not specified"

	VisibilityInviteOnly = "invite_only"
	VisibilityPublic     = "public"

	PrizeTotalKey = "total"
)

// ErrSkip marks a listing that cannot become a record (missing url or title).
var ErrSkip = errors.New("listing skipped")

// ExtractStats is filled in while the sequence returned by Extract is consumed.
type ExtractStats struct {
	Extracted int
	Skipped   int
}

// Extract lazily converts raw listings into canonical records, preserving
// order. A listing that fails (missing field, malformed object, panic in a
// field parser) is logged and skipped; it never drops its siblings.
func Extract(raws []RawListing, log *zap.Logger, stats *ExtractStats) iter.Seq[models.CanonicalRecord] {
	if log == nil {
		log = zap.NewNop()
	}
	if stats == nil {
		stats = &ExtractStats{}
	}
	return func(yield func(models.CanonicalRecord) bool) {
		for i, raw := range raws {
			rec, err := ExtractOne(raw)
			if err != nil {
				stats.Skipped++
				log.Warn("extract: skipping listing",
					zap.Int("index", i), zap.Stringer("kind", raw.Kind), zap.Error(err))
				continue
			}
			stats.Extracted++
			if !yield(rec) {
				return
			}
		}
	}
}

// ExtractOne dispatches one raw listing to its variant's field mapping.
func ExtractOne(raw RawListing) (rec models.CanonicalRecord, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = eris.Errorf("extract: panic: %v", p)
		}
	}()

	switch raw.Kind {
	case KindHTML:
		if raw.Tile == nil {
			return rec, eris.Wrap(ErrSkip, "empty tile")
		}
		return extractTile(raw.Tile, raw.BaseURL)
	case KindJSON:
		return extractObject(raw.Object)
	default:
		return rec, eris.Errorf("extract: unsupported kind %v", raw.Kind)
	}
}

// ParseCount keeps only the digit characters of s, so "1,234 registered"
// becomes 1234. Anything without digits, or too large, yields 0.
func ParseCount(s string) int {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	n, err := strconv.Atoi(b.String())
	if err != nil {
		return 0
	}
	return n
}

// splitDateRange splits "Oct 01 - Nov 15, 2025" into its two ends. Text
// without a separator is returned whole as the start.
func splitDateRange(s string) (start, end *string) {
	s = cleanText(s)
	if s == "" {
		return nil, nil
	}
	for _, sep := range []string{" - ", " – ", " — "} {
		if a, b, ok := strings.Cut(s, sep); ok {
			a, b = strings.TrimSpace(a), strings.TrimSpace(b)
			if a != "" && b != "" {
				return &a, &b
			}
		}
	}
	return &s, nil
}

// cleanText trims and collapses internal whitespace runs.
func cleanText(s string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}

func optional(s string) *string {
	s = cleanText(s)
	if s == "" {
		return nil
	}
	return &s
}
