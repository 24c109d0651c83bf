package scraper

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"palmer/pkg/models"
)

// Selectors of the listing tile markup.
const (
	selTitleLink    = "a.challenge-link-overlay"
	selTagline      = "p.challenge-tagline"
	selStatus       = "span.submission-period"
	selLocation     = "div.challenge-location"
	selDates        = "div.challenge-date"
	selPrize        = "div.prize-amount"
	selParticipants = "div.participants-count"
	selTheme        = "span.challenge-theme"
	selOrganizer    = "div.challenge-organizer"
)

func extractTile(tile *goquery.Selection, base *url.URL) (models.CanonicalRecord, error) {
	var rec models.CanonicalRecord

	link := tile.Find(selTitleLink).First()
	if link.Length() == 0 {
		return rec, eris.Wrap(ErrSkip, "tile has no title link")
	}
	title := cleanText(link.AttrOr("aria-label", ""))
	href := strings.TrimSpace(link.AttrOr("href", ""))
	if title == "" || href == "" {
		return rec, eris.Wrap(ErrSkip, "tile missing title or url")
	}
	u, err := resolve(base, href)
	if err != nil {
		return rec, eris.Wrapf(ErrSkip, "tile url %q: %v", href, err)
	}
	rec.URL = u
	rec.Title = &title

	if s, ok := text(tile, selTagline); ok {
		rec.Tagline = optional(s)
	}

	status := DefaultStatus
	if s, ok := text(tile, selStatus); ok && cleanText(s) != "" {
		status = strings.ToLower(cleanText(s))
	}
	rec.Status = &status

	location := DefaultLocation
	if s, ok := text(tile, selLocation); ok && cleanText(s) != "" {
		location = cleanText(s)
	}
	rec.Location = &location

	if s, ok := text(tile, selDates); ok {
		rec.StartDate, rec.EndDate = splitDateRange(s)
	}

	if s, ok := text(tile, selPrize); ok {
		rec.Prizes = map[string]string{}
		if p := cleanText(s); p != "" {
			rec.Prizes[PrizeTotalKey] = p
		}
	}

	if s, ok := text(tile, selParticipants); ok {
		n := ParseCount(s)
		rec.ParticipantsCount = &n
	}

	if themes := tile.Find(selTheme); themes.Length() > 0 {
		rec.Tags = make([]string, 0, themes.Length())
		themes.Each(func(_ int, s *goquery.Selection) {
			if t := cleanText(s.Text()); t != "" {
				rec.Tags = append(rec.Tags, t)
			}
		})
	}

	if s, ok := text(tile, selOrganizer); ok {
		rec.Organizer = optional(s)
	}

	return rec, nil
}

// text returns the text of the first match of sel inside tile.
func text(tile *goquery.Selection, sel string) (string, bool) {
	m := tile.Find(sel).First()
	if m.Length() == 0 {
		return "", false
	}
	return m.Text(), true
}

func resolve(base *url.URL, href string) (string, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	if base == nil {
		if !ref.IsAbs() {
			return "", eris.New("relative url without base")
		}
		return ref.String(), nil
	}
	return base.ResolveReference(ref).String(), nil
}
