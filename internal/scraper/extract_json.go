package scraper

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"palmer/pkg/models"
)

// listingJSON is one element of the API's "hackathons" array. Pointer fields
// distinguish a missing key from an empty value.
type listingJSON struct {
	Title             string  `json:"title"`
	URL               string  `json:"url"`
	OpenState         *string `json:"open_state"`
	DisplayedLocation *struct {
		Location string `json:"location"`
	} `json:"displayed_location"`
	PrizeAmount           *string         `json:"prize_amount"`
	Themes                *[]themeJSON    `json:"themes"`
	InviteOnly            bool            `json:"invite_only"`
	OrganizationName      *string         `json:"organization_name"`
	RegistrationsCount    json.RawMessage `json:"registrations_count"`
	SubmissionPeriodDates *string         `json:"submission_period_dates"`
	Featured              *bool           `json:"featured"`
	ThumbnailURL          *string         `json:"thumbnail_url"`
}

type themeJSON struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// prizeMarkup is the wrapper the API puts around the currency amount.
var prizeMarkup = strings.NewReplacer(
	"<span data-currency-value>", "",
	"</span>", "",
)

func extractObject(obj json.RawMessage) (models.CanonicalRecord, error) {
	var rec models.CanonicalRecord

	var in listingJSON
	if err := json.Unmarshal(obj, &in); err != nil {
		return rec, eris.Wrap(err, "decode listing object")
	}

	title := strings.TrimSpace(in.Title)
	u := strings.TrimSpace(in.URL)
	if title == "" || u == "" {
		return rec, eris.Wrap(ErrSkip, "object missing title or url")
	}
	rec.URL = u
	rec.Title = &title

	status := DefaultStatus
	if in.OpenState != nil && strings.TrimSpace(*in.OpenState) != "" {
		status = strings.ToLower(strings.TrimSpace(*in.OpenState))
	}
	rec.Status = &status

	location := DefaultLocation
	if in.DisplayedLocation != nil && cleanText(in.DisplayedLocation.Location) != "" {
		location = cleanText(in.DisplayedLocation.Location)
	}
	rec.Location = &location

	if in.PrizeAmount != nil {
		rec.Prizes = map[string]string{}
		if p := cleanText(prizeMarkup.Replace(*in.PrizeAmount)); p != "" {
			rec.Prizes[PrizeTotalKey] = p
		}
	}

	if in.Themes != nil {
		rec.Tags = make([]string, 0, len(*in.Themes))
		for _, t := range *in.Themes {
			if name := cleanText(t.Name); name != "" {
				rec.Tags = append(rec.Tags, name)
			}
		}
	}

	visibility := VisibilityPublic
	if in.InviteOnly {
		visibility = VisibilityInviteOnly
	}
	rec.Visibility = &visibility

	if in.OrganizationName != nil {
		rec.Organizer = optional(*in.OrganizationName)
	}
	if len(in.RegistrationsCount) > 0 && string(in.RegistrationsCount) != "null" {
		n := parseRegistrations(in.RegistrationsCount)
		rec.ParticipantsCount = &n
	}
	if in.SubmissionPeriodDates != nil {
		rec.StartDate, rec.EndDate = splitDateRange(*in.SubmissionPeriodDates)
	}

	extras := map[string]any{}
	if in.Featured != nil {
		extras["featured"] = *in.Featured
	}
	if in.ThumbnailURL != nil {
		extras["thumbnail_url"] = strings.TrimSpace(*in.ThumbnailURL)
	}
	if len(extras) > 0 {
		rec.Extras = extras
	}

	return rec, nil
}

// parseRegistrations reads registrations_count, which the API sends either
// as a JSON number or as free text like "1,234 registered". Numbers are
// truncated toward zero; negative, non-finite or out-of-range values give 0.
func parseRegistrations(raw json.RawMessage) int {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0
		}
		return ParseCount(s)
	}

	var num json.Number
	if err := json.Unmarshal(raw, &num); err != nil {
		return 0
	}
	if n, err := num.Int64(); err == nil {
		if n < 0 || n > math.MaxInt32 {
			return 0
		}
		return int(n)
	}
	f, err := num.Float64()
	if err != nil || math.IsNaN(f) || f < 0 || f > math.MaxInt32 {
		return 0
	}
	return int(f)
}
