package models

import (
	"encoding/json"
	"time"
)

// CanonicalRecord is the normalized, source-agnostic form of one listing.
//
// Every extractor maps its raw unit into this structure first, then the
// reconciler writes it to the store. A nil pointer, slice or map means the
// source did not provide the field; on update such fields leave the stored
// value untouched.
type CanonicalRecord struct {
	URL                string            `json:"url"` // natural key
	Title              *string           `json:"title,omitempty"`
	Tagline            *string           `json:"tagline,omitempty"`
	Status             *string           `json:"status,omitempty"`
	Location           *string           `json:"location,omitempty"`
	StartDate          *string           `json:"start_date,omitempty"`
	EndDate            *string           `json:"end_date,omitempty"`
	SubmissionDeadline *string           `json:"submission_deadline,omitempty"`
	Visibility         *string           `json:"visibility,omitempty"`
	ParticipantsCount  *int              `json:"participants_count,omitempty"`
	Organizer          *string           `json:"organizer,omitempty"`
	Tags               []string          `json:"tags,omitempty"`
	Prizes             map[string]string `json:"prizes,omitempty"`
	Description        *string           `json:"description,omitempty"`
	Requirements       *string           `json:"requirements,omitempty"`
	Extras             map[string]any    `json:"extras,omitempty"` // source-specific, applied only if the schema knows the name
}

// Hackathon is the persisted entity. It carries every CanonicalRecord field
// plus the store-assigned id, timestamps and the extra columns the schema
// recognizes.
type Hackathon struct {
	ID                 int64             `json:"id"`
	URL                string            `json:"url"`
	Title              *string           `json:"title"`
	Tagline            *string           `json:"tagline"`
	Status             *string           `json:"status"`
	StartDate          *string           `json:"start_date"`
	EndDate            *string           `json:"end_date"`
	SubmissionDeadline *string           `json:"submission_deadline"`
	Location           *string           `json:"location"`
	Visibility         *string           `json:"visibility"`
	ParticipantsCount  int               `json:"participants_count"`
	Organizer          *string           `json:"organizer"`
	Prizes             map[string]string `json:"prizes"`
	Tags               []string          `json:"tags"`
	Eligibility        json.RawMessage   `json:"eligibility"`
	Sponsors           json.RawMessage   `json:"sponsors"`
	Judges             json.RawMessage   `json:"judges"`
	JudgingCriteria    json.RawMessage   `json:"judging_criteria"`
	Description        *string           `json:"description"`
	Requirements       *string           `json:"requirements"`
	Featured           *bool             `json:"featured"`
	ThumbnailURL       *string           `json:"thumbnail_url"`
	ScrapedAt          time.Time         `json:"scraped_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// NewHackathon builds a not-yet-persisted entity from a record. Absent
// fields are written as given, except participants_count and tags which get
// their creation defaults.
func NewHackathon(rec CanonicalRecord, now time.Time) *Hackathon {
	h := &Hackathon{
		URL:       rec.URL,
		Tags:      []string{},
		ScrapedAt: now,
	}
	h.Apply(rec, now)
	return h
}

// Apply overwrites every field present on rec and stamps updated_at.
// Extras are matched against ExtraColumns; unknown names are dropped.
func (h *Hackathon) Apply(rec CanonicalRecord, now time.Time) {
	setIfPresent(&h.Title, rec.Title)
	setIfPresent(&h.Tagline, rec.Tagline)
	setIfPresent(&h.Status, rec.Status)
	setIfPresent(&h.Location, rec.Location)
	setIfPresent(&h.StartDate, rec.StartDate)
	setIfPresent(&h.EndDate, rec.EndDate)
	setIfPresent(&h.SubmissionDeadline, rec.SubmissionDeadline)
	setIfPresent(&h.Visibility, rec.Visibility)
	setIfPresent(&h.Organizer, rec.Organizer)
	setIfPresent(&h.Description, rec.Description)
	setIfPresent(&h.Requirements, rec.Requirements)

	if rec.ParticipantsCount != nil {
		h.ParticipantsCount = *rec.ParticipantsCount
	}
	if rec.Tags != nil {
		h.Tags = append([]string{}, rec.Tags...)
	}
	if rec.Prizes != nil {
		h.Prizes = make(map[string]string, len(rec.Prizes))
		for k, v := range rec.Prizes {
			h.Prizes[k] = v
		}
	}

	for name, v := range rec.Extras {
		if v == nil {
			continue
		}
		if set, ok := ExtraColumns[name]; ok {
			set(h, v)
		}
	}

	h.UpdatedAt = now
}

// ExtraColumns maps the extra field names the schema has a column for to a
// setter. A value of the wrong type is ignored.
var ExtraColumns = map[string]func(h *Hackathon, v any){
	"featured": func(h *Hackathon, v any) {
		if b, ok := v.(bool); ok {
			h.Featured = &b
		}
	},
	"thumbnail_url": func(h *Hackathon, v any) {
		if s, ok := v.(string); ok {
			h.ThumbnailURL = &s
		}
	},
	"eligibility":      func(h *Hackathon, v any) { h.Eligibility = rawJSON(v) },
	"sponsors":         func(h *Hackathon, v any) { h.Sponsors = rawJSON(v) },
	"judges":           func(h *Hackathon, v any) { h.Judges = rawJSON(v) },
	"judging_criteria": func(h *Hackathon, v any) { h.JudgingCriteria = rawJSON(v) },
}

func setIfPresent(dst **string, v *string) {
	if v == nil {
		return
	}
	s := *v
	*dst = &s
}

func rawJSON(v any) json.RawMessage {
	if raw, ok := v.(json.RawMessage); ok {
		return raw
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
