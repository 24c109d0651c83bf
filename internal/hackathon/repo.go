package hackathon

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rotisserie/eris"

	"palmer/internal/scraper"
	"palmer/pkg/database"
	"palmer/pkg/models"
)

const columns = `id, url, title, tagline, status, start_date, end_date, submission_deadline,
	location, visibility, participants_count, organizer, prizes, tags,
	eligibility, sponsors, judges, judging_criteria, description, requirements,
	featured, thumbnail_url, scraped_at, updated_at`

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Repo is the hackathon store. It serves the read-only query surface and,
// through WithinTx, the ingestion reconciler.
type Repo struct {
	DB *database.DB
}

func NewRepo(db *database.DB) *Repo {
	return &Repo{DB: db}
}

var _ scraper.Store = (*Repo)(nil)

func (r *Repo) List(ctx context.Context) ([]models.Hackathon, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+columns+` FROM hackathons ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "list query")
	}
	defer rows.Close()

	out := make([]models.Hackathon, 0)
	for rows.Next() {
		h, err := scanHackathon(rows)
		if err != nil {
			return nil, eris.Wrap(err, "list scan")
		}
		out = append(out, *h)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "list rows")
	}
	return out, nil
}

// GetByID returns nil, nil when no hackathon has that id.
func (r *Repo) GetByID(ctx context.Context, id int64) (*models.Hackathon, error) {
	row := r.DB.QueryRowContext(ctx, r.DB.Rebind(`SELECT `+columns+` FROM hackathons WHERE id = ?`), id)
	h, err := scanHackathon(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "get hackathon %d", id)
	}
	return h, nil
}

// GetByURL returns nil, nil when no hackathon has that url.
func (r *Repo) GetByURL(ctx context.Context, url string) (*models.Hackathon, error) {
	return findByURL(ctx, r.DB.DB, r.DB, url)
}

// Stats is the status breakdown. A null or empty status counts as "unknown".
type Stats struct {
	Total    int            `json:"total_hackathons"`
	ByStatus map[string]int `json:"by_status"`
}

func (r *Repo) CountByStatus(ctx context.Context) (Stats, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT COALESCE(NULLIF(status, ''), 'unknown'), COUNT(*)
		FROM hackathons
		GROUP BY 1
	`)
	if err != nil {
		return Stats{}, eris.Wrap(err, "count by status")
	}
	defer rows.Close()

	st := Stats{ByStatus: map[string]int{}}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return Stats{}, eris.Wrap(err, "count by status scan")
		}
		st.ByStatus[status] += n
		st.Total += n
	}
	if err := rows.Err(); err != nil {
		return Stats{}, eris.Wrap(err, "count by status rows")
	}
	return st, nil
}

// Fingerprint changes whenever a row is added or updated. It is used to
// decide when derived data, like the search index, is stale.
func (r *Repo) Fingerprint(ctx context.Context) (string, error) {
	var (
		n      int
		latest sql.NullString
	)
	row := r.DB.QueryRowContext(ctx, `SELECT COUNT(*), MAX(updated_at) FROM hackathons`)
	if err := row.Scan(&n, &latest); err != nil {
		return "", eris.Wrap(err, "fingerprint")
	}
	return fmt.Sprintf("%d|%s", n, latest.String), nil
}

// WithinTx runs fn in one transaction, committing only if fn returns nil.
func (r *Repo) WithinTx(ctx context.Context, fn func(tx scraper.Tx) error) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	if err := fn(&txAccessor{tx: tx, db: r.DB}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "commit tx")
	}
	return nil
}

type txAccessor struct {
	tx *sql.Tx
	db *database.DB
}

func (a *txAccessor) FindByURL(ctx context.Context, url string) (*models.Hackathon, error) {
	return findByURL(ctx, a.tx, a.db, url)
}

func (a *txAccessor) Create(ctx context.Context, rec models.CanonicalRecord, now time.Time) (*models.Hackathon, error) {
	h := models.NewHackathon(rec, now)
	args, err := rowArgs(h)
	if err != nil {
		return nil, err
	}

	row := a.tx.QueryRowContext(ctx, a.db.Rebind(`
		INSERT INTO hackathons (url, title, tagline, status, start_date, end_date, submission_deadline,
			location, visibility, participants_count, organizer, prizes, tags,
			eligibility, sponsors, judges, judging_criteria, description, requirements,
			featured, thumbnail_url, updated_at, scraped_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`), append([]any{h.URL}, append(args, h.ScrapedAt)...)...)
	if err := row.Scan(&h.ID); err != nil {
		return nil, eris.Wrapf(err, "insert %s", h.URL)
	}
	return h, nil
}

func (a *txAccessor) Update(ctx context.Context, existing *models.Hackathon, rec models.CanonicalRecord, now time.Time) error {
	existing.Apply(rec, now)
	args, err := rowArgs(existing)
	if err != nil {
		return err
	}

	res, err := a.tx.ExecContext(ctx, a.db.Rebind(`
		UPDATE hackathons SET
			title = ?, tagline = ?, status = ?, start_date = ?, end_date = ?, submission_deadline = ?,
			location = ?, visibility = ?, participants_count = ?, organizer = ?, prizes = ?, tags = ?,
			eligibility = ?, sponsors = ?, judges = ?, judging_criteria = ?, description = ?, requirements = ?,
			featured = ?, thumbnail_url = ?, updated_at = ?
		WHERE id = ?
	`), append(args, existing.ID)...)
	if err != nil {
		return eris.Wrapf(err, "update %s", existing.URL)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return eris.Wrapf(err, "update %s rows", existing.URL)
	}
	if affected == 0 {
		return eris.Errorf("update %s: row %d not found", existing.URL, existing.ID)
	}
	return nil
}

func findByURL(ctx context.Context, q queryer, db *database.DB, url string) (*models.Hackathon, error) {
	row := q.QueryRowContext(ctx, db.Rebind(`SELECT `+columns+` FROM hackathons WHERE url = ?`), url)
	h, err := scanHackathon(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "find %s", url)
	}
	return h, nil
}

// rowArgs lists the mutable columns in the order shared by INSERT and
// UPDATE, ending with updated_at.
func rowArgs(h *models.Hackathon) ([]any, error) {
	prizes, err := jsonText(h.Prizes, h.Prizes == nil)
	if err != nil {
		return nil, eris.Wrap(err, "encode prizes")
	}
	tags, err := jsonText(h.Tags, h.Tags == nil)
	if err != nil {
		return nil, eris.Wrap(err, "encode tags")
	}
	var featured any
	if h.Featured != nil {
		featured = *h.Featured
	}

	return []any{
		h.Title, h.Tagline, h.Status, h.StartDate, h.EndDate, h.SubmissionDeadline,
		h.Location, h.Visibility, h.ParticipantsCount, h.Organizer, prizes, tags,
		rawText(h.Eligibility), rawText(h.Sponsors), rawText(h.Judges), rawText(h.JudgingCriteria),
		h.Description, h.Requirements,
		featured, h.ThumbnailURL, h.UpdatedAt,
	}, nil
}

func jsonText(v any, isNil bool) (any, error) {
	if isNil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func rawText(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanHackathon(s scanner) (*models.Hackathon, error) {
	var (
		h                                                   models.Hackathon
		title, tagline, status, startDate, endDate, dl      sql.NullString
		location, visibility, organizer, prizes, tags       sql.NullString
		eligibility, sponsors, judges, criteria, desc, reqs sql.NullString
		thumbnail                                           sql.NullString
		featured                                            sql.NullBool
	)
	if err := s.Scan(
		&h.ID, &h.URL, &title, &tagline, &status, &startDate, &endDate, &dl,
		&location, &visibility, &h.ParticipantsCount, &organizer, &prizes, &tags,
		&eligibility, &sponsors, &judges, &criteria, &desc, &reqs,
		&featured, &thumbnail, &h.ScrapedAt, &h.UpdatedAt,
	); err != nil {
		return nil, err
	}

	h.Title = nullString(title)
	h.Tagline = nullString(tagline)
	h.Status = nullString(status)
	h.StartDate = nullString(startDate)
	h.EndDate = nullString(endDate)
	h.SubmissionDeadline = nullString(dl)
	h.Location = nullString(location)
	h.Visibility = nullString(visibility)
	h.Organizer = nullString(organizer)
	h.Description = nullString(desc)
	h.Requirements = nullString(reqs)
	h.ThumbnailURL = nullString(thumbnail)
	if featured.Valid {
		h.Featured = &featured.Bool
	}

	if prizes.Valid {
		if err := json.Unmarshal([]byte(prizes.String), &h.Prizes); err != nil {
			return nil, eris.Wrap(err, "decode prizes")
		}
	}
	h.Tags = []string{}
	if tags.Valid {
		if err := json.Unmarshal([]byte(tags.String), &h.Tags); err != nil {
			return nil, eris.Wrap(err, "decode tags")
		}
	}
	h.Eligibility = nullRaw(eligibility)
	h.Sponsors = nullRaw(sponsors)
	h.Judges = nullRaw(judges)
	h.JudgingCriteria = nullRaw(criteria)

	h.ScrapedAt = h.ScrapedAt.UTC()
	h.UpdatedAt = h.UpdatedAt.UTC()
	return &h, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullRaw(ns sql.NullString) json.RawMessage {
	if !ns.Valid {
		return nil
	}
	return json.RawMessage(ns.String)
}
