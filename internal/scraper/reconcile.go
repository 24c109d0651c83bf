package scraper

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"palmer/pkg/models"
)

// Tx is the store accessor the reconciler works against inside one
// transaction. FindByURL returns nil, nil when no entity has that url.
type Tx interface {
	FindByURL(ctx context.Context, url string) (*models.Hackathon, error)
	Create(ctx context.Context, rec models.CanonicalRecord, now time.Time) (*models.Hackathon, error)
	Update(ctx context.Context, existing *models.Hackathon, rec models.CanonicalRecord, now time.Time) error
}

// Store opens transactions. fn's error rolls the transaction back; a nil
// return commits it.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// PersistenceError means a batch was rolled back. No counts are reported
// alongside it.
type PersistenceError struct {
	URL string // record being written when the failure happened, if any
	Err error
}

func (e *PersistenceError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("persist batch: %v", e.Err)
	}
	return fmt.Sprintf("persist batch at %s: %v", e.URL, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Result counts what one committed batch did.
type Result struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

type Reconciler struct {
	Store Store
	Now   func() time.Time
	Log   *zap.Logger
}

func NewReconciler(store Store, log *zap.Logger) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{
		Store: store,
		Now:   func() time.Time { return time.Now().UTC() },
		Log:   log,
	}
}

// Reconcile upserts records by url, in order, inside a single transaction.
// A url seen twice in one batch is created once and then updated, so the
// last occurrence wins. Once started the batch is not interrupted by ctx
// cancellation; it either commits whole or rolls back whole.
func (r *Reconciler) Reconcile(ctx context.Context, records iter.Seq[models.CanonicalRecord]) (Result, error) {
	ctx = context.WithoutCancel(ctx)

	var (
		res     Result
		current string
	)
	err := r.Store.WithinTx(ctx, func(tx Tx) error {
		for rec := range records {
			current = rec.URL
			if rec.URL == "" {
				return eris.New("record has no url")
			}

			now := r.Now()
			existing, err := tx.FindByURL(ctx, rec.URL)
			if err != nil {
				return eris.Wrap(err, "find by url")
			}

			if existing != nil {
				if err := tx.Update(ctx, existing, rec, now); err != nil {
					return eris.Wrap(err, "update")
				}
				res.Updated++
				continue
			}

			if _, err := tx.Create(ctx, rec, now); err != nil {
				return eris.Wrap(err, "create")
			}
			res.Created++
		}
		current = ""
		return nil
	})
	if err != nil {
		r.Log.Error("reconcile: batch rolled back", zap.String("url", current), zap.Error(err))
		return Result{}, &PersistenceError{URL: current, Err: err}
	}

	r.Log.Info("reconcile: batch committed", zap.Int("created", res.Created), zap.Int("updated", res.Updated))
	return res, nil
}
