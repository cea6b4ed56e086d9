package remote

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// SyncOptions configure a single Sync pass.
type SyncOptions struct {
	// DryRun computes the diff without mutating anything.
	DryRun bool
}

// SyncReport summarizes a Sync pass. The id lists are sorted.
type SyncReport struct {
	// Published and Unpublished count completed mutations. In a dry run
	// they count the planned ones.
	Published   int
	Unpublished int

	ToPublish   []string
	ToUnpublish []string
	Unchanged   []string

	DryRun   bool
	Approved bool
}

// Reconciler converges a Collection onto a desired set of records.
type Reconciler struct {
	coll        Collection
	parallelism int
	logger      *slog.Logger
}

// Option customizes a Reconciler.
type Option func(*Reconciler)

// WithParallelism bounds concurrent mutations within each group.
// Values below 2 keep mutations sequential.
func WithParallelism(n int) Option {
	return func(r *Reconciler) { r.parallelism = n }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Reconciler) { r.logger = l }
}

// NewReconciler creates a Reconciler for coll.
func NewReconciler(coll Collection, opts ...Option) *Reconciler {
	r := &Reconciler{coll: coll, parallelism: 1, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Sync publishes desired (id -> canonical payload) to the collection.
//
// The collection is listed once. Records whose payload differs, or that
// are missing, are upserted; records not in desired are deleted. Every
// upsert completes before the first delete is issued. The first failing
// mutation aborts the rest and is returned as *SyncPartialFailure, with no
// approval. Otherwise, if anything was mutated, pending changes are
// approved exactly once.
func (r *Reconciler) Sync(ctx context.Context, desired map[string][]byte, opts SyncOptions) (SyncReport, error) {
	report := SyncReport{DryRun: opts.DryRun}

	records, err := r.coll.ListRecords(ctx)
	if err != nil {
		return report, unavailable("list", err)
	}

	current := make(map[string][]byte, len(records))
	for _, rec := range records {
		current[rec.ID] = rec.Payload
	}

	for id, payload := range desired {
		existing, ok := current[id]
		switch {
		case !ok, !bytes.Equal(existing, payload):
			report.ToPublish = append(report.ToPublish, id)
		default:
			report.Unchanged = append(report.Unchanged, id)
		}
	}
	for id := range current {
		if _, ok := desired[id]; !ok {
			report.ToUnpublish = append(report.ToUnpublish, id)
		}
	}
	slices.Sort(report.ToPublish)
	slices.Sort(report.ToUnpublish)
	slices.Sort(report.Unchanged)

	r.logger.Info("remote settings diff",
		"to_publish", len(report.ToPublish),
		"to_unpublish", len(report.ToUnpublish),
		"unchanged", len(report.Unchanged),
		"dry_run", opts.DryRun,
	)
	if opts.DryRun {
		report.Published = len(report.ToPublish)
		report.Unpublished = len(report.ToUnpublish)
		return report, nil
	}

	published, err := r.apply(ctx, OpUpsert, report.ToPublish, func(ctx context.Context, id string) error {
		return r.coll.UpsertRecord(ctx, Record{ID: id, Payload: desired[id]})
	})
	report.Published = published
	if err != nil {
		return report, err
	}

	unpublished, err := r.apply(ctx, OpDelete, report.ToUnpublish, func(ctx context.Context, id string) error {
		return r.coll.DeleteRecord(ctx, id)
	})
	report.Unpublished = unpublished
	if err != nil {
		return report, err
	}

	if report.Published+report.Unpublished == 0 {
		return report, nil
	}
	if err := r.coll.ApprovePendingChanges(ctx); err != nil {
		return report, unavailable("approve", err)
	}
	report.Approved = true
	r.logger.Info("remote settings changes approved",
		"published", report.Published,
		"unpublished", report.Unpublished,
	)
	return report, nil
}

// apply runs fn for every id, sequentially or through a bounded errgroup.
// It returns how many calls succeeded and the first failure.
func (r *Reconciler) apply(ctx context.Context, op Op, ids []string, fn func(context.Context, string) error) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	if r.parallelism < 2 {
		for i, id := range ids {
			if err := ctx.Err(); err != nil {
				return i, err
			}
			if err := fn(ctx, id); err != nil {
				return i, &SyncPartialFailure{ID: id, Op: op, Cause: err}
			}
			r.logger.Debug("record mutated", "op", op, "id", id)
		}
		return len(ids), nil
	}

	var done atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallelism)
	for _, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := fn(gctx, id); err != nil {
				return &SyncPartialFailure{ID: id, Op: op, Cause: err}
			}
			done.Add(1)
			r.logger.Debug("record mutated", "op", op, "id", id)
			return nil
		})
	}
	err := g.Wait()
	return int(done.Load()), err
}

func unavailable(op string, err error) error {
	var ru *RemoteUnavailable
	if errors.As(err, &ru) {
		return err
	}
	return &RemoteUnavailable{Op: op, Cause: err}
}
