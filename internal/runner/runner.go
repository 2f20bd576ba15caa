// Package runner drives ingestion for configured flats: one run per flat at
// a time, bounded in time, retried after mailbox faults.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/flateze/flateze/internal/config"
	"github.com/flateze/flateze/internal/flatlock"
	"github.com/flateze/flateze/internal/ingest"
	"github.com/flateze/flateze/internal/ingestlog"
	"github.com/flateze/flateze/internal/logger"
	"github.com/flateze/flateze/internal/mailbox"
	"github.com/flateze/flateze/internal/metrics"
)

// ErrUnknownFlat is returned for a flat id missing from the config.
var ErrUnknownFlat = errors.New("unknown flat")

// Result is the outcome of one flat's run.
type Result struct {
	FlatID string
	Report ingest.Report
	Err    error
}

// Runner runs ingestion for the flats in a Config.
type Runner struct {
	cfg      *config.Config
	ingestor *ingest.Ingestor
	locker   flatlock.Locker
	log      logger.Logger
	logRoot  string
	dialer   func(config.FlatConfig) mailbox.Dialer
	now      func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Runner) { r.log = l }
}

// WithIngestLog appends every run to <root>/logs/ingest-log.csv.
func WithIngestLog(root string) Option {
	return func(r *Runner) { r.logRoot = root }
}

// WithDialer overrides how a flat's mailbox is opened.
func WithDialer(fn func(config.FlatConfig) mailbox.Dialer) Option {
	return func(r *Runner) { r.dialer = fn }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// New creates a Runner.
func New(cfg *config.Config, in *ingest.Ingestor, locker flatlock.Locker, opts ...Option) *Runner {
	r := &Runner{
		cfg:      cfg,
		ingestor: in,
		locker:   locker,
		log:      logger.Nop(),
		dialer:   func(f config.FlatConfig) mailbox.Dialer { return f.Mailbox.Dialer() },
		now:      time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// RunFlat ingests one flat. A zero since means now minus the configured
// lookback. Returns flatlock.ErrLocked if the flat is already running.
func (r *Runner) RunFlat(ctx context.Context, flatID string, since time.Time) (ingest.Report, error) {
	flat, ok := r.cfg.Flat(flatID)
	if !ok {
		return ingest.Report{}, fmt.Errorf("%w: %s", ErrUnknownFlat, flatID)
	}
	return r.runFlat(ctx, flat, since)
}

func (r *Runner) runFlat(ctx context.Context, flat config.FlatConfig, since time.Time) (ingest.Report, error) {
	log := r.log.With("flat_id", flat.ID)
	if since.IsZero() {
		since = r.now().Add(-r.cfg.Ingest.Lookback)
	}

	release, err := r.locker.Acquire(ctx, flat.ID)
	if err != nil {
		if errors.Is(err, flatlock.ErrLocked) {
			log.Infow("ingest already running, skipping")
		}
		return ingest.Report{FlatID: flat.ID, Since: since}, err
	}
	defer release()

	dialer := r.dialer(flat)
	var rep ingest.Report
	attempt := 0
	op := func() error {
		attempt++
		actx, cancel := context.WithTimeout(ctx, r.cfg.Ingest.Timeout)
		defer cancel()

		cur, err := r.ingestor.Ingest(actx, flat.ID, dialer, since)
		if attempt == 1 {
			rep = cur
		} else {
			rep = carryCreated(rep, cur)
		}
		if err == nil {
			return nil
		}
		if errors.Is(err, ingest.ErrMailbox) && ctx.Err() == nil {
			return err
		}
		return backoff.Permanent(err)
	}
	notify := func(err error, next time.Duration) {
		metrics.IngestRetriesTotal.WithLabelValues(flat.ID).Inc()
		log.Warnw("mailbox fault, retrying", "attempt", attempt, "next_in", next, "error", err)
	}

	err = backoff.RetryNotify(op, r.backoff(ctx), notify)
	r.appendLog(log, rep, err)
	return rep, err
}

// carryCreated folds the bills an aborted earlier attempt created into the
// report of the attempt after it. The later attempt counted those it reached
// as duplicates; the rest it never saw.
func carryCreated(prev, cur ingest.Report) ingest.Report {
	if len(prev.CreatedIDs) == 0 {
		return cur
	}
	earlier := make(map[string]bool, len(prev.CreatedIDs))
	for _, id := range prev.CreatedIDs {
		earlier[id] = true
	}

	var dups []string
	for _, id := range cur.DuplicateIDs {
		if earlier[id] {
			delete(earlier, id)
			cur.Duplicates--
			cur.Created++
			continue
		}
		dups = append(dups, id)
	}
	cur.DuplicateIDs = dups

	// Created earlier but not reached this time.
	cur.Seen += len(earlier)
	cur.Parsed += len(earlier)
	cur.Created += len(earlier)

	cur.CreatedIDs = append(append([]string{}, prev.CreatedIDs...), cur.CreatedIDs...)
	return cur
}

func (r *Runner) backoff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = r.cfg.Retry.InitialInterval
	exp.MaxInterval = r.cfg.Retry.MaxInterval
	exp.Multiplier = 2
	exp.MaxElapsedTime = 0

	attempts := r.cfg.Retry.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(attempts-1)), ctx)
}

func (r *Runner) appendLog(log logger.Logger, rep ingest.Report, runErr error) {
	if r.logRoot == "" {
		return
	}
	if err := ingestlog.Append(r.logRoot, []ingestlog.Entry{ingestlog.FromReport(r.now(), rep, runErr)}); err != nil {
		log.Errorw("writing ingest log", "error", err)
	}
}

// RunAll ingests every configured flat, at most Ingest.Concurrency at once.
// One flat's failure never stops the others.
func (r *Runner) RunAll(ctx context.Context) []Result {
	results := make([]Result, len(r.cfg.Flats))

	g, gctx := errgroup.WithContext(ctx)
	limit := r.cfg.Ingest.Concurrency
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for i, flat := range r.cfg.Flats {
		g.Go(func() error {
			rep, err := r.runFlat(gctx, flat, time.Time{})
			results[i] = Result{FlatID: flat.ID, Report: rep, Err: err}
			if err != nil && !errors.Is(err, flatlock.ErrLocked) {
				r.log.Errorw("flat ingest failed", "flat_id", flat.ID, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
