// Package ingest turns a flat's mailbox into persisted, deduplicated bills.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/flateze/flateze/internal/billstore"
	"github.com/flateze/flateze/internal/extractor"
	"github.com/flateze/flateze/internal/logger"
	"github.com/flateze/flateze/internal/mailbox"
	"github.com/flateze/flateze/internal/metrics"
	"github.com/flateze/flateze/internal/model"
)

// ErrMailbox marks connection, search and fetch faults. They abort the
// invocation; retrying is up to the caller.
var ErrMailbox = errors.New("mailbox fault")

// Report counts what one invocation did. Every fetched message lands in
// exactly one of Created, Duplicates, ParseFailures, Unrecognized or
// PersistFailures.
type Report struct {
	FlatID          string    `json:"flat_id"`
	Since           time.Time `json:"since"`
	Seen            int       `json:"messages_seen"`
	Parsed          int       `json:"bills_parsed"`
	Created         int       `json:"bills_created"`
	Duplicates      int       `json:"duplicates"`
	ParseFailures   int       `json:"parse_failures"`
	Unrecognized    int       `json:"unrecognized"`
	PersistFailures int       `json:"persist_failures"`
	CreatedIDs      []string  `json:"created_ids,omitempty"`
	DuplicateIDs    []string  `json:"duplicate_ids,omitempty"` // ids of the stored bills matched, when known
}

// Ingestor runs ingestion for one flat at a time. Callers must not run two
// invocations for the same flat concurrently.
type Ingestor struct {
	extractor *extractor.Extractor
	store     billstore.Store
	notifier  Notifier
	log       logger.Logger
	now       func() time.Time
}

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithNotifier sets the hook called after each bill is created.
func WithNotifier(n Notifier) Option {
	return func(in *Ingestor) { in.notifier = n }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(in *Ingestor) { in.log = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(in *Ingestor) { in.now = now }
}

// New creates an Ingestor.
func New(ex *extractor.Extractor, store billstore.Store, opts ...Option) *Ingestor {
	in := &Ingestor{
		extractor: ex,
		store:     store,
		notifier:  NopNotifier{},
		log:       logger.Nop(),
		now:       time.Now,
	}
	for _, o := range opts {
		o(in)
	}
	return in
}

// Ingest fetches every message received since since and persists the bills
// found in them. Per-message faults are counted and skipped. A mailbox
// fault or cancellation returns the partial report with the error; bills
// already created stay created.
func (in *Ingestor) Ingest(ctx context.Context, flatID string, dialer mailbox.Dialer, since time.Time) (Report, error) {
	rep := Report{FlatID: flatID, Since: since}
	log := in.log.With("flat_id", flatID)
	start := in.now()

	rep, err := in.run(ctx, log, flatID, dialer, since, rep)

	status := "ok"
	switch {
	case errors.Is(err, ErrMailbox):
		status = "mailbox_error"
	case err != nil:
		status = "cancelled"
	}
	metrics.IngestRunsTotal.WithLabelValues(status).Inc()
	metrics.IngestRunDuration.WithLabelValues(status).Observe(in.now().Sub(start).Seconds())

	if err != nil {
		log.Warnw("ingest aborted", "error", err, "seen", rep.Seen, "created", rep.Created)
		return rep, err
	}
	log.Infow("ingest finished",
		"seen", rep.Seen,
		"parsed", rep.Parsed,
		"created", rep.Created,
		"duplicates", rep.Duplicates,
		"parse_failures", rep.ParseFailures,
		"unrecognized", rep.Unrecognized,
		"persist_failures", rep.PersistFailures,
	)
	return rep, nil
}

func (in *Ingestor) run(ctx context.Context, log logger.Logger, flatID string, dialer mailbox.Dialer, since time.Time, rep Report) (Report, error) {
	mb, err := dialer.Dial(ctx)
	if err != nil {
		return rep, mailboxErr(ctx, "connecting", err)
	}
	defer func() {
		if cerr := mb.Close(); cerr != nil {
			log.Warnw("closing mailbox", "error", cerr)
		}
	}()

	refs, err := mb.SearchSince(ctx, since)
	if err != nil {
		return rep, mailboxErr(ctx, "searching", err)
	}
	log.Debugw("mailbox searched", "since", since, "candidates", len(refs))

	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		raw, err := mb.Fetch(ctx, ref)
		if err != nil {
			return rep, mailboxErr(ctx, "fetching "+ref.ID, err)
		}
		rep.Seen++
		in.handle(ctx, log.With("message_id", ref.ID), flatID, ref, raw, &rep)
	}
	return rep, nil
}

func (in *Ingestor) handle(ctx context.Context, log logger.Logger, flatID string, ref mailbox.MessageRef, raw []byte, rep *Report) {
	eb, ok, err := in.extractor.ExtractRaw(raw, ref.ReceivedAt)
	if err != nil {
		rep.ParseFailures++
		count("parse_failure")
		log.Warnw("skipping malformed message", "error", err)
		return
	}
	if !ok {
		rep.Unrecognized++
		count("unrecognized")
		log.Debugw("no bill in message")
		return
	}
	rep.Parsed++

	bill := model.NewBill(flatID, *eb, in.now())
	if verrs := billstore.Validate(bill); len(verrs) > 0 {
		rep.PersistFailures++
		count("persist_failure")
		log.Warnw("bill failed validation", "error", billstore.ValidationErrors(verrs))
		return
	}

	existing, err := in.store.FindDuplicate(ctx, bill.Key())
	if err != nil {
		rep.PersistFailures++
		count("persist_failure")
		log.Errorw("duplicate lookup failed", "error", err)
		return
	}
	if existing != nil {
		rep.Duplicates++
		rep.DuplicateIDs = append(rep.DuplicateIDs, existing.ID)
		count("duplicate")
		log.Debugw("duplicate bill", "existing_id", existing.ID)
		return
	}

	created, err := in.store.CreateBill(ctx, bill)
	if errors.Is(err, billstore.ErrDuplicate) {
		rep.Duplicates++
		count("duplicate")
		return
	}
	if err != nil {
		rep.PersistFailures++
		count("persist_failure")
		log.Errorw("creating bill failed", "error", err)
		return
	}

	rep.Created++
	rep.CreatedIDs = append(rep.CreatedIDs, created.ID)
	count("created")
	metrics.BillsCreatedAmount.WithLabelValues(string(created.Type)).Add(created.Amount.InexactFloat64())
	log.Infow("bill created",
		"bill_id", created.ID,
		"company", created.Company,
		"amount", created.Amount.StringFixed(2),
	)

	if err := in.notifier.BillCreated(ctx, *created); err != nil {
		log.Warnw("bill notification failed", "bill_id", created.ID, "error", err)
	}
}

func count(outcome string) {
	metrics.IngestMessagesTotal.WithLabelValues(outcome).Inc()
}

// mailboxErr wraps err as a mailbox fault unless ctx ended first.
func mailboxErr(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("%w: %s: %w", ErrMailbox, op, err)
}
