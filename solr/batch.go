package solr

import (
	"context"
	"log/slog"
)

// DocWriter is the subset of Client operations needed by BatchAdder.
type DocWriter interface {
	Add(ctx context.Context, docs []Document, commit bool) error
	Commit(ctx context.Context) error
}

// defaultBatchSize trades write latency for throughput; batching around
// a hundred documents per update call improves indexing rates
// significantly over single adds for typical schemas.
const defaultBatchSize = 100

// FlushError records one document that could not be written during the
// per-document fallback pass of a flush.
type FlushError struct {
	Doc Document
	Err error
}

// BatchAdder buffers documents client-side and writes them to Solr in
// batches of up to batchSize, decoupling the caller's per-document
// submission rate from the server's preferred write granularity.
// Worst-case memory is bounded by the batch size.
//
// A BatchAdder must be flushed before disposal or the buffered tail is
// lost; RunBatch wraps that discipline. It is reusable across flush
// cycles and is not safe for concurrent use.
type BatchAdder struct {
	writer     DocWriter
	batch      []Document
	batchSize  int
	autoCommit bool
	logger     *slog.Logger
}

// BatchOption configures optional BatchAdder behavior.
type BatchOption func(*BatchAdder)

// WithBatchSize sets how many documents are buffered before an
// automatic flush. Defaults to 100.
func WithBatchSize(n int) BatchOption {
	return func(b *BatchAdder) {
		if n > 0 {
			b.batchSize = n
		}
	}
}

// WithAutoCommit makes every flush issue a commit after its writes.
func WithAutoCommit(on bool) BatchOption {
	return func(b *BatchAdder) { b.autoCommit = on }
}

// WithBatchLogger injects the logger used for diagnostic events.
// Defaults to slog.Default().
func WithBatchLogger(l *slog.Logger) BatchOption {
	return func(b *BatchAdder) { b.logger = l }
}

// NewBatchAdder creates a BatchAdder writing through w.
func NewBatchAdder(w DocWriter, opts ...BatchOption) *BatchAdder {
	b := &BatchAdder{
		writer:    w,
		batchSize: defaultBatchSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Len returns the number of currently buffered documents.
func (b *BatchAdder) Len() int { return len(b.batch) }

// AddOne appends doc to the buffer. If the buffer reaches the batch
// size it is flushed immediately; the returned slice carries any
// per-document failures from that flush, nil otherwise.
func (b *BatchAdder) AddOne(ctx context.Context, doc Document) []FlushError {
	b.batch = append(b.batch, doc)
	if len(b.batch) >= b.batchSize {
		return b.Flush(ctx)
	}
	return nil
}

// AddMany appends each document in order, flushing mid-sequence
// whenever the buffer fills. Failures from all intermediate flushes are
// accumulated into the returned slice.
func (b *BatchAdder) AddMany(ctx context.Context, docs []Document) []FlushError {
	var failures []FlushError
	for _, doc := range docs {
		failures = append(failures, b.AddOne(ctx, doc)...)
	}
	return failures
}

// Flush writes the entire buffer to Solr in one batched add. If the
// batched call fails for any reason, Flush degrades to one add call per
// buffered document; individual failures are logged, collected into the
// returned slice, and never abort the rest of the pass. With auto
// commit on, a commit follows the writes (its failure is logged and
// swallowed, since the writes themselves already landed). The buffer is
// empty when Flush returns, no matter how many writes succeeded.
func (b *BatchAdder) Flush(ctx context.Context) []FlushError {
	if len(b.batch) == 0 {
		return nil
	}

	b.logger.Debug("flushing batch", "batch_len", len(b.batch), "auto_commit", b.autoCommit)

	err := b.writer.Add(ctx, b.batch, b.autoCommit)
	if err == nil {
		b.batch = nil
		return nil
	}
	b.logger.Error("batch add failed, falling back to per-document adds",
		"batch_len", len(b.batch),
		"error", err,
	)

	var failures []FlushError
	for _, doc := range b.batch {
		if err := b.writer.Add(ctx, []Document{doc}, false); err != nil {
			b.logger.Error("could not add document during fallback", "error", err)
			failures = append(failures, FlushError{Doc: doc, Err: err})
		}
	}
	if b.autoCommit {
		b.commit(ctx)
	}

	b.batch = nil
	return failures
}

// commit issues a commit and tolerates its failure: a timed-out or
// failed commit response does not mean the writes were lost, only that
// visibility is delayed.
func (b *BatchAdder) commit(ctx context.Context) {
	if err := b.writer.Commit(ctx); err != nil {
		b.logger.Warn("commit failed after flush, writes are already applied", "error", err)
	}
}

// RunBatch runs fn with a fresh BatchAdder and guarantees a final flush
// on every exit path, including error returns and panics. Auto commit
// is off unless enabled through opts.
//
//	err := solr.RunBatch(ctx, client, func(b *solr.BatchAdder) error {
//		for _, doc := range docs {
//			b.AddOne(ctx, doc)
//		}
//		return nil
//	})
func RunBatch(ctx context.Context, w DocWriter, fn func(*BatchAdder) error, opts ...BatchOption) error {
	b := NewBatchAdder(w, opts...)
	defer func() {
		if n := b.Len(); n > 0 {
			b.logger.Info("flushing remaining documents in batch", "pending", n)
		}
		b.Flush(ctx)
	}()
	return fn(b)
}
