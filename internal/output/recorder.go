// internal/output/recorder.go
package output

import (
	"context"
	"sync"
	"time"

	"github.com/valpere/VidSieve/internal/utils"
	"github.com/valpere/VidSieve/pkg/types"
)

// recordOp is one queued write
type recordOp struct {
	entry *types.HistoryEntry
	delta types.StatsDelta
}

// Recorder queues history entries and stats deltas and persists them on a
// single background worker, so a scan never waits on storage. Writes that
// fail are logged and dropped.
type Recorder struct {
	store   Store
	logger  utils.Logger
	timeout time.Duration
	onError func(err error)

	queue chan recordOp
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

// RecorderOption customizes a Recorder
type RecorderOption func(*Recorder)

// WithErrorHook is called for every failed or dropped write
func WithErrorHook(hook func(err error)) RecorderOption {
	return func(r *Recorder) { r.onError = hook }
}

// WithWriteTimeout bounds each store call
func WithWriteTimeout(timeout time.Duration) RecorderOption {
	return func(r *Recorder) { r.timeout = timeout }
}

// NewRecorder starts the worker. bufferSize bounds the queue.
func NewRecorder(store Store, bufferSize int, logger utils.Logger, opts ...RecorderOption) *Recorder {
	if bufferSize <= 0 {
		bufferSize = DefaultStoreConfig().BufferSize
	}
	r := &Recorder{
		store:   store,
		logger:  utils.NewModuleLogger(logger, "recorder"),
		timeout: DefaultStoreConfig().Timeout,
		queue:   make(chan recordOp, bufferSize),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}

	go r.run()
	return r
}

// RecordHistory queues an entry
func (r *Recorder) RecordHistory(entry types.HistoryEntry) {
	r.enqueue(recordOp{entry: &entry})
}

// RecordStats queues a delta. Zero deltas are ignored.
func (r *Recorder) RecordStats(delta types.StatsDelta) {
	if delta.IsZero() {
		return
	}
	r.enqueue(recordOp{delta: delta})
}

func (r *Recorder) enqueue(op recordOp) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.fail(utils.NewError(utils.ErrCodePersistenceFailed, "recorder is closed"))
		return
	}

	select {
	case r.queue <- op:
	default:
		r.fail(utils.NewError(utils.ErrCodePersistenceFailed, "recorder queue is full, write dropped"))
	}
}

func (r *Recorder) run() {
	defer close(r.done)
	for op := range r.queue {
		r.write(op)
	}
}

func (r *Recorder) write(op recordOp) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if op.entry != nil {
		if err := r.store.AppendHistory(ctx, *op.entry); err != nil {
			r.fail(utils.WrapError(err, utils.ErrCodePersistenceFailed, "failed to append history").
				WithContext("title", op.entry.Title))
		}
		return
	}
	if err := r.store.AddStats(ctx, op.delta); err != nil {
		r.fail(utils.WrapError(err, utils.ErrCodePersistenceFailed, "failed to add stats").
			WithContext("delta", op.delta.String()))
	}
}

func (r *Recorder) fail(err error) {
	r.logger.WithField("error", err.Error()).Error("storage write failed")
	if r.onError != nil {
		r.onError(err)
	}
}

// Close stops accepting writes and waits for queued writes to finish
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	<-r.done
	return nil
}
