package ingest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/valyala/bytebufferpool"
)

// OpType represents an operation kind for the ingest pipeline.
type OpType string

const (
	// OpSync pulls new overview rows for Op.Group from the upstream.
	OpSync OpType = "sync"
	// OpPost forwards Op.Payload, a complete article, to the upstream.
	OpPost OpType = "post"
)

// Op is a lightweight in-memory representation of one unit of upstream
// work. Payload may be backed by a pooled ByteBuffer; consumers must call
// Item.Done() when finished.
type Op struct {
	Type  OpType
	Group string
	// ID labels the operation in logs (a sync id or message-id).
	ID string
	// Payload holds the raw article bytes for OpPost (may be nil).
	Payload []byte
	// TS is the enqueue timestamp (nanoseconds).
	TS int64
	// EnqSeq is a monotonic enqueue sequence assigned when the op is
	// accepted into the in-memory queue.
	EnqSeq uint64
}

// ErrQueueFull is returned by TryEnqueue when the queue is at capacity.
var ErrQueueFull = errors.New("ingest queue full")

// ErrQueueClosed is returned once CloseAndDrain has run. The channel itself
// is never closed, so late producers get this error instead of a panic.
var ErrQueueClosed = errors.New("ingest queue closed")

// Item wraps an Op and owns a pooled ByteBuffer if one was used.
// Consumers MUST call Done() exactly once after processing the item to
// return pooled resources.
type Item struct {
	Op *Op

	buf  *bytebufferpool.ByteBuffer
	once sync.Once
}

// Done releases internal pooled resources (buffer + op) back to the pool.
func (it *Item) Done() {
	it.once.Do(func() {
		if it.buf != nil {
			// avoid retaining huge buffers in the pool
			if cap(it.buf.B) > int(atomic.LoadInt64(&maxPooledBuffer)) {
				it.buf = nil
			} else {
				bytebufferpool.Put(it.buf)
				it.buf = nil
			}
		}
		if it.Op != nil {
			it.Op.Payload = nil
			opPool.Put(it.Op)
			it.Op = nil
		}
	})
}

// Queue is a bounded in-memory queue feeding the upstream workers. It is
// safe for concurrent producers. Consumers range over Out() or call
// RunWorker.
type Queue struct {
	ch       chan *Item
	done     chan struct{}
	capacity int
	dropped  uint64

	closeOnce sync.Once
}

var opPool = sync.Pool{New: func() any { return &Op{} }}

var enqSeq uint64

// maxPooledBuffer controls the largest payload buffer returned to the
// pool. Larger ones are dropped so resident memory stays bounded.
var maxPooledBuffer int64 = 256 * 1024

// SetMaxPooledBuffer adjusts the pooled buffer cap; zero or negative
// keeps the current value.
func SetMaxPooledBuffer(n int64) {
	if n > 0 {
		atomic.StoreInt64(&maxPooledBuffer, n)
	}
}

// NewQueue creates a new bounded Queue with the provided capacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Queue{ch: make(chan *Item, capacity), done: make(chan struct{}), capacity: capacity}
}

// DefaultQueue is a global default queue used by handlers. It can be
// replaced at startup by calling SetDefaultQueue.
var DefaultQueue = NewQueue(4 * 1024)

// SetDefaultQueue replaces the package default queue.
func SetDefaultQueue(q *Queue) {
	if q != nil {
		DefaultQueue = q
	}
}

// Out returns a read-only channel of queued items. Do not close it from
// callers.
func (q *Queue) Out() <-chan *Item { return q.ch }

func (q *Queue) wrap(op *Op) *Item {
	newOp := opPool.Get().(*Op)
	*newOp = *op
	newOp.EnqSeq = atomic.AddUint64(&enqSeq, 1)
	if newOp.TS == 0 {
		newOp.TS = time.Now().UTC().UnixNano()
	}
	var bb *bytebufferpool.ByteBuffer
	if len(op.Payload) > 0 {
		bb = bytebufferpool.Get()
		bb.B = append(bb.B[:0], op.Payload...)
		newOp.Payload = bb.B[:len(op.Payload)]
	}
	return &Item{Op: newOp, buf: bb}
}

func (q *Queue) unwrap(it *Item) {
	if it.buf != nil {
		bytebufferpool.Put(it.buf)
	}
	it.Op.Payload = nil
	opPool.Put(it.Op)
}

// TryEnqueue attempts to enqueue an Op by copying its payload into a
// pooled buffer. If the queue is full ErrQueueFull is returned and the
// caller may choose to reject or retry.
func (q *Queue) TryEnqueue(op *Op) error {
	select {
	case <-q.done:
		return ErrQueueClosed
	default:
	}
	it := q.wrap(op)
	select {
	case q.ch <- it:
		return nil
	default:
		q.unwrap(it)
		atomic.AddUint64(&q.dropped, 1)
		return ErrQueueFull
	}
}

// Enqueue blocks until space is available or the context is done.
func (q *Queue) Enqueue(ctx context.Context, op *Op) error {
	it := q.wrap(op)
	select {
	case q.ch <- it:
		return nil
	case <-q.done:
		q.unwrap(it)
		return ErrQueueClosed
	case <-ctx.Done():
		q.unwrap(it)
		atomic.AddUint64(&q.dropped, 1)
		return ctx.Err()
	}
}

// EnqueueSync queues a pull of new overview rows for group.
func (q *Queue) EnqueueSync(group, syncID string) error {
	return q.TryEnqueue(&Op{Type: OpSync, Group: group, ID: syncID})
}

// EnqueuePost queues an outbound article without blocking.
func (q *Queue) EnqueuePost(id string, payload []byte) error {
	return q.TryEnqueue(&Op{Type: OpPost, ID: id, Payload: payload})
}

// CloseAndDrain marks the queue closed and drains whatever is buffered,
// releasing pooled resources. A producer that slipped past the closed
// check may leave one item behind; that only happens on the way out of
// the process.
func (q *Queue) CloseAndDrain() {
	q.closeOnce.Do(func() { close(q.done) })
	for {
		select {
		case it := <-q.ch:
			it.Done()
		default:
			return
		}
	}
}

// RunWorker runs a worker loop that invokes handler for each dequeued
// Op. It guarantees Item.Done() is called even if handler returns an
// error. The worker exits when stop fires or the queue is closed.
func (q *Queue) RunWorker(stop <-chan struct{}, handler func(*Op) error) {
	for {
		select {
		case it := <-q.ch:
			func(it *Item) {
				defer it.Done()
				_ = handler(it.Op)
			}(it)
		case <-q.done:
			return
		case <-stop:
			return
		}
	}
}

// Len returns the current number of items in the queue.
func (q *Queue) Len() int { return len(q.ch) }

// Cap returns the configured capacity of the queue.
func (q *Queue) Cap() int { return q.capacity }

// Dropped returns the number of operations rejected by a full queue or
// context cancellation during enqueue.
func (q *Queue) Dropped() uint64 { return atomic.LoadUint64(&q.dropped) }
