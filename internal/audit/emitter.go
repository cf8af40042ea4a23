package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Fpierr/zikauth/internal"
)

// Record is what the engine knows about an auditable outcome. SessionID is the raw
// session id; the emitter replaces it with a fingerprint before it leaves the process.
type Record struct {
	Type      string
	Success   bool
	UserID    string
	SessionID string
	Channel   string
	IP        string
	Reason    string
	// Metadata is only called when the event is accepted into the queue.
	Metadata func() map[string]string
}

// Options tune the emitter queue.
type Options struct {
	BufferSize int
	// DropIfFull drops records when the queue is full instead of blocking the caller.
	DropIfFull bool
	// OnDrop runs on the caller's goroutine for every dropped record.
	OnDrop func()
	Now    func() time.Time
}

// Emitter turns records into events and delivers them to a Sink from a single
// goroutine, in the order they were accepted.
type Emitter struct {
	sink Sink
	opts Options

	mu      sync.RWMutex
	closed  bool
	queue   chan Event
	stopped chan struct{}
	dropped atomic.Uint64
}

// Start launches the delivery goroutine. Callers must Close the emitter to flush it.
func Start(sink Sink, opts Options) *Emitter {
	if sink == nil {
		sink = NoOpSink{}
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	e := &Emitter{
		sink:    sink,
		opts:    opts,
		queue:   make(chan Event, opts.BufferSize),
		stopped: make(chan struct{}),
	}
	go e.deliver()
	return e
}

func (e *Emitter) deliver() {
	defer close(e.stopped)
	for ev := range e.queue {
		e.sink.Emit(context.Background(), ev)
	}
}

// Record queues r. A nil or closed emitter ignores it. Without DropIfFull the call
// waits for room or for ctx.
func (e *Emitter) Record(ctx context.Context, r Record) {
	if e == nil {
		return
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return
	}

	if e.opts.DropIfFull && len(e.queue) == cap(e.queue) {
		e.drop()
		return
	}
	ev := e.event(r)

	if e.opts.DropIfFull {
		select {
		case e.queue <- ev:
		default:
			e.drop()
		}
		return
	}
	select {
	case e.queue <- ev:
	case <-ctx.Done():
	}
}

func (e *Emitter) event(r Record) Event {
	ev := Event{
		Timestamp: e.opts.Now().UTC(),
		EventType: r.Type,
		UserID:    r.UserID,
		SessionID: internal.Fingerprint(r.SessionID),
		Channel:   r.Channel,
		IP:        r.IP,
		Success:   r.Success,
		Reason:    r.Reason,
	}
	if r.Metadata != nil {
		ev.Metadata = r.Metadata()
	}
	return ev
}

func (e *Emitter) drop() {
	e.dropped.Add(1)
	if e.opts.OnDrop != nil {
		e.opts.OnDrop()
	}
}

// Close rejects further records and returns once every queued event reached the sink.
func (e *Emitter) Close() {
	if e == nil {
		return
	}
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		close(e.queue)
	}
	e.mu.Unlock()
	<-e.stopped
}

// Dropped returns how many records were discarded on a full queue.
func (e *Emitter) Dropped() uint64 {
	if e == nil {
		return 0
	}
	return e.dropped.Load()
}
