package device

import (
	"sync"
)

// Ctx is the ordering token copies are issued on. Operations enqueued on one
// Ctx complete in enqueue order. Enqueue never blocks for completion; Sync
// waits for everything enqueued so far and returns the first error since the
// previous Sync.
type Ctx interface {
	Enqueue(op func() error)
	Sync() error
}

// SyncCtx runs every operation inline on the calling goroutine.
type SyncCtx struct {
	mu  sync.Mutex
	err error
}

// NewSyncCtx creates an inline context.
func NewSyncCtx() *SyncCtx {
	return &SyncCtx{}
}

// Enqueue runs op immediately.
func (c *SyncCtx) Enqueue(op func() error) {
	err := op()
	if err == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil {
		c.err = err
	}
}

// Sync returns and clears the first recorded error.
func (c *SyncCtx) Sync() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.err
	c.err = nil
	return err
}

// StreamCtx runs operations in FIFO order on a dedicated worker goroutine,
// the host analogue of a device stream.
type StreamCtx struct {
	ops     chan func() error
	pending sync.WaitGroup
	done    chan struct{}

	mu     sync.Mutex
	err    error
	closed bool
}

// NewStreamCtx starts a stream with room for depth queued operations before
// Enqueue blocks on back-pressure.
func NewStreamCtx(depth int) *StreamCtx {
	if depth < 1 {
		depth = 1
	}
	s := &StreamCtx{
		ops:  make(chan func() error, depth),
		done: make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *StreamCtx) run() {
	defer close(s.done)
	for op := range s.ops {
		if err := op(); err != nil {
			s.mu.Lock()
			if s.err == nil {
				s.err = err
			}
			s.mu.Unlock()
		}
		s.pending.Done()
	}
}

// Enqueue schedules op after every previously enqueued operation.
// Panics if the stream is closed.
func (s *StreamCtx) Enqueue(op func() error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		panic("device: enqueue on closed stream")
	}
	s.pending.Add(1)
	s.mu.Unlock()
	s.ops <- op
}

// Sync waits for all enqueued operations and returns the first error since the last Sync.
func (s *StreamCtx) Sync() error {
	s.pending.Wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.err
	s.err = nil
	return err
}

// Close drains the stream and stops its worker. It returns the pending error, if any.
func (s *StreamCtx) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	err := s.Sync()
	close(s.ops)
	<-s.done
	return err
}
