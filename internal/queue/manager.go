package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vogiaan1904/lobbydraft/config"
	pkgLog "github.com/vogiaan1904/lobbydraft/pkg/logger"
)

var ErrManagerClosed = errors.New("lobby worker is shut down")

// Job is a unit of work run inside a lobby's serializer.
type Job func(ctx context.Context) error

// Manager serializes every mutation of a lobby through a single worker
// goroutine per lobby id.
type Manager interface {
	// Do runs job on the lobby's worker and waits for its result. A job
	// cancelled while queued never runs; once it has started, Do waits for
	// it and returns its result even if ctx ends first.
	Do(ctx context.Context, lobbyID string, job Job) error
	// Close stops the lobby's worker. Queued jobs fail with ErrManagerClosed.
	Close(lobbyID string)
	// Shutdown stops every worker and waits for them to exit.
	Shutdown()
	ActiveWorkers() int
}

const (
	taskQueued int32 = iota
	taskStarted
	taskAbandoned
)

type task struct {
	ctx    context.Context
	job    Job
	state  *atomic.Int32
	result chan error
}

func (t task) wait(w *worker) error {
	select {
	case err := <-t.result:
		return err
	case <-w.done:
		select {
		case err := <-t.result:
			return err
		default:
			return ErrManagerClosed
		}
	}
}

type worker struct {
	lobbyID string
	inbox   chan task
	quit    chan struct{}
	done    chan struct{}
	pending int
}

type manager struct {
	mu          sync.Mutex
	workers     map[string]*worker
	wg          sync.WaitGroup
	idleTimeout time.Duration
	mailboxSize int
	closed      bool
	l           pkgLog.Logger
}

func NewManager(cfg config.QueueConfig, l pkgLog.Logger) Manager {
	size := cfg.MailboxSize
	if size <= 0 {
		size = 1
	}
	return &manager{
		workers:     make(map[string]*worker),
		idleTimeout: cfg.WorkerIdleTimeout,
		mailboxSize: size,
		l:           l,
	}
}

func (m *manager) Do(ctx context.Context, lobbyID string, job Job) error {
	w, err := m.acquire(lobbyID)
	if err != nil {
		return err
	}

	t := task{ctx: ctx, job: job, state: new(atomic.Int32), result: make(chan error, 1)}

	select {
	case w.inbox <- t:
		m.release(w)
	case <-w.quit:
		m.release(w)
		return ErrManagerClosed
	case <-ctx.Done():
		m.release(w)
		return ctx.Err()
	}

	select {
	case err := <-t.result:
		return err
	case <-ctx.Done():
		if t.state.CompareAndSwap(taskQueued, taskAbandoned) {
			return ctx.Err()
		}
		// Already running: the remote side may still commit.
	case <-w.done:
	}
	return t.wait(w)
}

func (m *manager) acquire(lobbyID string) (*worker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrManagerClosed
	}

	w, ok := m.workers[lobbyID]
	if !ok {
		w = &worker{
			lobbyID: lobbyID,
			inbox:   make(chan task, m.mailboxSize),
			quit:    make(chan struct{}),
			done:    make(chan struct{}),
		}
		m.workers[lobbyID] = w
		m.wg.Add(1)
		go m.run(w)
	}
	w.pending++
	return w, nil
}

func (m *manager) release(w *worker) {
	m.mu.Lock()
	w.pending--
	m.mu.Unlock()
}

func (m *manager) run(w *worker) {
	defer m.wg.Done()
	defer close(w.done)

	var idle <-chan time.Time
	var timer *time.Timer
	if m.idleTimeout > 0 {
		timer = time.NewTimer(m.idleTimeout)
		defer timer.Stop()
		idle = timer.C
	}

	for {
		select {
		case <-w.quit:
			m.drain(w)
			return

		case t := <-w.inbox:
			t.result <- m.execute(w.lobbyID, t)
			if timer != nil {
				timer.Reset(m.idleTimeout)
			}

		case <-idle:
			if m.retireIfIdle(w) {
				return
			}
			timer.Reset(m.idleTimeout)
		}
	}
}

func (m *manager) execute(lobbyID string, t task) (err error) {
	if err := t.ctx.Err(); err != nil {
		return err
	}
	if !t.state.CompareAndSwap(taskQueued, taskStarted) {
		return t.ctx.Err()
	}

	defer func() {
		if r := recover(); r != nil {
			m.l.Errorf(t.ctx, "queue.manager.execute: lobby %s job panicked: %v", lobbyID, r)
			err = fmt.Errorf("lobby %s job panicked: %v", lobbyID, r)
		}
	}()

	return t.job(t.ctx)
}

// retireIfIdle removes the worker when nothing is queued or about to be.
func (m *manager) retireIfIdle(w *worker) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if w.pending > 0 || len(w.inbox) > 0 {
		return false
	}
	if m.workers[w.lobbyID] == w {
		delete(m.workers, w.lobbyID)
	}
	close(w.quit)
	return true
}

func (m *manager) drain(w *worker) {
	for {
		select {
		case t := <-w.inbox:
			t.result <- ErrManagerClosed
		default:
			return
		}
	}
}

func (m *manager) Close(lobbyID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.workers[lobbyID]
	if !ok {
		return
	}
	delete(m.workers, lobbyID)
	close(w.quit)
}

func (m *manager) Shutdown() {
	m.mu.Lock()
	m.closed = true
	for id, w := range m.workers {
		delete(m.workers, id)
		close(w.quit)
	}
	m.mu.Unlock()

	m.wg.Wait()
}

func (m *manager) ActiveWorkers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.workers)
}
