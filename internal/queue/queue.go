package queue

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

const maxAttempts = 3

// Task is a unit of deferred work. Tasks may run more than once, so they must
// be idempotent.
type Task interface {
	Name() string
	Run(ctx context.Context) error
}

type item struct {
	task     Task
	attempts int
}

// Queue is an in-process work queue consumed by a pool of workers. Failed
// tasks are retried up to maxAttempts before being dropped with an error log.
type Queue struct {
	items   chan item
	workers int
	log     *logrus.Logger
	wg      sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func New(size, workers int, log *logrus.Logger) *Queue {
	return &Queue{
		items:   make(chan item, size),
		workers: workers,
		log:     log,
	}
}

// Start launches the worker pool. Workers exit when the queue is stopped and
// drained, or when ctx is cancelled.
func (q *Queue) Start(ctx context.Context) {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}
}

// Enqueue submits a task. Returns false if the queue is stopped or full.
func (q *Queue) Enqueue(task Task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	select {
	case q.items <- item{task: task, attempts: 1}:
		return true
	default:
		q.log.WithField("task", task.Name()).Error("queue full, task rejected")
		return false
	}
}

// Stop closes the queue and waits for workers to drain the remaining tasks.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.items)
	}
	q.mu.Unlock()
	q.wg.Wait()
}

func (q *Queue) worker(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case it, ok := <-q.items:
			if !ok {
				return
			}
			q.run(ctx, it)
		}
	}
}

func (q *Queue) run(ctx context.Context, it item) {
	err := it.task.Run(ctx)
	if err == nil {
		return
	}

	log := q.log.WithField("task", it.task.Name()).WithField("attempt", it.attempts).WithError(err)
	if it.attempts >= maxAttempts {
		log.Error("task failed permanently")
		return
	}

	log.Warn("task failed, retrying")
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		log.Error("queue stopped, task dropped")
		return
	}
	select {
	case q.items <- item{task: it.task, attempts: it.attempts + 1}:
	default:
		log.Error("queue full, retry dropped")
	}
}
