// Package job runs document producers in the background and stores their
// results.
//
// Each submitted job moves through a small state machine:
//
//	QUEUED -> RUNNING -> FINISHED
//	                  \-> FAILED
//
// A [Queue] admits at most one active (QUEUED or RUNNING) job per document
// key: submitting a key that already has an active job returns that job's
// id. This is what keeps a single writer per persisted document.
package job

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/vase/pkg/document"
	"github.com/matzehuels/vase/pkg/observability"
	"github.com/matzehuels/vase/pkg/store"
)

// State is the lifecycle state of a job.
type State string

const (
	Queued   State = "QUEUED"
	Running  State = "RUNNING"
	Finished State = "FINISHED"
	Failed   State = "FAILED"
)

// Done reports whether s is a terminal state.
func (s State) Done() bool { return s == Finished || s == Failed }

var (
	// ErrUnknownJob is returned for job ids the queue has never issued.
	ErrUnknownJob = errors.New("unknown job")

	// ErrQueueFull is returned by Submit when the backlog is at capacity.
	ErrQueueFull = errors.New("job queue full")
)

// Producer builds a fresh document, for example from source files.
type Producer interface {
	Produce(ctx context.Context) (*document.Document, error)
}

// ProducerFunc adapts a function to the Producer interface.
type ProducerFunc func(ctx context.Context) (*document.Document, error)

// Produce calls f.
func (f ProducerFunc) Produce(ctx context.Context) (*document.Document, error) { return f(ctx) }

// Info is a snapshot of a job.
type Info struct {
	ID       string
	Key      string
	State    State
	Err      error
	Queued   time.Time
	Started  time.Time
	Finished time.Time
}

type entry struct {
	Info
	producer Producer
	done     chan struct{}
}

// Options configures a Queue.
type Options struct {
	Workers int // defaults to 1
	Backlog int // queued jobs admitted before Submit fails; defaults to 1024
	// Retention is how long a FINISHED or FAILED job stays queryable after
	// it ends or was last looked up; defaults to 24h.
	Retention time.Duration
	// MaxFinished bounds the number of retained terminal jobs, dropping the
	// least recently used first; defaults to 10000.
	MaxFinished uint64
	Logger      *log.Logger
}

// Queue runs jobs on a fixed pool of workers.
type Queue struct {
	store   *store.Store
	workers int
	logger  *log.Logger
	pending chan *entry

	mu       sync.Mutex
	jobs     map[string]*entry // QUEUED and RUNNING
	active   map[string]string // document key -> job id
	finished *ttlcache.Cache[string, *entry]
}

// NewQueue creates a queue that saves produced documents to s.
// Jobs only start once Run is called.
func NewQueue(s *store.Store, opts Options) *Queue {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Backlog < 1 {
		opts.Backlog = 1024
	}
	if opts.Retention <= 0 {
		opts.Retention = 24 * time.Hour
	}
	if opts.MaxFinished == 0 {
		opts.MaxFinished = 10000
	}
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	q := &Queue{
		store:   s,
		workers: opts.Workers,
		logger:  opts.Logger,
		pending: make(chan *entry, opts.Backlog),
		jobs:    make(map[string]*entry),
		active:  make(map[string]string),
	}
	q.finished = ttlcache.New[string, *entry](
		ttlcache.WithTTL[string, *entry](opts.Retention),
		ttlcache.WithCapacity[string, *entry](opts.MaxFinished),
	)
	return q
}

// Submit enqueues a job producing the document for key and returns its id.
// While a job for key is QUEUED or RUNNING, Submit returns that job's id
// and ignores p.
func (q *Queue) Submit(ctx context.Context, key string, p Producer) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if id, ok := q.active[key]; ok {
		q.logger.Debug("job already active", "key", key, "job", id)
		return id, nil
	}

	e := &entry{
		Info:     Info{ID: uuid.NewString(), Key: key, State: Queued, Queued: time.Now()},
		producer: p,
		done:     make(chan struct{}),
	}
	select {
	case q.pending <- e:
	default:
		return "", fmt.Errorf("%w (%d jobs waiting)", ErrQueueFull, cap(q.pending))
	}
	q.jobs[e.ID] = e
	q.active[key] = e.ID

	q.logger.Info("job queued", "key", key, "job", e.ID)
	observability.Job().OnJobTransition(ctx, e.ID, string(Queued))
	return e.ID, nil
}

// Run starts the workers and blocks until ctx is cancelled. Jobs still
// queued at that point stay QUEUED. Expired terminal jobs are evicted in
// the background while Run is active.
func (q *Queue) Run(ctx context.Context) error {
	go q.finished.Start()
	defer q.finished.Stop()

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < q.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case e := <-q.pending:
					q.run(ctx, e)
				}
			}
		})
	}
	return g.Wait()
}

func (q *Queue) run(ctx context.Context, e *entry) {
	q.transition(ctx, e, Running, nil)
	q.logger.Info("job started", "key", e.Key, "job", e.ID)

	err := q.produce(ctx, e)

	state := Finished
	if err != nil {
		state = Failed
		q.logger.Error("job failed", "key", e.Key, "job", e.ID, "error", err)
	} else {
		q.logger.Info("job finished", "key", e.Key, "job", e.ID, "duration", time.Since(e.Started))
	}
	q.transition(ctx, e, state, err)
}

func (q *Queue) produce(ctx context.Context, e *entry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("producer panic: %v", r)
		}
	}()

	doc, err := e.producer.Produce(ctx)
	if err != nil {
		return err
	}
	if q.store == nil {
		return nil
	}
	return q.store.Save(ctx, e.Key, doc)
}

func (q *Queue) transition(ctx context.Context, e *entry, s State, err error) {
	q.mu.Lock()
	now := time.Now()
	e.State = s
	switch s {
	case Running:
		e.Started = now
	case Finished, Failed:
		e.Finished = now
		e.Err = err
		delete(q.active, e.Key)
		delete(q.jobs, e.ID)
		q.finished.Set(e.ID, e, ttlcache.DefaultTTL)
	}
	info := e.Info
	q.mu.Unlock()

	observability.Job().OnJobTransition(ctx, info.ID, string(s))
	if s.Done() {
		observability.Job().OnJobComplete(ctx, info.ID, info.Finished.Sub(info.Started), err)
		close(e.done)
	}
}

// lookup finds a job among the active and the retained terminal jobs.
// The caller holds q.mu.
func (q *Queue) lookup(id string) (*entry, error) {
	if e, ok := q.jobs[id]; ok {
		return e, nil
	}
	if item := q.finished.Get(id); item != nil && !item.IsExpired() {
		return item.Value(), nil
	}
	return nil, fmt.Errorf("%s: %w", id, ErrUnknownJob)
}

// Info returns a snapshot of the job with the given id. Terminal jobs are
// forgotten once their retention ends.
func (q *Queue) Info(id string) (Info, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, err := q.lookup(id)
	if err != nil {
		return Info{}, err
	}
	return e.Info, nil
}

// Status returns the state of the job with the given id.
func (q *Queue) Status(id string) (State, error) {
	info, err := q.Info(id)
	return info.State, err
}

// Error returns the failure of a FAILED job, and nil for every other state.
func (q *Queue) Error(id string) error {
	info, err := q.Info(id)
	if err != nil {
		return err
	}
	return info.Err
}

// Wait blocks until the job reaches a terminal state or ctx is done.
func (q *Queue) Wait(ctx context.Context, id string) (State, error) {
	q.mu.Lock()
	e, err := q.lookup(id)
	q.mu.Unlock()
	if err != nil {
		return "", err
	}

	select {
	case <-e.done:
		q.mu.Lock()
		defer q.mu.Unlock()
		return e.State, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
