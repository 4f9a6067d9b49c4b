package processor

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/arloliu/mddup/errs"
)

// Handle tracks a job running in its own goroutine.
type Handle struct {
	id     uuid.UUID
	cancel context.CancelFunc
	done   chan struct{}
	result Result
}

// ID returns the job identifier.
func (h *Handle) ID() uuid.UUID { return h.id }

// Cancel requests cancellation. The job stops at its next batch, chunk or
// archive entry boundary and ends in the Cancelled state.
func (h *Handle) Cancel() { h.cancel() }

// Done is closed once the job has finished.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until the job finishes and returns its result.
func (h *Handle) Wait() Result {
	<-h.done
	return h.result
}

// Result returns the result if the job has finished.
func (h *Handle) Result() (Result, bool) {
	select {
	case <-h.done:
		return h.result, true
	default:
		return Result{}, false
	}
}

// Start runs job in a new goroutine.
func (p *Processor) Start(ctx context.Context, job Job) *Handle {
	return p.start(ctx, uuid.New(), job, nil)
}

func (p *Processor) start(ctx context.Context, id uuid.UUID, job Job, onDone func()) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{id: id, cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(h.done)
		defer cancel()

		h.result = p.run(ctx, id, job)
		if onDone != nil {
			onDone()
		}
	}()

	return h
}

// Runner starts jobs while refusing a second concurrent job for the same
// output directory. It is safe for concurrent use.
type Runner struct {
	p *Processor

	mu     sync.Mutex
	byDir  map[string]uuid.UUID
	active map[uuid.UUID]*Handle
}

// NewRunner creates a runner around p.
func NewRunner(p *Processor) *Runner {
	return &Runner{
		p:      p,
		byDir:  make(map[string]uuid.UUID),
		active: make(map[uuid.UUID]*Handle),
	}
}

// Start runs job unless another job is active for the same output
// directory, in which case it returns errs.ErrJobActive.
func (r *Runner) Start(ctx context.Context, job Job) (*Handle, error) {
	key, err := filepath.Abs(job.OutputDir)
	if err != nil {
		return nil, errs.Wrap(errs.ErrIO, err, "resolve output directory")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if other, ok := r.byDir[key]; ok {
		return nil, fmt.Errorf("%w: job %s writes to %s", errs.ErrJobActive, other, key)
	}

	id := uuid.New()
	h := r.p.start(ctx, id, job, func() {
		r.mu.Lock()
		delete(r.byDir, key)
		delete(r.active, id)
		r.mu.Unlock()
	})
	r.byDir[key] = id
	r.active[id] = h

	return h, nil
}

// Get returns the active job with the given id.
func (r *Runner) Get(id uuid.UUID) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.active[id]

	return h, ok
}

// Cancel cancels the active job with the given id and reports whether it was found.
func (r *Runner) Cancel(id uuid.UUID) bool {
	h, ok := r.Get(id)
	if ok {
		h.Cancel()
	}

	return ok
}

// Active returns the number of running jobs.
func (r *Runner) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.active)
}
