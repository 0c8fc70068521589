package platform

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"go.uber.org/zap"
)

// DefaultWorkers is the executor size used when none is given.
const DefaultWorkers = 4

// ErrExecutorClosed is returned by Run after Close.
var ErrExecutorClosed = errors.New("executor closed")

// PanicError wraps a value recovered from a job.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("job panicked: %v", e.Value)
}

type job struct {
	ctx  context.Context
	fn   func(ctx context.Context) error
	done chan error
}

// Executor is a fixed pool of workers for blocking device I/O.
type Executor struct {
	jobs   chan job
	closed chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
	log    *zap.Logger
}

// NewExecutor starts workers goroutines.
func NewExecutor(workers int, log *zap.Logger) *Executor {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if log == nil {
		log = zap.NewNop()
	}

	e := &Executor{
		jobs:   make(chan job),
		closed: make(chan struct{}),
		log:    log,
	}
	e.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go e.worker()
	}
	return e
}

func (e *Executor) worker() {
	defer e.wg.Done()
	for {
		select {
		case j := <-e.jobs:
			j.done <- e.execute(j)
		case <-e.closed:
			return
		}
	}
}

func (e *Executor) execute(j job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			e.log.Error("Recovered panic in worker", zap.Any("panic", r), zap.ByteString("stack", stack))
			err = &PanicError{Value: r, Stack: stack}
		}
	}()
	return j.fn(j.ctx)
}

// Start hands fn to a worker and returns a channel that receives its
// result. An error means no worker accepted fn and it will never run.
func (e *Executor) Start(ctx context.Context, fn func(ctx context.Context) error) (<-chan error, error) {
	j := job{ctx: ctx, fn: fn, done: make(chan error, 1)}

	select {
	case e.jobs <- j:
		return j.done, nil
	case <-e.closed:
		return nil, ErrExecutorClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Run executes fn on a worker and waits for it to return. A panic in fn is
// returned as a *PanicError. If ctx ends first, Run returns ctx.Err() and
// fn keeps running to completion on its worker.
func (e *Executor) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	done, err := e.Start(ctx, fn)
	if err != nil {
		return err
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the workers after their current jobs finish.
func (e *Executor) Close() {
	e.once.Do(func() {
		close(e.closed)
	})
	e.wg.Wait()
}
