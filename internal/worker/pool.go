// Package worker runs image decoding on a fixed set of background goroutines.
// Workers only produce CPU-side pixel buffers; GPU upload stays on the render
// thread.
package worker

import (
	"image"
	"sync"
)

const queueSize = 64

// Result is one completed decode job.
type Result struct {
	Path   string
	Pixels *image.RGBA
	Err    error
}

// Pool is a fixed-size decode worker pool. Jobs go in through a bounded
// queue; finished buffers come back on a completion channel the owner drains
// without blocking. The pool itself does not deduplicate submissions — the
// cache tracks in-flight paths.
type Pool struct {
	jobs    chan string
	results chan Result
	wg      sync.WaitGroup
	once    sync.Once
}

// NewPool starts workers goroutines ready to decode.
func NewPool(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{
		jobs:    make(chan string, queueSize),
		results: make(chan Result, queueSize),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.run()
	}
	return p
}

func (p *Pool) run() {
	defer p.wg.Done()
	for path := range p.jobs {
		pixels, err := Decode(path)
		p.results <- Result{Path: path, Pixels: pixels, Err: err}
	}
}

// Submit queues one decode without blocking. It reports false when the queue
// is full; a later prefetch pass will resubmit.
func (p *Pool) Submit(path string) bool {
	select {
	case p.jobs <- path:
		return true
	default:
		return false
	}
}

// Drain returns every completed result without blocking.
func (p *Pool) Drain() []Result {
	var out []Result
	for {
		select {
		case r := <-p.results:
			out = append(out, r)
		default:
			return out
		}
	}
}

// Close stops accepting jobs and waits for in-flight decodes to finish.
// Their results stay unread and are collected with the pool.
func (p *Pool) Close() {
	p.once.Do(func() {
		close(p.jobs)
		// Drain so workers blocked on a full results channel can exit.
		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()
		for {
			select {
			case <-p.results:
			case <-done:
				return
			}
		}
	})
}
