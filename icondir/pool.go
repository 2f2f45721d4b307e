// MIT License
//
// Portions copyright (c) 2017 Ivan Pusic
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package main

import (
	"log/slog"
	"sync"
)

const queueLength = 1000

type job func()

type worker struct {
	id         int
	workerPool chan *worker
	jobChannel chan job
	stop       chan struct{}
	logger     *slog.Logger
}

// run executes one job, a panicking job only loses its own file
func (w *worker) run(j job) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("job panicked", "worker", w.id, "panic", r)
		}
	}()
	j()
}

func (w *worker) start() {
	go func() {
		for {
			// worker free, add it to pool
			w.workerPool <- w

			select {
			case j := <-w.jobChannel:
				w.run(j)
			case <-w.stop:
				w.stop <- struct{}{}
				return
			}
		}
	}()
}

func newWorker(id int, pool chan *worker, logger *slog.Logger) *worker {
	return &worker{
		id:         id,
		workerPool: pool,
		jobChannel: make(chan job),
		stop:       make(chan struct{}),
		logger:     logger,
	}
}

// Accepts jobs from clients, and waits for first free worker to deliver job
type dispatcher struct {
	workerPool chan *worker
	jobQueue   chan job
	stop       chan struct{}
}

func (d *dispatcher) dispatch() {
	for {
		select {
		case j := <-d.jobQueue:
			w := <-d.workerPool
			w.jobChannel <- j
		case <-d.stop:
			for i := 0; i < cap(d.workerPool); i++ {
				w := <-d.workerPool

				w.stop <- struct{}{}
				<-w.stop
			}

			d.stop <- struct{}{}
			return
		}
	}
}

func newDispatcher(workerPool chan *worker, jobQueue chan job, logger *slog.Logger) *dispatcher {
	d := &dispatcher{
		workerPool: workerPool,
		jobQueue:   jobQueue,
		stop:       make(chan struct{}),
	}

	for i := 0; i < cap(d.workerPool); i++ {
		newWorker(i, d.workerPool, logger).start()
	}

	go d.dispatch()
	return d
}

type pool struct {
	jobQueue   chan job
	dispatcher *dispatcher
	wg         sync.WaitGroup
}

func newPool(numWorkers int, logger *slog.Logger) *pool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	jobQueue := make(chan job, queueLength)
	workerPool := make(chan *worker, numWorkers)

	return &pool{
		jobQueue:   jobQueue,
		dispatcher: newDispatcher(workerPool, jobQueue, logger),
	}
}

func (p *pool) Enqueue(j job) {
	p.wg.Add(1)
	p.jobQueue <- func() {
		defer p.wg.Done()
		j()
	}
}

func (p *pool) Wait() {
	p.wg.Wait()
}

// Will release resources used by pool, pending jobs must be waited for first
func (p *pool) Release() {
	p.dispatcher.stop <- struct{}{}
	<-p.dispatcher.stop
}
