package sim

import (
	"runtime"
	"sync"

	"github.com/pelagos/reef/systems"
)

// parallelThreshold is the minimum agent count to use the worker pool.
// Below this, single-threaded is faster due to goroutine overhead.
const parallelThreshold = 64

// workChunk is a range of the mover list for one worker to process.
type workChunk struct {
	start, end int
}

// parallelState owns the persistent worker pool for the force pass. The
// force pass is read-only with respect to shared state (each worker
// writes only the Steering of its own entities), so chunked execution
// produces the same result as the sequential path regardless of worker
// count or scheduling.
type parallelState struct {
	scratches  []*systems.ForceScratch
	numWorkers int

	workChan chan workChunk
	doneChan chan struct{}
	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
}

func newParallelState() *parallelState {
	numWorkers := runtime.GOMAXPROCS(0)
	scratches := make([]*systems.ForceScratch, numWorkers)
	for i := range scratches {
		scratches[i] = systems.NewForceScratch()
	}
	return &parallelState{
		numWorkers: numWorkers,
		scratches:  scratches,
	}
}

// startWorkers launches the persistent worker goroutines.
func (p *parallelState) startWorkers(s *Sim) {
	if p.running {
		return
	}

	p.workChan = make(chan workChunk, p.numWorkers)
	p.doneChan = make(chan struct{}, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(s, i)
	}
}

// stopWorkers signals all workers to exit and waits for them.
func (p *parallelState) stopWorkers() {
	if !p.running {
		return
	}
	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

// worker processes chunks until stopped.
func (p *parallelState) worker(s *Sim, workerID int) {
	defer p.wg.Done()
	scratch := p.scratches[workerID]

	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			for i := chunk.start; i < chunk.end; i++ {
				s.applyForce(i, scratch)
			}
			p.doneChan <- struct{}{}
		}
	}
}

// run dispatches the force pass across the worker pool and waits for
// completion.
func (p *parallelState) run(s *Sim, n int) {
	if !p.running {
		p.startWorkers(s)
	}

	chunkSize := (n + p.numWorkers - 1) / p.numWorkers

	dispatched := 0
	for w := 0; w < p.numWorkers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		if start >= end {
			continue
		}
		p.workChan <- workChunk{start: start, end: end}
		dispatched++
	}

	for i := 0; i < dispatched; i++ {
		<-p.doneChan
	}
}
