package engine

import (
	"sync"
)

// workChunk is a range of partners for one prediction.
type workChunk struct {
	c          *core
	i          int
	start, end int
}

// predictPool computes pair times on persistent workers. Each worker
// writes a disjoint range of core.times; the caller merges serially in
// index order, so queue order is the same as the serial path.
type predictPool struct {
	numWorkers int

	// Worker pool channels
	workChan chan workChunk // sends work to workers
	doneChan chan struct{}  // workers signal completion
	stopChan chan struct{}  // signals workers to exit
	wg       sync.WaitGroup // tracks active workers
	running  bool           // true if workers are running
}

func newPredictPool(numWorkers int) *predictPool {
	return &predictPool{numWorkers: numWorkers}
}

// start launches persistent worker goroutines.
func (p *predictPool) start() {
	if p.running {
		return
	}

	p.workChan = make(chan workChunk, p.numWorkers)
	p.doneChan = make(chan struct{}, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for w := 0; w < p.numWorkers; w++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// stop signals all workers to exit and waits for them.
func (p *predictPool) stop() {
	if !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

func (p *predictPool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			chunk.c.computeChunk(chunk.i, chunk.start, chunk.end)
			p.doneChan <- struct{}{}
		}
	}
}

// run fills c.times for particle i and returns once every chunk is done.
// Particles are only read while workers run.
func (p *predictPool) run(c *core, i int) {
	if !p.running {
		p.start()
	}

	n := len(c.particles)
	chunkSize := (n + p.numWorkers - 1) / p.numWorkers

	dispatched := 0
	for w := 0; w < p.numWorkers; w++ {
		start := w * chunkSize
		end := min(start+chunkSize, n)
		if start >= end {
			continue
		}
		p.workChan <- workChunk{c: c, i: i, start: start, end: end}
		dispatched++
	}

	for k := 0; k < dispatched; k++ {
		<-p.doneChan
	}
}
