package delivery

import (
	"math"
	"sync"
	"time"
)

// Depth is the number of jobs waiting for one destination.
type Depth struct {
	Pending int `json:"pending"`
	Backlog int `json:"backlog"`
}

func (d Depth) Total() int {
	return d.Pending + d.Backlog
}

// queue holds the jobs of one destination. Backlogged jobs drain before
// pending ones.
type queue struct {
	mu      sync.Mutex
	pending []*Job
	backlog []*Job
}

func (q *queue) push(job *Job) {
	q.mu.Lock()
	q.pending = append(q.pending, job)
	q.mu.Unlock()
}

func (q *queue) pushBacklog(job *Job) {
	q.mu.Lock()
	q.backlog = append(q.backlog, job)
	q.mu.Unlock()
}

// take removes up to n jobs in FIFO order, backlog first. admit is asked
// before each job is handed out; a refused job is still removed and comes
// back in dropped.
func (q *queue) take(n int, admit func() bool) (taken, dropped []*Job) {
	q.mu.Lock()
	defer q.mu.Unlock()

	taken = make([]*Job, 0, n)
	for i := 0; i < n; i++ {
		var src *[]*Job
		switch {
		case len(q.backlog) > 0:
			src = &q.backlog
		case len(q.pending) > 0:
			src = &q.pending
		default:
			return taken, dropped
		}

		job := (*src)[0]
		(*src)[0] = nil
		*src = (*src)[1:]

		if admit != nil && !admit() {
			dropped = append(dropped, job)
			continue
		}
		taken = append(taken, job)
	}
	return taken, dropped
}

func (q *queue) depth() Depth {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Depth{Pending: len(q.pending), Backlog: len(q.backlog)}
}

// tickPlan converts a dequeue rate in jobs per second into a ticker interval
// and the number of jobs taken per tick. Rates below one become one job every
// 1/rate seconds.
func tickPlan(rate float64) (time.Duration, int) {
	if rate <= 0 {
		rate = 1
	}
	if rate < 1 {
		return time.Duration(float64(time.Second) / rate), 1
	}
	return time.Second, int(math.Floor(rate))
}

// allowance caps how many jobs a destination may send per window.
type allowance struct {
	mu    sync.Mutex
	limit int
	used  int
}

func newAllowance(base int, supporter bool, multiplier float64) *allowance {
	limit := base
	if supporter && multiplier > 1 && base > 0 {
		limit = int(math.Floor(float64(base) * multiplier))
	}
	return &allowance{limit: limit}
}

// take consumes one unit. A non-positive limit is unlimited.
func (a *allowance) take() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.limit <= 0 {
		return true
	}
	if a.used >= a.limit {
		return false
	}
	a.used++
	return true
}

func (a *allowance) reset() {
	a.mu.Lock()
	a.used = 0
	a.mu.Unlock()
}
