package daemon

import (
	"sync"

	"github.com/chanyoung/vinum/app/vinumd/domain/model/drive"
)

// closeRequest asks the worker to close the device of a drive which
// has gone down.
type closeRequest struct {
	driveno    int
	drive      drive.Drive
	generation uint64
}

// queue is a FIFO queue of close requests.
type queue struct {
	requests []closeRequest
	mu       sync.Mutex
}

func newCloseQueue(size int) *queue {
	if size < 0 {
		size = 0
	}
	return &queue{
		requests: make([]closeRequest, 0, size),
	}
}

func (q *queue) push(r closeRequest) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.requests = append(q.requests, r)
}

func (q *queue) pop() (r closeRequest, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.requests) == 0 {
		return closeRequest{}, false
	}

	r = q.requests[0]
	q.requests = q.requests[1:]

	return r, true
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.requests)
}
