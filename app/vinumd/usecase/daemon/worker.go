package daemon

import (
	"sync"
	"sync/atomic"

	"github.com/chanyoung/vinum/app/vinumd/domain/model/drive"
	"github.com/chanyoung/vinum/pkg/util/mlog"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var logger *logrus.Entry

// Devices releases the devices which back drives. A device is closed
// only if it was not opened again after the generation was taken.
type Devices interface {
	Generation(d drive.Drive) uint64
	Release(d drive.Drive, generation uint64) (bool, error)
}

// CloseWorker closes the devices of drives which have gone down.
// Requests are queued by the state machine, which must not wait for
// the device, and handled by a single goroutine.
type CloseWorker struct {
	devices Devices
	queue   *queue

	notifyCh chan interface{}
	stopCh   chan interface{}
	doneCh   chan interface{}
	stopped  uint32
	stopOnce sync.Once
}

// NewCloseWorker returns a new worker. The worker doesn't run until
// Start is called.
func NewCloseWorker(devices Devices, queueSize int) *CloseWorker {
	logger = mlog.GetPackageLogger("app/vinumd/usecase/daemon")

	return &CloseWorker{
		devices:  devices,
		queue:    newCloseQueue(queueSize),
		notifyCh: make(chan interface{}, 1),
		stopCh:   make(chan interface{}),
		doneCh:   make(chan interface{}),
		stopped:  uint32(1),
	}
}

// EnqueueClose queues the close of the drive device. It never blocks.
// The device generation is taken now, so an open of the device before
// the request is handled cancels the close.
func (w *CloseWorker) EnqueueClose(driveno int, d drive.Drive) {
	w.queue.push(closeRequest{
		driveno:    driveno,
		drive:      d,
		generation: w.devices.Generation(d),
	})

	select {
	case w.notifyCh <- nil:
	default:
	}
}

// Start runs the worker.
func (w *CloseWorker) Start() error {
	if !w.canRun() {
		return errors.New("close worker is already running")
	}

	go w.run()
	return nil
}

// Stop stops the worker after the queued requests are handled.
func (w *CloseWorker) Stop() {
	if atomic.LoadUint32(&w.stopped) == 1 {
		return
	}

	w.stopOnce.Do(func() { close(w.stopCh) })
	<-w.doneCh
}

// Pending returns the number of queued requests.
func (w *CloseWorker) Pending() int {
	return w.queue.len()
}

// fsm is a state of the worker which returns the next state.
type fsm func() (next fsm)

// run drives the worker until it reaches the nil state.
func (w *CloseWorker) run() {
	for state := w.listen; state != nil; {
		state = state()
	}
	close(w.doneCh)
}

// canRun swaps the stopped variable to running state(0) atomically.
// If the worker is already running, returns false.
func (w *CloseWorker) canRun() bool {
	return atomic.SwapUint32(&w.stopped, uint32(0)) == 1
}

// listen is the state for waiting close requests.
func (w *CloseWorker) listen() fsm {
	select {
	case <-w.notifyCh:
		return w.drain
	case <-w.stopCh:
		return w.stop
	}
}

// drain is the state for handling every queued request.
func (w *CloseWorker) drain() fsm {
	for {
		r, ok := w.queue.pop()
		if !ok {
			return w.listen
		}
		w.close(r)
	}
}

// stop is the cleanup state. Requests queued before stop are still
// handled so no device is left open.
func (w *CloseWorker) stop() fsm {
	for {
		r, ok := w.queue.pop()
		if !ok {
			break
		}
		w.close(r)
	}

	atomic.StoreUint32(&w.stopped, uint32(1))
	return nil
}

func (w *CloseWorker) close(r closeRequest) {
	ctxLogger := mlog.GetMethodLogger(logger, "CloseWorker.close")

	closed, err := w.devices.Release(r.drive, r.generation)
	if err != nil {
		ctxLogger.Error(errors.Wrapf(err, "failed to close drive %d %s", r.driveno, r.drive.Name))
		return
	}
	if !closed {
		ctxLogger.Infof("drive %d %s was opened again, skip close", r.driveno, r.drive.Name)
		return
	}
	ctxLogger.Infof("drive %d %s closed", r.driveno, r.drive.Name)
}
