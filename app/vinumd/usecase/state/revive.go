package state

import (
	"github.com/chanyoung/vinum/app/vinumd/domain/model/subdisk"
	"github.com/chanyoung/vinum/app/vinumd/domain/model/table"
	"github.com/chanyoung/vinum/pkg/util/mlog"
	"github.com/pkg/errors"
)

// blockStep is one revive or init block of a subdisk, taken under the
// lock and carried out without it.
type blockStep struct {
	sdno       int
	start, end int64
	cfg        table.Config
}

// ReviveBlock copies the next revive block of the subdisk from the other
// plexes of the volume, or rebuilds it from parity. It returns Retry
// while blocks remain and Applied once the subdisk is up.
func (m *Machine) ReviveBlock(sdno int) (Result, error) {
	step, r, err := m.beginStep(sdno, subdisk.Reviving, subdisk.Up, ErrNotReviving)
	if step == nil {
		return r, err
	}

	if m.blocks != nil && step.end > step.start {
		rb := newRebuilder(&step.cfg, m.blocks)
		buf, err := rb.rebuild(sdno, step.start, step.end)
		if err == nil {
			err = rb.writeSubdisk(sdno, step.start, buf)
		}
		if err != nil {
			return Unchanged, errors.Wrapf(err, "failed to revive subdisk %s", step.cfg.Subdisks[sdno].Name)
		}
	}

	return m.endStep(step, subdisk.Reviving, subdisk.Up, ErrNotReviving)
}

// InitBlock zeroes the next init block of the subdisk. It returns Retry
// while blocks remain and Applied once the subdisk is initialized.
func (m *Machine) InitBlock(sdno int) (Result, error) {
	step, r, err := m.beginStep(sdno, subdisk.Initializing, subdisk.Initialized, ErrNotInitializing)
	if step == nil {
		return r, err
	}

	if m.blocks != nil && step.end > step.start {
		rb := newRebuilder(&step.cfg, m.blocks)
		zero := make([]byte, (step.end-step.start)*subdisk.SectorSize)
		if err := rb.writeSubdisk(sdno, step.start, zero); err != nil {
			return Unchanged, errors.Wrapf(err, "failed to initialize subdisk %s", step.cfg.Subdisks[sdno].Name)
		}
	}

	return m.endStep(step, subdisk.Initializing, subdisk.Initialized, ErrNotInitializing)
}

// progress returns the progress pointer and block size of the step kind.
func progress(sd *subdisk.Subdisk, busy subdisk.State) (*int64, int64) {
	if busy == subdisk.Reviving {
		return &sd.Revived, blockSize(sd.ReviveBlockSize)
	}
	return &sd.Initialized, blockSize(sd.InitBlockSize)
}

// beginStep plans the next block of the subdisk which is in the busy
// state. A nil step means there is nothing to do and the result and
// error are final.
func (m *Machine) beginStep(sdno int, busy, done subdisk.State, notBusy error) (*blockStep, Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.validSubdisk(sdno) {
		return nil, Unchanged, ErrOutOfRange
	}

	sd := &m.cfg.Subdisks[sdno]
	switch sd.State {
	case done:
		return nil, Applied, nil
	case busy:
	default:
		return nil, Unchanged, notBusy
	}

	pointer, block := progress(sd, busy)
	step := &blockStep{
		sdno:  sdno,
		start: *pointer,
		end:   min(*pointer+block, sd.Size),
	}
	if m.blocks != nil {
		step.cfg = m.cfg.Copy()
	}
	return step, Unchanged, nil
}

// endStep moves the progress pointer past the block and finishes the
// subdisk after the last block.
func (m *Machine) endStep(step *blockStep, busy, done subdisk.State, notBusy error) (Result, error) {
	ctxLogger := mlog.GetMethodLogger(logger, "Machine.endStep")

	m.mu.Lock()
	defer m.unlockAndSave()

	if !m.validSubdisk(step.sdno) {
		return Unchanged, ErrOutOfRange
	}

	sd := &m.cfg.Subdisks[step.sdno]
	pointer, _ := progress(sd, busy)
	switch {
	case sd.State == done:
		return Applied, nil
	case sd.State != busy:
		return Unchanged, notBusy
	case *pointer != step.start:
		// Somebody else moved the pointer while the block was copied.
		return Retry, nil
	}

	*pointer = step.end
	if *pointer < sd.Size {
		return Retry, nil
	}

	sd.State = done
	ctxLogger.Infof("subdisk %s is %s", sd.Name, sd.State)
	m.subdiskChanged(step.sdno, 0)

	return Applied, nil
}

// StartInit puts the subdisk into the initializing state. Without force
// only subdisks which hold no live data may be initialized.
func (m *Machine) StartInit(sdno int, flags Flags) Result {
	ctxLogger := mlog.GetMethodLogger(logger, "Machine.StartInit")

	m.mu.Lock()
	defer m.unlockAndSave()

	if !m.validSubdisk(sdno) {
		return Unchanged
	}

	sd := &m.cfg.Subdisks[sdno]
	if sd.State == subdisk.Initializing {
		return Unchanged
	}
	if flags&Force == 0 && !sd.State.Initializable() {
		ctxLogger.Infof("subdisk %s is %s, can't initialize it", sd.Name, sd.State)
		return Unchanged
	}

	r := m.setSubdiskState(sdno, subdisk.Initializing, flags|Force)
	if r != Unchanged {
		sd.Initialized = 0
	}
	return r
}

func blockSize(n int64) int64 {
	if n <= 0 {
		return subdisk.DefaultBlockSize
	}
	return n
}
