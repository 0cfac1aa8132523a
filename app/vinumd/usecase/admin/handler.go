package admin

import (
	"context"

	"github.com/chanyoung/vinum/app/vinumd/domain/model/drive"
	"github.com/chanyoung/vinum/app/vinumd/domain/model/plex"
	"github.com/chanyoung/vinum/app/vinumd/domain/model/subdisk"
	"github.com/chanyoung/vinum/app/vinumd/domain/model/table"
	"github.com/chanyoung/vinum/app/vinumd/domain/model/volume"
	"github.com/chanyoung/vinum/app/vinumd/usecase/state"
	"github.com/chanyoung/vinum/pkg/util/mlog"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var logger *logrus.Entry

var (
	// ErrInvalidKind is used when the object kind is not known.
	ErrInvalidKind = errors.New("invalid object kind")
	// ErrInvalidState is used when the state name is not known for the kind.
	ErrInvalidState = errors.New("invalid state")
	// ErrOutOfRange is used when the object index is not in the table.
	ErrOutOfRange = errors.New("object index out of range")
	// ErrBusy is used when the object did not reach the requested state.
	ErrBusy = errors.New("object did not reach the requested state")
)

// Handlers runs the admin commands against the state machine.
type Handlers struct {
	m Machine
}

// NewHandlers creates admin handlers with necessary dependencies.
func NewHandlers(m Machine) *Handlers {
	logger = mlog.GetPackageLogger("app/vinumd/usecase/admin")

	return &Handlers{
		m: m,
	}
}

func flagsOf(force bool) state.Flags {
	if force {
		return state.Force
	}
	return 0
}

// List returns the whole configuration.
func (h *Handlers) List() table.Config {
	return h.m.Snapshot()
}

// Get returns a copy of the object.
func (h *Handlers) Get(kind Kind, index int) (interface{}, error) {
	var (
		obj interface{}
		err error
	)

	switch kind {
	case KindDrive:
		obj, err = h.m.Drive(index)
	case KindSubdisk:
		obj, err = h.m.Subdisk(index)
	case KindPlex:
		obj, err = h.m.Plex(index)
	case KindVolume:
		obj, err = h.m.Volume(index)
	default:
		return nil, ErrInvalidKind
	}
	if err != nil {
		return nil, ErrOutOfRange
	}
	return obj, nil
}

func (h *Handlers) checkIndex(kind Kind, index int) error {
	drives, subdisks, plexes, volumes := h.m.Counts()

	var n int
	switch kind {
	case KindDrive:
		n = drives
	case KindSubdisk:
		n = subdisks
	case KindPlex:
		n = plexes
	case KindVolume:
		n = volumes
	default:
		return ErrInvalidKind
	}

	if index < 0 || index >= n {
		return ErrOutOfRange
	}
	return nil
}

// Start brings the object up. Subdisks which need a revive are revived
// before Start returns; the revive stops when ctx is done.
func (h *Handlers) Start(ctx context.Context, kind Kind, index int, force bool) error {
	if err := h.checkIndex(kind, index); err != nil {
		return err
	}

	switch kind {
	case KindDrive:
		h.m.SetDriveState(index, drive.Up, flagsOf(force))
		d, _ := h.m.Drive(index)
		if d.State != drive.Up {
			return ErrBusy
		}
		return nil

	case KindSubdisk:
		return h.startSubdisk(ctx, index, force)

	case KindPlex:
		return h.startPlex(ctx, index, force)

	default:
		return h.startVolume(ctx, index, force)
	}
}

func (h *Handlers) startSubdisk(ctx context.Context, sdno int, force bool) error {
	if sd, _ := h.m.Subdisk(sdno); sd.State == subdisk.Up {
		return nil
	}

	switch h.m.SetSubdiskState(sdno, subdisk.Up, flagsOf(force)) {
	case state.Retry:
		return h.revive(ctx, sdno)
	}

	if sd, _ := h.m.Subdisk(sdno); sd.State != subdisk.Up {
		return ErrBusy
	}
	return nil
}

// revive drives the revive of the subdisk until it is up.
func (h *Handlers) revive(ctx context.Context, sdno int) error {
	ctxLogger := mlog.GetMethodLogger(logger, "Handlers.revive")
	ctxLogger.Infof("revive subdisk %d", sdno)

	for {
		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "revive of subdisk %d stopped", sdno)
		default:
		}

		r, err := h.m.ReviveBlock(sdno)
		if err != nil {
			return errors.Wrapf(err, "revive of subdisk %d failed", sdno)
		}
		if r != state.Retry {
			return nil
		}
	}
}

// startPlex starts the subdisks of the plex which are not up, then asks
// for the plex to come up.
func (h *Handlers) startPlex(ctx context.Context, plexno int, force bool) error {
	p, err := h.m.Plex(plexno)
	if err != nil {
		return ErrOutOfRange
	}
	if p.State == plex.Up {
		return nil
	}

	r := h.m.SetPlexState(plexno, plex.Up, flagsOf(force))
	if p, _ = h.m.Plex(plexno); p.State == plex.Up {
		return nil
	}
	if r == state.Unchanged && p.State == plex.Init {
		// Nothing started yet.
		return ErrBusy
	}

	for _, sdno := range p.Subdisks {
		if err := h.startSubdisk(ctx, sdno, force); err != nil && err != ErrBusy {
			return err
		}
	}

	h.m.SetPlexState(plexno, plex.Up, flagsOf(force))
	if p, _ = h.m.Plex(plexno); p.State != plex.Up {
		return ErrBusy
	}
	return nil
}

func (h *Handlers) startVolume(ctx context.Context, volno int, force bool) error {
	v, err := h.m.Volume(volno)
	if err != nil {
		return ErrOutOfRange
	}

	for _, plexno := range v.Plexes {
		if err := h.startPlex(ctx, plexno, force); err != nil && err != ErrBusy {
			return err
		}
	}

	h.m.SetVolumeState(volno, volume.Up, flagsOf(force))
	if v, _ = h.m.Volume(volno); v.State != volume.Up {
		return ErrBusy
	}
	return nil
}

// Stop takes the object down.
func (h *Handlers) Stop(kind Kind, index int, force bool) error {
	if err := h.checkIndex(kind, index); err != nil {
		return err
	}

	flags := flagsOf(force)
	switch kind {
	case KindDrive:
		h.m.SetDriveState(index, drive.Down, flags)
		if d, _ := h.m.Drive(index); d.State != drive.Down {
			return ErrBusy
		}

	case KindSubdisk:
		h.m.SetSubdiskState(index, subdisk.Down, flags)
		if sd, _ := h.m.Subdisk(index); sd.State != subdisk.Down {
			return ErrBusy
		}

	case KindPlex:
		h.m.SetPlexState(index, plex.Down, flags)
		if p, _ := h.m.Plex(index); p.State != plex.Down {
			return ErrBusy
		}

	default:
		h.m.SetVolumeState(index, volume.Down, flags)
		if v, _ := h.m.Volume(index); v.State != volume.Down {
			return ErrBusy
		}
	}

	return nil
}

// SetState requests the named state for the object. A subdisk which
// starts reviving is revived before SetState returns.
func (h *Handlers) SetState(ctx context.Context, kind Kind, index int, name string, force bool) error {
	if err := h.checkIndex(kind, index); err != nil {
		return err
	}

	flags := flagsOf(force)
	switch kind {
	case KindDrive:
		st, err := drive.ParseState(name)
		if err != nil {
			return errors.Wrap(ErrInvalidState, name)
		}
		h.m.SetDriveState(index, st, flags)
		if d, _ := h.m.Drive(index); d.State != st {
			return ErrBusy
		}

	case KindSubdisk:
		st, err := subdisk.ParseState(name)
		if err != nil {
			return errors.Wrap(ErrInvalidState, name)
		}
		if h.m.SetSubdiskState(index, st, flags) == state.Retry {
			if err := h.revive(ctx, index); err != nil {
				return err
			}
		}
		if sd, _ := h.m.Subdisk(index); sd.State != st {
			return ErrBusy
		}

	case KindPlex:
		st, err := plex.ParseState(name)
		if err != nil {
			return errors.Wrap(ErrInvalidState, name)
		}
		h.m.SetPlexState(index, st, flags)
		if p, _ := h.m.Plex(index); p.State != st {
			return ErrBusy
		}

	default:
		st, err := volume.ParseState(name)
		if err != nil {
			return errors.Wrap(ErrInvalidState, name)
		}
		h.m.SetVolumeState(index, st, flags)
		if v, _ := h.m.Volume(index); v.State != st {
			return ErrBusy
		}
	}

	return nil
}

// Init initializes the subdisk, or every subdisk of the plex, and
// waits until the initialization is done or ctx is done. Without force
// nothing is initialized unless every subdisk is free of live data.
func (h *Handlers) Init(ctx context.Context, kind Kind, index int, force bool) error {
	ctxLogger := mlog.GetMethodLogger(logger, "Handlers.Init")

	if err := h.checkIndex(kind, index); err != nil {
		return err
	}

	var sds []int
	switch kind {
	case KindSubdisk:
		sds = []int{index}
	case KindPlex:
		p, _ := h.m.Plex(index)
		sds = p.Subdisks
	default:
		return ErrInvalidKind
	}

	if !force {
		for _, sdno := range sds {
			sd, _ := h.m.Subdisk(sdno)
			if sd.State != subdisk.Initializing && !sd.State.Initializable() {
				ctxLogger.Infof("subdisk %s is %s, refuse to initialize", sd.Name, sd.State)
				return ErrBusy
			}
		}
	}

	for _, sdno := range sds {
		if h.m.StartInit(sdno, flagsOf(force)) == state.Unchanged {
			if sd, _ := h.m.Subdisk(sdno); sd.State != subdisk.Initializing {
				return ErrBusy
			}
		}
	}

	for _, sdno := range sds {
		for {
			select {
			case <-ctx.Done():
				return errors.Wrapf(ctx.Err(), "init of subdisk %d stopped", sdno)
			default:
			}

			r, err := h.m.InitBlock(sdno)
			if err != nil {
				return errors.Wrapf(err, "init of subdisk %d failed", sdno)
			}
			if r != state.Retry {
				break
			}
		}
	}

	return nil
}

// Open opens the volume. Its drives can't be taken down while it is open.
func (h *Handlers) Open(kind Kind, index int) error {
	if kind != KindVolume {
		return ErrInvalidKind
	}

	return volumeError(h.m.OpenVolume(index))
}

// Close closes the volume.
func (h *Handlers) Close(kind Kind, index int) error {
	if kind != KindVolume {
		return ErrInvalidKind
	}

	return volumeError(h.m.CloseVolume(index))
}

func volumeError(err error) error {
	switch errors.Cause(err) {
	case nil:
		return nil
	case state.ErrOutOfRange:
		return ErrOutOfRange
	case state.ErrVolumeNotUp:
		return ErrBusy
	default:
		return err
	}
}
