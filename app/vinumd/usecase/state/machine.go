package state

import (
	"sync"

	"github.com/chanyoung/vinum/app/vinumd/domain/model/drive"
	"github.com/chanyoung/vinum/app/vinumd/domain/model/plex"
	"github.com/chanyoung/vinum/app/vinumd/domain/model/subdisk"
	"github.com/chanyoung/vinum/app/vinumd/domain/model/table"
	"github.com/chanyoung/vinum/app/vinumd/domain/model/volume"
	"github.com/chanyoung/vinum/pkg/util/mlog"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var logger *logrus.Entry

var (
	// ErrExists is used when an object with the same name already exists.
	ErrExists = errors.New("object already exists")
	// ErrOutOfRange is used when the object index is not in the table.
	ErrOutOfRange = errors.New("object index out of range")
	// ErrNotReviving is used when revive is requested on a subdisk
	// which is not reviving.
	ErrNotReviving = errors.New("subdisk is not reviving")
	// ErrNotInitializing is used when init is requested on a subdisk
	// which is not initializing.
	ErrNotInitializing = errors.New("subdisk is not initializing")
	// ErrNoReviveSource is used when no up subdisk holds the data of a
	// revive block.
	ErrNoReviveSource = errors.New("no source to revive from")
	// ErrVolumeNotUp is used when a volume which is not up is opened.
	ErrVolumeNotUp = errors.New("volume is not up")
)

// Flags modify the behaviour of a state transition.
type Flags uint32

const (
	// Force bypasses the soft safety refusals.
	Force Flags = 1 << iota
	// Configuring suppresses saving the configuration.
	Configuring
)

// Result is the outcome of a state transition.
type Result int

const (
	// Unchanged : the transition was refused or was a no-op.
	Unchanged Result = iota
	// Applied : the object is now in the requested state.
	Applied
	// AppliedDifferently : the state changed, but not to the requested one.
	AppliedDifferently
	// Retry : the transition has started and must be driven to completion
	// by calling the block operation repeatedly.
	Retry
)

func (r Result) String() string {
	switch r {
	case Unchanged:
		return "unchanged"
	case Applied:
		return "applied"
	case AppliedDifferently:
		return "applied differently"
	case Retry:
		return "retry"
	default:
		return "unknown"
	}
}

// Saver persists the whole configuration.
type Saver interface {
	Save(cfg table.Config) error
}

// Device opens the device which backs a drive.
type Device interface {
	Open(d drive.Drive) error
}

// BlockDevice transfers data to and from the device of a drive.
// Offsets are in bytes from the start of the device.
type BlockDevice interface {
	ReadAt(d drive.Drive, p []byte, off int64) error
	WriteAt(d drive.Drive, p []byte, off int64) error
}

// Closer accepts asynchronous drive close requests.
// EnqueueClose must not block.
type Closer interface {
	EnqueueClose(driveno int, d drive.Drive)
}

// Machine owns the object tables and performs every state transition.
type Machine struct {
	cfg table.Config

	store   Saver
	devices Device
	blocks  BlockDevice
	closer  Closer

	// needSave is set by a transition which requires the
	// configuration to be saved once the lock is released.
	needSave bool

	mu sync.RWMutex

	// saved is the last version handed to the store.
	saved  table.Version
	saveMu sync.Mutex
}

// Option configures a Machine.
type Option func(*Machine)

// WithDevice sets the device layer used to open drives.
func WithDevice(d Device) Option {
	return func(m *Machine) {
		m.devices = d
	}
}

// WithBlockDevice sets the device layer used by revive and init.
// Without it revive and init only move their progress pointers.
func WithBlockDevice(b BlockDevice) Option {
	return func(m *Machine) {
		m.blocks = b
	}
}

// WithCloser sets the queue which receives drive close requests.
func WithCloser(c Closer) Option {
	return func(m *Machine) {
		m.closer = c
	}
}

// New creates a state machine with empty tables.
func New(store Saver, opts ...Option) *Machine {
	logger = mlog.GetPackageLogger("app/vinumd/usecase/state")

	m := &Machine{
		cfg:   table.New(),
		store: store,
	}
	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Load replaces the tables with the given configuration.
// Persisted states are kept; open counts are reset since no
// device or volume is open yet.
func (m *Machine) Load(cfg table.Config) error {
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}

	cfg = cfg.Copy()
	for i := range cfg.Drives {
		cfg.Drives[i].Open = false
		cfg.Drives[i].OpenCount = 0
	}
	for i := range cfg.Volumes {
		cfg.Volumes[i].Open = false
	}

	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()

	return nil
}

// Snapshot returns a deep copy of the tables.
func (m *Machine) Snapshot() table.Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.cfg.Copy()
}

// Counts returns the number of allocated table entries per object kind.
func (m *Machine) Counts() (drives, subdisks, plexes, volumes int) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.cfg.Drives), len(m.cfg.Subdisks), len(m.cfg.Plexes), len(m.cfg.Volumes)
}

// Drive returns a copy of the drive with the given index.
func (m *Machine) Drive(no int) (drive.Drive, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.validDrive(no) {
		return drive.Drive{}, ErrOutOfRange
	}
	return m.cfg.Drives[no], nil
}

// Subdisk returns a copy of the subdisk with the given index.
func (m *Machine) Subdisk(no int) (subdisk.Subdisk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.validSubdisk(no) {
		return subdisk.Subdisk{}, ErrOutOfRange
	}
	return m.cfg.Subdisks[no], nil
}

// Plex returns a copy of the plex with the given index.
func (m *Machine) Plex(no int) (plex.Plex, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.validPlex(no) {
		return plex.Plex{}, ErrOutOfRange
	}
	p := m.cfg.Plexes[no]
	p.Subdisks = append([]int(nil), p.Subdisks...)
	return p, nil
}

// Volume returns a copy of the volume with the given index.
func (m *Machine) Volume(no int) (volume.Volume, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.validVolume(no) {
		return volume.Volume{}, ErrOutOfRange
	}
	v := m.cfg.Volumes[no]
	v.Plexes = append([]int(nil), v.Plexes...)
	return v, nil
}

func (m *Machine) validDrive(no int) bool   { return no >= 0 && no < len(m.cfg.Drives) }
func (m *Machine) validSubdisk(no int) bool { return no >= 0 && no < len(m.cfg.Subdisks) }
func (m *Machine) validPlex(no int) bool    { return no >= 0 && no < len(m.cfg.Plexes) }
func (m *Machine) validVolume(no int) bool  { return no >= 0 && no < len(m.cfg.Volumes) }

// unlockAndSave releases the write lock and, if a transition asked for
// it, saves a snapshot taken before the lock was released.
func (m *Machine) unlockAndSave() {
	if !m.needSave || m.store == nil {
		m.needSave = false
		m.mu.Unlock()
		return
	}

	m.needSave = false
	m.cfg.Version++
	snapshot := m.cfg.Copy()
	m.mu.Unlock()

	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	// A newer snapshot has already been written by another transition.
	if snapshot.Version <= m.saved {
		return
	}

	if err := m.store.Save(snapshot); err != nil {
		ctxLogger := mlog.GetMethodLogger(logger, "Machine.unlockAndSave")
		ctxLogger.Error(errors.Wrap(err, "failed to save configuration"))
		return
	}
	m.saved = snapshot.Version
}

// Save writes the current configuration to the store.
// Bulk configuration ends with Save after transitions made with Configuring.
func (m *Machine) Save() {
	m.mu.Lock()
	m.needSave = true
	m.unlockAndSave()
}

// saveUnless asks for a save when the flags don't suppress it.
func (m *Machine) saveUnless(flags Flags) {
	if flags&Configuring == 0 {
		m.needSave = true
	}
}
