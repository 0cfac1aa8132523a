package subdisk

import "errors"

// ErrInvalidState is used when the state name is not known.
var ErrInvalidState = errors.New("invalid subdisk state")

// Subdisk is a contiguous extent of a drive.
// It is the unit of revival and initialization.
type Subdisk struct {
	Name  string `xml:"name" json:"name" yaml:"name"`
	State State  `xml:"state" json:"state" yaml:"-"`

	// Drive is the index of the drive the subdisk lives on.
	Drive int `xml:"drive" json:"drive" yaml:"-"`
	// Plex is the index of the owning plex, -1 if none.
	Plex int `xml:"plex" json:"plex" yaml:"-"`

	// DriveOffset is the offset on the drive in sectors.
	// A negative offset means no space has been allocated.
	DriveOffset int64 `xml:"driveoffset" json:"driveoffset" yaml:"driveoffset"`
	// PlexOffset is the offset in the plex address space in sectors.
	PlexOffset int64 `xml:"plexoffset" json:"plexoffset" yaml:"plexoffset"`
	// Size is the length of the subdisk in sectors.
	Size int64 `xml:"size" json:"size" yaml:"size"`

	// Revived is the revive progress pointer in sectors.
	Revived int64 `xml:"revived" json:"revived" yaml:"-"`
	// ReviveBlockSize is the number of sectors revived per step.
	ReviveBlockSize int64 `xml:"reviveblocksize" json:"reviveblocksize" yaml:"reviveblocksize"`
	// Initialized is the init progress pointer in sectors.
	Initialized int64 `xml:"initialized" json:"initialized" yaml:"-"`
	// InitBlockSize is the number of sectors initialized per step.
	InitBlockSize int64 `xml:"initblocksize" json:"initblocksize" yaml:"initblocksize"`
}

const (
	// DefaultBlockSize is the revive and init block size in sectors.
	DefaultBlockSize = 128
	// SectorSize is the size of a sector in bytes.
	SectorSize = 512
)

// New creates a new subdisk object which is not attached to any plex.
func New(name string, driveno int, driveOffset, size int64) Subdisk {
	s := Subdisk{
		Name:            name,
		State:           Empty,
		Drive:           driveno,
		Plex:            -1,
		DriveOffset:     driveOffset,
		Size:            size,
		ReviveBlockSize: DefaultBlockSize,
		InitBlockSize:   DefaultBlockSize,
	}
	if driveOffset < 0 {
		s.State = Down
	}
	return s
}

// HasSpace returns true if drive space has been allocated to the subdisk.
func (s *Subdisk) HasSpace() bool {
	return s.DriveOffset >= 0
}

// State represents the current state of the subdisk.
// States are ordered by usability, worst first.
type State int

const (
	// Unallocated : the table entry is free.
	Unallocated State = iota
	// Uninit : created but no attempt made to initialize.
	Uninit
	// Init : being created.
	Init
	// Initializing : the initialization is in progress.
	Initializing
	// Initialized : initialized but not yet started.
	Initialized
	// Empty : never been used, contains no data.
	Empty
	// Obsolete : written to while down, must be revived.
	Obsolete
	// Stale : contents out of date after a crash.
	Stale
	// Crashed : the drive went down, data may be lost.
	Crashed
	// Down : stopped by the operator.
	Down
	// Referenced : named by a plex but not yet defined.
	Referenced
	// Reviving : being brought up to date with the other plexes.
	Reviving
	// Reborn : the drive came back, contents not yet verified.
	Reborn
	// Up : fully accessible.
	Up
)

var stateNames = [...]string{
	Unallocated:  "unallocated",
	Uninit:       "uninit",
	Init:         "init",
	Initializing: "initializing",
	Initialized:  "initialized",
	Empty:        "empty",
	Obsolete:     "obsolete",
	Stale:        "stale",
	Crashed:      "crashed",
	Down:         "down",
	Referenced:   "referenced",
	Reviving:     "reviving",
	Reborn:       "reborn",
	Up:           "up",
}

// Initializable returns true for the states whose contents may be
// overwritten by an initialization without force.
func (s State) Initializable() bool {
	switch s {
	case Uninit, Init, Empty, Initialized, Stale, Obsolete:
		return true
	}
	return false
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// ParseState returns the state with the given name.
func ParseState(name string) (State, error) {
	for i, n := range stateNames {
		if n == name {
			return State(i), nil
		}
	}
	return Unallocated, ErrInvalidState
}

// MarshalText encodes the state by its name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes the state from its name.
func (s *State) UnmarshalText(b []byte) error {
	st, err := ParseState(string(b))
	if err != nil {
		return err
	}
	*s = st
	return nil
}
