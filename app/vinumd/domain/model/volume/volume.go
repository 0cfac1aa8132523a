package volume

import "errors"

// ErrInvalidState is used when the state name is not known.
var ErrInvalidState = errors.New("invalid volume state")

// Volume is the user visible device composed of one or more plexes.
type Volume struct {
	Name  string `xml:"name" json:"name" yaml:"name"`
	State State  `xml:"state" json:"state" yaml:"-"`

	// Open is true while the volume device is held open.
	Open bool `xml:"open" json:"open" yaml:"-"`
	// Flags are the configuration flags of the volume.
	Flags Flags `xml:"flags" json:"flags" yaml:"-"`

	// Plexes are the indices of the member plexes.
	Plexes []int `xml:"plex" json:"plexes" yaml:"-"`
}

// New creates a new volume object in the down state.
func New(name string, flags Flags) Volume {
	return Volume{
		Name:   name,
		State:  Down,
		Flags:  flags,
		Plexes: make([]int, 0),
	}
}

// Flags is the bitset of volume configuration flags.
type Flags uint32

const (
	// SetupState trusts the first plex which comes up in a brand new
	// volume and brings every plex of the volume up with it.
	SetupState Flags = 1 << iota
)

// State represents the current state of the volume.
type State int

const (
	// Unallocated : the table entry is free.
	Unallocated State = iota
	// Down : no plex is accessible.
	Down
	// Up : at least one plex is accessible.
	Up
)

var stateNames = [...]string{
	Unallocated: "unallocated",
	Down:        "down",
	Up:          "up",
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
