package drive

import "errors"

// ErrInvalidState is used when the state name is not known.
var ErrInvalidState = errors.New("invalid drive state")

// Drive is the physical storage device which backs subdisks.
type Drive struct {
	// Name is the label of the drive.
	Name string `xml:"name" json:"name" yaml:"name"`
	// Device is the path of the backing device such as '/dev/da1'.
	Device string `xml:"device" json:"device" yaml:"device"`
	State  State  `xml:"state" json:"state" yaml:"-"`

	// OpenCount is the number of open references to the drive.
	OpenCount int `xml:"opencount" json:"opencount" yaml:"-"`
	// Open is true while the device is held open.
	Open bool `xml:"open" json:"open" yaml:"-"`
}

// New creates a new drive object in the down state.
func New(name, device string) Drive {
	return Drive{
		Name:   name,
		Device: device,
		State:  Down,
	}
}

// State represents the current state of the drive.
// States are ordered by usability.
type State int

const (
	// Unallocated : the table entry is free.
	Unallocated State = iota
	// Referenced : named by a subdisk but not yet defined.
	Referenced
	// Down : defined but not accessible.
	Down
	// Up : accessible.
	Up
)

var stateNames = [...]string{
	Unallocated: "unallocated",
	Referenced:  "referenced",
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
