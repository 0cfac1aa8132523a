package plex

import "errors"

var (
	// ErrInvalidState is used when the state name is not known.
	ErrInvalidState = errors.New("invalid plex state")
	// ErrInvalidOrganization is used when the organization name is not known.
	ErrInvalidOrganization = errors.New("invalid plex organization")
)

// Plex is a redundancy unit composed of one or more subdisks.
type Plex struct {
	Name         string       `xml:"name" json:"name" yaml:"name"`
	State        State        `xml:"state" json:"state" yaml:"-"`
	Organization Organization `xml:"organization" json:"organization" yaml:"-"`

	// StripeSize is the stripe width in sectors for striped and parity plexes.
	StripeSize int64 `xml:"stripesize" json:"stripesize" yaml:"stripesize"`

	// Subdisks are the indices of the member subdisks in plex order.
	Subdisks []int `xml:"subdisk" json:"subdisks" yaml:"-"`
	// SdDown is the number of member subdisks which can't serve io.
	SdDown int `xml:"sddown" json:"sddown" yaml:"-"`

	// Volume is the index of the owning volume, -1 if none.
	Volume int `xml:"volume" json:"volume" yaml:"-"`
}

// DefaultStripeSize is the stripe width in sectors used when a striped
// or parity plex doesn't set one.
const DefaultStripeSize = 512

// New creates a new plex object which is not attached to any volume.
func New(name string, org Organization, stripeSize int64) Plex {
	return Plex{
		Name:         name,
		State:        Init,
		Organization: org,
		StripeSize:   stripeSize,
		Subdisks:     make([]int, 0),
		Volume:       -1,
	}
}

// State represents the current state of the plex.
// States are ordered by usability, worst first.
type State int

const (
	// Unallocated : the table entry is free.
	Unallocated State = iota
	// Referenced : named by a volume but not yet defined.
	Referenced
	// Init : brand new, no subdisk has been started yet.
	Init
	// Faulty : no data is accessible.
	Faulty
	// Down : stopped by the operator.
	Down
	// Corrupt : some subdisks are unavailable.
	Corrupt
	// Flaky : all subdisks are available but some are unverified.
	Flaky
	// Degraded : parity plex with exactly one subdisk missing.
	Degraded
	// Initializing : subdisks are being initialized.
	Initializing
	// Up : fully accessible.
	Up
)

const (
	// Accessible is the lowest state which keeps the owning volume up.
	Accessible = Corrupt
	// FirstUp is the lowest state in which the plex serves every address.
	FirstUp = Flaky
)

var stateNames = [...]string{
	Unallocated:  "unallocated",
	Referenced:   "referenced",
	Init:         "init",
	Faulty:       "faulty",
	Down:         "down",
	Corrupt:      "corrupt",
	Flaky:        "flaky",
	Degraded:     "degraded",
	Initializing: "initializing",
	Up:           "up",
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

// Organization represents the data layout of the plex.
type Organization int

const (
	// Concat : subdisks are concatenated.
	Concat Organization = iota
	// Striped : data is striped over the subdisks.
	Striped
	// RAID4 : striped with a dedicated parity subdisk.
	RAID4
	// RAID5 : striped with rotating parity.
	RAID5
)

var organizationNames = [...]string{
	Concat:  "concat",
	Striped: "striped",
	RAID4:   "raid4",
	RAID5:   "raid5",
}

func (o Organization) String() string {
	if o < 0 || int(o) >= len(organizationNames) {
		return "unknown"
	}
	return organizationNames[o]
}

// IsParity returns true for organizations which tolerate
// the loss of one subdisk.
func (o Organization) IsParity() bool {
	return o == RAID4 || o == RAID5
}

// ParseOrganization returns the organization with the given name.
func ParseOrganization(name string) (Organization, error) {
	for i, n := range organizationNames {
		if n == name {
			return Organization(i), nil
		}
	}
	return Concat, ErrInvalidOrganization
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

// MarshalText encodes the organization by its name.
func (o Organization) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText decodes the organization from its name.
func (o *Organization) UnmarshalText(b []byte) error {
	org, err := ParseOrganization(string(b))
	if err != nil {
		return err
	}
	*o = org
	return nil
}
