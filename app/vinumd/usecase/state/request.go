package state

import (
	"fmt"

	"github.com/chanyoung/vinum/app/vinumd/domain/model/plex"
	"github.com/chanyoung/vinum/app/vinumd/domain/model/subdisk"
)

// Request is the part of an io request the state machine looks at.
// Start and End are subdisk relative sectors, End is exclusive.
type Request struct {
	Subdisk int
	Write   bool
	Start   int64
	End     int64

	// ReviveConflict is set by ClassifyRequest on a write which
	// overlaps the revive pointer. The caller must serialize the
	// write against the revive.
	ReviveConflict bool
}

// Verify verifies the each fields of request are valid.
func (r *Request) Verify() error {
	if r.Subdisk < 0 || r.Start < 0 || r.End < r.Start {
		return fmt.Errorf("%+v: invalid arguments", *r)
	}
	return nil
}

// Decision tells whether a request may be issued to the subdisk.
type Decision int

const (
	// RequestDown : the subdisk can't serve the request.
	RequestDown Decision = iota
	// RequestOK : the request may be issued.
	RequestOK
)

func (d Decision) String() string {
	if d == RequestOK {
		return "ok"
	}
	return "down"
}

// ClassifyRequest decides whether the request may be issued to its
// subdisk. A write to a down subdisk makes it obsolete and a write to a
// crashed subdisk makes it stale, since the data on it is now out of
// date; these state changes are the only side effects.
func (m *Machine) ClassifyRequest(r *Request) Decision {
	m.mu.Lock()
	defer m.unlockAndSave()

	r.ReviveConflict = false
	if r.Verify() != nil || !m.validSubdisk(r.Subdisk) {
		return RequestDown
	}

	sd := &m.cfg.Subdisks[r.Subdisk]
	switch sd.State {
	case subdisk.Up:
		return RequestOK

	case subdisk.Reviving:
		return m.classifyReviving(r)

	case subdisk.Reborn:
		if r.Write {
			return RequestOK
		}
		return RequestDown

	case subdisk.Down:
		if r.Write {
			m.setSubdiskState(r.Subdisk, subdisk.Obsolete, Force)
		}
		return RequestDown

	case subdisk.Crashed:
		if r.Write {
			m.setSubdiskState(r.Subdisk, subdisk.Stale, Force)
		}
		return RequestDown

	default:
		return RequestDown
	}
}

func (m *Machine) classifyReviving(r *Request) Decision {
	sd := &m.cfg.Subdisks[r.Subdisk]

	org := plex.Concat
	if sd.Plex >= 0 {
		org = m.cfg.Plexes[sd.Plex].Organization
	}

	switch org {
	case plex.Striped:
		return RequestDown

	case plex.RAID4, plex.RAID5:
		if _, sddown := m.subdiskStateMap(sd.Plex); sddown > 1 {
			return RequestDown
		}
		return RequestOK

	default:
		switch {
		case r.Start >= sd.Revived:
			return RequestDown
		case r.End <= sd.Revived:
			return RequestOK
		case r.Write:
			r.ReviveConflict = true
			return RequestOK
		default:
			return RequestDown
		}
	}
}
