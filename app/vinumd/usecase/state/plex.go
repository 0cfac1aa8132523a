package state

import (
	"github.com/chanyoung/vinum/app/vinumd/domain/model/plex"
	"github.com/chanyoung/vinum/app/vinumd/domain/model/subdisk"
	"github.com/chanyoung/vinum/pkg/util/mlog"
)

// volplexStatus describes a plex relative to the other plexes of its
// volume. It is a bitset of volplexAllDown, volplexOtherUp and volplexOnlyUs.
type volplexStatus int

const (
	// volplexOnlyUsDown : we're the only plex, and we're down.
	volplexOnlyUsDown volplexStatus = 0
	// volplexAllDown : another plex is down, and so are we.
	volplexAllDown volplexStatus = 1
	// volplexOtherUp : another plex is up.
	volplexOtherUp volplexStatus = 2
	// volplexOtherUpDown : other plexes are up and down.
	volplexOtherUpDown = volplexOtherUp | volplexAllDown
	// volplexOnlyUs : we're up and alone.
	volplexOnlyUs volplexStatus = 4
	// volplexOnlyUsUp : only we are up, others are down.
	volplexOnlyUsUp = volplexOnlyUs | volplexAllDown
	// volplexAllUp : all plexes are up.
	volplexAllUp = volplexOnlyUs | volplexOtherUp
	// volplexSomeUp : some plexes are up, including us.
	volplexSomeUp = volplexOnlyUs | volplexOtherUp | volplexAllDown
)

// volumePlexStatus computes the standing of the plex in its volume.
func (m *Machine) volumePlexStatus(plexno int) volplexStatus {
	p := &m.cfg.Plexes[plexno]

	// A plex without volume is alone by definition.
	if p.Volume < 0 {
		if p.State == plex.Up {
			return volplexOnlyUs
		}
		return volplexOnlyUsDown
	}

	status := volplexOnlyUsDown
	for _, other := range m.cfg.Volumes[p.Volume].Plexes {
		up := m.cfg.Plexes[other].State >= plex.FirstUp
		switch {
		case other == plexno:
			if up {
				status |= volplexOnlyUs
			}
		case up:
			status |= volplexOtherUp
		default:
			status |= volplexAllDown
		}
	}

	return status
}

// SetPlexState changes the state of the plex on request.
// An up request always recomputes the plex from its subdisks, since
// a plex can't be brought up without subdisks which support it.
func (m *Machine) SetPlexState(plexno int, newstate plex.State, flags Flags) Result {
	m.mu.Lock()
	defer m.unlockAndSave()

	if !m.validPlex(plexno) {
		return Unchanged
	}
	return m.setPlexState(plexno, newstate, flags)
}

func (m *Machine) setPlexState(plexno int, newstate plex.State, flags Flags) Result {
	ctxLogger := mlog.GetMethodLogger(logger, "Machine.setPlexState")

	p := &m.cfg.Plexes[plexno]
	oldstate := p.State

	if oldstate == plex.Unallocated {
		return Unchanged
	}
	if newstate == oldstate && newstate != plex.Up {
		return Unchanged
	}

	switch newstate {
	case plex.Up:
		m.updatePlexState(plexno)
		switch {
		case p.State == oldstate:
			return Unchanged
		case p.State != plex.Up:
			ctxLogger.Infof("plex %s is %s, not up", p.Name, p.State)
			m.saveUnless(flags)
			return AppliedDifferently
		}
		m.saveUnless(flags)
		return Applied

	case plex.Down:
		vps := m.volumePlexStatus(plexno)
		if (vps == volplexOnlyUs || vps == volplexOnlyUsUp) && flags&Force == 0 {
			ctxLogger.Infof("plex %s is the last plex up, can't take it down", p.Name)
			return Unchanged
		}
		p.State = plex.Down
		m.invalidateSubdisks(plexno, subdisk.Down)

	case plex.Faulty:
		p.State = plex.Faulty
		m.invalidateSubdisks(plexno, subdisk.Crashed)

	case plex.Initializing:
		if flags&Force == 0 {
			return Unchanged
		}
		p.State = plex.Initializing

	default:
		return Unchanged
	}

	ctxLogger.Infof("plex %s is %s", p.Name, p.State)
	m.updateVolumeState(p.Volume)
	m.saveUnless(flags)
	return Applied
}

// invalidateSubdisks takes every subdisk of the plex which could
// serve io into the given state.
func (m *Machine) invalidateSubdisks(plexno int, newstate subdisk.State) {
	ctxLogger := mlog.GetMethodLogger(logger, "Machine.invalidateSubdisks")

	for _, sdno := range m.cfg.Plexes[plexno].Subdisks {
		sd := &m.cfg.Subdisks[sdno]
		switch sd.State {
		case subdisk.Reviving, subdisk.Reborn, subdisk.Up:
			sd.State = newstate
			ctxLogger.Infof("subdisk %s is %s by force", sd.Name, sd.State)
		}
	}
}

// forcePlexUp brings the plex and all its subdisks up without checks.
func (m *Machine) forcePlexUp(plexno int) {
	ctxLogger := mlog.GetMethodLogger(logger, "Machine.forcePlexUp")

	p := &m.cfg.Plexes[plexno]
	p.State = plex.Up
	p.SdDown = 0
	for _, sdno := range p.Subdisks {
		sd := &m.cfg.Subdisks[sdno]
		if sd.State != subdisk.Up {
			sd.State = subdisk.Up
			ctxLogger.Infof("subdisk %s is %s by force", sd.Name, sd.State)
		}
	}
}
