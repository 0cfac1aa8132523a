package state

import (
	"github.com/chanyoung/vinum/app/vinumd/domain/model/drive"
	"github.com/chanyoung/vinum/app/vinumd/domain/model/plex"
	"github.com/chanyoung/vinum/app/vinumd/domain/model/subdisk"
	"github.com/chanyoung/vinum/pkg/util/mlog"
)

// SetSubdiskState changes the state of the subdisk on request.
// Bringing a stale subdisk up in a redundant volume starts a revive
// and returns Retry; ReviveBlock must be called until the subdisk is up.
func (m *Machine) SetSubdiskState(sdno int, newstate subdisk.State, flags Flags) Result {
	m.mu.Lock()
	defer m.unlockAndSave()

	if !m.validSubdisk(sdno) {
		return Unchanged
	}
	return m.setSubdiskState(sdno, newstate, flags)
}

func (m *Machine) setSubdiskState(sdno int, newstate subdisk.State, flags Flags) Result {
	ctxLogger := mlog.GetMethodLogger(logger, "Machine.setSubdiskState")

	sd := &m.cfg.Subdisks[sdno]
	oldstate := sd.State
	force := flags&Force != 0

	if newstate == oldstate || oldstate == subdisk.Unallocated {
		return Unchanged
	}

	// Without drive space the subdisk can't be anything but down.
	if !sd.HasSpace() {
		sd.State = subdisk.Down
		if sd.State != oldstate {
			m.subdiskChanged(sdno, flags)
		}
		if newstate != subdisk.Down {
			ctxLogger.Infof("subdisk %s has no space, is %s, not %s", sd.Name, sd.State, newstate)
			return AppliedDifferently
		}
		return Applied
	}

	status := Applied

	switch newstate {
	case subdisk.Down:
		if !force && sd.Plex >= 0 && oldstate != subdisk.Reborn {
			return Unchanged
		}

	case subdisk.Initialized:
		if oldstate != subdisk.Initializing && !force {
			return Unchanged
		}

	case subdisk.Up:
		// Force can't bring a subdisk up on a drive which is not up.
		if m.cfg.Drives[sd.Drive].State != drive.Up {
			return Unchanged
		}
		if force {
			break
		}

		var ok bool
		newstate, status, ok = m.subdiskUpTarget(sdno, flags)
		if !ok {
			return Unchanged
		}

	default:
		if !force {
			return Unchanged
		}
	}

	sd.State = newstate
	if sd.State == oldstate {
		if status == AppliedDifferently {
			ctxLogger.Infof("subdisk %s stays %s, not up", sd.Name, sd.State)
			return AppliedDifferently
		}
		return Unchanged
	}

	switch status {
	case AppliedDifferently:
		ctxLogger.Infof("subdisk %s is %s, not up", sd.Name, sd.State)
	case Retry:
		ctxLogger.Infof("subdisk %s is %s, revive required", sd.Name, sd.State)
	default:
		ctxLogger.Infof("subdisk %s is %s", sd.Name, sd.State)
	}

	m.subdiskChanged(sdno, flags)
	return status
}

// subdiskChanged propagates a subdisk state change to the plex.
func (m *Machine) subdiskChanged(sdno int, flags Flags) {
	if plexno := m.cfg.Subdisks[sdno].Plex; plexno >= 0 {
		m.updatePlexState(plexno)
	}
	m.saveUnless(flags)
}

// subdiskUpTarget decides what an unforced up request on the subdisk
// turns into. It returns false if the request must be refused.
func (m *Machine) subdiskUpTarget(sdno int, flags Flags) (subdisk.State, Result, bool) {
	ctxLogger := mlog.GetMethodLogger(logger, "Machine.subdiskUpTarget")

	sd := &m.cfg.Subdisks[sdno]
	oldstate := sd.State

	switch oldstate {
	case subdisk.Crashed, subdisk.Reborn, subdisk.Down:
		if sd.Plex < 0 {
			return subdisk.Up, Applied, true
		}
		p := &m.cfg.Plexes[sd.Plex]
		if p.State < plex.FirstUp || len(p.Subdisks) > 1 {
			return subdisk.Up, Applied, true
		}
		ctxLogger.Infof("subdisk %s: up conflicts with plex %s state %s", sd.Name, p.Name, p.State)
		return subdisk.Reborn, AppliedDifferently, true

	case subdisk.Init:
		if flags&Configuring == 0 {
			return oldstate, Unchanged, false
		}
		return m.subdiskUpFromEmpty(sdno)

	case subdisk.Empty, subdisk.Initialized:
		return m.subdiskUpFromEmpty(sdno)

	case subdisk.Stale, subdisk.Obsolete:
		return m.subdiskUpFromStale(sdno)

	default:
		// Reviving and everything else reach up only by initializing
		// or reviving.
		return oldstate, Unchanged, false
	}
}

func (m *Machine) subdiskUpFromEmpty(sdno int) (subdisk.State, Result, bool) {
	sd := &m.cfg.Subdisks[sdno]
	if sd.Plex < 0 || m.volumePlexStatus(sd.Plex)&volplexOtherUp == 0 {
		return subdisk.Up, Applied, true
	}
	return m.subdiskUpFromStale(sdno)
}

func (m *Machine) subdiskUpFromStale(sdno int) (subdisk.State, Result, bool) {
	ctxLogger := mlog.GetMethodLogger(logger, "Machine.subdiskUpFromStale")

	sd := &m.cfg.Subdisks[sdno]
	if sd.Plex < 0 {
		return subdisk.Up, Applied, true
	}

	p := &m.cfg.Plexes[sd.Plex]
	single := p.Volume < 0 || len(m.cfg.Volumes[p.Volume].Plexes) == 1
	_, sddown := m.subdiskStateMap(sd.Plex)
	if single && (!p.Organization.IsParity() || sddown > 1) {
		ctxLogger.Infof("subdisk %s has no source to revive from, refused", sd.Name)
		return sd.State, Unchanged, false
	}

	sd.Revived = 0
	return subdisk.Reviving, Retry, true
}
