package state

import (
	"github.com/chanyoung/vinum/app/vinumd/domain/model/plex"
	"github.com/chanyoung/vinum/app/vinumd/domain/model/subdisk"
	"github.com/chanyoung/vinum/app/vinumd/domain/model/volume"
	"github.com/chanyoung/vinum/pkg/util/mlog"
)

// sdStateMap is a bitset of the subdisk state classes found in a plex.
type sdStateMap int

const (
	sdMapEmpty sdStateMap = 1 << iota
	sdMapInit
	sdMapInitializing
	sdMapInitialized
	sdMapDown
	sdMapCrashed
	sdMapObsolete
	sdMapStale
	sdMapReviving
	sdMapReborn
	sdMapUp
	sdMapOther
)

// subdiskStateMap scans the subdisks of the plex. It returns the state
// classes present and the number of subdisks which can't serve io.
func (m *Machine) subdiskStateMap(plexno int) (sdStateMap, int) {
	var (
		statemap sdStateMap
		sddown   int
	)

	for _, sdno := range m.cfg.Plexes[plexno].Subdisks {
		var class sdStateMap

		switch m.cfg.Subdisks[sdno].State {
		case subdisk.Empty:
			class = sdMapEmpty
		case subdisk.Uninit, subdisk.Init:
			class = sdMapInit
		case subdisk.Initializing:
			class = sdMapInitializing
		case subdisk.Initialized:
			class = sdMapInitialized
		case subdisk.Down, subdisk.Referenced, subdisk.Unallocated:
			class = sdMapDown
		case subdisk.Crashed:
			class = sdMapCrashed
		case subdisk.Obsolete:
			class = sdMapObsolete
		case subdisk.Stale:
			class = sdMapStale
		case subdisk.Reviving:
			class = sdMapReviving
		case subdisk.Reborn:
			class = sdMapReborn
		case subdisk.Up:
			class = sdMapUp
		default:
			class = sdMapOther
		}

		statemap |= class
		if class != sdMapUp && class != sdMapReborn {
			sddown++
		}
	}

	return statemap, sddown
}

// updatePlexState recomputes the plex state from its subdisks and
// propagates a change to the volume.
func (m *Machine) updatePlexState(plexno int) {
	ctxLogger := mlog.GetMethodLogger(logger, "Machine.updatePlexState")

	p := &m.cfg.Plexes[plexno]
	if p.State == plex.Unallocated || len(p.Subdisks) == 0 {
		return
	}

	oldstate := p.State
	statemap, sddown := m.subdiskStateMap(plexno)
	p.SdDown = sddown

	switch {
	case statemap&sdMapInitializing != 0:
		p.State = plex.Initializing

	case statemap == sdMapUp:
		p.State = plex.Up

	case p.Organization.IsParity() && sddown == 1:
		p.State = plex.Degraded

	case statemap == sdMapEmpty || statemap&^(sdMapInitialized|sdMapUp) == 0:
		if m.volumePlexStatus(plexno)&volplexOtherUp == 0 {
			v := m.plexVolume(plexno)
			switch {
			case oldstate == plex.Init && v != nil && v.Flags&volume.SetupState != 0:
				// Nobody else claims to be authoritative, trust the
				// whole volume.
				for _, other := range v.Plexes {
					m.forcePlexUp(other)
				}
			case statemap == sdMapInitialized || !p.Organization.IsParity():
				m.forcePlexUp(plexno)
			}
		} else if statemap == sdMapUp {
			p.State = plex.Up
		} else {
			p.State = plex.Faulty
		}

	case statemap&^(sdMapUp|sdMapReborn) == 0:
		p.State = plex.Flaky

	case statemap&(sdMapUp|sdMapReborn) != 0:
		p.State = plex.Corrupt

	case statemap&(sdMapEmpty|sdMapInitializing) != 0:
		p.State = plex.Initializing

	default:
		p.State = plex.Faulty
	}

	if p.State == oldstate {
		return
	}

	ctxLogger.Infof("plex %s is %s", p.Name, p.State)
	m.updateVolumeState(p.Volume)
}

// plexVolume returns the volume owning the plex, or nil.
func (m *Machine) plexVolume(plexno int) *volume.Volume {
	volno := m.cfg.Plexes[plexno].Volume
	if volno < 0 {
		return nil
	}
	return &m.cfg.Volumes[volno]
}

// updateVolumeState recomputes the volume state from its plexes.
// A change is always saved.
func (m *Machine) updateVolumeState(volno int) {
	ctxLogger := mlog.GetMethodLogger(logger, "Machine.updateVolumeState")

	if volno < 0 {
		return
	}
	v := &m.cfg.Volumes[volno]
	if v.State == volume.Unallocated {
		return
	}

	oldstate := v.State
	v.State = volume.Down
	for _, plexno := range v.Plexes {
		if m.cfg.Plexes[plexno].State >= plex.Accessible {
			v.State = volume.Up
			break
		}
	}

	if v.State == oldstate {
		return
	}

	ctxLogger.Infof("volume %s is %s", v.Name, v.State)
	m.needSave = true
}
