package state

import (
	"github.com/chanyoung/vinum/app/vinumd/domain/model/volume"
	"github.com/chanyoung/vinum/pkg/util/mlog"
)

// SetVolumeState changes the state of the volume on request.
// An up request recomputes the volume from its plexes.
func (m *Machine) SetVolumeState(volno int, newstate volume.State, flags Flags) Result {
	m.mu.Lock()
	defer m.unlockAndSave()

	if !m.validVolume(volno) {
		return Unchanged
	}
	return m.setVolumeState(volno, newstate, flags)
}

func (m *Machine) setVolumeState(volno int, newstate volume.State, flags Flags) Result {
	ctxLogger := mlog.GetMethodLogger(logger, "Machine.setVolumeState")

	v := &m.cfg.Volumes[volno]
	oldstate := v.State

	if oldstate == volume.Unallocated || newstate == oldstate {
		return Unchanged
	}

	switch newstate {
	case volume.Up:
		m.updateVolumeState(volno)
		if v.State == volume.Up {
			return Applied
		}
		return Unchanged

	case volume.Down:
		if v.Open && flags&Force == 0 {
			ctxLogger.Infof("volume %s is open, can't take it down", v.Name)
			return Unchanged
		}
		v.State = volume.Down
		ctxLogger.Infof("volume %s is %s", v.Name, v.State)
		m.saveUnless(flags)
		return Applied

	default:
		return Unchanged
	}
}
