package state

import (
	"github.com/chanyoung/vinum/app/vinumd/domain/model/drive"
	"github.com/chanyoung/vinum/app/vinumd/domain/model/subdisk"
	"github.com/chanyoung/vinum/pkg/util/mlog"
)

// SetDriveState changes the state of the drive and recomputes the
// state of every subdisk on it.
func (m *Machine) SetDriveState(driveno int, newstate drive.State, flags Flags) Result {
	m.mu.Lock()
	defer m.unlockAndSave()

	if !m.validDrive(driveno) {
		return Unchanged
	}
	return m.setDriveState(driveno, newstate, flags)
}

func (m *Machine) setDriveState(driveno int, newstate drive.State, flags Flags) Result {
	ctxLogger := mlog.GetMethodLogger(logger, "Machine.setDriveState")

	d := &m.cfg.Drives[driveno]
	oldstate := d.State

	if oldstate == drive.Unallocated || newstate == oldstate {
		return Unchanged
	}
	if newstate == drive.Down && d.OpenCount > 0 && flags&Force == 0 {
		ctxLogger.Infof("drive %s is open, can't take it down", d.Name)
		return Unchanged
	}

	d.State = newstate
	ctxLogger.Infof("drive %s is %s", d.Name, newstate)

	if newstate == drive.Up {
		if !d.Open {
			if err := m.openDrive(driveno); err != nil {
				ctxLogger.Errorf("drive %s: %v", d.Name, err)
				// Taking the drive down cascades to the subdisks itself.
				m.setDriveState(driveno, drive.Down, flags|Force)
				m.saveUnless(flags)
				if d.State == oldstate {
					return Unchanged
				}
				return AppliedDifferently
			}
		}
	} else if d.Open {
		d.Open = false
		if m.closer != nil {
			m.closer.EnqueueClose(driveno, *d)
		}
	}

	for sdno := range m.cfg.Subdisks {
		sd := &m.cfg.Subdisks[sdno]
		if sd.State != subdisk.Unallocated && sd.Drive == driveno {
			m.updateSubdiskState(sdno)
		}
	}

	m.saveUnless(flags)
	return Applied
}

// openDrive runs the device init routine for the drive.
func (m *Machine) openDrive(driveno int) error {
	d := &m.cfg.Drives[driveno]
	if m.devices != nil {
		if err := m.devices.Open(*d); err != nil {
			return err
		}
	}
	d.Open = true
	return nil
}

// updateSubdiskState adjusts the subdisk to the state of its drive.
func (m *Machine) updateSubdiskState(sdno int) {
	ctxLogger := mlog.GetMethodLogger(logger, "Machine.updateSubdiskState")

	sd := &m.cfg.Subdisks[sdno]
	d := &m.cfg.Drives[sd.Drive]
	oldstate := sd.State

	if d.State == drive.Up {
		switch sd.State {
		case subdisk.Down, subdisk.Crashed:
			sd.State = subdisk.Reborn
		}
	} else {
		switch sd.State {
		case subdisk.Up, subdisk.Reborn, subdisk.Reviving, subdisk.Empty:
			sd.State = subdisk.Crashed
		}
	}

	if sd.State == oldstate {
		return
	}

	ctxLogger.Infof("subdisk %s is %s by force", sd.Name, sd.State)
	if sd.Plex >= 0 {
		m.updatePlexState(sd.Plex)
	}
}
