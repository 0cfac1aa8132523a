package state

import (
	"github.com/chanyoung/vinum/app/vinumd/domain/model/drive"
	"github.com/chanyoung/vinum/app/vinumd/domain/model/plex"
	"github.com/chanyoung/vinum/app/vinumd/domain/model/subdisk"
	"github.com/chanyoung/vinum/app/vinumd/domain/model/volume"
	"github.com/chanyoung/vinum/pkg/util/mlog"
	"github.com/pkg/errors"
)

// AddDrive adds the drive into the drive table and returns its index.
func (m *Machine) AddDrive(d drive.Drive) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, old := range m.cfg.Drives {
		if old.State != drive.Unallocated && old.Name == d.Name {
			return -1, errors.Wrapf(ErrExists, "drive %s", d.Name)
		}
	}

	if d.State == drive.Unallocated {
		d.State = drive.Down
	}
	m.cfg.Drives = append(m.cfg.Drives, d)

	return len(m.cfg.Drives) - 1, nil
}

// AddVolume adds the volume into the volume table and returns its index.
func (m *Machine) AddVolume(v volume.Volume) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, old := range m.cfg.Volumes {
		if old.State != volume.Unallocated && old.Name == v.Name {
			return -1, errors.Wrapf(ErrExists, "volume %s", v.Name)
		}
	}

	if v.State == volume.Unallocated {
		v.State = volume.Down
	}
	v.Plexes = make([]int, 0)
	m.cfg.Volumes = append(m.cfg.Volumes, v)

	return len(m.cfg.Volumes) - 1, nil
}

// AddPlex adds the plex into the plex table and attaches it to the
// volume with the given index, if volno is not negative.
func (m *Machine) AddPlex(p plex.Plex, volno int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, old := range m.cfg.Plexes {
		if old.State != plex.Unallocated && old.Name == p.Name {
			return -1, errors.Wrapf(ErrExists, "plex %s", p.Name)
		}
	}
	if volno >= 0 && !m.validVolume(volno) {
		return -1, errors.Wrapf(ErrOutOfRange, "volume %d", volno)
	}

	if p.State == plex.Unallocated {
		p.State = plex.Init
	}
	p.Subdisks = make([]int, 0)
	p.Volume = volno
	m.cfg.Plexes = append(m.cfg.Plexes, p)
	plexno := len(m.cfg.Plexes) - 1

	if volno >= 0 {
		v := &m.cfg.Volumes[volno]
		v.Plexes = append(v.Plexes, plexno)
	}

	return plexno, nil
}

// AddSubdisk adds the subdisk into the subdisk table and attaches it to
// the plex with the given index, if plexno is not negative.
func (m *Machine) AddSubdisk(sd subdisk.Subdisk, plexno int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, old := range m.cfg.Subdisks {
		if old.State != subdisk.Unallocated && old.Name == sd.Name {
			return -1, errors.Wrapf(ErrExists, "subdisk %s", sd.Name)
		}
	}
	if !m.validDrive(sd.Drive) {
		return -1, errors.Wrapf(ErrOutOfRange, "drive %d", sd.Drive)
	}
	if plexno >= 0 && !m.validPlex(plexno) {
		return -1, errors.Wrapf(ErrOutOfRange, "plex %d", plexno)
	}

	if sd.State == subdisk.Unallocated {
		sd.State = subdisk.Empty
	}
	if !sd.HasSpace() {
		sd.State = subdisk.Down
	}
	if sd.ReviveBlockSize <= 0 {
		sd.ReviveBlockSize = subdisk.DefaultBlockSize
	}
	if sd.InitBlockSize <= 0 {
		sd.InitBlockSize = subdisk.DefaultBlockSize
	}
	sd.Plex = plexno
	m.cfg.Subdisks = append(m.cfg.Subdisks, sd)
	sdno := len(m.cfg.Subdisks) - 1

	if plexno >= 0 {
		p := &m.cfg.Plexes[plexno]
		if n := len(p.Subdisks); n > 0 {
			last := m.cfg.Subdisks[p.Subdisks[n-1]]
			m.cfg.Subdisks[sdno].PlexOffset = last.PlexOffset + last.Size
		}
		p.Subdisks = append(p.Subdisks, sdno)
	}

	return sdno, nil
}

// OpenVolume marks the volume open and takes an open reference on
// every drive under it.
func (m *Machine) OpenVolume(volno int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.validVolume(volno) {
		return ErrOutOfRange
	}
	v := &m.cfg.Volumes[volno]
	if v.Open {
		return nil
	}
	if v.State != volume.Up {
		return errors.Wrapf(ErrVolumeNotUp, "volume %s is %s", v.Name, v.State)
	}

	v.Open = true
	m.forEachVolumeDrive(volno, func(d *drive.Drive) { d.OpenCount++ })
	return nil
}

// CloseVolume marks the volume closed and drops the open references
// taken by OpenVolume.
func (m *Machine) CloseVolume(volno int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.validVolume(volno) {
		return ErrOutOfRange
	}
	v := &m.cfg.Volumes[volno]
	if !v.Open {
		return nil
	}

	v.Open = false
	m.forEachVolumeDrive(volno, func(d *drive.Drive) {
		if d.OpenCount > 0 {
			d.OpenCount--
		}
	})
	return nil
}

// forEachVolumeDrive calls fn once per subdisk under the volume with
// the drive the subdisk lives on.
func (m *Machine) forEachVolumeDrive(volno int, fn func(d *drive.Drive)) {
	for _, plexno := range m.cfg.Volumes[volno].Plexes {
		for _, sdno := range m.cfg.Plexes[plexno].Subdisks {
			fn(&m.cfg.Drives[m.cfg.Subdisks[sdno].Drive])
		}
	}
}

// ReopenDrives opens the devices of drives which were saved in the up
// state. A drive whose device can't be opened is taken down.
func (m *Machine) ReopenDrives() {
	ctxLogger := mlog.GetMethodLogger(logger, "Machine.ReopenDrives")

	m.mu.Lock()
	defer m.unlockAndSave()

	for no := range m.cfg.Drives {
		d := &m.cfg.Drives[no]
		if d.State != drive.Up || d.Open {
			continue
		}

		if err := m.openDrive(no); err != nil {
			ctxLogger.Errorf("drive %s: %v", d.Name, err)
			m.setDriveState(no, drive.Down, Force)
		}
	}
}
