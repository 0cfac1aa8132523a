package admin

import (
	"github.com/chanyoung/vinum/app/vinumd/domain/model/drive"
	"github.com/chanyoung/vinum/app/vinumd/domain/model/plex"
	"github.com/chanyoung/vinum/app/vinumd/domain/model/subdisk"
	"github.com/chanyoung/vinum/app/vinumd/domain/model/table"
	"github.com/chanyoung/vinum/app/vinumd/domain/model/volume"
	"github.com/chanyoung/vinum/app/vinumd/usecase/state"
)

// Machine provides the state transitions the admin commands are made of.
type Machine interface {
	Snapshot() table.Config
	Counts() (drives, subdisks, plexes, volumes int)
	Save()

	Drive(no int) (drive.Drive, error)
	Subdisk(no int) (subdisk.Subdisk, error)
	Plex(no int) (plex.Plex, error)
	Volume(no int) (volume.Volume, error)

	SetDriveState(driveno int, newstate drive.State, flags state.Flags) state.Result
	SetSubdiskState(sdno int, newstate subdisk.State, flags state.Flags) state.Result
	SetPlexState(plexno int, newstate plex.State, flags state.Flags) state.Result
	SetVolumeState(volno int, newstate volume.State, flags state.Flags) state.Result

	ReviveBlock(sdno int) (state.Result, error)
	InitBlock(sdno int) (state.Result, error)
	StartInit(sdno int, flags state.Flags) state.Result

	OpenVolume(volno int) error
	CloseVolume(volno int) error

	AddDrive(d drive.Drive) (int, error)
	AddSubdisk(sd subdisk.Subdisk, plexno int) (int, error)
	AddPlex(p plex.Plex, volno int) (int, error)
	AddVolume(v volume.Volume) (int, error)
}
