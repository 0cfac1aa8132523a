package admin

import (
	"fmt"
	"io"

	"github.com/chanyoung/vinum/app/vinumd/domain/model/drive"
	"github.com/chanyoung/vinum/app/vinumd/domain/model/plex"
	"github.com/chanyoung/vinum/app/vinumd/domain/model/subdisk"
	"github.com/chanyoung/vinum/app/vinumd/domain/model/volume"
	"github.com/chanyoung/vinum/app/vinumd/usecase/state"
	"github.com/chanyoung/vinum/pkg/util/mlog"
	"github.com/chanyoung/vinum/pkg/util/uuid"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// CreateFile is the declarative description of the objects to create.
type CreateFile struct {
	Drives  []CreateDrive  `yaml:"drives"`
	Volumes []CreateVolume `yaml:"volumes"`
}

// CreateDrive describes a drive. A drive without name gets a generated one.
type CreateDrive struct {
	Name   string `yaml:"name"`
	Device string `yaml:"device"`
}

// CreateVolume describes a volume and its plexes.
type CreateVolume struct {
	Name string `yaml:"name"`
	// SetupState brings every plex up together with the first one.
	SetupState bool         `yaml:"setupstate"`
	Plexes     []CreatePlex `yaml:"plexes"`
}

// CreatePlex describes a plex and its subdisks.
type CreatePlex struct {
	Name         string          `yaml:"name"`
	Organization string          `yaml:"organization"`
	StripeSize   int64           `yaml:"stripesize"`
	Subdisks     []CreateSubdisk `yaml:"subdisks"`
}

// CreateSubdisk describes a subdisk on a named drive.
type CreateSubdisk struct {
	Name  string `yaml:"name"`
	Drive string `yaml:"drive"`
	// DriveOffset defaults to zero; -1 creates the subdisk without space.
	DriveOffset int64 `yaml:"driveoffset"`
	Size        int64 `yaml:"size"`
}

// ParseCreateFile decodes a yaml create file.
func ParseCreateFile(r io.Reader) (*CreateFile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	f := &CreateFile{}
	if err := yaml.UnmarshalStrict(data, f); err != nil {
		return nil, errors.Wrap(err, "failed to parse create file")
	}
	return f, nil
}

// Create adds the described objects. Transitions are made with the
// configuring flag and the configuration is saved once at the end.
func (h *Handlers) Create(f *CreateFile) error {
	ctxLogger := mlog.GetMethodLogger(logger, "Handlers.Create")

	driveIndex := make(map[string]int)
	for i, d := range h.m.Snapshot().Drives {
		if d.State != drive.Unallocated {
			driveIndex[d.Name] = i
		}
	}

	// Everything added so far stays in the tables; save it anyway.
	defer h.m.Save()

	for _, cd := range f.Drives {
		name := cd.Name
		if name == "" {
			name = "drive-" + uuid.Gen()
		}

		driveno, err := h.m.AddDrive(drive.New(name, cd.Device))
		if err != nil {
			return err
		}
		driveIndex[name] = driveno

		if h.m.SetDriveState(driveno, drive.Up, state.Configuring) != state.Applied {
			ctxLogger.Infof("drive %s is not accessible", name)
		}
	}

	for _, cv := range f.Volumes {
		if err := h.createVolume(cv, driveIndex); err != nil {
			return err
		}
	}

	return nil
}

func (h *Handlers) createVolume(cv CreateVolume, driveIndex map[string]int) error {
	var flags volume.Flags
	if cv.SetupState {
		flags |= volume.SetupState
	}

	volno, err := h.m.AddVolume(volume.New(cv.Name, flags))
	if err != nil {
		return err
	}

	plexes := make([]int, 0, len(cv.Plexes))
	for i, cp := range cv.Plexes {
		name := cp.Name
		if name == "" {
			name = fmt.Sprintf("%s.p%d", cv.Name, i)
		}

		org := plex.Concat
		if cp.Organization != "" {
			if org, err = plex.ParseOrganization(cp.Organization); err != nil {
				return errors.Wrapf(err, "plex %s", name)
			}
		}

		plexno, err := h.m.AddPlex(plex.New(name, org, cp.StripeSize), volno)
		if err != nil {
			return err
		}
		plexes = append(plexes, plexno)

		for j, cs := range cp.Subdisks {
			sdname := cs.Name
			if sdname == "" {
				sdname = fmt.Sprintf("%s.s%d", name, j)
			}

			driveno, ok := driveIndex[cs.Drive]
			if !ok {
				return errors.Errorf("subdisk %s: no drive named %q", sdname, cs.Drive)
			}

			if _, err := h.m.AddSubdisk(subdisk.New(sdname, driveno, cs.DriveOffset, cs.Size), plexno); err != nil {
				return err
			}
		}
	}

	// A new volume with setup state trusts its first plex.
	if cv.SetupState && len(plexes) > 0 {
		h.m.SetPlexState(plexes[0], plex.Up, state.Configuring)
	}

	return nil
}
